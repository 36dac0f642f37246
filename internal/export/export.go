// Package export writes ledger records in interchange formats.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"expensetracker/internal/core"
)

type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat accepts csv, json, yaml and yml in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	default:
		return "", &core.ValidationError{Field: "format", Value: s, Err: fmt.Errorf("must be csv, json or yaml")}
	}
}

// record is the serialized shape of an expense.
type record struct {
	ID       int64   `json:"id" yaml:"id"`
	Date     string  `json:"date" yaml:"date"`
	Category string  `json:"category" yaml:"category"`
	Note     string  `json:"note" yaml:"note"`
	Amount   float64 `json:"amount" yaml:"amount"`
}

func toRecords(expenses []core.Expense) []record {
	out := make([]record, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, record{
			ID:       e.ID,
			Date:     e.Date.String(),
			Category: e.Category,
			Note:     e.Note,
			Amount:   e.Amount,
		})
	}
	return out
}

// Write encodes expenses to w in the given format.
func Write(w io.Writer, format Format, expenses []core.Expense) error {
	switch format {
	case CSV:
		return writeCSV(w, expenses)
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(toRecords(expenses))
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(toRecords(expenses)); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

func writeCSV(w io.Writer, expenses []core.Expense) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "date", "category", "note", "amount"}); err != nil {
		return err
	}
	for _, e := range expenses {
		row := []string{
			strconv.FormatInt(e.ID, 10),
			e.Date.String(),
			e.Category,
			e.Note,
			core.FormatAmount(e.Amount),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read decodes records written by Write. IDs are kept as read.
func Read(r io.Reader, format Format) ([]core.Expense, error) {
	var recs []record
	switch format {
	case JSON:
		if err := json.NewDecoder(r).Decode(&recs); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case YAML:
		if err := yaml.NewDecoder(r).Decode(&recs); err != nil && err != io.EOF {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	case CSV:
		rows, err := csv.NewReader(r).ReadAll()
		if err != nil {
			return nil, fmt.Errorf("decode csv: %w", err)
		}
		for i, row := range rows {
			if i == 0 || len(row) != 5 {
				continue
			}
			id, _ := strconv.ParseInt(row[0], 10, 64)
			amount, err := core.ParseAmount(row[4])
			if err != nil {
				return nil, fmt.Errorf("csv line %d: %w", i+1, err)
			}
			recs = append(recs, record{ID: id, Date: row[1], Category: row[2], Note: row[3], Amount: amount})
		}
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}

	out := make([]core.Expense, 0, len(recs))
	for _, rec := range recs {
		d, err := core.ParseDate(rec.Date)
		if err != nil {
			return nil, &core.ValidationError{Field: "date", Value: rec.Date, Err: core.ErrInvalidDate}
		}
		out = append(out, core.Expense{ID: rec.ID, Date: d, Category: rec.Category, Note: rec.Note, Amount: rec.Amount})
	}
	return out, nil
}
