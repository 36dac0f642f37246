package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"expensetracker/internal/core"
)

// Store keeps expenses in process memory. IDs come from a counter that is
// never reset, so they are not reused after DeleteAll.
type Store struct {
	mu     sync.Mutex
	nextID int64
	items  []core.Expense
	closed bool
}

func New() *Store {
	return &Store{nextID: 1}
}

// NewFromFiles seeds the store from base/seed_expenses.csv when present.
// Rows are date,category,note,amount; blank lines and # comments are skipped.
func NewFromFiles(base string) (*Store, error) {
	s := New()
	f, err := os.Open(filepath.Join(base, "seed_expenses.csv"))
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	rows, err := readSeed(f)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	for _, e := range rows {
		if _, err := s.Append(context.Background(), e); err != nil {
			return nil, fmt.Errorf("seed expense: %w", err)
		}
	}
	return s, nil
}

func readSeed(r io.Reader) ([]core.Expense, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = 4
	cr.TrimLeadingSpace = true

	var out []core.Expense
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		d, err := core.ParseDate(rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", len(out)+1, err)
		}
		amount, err := core.ParseAmount(rec[3])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", len(out)+1, err)
		}
		out = append(out, core.Expense{
			Date:     d,
			Category: strings.TrimSpace(rec[1]),
			Note:     strings.TrimSpace(rec[2]),
			Amount:   amount,
		})
	}
}

// Append stores the expense and assigns the next ID.
func (s *Store) Append(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return core.Expense{}, core.NewStorageError("append expense", errors.New("store closed"))
	}
	e.ID = s.nextID
	s.nextID++
	s.items = append(s.items, e)
	return e, nil
}

func (s *Store) ListExpenses(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Expense(nil), s.items...)
	sortByDate(out)
	return out, nil
}

func (s *Store) ListMonth(_ context.Context, year int, month int) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, e := range s.items {
		if e.Date.InMonth(year, month) {
			out = append(out, e)
		}
	}
	sortByDate(out)
	return out, nil
}

func (s *Store) SumByCategory(_ context.Context) ([]core.CategoryTotal, error) {
	s.mu.Lock()
	totals := core.GroupByCategory(s.items)
	s.mu.Unlock()
	sort.Slice(totals, func(i, j int) bool { return totals[i].Category < totals[j].Category })
	return totals, nil
}

func (s *Store) TopCategory(ctx context.Context) (core.CategoryTotal, error) {
	totals, err := s.SumByCategory(ctx)
	if err != nil {
		return core.CategoryTotal{}, err
	}
	return core.TopOf(totals)
}

// Revision counts the stored expenses and reports the highest ID handed out
// since the last clear.
func (s *Store) Revision(_ context.Context) (core.Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rev core.Revision
	for _, e := range s.items {
		rev.Count++
		if e.ID > rev.MaxID {
			rev.MaxID = e.ID
		}
	}
	return rev, nil
}

// DeleteAll drops every expense under the store lock, so readers see either
// the full set or nothing.
func (s *Store) DeleteAll(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.items))
	s.items = nil
	return n, nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return core.NewStorageError("ping", errors.New("store closed"))
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func sortByDate(items []core.Expense) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date.Time) {
			return items[i].Date.Before(items[j].Date.Time)
		}
		return items[i].ID < items[j].ID
	})
}
