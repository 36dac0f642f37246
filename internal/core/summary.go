package core

import "strconv"

// Revision identifies the state of a store's expense set. IDs are never
// reused and the only deletion is a full clear, so any write changes it.
type Revision struct {
	Count int64
	MaxID int64
}

func (r Revision) String() string {
	return strconv.FormatInt(r.Count, 10) + ":" + strconv.FormatInt(r.MaxID, 10)
}

// CategoryTotal represents an amount aggregated by category name.
type CategoryTotal struct {
	Category string
	Total    float64
}

// ChartData holds parallel label/amount slices for a pie chart.
type ChartData struct {
	Labels  []string
	Amounts []float64
}

// NewChartData reshapes category totals for rendering. It returns ErrEmpty
// when there is nothing to draw.
func NewChartData(totals []CategoryTotal) (ChartData, error) {
	if len(totals) == 0 {
		return ChartData{}, ErrEmpty
	}
	data := ChartData{
		Labels:  make([]string, 0, len(totals)),
		Amounts: make([]float64, 0, len(totals)),
	}
	for _, t := range totals {
		data.Labels = append(data.Labels, t.Category)
		data.Amounts = append(data.Amounts, t.Total)
	}
	return data, nil
}

// Map returns the category -> total mapping.
func (c ChartData) Map() map[string]float64 {
	m := make(map[string]float64, len(c.Labels))
	for i, l := range c.Labels {
		m[l] = c.Amounts[i]
	}
	return m
}

// Total is the sum of all slices.
func (c ChartData) Total() float64 {
	return SumAmounts(c.Amounts...)
}

// TopOf picks the category with the highest total; ties go to the
// lexically first category.
func TopOf(totals []CategoryTotal) (CategoryTotal, error) {
	if len(totals) == 0 {
		return CategoryTotal{}, ErrEmpty
	}
	top := totals[0]
	for _, t := range totals[1:] {
		if t.Total > top.Total || (t.Total == top.Total && t.Category < top.Category) {
			top = t
		}
	}
	return top, nil
}

// RoundTotals rounds every total to cents in place and returns totals.
func RoundTotals(totals []CategoryTotal) []CategoryTotal {
	for i := range totals {
		totals[i].Total = RoundCents(totals[i].Total)
	}
	return totals
}

// GroupByCategory sums expenses per category, in first-seen order.
func GroupByCategory(expenses []Expense) []CategoryTotal {
	idx := make(map[string]int)
	var out []CategoryTotal
	for _, e := range expenses {
		i, ok := idx[e.Category]
		if !ok {
			idx[e.Category] = len(out)
			out = append(out, CategoryTotal{Category: e.Category, Total: e.Amount})
			continue
		}
		out[i].Total = SumAmounts(out[i].Total, e.Amount)
	}
	return RoundTotals(out)
}
