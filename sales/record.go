package sales

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record is one sales transaction.
type Record struct {
	Date     string
	Category string
	Sales    decimal.Decimal
}

// Dataset is an immutable collection of records. It is safe to share
// between goroutines once loaded.
type Dataset struct {
	records []Record
}

// NewDataset wraps records. The slice is copied.
func NewDataset(records []Record) *Dataset {
	return &Dataset{records: append([]Record(nil), records...)}
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.records)
}

// Records returns a copy of the records.
func (d *Dataset) Records() []Record {
	return append([]Record(nil), d.records...)
}

// Categories returns the distinct categories in order of first appearance.
func (d *Dataset) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range d.records {
		if !seen[r.Category] {
			seen[r.Category] = true
			out = append(out, r.Category)
		}
	}
	return out
}

// Summary describes one category of a dataset.
type Summary struct {
	Category     string
	Records      int
	InvalidDates int
	Total        decimal.Decimal
	First        time.Time // earliest valid date, zero if none
	Last         time.Time // latest valid date, zero if none
}

// Summaries returns one Summary per category in Categories order.
func (d *Dataset) Summaries() []Summary {
	index := make(map[string]int)
	var out []Summary
	for _, r := range d.records {
		i, ok := index[r.Category]
		if !ok {
			i = len(out)
			index[r.Category] = i
			out = append(out, Summary{Category: r.Category, Total: decimal.Zero})
		}
		s := &out[i]
		s.Records++
		s.Total = s.Total.Add(r.Sales)

		t, err := ParseDate(r.Date)
		if err != nil {
			s.InvalidDates++
			continue
		}
		if s.First.IsZero() || t.Before(s.First) {
			s.First = t
		}
		if s.Last.IsZero() || t.After(s.Last) {
			s.Last = t
		}
	}
	return out
}
