package sales

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// CSVOptions holds options for CSV loading.
type CSVOptions struct {
	DateColumn     string // default "Order Date"
	CategoryColumn string // default "Category"
	SalesColumn    string // default "Sales"
	Delimiter      rune   // default ','
}

// DefaultCSVOptions returns the column names of the retail export the
// forecaster was built for.
func DefaultCSVOptions() *CSVOptions {
	return &CSVOptions{
		DateColumn:     "Order Date",
		CategoryColumn: "Category",
		SalesColumn:    "Sales",
		Delimiter:      ',',
	}
}

func (o *CSVOptions) withDefaults() *CSVOptions {
	d := DefaultCSVOptions()
	if o == nil {
		return d
	}
	out := *o
	if out.DateColumn == "" {
		out.DateColumn = d.DateColumn
	}
	if out.CategoryColumn == "" {
		out.CategoryColumn = d.CategoryColumn
	}
	if out.SalesColumn == "" {
		out.SalesColumn = d.SalesColumn
	}
	if out.Delimiter == 0 {
		out.Delimiter = d.Delimiter
	}
	return &out
}

// ErrMissingColumn is returned when a required header is absent.
var ErrMissingColumn = errors.New("required column missing")

// LoadStats counts what a loader kept and dropped.
type LoadStats struct {
	Rows         int // data rows read
	Loaded       int // records kept
	BadSales     int // dropped: empty or non-numeric sales
	NoCategory   int // dropped: empty category
	InvalidDates int // kept, but the date does not parse
}

// LoadCSV loads sales records from a CSV file.
func LoadCSV(filename string, opts *CSVOptions) (*Dataset, LoadStats, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("failed to open sales file %s: %w", filename, err)
	}
	defer file.Close()

	return LoadCSVFromReader(file, opts)
}

// LoadCSVFromReader loads sales records from r. Extra columns are ignored.
// Rows with an empty category or an unparseable sales amount are dropped;
// rows with an unparseable date are kept for BuildMonthly to drop.
func LoadCSVFromReader(r io.Reader, opts *CSVOptions) (*Dataset, LoadStats, error) {
	opts = opts.withDefaults()
	var st LoadStats

	reader := csv.NewReader(r)
	reader.Comma = opts.Delimiter
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, st, fmt.Errorf("failed to read sales CSV header: %w", err)
	}

	dateIdx, catIdx, salesIdx := -1, -1, -1
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		switch h {
		case opts.DateColumn:
			dateIdx = i
		case opts.CategoryColumn:
			catIdx = i
		case opts.SalesColumn:
			salesIdx = i
		}
	}
	for _, col := range []struct {
		name string
		idx  int
	}{
		{opts.DateColumn, dateIdx},
		{opts.CategoryColumn, catIdx},
		{opts.SalesColumn, salesIdx},
	} {
		if col.idx < 0 {
			return nil, st, fmt.Errorf("%w: %q", ErrMissingColumn, col.name)
		}
	}
	width := max(dateIdx, catIdx, salesIdx) + 1

	var records []Record
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, st, fmt.Errorf("sales CSV line %d: %w", line, err)
		}
		st.Rows++
		if len(row) < width {
			st.BadSales++
			continue
		}

		rec, ok := parseRecord(row[dateIdx], row[catIdx], row[salesIdx], &st)
		if !ok {
			continue
		}
		records = append(records, rec)
	}

	return &Dataset{records: records}, st, nil
}

func parseRecord(date, category, amount string, st *LoadStats) (Record, bool) {
	category = strings.TrimSpace(category)
	if category == "" {
		st.NoCategory++
		return Record{}, false
	}

	amount = strings.TrimSpace(amount)
	switch amount {
	case "", "NA", "NaN", "null":
		st.BadSales++
		return Record{}, false
	}
	value, err := decimal.NewFromString(strings.ReplaceAll(amount, ",", ""))
	if err != nil {
		st.BadSales++
		return Record{}, false
	}

	date = strings.TrimSpace(date)
	if _, err := ParseDate(date); err != nil {
		st.InvalidDates++
	}
	st.Loaded++
	return Record{Date: date, Category: category, Sales: value}, true
}
