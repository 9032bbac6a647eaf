package sales

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sartorproj/salescast/timeseries"
)

// ErrNoValidDates is returned by BuildMonthly when a category has no record
// with a parseable date.
var ErrNoValidDates = errors.New("no records with a valid date")

// BuildMonthly sums the sales of category per calendar month. Records with
// unparseable dates are dropped. Months between the first and last
// observed month without records are present with value 0. The series is
// named after the category and stamped with UTC month starts.
func BuildMonthly(ds *Dataset, category string) (*timeseries.Series, error) {
	type row struct {
		month time.Time
		sales decimal.Decimal
	}

	var rows []row
	for _, r := range ds.records {
		if r.Category != category {
			continue
		}
		t, err := ParseDate(r.Date)
		if err != nil {
			continue
		}
		rows = append(rows, row{month: timeseries.MonthStart(t), sales: r.Sales})
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: category %q", ErrNoValidDates, category)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].month.Before(rows[j].month) })

	first := rows[0].month
	n := timeseries.MonthsBetween(first, rows[len(rows)-1].month) + 1
	sums := make([]decimal.Decimal, n)
	for i := range sums {
		sums[i] = decimal.Zero
	}
	for _, r := range rows {
		i := timeseries.MonthsBetween(first, r.month)
		sums[i] = sums[i].Add(r.sales)
	}

	values := make([]float64, n)
	for i, s := range sums {
		values[i] = s.InexactFloat64()
	}

	series := timeseries.NewMonthly(first, values)
	series.Name = category
	return series, nil
}
