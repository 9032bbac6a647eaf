// Package sales loads transaction records and turns them into per-category
// monthly series.
//
// Records come from CSV files (LoadCSV) or SQL databases (LoadSQL). Dates
// are kept as raw strings on the record and parsed when a series is built,
// so rows with unparseable dates survive loading and are dropped only by
// BuildMonthly:
//
//	ds, stats, err := sales.LoadCSV("superstore.csv", nil)
//	for _, category := range ds.Categories() {
//	    series, err := sales.BuildMonthly(ds, category)
//	    ...
//	}
package sales
