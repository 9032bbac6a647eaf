package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/sartorproj/salescast/forecast"
	"github.com/sartorproj/salescast/timeseries"
)

// MonthValue is one month of a series in the export.
type MonthValue struct {
	Month string  `json:"month"`
	Value float64 `json:"value"`
}

// CategoryExport holds one forecast category for JSON export.
type CategoryExport struct {
	Category string       `json:"category"`
	Config   string       `json:"config"`
	D        int          `json:"d"`
	MAE      *float64     `json:"mae"`
	RMSE     *float64     `json:"rmse"`
	MAPE     *float64     `json:"mape"` // null when every actual is zero
	Cached   bool         `json:"cached,omitempty"`
	Backtest []MonthValue `json:"backtest"`
	Future   []MonthValue `json:"future"`
	Actual   []MonthValue `json:"actual"`
}

// SkipExport is a skipped category in the export.
type SkipExport struct {
	Category string `json:"category"`
	Reason   string `json:"reason"`
	Error    string `json:"error"`
}

// Export is the JSON document written by -output.
type Export struct {
	RunID   string           `json:"run_id"`
	Results []CategoryExport `json:"results"`
	Skipped []SkipExport     `json:"skipped"`
}

func buildExport(r *forecast.Report) *Export {
	out := &Export{
		RunID:   r.RunID,
		Results: []CategoryExport{},
		Skipped: []SkipExport{},
	}
	for _, category := range sortedResults(r) {
		res := r.Results[category]
		out.Results = append(out.Results, CategoryExport{
			Category: category,
			Config:   res.Model.Order.String(),
			D:        res.D,
			MAE:      finite(res.MAE),
			RMSE:     finite(res.RMSE),
			MAPE:     finite(res.MAPE),
			Cached:   res.Cached,
			Backtest: monthValues(res.Backtest),
			Future:   monthValues(res.Future),
			Actual:   monthValues(res.Actual),
		})
	}
	for _, s := range r.Skipped {
		out.Skipped = append(out.Skipped, SkipExport{
			Category: s.Category,
			Reason:   string(s.Reason),
			Error:    s.Err.Error(),
		})
	}
	return out
}

func writeExport(path string, r *forecast.Report) error {
	data, err := json.MarshalIndent(buildExport(r), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// sortedResults returns the forecast categories in name order.
func sortedResults(r *forecast.Report) []string {
	names := make([]string, 0, len(r.Results))
	for name := range r.Results {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// monthValues drops non-finite values, which JSON cannot carry.
func monthValues(s *timeseries.Series) []MonthValue {
	out := make([]MonthValue, 0, s.Len())
	for i, v := range s.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, MonthValue{Month: s.Timestamps[i].Format("2006-01"), Value: v})
	}
	return out
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func formatPercent(v float64) string {
	if p := finite(v); p != nil {
		return fmt.Sprintf("%.2f%%", *p)
	}
	return "n/a"
}
