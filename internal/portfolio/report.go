package portfolio

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Report is the persisted summary of one backtest run.
type Report struct {
	RunID          string    `json:"run_id"`
	GeneratedAt    time.Time `json:"generated_at"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Symbols        int       `json:"symbols"`
	InitialCapital float64   `json:"initial_capital"`
	Slippage       float64   `json:"slippage"`
	Stats          Stats     `json:"stats"`
}

// NewReport builds a report for a finished simulation.
func NewReport(runID string, symbols int, r *Result) *Report {
	rep := &Report{
		RunID:          runID,
		Symbols:        symbols,
		InitialCapital: r.Params.InitialCapital,
		Slippage:       r.Params.Slippage,
		Stats:          Summarize(r),
	}
	if len(r.Curve) > 0 {
		rep.Start = r.Curve[0].Date
		rep.End = r.Curve[len(r.Curve)-1].Date
	}
	return rep
}

// LoadReport reads a report from a JSON file.
func LoadReport(filePath string) (*Report, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

// SaveReport writes the report to a JSON file.
func SaveReport(filePath string, rep *Report) error {
	rep.GeneratedAt = time.Now()
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}
