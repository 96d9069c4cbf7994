package recorder

import (
	"GreenLine/internal/model"
	"GreenLine/internal/paper"
	"GreenLine/internal/portfolio"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordPaperRun(_ *paper.Result) error { return nil }
func (n *NoopRecorder) RecordBacktest(_ *portfolio.Report, _ []model.TradeRecord) error {
	return nil
}
func (n *NoopRecorder) LastPaperRun() (*PaperRunSummary, error) { return nil, nil }
func (n *NoopRecorder) Close() error                             { return nil }
