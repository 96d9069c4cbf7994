package recorder

import (
	"time"

	"GreenLine/internal/model"
	"GreenLine/internal/paper"
	"GreenLine/internal/portfolio"
)

// PaperRunSummary is a stored paper run, as read back for status replies.
type PaperRunSummary struct {
	RunID      string
	RecordedAt time.Time
	SignalDate time.Time
	DryRun     bool
	Paused     bool
	Enter      int
	Exit       int
	Buys       int
	Sells      int
	Failed     int
}

// Recorder persists run history for later analysis.
type Recorder interface {
	RecordPaperRun(res *paper.Result) error
	RecordBacktest(rep *portfolio.Report, trades []model.TradeRecord) error
	LastPaperRun() (*PaperRunSummary, error)
	Close() error
}
