package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"GreenLine/internal/metrics"
	"GreenLine/internal/notifier"
	"GreenLine/internal/paper"
	"GreenLine/internal/recorder"
)

// PaperJob runs paper mode once and publishes the outcome to the recorder, the report file
// and the notifier.
type PaperJob struct {
	Runner     *paper.Runner
	Params     paper.Params
	Recorder   recorder.Recorder
	Notifier   notifier.Notifier // nil disables delivery
	ReportFile string

	mu sync.Mutex
}

// Run executes one invocation. Overlapping calls wait for the running one to finish.
func (j *PaperJob) Run(ctx context.Context) (*paper.Result, string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	started := time.Now()
	p := j.Params
	p.Now = started

	res, err := j.Runner.Run(ctx, p)
	metrics.RunDuration.WithLabelValues("paper").Observe(time.Since(started).Seconds())
	if err != nil {
		log.Error().Err(err).Msg("paper run failed")
		j.notify(ctx, "GreenLine paper run failed: "+err.Error())
		return nil, "", err
	}
	metrics.LastRun.WithLabelValues("paper").SetToCurrentTime()

	if err := j.Recorder.RecordPaperRun(res); err != nil {
		log.Error().Err(err).Str("run_id", res.RunID).Msg("record paper run")
	}

	summary := notifier.FormatPaperSummary(res)
	if j.ReportFile != "" {
		if err := writeReport(j.ReportFile, summary); err != nil {
			log.Error().Err(err).Str("path", j.ReportFile).Msg("write paper summary")
		}
	}
	j.notify(ctx, summary)
	return res, summary, nil
}

func (j *PaperJob) notify(ctx context.Context, text string) {
	if j.Notifier == nil {
		return
	}
	if err := j.Notifier.SendWithRetry(ctx, text, 3); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}

func writeReport(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}
