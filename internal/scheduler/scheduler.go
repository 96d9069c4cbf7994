package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"GreenLine/internal/notifier"
	"GreenLine/internal/paper"
	"GreenLine/internal/recorder"
)

// Scheduler runs the paper job on a cron schedule and answers chat commands.
type Scheduler struct {
	Cron      *cron.Cron
	Job       *PaperJob
	Recorder  recorder.Recorder
	PauseFile string
	Ctx       context.Context
}

// NewScheduler creates a Scheduler whose cron expressions carry a seconds field and are
// evaluated in loc.
func NewScheduler(ctx context.Context, job *PaperJob, rec recorder.Recorder, pauseFile string, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		Job:       job,
		Recorder:  rec,
		PauseFile: pauseFile,
		Ctx:       ctx,
	}
}

// Register adds the daily paper run.
func (s *Scheduler) Register(paperCron string) error {
	if _, err := s.Cron.AddFunc(paperCron, s.paperTask); err != nil {
		return fmt.Errorf("register paper task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	for _, e := range s.Cron.Entries() {
		log.Info().Time("next", e.Next).Msg("scheduler started")
	}
}

// Stop stops the cron scheduler and waits for a running job.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunPaperNow executes the paper task immediately.
func (s *Scheduler) RunPaperNow() {
	s.paperTask()
}

func (s *Scheduler) paperTask() {
	log.Info().Msg("running paper task")
	if _, _, err := s.Job.Run(s.Ctx); err != nil {
		log.Error().Err(err).Msg("paper task")
	}
}

const helpText = "Commands:\n/status - trading state and last run\n/pause - force dry runs\n/resume - allow live orders\n/run - run paper mode now"

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	// "/status@MyBot" in group chats
	cmd := strings.SplitN(fields[0], "@", 2)[0]

	switch cmd {
	case "/pause":
		if err := paper.SetPaused(s.PauseFile, true); err != nil {
			return "pause failed: " + err.Error()
		}
		log.Warn().Msg("trading paused by command")
		return "Trading paused. Paper runs will not submit orders."
	case "/resume":
		if err := paper.SetPaused(s.PauseFile, false); err != nil {
			return "resume failed: " + err.Error()
		}
		log.Info().Msg("trading resumed by command")
		return "Trading resumed."
	case "/status":
		last, err := s.Recorder.LastPaperRun()
		if err != nil {
			return "status unavailable: " + err.Error()
		}
		return notifier.FormatStatus(paper.IsPaused(s.PauseFile), last)
	case "/run":
		go s.paperTask()
		return "Paper run started."
	default:
		return helpText
	}
}
