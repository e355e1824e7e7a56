package backup

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler drives automatic backups on a cron schedule and keeps the number
// of artifacts below a cap.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewScheduler registers an automatic backup job. schedule is a standard
// five-field cron expression; maxBackups <= 0 disables the cap.
func NewScheduler(m *Manager, schedule string, maxBackups int, logger *slog.Logger) (*Scheduler, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if _, err := m.Create(); err != nil {
			logger.Error("backup: scheduled create failed", slog.String("error", err.Error()))
			return
		}
		if maxBackups > 0 {
			if _, err := m.Cap(maxBackups); err != nil {
				logger.Warn("backup: cap sweep failed", slog.String("error", err.Error()))
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return &Scheduler{cron: c, logger: logger}, nil
}

// Start begins running scheduled jobs in their own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("backup: scheduler started")
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("backup: scheduler stopped")
}
