package backup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"kinobot/internal/logging"
)

// snapshotTimeout bounds one scheduled snapshot.
const snapshotTimeout = 2 * time.Minute

// Scheduler runs Snapshot on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewScheduler registers svc.Snapshot under schedule (standard five-field
// cron syntax or a descriptor such as "@daily").
func NewScheduler(svc *Service, schedule string, logger *slog.Logger) (*Scheduler, error) {
	logger = logging.NewComponentLogger(logger, "backup")
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelWarn))
	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger),
		cron.SkipIfStillRunning(cronLogger),
	))
	if _, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
		defer cancel()
		_, _ = svc.Snapshot(ctx)
	}); err != nil {
		return nil, fmt.Errorf("backup schedule %q: %w", schedule, err)
	}
	return &Scheduler{cron: c, logger: logger}, nil
}

// Start begins running scheduled snapshots in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	if entries := s.cron.Entries(); len(entries) > 0 {
		s.logger.Info("backup schedule active",
			logging.String("next_run", entries[0].Next.Format(time.RFC3339)),
			logging.String(logging.FieldEventType, "backup_schedule_started"),
		)
	}
}

// Stop prevents new runs and waits for a running snapshot to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
