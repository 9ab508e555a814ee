package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// cronParser accepts 5-field expressions and descriptors such as "@every 1h".
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Purger removes conversations idle for longer than maxAge.
type Purger interface {
	PurgeStale(ctx context.Context, maxAge time.Duration) (int64, error)
}

// Sweeper periodically purges abandoned conversations.
type Sweeper struct {
	cron    *cron.Cron
	purger  Purger
	maxAge  time.Duration
	timeout time.Duration
	logger  *zap.Logger
}

// NewSweeper schedules the purge job. It does not start until Start is called.
func NewSweeper(schedule string, maxAge time.Duration, purger Purger, logger *zap.Logger) (*Sweeper, error) {
	if maxAge <= 0 {
		return nil, fmt.Errorf("sweeper: max age must be positive")
	}
	s := &Sweeper{
		cron:    cron.New(cron.WithParser(cronParser)),
		purger:  purger,
		maxAge:  maxAge,
		timeout: time.Minute,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.RunOnce); err != nil {
		return nil, fmt.Errorf("sweeper: parse schedule %q: %w", schedule, err)
	}
	return s, nil
}

// RunOnce performs one sweep.
func (s *Sweeper) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	removed, err := s.purger.PurgeStale(ctx, s.maxAge)
	if err != nil {
		s.logger.Error("conversation sweep failed", zap.Error(err))
		return
	}
	if removed > 0 {
		s.logger.Info("stale conversations removed", zap.Int64("count", removed))
	}
}

// Start begins running the schedule in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
