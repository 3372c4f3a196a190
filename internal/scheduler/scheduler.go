// Package scheduler runs the background expiry sweep. Key TTLs already
// guarantee eventual cleanup; the sweep flips lingering records to EXPIRED so
// readers see the status change before the store drops them.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/bidhall/bidhall/internal/logger"
	"github.com/bidhall/bidhall/internal/registry"
)

type Scheduler struct {
	sched  gocron.Scheduler
	logger *logger.Logger
}

func New(reg registry.Service, interval time.Duration, log *logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.Nop()
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			marked, appErr := reg.MarkExpired(ctx)
			if appErr != nil {
				log.Error("expiry sweep failed", "error", appErr)
				return
			}
			if marked > 0 {
				log.Info("expiry sweep completed", "marked", marked)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	return &Scheduler{sched: sched, logger: log}, nil
}

func (s *Scheduler) Start() {
	s.sched.Start()
	s.logger.Info("expiry scheduler started")
}

func (s *Scheduler) Stop() error {
	return s.sched.Shutdown()
}
