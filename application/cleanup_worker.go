package application

import (
	"context"
	"fmt"
	"time"

	"cubeduel/service"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// CleanupWorker purges stale canceled tables on a cron schedule
type CleanupWorker struct {
	cleanup   service.CleanupService
	schedule  string
	retention time.Duration
}

// NewCleanupWorker creates a new cleanup worker
func NewCleanupWorker(cleanup service.CleanupService, schedule string, retention time.Duration) *CleanupWorker {
	return &CleanupWorker{
		cleanup:   cleanup,
		schedule:  schedule,
		retention: retention,
	}
}

// Start runs one purge immediately, registers the recurring job and returns
// a function that stops the scheduler
func (w *CleanupWorker) Start(ctx context.Context) (func(), error) {
	c := cron.New()

	if _, err := c.AddFunc(w.schedule, func() { w.runOnce(ctx) }); err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", w.schedule, err)
	}

	go w.runOnce(ctx)
	c.Start()
	log.WithFields(log.Fields{
		"schedule":  w.schedule,
		"retention": w.retention,
	}).Info("Cleanup worker started")

	return func() {
		<-c.Stop().Done()
		log.Info("Cleanup worker stopped")
	}, nil
}

func (w *CleanupWorker) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	purged, err := w.cleanup.PurgeCanceledMatches(ctx, w.retention)
	if err != nil {
		log.Errorf("Error purging canceled matches: %v", err)
		return
	}
	if purged > 0 {
		log.WithField("purged", purged).Info("Purged canceled cube matches")
	}
}
