package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// cleanupService implements the CleanupService interface
type cleanupService struct {
	uowFactory UnitOfWorkFactory
	now        func() time.Time
}

// NewCleanupService creates a new cleanup service
func NewCleanupService(uowFactory UnitOfWorkFactory) CleanupService {
	return &cleanupService{
		uowFactory: uowFactory,
		now:        time.Now,
	}
}

// PurgeCanceledMatches deletes canceled tables created before now minus retention
func (s *cleanupService) PurgeCanceledMatches(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, fmt.Errorf("retention must be positive, got %s", retention)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	cutoff := s.now().Add(-retention)
	deleted, err := uow.CubeMatchRepository().DeleteCanceledBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete canceled matches: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if deleted > 0 {
		log.WithFields(log.Fields{
			"deleted": deleted,
			"cutoff":  cutoff,
		}).Info("Purged canceled cube matches")
	}
	return deleted, nil
}
