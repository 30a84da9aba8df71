package service

import (
	"context"
	"time"

	"github.com/meditrack/meditrack-backend/pkg/actor"
	"github.com/meditrack/meditrack-backend/pkg/logger"
)

// ExpiryScheduler runs the expiry scan periodically in a background goroutine.
type ExpiryScheduler struct {
	scanner  *ExpiryScanner
	interval time.Duration
	logger   *logger.Logger
	cancel   context.CancelFunc
}

// NewExpiryScheduler creates an expiry scheduler
func NewExpiryScheduler(scanner *ExpiryScanner, interval time.Duration, log *logger.Logger) *ExpiryScheduler {
	return &ExpiryScheduler{
		scanner:  scanner,
		interval: interval,
		logger:   log,
	}
}

// Start starts the scheduler. An initial scan runs immediately, then one per
// interval until the context is cancelled or Stop is called.
func (s *ExpiryScheduler) Start(ctx context.Context) {
	// Scheduled scans run as the system actor, not any user session.
	ctx = actor.WithActor(ctx, actor.SystemActor())
	ctx, s.cancel = context.WithCancel(ctx)

	go func() {
		s.logger.Info().Dur("interval", s.interval).Msg("expiry scheduler started")

		s.runCycle(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("expiry scheduler stopped")
				return
			case <-ticker.C:
				s.runCycle(ctx)
			}
		}
	}()
}

// Stop stops the scheduler goroutine
func (s *ExpiryScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *ExpiryScheduler) runCycle(ctx context.Context) {
	start := time.Now()
	if err := s.scanner.ScanAll(ctx); err != nil {
		s.logger.Error().Err(err).Msg("expiry scan cycle failed")
		return
	}
	s.logger.Info().Dur("duration", time.Since(start)).Msg("expiry scan cycle completed")
}
