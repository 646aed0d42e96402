package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mbpp-digital/intake/internal/session"
)

// Reaper periodically removes sessions that have been idle past the timeout
type Reaper struct {
	sessions    *session.Store
	idleTimeout time.Duration
	interval    time.Duration
	logger      *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReaper creates a session reaper
func NewReaper(sessions *session.Store, idleTimeout, interval time.Duration, logger *zap.Logger) *Reaper {
	return &Reaper{
		sessions:    sessions,
		idleTimeout: idleTimeout,
		interval:    interval,
		logger:      logger,
	}
}

// Name implements Worker
func (r *Reaper) Name() string {
	return "session-reaper"
}

// Start begins the sweep loop
func (r *Reaper) Start(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.run(ctx)

	r.logger.Info("Session reaper started",
		zap.Duration("idle_timeout", r.idleTimeout),
		zap.Duration("interval", r.interval))
	return nil
}

// Stop ends the sweep loop and waits for it to finish
func (r *Reaper) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

func (r *Reaper) run(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *Reaper) sweep() {
	removed, err := r.sessions.SweepExpired(time.Now(), r.idleTimeout)
	if err != nil {
		r.logger.Error("Session sweep failed", zap.Error(err))
		return
	}
	if removed > 0 {
		r.logger.Info("Session sweep completed", zap.Int64("removed", removed))
	}
}
