// Package worker runs the service's background loops
package worker

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Worker is a long-running background task
type Worker interface {
	Start(ctx context.Context) error
	Stop()
	Name() string
}

// Manager starts workers in order and stops them in reverse
type Manager struct {
	workers []Worker
	logger  *zap.Logger
}

// NewManager creates a worker manager
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger}
}

// Register adds a worker to the manager
func (m *Manager) Register(w Worker) {
	m.workers = append(m.workers, w)
}

// Start starts all registered workers. On failure the workers already
// started are stopped again.
func (m *Manager) Start(ctx context.Context) error {
	for i, w := range m.workers {
		m.logger.Info("Starting worker", zap.String("worker", w.Name()))
		if err := w.Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				m.workers[j].Stop()
			}
			return fmt.Errorf("failed to start worker %s: %w", w.Name(), err)
		}
	}
	return nil
}

// Stop stops all workers in reverse registration order
func (m *Manager) Stop() {
	for i := len(m.workers) - 1; i >= 0; i-- {
		w := m.workers[i]
		m.logger.Info("Stopping worker", zap.String("worker", w.Name()))
		w.Stop()
	}
}
