// Package daemon coordinates the background services and enforces
// single-instance execution through a file lock.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"courtreel/internal/api"
	"courtreel/internal/config"
	"courtreel/internal/logging"
	"courtreel/internal/queue"
	"courtreel/internal/workflow"
)

// Daemon owns the queue store, workflow manager, and API server.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager
	server   *api.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	QueueDBPath  string
	LockFilePath string
	APIAddress   string
	Queue        queue.HealthSummary
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, manager *workflow.Manager, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || manager == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "courtreeld.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		workflow: manager,
		server:   api.NewServer(cfg, store, manager, logger),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches the workflow manager and
// API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another courtreel daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.server.Start(runCtx); err != nil {
		d.workflow.Stop()
		_ = d.lock.Unlock()
		cancel()
		return err
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.Stop()
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// APIAddress returns the bound API address once started.
func (d *Daemon) APIAddress() string {
	return d.server.Addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	summary, err := d.store.Health(ctx)
	if err != nil {
		d.logger.Warn("queue health check failed", logging.Error(err))
	}
	return Status{
		Running:      d.running.Load(),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		APIAddress:   d.server.Addr(),
		Queue:        summary,
	}
}
