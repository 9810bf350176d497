package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/1broseidon/unitydialog/internal/platform"
)

// ReconcileTarget is what the reconciler keeps in line with the window
// system. Both methods must be safe to call from the reconciler goroutine.
type ReconcileTarget interface {
	// SyncClients re-reads the managed window list and returns the windows
	// that had been missed closing.
	SyncClients() []platform.WindowID
	// Check returns every broken parent/transient link.
	Check() []error
}

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Reconciler periodically checks for state drift and corrects it.
type Reconciler struct {
	interval time.Duration
	target   ReconcileTarget
	logger   *slog.Logger

	// reported holds the problems already logged so a stuck link is not
	// repeated every pass.
	reported map[string]bool
}

// NewReconciler creates a new reconciler with the given configuration.
func NewReconciler(cfg ReconcilerConfig, target ReconcileTarget) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		interval: interval,
		target:   target,
		logger:   logger,
		reported: make(map[string]bool),
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			r.reconcile()
		}
	}
}

// reconcile performs a single reconciliation pass and returns the number of
// new problems found.
func (r *Reconciler) reconcile() int {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic recovered", "error", err)
		}
	}()

	for _, id := range r.target.SyncClients() {
		r.logger.Info("reconciler: dropped window missing from client list", "window", id)
	}

	current := make(map[string]bool)
	fresh := 0
	for _, err := range r.target.Check() {
		msg := err.Error()
		current[msg] = true
		if r.reported[msg] {
			continue
		}
		fresh++
		r.logger.Warn("reconciler: inconsistent dialog state", "problem", msg)
	}
	r.reported = current
	return fresh
}

// ReconcileNow triggers an immediate reconciliation pass.
func (r *Reconciler) ReconcileNow() int {
	return r.reconcile()
}
