package ticket

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/steveluke1457/Mr-Bot/internal/model"
	"github.com/steveluke1457/Mr-Bot/pkg/logger"
	"github.com/steveluke1457/Mr-Bot/pkg/metrics"
)

// ReaperConfig configures the inactivity reaper.
type ReaperConfig struct {
	Interval      time.Duration
	IdleThreshold time.Duration
	// Grace is the delay between the inactivity notice and channel deletion.
	Grace  time.Duration
	Notice string
}

// DefaultReaperConfig returns an hourly sweep closing tickets idle for 12 hours.
func DefaultReaperConfig() ReaperConfig {
	return ReaperConfig{
		Interval:      time.Hour,
		IdleThreshold: 12 * time.Hour,
		Grace:         5 * time.Second,
		Notice:        "⏳ Ticket has been inactive for 12 hours and will now be closed.",
	}
}

// Reaper periodically closes tickets without recent activity.
type Reaper struct {
	manager *Manager
	cfg     ReaperConfig
	clock   clockwork.Clock
	logger  *logger.Logger

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// NewReaper creates a reaper over m.
func NewReaper(m *Manager, cfg ReaperConfig, clock clockwork.Clock, log *logger.Logger) *Reaper {
	return &Reaper{
		manager:   m,
		cfg:       cfg,
		clock:     clock,
		logger:    log.Named("reaper"),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Run sweeps on every interval tick. Blocks until ctx is done or Stop is called.
func (r *Reaper) Run(ctx context.Context) {
	defer close(r.stoppedCh)

	ticker := r.clock.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.logger.Info("reaper started",
		zap.Duration("interval", r.cfg.Interval),
		zap.Duration("idle_threshold", r.cfg.IdleThreshold),
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			r.logger.Info("reaper stopping")
			return
		case <-ticker.Chan():
			r.Sweep(ctx)
		}
	}
}

// Stop signals Run to return and waits for it.
func (r *Reaper) Stop() {
	close(r.stopCh)
	<-r.stoppedCh
}

// Sweep performs one pass and returns the tickets it closed.
func (r *Reaper) Sweep(ctx context.Context) []model.TicketSession {
	closed := r.manager.CloseIdle(ctx, r.clock.Now(), r.cfg.IdleThreshold, CloseOptions{
		Notice: r.cfg.Notice,
		Grace:  r.cfg.Grace,
		Reason: "inactive",
	})
	metrics.ReaperSweeps.Inc()

	if len(closed) > 0 {
		r.logger.Info("closed inactive tickets", zap.Int("count", len(closed)))
	}
	return closed
}
