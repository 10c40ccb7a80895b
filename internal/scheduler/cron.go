package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/steveluke1457/Mr-Bot/pkg/logger"
)

// Cron runs named housekeeping jobs on cron schedules.
type Cron struct {
	mu     sync.Mutex
	cron   *cron.Cron
	jobs   map[string]cron.EntryID
	logger *logger.Logger
}

// NewCron creates an idle cron runner.
func NewCron(log *logger.Logger) *Cron {
	return &Cron{
		cron:   cron.New(),
		jobs:   make(map[string]cron.EntryID),
		logger: log,
	}
}

// AddJob registers fn under name. spec is a standard 5-field expression or a
// descriptor such as "@every 10m". Re-adding a name replaces the old job.
func (c *Cron) AddJob(name, spec string, fn func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, err := c.cron.AddFunc(spec, func() {
		c.logger.Debug("cron job fired", zap.String("job", name))
		fn()
	})
	if err != nil {
		return fmt.Errorf("scheduler: invalid schedule %q for %s: %w", spec, name, err)
	}

	if old, ok := c.jobs[name]; ok {
		c.cron.Remove(old)
	}
	c.jobs[name] = id
	c.logger.Info("cron job registered", zap.String("job", name), zap.String("schedule", spec))
	return nil
}

// RemoveJob unregisters a job.
func (c *Cron) RemoveJob(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.jobs[name]; ok {
		c.cron.Remove(id)
		delete(c.jobs, name)
	}
}

// JobCount returns the number of registered jobs.
func (c *Cron) JobCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.jobs)
}

// Start runs the jobs until ctx is cancelled.
func (c *Cron) Start(ctx context.Context) error {
	c.cron.Start()
	c.logger.Info("cron started")

	<-ctx.Done()
	<-c.cron.Stop().Done()
	c.logger.Info("cron stopped")
	return ctx.Err()
}
