// Package scheduler runs deferred and periodic work for the bot.
package scheduler

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/steveluke1457/Mr-Bot/pkg/logger"
	"github.com/steveluke1457/Mr-Bot/pkg/metrics"
)

// TaskID identifies a scheduled task.
type TaskID uint64

// TaskInfo describes a pending task.
type TaskInfo struct {
	ID   TaskID    `json:"id"`
	Name string    `json:"name"`
	Due  time.Time `json:"due"`
}

type task struct {
	info  TaskInfo
	timer clockwork.Timer
}

// Delayed runs one-shot tasks after a delay measured on an injected clock.
// Pending tasks can be listed and cancelled.
type Delayed struct {
	clock  clockwork.Clock
	logger *logger.Logger

	mu      sync.Mutex
	nextID  TaskID
	tasks   map[TaskID]*task
	stopped bool
}

// NewDelayed creates a scheduler on clock.
func NewDelayed(clock clockwork.Clock, log *logger.Logger) *Delayed {
	return &Delayed{
		clock:  clock,
		logger: log,
		tasks:  make(map[TaskID]*task),
	}
}

// Schedule runs fn after delay. Scheduling on a stopped scheduler is a
// no-op and returns the zero TaskID.
func (d *Delayed) Schedule(name string, delay time.Duration, fn func()) TaskID {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		d.logger.Warn("task dropped, scheduler stopped", zap.String("task", name))
		return 0
	}

	d.nextID++
	id := d.nextID
	t := &task{info: TaskInfo{ID: id, Name: name, Due: d.clock.Now().Add(delay)}}
	d.tasks[id] = t
	metrics.ScheduledTasks.Inc()

	t.timer = d.clock.AfterFunc(delay, func() {
		if !d.claim(id) {
			return
		}
		d.run(name, fn)
	})

	return id
}

// claim removes a task that is about to run. It returns false when the task
// was cancelled in the meantime.
func (d *Delayed) claim(id TaskID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tasks[id]; !ok {
		return false
	}
	delete(d.tasks, id)
	metrics.ScheduledTasks.Dec()
	return true
}

func (d *Delayed) run(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("scheduled task panicked", zap.String("task", name), zap.Any("panic", r))
		}
	}()
	fn()
}

// Cancel stops a pending task. It returns false if the task already ran or
// does not exist.
func (d *Delayed) Cancel(id TaskID) bool {
	d.mu.Lock()
	t, ok := d.tasks[id]
	if ok {
		delete(d.tasks, id)
		metrics.ScheduledTasks.Dec()
	}
	d.mu.Unlock()

	if !ok {
		return false
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	return true
}

// Pending lists tasks that have not run yet, soonest first.
func (d *Delayed) Pending() []TaskInfo {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]TaskInfo, 0, len(d.tasks))
	for _, t := range d.tasks {
		out = append(out, t.info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Due.Equal(out[j].Due) {
			return out[i].ID < out[j].ID
		}
		return out[i].Due.Before(out[j].Due)
	})
	return out
}

// Stop cancels every pending task and rejects new ones.
func (d *Delayed) Stop() {
	d.mu.Lock()
	d.stopped = true
	tasks := d.tasks
	d.tasks = make(map[TaskID]*task)
	d.mu.Unlock()

	for _, t := range tasks {
		if t.timer != nil {
			t.timer.Stop()
		}
		metrics.ScheduledTasks.Dec()
	}
	if len(tasks) > 0 {
		d.logger.Info("pending tasks cancelled", zap.Int("count", len(tasks)))
	}
}
