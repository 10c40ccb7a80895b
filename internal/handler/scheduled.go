package handler

import (
	"net/http"

	"github.com/steveluke1457/Mr-Bot/internal/scheduler"
)

// TaskLister lists pending one-shot tasks.
type TaskLister interface {
	Pending() []scheduler.TaskInfo
}

// JobCounter reports the number of registered periodic jobs.
type JobCounter interface {
	JobCount() int
}

// ScheduledResponse is the body of GET /scheduled.
type ScheduledResponse struct {
	Pending  []scheduler.TaskInfo `json:"pending"`
	CronJobs int                  `json:"cron_jobs"`
}

// ScheduledHandler exposes the scheduler state.
type ScheduledHandler struct {
	tasks TaskLister
	jobs  JobCounter
}

// NewScheduledHandler creates a scheduled-work handler.
func NewScheduledHandler(tasks TaskLister, jobs JobCounter) *ScheduledHandler {
	return &ScheduledHandler{tasks: tasks, jobs: jobs}
}

// List handles GET /api/v1/scheduled
func (h *ScheduledHandler) List(w http.ResponseWriter, r *http.Request) {
	resp := ScheduledResponse{Pending: h.tasks.Pending()}
	if resp.Pending == nil {
		resp.Pending = []scheduler.TaskInfo{}
	}
	if h.jobs != nil {
		resp.CronJobs = h.jobs.JobCount()
	}
	writeJSON(w, http.StatusOK, resp)
}
