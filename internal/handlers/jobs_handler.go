package handlers

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
)

// JobsHandler exposes the scheduled jobs
type JobsHandler struct {
	scheduler interfaces.SchedulerService
	logger    arbor.ILogger
}

// NewJobsHandler creates a new jobs handler
func NewJobsHandler(scheduler interfaces.SchedulerService, logger arbor.ILogger) *JobsHandler {
	return &JobsHandler{
		scheduler: scheduler,
		logger:    logger,
	}
}

// ListHandler handles GET /api/jobs
func (h *JobsHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	statuses := h.scheduler.GetAllJobStatuses()

	jobs := make([]*interfaces.JobStatus, 0, len(statuses))
	for _, status := range statuses {
		jobs = append(jobs, status)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"running": h.scheduler.IsRunning(),
		"jobs":    jobs,
	})
}

// EnableHandler handles POST /api/jobs/{name}/enable
func (h *JobsHandler) EnableHandler(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.scheduler.EnableJob, "enabled")
}

// DisableHandler handles POST /api/jobs/{name}/disable
func (h *JobsHandler) DisableHandler(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.scheduler.DisableJob, "disabled")
}

// TriggerHandler handles POST /api/jobs/{name}/trigger
func (h *JobsHandler) TriggerHandler(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.scheduler.TriggerJob, "triggered")
}

func (h *JobsHandler) apply(w http.ResponseWriter, r *http.Request, action func(name string) error, verb string) {
	name := chi.URLParam(r, "name")
	if _, err := h.scheduler.GetJobStatus(name); err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	if err := action(name); err != nil {
		h.logger.Warn().Err(err).Str("job_name", name).Msg("Job action failed")
		WriteError(w, http.StatusConflict, err.Error())
		return
	}

	status, _ := h.scheduler.GetJobStatus(name)
	WriteSuccess(w, map[string]interface{}{
		"message": "job " + name + " " + verb,
		"job":     status,
	})
}
