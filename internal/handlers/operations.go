package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/services/ingest"
	"github.com/ternarybob/scribe/internal/services/jira"
)

// Operation names used to report why an operation is unavailable
const (
	OperationReingest = "reingest"
	OperationChase    = "chase"
	OperationProgress = "progress"
)

// Reingester brings every scope of one source up to date
type Reingester interface {
	Source() string
	Reingest(ctx context.Context) ([]*ingest.Result, error)
}

// ChaseRunner runs one follow-up pass over the open tickets
type ChaseRunner interface {
	Chase(ctx context.Context) (*jira.ChaseResult, error)
}

// ProgressRunner ingests component history and writes the missing daily summaries
type ProgressRunner interface {
	Reingest(ctx context.Context) error
}

// OperationsHandler runs the long operations synchronously on request
type OperationsHandler struct {
	pipelines []Reingester
	chaser    ChaseRunner
	progress  ProgressRunner
	disabled  map[string]error
	logger    arbor.ILogger
}

// NewOperationsHandler creates the handler. chaser and progress may be nil when Jira is
// not configured. disabled maps an operation name to the reason it was left out at startup.
func NewOperationsHandler(pipelines []Reingester, chaser ChaseRunner, progress ProgressRunner, disabled map[string]error, logger arbor.ILogger) *OperationsHandler {
	return &OperationsHandler{
		pipelines: pipelines,
		chaser:    chaser,
		progress:  progress,
		disabled:  disabled,
		logger:    logger,
	}
}

// unavailable replies 503 with the startup reason for operation, or fallback
func (h *OperationsHandler) unavailable(w http.ResponseWriter, operation, fallback string) {
	message := fallback
	if err := h.disabled[operation]; err != nil {
		message = err.Error()
	}
	WriteError(w, http.StatusServiceUnavailable, message)
}

// ReingestHandler handles POST /reingress
func (h *OperationsHandler) ReingestHandler(w http.ResponseWriter, r *http.Request) {
	if len(h.pipelines) == 0 {
		h.unavailable(w, OperationReingest, "no document source is configured")
		return
	}

	started := time.Now()
	results := make(map[string][]*ingest.Result, len(h.pipelines))
	var errs []error

	for _, pipeline := range h.pipelines {
		sourceResults, err := pipeline.Reingest(r.Context())
		results[pipeline.Source()] = sourceResults
		if err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		h.logger.Error().Err(err).Dur("duration", time.Since(started)).Msg("Reingest finished with errors")
		status := http.StatusInternalServerError
		if errors.Is(err, ingest.ErrScopeBusy) {
			status = http.StatusConflict
		}
		WriteJSON(w, status, map[string]interface{}{
			"status":  "error",
			"error":   err.Error(),
			"results": results,
		})
		return
	}

	h.logger.Info().Dur("duration", time.Since(started)).Msg("Reingest complete")
	WriteSuccess(w, map[string]interface{}{"results": results})
}

// ChaseHandler handles POST /chase
func (h *OperationsHandler) ChaseHandler(w http.ResponseWriter, r *http.Request) {
	if h.chaser == nil {
		h.unavailable(w, OperationChase, "jira is not configured")
		return
	}

	result, err := h.chaser.Chase(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Chase failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteSuccess(w, map[string]interface{}{"result": result})
}

// ProgressHandler handles POST /progress
func (h *OperationsHandler) ProgressHandler(w http.ResponseWriter, r *http.Request) {
	if h.progress == nil {
		h.unavailable(w, OperationProgress, "jira is not configured")
		return
	}

	if err := h.progress.Reingest(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("Progress ingest failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteSuccess(w, nil)
}
