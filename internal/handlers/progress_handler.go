package handlers

import (
	"fmt"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/ternarybob/scribe/internal/services/jira"
)

const defaultProgressLimit = 30

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ReportRenderer turns a component's history into a PDF document
type ReportRenderer interface {
	ProgressReport(component string, rows []*models.ProgressSnapshot) ([]byte, error)
}

// ProgressEntry is one summarized day
type ProgressEntry struct {
	Date    string `json:"date"`
	Summary string `json:"summary"`
}

// ProgressHandler serves component progress summaries
type ProgressHandler struct {
	storage interfaces.ProgressStorage
	reports ReportRenderer
	logger  arbor.ILogger
}

func NewProgressHandler(storage interfaces.ProgressStorage, reports ReportRenderer, logger arbor.ILogger) *ProgressHandler {
	return &ProgressHandler{
		storage: storage,
		reports: reports,
		logger:  logger,
	}
}

// SummariesHandler handles GET /api/progress/{component}?limit=n
func (h *ProgressHandler) SummariesHandler(w http.ResponseWriter, r *http.Request) {
	component := chi.URLParam(r, "component")
	limit := QueryInt(r, "limit", defaultProgressLimit)

	rows, err := h.storage.GetSummaries(r.Context(), component, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("component", component).Msg("Failed to load progress summaries")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	entries := make([]ProgressEntry, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		entries = append(entries, ProgressEntry{Date: rows[i].SnapshotDate, Summary: rows[i].Summary})
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"component": component,
		"summaries": entries,
		"table":     jira.SummaryTable(rows),
	})
}

// ReportHandler handles GET /api/progress/{component}/report.pdf
func (h *ProgressHandler) ReportHandler(w http.ResponseWriter, r *http.Request) {
	component := chi.URLParam(r, "component")

	rows, err := h.storage.GetAllGroupHistory(r.Context(), component)
	if err != nil {
		h.logger.Error().Err(err).Str("component", component).Msg("Failed to load progress history")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	pdfBytes, err := h.reports.ProgressReport(component, rows)
	if err != nil {
		h.logger.Error().Err(err).Str("component", component).Msg("Failed to render progress report")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	filename := unsafeFileChars.ReplaceAllString(component, "_") + "-progress.pdf"
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(pdfBytes)
}
