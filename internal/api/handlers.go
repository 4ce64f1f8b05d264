package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aleister1102/dataspy/internal/common"
	"github.com/aleister1102/dataspy/internal/config"
	"github.com/aleister1102/dataspy/internal/datastore"
	"github.com/aleister1102/dataspy/internal/models"
	"github.com/go-chi/chi/v5"
)

const maxRequestBody = 1 << 20

// OutcomeView is the JSON shape of a check outcome.
type OutcomeView struct {
	TaskID     string              `json:"task_id"`
	Status     models.CheckStatus  `json:"status"`
	Failure    models.FailureKind  `json:"failure,omitempty"`
	Error      string              `json:"error,omitempty"`
	Event      *models.ChangeEvent `json:"event,omitempty"`
	Snapshot   *models.Snapshot    `json:"snapshot,omitempty"`
	StartedAt  time.Time           `json:"started_at"`
	DurationMs int64               `json:"duration_ms"`
}

func newOutcomeView(o models.CheckOutcome) OutcomeView {
	v := OutcomeView{
		TaskID:     o.TaskID,
		Status:     o.Status,
		Failure:    o.ErrKind,
		Event:      o.Event,
		Snapshot:   o.Snapshot,
		StartedAt:  o.StartedAt,
		DurationMs: o.Duration.Milliseconds(),
	}
	if o.Err != nil {
		v.Error = o.Err.Error()
	}
	return v
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	enabledOnly := r.URL.Query().Get("enabled") == "true"
	tasks := s.monitor.ListTasks(enabledOnly)
	views := make([]models.TaskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, models.NewTaskView(t))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.monitor.GetTask(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewTaskView(task))
}

func (s *Server) handleUpsertTask(w http.ResponseWriter, r *http.Request) {
	var spec models.TaskSpec
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		s.writeError(w, common.NewValidationError("body", nil, "invalid JSON: "+err.Error()))
		return
	}
	if err := config.ValidateTaskSpec(spec); err != nil {
		s.writeError(w, common.NewValidationError("task", spec.ID, err.Error()))
		return
	}

	task, err := spec.ToTask(s.now())
	if err != nil {
		s.writeError(w, common.NewValidationError("task", spec.ID, err.Error()))
		return
	}
	if err := s.monitor.AddTask(r.Context(), task); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.NewTaskView(task))
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.monitor.RemoveTask(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCheckTask(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.monitor.CheckNow(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOutcomeView(outcome))
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", datastore.DefaultEventLimit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	events, err := s.monitor.GetEvents(r.Context(), r.URL.Query().Get("task_id"), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleExportEvents(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "export is not enabled"})
		return
	}
	q := datastore.EventQuery{TaskID: r.URL.Query().Get("task_id")}
	if since := r.URL.Query().Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			s.writeError(w, common.NewValidationError("since", since, "must be RFC 3339"))
			return
		}
		q.Since = t
	}
	limit, err := queryInt(r, "limit", -1)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if limit == 0 {
		limit = -1
	}
	q.Limit = limit

	w.Header().Set("Content-Type", "application/vnd.apache.parquet")
	w.Header().Set("Content-Disposition", `attachment; filename="events.parquet"`)
	n, err := s.exporter.Export(r.Context(), w, q)
	if err != nil {
		// headers are already sent; the truncated body is the only signal left
		s.logger.Error().Err(err).Msg("Event export failed")
		return
	}
	s.logger.Debug().Int("rows", n).Msg("Events exported")
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.monitor.Stats())
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	var validationErr *common.ValidationError
	switch {
	case errors.Is(err, models.ErrRecordNotFound), errors.Is(err, common.ErrNotFound):
		code = http.StatusNotFound
	case errors.As(err, &validationErr):
		code = http.StatusBadRequest
	}
	if code == http.StatusInternalServerError {
		s.logger.Error().Err(err).Msg("Request failed")
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, common.NewValidationError(key, raw, "must be a non-negative integer")
	}
	return v, nil
}
