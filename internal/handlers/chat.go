package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/MegaGrindStone/playground-web-ui/internal/models"
	"github.com/MegaGrindStone/playground-web-ui/internal/session"
)

// HandleChats submits the user's message for generation. It expects a "message" form field and any number
// of "tags" fields, which are attached to the message as references.
//
// On success the response is empty: both new messages and every later update reach the browser through the
// SSE stream. Invalid settings re-render the settings panel with inline errors.
func (m Main) HandleChats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		m.logger.Error("Failed to parse form", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	msg := r.PostForm.Get("message")
	if strings.TrimSpace(msg) == "" {
		m.logger.Error("Message is required")
		http.Error(w, "Message is required", http.StatusBadRequest)
		return
	}

	settings := m.session.Settings()
	err := m.session.Submit(r.Context(), models.AttachTags(msg, r.PostForm["tags"]), settings)

	var verrs models.ValidationErrors
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, session.ErrEmptyMessage):
		http.Error(w, "Message is required", http.StatusBadRequest)
	case errors.Is(err, session.ErrGenerationInProgress):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &verrs):
		w.WriteHeader(http.StatusUnprocessableEntity)
		data := m.settingsData(r.Context(), settings, verrs)
		if err := m.templates.ExecuteTemplate(w, "settings", data); err != nil {
			m.logger.Error("Failed to render settings", slog.String(errLoggerKey, err.Error()))
		}
	default:
		m.logger.Error("Failed to submit message", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// HandleClear empties the transcript and the backend's chat history.
func (m Main) HandleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	m.session.ClearQueue(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// HandleSettings re-syncs the sampling settings from the settings form. The settings are stored even when
// invalid, so the form never loses what the user typed; the errors are rendered next to their fields and
// block the next submit.
func (m Main) HandleSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		m.logger.Error("Failed to parse form", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	settings, errs := parseSettings(r, m.session.Settings())
	m.session.UpdateSettings(r.Context(), settings)

	var verrs models.ValidationErrors
	if errors.As(settings.Validate(), &verrs) {
		for field, msg := range verrs {
			if _, ok := errs[field]; !ok {
				errs[field] = msg
			}
		}
	}
	if len(errs) == 0 {
		errs = nil
	}

	data := m.settingsData(r.Context(), settings, errs)
	if err := m.templates.ExecuteTemplate(w, "settings", data); err != nil {
		m.logger.Error("Failed to render settings", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// parseSettings applies the submitted form fields on top of current. A field that is absent keeps its
// value, one that cannot be parsed keeps its value and reports an error.
func parseSettings(r *http.Request, current models.SamplingSettings) (models.SamplingSettings, models.ValidationErrors) {
	s := current
	errs := models.ValidationErrors{}

	if _, ok := r.PostForm[models.FieldModel]; ok {
		s.Model = strings.TrimSpace(r.PostForm.Get(models.FieldModel))
	}

	parseFloat := func(field, label string, dst *float64) {
		if _, ok := r.PostForm[field]; !ok {
			return
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(r.PostForm.Get(field)), 64)
		if err != nil {
			errs[field] = label + " must be a number"
			return
		}
		*dst = v
	}
	parseFloat(models.FieldTemperature, "Temperature", &s.Temperature)
	parseFloat(models.FieldTopP, "Top P", &s.TopP)

	if _, ok := r.PostForm[models.FieldTopK]; ok {
		v, err := strconv.Atoi(strings.TrimSpace(r.PostForm.Get(models.FieldTopK)))
		if err != nil {
			errs[models.FieldTopK] = "Top K must be an integer"
		} else {
			s.TopK = v
		}
	}

	if _, ok := r.PostForm[models.FieldCandidateCount]; ok {
		raw := strings.TrimSpace(r.PostForm.Get(models.FieldCandidateCount))
		if raw == "" {
			s.CandidateCount = nil
		} else if v, err := strconv.Atoi(raw); err != nil {
			errs[models.FieldCandidateCount] = "Candidate count must be an integer"
		} else {
			s.CandidateCount = &v
		}
	}

	return s, errs
}
