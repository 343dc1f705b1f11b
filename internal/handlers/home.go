package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"slices"

	"github.com/MegaGrindStone/playground-web-ui/internal/models"
)

type homePageData struct {
	// Messages are ordered newest first.
	Messages []models.Message
	Tags     []models.Tag
	Settings settingsData

	TagsError string
}

type settingsData struct {
	Settings models.SamplingSettings
	Models   []models.ModelInfo
	Errors   models.ValidationErrors

	ModelsError string
}

// HandleHome renders the chat page: the transcript, the input box with the attachable tags, and the
// settings panel.
func (m Main) HandleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	messages := m.session.Messages()
	slices.Reverse(messages)

	data := homePageData{
		Messages: messages,
		Settings: m.settingsData(r.Context(), m.session.Settings(), nil),
	}

	tags, err := m.backend.Tags(r.Context())
	if err != nil {
		m.logger.Warn("Failed to list tags", slog.String(errLoggerKey, err.Error()))
		data.TagsError = "Tags are unavailable"
	}
	data.Tags = tags

	if err := m.templates.ExecuteTemplate(w, "home.html", data); err != nil {
		m.logger.Error("Failed to render home", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// HandleSSE streams transcript changes to the browser.
func (m Main) HandleSSE(w http.ResponseWriter, r *http.Request) {
	m.sseSrv.ServeHTTP(w, r)
}

func (m Main) settingsData(ctx context.Context, settings models.SamplingSettings, errs models.ValidationErrors) settingsData {
	data := settingsData{
		Settings: settings,
		Errors:   errs,
	}

	ms, err := m.backend.Models(ctx)
	if err != nil {
		m.logger.Warn("Failed to list models", slog.String(errLoggerKey, err.Error()))
		data.ModelsError = "Models are unavailable"
	}
	data.Models = ms

	return data
}
