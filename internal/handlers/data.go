package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MegaGrindStone/playground-web-ui/internal/models"
)

type dataPageData struct {
	Parts []models.Part
	Error string
}

const (
	maxUploadSize     = 512 << 20
	defaultRepoBranch = "main"
)

var errBadRequest = errors.New("bad request")

// HandleData renders the page listing the files and repositories stored by the backend.
func (m Main) HandleData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	m.renderData(w, r, http.StatusOK, "")
}

// HandleUploadFile forwards the uploaded "file" form field to the backend.
func (m Main) HandleUploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	m.handleDataAction(w, r, func(r *http.Request) error {
		f, header, err := r.FormFile("file")
		if err != nil {
			return fmt.Errorf("%w: %w", errBadRequest, err)
		}
		defer f.Close()

		return m.backend.UploadFile(r.Context(), header.Filename, f)
	})
}

// HandleUploadRepo asks the backend to import a code repository.
func (m Main) HandleUploadRepo(w http.ResponseWriter, r *http.Request) {
	m.handleDataAction(w, r, func(r *http.Request) error {
		path := strings.TrimSpace(r.FormValue("repoPath"))
		if path == "" {
			return fmt.Errorf("%w: repository path is required", errBadRequest)
		}
		branch := strings.TrimSpace(r.FormValue("repoBranch"))
		if branch == "" {
			branch = defaultRepoBranch
		}

		return m.backend.UploadRepo(r.Context(), path, branch)
	})
}

// HandleDeletePart deletes the stored part named by the "name" form field.
func (m Main) HandleDeletePart(w http.ResponseWriter, r *http.Request) {
	m.handleDataAction(w, r, func(r *http.Request) error {
		name := r.FormValue("name")
		if name == "" {
			return fmt.Errorf("%w: part name is required", errBadRequest)
		}

		return m.backend.DeletePart(r.Context(), name)
	})
}

// HandleDeleteAllParts deletes every stored part.
func (m Main) HandleDeleteAllParts(w http.ResponseWriter, r *http.Request) {
	m.handleDataAction(w, r, func(r *http.Request) error {
		return m.backend.DeleteAllParts(r.Context())
	})
}

// handleDataAction runs action for a POST request and redirects back to the data page. A failed action
// re-renders the page with the error instead.
func (m Main) handleDataAction(w http.ResponseWriter, r *http.Request, action func(*http.Request) error) {
	if r.Method != http.MethodPost {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := action(r); err != nil {
		m.logger.Error("Data action failed",
			slog.String("path", r.URL.Path),
			slog.String(errLoggerKey, err.Error()))

		status := http.StatusBadGateway
		if errors.Is(err, errBadRequest) {
			status = http.StatusBadRequest
		}
		m.renderData(w, r, status, err.Error())
		return
	}

	http.Redirect(w, r, "/data", http.StatusSeeOther)
}

func (m Main) renderData(w http.ResponseWriter, r *http.Request, status int, errMsg string) {
	data := dataPageData{Error: errMsg}

	parts, err := m.backend.Parts(r.Context())
	if err != nil {
		m.logger.Warn("Failed to list parts", slog.String(errLoggerKey, err.Error()))
		if data.Error == "" {
			data.Error = err.Error()
		}
	}
	data.Parts = parts

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := m.templates.ExecuteTemplate(w, "data.html", data); err != nil {
		m.logger.Error("Failed to render data page", slog.String(errLoggerKey, err.Error()))
	}
}
