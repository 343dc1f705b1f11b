package handlers

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"time"

	playgroundui "github.com/MegaGrindStone/playground-web-ui"
	"github.com/MegaGrindStone/playground-web-ui/internal/models"
	"github.com/MegaGrindStone/playground-web-ui/internal/session"
	"github.com/dustin/go-humanize"
	"github.com/tmaxmax/go-sse"
)

// Session is the chat transcript owner the handlers read from and dispatch user actions to.
type Session interface {
	Messages() []models.Message
	Settings() models.SamplingSettings
	UpdateSettings(ctx context.Context, settings models.SamplingSettings)
	Submit(ctx context.Context, rawText string, settings models.SamplingSettings) error
	ClearQueue(ctx context.Context)
	Watch(fn func(session.Change)) func()
}

// Backend provides the model catalogue and the stored data managed from the UI.
type Backend interface {
	Models(ctx context.Context) ([]models.ModelInfo, error)
	Tags(ctx context.Context) ([]models.Tag, error)
	Parts(ctx context.Context) ([]models.Part, error)
	DeletePart(ctx context.Context, name string) error
	DeleteAllParts(ctx context.Context) error
	UploadFile(ctx context.Context, name string, r io.Reader) error
	UploadRepo(ctx context.Context, path, branch string) error
}

// Renderer converts model output into HTML.
type Renderer interface {
	Render(src string) (template.HTML, error)
}

// Main handles the web interface: it renders pages from the session state, dispatches user actions to the
// session, and pushes every transcript change to connected browsers over server-sent events.
type Main struct {
	sseSrv    *sse.Server
	templates *template.Template

	session Session
	backend Backend
	logger  *slog.Logger

	unwatch func()
	changes *changeQueue
}

// SSE event types pushed to the browser.
var (
	messageSSEType = sse.Type("message")
	clearSSEType   = sse.Type("clear")
	closeSSEType   = sse.Type("close")
)

const errLoggerKey = "err"

// NewMain creates a new Main instance. It parses the HTML templates from the embedded filesystem and starts
// publishing the session's changes to the SSE server.
func NewMain(sess Session, backend Backend, renderer Renderer, logger *slog.Logger) (Main, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("module", "handlers"))

	funcs := template.FuncMap{
		"markdown": func(src string) template.HTML {
			h, err := renderer.Render(src)
			if err != nil {
				logger.Warn("Failed to render markdown", slog.String(errLoggerKey, err.Error()))
				return template.HTML(template.HTMLEscapeString(src))
			}
			return h
		},
		"tokens": func(n int) string {
			return humanize.Comma(int64(n))
		},
	}

	// We parse templates from three distinct directories to separate layout, pages, and partial views
	tmpl, err := template.New("").Funcs(funcs).ParseFS(
		playgroundui.TemplateFS,
		"templates/layout/*.html",
		"templates/pages/*.html",
		"templates/partials/*.html",
	)
	if err != nil {
		return Main{}, fmt.Errorf("failed to parse templates: %w", err)
	}

	m := Main{
		sseSrv:    &sse.Server{},
		templates: tmpl,
		session:   sess,
		backend:   backend,
		logger:    logger,
		changes:   newChangeQueue(),
	}
	go m.changes.run(m.publishChange)
	m.unwatch = sess.Watch(m.changes.push)

	return m, nil
}

// Shutdown gracefully terminates the Main instance's SSE server. It stops watching the session, broadcasts
// a close message to all connected clients and waits up to 5 seconds for connections to terminate. After the
// timeout, any remaining connections are forcefully closed.
func (m Main) Shutdown(ctx context.Context) error {
	m.unwatch()
	m.changes.stop()

	e := &sse.Message{Type: closeSSEType}
	// Browsers drop SSE events without data
	e.AppendData("bye")

	// We ignore the error here since we're shutting down anyway
	_ = m.sseSrv.Publish(e)

	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	return m.sseSrv.Shutdown(ctx)
}

// publishChange renders and broadcasts one session change. It runs on the change queue's goroutine.
func (m Main) publishChange(c session.Change) {
	e := &sse.Message{}

	switch c.Kind {
	case session.ChangeAppended, session.ChangeUpdated:
		var buf bytes.Buffer
		if err := m.templates.ExecuteTemplate(&buf, "message", c.Message); err != nil {
			m.logger.Error("Failed to render message",
				slog.String("messageID", c.Message.ID),
				slog.String(errLoggerKey, err.Error()))
			return
		}
		e.Type = messageSSEType
		e.AppendData(buf.String())
	case session.ChangeCleared:
		e.Type = clearSSEType
		e.AppendData("clear")
	default:
		return
	}

	if err := m.sseSrv.Publish(e); err != nil {
		m.logger.Error("Failed to publish change", slog.String(errLoggerKey, err.Error()))
	}
}
