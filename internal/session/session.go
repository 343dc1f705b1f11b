// Package session holds the chat transcript and reduces user actions and inbound channel events into
// transcript mutations. The log is append-only except for its trailing model message, which is mutated in
// place while it is loading.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/MegaGrindStone/playground-web-ui/internal/models"
)

// Sender delivers outbound events to the backend channel.
type Sender interface {
	Send(ev models.Event) error
}

// Generator runs a generation over the request/response HTTP path instead of the channel.
type Generator interface {
	Generate(ctx context.Context, req models.GenerateRequest) (models.GenerateResult, error)
}

// Store persists the transcript and the sampling settings.
type Store interface {
	Messages(ctx context.Context) ([]models.Message, error)
	SaveMessages(ctx context.Context, messages []models.Message) error
	Settings(ctx context.Context) (models.SamplingSettings, bool, error)
	SaveSettings(ctx context.Context, settings models.SamplingSettings) error
}

// State is the generation state derived from the trailing message.
type State int

const (
	// StateIdle means no generation is outstanding.
	StateIdle State = iota
	// StateAwaitingFirstChunk means the trailing model message is loading and has no text yet.
	StateAwaitingFirstChunk
	// StateStreaming means the trailing model message is loading and has received text.
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingFirstChunk:
		return "awaiting_first_chunk"
	case StateStreaming:
		return "streaming"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ChangeKind tells watchers how the log changed.
type ChangeKind int

const (
	// ChangeAppended means Message was appended at Index.
	ChangeAppended ChangeKind = iota
	// ChangeUpdated means the message at Index was mutated in place.
	ChangeUpdated
	// ChangeCleared means the log was emptied.
	ChangeCleared
)

// Change describes one mutation of the log.
type Change struct {
	Kind    ChangeKind
	Index   int
	Message models.Message
}

var (
	// ErrEmptyMessage is returned by Submit for blank input.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrInvalidSettings is returned by Submit when the settings fail validation. The returned error also
	// wraps the models.ValidationErrors.
	ErrInvalidSettings = errors.New("invalid settings")
	// ErrGenerationInProgress is returned by Submit while the trailing model message is still loading.
	ErrGenerationInProgress = errors.New("a generation is already in progress")
)

const (
	interruptedReason = "generation interrupted"
	errLoggerKey      = "err"
)

// Session is the single owner of the chat transcript and the current sampling settings.
//
// Every mutation happens under one lock, so each one is atomic with respect to the others regardless of
// whether it comes from a user action or an inbound event. Watchers are called with the lock held, in
// mutation order, and must not call back into the Session.
type Session struct {
	sender    Sender
	generator Generator
	store     Store
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	messages []models.Message
	settings models.SamplingSettings
	watchers map[int]func(Change)
	nextID   int

	// genCtx bounds HTTP generations; it is canceled when Run returns.
	genCtx    context.Context
	genCancel context.CancelFunc
	genWG     sync.WaitGroup
}

// Option configures a Session.
type Option func(*Session)

// WithGenerator routes generations through g instead of the channel. The terminal update is applied from
// the call's result.
func WithGenerator(g Generator) Option {
	return func(s *Session) {
		s.generator = g
	}
}

// WithStore persists every mutation to st.
func WithStore(st Store) Option {
	return func(s *Session) {
		s.store = st
	}
}

// WithLogger sets the logger used by the session.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithClock replaces the clock used to stamp messages.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithSettings sets the initial sampling settings.
func WithSettings(settings models.SamplingSettings) Option {
	return func(s *Session) {
		s.settings = settings
	}
}

// New creates an empty Session that sends its outbound events through sender.
func New(sender Sender, opts ...Option) *Session {
	s := &Session{
		sender:   sender,
		logger:   slog.Default(),
		now:      time.Now,
		settings: models.DefaultSettings(),
		watchers: map[int]func(Change){},
	}
	s.genCtx, s.genCancel = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("module", "session"))
	return s
}

// Restore loads the transcript and settings from the store. A restored message that is still loading has
// no producer left, so it is resolved as failed.
func (s *Session) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	messages, err := s.store.Messages(ctx)
	if err != nil {
		return fmt.Errorf("failed to load messages: %w", err)
	}
	settings, ok, err := s.store.Settings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	interrupted := false
	for i := range messages {
		if messages[i].Role == models.RoleModel && messages[i].Loading {
			messages[i].Loading = false
			messages[i].Content = models.FailureContent
			messages[i].Error = &models.MessageError{Message: interruptedReason}
			interrupted = true
		}
	}
	s.messages = messages
	if ok {
		s.settings = settings
	}
	if interrupted {
		s.persist(ctx)
	}
	return nil
}

// Messages returns a snapshot of the transcript.
func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.messages)
}

// State returns the generation state derived from the trailing message.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.loadingIndex()
	if idx < 0 {
		return StateIdle
	}
	if s.messages[idx].Content == "" {
		return StateAwaitingFirstChunk
	}
	return StateStreaming
}

// Settings returns the current sampling settings.
func (s *Session) Settings() models.SamplingSettings {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.settings
}

// UpdateSettings replaces the current sampling settings. Settings are stored as given, validation happens on
// Submit.
func (s *Session) UpdateSettings(ctx context.Context, settings models.SamplingSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings = settings
	if s.store == nil {
		return
	}
	if err := s.store.SaveSettings(ctx, settings); err != nil {
		s.logger.Error("Failed to save settings", slog.String(errLoggerKey, err.Error()))
	}
}

// Watch registers fn to be called for every change of the log. The returned function unregisters it.
func (s *Session) Watch(fn func(Change)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.watchers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers, id)
	}
}

// Submit starts a generation for rawText. It fails without touching the log or sending anything when the
// text is blank, the settings are invalid, or a generation is outstanding. Otherwise it appends the user
// message and the loading model placeholder, then requests the generation.
//
// A failure to deliver the request is not returned: it is rendered on the placeholder.
func (s *Session) Submit(ctx context.Context, rawText string, settings models.SamplingSettings) error {
	if strings.TrimSpace(rawText) == "" {
		return ErrEmptyMessage
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadingIndex() >= 0 {
		return ErrGenerationInProgress
	}

	now := s.now()
	user := models.NewMessage(models.RoleUser, models.StripBrackets(rawText), rawText, now)
	placeholder := models.NewMessage(models.RoleModel, "", rawText, now)
	placeholder.Loading = true

	s.messages = append(s.messages, user, placeholder)
	s.persist(ctx)
	s.notify(Change{Kind: ChangeAppended, Index: len(s.messages) - 2, Message: user})
	s.notify(Change{Kind: ChangeAppended, Index: len(s.messages) - 1, Message: placeholder})

	ev := models.GenerateResponseEvent{
		Model:    settings.Model,
		Message:  rawText,
		Settings: settings,
	}

	if s.generator != nil {
		if err := s.genCtx.Err(); err != nil {
			s.fail(ctx, models.MessageError{Message: err.Error()})
			return nil
		}
		s.genWG.Add(1)
		go s.generate(ev.Request())
		return nil
	}

	if err := s.sender.Send(ev); err != nil {
		s.logger.Warn("Failed to send generation request", slog.String(errLoggerKey, err.Error()))
		s.fail(ctx, models.MessageError{Message: err.Error()})
	}
	return nil
}

func (s *Session) generate(req models.GenerateRequest) {
	defer s.genWG.Done()

	ctx := s.genCtx
	res, err := s.generator.Generate(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.logger.Warn("Generation failed", slog.String(errLoggerKey, err.Error()))
		s.fail(ctx, models.MessageError{Message: err.Error()})
		return
	}

	text, ok := res.Text()
	if !ok {
		text = models.NoCandidateContent
	}
	s.updateTrailing(ctx, func(m *models.Message) {
		m.Content = text
		m.Loading = false
	})
}

// HandleEvent applies one inbound channel event to the trailing model message. Events that arrive while no
// model message is loading are dropped.
func (s *Session) HandleEvent(ctx context.Context, ev models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e := ev.(type) {
	case models.ResponseStartedEvent:
		s.logger.Debug("Response started")
	case models.ResponseChunkEvent:
		s.updateTrailing(ctx, func(m *models.Message) {
			m.Content += e.Text
		})
	case models.ResponseCompletedEvent:
		s.updateTrailing(ctx, func(m *models.Message) {
			m.Loading = false
		})
	case models.ResponseErrorEvent:
		s.logger.Warn("Backend reported a generation error", slog.String(errLoggerKey, e.Message))
		s.fail(ctx, models.MessageError{Message: e.Message, Detail: e.Raw})
	default:
		s.logger.Debug("Ignoring event", slog.String("event", string(ev.Name())))
	}
}

// Run reduces events until ctx is done or the stream is closed. Before returning it cancels the HTTP
// generations in flight and waits for their placeholders to resolve.
func (s *Session) Run(ctx context.Context, events <-chan models.Event) error {
	defer s.stopGenerations()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.HandleEvent(ctx, ev)
		}
	}
}

func (s *Session) stopGenerations() {
	// Taken under the lock so no Submit can start a generation between the cancel and the wait.
	s.mu.Lock()
	s.genCancel()
	s.mu.Unlock()

	s.genWG.Wait()
}

// ClearQueue empties the transcript and tells the backend to drop its history. It is allowed at any time,
// including mid-stream; it does not stop a generation the backend is still producing.
func (s *Session) ClearQueue(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = nil
	s.persist(ctx)
	s.notify(Change{Kind: ChangeCleared})

	if err := s.sender.Send(models.ClearQueueEvent{}); err != nil {
		s.logger.Warn("Failed to send clear queue", slog.String(errLoggerKey, err.Error()))
	}
}

// Resubscribe subscribes the current channel connection to the messages channel. It is meant to run on
// every connection open.
func (s *Session) Resubscribe() {
	if err := s.sender.Send(models.SubscribeEvent{Channel: models.MessagesChannel}); err != nil {
		s.logger.Warn("Failed to subscribe", slog.String(errLoggerKey, err.Error()))
	}
}

// loadingIndex returns the index of the trailing model message if it is loading, or -1.
func (s *Session) loadingIndex() int {
	if len(s.messages) == 0 {
		return -1
	}
	idx := len(s.messages) - 1
	if m := s.messages[idx]; m.Role != models.RoleModel || !m.Loading {
		return -1
	}
	return idx
}

func (s *Session) updateTrailing(ctx context.Context, fn func(*models.Message)) {
	idx := s.loadingIndex()
	if idx < 0 {
		s.logger.Warn("Dropping update, no model message is loading")
		return
	}

	fn(&s.messages[idx])
	s.persist(ctx)
	s.notify(Change{Kind: ChangeUpdated, Index: idx, Message: s.messages[idx]})
}

func (s *Session) fail(ctx context.Context, cause models.MessageError) {
	s.updateTrailing(ctx, func(m *models.Message) {
		m.Loading = false
		m.Content = models.FailureContent
		m.Error = &cause
	})
}

func (s *Session) persist(ctx context.Context) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveMessages(ctx, s.messages); err != nil {
		s.logger.Error("Failed to save messages", slog.String(errLoggerKey, err.Error()))
	}
}

func (s *Session) notify(c Change) {
	for _, fn := range s.watchers {
		fn(c)
	}
}
