package session_test

import (
	"context"
	"errors"
	"math"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MegaGrindStone/playground-web-ui/internal/models"
	"github.com/MegaGrindStone/playground-web-ui/internal/session"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

type mockSender struct {
	mu     sync.Mutex
	events []models.Event
	err    error
}

type mockGenerator struct {
	result models.GenerateResult
	err    error

	requests chan models.GenerateRequest
	release  chan struct{}
}

type mockStore struct {
	messages    []models.Message
	settings    models.SamplingSettings
	hasSettings bool
	saves       int
	err         error
}

var fixedNow = time.Date(2026, time.October, 16, 15, 4, 5, 0, time.UTC)

var ignoreID = cmpopts.IgnoreFields(models.Message{}, "ID")

func validSettings() models.SamplingSettings {
	s := models.DefaultSettings()
	s.Model = "models/gemini-1.5-flash"
	return s
}

func newSession(sender *mockSender, opts ...session.Option) *session.Session {
	opts = append([]session.Option{session.WithClock(func() time.Time { return fixedNow })}, opts...)
	return session.New(sender, opts...)
}

func userMessage(raw string) models.Message {
	return models.Message{
		Role:          models.RoleUser,
		Content:       models.StripBrackets(raw),
		RawMessage:    raw,
		Timestamp:     fixedNow,
		DisplayMoment: models.FormatMoment(fixedNow),
	}
}

func modelMessage(raw, content string, loading bool) models.Message {
	return models.Message{
		Role:          models.RoleModel,
		Content:       content,
		RawMessage:    raw,
		Timestamp:     fixedNow,
		Loading:       loading,
		DisplayMoment: models.FormatMoment(fixedNow),
	}
}

func TestSubmitScenario(t *testing.T) {
	sender := &mockSender{}
	s := newSession(sender)

	if err := s.Submit(context.Background(), "Hello [world]", validSettings()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	want := []models.Message{
		userMessage("Hello [world]"),
		modelMessage("Hello [world]", "", true),
	}
	if diff := cmp.Diff(want, s.Messages(), ignoreID); diff != "" {
		t.Errorf("Messages() mismatch (-want +got):\n%s", diff)
	}
	if got := s.Messages()[0].Content; got != "Hello world" {
		t.Errorf("user content = %q, want %q", got, "Hello world")
	}

	sent := sender.sent()
	if len(sent) != 1 {
		t.Fatalf("sent %d events, want 1", len(sent))
	}
	wantEv := models.GenerateResponseEvent{
		Model:    "models/gemini-1.5-flash",
		Message:  "Hello [world]",
		Settings: validSettings(),
	}
	if diff := cmp.Diff(models.Event(wantEv), sent[0]); diff != "" {
		t.Errorf("sent event mismatch (-want +got):\n%s", diff)
	}
	if s.State() != session.StateAwaitingFirstChunk {
		t.Errorf("State() = %v, want %v", s.State(), session.StateAwaitingFirstChunk)
	}

	ctx := context.Background()
	s.HandleEvent(ctx, models.ResponseChunkEvent{Text: "Hi"})
	if s.State() != session.StateStreaming {
		t.Errorf("State() = %v, want %v", s.State(), session.StateStreaming)
	}
	s.HandleEvent(ctx, models.ResponseChunkEvent{Text: " there"})
	s.HandleEvent(ctx, models.ResponseCompletedEvent{})

	want[1] = modelMessage("Hello [world]", "Hi there", false)
	if diff := cmp.Diff(want, s.Messages(), ignoreID); diff != "" {
		t.Errorf("Messages() after stream mismatch (-want +got):\n%s", diff)
	}
	if s.State() != session.StateIdle {
		t.Errorf("State() = %v, want %v", s.State(), session.StateIdle)
	}
}

func TestSubmitRejected(t *testing.T) {
	invalid := validSettings()
	invalid.Temperature = 3
	notANumber := validSettings()
	notANumber.Temperature = math.NaN()

	tests := []struct {
		name     string
		prepare  func(*session.Session)
		raw      string
		settings models.SamplingSettings
		wantErr  error
	}{
		{
			name:     "Blank message",
			raw:      "   ",
			settings: validSettings(),
			wantErr:  session.ErrEmptyMessage,
		},
		{
			name:     "Invalid settings",
			raw:      "Hello",
			settings: invalid,
			wantErr:  session.ErrInvalidSettings,
		},
		{
			name:     "Temperature not a number",
			raw:      "Hello",
			settings: notANumber,
			wantErr:  session.ErrInvalidSettings,
		},
		{
			name:     "Missing model",
			raw:      "Hello",
			settings: models.DefaultSettings(),
			wantErr:  session.ErrInvalidSettings,
		},
		{
			name: "Generation outstanding",
			prepare: func(s *session.Session) {
				_ = s.Submit(context.Background(), "first", validSettings())
			},
			raw:      "second",
			settings: validSettings(),
			wantErr:  session.ErrGenerationInProgress,
		},
		{
			name: "Generation streaming",
			prepare: func(s *session.Session) {
				_ = s.Submit(context.Background(), "first", validSettings())
				s.HandleEvent(context.Background(), models.ResponseChunkEvent{Text: "partial"})
			},
			raw:      "second",
			settings: validSettings(),
			wantErr:  session.ErrGenerationInProgress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &mockSender{}
			s := newSession(sender)
			if tt.prepare != nil {
				tt.prepare(s)
			}
			before := s.Messages()
			sentBefore := len(sender.sent())

			err := s.Submit(context.Background(), tt.raw, tt.settings)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Submit() error = %v, want %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(before, s.Messages()); diff != "" {
				t.Errorf("Submit() mutated the log (-before +after):\n%s", diff)
			}
			if got := len(sender.sent()); got != sentBefore {
				t.Errorf("Submit() sent %d events, want none", got-sentBefore)
			}
		})
	}
}

func TestSubmitInvalidSettingsExposesFields(t *testing.T) {
	s := newSession(&mockSender{})

	err := s.Submit(context.Background(), "Hello", models.DefaultSettings())

	var verrs models.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("Submit() error = %v, want ValidationErrors", err)
	}
	if _, ok := verrs[models.FieldModel]; !ok {
		t.Errorf("ValidationErrors = %v, want model error", verrs)
	}
}

func TestSubmitAfterCompletion(t *testing.T) {
	sender := &mockSender{}
	s := newSession(sender)
	ctx := context.Background()

	for i := range 3 {
		if err := s.Submit(ctx, "turn", validSettings()); err != nil {
			t.Fatalf("Submit() #%d error = %v", i, err)
		}
		s.HandleEvent(ctx, models.ResponseCompletedEvent{})
	}

	if got := len(s.Messages()); got != 6 {
		t.Errorf("len(Messages()) = %d, want 6", got)
	}
	if got := len(sender.sent()); got != 3 {
		t.Errorf("sent %d events, want 3", got)
	}
	for i, m := range s.Messages() {
		wantRole := models.RoleUser
		if i%2 == 1 {
			wantRole = models.RoleModel
		}
		if m.Role != wantRole {
			t.Errorf("Messages()[%d].Role = %v, want %v", i, m.Role, wantRole)
		}
	}
}

func TestChunksConcatenateInOrder(t *testing.T) {
	tests := [][]string{
		{},
		{"single"},
		{"Hi", " there", ", how", " are", " you?"},
		{"", "empty chunks", "", " are fine"},
		{"multi\nline", "\n```go\nfmt.Println()\n```"},
	}

	for _, chunks := range tests {
		t.Run(strings.Join(chunks, "|"), func(t *testing.T) {
			s := newSession(&mockSender{})
			ctx := context.Background()
			if err := s.Submit(ctx, "prompt", validSettings()); err != nil {
				t.Fatalf("Submit() error = %v", err)
			}

			var want strings.Builder
			for _, c := range chunks {
				s.HandleEvent(ctx, models.ResponseChunkEvent{Text: c})
				want.WriteString(c)

				last := s.Messages()[len(s.Messages())-1]
				if !last.Loading {
					t.Fatalf("trailing message stopped loading after chunk %q", c)
				}
				if last.Content != want.String() {
					t.Fatalf("trailing content = %q, want %q", last.Content, want.String())
				}
			}

			s.HandleEvent(ctx, models.ResponseCompletedEvent{})
			last := s.Messages()[len(s.Messages())-1]
			if last.Loading || last.Content != want.String() || last.Error != nil {
				t.Errorf("trailing message after completion = %+v, want content %q", last, want.String())
			}
		})
	}
}

func TestResponseError(t *testing.T) {
	s := newSession(&mockSender{})
	ctx := context.Background()
	if err := s.Submit(ctx, "prompt", validSettings()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	s.HandleEvent(ctx, models.ResponseChunkEvent{Text: "some partial text"})
	s.HandleEvent(ctx, models.ResponseErrorEvent{Message: "quota exceeded", Raw: []byte(`{"message":"quota exceeded"}`)})

	msgs := s.Messages()
	if len(msgs) != 2 {
		t.Fatalf("len(Messages()) = %d, want 2", len(msgs))
	}
	last := msgs[1]
	if last.Loading {
		t.Error("trailing message should stop loading")
	}
	if last.Content != models.FailureContent {
		t.Errorf("trailing content = %q, want %q", last.Content, models.FailureContent)
	}
	wantErr := &models.MessageError{Message: "quota exceeded", Detail: []byte(`{"message":"quota exceeded"}`)}
	if diff := cmp.Diff(wantErr, last.Error); diff != "" {
		t.Errorf("trailing error mismatch (-want +got):\n%s", diff)
	}
	if msgs[0].Error != nil {
		t.Error("user message should never carry an error")
	}
}

func TestSendFailureRendersOnPlaceholder(t *testing.T) {
	sender := &mockSender{err: errors.New("channel is not open")}
	s := newSession(sender)

	if err := s.Submit(context.Background(), "Hello", validSettings()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	msgs := s.Messages()
	if len(msgs) != 2 {
		t.Fatalf("len(Messages()) = %d, want 2", len(msgs))
	}
	last := msgs[1]
	if last.Loading || last.Content != models.FailureContent {
		t.Errorf("placeholder = %+v, want failed", last)
	}
	if last.Error == nil || last.Error.Message != "channel is not open" {
		t.Errorf("placeholder error = %+v", last.Error)
	}
	if s.State() != session.StateIdle {
		t.Errorf("State() = %v, want idle so the user can resubmit", s.State())
	}
}

func TestClearQueue(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(context.Context, *session.Session)
	}{
		{name: "Empty log"},
		{
			name: "Idle with history",
			prepare: func(ctx context.Context, s *session.Session) {
				_ = s.Submit(ctx, "one", validSettings())
				s.HandleEvent(ctx, models.ResponseCompletedEvent{})
			},
		},
		{
			name: "Mid stream",
			prepare: func(ctx context.Context, s *session.Session) {
				_ = s.Submit(ctx, "one", validSettings())
				s.HandleEvent(ctx, models.ResponseChunkEvent{Text: "par"})
			},
		},
		{
			name: "After failure",
			prepare: func(ctx context.Context, s *session.Session) {
				_ = s.Submit(ctx, "one", validSettings())
				s.HandleEvent(ctx, models.ResponseErrorEvent{Message: "boom"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			sender := &mockSender{}
			s := newSession(sender)
			if tt.prepare != nil {
				tt.prepare(ctx, s)
			}

			s.ClearQueue(ctx)

			if got := s.Messages(); len(got) != 0 {
				t.Errorf("Messages() = %v, want empty", got)
			}
			sent := sender.sent()
			if len(sent) == 0 {
				t.Fatal("ClearQueue() sent nothing")
			}
			if _, ok := sent[len(sent)-1].(models.ClearQueueEvent); !ok {
				t.Errorf("last sent event = %#v, want ClearQueueEvent", sent[len(sent)-1])
			}
			if s.State() != session.StateIdle {
				t.Errorf("State() = %v, want idle", s.State())
			}
		})
	}
}

func TestOrphanEventsDropped(t *testing.T) {
	ctx := context.Background()
	s := newSession(&mockSender{})

	s.HandleEvent(ctx, models.ResponseChunkEvent{Text: "nobody asked"})
	s.HandleEvent(ctx, models.ResponseCompletedEvent{})
	if got := s.Messages(); len(got) != 0 {
		t.Fatalf("Messages() = %v, want empty", got)
	}

	if err := s.Submit(ctx, "one", validSettings()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	s.HandleEvent(ctx, models.ResponseChunkEvent{Text: "done"})
	s.HandleEvent(ctx, models.ResponseCompletedEvent{})

	s.HandleEvent(ctx, models.ResponseChunkEvent{Text: " late"})
	s.HandleEvent(ctx, models.ResponseErrorEvent{Message: "late"})

	last := s.Messages()[1]
	if last.Content != "done" || last.Loading || last.Error != nil {
		t.Errorf("completed message was mutated by late events: %+v", last)
	}
}

func TestWatch(t *testing.T) {
	ctx := context.Background()
	s := newSession(&mockSender{})

	var changes []session.Change
	cancel := s.Watch(func(c session.Change) {
		changes = append(changes, c)
	})

	_ = s.Submit(ctx, "Hi", validSettings())
	s.HandleEvent(ctx, models.ResponseChunkEvent{Text: "Hello"})
	s.HandleEvent(ctx, models.ResponseCompletedEvent{})
	s.ClearQueue(ctx)

	kinds := make([]session.ChangeKind, len(changes))
	for i, c := range changes {
		kinds[i] = c.Kind
	}
	wantKinds := []session.ChangeKind{
		session.ChangeAppended,
		session.ChangeAppended,
		session.ChangeUpdated,
		session.ChangeUpdated,
		session.ChangeCleared,
	}
	if !slices.Equal(kinds, wantKinds) {
		t.Fatalf("change kinds = %v, want %v", kinds, wantKinds)
	}
	if changes[0].Index != 0 || changes[1].Index != 1 || changes[2].Index != 1 {
		t.Errorf("change indexes = %d, %d, %d", changes[0].Index, changes[1].Index, changes[2].Index)
	}
	if changes[2].Message.Content != "Hello" || changes[3].Message.Loading {
		t.Errorf("updates carried %+v and %+v", changes[2].Message, changes[3].Message)
	}
	if changes[1].Message.ID != changes[3].Message.ID {
		t.Error("updates should refer to the placeholder's ID")
	}

	cancel()
	_ = s.Submit(ctx, "again", validSettings())
	if len(changes) != len(wantKinds) {
		t.Errorf("watcher called after cancel: %d changes", len(changes))
	}
}

func TestGeneratorPath(t *testing.T) {
	tests := []struct {
		name        string
		gen         *mockGenerator
		wantContent string
		wantErr     bool
	}{
		{
			name:        "Candidate text",
			gen:         newMockGenerator(candidates("Hi there"), nil),
			wantContent: "Hi there",
		},
		{
			name:        "No candidates",
			gen:         newMockGenerator(models.GenerateResult{}, nil),
			wantContent: models.NoCandidateContent,
		},
		{
			name:        "Call fails",
			gen:         newMockGenerator(models.GenerateResult{}, errors.New("502 bad gateway")),
			wantContent: models.FailureContent,
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &mockSender{}
			s := newSession(sender, session.WithGenerator(tt.gen))

			done := make(chan struct{})
			s.Watch(func(c session.Change) {
				if c.Kind == session.ChangeUpdated && !c.Message.Loading {
					close(done)
				}
			})

			if err := s.Submit(context.Background(), "Hello [there]", validSettings()); err != nil {
				t.Fatalf("Submit() error = %v", err)
			}

			req := <-tt.gen.requests
			if req.Message != "Hello [there]" || req.Model != validSettings().Model {
				t.Errorf("generator request = %+v", req)
			}
			if s.State() != session.StateAwaitingFirstChunk {
				t.Errorf("State() while awaiting = %v", s.State())
			}
			if err := s.Submit(context.Background(), "again", validSettings()); !errors.Is(err, session.ErrGenerationInProgress) {
				t.Errorf("Submit() while awaiting error = %v", err)
			}
			close(tt.gen.release)

			select {
			case <-done:
			case <-time.After(3 * time.Second):
				t.Fatal("generation result was never applied")
			}

			last := s.Messages()[1]
			if last.Loading || last.Content != tt.wantContent {
				t.Errorf("trailing message = %+v, want content %q", last, tt.wantContent)
			}
			if (last.Error != nil) != tt.wantErr {
				t.Errorf("trailing error = %+v, wantErr %v", last.Error, tt.wantErr)
			}
			if got := len(sender.sent()); got != 0 {
				t.Errorf("HTTP path sent %d channel events, want 0", got)
			}
		})
	}
}

func TestRun(t *testing.T) {
	s := newSession(&mockSender{})
	ctx := context.Background()
	if err := s.Submit(ctx, "prompt", validSettings()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	events := make(chan models.Event, 4)
	events <- models.ResponseStartedEvent{}
	events <- models.ResponseChunkEvent{Text: "a"}
	events <- models.ResponseChunkEvent{Text: "b"}
	events <- models.ResponseCompletedEvent{}
	close(events)

	if err := s.Run(ctx, events); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	last := s.Messages()[1]
	if last.Content != "ab" || last.Loading {
		t.Errorf("trailing message = %+v", last)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s := newSession(&mockSender{})
	ctx, cancel := context.WithCancel(context.Background())

	errs := make(chan error, 1)
	go func() {
		errs <- s.Run(ctx, make(chan models.Event))
	}()
	cancel()

	select {
	case err := <-errs:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestRunCancelsGeneration(t *testing.T) {
	gen := newMockGenerator(candidates("never"), nil)
	store := &mockStore{}
	s := newSession(&mockSender{}, session.WithGenerator(gen), session.WithStore(store))
	ctx, cancel := context.WithCancel(context.Background())

	errs := make(chan error, 1)
	go func() {
		errs <- s.Run(ctx, make(chan models.Event))
	}()

	if err := s.Submit(context.Background(), "prompt", validSettings()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	<-gen.requests
	cancel()

	select {
	case err := <-errs:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	// Run has returned, so the placeholder is already resolved and saved.
	last := s.Messages()[1]
	if last.Loading || last.Content != models.FailureContent || last.Error == nil {
		t.Errorf("trailing message = %+v, want failed", last)
	}
	if got := store.messages[1]; got.Loading {
		t.Errorf("stored trailing message = %+v, want resolved", got)
	}

	if err := s.Submit(context.Background(), "after stop", validSettings()); err != nil {
		t.Fatalf("Submit() after stop error = %v", err)
	}
	if got := s.Messages()[3]; got.Loading || got.Error == nil {
		t.Errorf("trailing message after stop = %+v, want failed", got)
	}
	select {
	case req := <-gen.requests:
		t.Errorf("generator called after stop with %+v", req)
	default:
	}
}

func TestResubscribe(t *testing.T) {
	sender := &mockSender{}
	s := newSession(sender)

	s.Resubscribe()
	s.Resubscribe()

	want := []models.Event{
		models.SubscribeEvent{Channel: "messages"},
		models.SubscribeEvent{Channel: "messages"},
	}
	if diff := cmp.Diff(want, sender.sent()); diff != "" {
		t.Errorf("sent mismatch (-want +got):\n%s", diff)
	}
}

func TestSettings(t *testing.T) {
	store := &mockStore{}
	s := newSession(&mockSender{}, session.WithStore(store))

	if diff := cmp.Diff(models.DefaultSettings(), s.Settings()); diff != "" {
		t.Errorf("initial Settings() mismatch (-want +got):\n%s", diff)
	}

	updated := validSettings()
	updated.TopK = 40
	s.UpdateSettings(context.Background(), updated)

	if diff := cmp.Diff(updated, s.Settings()); diff != "" {
		t.Errorf("Settings() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(updated, store.settings); diff != "" {
		t.Errorf("stored settings mismatch (-want +got):\n%s", diff)
	}
}

func TestPersistence(t *testing.T) {
	store := &mockStore{}
	s := newSession(&mockSender{}, session.WithStore(store))
	ctx := context.Background()

	_ = s.Submit(ctx, "Hi", validSettings())
	s.HandleEvent(ctx, models.ResponseChunkEvent{Text: "Hello"})

	if diff := cmp.Diff(s.Messages(), store.messages); diff != "" {
		t.Errorf("stored messages mismatch (-session +store):\n%s", diff)
	}

	s.ClearQueue(ctx)
	if len(store.messages) != 0 {
		t.Errorf("stored messages after clear = %v, want empty", store.messages)
	}
}

func TestRestore(t *testing.T) {
	stored := validSettings()
	stored.Temperature = 0.2

	store := &mockStore{
		messages: []models.Message{
			userMessage("old"),
			modelMessage("old", "old answer", false),
			userMessage("interrupted"),
			modelMessage("interrupted", "half", true),
		},
		settings:    stored,
		hasSettings: true,
	}
	s := newSession(&mockSender{}, session.WithStore(store))

	if err := s.Restore(context.Background()); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	msgs := s.Messages()
	if len(msgs) != 4 {
		t.Fatalf("len(Messages()) = %d, want 4", len(msgs))
	}
	if msgs[1].Content != "old answer" || msgs[1].Error != nil {
		t.Errorf("completed message changed on restore: %+v", msgs[1])
	}
	last := msgs[3]
	if last.Loading || last.Content != models.FailureContent || last.Error == nil {
		t.Errorf("interrupted message = %+v, want resolved as failed", last)
	}
	if s.State() != session.StateIdle {
		t.Errorf("State() = %v, want idle", s.State())
	}
	if diff := cmp.Diff(stored, s.Settings()); diff != "" {
		t.Errorf("Settings() mismatch (-want +got):\n%s", diff)
	}
	if store.saves == 0 {
		t.Error("resolved messages should be saved back")
	}
}

func TestRestoreError(t *testing.T) {
	store := &mockStore{err: errors.New("disk on fire")}
	s := newSession(&mockSender{}, session.WithStore(store))

	if err := s.Restore(context.Background()); err == nil {
		t.Error("Restore() should fail when the store fails")
	}
}

func (m *mockSender) Send(ev models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *mockSender) sent() []models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.events)
}

func newMockGenerator(result models.GenerateResult, err error) *mockGenerator {
	return &mockGenerator{
		result:   result,
		err:      err,
		requests: make(chan models.GenerateRequest, 1),
		release:  make(chan struct{}),
	}
}

func (m *mockGenerator) Generate(ctx context.Context, req models.GenerateRequest) (models.GenerateResult, error) {
	m.requests <- req
	select {
	case <-m.release:
		return m.result, m.err
	case <-ctx.Done():
		return models.GenerateResult{}, ctx.Err()
	}
}

func candidates(text string) models.GenerateResult {
	var c models.Candidate
	c.Content.Parts = append(c.Content.Parts, struct {
		Text string `json:"text"`
	}{Text: text})
	return models.GenerateResult{Candidates: []models.Candidate{c}}
}

func (m *mockStore) Messages(context.Context) ([]models.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	return slices.Clone(m.messages), nil
}

func (m *mockStore) SaveMessages(_ context.Context, messages []models.Message) error {
	if m.err != nil {
		return m.err
	}
	m.saves++
	m.messages = slices.Clone(messages)
	return nil
}

func (m *mockStore) Settings(context.Context) (models.SamplingSettings, bool, error) {
	if m.err != nil {
		return models.SamplingSettings{}, false, m.err
	}
	return m.settings, m.hasSettings, nil
}

func (m *mockStore) SaveSettings(_ context.Context, settings models.SamplingSettings) error {
	if m.err != nil {
		return m.err
	}
	m.settings = settings
	m.hasSettings = true
	return nil
}
