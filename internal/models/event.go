package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventName is the string tag that distinguishes channel envelopes.
type EventName string

// Outbound event names.
const (
	EventSubscribe        EventName = "subscribe"
	EventGenerateResponse EventName = "generate_response"
	EventClearQueue       EventName = "clear_queue"
)

// Inbound event names.
const (
	EventResponseStarted   EventName = "response_started"
	EventResponseChunk     EventName = "response_chunk"
	EventResponseCompleted EventName = "response_completed"
	EventResponseError     EventName = "response_error"
)

// MessagesChannel is the channel name the client subscribes to after every connection open.
const MessagesChannel = "messages"

// ErrUnknownEvent is returned by DecodeEvent for an envelope whose event name is not recognized.
var ErrUnknownEvent = errors.New("unknown event")

// Event is one of the typed channel events. Envelopes are decoded into an Event at the channel boundary, so
// the rest of the application never handles an untyped payload.
type Event interface {
	Name() EventName
}

// SubscribeEvent asks the backend to deliver events of the given channel on this connection.
type SubscribeEvent struct {
	Channel string `json:"channel"`
}

// GenerateResponseEvent requests a generation for Message using Model and the sampling Settings.
type GenerateResponseEvent struct {
	Model    string
	Message  string
	Settings SamplingSettings
}

// ClearQueueEvent asks the backend to drop its chat history.
type ClearQueueEvent struct{}

// ResponseStartedEvent is sent by the backend before the first chunk of a generation.
type ResponseStartedEvent struct{}

// ResponseChunkEvent carries one incremental fragment of generated text.
type ResponseChunkEvent struct {
	Text string
}

// ResponseCompletedEvent terminates a successful generation.
type ResponseCompletedEvent struct{}

// ResponseErrorEvent terminates a failed generation.
type ResponseErrorEvent struct {
	// Message is the human readable failure reason extracted from the payload.
	Message string
	// Raw is the payload exactly as received.
	Raw json.RawMessage
}

func (SubscribeEvent) Name() EventName         { return EventSubscribe }
func (GenerateResponseEvent) Name() EventName  { return EventGenerateResponse }
func (ClearQueueEvent) Name() EventName        { return EventClearQueue }
func (ResponseStartedEvent) Name() EventName   { return EventResponseStarted }
func (ResponseChunkEvent) Name() EventName     { return EventResponseChunk }
func (ResponseCompletedEvent) Name() EventName { return EventResponseCompleted }
func (ResponseErrorEvent) Name() EventName     { return EventResponseError }

type envelope struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// GenerationSettings is the wire form of SamplingSettings; the model travels next to it, not inside.
type GenerationSettings struct {
	Temperature    float64 `json:"temperature"`
	TopP           float64 `json:"topP"`
	TopK           int     `json:"topK"`
	CandidateCount *int    `json:"candidateCount,omitempty"`
}

// GenerateRequest is the payload of a generate_response event, and the body of the HTTP generate call.
type GenerateRequest struct {
	Model    string             `json:"model"`
	Message  string             `json:"message"`
	Settings GenerationSettings `json:"settings"`
}

// Request returns the wire payload of e.
func (e GenerateResponseEvent) Request() GenerateRequest {
	return GenerateRequest{
		Model:   e.Model,
		Message: e.Message,
		Settings: GenerationSettings{
			Temperature:    e.Settings.Temperature,
			TopP:           e.Settings.TopP,
			TopK:           e.Settings.TopK,
			CandidateCount: e.Settings.CandidateCount,
		},
	}
}

// EncodeEvent serializes ev into its {event, data} envelope.
func EncodeEvent(ev Event) ([]byte, error) {
	var data any
	switch e := ev.(type) {
	case SubscribeEvent:
		data = e
	case GenerateResponseEvent:
		data = e.Request()
	case ClearQueueEvent:
		data = struct{}{}
	case ResponseChunkEvent:
		data = e.Text
	case ResponseErrorEvent:
		if len(e.Raw) > 0 {
			data = e.Raw
		} else {
			data = map[string]string{"message": e.Message}
		}
	case ResponseStartedEvent, ResponseCompletedEvent:
		data = nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s data: %w", ev.Name(), err)
	}
	return json.Marshal(envelope{Event: ev.Name(), Data: raw})
}

// DecodeEvent parses an {event, data} envelope into its typed Event.
func DecodeEvent(b []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}

	switch env.Event {
	case EventResponseChunk:
		var text string
		if err := unmarshalData(env.Data, &text); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s data: %w", env.Event, err)
		}
		return ResponseChunkEvent{Text: text}, nil
	case EventResponseCompleted:
		return ResponseCompletedEvent{}, nil
	case EventResponseStarted:
		return ResponseStartedEvent{}, nil
	case EventResponseError:
		return ResponseErrorEvent{Message: errorMessage(env.Data), Raw: env.Data}, nil
	case EventSubscribe:
		var e SubscribeEvent
		if err := unmarshalData(env.Data, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s data: %w", env.Event, err)
		}
		return e, nil
	case EventGenerateResponse:
		var req GenerateRequest
		if err := unmarshalData(env.Data, &req); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s data: %w", env.Event, err)
		}
		return GenerateResponseEvent{
			Model:   req.Model,
			Message: req.Message,
			Settings: SamplingSettings{
				Model:          req.Model,
				Temperature:    req.Settings.Temperature,
				TopP:           req.Settings.TopP,
				TopK:           req.Settings.TopK,
				CandidateCount: req.Settings.CandidateCount,
			},
		}, nil
	case EventClearQueue:
		return ClearQueueEvent{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
}

func unmarshalData(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, v)
}

// errorMessage extracts a readable reason from a response_error payload, which the backend sends either as
// a plain string or as an object with a message field.
func errorMessage(data json.RawMessage) string {
	if len(data) == 0 || string(data) == "null" {
		return "unknown error"
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}

	var obj struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		if obj.Message != "" {
			return obj.Message
		}
		if obj.Detail != "" {
			return obj.Detail
		}
	}
	return string(data)
}
