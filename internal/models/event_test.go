package models_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/MegaGrindStone/playground-web-ui/internal/models"
	"github.com/google/go-cmp/cmp"
)

func TestEncodeEvent(t *testing.T) {
	tests := []struct {
		name string
		ev   models.Event
		want string
	}{
		{
			name: "Subscribe",
			ev:   models.SubscribeEvent{Channel: models.MessagesChannel},
			want: `{"event":"subscribe","data":{"channel":"messages"}}`,
		},
		{
			name: "Clear queue",
			ev:   models.ClearQueueEvent{},
			want: `{"event":"clear_queue","data":{}}`,
		},
		{
			name: "Generate response",
			ev: models.GenerateResponseEvent{
				Model:   "models/gemini-pro",
				Message: "Hello [world]",
				Settings: models.SamplingSettings{
					Model:       "models/gemini-pro",
					Temperature: 1,
					TopP:        0.95,
					TopK:        3,
				},
			},
			want: `{"event":"generate_response","data":{"model":"models/gemini-pro","message":"Hello [world]",` +
				`"settings":{"temperature":1,"topP":0.95,"topK":3}}}`,
		},
		{
			name: "Generate response with candidate count",
			ev: models.GenerateResponseEvent{
				Model:    "m",
				Message:  "x",
				Settings: models.SamplingSettings{CandidateCount: intPtr(2)},
			},
			want: `{"event":"generate_response","data":{"model":"m","message":"x",` +
				`"settings":{"temperature":0,"topP":0,"topK":0,"candidateCount":2}}}`,
		},
		{
			name: "Chunk",
			ev:   models.ResponseChunkEvent{Text: "Hi"},
			want: `{"event":"response_chunk","data":"Hi"}`,
		},
		{
			name: "Completed",
			ev:   models.ResponseCompletedEvent{},
			want: `{"event":"response_completed","data":null}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := models.EncodeEvent(tt.ev)
			if err != nil {
				t.Fatalf("EncodeEvent() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("EncodeEvent() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    models.Event
		wantErr error
	}{
		{
			name: "Chunk",
			in:   `{"event":"response_chunk","data":"Hi"}`,
			want: models.ResponseChunkEvent{Text: "Hi"},
		},
		{
			name: "Completed without data",
			in:   `{"event":"response_completed"}`,
			want: models.ResponseCompletedEvent{},
		},
		{
			name: "Completed with null data",
			in:   `{"event":"response_completed","data":null}`,
			want: models.ResponseCompletedEvent{},
		},
		{
			name: "Started",
			in:   `{"event":"response_started","data":null}`,
			want: models.ResponseStartedEvent{},
		},
		{
			name: "Error as string",
			in:   `{"event":"response_error","data":"quota exceeded"}`,
			want: models.ResponseErrorEvent{Message: "quota exceeded", Raw: json.RawMessage(`"quota exceeded"`)},
		},
		{
			name: "Error as object",
			in:   `{"event":"response_error","data":{"message":"bad model"}}`,
			want: models.ResponseErrorEvent{Message: "bad model", Raw: json.RawMessage(`{"message":"bad model"}`)},
		},
		{
			name: "Error as other object",
			in:   `{"event":"response_error","data":{"code":7}}`,
			want: models.ResponseErrorEvent{Message: `{"code":7}`, Raw: json.RawMessage(`{"code":7}`)},
		},
		{
			name:    "Unknown event",
			in:      `{"event":"something_else","data":{}}`,
			wantErr: models.ErrUnknownEvent,
		},
		{
			name: "Chunk with wrong payload",
			in:   `{"event":"response_chunk","data":{"text":"Hi"}}`,
		},
		{
			name: "Not JSON",
			in:   `nope`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := models.DecodeEvent([]byte(tt.in))
			if tt.want == nil {
				if err == nil {
					t.Fatalf("DecodeEvent() = %#v, want error", got)
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Errorf("DecodeEvent() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeEvent() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("DecodeEvent() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGenerateResponseRoundTrip(t *testing.T) {
	ev := models.GenerateResponseEvent{
		Model:   "models/gemini-pro",
		Message: "Hello [world]",
		Settings: models.SamplingSettings{
			Model:          "models/gemini-pro",
			Temperature:    0.4,
			TopP:           0.9,
			TopK:           40,
			CandidateCount: intPtr(1),
		},
	}

	b, err := models.EncodeEvent(ev)
	if err != nil {
		t.Fatalf("EncodeEvent() error = %v", err)
	}
	got, err := models.DecodeEvent(b)
	if err != nil {
		t.Fatalf("DecodeEvent() error = %v", err)
	}
	if diff := cmp.Diff(models.Event(ev), got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
