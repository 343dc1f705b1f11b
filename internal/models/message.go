package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Message represents one conversational turn in the chat transcript. A model message under construction
// carries the concatenation of every streamed chunk received so far in Content, and stays Loading until a
// terminal event resolves it.
type Message struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`

	// Content is the display text. For user messages it is RawMessage with bracket characters removed.
	Content string `json:"content"`
	// RawMessage is the original, unmodified user input that produced this turn.
	RawMessage string    `json:"rawMessage"`
	Timestamp  time.Time `json:"timestamp"`

	Loading bool          `json:"loading"`
	Error   *MessageError `json:"error,omitempty"`

	// DisplayMoment is formatted once at creation and never recomputed.
	DisplayMoment string `json:"moment"`
}

// MessageError is the failure payload attached to a failed model turn.
type MessageError struct {
	Message string `json:"message"`
	// Detail holds the raw payload reported by the backend, if any.
	Detail json.RawMessage `json:"detail,omitempty"`
}

// Role represents the role of a message participant.
type Role string

const (
	// RoleUser represents a message typed by the user.
	RoleUser Role = "user"
	// RoleModel represents a message produced by the generative model.
	RoleModel Role = "model"
)

const (
	// FailureContent replaces the content of a model message whose generation failed.
	FailureContent = "Ups! Something went wrong. I cannot generate a response at the moment"
	// NoCandidateContent is the content of a model message whose generation returned no candidate.
	NoCandidateContent = "Sorry, I couldn't understand that. Can you please rephrase?"
)

// NewMessage creates a message with a fresh ID, stamped with the given creation time.
func NewMessage(role Role, content, rawMessage string, now time.Time) Message {
	return Message{
		ID:            uuid.New().String(),
		Role:          role,
		Content:       content,
		RawMessage:    rawMessage,
		Timestamp:     now,
		DisplayMoment: FormatMoment(now),
	}
}

// FormatMoment formats t the way the transcript displays it, e.g. "October 16th 2026, 3:04:05 pm".
func FormatMoment(t time.Time) string {
	return t.Format("January ") + humanize.Ordinal(t.Day()) + t.Format(" 2006, 3:04:05 pm")
}

// StripBrackets removes every bracket character ([, ], (, ), {, }, <, >) from s. Applying it more than once
// yields the same result as applying it once.
func StripBrackets(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', '(', ')', '{', '}', '<', '>':
			return -1
		}
		return r
	}, s)
}

// AttachTags prefixes text with a "[name]" reference for each tag, which is how the backend recognizes
// references to stored files and repositories in a prompt. Empty tag names are skipped.
func AttachTags(text string, tags []string) string {
	var sb strings.Builder
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		sb.WriteString("[")
		sb.WriteString(tag)
		sb.WriteString("] ")
	}
	sb.WriteString(text)
	return sb.String()
}
