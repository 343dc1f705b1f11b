package models

import "slices"

// GenerationMethod is the method a model must support to be offered in the model select.
const GenerationMethod = "generateContent"

// ModelInfo describes a generative model listed by the backend.
type ModelInfo struct {
	Name             string `json:"name"`
	Version          string `json:"version,omitempty"`
	DisplayName      string `json:"displayName"`
	Description      string `json:"description"`
	InputTokenLimit  int    `json:"inputTokenLimit"`
	OutputTokenLimit int    `json:"outputTokenLimit"`

	// Depending on the backend revision, supported methods are listed under either field.
	SupportedGenerationMethods []string `json:"supportedGenerationMethods,omitempty"`
	SupportedActions           []string `json:"supportedActions,omitempty"`
}

// SupportsGeneration reports whether the model can be used to generate chat responses.
func (m ModelInfo) SupportsGeneration() bool {
	return slices.Contains(m.SupportedGenerationMethods, GenerationMethod) ||
		slices.Contains(m.SupportedActions, GenerationMethod)
}

// Tag is a selectable reference to a stored file or repository that can be attached to a user message.
type Tag struct {
	Value       string `json:"value"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Type        string `json:"type"`
}

// PartStatus is the processing status of a stored part.
type PartStatus string

const (
	PartStatusPending PartStatus = "pending"
	PartStatusReady   PartStatus = "ready"
	PartStatusError   PartStatus = "error"
)

// Part is a file or repository stored by the backend.
type Part struct {
	Name          string     `json:"name"`
	ContentType   string     `json:"content_type"`
	Status        PartStatus `json:"status"`
	StatusMessage string     `json:"status_message"`
}

// GenerateResult is the response of the HTTP generate path.
type GenerateResult struct {
	Candidates []Candidate `json:"candidates"`
}

// Candidate is one generated response.
type Candidate struct {
	Content struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"content"`
}

// Text returns the text of the first part of the first candidate, and false if there is none.
func (r GenerateResult) Text() (string, bool) {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return "", false
	}
	return r.Candidates[0].Content.Parts[0].Text, true
}
