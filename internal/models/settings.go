package models

import (
	"fmt"
	"slices"
	"strings"
)

// SamplingSettings holds the model invocation parameters. It lives in process-wide state, is re-synced
// from the settings form on every field change, and is read once per generation request.
type SamplingSettings struct {
	Model       string  `json:"model" yaml:"model"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	TopP        float64 `json:"topP" yaml:"topP"`
	TopK        int     `json:"topK" yaml:"topK"`

	// CandidateCount is optional; nil means the backend default.
	CandidateCount *int `json:"candidateCount,omitempty" yaml:"candidateCount"`
}

// Field names used as keys of ValidationErrors, matching the settings form inputs.
const (
	FieldModel          = "model"
	FieldTemperature    = "temperature"
	FieldTopP           = "topP"
	FieldTopK           = "topK"
	FieldCandidateCount = "candidateCount"
)

// DefaultSettings returns the settings a fresh session starts with. The model is left empty, so a session
// cannot generate until one is picked.
func DefaultSettings() SamplingSettings {
	return SamplingSettings{
		Temperature: 1.0,
		TopP:        0.95,
		TopK:        0,
	}
}

// ValidationErrors maps a settings field name to the message shown next to it in the form.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, v[k])
	}
	return "invalid settings: " + strings.Join(parts, "; ")
}

// Validate checks the settings against their allowed ranges. It returns nil or a non-empty
// ValidationErrors.
func (s SamplingSettings) Validate() error {
	errs := ValidationErrors{}
	if strings.TrimSpace(s.Model) == "" {
		errs[FieldModel] = "Model is required"
	}
	// Written as negated ranges so NaN fails them.
	if !(s.Temperature >= 0 && s.Temperature <= 2) {
		errs[FieldTemperature] = "Temperature must be between 0.0 and 2.0"
	}
	if !(s.TopP >= 0 && s.TopP <= 1) {
		errs[FieldTopP] = "Top P must be between 0.0 and 1.0"
	}
	if s.TopK < 0 {
		errs[FieldTopK] = "Top K must be a non-negative integer"
	}
	if s.CandidateCount != nil && (*s.CandidateCount < 1 || *s.CandidateCount > 8) {
		errs[FieldCandidateCount] = "Candidate count must be between 1 and 8"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
