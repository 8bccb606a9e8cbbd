// Package types contains shared types used across the op-uat step runner
package types

import (
	"fmt"
	"strings"
	"time"
)

// StepStatus represents the outcome of a step execution
type StepStatus string

const (
	StepStatusPass StepStatus = "pass"
	StepStatusFail StepStatus = "fail"
)

// StepResultArtifact is a named value produced by a step. Values are usually a file or
// directory path, but may be any YAML value, eg. the list of deployed host URLs.
type StepResultArtifact struct {
	Name        string `yaml:"name" json:"name"`
	Value       any    `yaml:"value" json:"value"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// StepResult captures the outcome of a single sub-step run
type StepResult struct {
	StepName               string               `yaml:"step-name" json:"stepName"`
	SubStepName            string               `yaml:"sub-step-name" json:"subStepName"`
	SubStepImplementerName string               `yaml:"sub-step-implementer-name" json:"subStepImplementerName"`
	Environment            string               `yaml:"environment,omitempty" json:"environment,omitempty"`
	Success                bool                 `yaml:"success" json:"success"`
	Message                string               `yaml:"message,omitempty" json:"message,omitempty"`
	Artifacts              []StepResultArtifact `yaml:"artifacts,omitempty" json:"artifacts,omitempty"`
	Summary                string               `yaml:"summary,omitempty" json:"summary,omitempty"`
	RunID                  string               `yaml:"run-id,omitempty" json:"runId,omitempty"`
	Duration               time.Duration        `yaml:"duration,omitempty" json:"duration,omitempty"`
}

// NewStepResult creates a successful StepResult with no artifacts
func NewStepResult(stepName, subStepName, implementer, environment string) *StepResult {
	return &StepResult{
		StepName:               stepName,
		SubStepName:            subStepName,
		SubStepImplementerName: implementer,
		Environment:            environment,
		Success:                true,
	}
}

// Status maps the success flag onto a StepStatus
func (r *StepResult) Status() StepStatus {
	if r.Success {
		return StepStatusPass
	}
	return StepStatusFail
}

// Fail marks the result as failed with the given message
func (r *StepResult) Fail(message string) {
	r.Success = false
	r.Message = message
}

// AddArtifact records an artifact. An artifact with the same name is replaced in place,
// so insertion order is preserved.
func (r *StepResult) AddArtifact(name string, value any, description string) {
	artifact := StepResultArtifact{Name: name, Value: value, Description: description}
	for i := range r.Artifacts {
		if r.Artifacts[i].Name == name {
			r.Artifacts[i] = artifact
			return
		}
	}
	r.Artifacts = append(r.Artifacts, artifact)
}

// Artifact returns the artifact with the given name, or nil
func (r *StepResult) Artifact(name string) *StepResultArtifact {
	for i := range r.Artifacts {
		if r.Artifacts[i].Name == name {
			return &r.Artifacts[i]
		}
	}
	return nil
}

// ArtifactValue returns the raw value of the named artifact and whether it exists
func (r *StepResult) ArtifactValue(name string) (any, bool) {
	a := r.Artifact(name)
	if a == nil {
		return nil, false
	}
	return a.Value, true
}

// Key identifies the result within a workflow run
func (r *StepResult) Key() string {
	parts := []string{r.StepName, r.SubStepName}
	if r.Environment != "" {
		parts = append(parts, r.Environment)
	}
	return strings.Join(parts, "/")
}

func (r *StepResult) String() string {
	return fmt.Sprintf("%s [%s] %s", r.Key(), r.Status(), r.Message)
}
