package types

// WorkflowResult holds the results of every step run so far in a workflow, oldest first
type WorkflowResult struct {
	RunID       string        `yaml:"run-id,omitempty" json:"runId,omitempty"`
	StepResults []*StepResult `yaml:"step-results" json:"stepResults"`
}

// NewWorkflowResult creates an empty WorkflowResult
func NewWorkflowResult(runID string) *WorkflowResult {
	return &WorkflowResult{
		RunID:       runID,
		StepResults: make([]*StepResult, 0),
	}
}

// Add appends a step result
func (w *WorkflowResult) Add(result *StepResult) {
	if result == nil {
		return
	}
	w.StepResults = append(w.StepResults, result)
}

// ArtifactValue searches previous step results for an artifact, most recent first.
// Results recorded for the given environment win over results without an environment;
// results for a different environment are never used.
func (w *WorkflowResult) ArtifactValue(name, environment string) (any, bool) {
	if w == nil {
		return nil, false
	}
	if environment != "" {
		if v, ok := w.search(name, func(r *StepResult) bool { return r.Environment == environment }); ok {
			return v, true
		}
	}
	return w.search(name, func(r *StepResult) bool { return r.Environment == "" })
}

func (w *WorkflowResult) search(name string, match func(*StepResult) bool) (any, bool) {
	for i := len(w.StepResults) - 1; i >= 0; i-- {
		r := w.StepResults[i]
		if r == nil || !match(r) {
			continue
		}
		if v, ok := r.ArtifactValue(name); ok {
			return v, true
		}
	}
	return nil, false
}
