// Package results persists the workflow result shared between step runs
package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"

	"github.com/ethereum-optimism/infra/op-uat/types"
)

const (
	ResultsFilename     = "step-runner-results.yml"
	ResultsJSONFilename = "step-runner-results.json"
)

// Store reads and writes the workflow result files in a results directory
type Store struct {
	dir string
	log log.Logger
}

// NewStore creates a Store rooted at dir
func NewStore(dir string, logger log.Logger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("results directory cannot be empty")
	}
	if logger == nil {
		logger = log.New()
	}
	return &Store{dir: dir, log: logger}, nil
}

// Path returns the YAML results file path
func (s *Store) Path() string {
	return filepath.Join(s.dir, ResultsFilename)
}

// JSONPath returns the JSON results file path
func (s *Store) JSONPath() string {
	return filepath.Join(s.dir, ResultsJSONFilename)
}

// Load reads the workflow result. A missing file yields an empty result.
func (s *Store) Load() (*types.WorkflowResult, error) {
	content, err := os.ReadFile(s.Path())
	if errors.Is(err, os.ErrNotExist) {
		s.log.Debug("No previous workflow results", "path", s.Path())
		return types.NewWorkflowResult(""), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow results %s: %w", s.Path(), err)
	}

	result := types.NewWorkflowResult("")
	if err := yaml.Unmarshal(content, result); err != nil {
		return nil, fmt.Errorf("failed to parse workflow results %s: %w", s.Path(), err)
	}
	if result.StepResults == nil {
		result.StepResults = make([]*types.StepResult, 0)
	}
	s.log.Debug("Loaded workflow results", "path", s.Path(), "results", len(result.StepResults))
	return result, nil
}

// Append adds a step result to the stored workflow result and writes it back
func (s *Store) Append(result *types.StepResult) (*types.WorkflowResult, error) {
	if result == nil {
		return nil, errors.New("step result cannot be nil")
	}
	workflow, err := s.Load()
	if err != nil {
		return nil, err
	}
	if workflow.RunID == "" {
		workflow.RunID = result.RunID
	}
	workflow.Add(result)
	if err := s.Write(workflow); err != nil {
		return nil, err
	}
	return workflow, nil
}

// Write replaces both result files with the given workflow result
func (s *Store) Write(workflow *types.WorkflowResult) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create results directory %s: %w", s.dir, err)
	}

	yamlContent, err := yaml.Marshal(workflow)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow results: %w", err)
	}
	if err := writeFileAtomic(s.Path(), yamlContent); err != nil {
		return err
	}

	jsonContent, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workflow results to JSON: %w", err)
	}
	if err := writeFileAtomic(s.JSONPath(), jsonContent); err != nil {
		return err
	}

	s.log.Info("Wrote workflow results", "path", s.Path(), "results", len(workflow.StepResults))
	return nil
}

func writeFileAtomic(path string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move results into place at %s: %w", path, err)
	}
	return nil
}
