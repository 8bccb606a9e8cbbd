package uat

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/ethereum-optimism/infra/op-uat/results"
	"github.com/ethereum-optimism/infra/op-uat/step"
	"github.com/ethereum-optimism/infra/op-uat/stepconfig"
	"github.com/ethereum-optimism/infra/op-uat/types"
)

// StepExecutor is responsible for running the sub-steps of a step.
type StepExecutor interface {
	RunStep(ctx context.Context) (*StepRun, error)
}

// StepRun is the outcome of running every sub-step of one step
type StepRun struct {
	RunID    string
	StepName string
	Results  []*types.StepResult
	Duration time.Duration
}

// Failed returns the first failed result, or nil
func (r *StepRun) Failed() *types.StepResult {
	for _, result := range r.Results {
		if !result.Success {
			return result
		}
	}
	return nil
}

// DefaultStepExecutor implements the StepExecutor interface.
type DefaultStepExecutor struct {
	config     *Config
	stepConfig *stepconfig.Config
	registry   *step.Registry
	store      *results.Store
	logger     log.Logger
}

// NewDefaultStepExecutor creates a new DefaultStepExecutor.
func NewDefaultStepExecutor(config *Config, stepConfig *stepconfig.Config, registry *step.Registry, store *results.Store) *DefaultStepExecutor {
	return &DefaultStepExecutor{
		config:     config,
		stepConfig: stepConfig,
		registry:   registry,
		store:      store,
		logger:     config.Log,
	}
}

// RunStep runs the configured sub-steps in order, persisting each result before the next
// sub-step starts so later sub-steps see earlier artifacts. It stops at the first failure.
// Errors are returned only when a result could not be produced or persisted.
func (e *DefaultStepExecutor) RunStep(ctx context.Context) (*StepRun, error) {
	subSteps := e.stepConfig.SubSteps(e.config.StepName)
	if len(subSteps) == 0 {
		return nil, fmt.Errorf("no sub-steps configured for step %q (configured steps: %v)",
			e.config.StepName, e.stepConfig.StepNames())
	}

	workflow, err := e.store.Load()
	if err != nil {
		return nil, err
	}
	runID := workflow.RunID
	if runID == "" {
		runID = uuid.New().String()
	}

	run := &StepRun{RunID: runID, StepName: e.config.StepName}
	start := time.Now()
	defer func() { run.Duration = time.Since(start) }()

	e.logger.Info("Running step", "step", e.config.StepName, "environment", e.config.Environment,
		"subSteps", len(subSteps), "run_id", runID)

	for _, subStep := range subSteps {
		impl, err := e.registry.New(step.Options{
			StepName:      e.config.StepName,
			SubStep:       subStep,
			Environment:   e.config.Environment,
			RuntimeConfig: e.config.RuntimeConfig,
			Workflow:      workflow,
			WorkDir:       e.config.WorkDir,
			Log:           e.logger,
		})
		if err != nil {
			return run, err
		}

		result := step.Run(ctx, impl)
		result.RunID = runID
		run.Results = append(run.Results, result)

		workflow, err = e.store.Append(result)
		if err != nil {
			return run, fmt.Errorf("failed to record result of %s: %w", result.Key(), err)
		}

		if !result.Success {
			e.logger.Warn("Sub-step failed, skipping remaining sub-steps", "subStep", subStep.Name)
			break
		}
		if ctx.Err() != nil {
			return run, ctx.Err()
		}
	}
	return run, nil
}
