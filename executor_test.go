package uat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-uat/results"
	"github.com/ethereum-optimism/infra/op-uat/stepconfig"
	"github.com/ethereum-optimism/infra/op-uat/types"
)

func newTestExecutor(t *testing.T, cfg *Config) (*DefaultStepExecutor, *results.Store) {
	t.Helper()
	stepConfig, err := stepconfig.Load(cfg.ConfigPaths...)
	require.NoError(t, err)
	store, err := results.NewStore(cfg.ResultsDir, cfg.Log)
	require.NoError(t, err)
	return NewDefaultStepExecutor(cfg, stepConfig, newFakeRegistry(t), store), store
}

func TestDefaultStepExecutor_RunStep_Success(t *testing.T) {
	cfg := newTestConfig(t, twoSubStepConfig)
	executor, store := newTestExecutor(t, cfg)

	run, err := executor.RunStep(context.Background())
	require.NoError(t, err)
	require.Len(t, run.Results, 2)
	assert.Nil(t, run.Failed())
	assert.NotEmpty(t, run.RunID)

	first, second := run.Results[0], run.Results[1]
	assert.Equal(t, "first", first.SubStepName)
	assert.Equal(t, "DEV", first.Environment)
	assert.Equal(t, run.RunID, first.RunID)

	// the second sub-step reads the artifact recorded by the first
	echoed, ok := second.ArtifactValue("echoed")
	require.True(t, ok)
	assert.Equal(t, "hello", echoed)

	workflow, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, run.RunID, workflow.RunID)
	assert.Len(t, workflow.StepResults, 2)
}

func TestDefaultStepExecutor_RunStep_ReusesWorkflowRunID(t *testing.T) {
	cfg := newTestConfig(t, twoSubStepConfig)
	executor, store := newTestExecutor(t, cfg)

	previous := types.NewWorkflowResult("existing-run")
	require.NoError(t, store.Write(previous))

	run, err := executor.RunStep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "existing-run", run.RunID)
}

func TestDefaultStepExecutor_RunStep_StopsAtFirstFailure(t *testing.T) {
	cfg := newTestConfig(t, failingConfig("broken"))
	executor, store := newTestExecutor(t, cfg)

	run, err := executor.RunStep(context.Background())
	require.NoError(t, err)
	require.Len(t, run.Results, 1)

	failed := run.Failed()
	require.NotNil(t, failed)
	assert.Equal(t, "broken", failed.SubStepName)
	assert.Equal(t, "it broke", failed.Message)

	workflow, err := store.Load()
	require.NoError(t, err)
	require.Len(t, workflow.StepResults, 1)
	assert.False(t, workflow.StepResults[0].Success)
}

func TestDefaultStepExecutor_RunStep_Errors(t *testing.T) {
	t.Run("unknown step", func(t *testing.T) {
		cfg := newTestConfig(t, twoSubStepConfig)
		cfg.StepName = "deploy"
		executor, _ := newTestExecutor(t, cfg)

		_, err := executor.RunStep(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), `no sub-steps configured for step "deploy"`)
	})

	t.Run("unknown implementer", func(t *testing.T) {
		cfg := newTestConfig(t, `
step-runner-config:
  uat:
    implementer: Missing
`)
		executor, _ := newTestExecutor(t, cfg)

		_, err := executor.RunStep(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown implementer "Missing"`)
	})
}
