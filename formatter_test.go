package uat

import (
	"bytes"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-uat/types"
)

func createSampleRun() *StepRun {
	passed := types.NewStepResult("uat", "selenium", "MavenSeleniumCucumber", "DEV")
	passed.Duration = 42 * time.Second
	passed.AddArtifact("maven-output", "/work/uat/mvn_test_output.txt", "")
	passed.AddArtifact("surefire-reports", "/app/target/surefire-reports", "")
	passed.Summary = "Surefire Reports table\n"

	failed := types.NewStepResult("uat", "smoke", "MavenSeleniumCucumber", "DEV")
	failed.Fail("User acceptance test failures.")

	return &StepRun{
		RunID:    "run-123",
		StepName: "uat",
		Results:  []*types.StepResult{passed, failed},
		Duration: 43 * time.Second,
	}
}

func TestConsoleResultFormatter_FormatResults(t *testing.T) {
	var buf bytes.Buffer
	formatter := NewConsoleResultFormatter(log.New(), &buf)

	require.NoError(t, formatter.FormatResults(createSampleRun()))

	out := buf.String()
	assert.Contains(t, out, "User Acceptance Test Results: uat (43.0s)")
	assert.Contains(t, out, "selenium (MavenSeleniumCucumber)")
	assert.Contains(t, out, "maven-output")
	assert.Contains(t, out, "/app/target/surefire-reports")
	assert.Contains(t, out, "User acceptance test failures.")
	assert.Contains(t, out, "run-123")
	assert.Contains(t, out, "Surefire Reports table")
}

func TestConsoleResultFormatter_FormatResults_Empty(t *testing.T) {
	var buf bytes.Buffer
	formatter := NewConsoleResultFormatter(log.New(), &buf)

	require.NoError(t, formatter.FormatResults(&StepRun{StepName: "uat"}))
	assert.Contains(t, buf.String(), "0 sub-steps")

	require.Error(t, formatter.FormatResults(nil))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0.1s", formatDuration(100*time.Millisecond))
	assert.Equal(t, "90.0s", formatDuration(90*time.Second))
}
