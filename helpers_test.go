package uat

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-uat/step"
	"github.com/ethereum-optimism/infra/op-uat/types"
)

const fakeImplementerName = "Fake"

const twoSubStepConfig = `
step-runner-config:
  uat:
    - name: first
      implementer: Fake
      config:
        greeting: hello
    - name: second
      implementer: Fake
      config:
        echo: greeting
`

// fakeImplementer records a "greeting" artifact and fails when "fail" is set
type fakeImplementer struct {
	*step.Base
}

func (f *fakeImplementer) Defaults() map[string]any { return nil }
func (f *fakeImplementer) RequiredKeys() []string   { return nil }
func (f *fakeImplementer) Validate() error          { return nil }

func (f *fakeImplementer) Run(ctx context.Context) (*types.StepResult, error) {
	result := f.NewResult()
	if key := f.StringValue("echo"); key != "" {
		result.AddArtifact("echoed", f.StringValue(key), "")
	}
	if greeting := f.StringValue("greeting"); greeting != "" {
		result.AddArtifact("greeting", greeting, "")
	}
	if msg := f.StringValue("fail"); msg != "" {
		result.Fail(msg)
	}
	return result, nil
}

func newFakeRegistry(t *testing.T) *step.Registry {
	t.Helper()
	reg := step.NewRegistry()
	require.NoError(t, reg.Register(fakeImplementerName, func(opts step.Options) (step.Implementer, error) {
		base, err := step.NewBase(opts, nil)
		if err != nil {
			return nil, err
		}
		return &fakeImplementer{Base: base}, nil
	}))
	return reg
}

func newTestConfig(t *testing.T, stepConfig string) *Config {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config", "uat.yml")
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0755))
	require.NoError(t, os.WriteFile(configPath, []byte(stepConfig), 0644))

	workDir := filepath.Join(dir, "work")
	return &Config{
		ConfigPaths: []string{configPath},
		StepName:    "uat",
		Environment: "DEV",
		WorkDir:     workDir,
		ResultsDir:  workDir,
		Log:         log.New(),
	}
}

func failingConfig(subStep string) string {
	return fmt.Sprintf(`
step-runner-config:
  uat:
    - name: %s
      implementer: Fake
      config:
        fail: it broke
    - name: never
      implementer: Fake
`, subStep)
}
