// Package step hosts step implementers: it resolves their configuration, owns their working
// directory and turns their outcome into a StepResult.
package step

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-uat/stepconfig"
	"github.com/ethereum-optimism/infra/op-uat/types"
)

const (
	// SourcePreviousResults marks values taken from artifacts of earlier step runs
	SourcePreviousResults = "previous-step-results"
	// SourceDefault marks values taken from the implementer defaults
	SourceDefault = "default"
)

// Implementer is a single sub-step implementation
type Implementer interface {
	// Defaults are the lowest precedence configuration values
	Defaults() map[string]any
	// RequiredKeys must resolve to a non-empty value before Run is called
	RequiredKeys() []string
	Validate() error
	Run(ctx context.Context) (*types.StepResult, error)

	// NewResult and Log are provided by embedding *Base
	NewResult() *types.StepResult
	Log() log.Logger
}

// Options are handed to every implementer factory
type Options struct {
	StepName      string
	SubStep       *stepconfig.SubStepConfig
	Environment   string
	RuntimeConfig map[string]any
	// Workflow holds results from earlier steps of the same workflow run
	Workflow *types.WorkflowResult
	// WorkDir is the workflow working directory; each step gets a directory below it
	WorkDir string
	Log     log.Logger
}

// Base carries the state shared by all implementers
type Base struct {
	opts     Options
	defaults map[string]any
	log      log.Logger
}

// NewBase validates opts and returns a Base using the given implementer defaults
func NewBase(opts Options, defaults map[string]any) (*Base, error) {
	if opts.SubStep == nil {
		return nil, errors.New("sub-step configuration is required")
	}
	if opts.StepName == "" {
		opts.StepName = opts.SubStep.StepName
	}
	if opts.StepName == "" {
		return nil, errors.New("step name is required")
	}
	if opts.WorkDir == "" {
		return nil, errors.New("work directory is required")
	}
	if opts.Log == nil {
		opts.Log = log.New()
	}
	if opts.Workflow == nil {
		opts.Workflow = types.NewWorkflowResult("")
	}

	return &Base{
		opts:     opts,
		defaults: defaults,
		log: opts.Log.New(
			"step", opts.StepName,
			"subStep", opts.SubStep.Name,
			"environment", opts.Environment,
		),
	}, nil
}

// Log returns the step scoped logger
func (b *Base) Log() log.Logger {
	return b.log
}

func (b *Base) StepName() string {
	return b.opts.StepName
}

func (b *Base) SubStepName() string {
	return b.opts.SubStep.Name
}

func (b *Base) Environment() string {
	return b.opts.Environment
}

// Value resolves key from the step configuration, then the artifacts of earlier step results,
// then the implementer defaults. Returns nil if nothing defines it.
func (b *Base) Value(key string) *stepconfig.Value {
	if v := b.opts.SubStep.Value(key, b.opts.Environment, b.opts.RuntimeConfig); v.IsSet() {
		return v
	}
	if artifact, ok := b.opts.Workflow.ArtifactValue(key, b.opts.Environment); ok {
		if v := (&stepconfig.Value{Raw: artifact, Source: SourcePreviousResults}); v.IsSet() {
			return v
		}
	}
	if raw, ok := b.defaults[key]; ok && raw != nil {
		return &stepconfig.Value{Raw: raw, Source: SourceDefault}
	}
	return nil
}

// StringValue resolves key as a string, "" when unset
func (b *Base) StringValue(key string) string {
	v := b.Value(key)
	if v == nil {
		return ""
	}
	return v.String()
}

// BoolValue resolves key as a boolean
func (b *Base) BoolValue(key string) (bool, error) {
	v := b.Value(key)
	if v == nil {
		return false, fmt.Errorf("config value %q is not set", key)
	}
	parsed, err := stepconfig.ParseBool(v.Raw)
	if err != nil {
		return false, fmt.Errorf("config value %q (%s): %w", key, v.Source, err)
	}
	return parsed, nil
}

// StringListValue resolves key as a list of strings. A scalar value becomes a single entry.
func (b *Base) StringListValue(key string) []string {
	v := b.Value(key)
	if v == nil {
		return nil
	}
	switch raw := stepconfig.ConvertLeavesToValues(v.Raw).(type) {
	case []any:
		out := make([]string, 0, len(raw))
		for _, item := range raw {
			if item == nil {
				continue
			}
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out
	case []string:
		return raw
	default:
		return []string{v.String()}
	}
}

// RawValue resolves key and strips Value wrappers, nil when unset
func (b *Base) RawValue(key string) any {
	v := b.Value(key)
	if v == nil {
		return nil
	}
	return stepconfig.ConvertLeavesToValues(v.Raw)
}

// ValidateRequiredKeys returns an error listing every key that does not resolve to a value
func (b *Base) ValidateRequiredKeys(keys []string) error {
	var missing []string
	for _, key := range keys {
		if !b.Value(key).IsSet() {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration keys: %s", strings.Join(missing, ", "))
	}
	return nil
}

// WorkDir returns <work-dir>/<step-name>, creating it if needed
func (b *Base) WorkDir() (string, error) {
	dir := filepath.Join(b.opts.WorkDir, b.opts.StepName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create step work directory %s: %w", dir, err)
	}
	return dir, nil
}

// WriteWorkingFile writes content to a file in the step work directory and returns its path
func (b *Base) WriteWorkingFile(name string, content []byte) (string, error) {
	dir, err := b.WorkDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write working file %s: %w", path, err)
	}
	return path, nil
}

// NewResult returns a successful StepResult for this sub-step
func (b *Base) NewResult() *types.StepResult {
	return types.NewStepResult(b.opts.StepName, b.opts.SubStep.Name, b.opts.SubStep.Implementer, b.opts.Environment)
}

// Run validates and runs impl. Validation errors and errors returned by the implementer are
// reported as a failed result rather than returned, so the caller can always persist a result.
func Run(ctx context.Context, impl Implementer) *types.StepResult {
	start := time.Now()
	result := runImplementer(ctx, impl)
	result.Duration = time.Since(start)

	if result.Success {
		impl.Log().Info("Sub-step succeeded", "duration", result.Duration)
	} else {
		impl.Log().Error("Sub-step failed", "message", result.Message, "duration", result.Duration)
	}
	return result
}

func runImplementer(ctx context.Context, impl Implementer) *types.StepResult {
	if err := impl.Validate(); err != nil {
		result := impl.NewResult()
		result.Fail(err.Error())
		return result
	}

	result, err := impl.Run(ctx)
	if err != nil {
		if result == nil {
			result = impl.NewResult()
		}
		result.Fail(err.Error())
		return result
	}
	if result == nil {
		result = impl.NewResult()
		result.Fail("sub-step returned no result")
	}
	return result
}
