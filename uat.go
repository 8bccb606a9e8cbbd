package uat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/ethereum-optimism/infra/op-uat/maven"
	"github.com/ethereum-optimism/infra/op-uat/mavenselenium"
	"github.com/ethereum-optimism/infra/op-uat/results"
	"github.com/ethereum-optimism/infra/op-uat/step"
	"github.com/ethereum-optimism/infra/op-uat/stepconfig"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
)

// uat implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &uat{}

// uat runs one configured step and exits.
type uat struct {
	ctx       context.Context
	config    *Config
	version   string
	executor  StepExecutor
	formatter ResultFormatter
	reporter  MetricsReporter
	run       *StepRun
	stopHooks []func()

	running atomic.Bool

	shutdownCallback func(error) // Callback to signal application shutdown
}

type options struct {
	registry    *step.Registry
	mavenRunner maven.Runner
	executor    StepExecutor
	out         io.Writer
	stopHooks   []func()
}

// Option customizes the collaborators used by New
type Option func(*options)

// WithRegistry replaces the implementer registry. MavenSeleniumCucumber is not registered.
func WithRegistry(r *step.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithMavenRunner replaces the runner used to invoke Maven
func WithMavenRunner(r maven.Runner) Option {
	return func(o *options) { o.mavenRunner = r }
}

// WithExecutor replaces the step executor
func WithExecutor(e StepExecutor) Option {
	return func(o *options) { o.executor = e }
}

// WithStopHook registers fn to run once when the service stops
func WithStopHook(fn func()) Option {
	return func(o *options) { o.stopHooks = append(o.stopHooks, fn) }
}

// WithOutput sets where the results table is printed
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

func New(ctx context.Context, config *Config, version string, shutdownCallback func(error), opts ...Option) (*uat, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if shutdownCallback == nil {
		shutdownCallback = func(error) {}
	}

	o := &options{out: os.Stdout}
	for _, opt := range opts {
		opt(o)
	}

	config.Log.Debug("Creating step runner with config",
		"configPaths", config.ConfigPaths,
		"step", config.StepName,
		"environment", config.Environment,
		"workDir", config.WorkDir,
		"resultsDir", config.ResultsDir)

	executor := o.executor
	if executor == nil {
		stepConfig, err := stepconfig.Load(config.ConfigPaths...)
		if err != nil {
			return nil, fmt.Errorf("failed to load step configuration: %w", err)
		}
		store, err := results.NewStore(config.ResultsDir, config.Log)
		if err != nil {
			return nil, fmt.Errorf("failed to create results store: %w", err)
		}
		reg := o.registry
		if reg == nil {
			reg, err = defaultRegistry(config, o.mavenRunner)
			if err != nil {
				return nil, err
			}
		}
		executor = NewDefaultStepExecutor(config, stepConfig, reg, store)
		config.Log.Info("uat.New: loaded step configuration", "sources", stepConfig.Sources, "implementers", reg.Names())
	}

	return &uat{
		ctx:              ctx,
		config:           config,
		version:          version,
		executor:         executor,
		formatter:        NewConsoleResultFormatter(config.Log, o.out),
		reporter:         NewDefaultMetricsReporter(),
		stopHooks:        o.stopHooks,
		shutdownCallback: shutdownCallback,
	}, nil
}

func defaultRegistry(config *Config, runner maven.Runner) (*step.Registry, error) {
	if runner == nil {
		runner = maven.NewExecRunner(config.Log, maven.WithEnv(config.Env...))
	}
	deps := mavenselenium.Dependencies{
		Runner: runner,
		Binary: config.MavenBinary,
	}
	if !config.Quiet {
		deps.Stdout = os.Stdout
		deps.Stderr = os.Stderr
	}
	reg := step.NewRegistry()
	if err := mavenselenium.Register(reg, deps); err != nil {
		return nil, fmt.Errorf("failed to register implementers: %w", err)
	}
	return reg, nil
}

// Start runs the configured step once and signals shutdown when it passes.
// Start implements the cliapp.Lifecycle interface.
func (u *uat) Start(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			u.config.Log.Error("Runtime error occurred", "error", r)
			err = NewRuntimeError(fmt.Errorf("panic: %v", r))
		}
	}()

	u.ctx = ctx
	u.running.Store(true)
	u.config.Log.Info("Starting op-uat", "version", u.version, "step", u.config.StepName, "environment", u.config.Environment)

	run, err := u.executor.RunStep(ctx)
	u.run = run
	if run != nil {
		if ferr := u.formatter.FormatResults(run); ferr != nil {
			u.config.Log.Error("Failed to format results", "error", ferr)
		}
		u.reporter.ReportResults(run)
	}
	if err != nil {
		u.config.Log.Error("Runtime error running step", "error", err)
		return NewRuntimeError(err)
	}

	if failed := run.Failed(); failed != nil {
		u.config.Log.Warn("Step completed with failures, returning exit code 1", "subStep", failed.SubStepName)
		return NewStepFailureError(failed.Message)
	}

	u.config.Log.Info("Step completed", "run_id", run.RunID, "duration", formatDuration(run.Duration))
	go u.shutdownCallback(nil)
	return nil
}

// Stop stops the op-uat service.
// Stop implements the cliapp.Lifecycle interface.
func (u *uat) Stop(ctx context.Context) error {
	if !u.running.Swap(false) {
		u.config.Log.Debug("Service already stopped, nothing to do")
		return nil
	}
	for _, hook := range u.stopHooks {
		hook()
	}
	u.config.Log.Info("op-uat stopped successfully")
	return nil
}

// Stopped returns true if the op-uat service is stopped.
// Stopped implements the cliapp.Lifecycle interface.
func (u *uat) Stopped() bool {
	return !u.running.Load()
}

// Result returns the outcome of the last Start, or nil
func (u *uat) Result() *StepRun {
	return u.run
}
