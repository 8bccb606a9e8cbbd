package maven

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ Runner = (*ExecRunner)(nil)

// Runner runs external commands, streaming their output to the given writers.
// A command that exits non-zero returns an *ExitError.
type Runner interface {
	Run(ctx context.Context, stdout, stderr io.Writer, name string, args ...string) error
}

// CommandBuilder creates the command to run and a cleanup func called once it finished
type CommandBuilder func(ctx context.Context, name string, arg ...string) (*exec.Cmd, func())

// ExitError reports a command that ran but exited with a non-zero status
type ExitError struct {
	Command  string
	ExitCode int
	Err      error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command %q exited with code %d", e.Command, e.ExitCode)
}

// Unwrap implements the errors.Unwrap interface
func (e *ExitError) Unwrap() error {
	return e.Err
}

// IsExitError checks if the error is or wraps an ExitError
func IsExitError(err error) bool {
	var exitErr *ExitError
	return err != nil && errors.As(err, &exitErr)
}

// ExecRunner implements Runner on top of os/exec
type ExecRunner struct {
	dir        string
	env        []string
	cmdBuilder CommandBuilder
	log        log.Logger
	tracer     trace.Tracer
}

// RunnerOption configures an ExecRunner
type RunnerOption func(*ExecRunner)

// WithDir sets the working directory of every command
func WithDir(dir string) RunnerOption {
	return func(r *ExecRunner) {
		r.dir = dir
	}
}

// WithEnv appends environment variables (KEY=value) to the inherited environment
func WithEnv(env ...string) RunnerOption {
	return func(r *ExecRunner) {
		r.env = append(r.env, env...)
	}
}

// WithCommandBuilder replaces how commands are created, mainly for tests
func WithCommandBuilder(builder CommandBuilder) RunnerOption {
	return func(r *ExecRunner) {
		if builder != nil {
			r.cmdBuilder = builder
		}
	}
}

// NewExecRunner creates a new ExecRunner
func NewExecRunner(logger log.Logger, opts ...RunnerOption) *ExecRunner {
	if logger == nil {
		logger = log.New()
	}
	r := &ExecRunner{
		cmdBuilder: defaultCommandBuilder,
		log:        logger,
		tracer:     otel.Tracer("maven runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func defaultCommandBuilder(ctx context.Context, name string, arg ...string) (*exec.Cmd, func()) {
	return exec.CommandContext(ctx, name, arg...), func() {}
}

// Run implements the Runner interface
func (r *ExecRunner) Run(ctx context.Context, stdout, stderr io.Writer, name string, args ...string) error {
	if ctx == nil {
		return errors.New("context cannot be nil")
	}
	if name == "" {
		return errors.New("command name cannot be empty")
	}

	commandLine := strings.TrimSpace(name + " " + strings.Join(args, " "))
	ctx, span := r.tracer.Start(ctx, "run "+name, trace.WithAttributes(
		attribute.String("command", name),
		attribute.StringSlice("args", args),
	))
	defer span.End()

	cmd, cleanup := r.cmdBuilder(ctx, name, args...)
	defer cleanup()

	if r.dir != "" {
		cmd.Dir = r.dir
	}
	if len(r.env) > 0 {
		cmd.Env = append(cmd.Environ(), r.env...)
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	r.log.Info("Running command", "command", commandLine, "dir", cmd.Dir)
	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	if err == nil {
		r.log.Debug("Command completed", "command", name, "duration", duration)
		return nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	exitErr := &exec.ExitError{}
	if errors.As(err, &exitErr) {
		r.log.Warn("Command failed", "command", name, "exitCode", exitErr.ExitCode(), "duration", duration)
		return &ExitError{Command: commandLine, ExitCode: exitErr.ExitCode(), Err: err}
	}
	return fmt.Errorf("failed to run %s: %w", name, err)
}
