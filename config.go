package uat

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/ethereum/go-ethereum/log"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/op-uat/flags"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

// Config holds the application configuration
type Config struct {
	ConfigPaths   []string       // Step runner configuration files or directories
	StepName      string         // Step to run, eg. "uat"
	Environment   string         // Environment selecting environment specific configuration
	RuntimeConfig map[string]any // key=value overrides from the command line
	WorkDir       string         // Working directory, steps write to <WorkDir>/<step>
	ResultsDir    string         // Directory holding the workflow results file
	MavenBinary   string
	Env           []string // KEY=value pairs added to the Maven environment
	Quiet         bool     // Capture Maven output without echoing it to the console
	HealthzAddr   string
	MetricsAddr   string // Empty unless metrics are enabled
	Log           log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	paths := ctx.StringSlice(flags.Config.Name)
	if len(paths) == 0 {
		return nil, errors.New("at least one configuration path is required")
	}
	absPaths := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for config '%s': %w", p, err)
		}
		absPaths = append(absPaths, abs)
	}

	stepName := ctx.String(flags.Step.Name)
	if stepName == "" {
		return nil, errors.New("step name is required")
	}

	runtimeConfig, err := flags.ParseKeyValues(ctx.StringSlice(flags.StepConfig.Name))
	if err != nil {
		return nil, err
	}

	workDir := ctx.String(flags.WorkDir.Name)
	if workDir == "" {
		workDir = flags.WorkDir.Value
	}
	workDir, err = filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for work directory '%s': %w", workDir, err)
	}

	resultsDir := ctx.String(flags.ResultsDir.Name)
	if resultsDir == "" {
		resultsDir = workDir
	}
	resultsDir, err = filepath.Abs(resultsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for results directory '%s': %w", resultsDir, err)
	}

	env, err := LoadEnvFile(ctx.String(flags.EnvFile.Name))
	if err != nil {
		return nil, err
	}

	metricsAddr := ""
	metricsCfg := opmetrics.ReadCLIConfig(ctx)
	if metricsCfg.Enabled {
		if err := metricsCfg.Check(); err != nil {
			return nil, fmt.Errorf("invalid metrics config: %w", err)
		}
		metricsAddr = net.JoinHostPort(metricsCfg.ListenAddr, strconv.Itoa(metricsCfg.ListenPort))
	}

	return &Config{
		ConfigPaths:   absPaths,
		StepName:      stepName,
		Environment:   ctx.String(flags.Environment.Name),
		RuntimeConfig: runtimeConfig,
		WorkDir:       workDir,
		ResultsDir:    resultsDir,
		MavenBinary:   ctx.String(flags.MavenBinary.Name),
		Env:           env,
		Quiet:         ctx.Bool(flags.Quiet.Name),
		HealthzAddr:   ctx.String(flags.HealthzAddr.Name),
		MetricsAddr:   metricsAddr,
		Log:           log,
	}, nil
}

// LoadEnvFile reads a .env file into sorted KEY=value pairs. An empty path yields nothing.
func LoadEnvFile(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file '%s': %w", path, err)
	}
	env := make([]string, 0, len(values))
	for k, v := range values {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env, nil
}
