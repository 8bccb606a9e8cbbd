package flags

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	opflags "github.com/ethereum-optimism/optimism/op-service/flags"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

const EnvVarPrefix = "OP_UAT"

var (
	Config = &cli.StringSliceFlag{
		Name:     "config",
		Required: true,
		EnvVars:  opservice.PrefixEnvVar(EnvVarPrefix, "CONFIG"),
		Usage:    "Step runner configuration file or directory of YAML files. May be given multiple times",
	}
	Step = &cli.StringFlag{
		Name:    "step",
		Value:   "uat",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "STEP"),
		Usage:   "Name of the step to run",
	}
	Environment = &cli.StringFlag{
		Name:    "environment",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "ENVIRONMENT"),
		Usage:   "Environment to run the step for (eg. 'DEV'); selects environment specific configuration",
	}
	StepConfig = &cli.StringSliceFlag{
		Name:    "step-config",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "STEP_CONFIG"),
		Usage:   "Runtime configuration as key=value, overriding every configuration file. May be given multiple times",
		Action: func(ctx *cli.Context, values []string) error {
			_, err := ParseKeyValues(values)
			return err
		},
	}
	WorkDir = &cli.StringFlag{
		Name:    "work-dir",
		Value:   "step-runner-working",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "WORK_DIR"),
		Usage:   "Working directory; each step writes its files to <work-dir>/<step>",
	}
	ResultsDir = &cli.StringFlag{
		Name:    "results-dir",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RESULTS_DIR"),
		Usage:   "Directory holding the workflow results file. Defaults to the working directory",
	}
	MavenBinary = &cli.StringFlag{
		Name:    "mvn-binary",
		Value:   "mvn",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "MVN_BINARY"),
		Usage:   "Path to the Maven binary used to run the tests",
	}
	EnvFile = &cli.StringFlag{
		Name:    "env-file",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "ENV_FILE"),
		Usage:   "Optional .env file loaded into the environment of Maven",
	}
	Quiet = &cli.BoolFlag{
		Name:    "quiet",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "QUIET"),
		Usage:   "Do not echo Maven output to the console; it is still captured to the maven-output artifact",
	}
	HealthzAddr = &cli.StringFlag{
		Name:    "healthz.addr",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "HEALTHZ_ADDR"),
		Usage:   "Address to serve /healthz on while the step runs (eg. '0.0.0.0:8080'). Disabled when empty",
	}
)

var requiredFlags = []cli.Flag{
	Config,
}

var optionalFlags = []cli.Flag{
	Step,
	Environment,
	StepConfig,
	WorkDir,
	ResultsDir,
	MavenBinary,
	EnvFile,
	Quiet,
	HealthzAddr,
}
var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return opflags.CheckRequiredXor(ctx)
}

// ParseKeyValues parses key=value pairs. Later pairs override earlier ones.
func ParseKeyValues(values []string) (map[string]any, error) {
	out := make(map[string]any, len(values))
	for _, kv := range values {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid step config %q: expected key=value", kv)
		}
		out[key] = value
	}
	return out, nil
}
