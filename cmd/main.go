package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	uat "github.com/ethereum-optimism/infra/op-uat"
	"github.com/ethereum-optimism/infra/op-uat/exitcodes"
	"github.com/ethereum-optimism/infra/op-uat/flags"
	"github.com/ethereum-optimism/infra/op-uat/service"
	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/ethereum-optimism/optimism/op-service/ctxinterrupt"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := newApp()

	// Start telemetry
	ctx, shutdown, err := telemetry.SetupOpenTelemetry(
		context.Background(),
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}
	defer shutdown()

	// Start CLI
	ctx = ctxinterrupt.WithSignalWaiterMain(ctx)
	err = app.RunContext(ctx, os.Args)
	if err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "op-uat"
	app.Usage = "User acceptance test step runner"
	app.Description = "op-uat runs Selenium and Cucumber user acceptance tests through Maven as a workflow step"
	app.Flags = cliapp.ProtectFlags(flags.Flags)
	app.Action = cliapp.LifecycleCmd(run)
	app.ExitErrHandler = func(c *cli.Context, err error) {
		if err == nil {
			return
		}
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
			return
		}
		cli.HandleExitCoder(cli.Exit(err.Error(), exitCode(err)))
	}
	return app
}

// exitCode maps an application error onto the process exit code
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitcodes.Success
	case uat.IsRuntimeError(err):
		return exitcodes.RuntimeErr
	case uat.IsStepFailureError(err):
		return exitcodes.StepFailure
	default:
		return exitcodes.StepFailure
	}
}

func run(ctx *cli.Context, closeApp context.CancelCauseFunc) (cliapp.Lifecycle, error) {
	logCfg := oplog.ReadCLIConfig(ctx)
	log := oplog.NewLogger(oplog.AppOut(ctx), logCfg)
	oplog.SetGlobalLogHandler(log.Handler())
	oplog.SetupDefaults()

	cfg, err := uat.NewConfig(ctx, log)
	if err != nil {
		// Wrap in RuntimeError to signal this should exit with code 2
		return nil, uat.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}
	cfg.Log.Debug("Config", "config", cfg)

	// Start servers
	svc := service.New(service.Config{
		HealthzAddr: cfg.HealthzAddr,
		MetricsAddr: cfg.MetricsAddr,
	}, log)
	svc.Start(ctx.Context)

	uatService, err := uat.New(ctx.Context, cfg, Version, closeApp, uat.WithStopHook(svc.Shutdown))
	if err != nil {
		svc.Shutdown()
		// Wrap in RuntimeError to signal this should exit with code 2
		return nil, uat.NewRuntimeError(fmt.Errorf("failed to create uat: %w", err))
	}

	return uatService, nil
}
