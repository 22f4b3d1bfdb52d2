package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/systemstart/seqflow/pkg/cli"
	"github.com/systemstart/seqflow/pkg/logging"
	"github.com/systemstart/seqflow/pkg/steps"
)

var version = "dev"

// Logging setup before the command line flags are parsed.
const (
	bootLogType  = logging.Tint
	bootLogLevel = "info"
)

const (
	_ = iota
	exitLoggingSetupFailed
	exitDotenvError
	exitRegisterStepsFailed
	exitRunFailed
)

func main() {
	if err := logging.Initialize(bootLogType, bootLogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Error: setting up logging: %v\n", err)
		os.Exit(exitLoggingSetupFailed)
	}

	includeEnv()

	if err := steps.RegisterBuiltins(steps.Default()); err != nil {
		slog.Error("failed to register built-in steps", "error", err)
		os.Exit(exitRegisterStepsFailed)
	}

	cli.Version = version
	app := cli.NewApp(steps.Default(), os.Stdout)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitRunFailed)
	}
}

func includeEnv() {
	err := godotenv.Load()
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("failed to load .env", "error", err)
			os.Exit(exitDotenvError)
		}
		slog.Debug("no .env file found")
	} else {
		slog.Info("using .env file")
	}
}
