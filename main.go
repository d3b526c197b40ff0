// Command wallhole places openings where ducts and pipes of a linked MEP
// model cross the walls of a host model. The host model is described by a
// scene program; settings come from an optional HCL file.
//
// Usage:
//
//	wallhole [-config wallhole.hcl] [-log-level debug] [-log-format json] SCENE
//
// The result is written to stdout as JSON. Logs go to stderr.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/chazu/wallhole/pkg/config"
	"github.com/chazu/wallhole/pkg/ctxlog"
)

// ExitError is an error that carries a process exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func main() {
	// Use a minimal logger until the configured one is built.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run holds the command logic so that it can be tested without exiting.
func run(ctx context.Context, args []string, outW, errW io.Writer) error {
	flagSet := flag.NewFlagSet("wallhole", flag.ContinueOnError)
	flagSet.SetOutput(errW)
	flagSet.Usage = func() {
		fmt.Fprint(errW, `
wallhole - place wall openings where linked ducts and pipes cross walls.

Usage:
  wallhole [options] SCENE

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to an HCL configuration file.")
	sceneFlag := flagSet.String("scene", "", "Path to the scene program (alternative to the SCENE argument).")
	logLevelFlag := flagSet.String("log-level", "", "Override the log level: 'debug', 'info', 'warn' or 'error'.")
	logFormatFlag := flagSet.String("log-format", "", "Override the log format: 'text' or 'json'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return &ExitError{Code: 2, Message: err.Error()}
	}

	scenePath := *sceneFlag
	if scenePath == "" && flagSet.NArg() > 0 {
		scenePath = flagSet.Arg(0)
	}
	if scenePath == "" {
		flagSet.Usage()
		return &ExitError{Code: 2, Message: "no scene given"}
	}

	cfg := config.Default()
	if *configFlag != "" {
		loaded, err := config.Load(*configFlag)
		if err != nil {
			return &ExitError{Code: 2, Message: err.Error()}
		}
		cfg = loaded
	}
	if *logLevelFlag != "" {
		cfg.Log.Level = strings.ToLower(*logLevelFlag)
	}
	if *logFormatFlag != "" {
		cfg.Log.Format = strings.ToLower(*logFormatFlag)
	}
	if err := cfg.Validate(); err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}

	logger := newLogger(cfg.Log.Level, cfg.Log.Format, errW)
	ctx = ctxlog.WithLogger(ctx, logger)

	source, err := os.ReadFile(scenePath)
	if err != nil {
		return &ExitError{Code: 1, Message: fmt.Sprintf("failed to read scene: %v", err)}
	}
	logger.Debug("Scene loaded.", "path", scenePath, "bytes", len(source))

	result := NewApp(cfg.Batch).Run(ctx, string(source))

	enc := json.NewEncoder(outW)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	if n := len(result.Errors); n > 0 {
		return &ExitError{Code: 1, Message: fmt.Sprintf("run failed with %d error(s)", n)}
	}
	return nil
}
