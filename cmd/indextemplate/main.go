// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// indextemplate validates, encodes, diffs, and hashes composable index
// templates.
//
// Templates are read from JSON (with JSONC comments and trailing
// commas), YAML, or the framed binary encoding this tool writes. The
// binary encoding is the one cluster nodes exchange: a template, or a
// diff that turns one template version into the next.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/clustermeta/lib/config"
	"github.com/bureau-foundation/clustermeta/lib/indextemplate"
	"github.com/bureau-foundation/clustermeta/lib/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// exitError ends the process with code after the command has already
// written its own output.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

func (e *exitError) ExitCode() int {
	return e.code
}

// usageError prints message and a pointer to --help, then exits 2.
func usageError(stderr io.Writer, format string, args ...any) error {
	fmt.Fprintf(stderr, "error: %s\n\nRun 'indextemplate --help' for usage.\n", fmt.Sprintf(format, args...))
	return &exitError{code: 2}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	// Handle --version before flag parsing to match the other binaries.
	if len(args) > 0 && args[0] == "--version" {
		version.Print(stdout, "indextemplate")
		return nil
	}

	var configPath string
	var verbose bool
	flagSet := pflag.NewFlagSet("indextemplate", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&configPath, "config", "", "path to the config file (default: $"+config.EnvironmentVariable+")")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log debug detail to stderr")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stderr, flagSet)
			return nil
		}
		return usageError(stderr, "%v", err)
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(stderr, flagSet)
		return nil
	}

	remaining := flagSet.Args()
	if len(remaining) == 0 {
		printHelp(stderr, flagSet)
		return &exitError{code: 2}
	}
	cmd := findCommand(remaining[0])
	if cmd == nil {
		return usageError(stderr, "unknown command %q", remaining[0])
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	compression, err := cfg.Compression()
	if err != nil {
		return err
	}

	app := &application{
		config:  cfg,
		logger:  newLogger(stderr, cfg, verbose).With("command", cmd.name),
		options: indextemplate.ParseOptions{Compression: compression},
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
	}
	return cmd.run(app, remaining[1:])
}

// loadConfig prefers --config, then INDEXTEMPLATE_CONFIG. With
// neither, the built-in defaults apply.
func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case path != "":
		cfg, err = config.LoadFile(path)
	case os.Getenv(config.EnvironmentVariable) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg *config.Config, verbose bool) *slog.Logger {
	level, _ := cfg.LogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	options := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, options))
	}
	return slog.New(slog.NewTextHandler(w, options))
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `indextemplate validates, encodes, diffs, and hashes composable index templates.

Templates are read from JSON (comments and trailing commas allowed),
YAML (.yaml, .yml), or binary files written by this tool. Use "-" to
read standard input.

Usage:
  indextemplate [flags] <command> [command flags] [args]

Commands:
`)
	table := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, cmd := range commands {
		fmt.Fprintf(table, "  %s\t%s\n", cmd.usage, cmd.summary)
	}
	table.Flush()

	fmt.Fprintf(w, `
Examples:
  # Check every template in a directory
  indextemplate validate templates/*.json

  # Encode a template for transport, then print it back as JSON
  indextemplate encode --output logs.itpl templates/logs.yaml
  indextemplate decode logs.itpl

  # Compute the diff between two versions and apply it
  indextemplate diff --output logs-v2.itpd templates/logs.json templates/logs-v2.json
  indextemplate apply templates/logs.json logs-v2.itpd

Flags:
`)
	flagSet.SetOutput(w)
	flagSet.PrintDefaults()
	flagSet.SetOutput(io.Discard)
}

// commandFlags returns a flag set for a subcommand that reports
// errors through usageError.
func commandFlags(name string) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("indextemplate "+name, pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.BoolP("help", "h", false, "show help")
	return flagSet
}

// parseCommandFlags parses args and handles --help. It returns done
// when the command should return err without running.
func parseCommandFlags(app *application, cmd *command, flagSet *pflag.FlagSet, args []string) (done bool, err error) {
	if err := flagSet.Parse(args); err != nil && !errors.Is(err, pflag.ErrHelp) {
		return true, usageError(app.stderr, "%s: %v", cmd.name, err)
	}
	if help, _ := flagSet.GetBool("help"); help {
		fmt.Fprintf(app.stderr, "Usage:\n  indextemplate %s\n\n%s\n", cmd.usage, cmd.summary)
		if usages := flagSet.FlagUsages(); strings.TrimSpace(usages) != "" {
			fmt.Fprintf(app.stderr, "\nFlags:\n%s", usages)
		}
		return true, nil
	}
	return false, nil
}
