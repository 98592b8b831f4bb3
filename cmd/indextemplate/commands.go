// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/bureau-foundation/clustermeta/lib/config"
	"github.com/bureau-foundation/clustermeta/lib/indextemplate"
)

// application carries what every command needs.
type application struct {
	config  *config.Config
	logger  *slog.Logger
	options indextemplate.ParseOptions
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

type command struct {
	name    string
	usage   string
	summary string
	run     func(app *application, args []string) error
}

var commands []*command

func init() {
	commands = []*command{
		{"validate", "validate FILE...", "parse templates and report errors", runValidate},
		{"encode", "encode [--output PATH] [--hex] FILE", "write the binary encoding of a template", runEncode},
		{"decode", "decode FILE", "print a template as canonical JSON", runDecode},
		{"diff", "diff [--output PATH] [--hex] OLD NEW", "summarize or encode the diff between two templates", runDiff},
		{"apply", "apply [--output PATH] [--hex] BASE DIFF", "apply a binary diff to a template", runApply},
		{"hash", "hash FILE...", "print the content hash of templates", runHash},
	}
}

func findCommand(name string) *command {
	for _, cmd := range commands {
		if cmd.name == name {
			return cmd
		}
	}
	return nil
}

func runValidate(app *application, args []string) error {
	cmd := findCommand("validate")
	flagSet := commandFlags(cmd.name)
	if done, err := parseCommandFlags(app, cmd, flagSet, args); done {
		return err
	}
	paths := flagSet.Args()
	if len(paths) == 0 {
		return usageError(app.stderr, "validate: at least one FILE is required")
	}

	styles := newStyles(app.stdout)
	failures := 0
	for _, path := range paths {
		template, err := app.loadTemplate(path)
		if err != nil {
			failures++
			fmt.Fprintf(app.stdout, "%s %s: %v\n", styles.failed.Render("FAIL"), path, err)
			continue
		}
		fmt.Fprintf(app.stdout, "%s %s %s\n", styles.ok.Render("ok  "), path, styles.faint.Render(template.Hash().String()))
	}
	app.logger.Debug("validated templates", "files", len(paths), "failures", failures)
	if failures > 0 {
		return &exitError{code: 1}
	}
	return nil
}

func runEncode(app *application, args []string) error {
	cmd := findCommand("encode")
	flagSet := commandFlags(cmd.name)
	output := flagSet.StringP("output", "o", "", "write to PATH (relative paths resolve against paths.output)")
	asHex := flagSet.Bool("hex", false, "write hexadecimal text instead of binary")
	if done, err := parseCommandFlags(app, cmd, flagSet, args); done {
		return err
	}
	if flagSet.NArg() != 1 {
		return usageError(app.stderr, "encode: exactly one FILE is required")
	}

	template, err := app.loadTemplate(flagSet.Arg(0))
	if err != nil {
		return err
	}
	payload, err := template.MarshalBinary()
	if err != nil {
		return err
	}
	return app.writeBinary(*output, *asHex, frame(frameTemplate, payload))
}

func runDecode(app *application, args []string) error {
	cmd := findCommand("decode")
	flagSet := commandFlags(cmd.name)
	if done, err := parseCommandFlags(app, cmd, flagSet, args); done {
		return err
	}
	if flagSet.NArg() != 1 {
		return usageError(app.stderr, "decode: exactly one FILE is required")
	}

	path := flagSet.Arg(0)
	data, err := app.readInput(path)
	if err != nil {
		return err
	}
	template, trailing, err := decodeTemplateFrame(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	app.reportTrailing(path, trailing)
	return app.printJSON(template)
}

func runDiff(app *application, args []string) error {
	cmd := findCommand("diff")
	flagSet := commandFlags(cmd.name)
	output := flagSet.StringP("output", "o", "", "write the binary diff to PATH instead of printing a summary")
	asHex := flagSet.Bool("hex", false, "write the binary diff as hexadecimal text to stdout")
	if done, err := parseCommandFlags(app, cmd, flagSet, args); done {
		return err
	}
	if flagSet.NArg() != 2 {
		return usageError(app.stderr, "diff: OLD and NEW are required")
	}

	before, err := app.loadTemplate(flagSet.Arg(0))
	if err != nil {
		return err
	}
	after, err := app.loadTemplate(flagSet.Arg(1))
	if err != nil {
		return err
	}
	d := indextemplate.Compute(before, after)
	app.logger.Debug("computed diff", "diff", d.String())

	if *output == "" && !*asHex {
		printSummary(app.stdout, before, after, d)
		return nil
	}
	payload, err := d.MarshalBinary()
	if err != nil {
		return err
	}
	return app.writeBinary(*output, *asHex, frame(frameDiff, payload))
}

func runApply(app *application, args []string) error {
	cmd := findCommand("apply")
	flagSet := commandFlags(cmd.name)
	output := flagSet.StringP("output", "o", "", "write the binary result to PATH instead of printing JSON")
	asHex := flagSet.Bool("hex", false, "write the binary result as hexadecimal text to stdout")
	if done, err := parseCommandFlags(app, cmd, flagSet, args); done {
		return err
	}
	if flagSet.NArg() != 2 {
		return usageError(app.stderr, "apply: BASE and DIFF are required")
	}

	base, err := app.loadTemplate(flagSet.Arg(0))
	if err != nil {
		return err
	}
	diffPath := flagSet.Arg(1)
	data, err := app.readInput(diffPath)
	if err != nil {
		return err
	}
	d, trailing, err := decodeDiffFrame(data)
	if err != nil {
		return fmt.Errorf("%s: %w", diffPath, err)
	}
	app.reportTrailing(diffPath, trailing)

	result, err := indextemplate.Apply(base, d)
	if err != nil {
		return fmt.Errorf("applying %s: %w", diffPath, err)
	}
	app.logger.Debug("applied diff", "diff", d.String(), "hash", result.Hash().String())

	if *output == "" && !*asHex {
		return app.printJSON(result)
	}
	payload, err := result.MarshalBinary()
	if err != nil {
		return err
	}
	return app.writeBinary(*output, *asHex, frame(frameTemplate, payload))
}

func runHash(app *application, args []string) error {
	cmd := findCommand("hash")
	flagSet := commandFlags(cmd.name)
	if done, err := parseCommandFlags(app, cmd, flagSet, args); done {
		return err
	}
	if flagSet.NArg() == 0 {
		return usageError(app.stderr, "hash: at least one FILE is required")
	}
	for _, path := range flagSet.Args() {
		template, err := app.loadTemplate(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(app.stdout, "%s  %s\n", template.Hash(), path)
	}
	return nil
}

// readInput reads path, or standard input for "-", refusing anything
// larger than codec.max_input_bytes.
func (app *application) readInput(path string) ([]byte, error) {
	var source io.Reader
	if path == "-" {
		source = app.stdin
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		source = file
	}

	limit := app.config.Codec.MaxInputBytes
	data, err := io.ReadAll(io.LimitReader(source, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%s is larger than the %d byte input limit", path, limit)
	}
	return data, nil
}

// loadTemplate reads a template in any supported form: framed binary,
// YAML by extension, or JSON.
func (app *application) loadTemplate(path string) (*indextemplate.IndexTemplate, error) {
	data, err := app.readInput(path)
	if err != nil {
		return nil, err
	}

	var template *indextemplate.IndexTemplate
	format := "json"
	switch {
	case isFramed(data):
		format = "binary"
		var trailing int
		template, trailing, err = decodeTemplateFrame(data)
		if err == nil {
			app.reportTrailing(path, trailing)
		}
	case isYAMLPath(path):
		format = "yaml"
		template, err = indextemplate.ParseYAML(data, app.options)
	default:
		template, err = indextemplate.ParseJSON(data, app.options)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	app.logger.Debug("loaded template",
		"path", path,
		"format", format,
		"index_patterns", len(template.IndexPatterns()),
		"hash", template.Hash().String(),
	)
	return template, nil
}

func isYAMLPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func (app *application) reportTrailing(path string, trailing int) {
	if trailing > 0 {
		app.logger.Warn("ignoring trailing bytes after known fields", "path", path, "bytes", trailing)
	}
}

func (app *application) printJSON(template *indextemplate.IndexTemplate) error {
	text, err := indextemplate.EncodeJSON(template)
	if err != nil {
		return err
	}
	_, err = app.stdout.Write(text)
	return err
}

// writeBinary writes data to output, or to stdout as hex or raw bytes.
// Raw bytes are never written to a terminal.
func (app *application) writeBinary(output string, asHex bool, data []byte) error {
	if output != "" {
		if err := app.config.EnsurePaths(); err != nil {
			return err
		}
		path := app.config.OutputPath(output)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return err
		}
		app.logger.Info("wrote binary file", "path", path, "bytes", len(data))
		return nil
	}
	if asHex {
		_, err := fmt.Fprintln(app.stdout, hex.EncodeToString(data))
		return err
	}
	if isTerminal(app.stdout) {
		return usageError(app.stderr, "refusing to write binary data to a terminal; use --output or --hex")
	}
	_, err := app.stdout.Write(data)
	return err
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(file.Fd()))
}
