package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/flatbundle/flatbundle/internal/bundle"
	"github.com/flatbundle/flatbundle/internal/codegen"
	"github.com/flatbundle/flatbundle/internal/config"
	"github.com/flatbundle/flatbundle/internal/jsparse"
	"github.com/flatbundle/flatbundle/internal/loader"
	"github.com/flatbundle/flatbundle/internal/logger"
)

func buildCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "build [dir]",
		Short: "Bundle the configured entry point into a single flattened file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			out, err := runBuild(dir, configPath)
			if err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a .flatbundle.yaml config file")
	return cmd
}

// runBuild wires internal/config, internal/loader, internal/jsparse,
// internal/bundle, and internal/codegen into one pipeline: load config,
// warm the loader's file cache with a concurrent preload pass, run the
// single-threaded fetch-and-mark pass, flatten the result, and write it out.
func runBuild(dir, configPath string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	cfg, err := config.Load(absDir, configPath)
	if err != nil {
		return "", fmt.Errorf("loading config: %w", err)
	}

	var ignoreLines []string
	if raw, err := os.ReadFile(filepath.Join(absDir, cfg.Ignore)); err == nil {
		ignoreLines = splitLines(string(raw))
	}

	l, err := loader.New(absDir, cfg.External, ignoreLines)
	if err != nil {
		return "", fmt.Errorf("building loader: %w", err)
	}

	entryID := filepath.Join(absDir, cfg.Entry)

	if err := loader.Preload(context.Background(), l, entryID); err != nil {
		return "", fmt.Errorf("preloading: %w", err)
	}

	statements, out, err := buildOnce(l, entryID, cfg.Globals)
	if err != nil {
		return "", err
	}

	bar := progressbar.NewOptions(len(statements),
		progressbar.OptionSetDescription("writing bundle"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
	)
	for range statements {
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	outPath := filepath.Join(absDir, cfg.Out)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(outPath, []byte(out), 0o644); err != nil {
		return "", fmt.Errorf("writing bundle: %w", err)
	}
	return outPath, nil
}

// buildOnce runs one complete fetch-mark-flatten pass. Each call constructs a
// fresh parser and Bundle, since Bundle.Close only releases tree-sitter trees
// safely once codegen is done reading from them — watch mode calls this once
// per rebuild rather than reusing state across builds.
func buildOnce(l *loader.FSLoader, entryID string, globals map[string]string) ([]string, string, error) {
	parser := jsparse.New()
	defer parser.Close()

	log := logger.NewLog()
	b := bundle.New(l, parser, log)
	b.SetGlobals(globals)

	statements, err := b.Build(entryID)
	if err != nil {
		return nil, "", err
	}
	defer b.Close()

	out := codegen.Generate(statements, b.AssumedGlobals())

	for _, msg := range b.Log().Done() {
		fmt.Fprintln(os.Stderr, msg.String())
	}

	names := make([]string, 0, len(statements))
	for _, s := range statements {
		names = append(names, s.Module.ID)
	}
	return names, out, nil
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
