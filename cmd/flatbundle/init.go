package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/flatbundle/flatbundle/internal/config"
)

// initCmd generates a starter .flatbundle.yaml. Grounded on
// ludo-technologies-jscan/cmd/jscan/init.go's non-interactive/--interactive
// split, reworked onto flatbundle's own config fields (entry point and
// output path rather than jscan's project-type/strictness choices).
func initCmd() *cobra.Command {
	var configPath string
	var force bool
	var interactive bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a .flatbundle.yaml configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(configPath, force, interactive)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", ".flatbundle.yaml", "Output path for the config file")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Interactive setup wizard")

	return cmd
}

func runInit(configPath string, force, interactive bool) error {
	cfg := config.Default()

	if interactive {
		var err error
		configPath, cfg, err = runInteractiveSetup(configPath)
		if err != nil {
			return err
		}
	}

	if !force {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("%s already exists. Use --force to overwrite", configPath)
		}
	}

	if err := config.WriteConfig(configPath, cfg); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	displayPath := configPath
	if abs, err := filepath.Abs(configPath); err == nil {
		displayPath = abs
	}
	fmt.Printf("Created %s\n", displayPath)
	fmt.Println("\nRun 'flatbundle build' to bundle your project.")
	return nil
}

// runInteractiveSetup collects the wizard's answers and returns them
// unwritten, so runInit can still apply its own existing-file/--force check
// before anything touches disk.
func runInteractiveSetup(defaultConfigPath string) (string, config.Config, error) {
	fmt.Println()
	fmt.Println("flatbundle Configuration Setup")
	fmt.Println("==============================")
	fmt.Println()

	cfg := config.Default()

	entryPrompt := promptui.Prompt{
		Label:   "Entry module path",
		Default: cfg.Entry,
	}
	entry, err := entryPrompt.Run()
	if err != nil {
		return "", cfg, fmt.Errorf("entry prompt cancelled: %w", err)
	}
	if entry != "" {
		cfg.Entry = entry
	}

	outPrompt := promptui.Prompt{
		Label:   "Output bundle path",
		Default: cfg.Out,
	}
	out, err := outPrompt.Run()
	if err != nil {
		return "", cfg, fmt.Errorf("output prompt cancelled: %w", err)
	}
	if out != "" {
		cfg.Out = out
	}

	outputPathPrompt := promptui.Prompt{
		Label:   "Config file path",
		Default: defaultConfigPath,
	}
	configPath, err := outputPathPrompt.Run()
	if err != nil {
		return "", cfg, fmt.Errorf("config path prompt cancelled: %w", err)
	}
	if configPath == "" {
		configPath = defaultConfigPath
	}

	return configPath, cfg, nil
}
