// Command flatbundle is the CLI front end over internal/bundle, internal/config,
// and internal/codegen: the pieces spec.md names as out of scope for the core
// (§6 Loader, §9 CLI concerns) but that a runnable reimplementation still
// needs end to end.
//
// Grounded on ludo-technologies-jscan/cmd/jscan's cobra command tree shape
// (root command, subcommands registered via AddCommand, error handling at
// Execute()).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "flatbundle",
		Short: "flatbundle - a demand-driven ES module tree-shaking bundler",
		Long: `flatbundle reads an ES module entry point, follows its import graph,
marks only the statements the entry point demands, and flattens the result
into a single file with every module-level binding renamed to avoid collision.`,
	}

	rootCmd.AddCommand(buildCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(initCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
