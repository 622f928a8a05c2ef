package main

import (
	"github.com/spf13/cobra"

	"github.com/upplang/uppc/internal/logging"
)

var (
	flagVerbose     bool
	flagMaxPhases   int
	flagNoStdMacros bool
)

var rootCmd = &cobra.Command{
	Use:   "uppc",
	Short: "Syntax-aware macro preprocessor for C-like source",
	Long: `uppc expands @name and @name(args) macro invocations against the
concrete syntax tree of a C-like host file, running macro bodies in a
sandboxed scripting runtime that can inspect and rewrite the tree
directly, to a fixed point.`,
	PersistentPreRunE: initializeGlobals,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging and annotate expanded invocations")
	rootCmd.PersistentFlags().IntVar(&flagMaxPhases, "max-phases", 0, "override the expansion phase cap (0 uses the built-in default)")
	rootCmd.PersistentFlags().BoolVar(&flagNoStdMacros, "no-std-macros", false, "do not load the standard macro library")

	rootCmd.AddCommand(newExpandCmd())
	rootCmd.AddCommand(newCheckCmd())
}

func initializeGlobals(cmd *cobra.Command, _ []string) error {
	logging.Setup(logging.Config{Verbose: flagVerbose})
	return nil
}
