package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/upplang/uppc/internal/diagnostics"
	"github.com/upplang/uppc/internal/driver"
)

// newCheckCmd expands a file purely to surface diagnostics, discarding
// the expanded output; exit status reflects whether any error-severity
// diagnostic was produced.
func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Expand a file and report diagnostics without writing output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(args[0])
		},
	}
}

func runCheck(path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	extraDefs, err := loadExtraDefs()
	if err != nil {
		return err
	}

	cfg := driver.Config{
		File:      path,
		MaxPhases: resolveMaxPhases(),
		Verbose:   flagVerbose,
	}

	result, runErr := driver.Run(context.Background(), source, cfg, extraDefs...)

	hasErr := runErr != nil
	for _, d := range result.Diagnostics {
		fmt.Fprintln(os.Stderr, d.RenderText())
		if d.Severity == diagnostics.SeverityError {
			hasErr = true
		}
	}
	if hasErr {
		return fmt.Errorf("check failed")
	}
	fmt.Printf("ok: %d phase(s)\n", result.Phases)
	return nil
}
