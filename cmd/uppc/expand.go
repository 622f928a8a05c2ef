package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/upplang/uppc/internal/config"
	"github.com/upplang/uppc/internal/diagnostics"
	"github.com/upplang/uppc/internal/driver"
	"github.com/upplang/uppc/internal/logging"
)

func newExpandCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "expand <file>",
		Short: "Expand macro invocations in a file and print or write the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpand(args[0], outputPath)
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the expanded output here instead of stdout")
	return cmd
}

func runExpand(path, outputPath string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	extraDefs, err := loadExtraDefs()
	if err != nil {
		return err
	}

	log := logging.Module("driver")
	cfg := driver.Config{
		File:      path,
		MaxPhases: resolveMaxPhases(),
		Verbose:   flagVerbose,
		Logger:    logging.Console(),
	}

	result, err := driver.Run(context.Background(), source, cfg, extraDefs...)
	for _, d := range result.Diagnostics {
		if d.Severity == diagnostics.SeverityError {
			log.Error(d.RenderText())
		} else {
			log.Warn(d.RenderText())
		}
	}
	if err != nil {
		return err
	}

	if outputPath == "" {
		fmt.Print(result.Output)
		return nil
	}
	return os.WriteFile(outputPath, []byte(result.Output), 0o644)
}

func resolveMaxPhases() int {
	if flagMaxPhases > 0 {
		return flagMaxPhases
	}
	return config.MaxPhasesFromEnv()
}
