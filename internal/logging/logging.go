// Package logging wraps charmbracelet/log into the ambient logger uppc
// uses for reported diagnostics and sandbox console.log output, in the same
// style as the rest of the example pack's CLI tools: a package-global
// logger configured once from the resolved CLI flags, with per-module
// child loggers carrying a styled prefix.
package logging

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Config selects the verbosity and formatting of the global logger.
type Config struct {
	// Verbose enables debug-level logging, timestamps, and caller info.
	Verbose bool
}

var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: false,
	TimeFormat:      "15:04:05",
})

var prefixColor = lipgloss.Color("6")

// Setup reconfigures the global logger from cfg. Call once, after
// flags are parsed.
func Setup(cfg Config) {
	level := log.InfoLevel
	if cfg.Verbose {
		level = log.DebugLevel
	}
	logger = log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: cfg.Verbose,
		ReportCaller:    cfg.Verbose,
		TimeFormat:      "15:04:05",
	})
}

// Module returns a child logger scoped to name, e.g. "driver" or
// "sandbox", rendered as a colored prefix.
func Module(name string) *log.Logger {
	prefix := lipgloss.NewStyle().Foreground(prefixColor).Render(name)
	return logger.WithPrefix(prefix)
}

// Console returns a sink suitable for the sandbox's console.log: every
// line is logged at debug level under the "sandbox" module, since
// console.log only ever carries macro-author debug output.
func Console() func(string) {
	l := Module("sandbox")
	return func(msg string) {
		l.Debug(msg)
	}
}
