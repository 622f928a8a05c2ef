// Package config resolves uppc's run-time settings from CLI flags and
// environment variables, in the flag-then-env precedence the example
// pack's CLIs use for global options.
package config

import "os"

// Config is one resolved expansion run's settings.
type Config struct {
	MaxPhases    int
	Verbose      bool
	NoStdMacros  bool
	OutputPath   string
}

const envMaxPhases = "UPPC_MAX_PHASES"

// Default returns the baseline configuration before flags are applied.
func Default() Config {
	return Config{MaxPhases: 0}
}

// MaxPhasesFromEnv reads UPPC_MAX_PHASES as an override for the
// driver's phase cap, returning 0 (meaning "use the driver's default")
// when unset or unparsable.
func MaxPhasesFromEnv() int {
	v := os.Getenv(envMaxPhases)
	if v == "" {
		return 0
	}
	n := 0
	for _, c := range v {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}
