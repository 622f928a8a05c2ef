// Package stdmacros embeds the standard macro library shipped with
// every uppc run: @method, @defer, @forward, and @trap, each adapted
// from the matching macro header in the upp project's own standard
// library (method.h, defer.h) and worked examples (forward.c,
// trap.c). Sources live under upp/ as plain `@define` blocks, the same
// syntax a user's own source file uses, so they are loaded through the
// same lexical extractor rather than a bespoke Go representation.
package stdmacros

import (
	"embed"
	"fmt"

	"github.com/upplang/uppc/internal/engine"
)

//go:embed upp/*.upp.h
var sources embed.FS

// files lists the embedded macro sources in a fixed load order; order
// has no semantic effect (registration is by name) but keeps
// diagnostics reproducible if more than one ever fails to parse.
var files = []string{
	"upp/method.upp.h",
	"upp/defer.upp.h",
	"upp/forward.upp.h",
	"upp/trap.upp.h",
}

// Definitions returns the standard library as a slice of
// engine.Definition, ready to pass as driver.Run's extraDefs. User
// @define blocks of the same name in the program being expanded take
// precedence, since the driver registers extras first and merges the
// user's registry on top.
func Definitions() ([]*engine.Definition, error) {
	var out []*engine.Definition
	for _, path := range files {
		data, err := sources.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("stdmacros: reading %s: %w", path, err)
		}
		reg, _, diags := engine.ExtractDefinitions(data)
		if len(diags) > 0 {
			return nil, fmt.Errorf("stdmacros: %s: %s", path, diags[0].Message)
		}
		out = append(out, reg.All()...)
	}
	return out, nil
}
