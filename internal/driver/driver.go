// Package driver orchestrates the expansion phase loop (§4.6): parse,
// scan, evaluate invocations in source order, apply edits, re-parse,
// run registered transforms, apply their edits, and repeat to a fixed
// point or the phase cap.
package driver

import (
	"context"
	"fmt"

	"github.com/upplang/uppc/internal/cst"
	"github.com/upplang/uppc/internal/diagnostics"
	"github.com/upplang/uppc/internal/editbuf"
	"github.com/upplang/uppc/internal/engine"
	"github.com/upplang/uppc/internal/sandbox"
)

// DefaultMaxPhases is the iteration bound §4.6 calls MAX_PHASES.
const DefaultMaxPhases = 64

// Config tunes one expansion run.
type Config struct {
	File      string
	MaxPhases int
	Verbose   bool // wrap each replaced invocation in a comment showing the original text
	Logger    func(string)
}

func (c Config) maxPhases() int {
	if c.MaxPhases > 0 {
		return c.MaxPhases
	}
	return DefaultMaxPhases
}

// Result is the outcome of one expansion run.
type Result struct {
	Output      string
	Diagnostics []diagnostics.Diagnostic
	Phases      int
}

// Run expands source to a fixed point against extraDefs (e.g. the
// standard macro library) plus whatever @define blocks source itself
// contains.
func Run(ctx context.Context, source []byte, cfg Config, extraDefs ...*engine.Definition) (Result, error) {
	reg := engine.NewRegistry()
	for _, d := range extraDefs {
		reg.Register(d)
	}

	userReg, cleaned, defDiags := engine.ExtractDefinitions(source)
	for _, d := range userReg.All() {
		reg.Register(d)
	}
	if len(defDiags) > 0 {
		return Result{Diagnostics: defDiags}, fmt.Errorf("syntax-at-boundary: malformed @define block")
	}

	parser := cst.NewParser()
	bridge := sandbox.New(parser, cfg.File)
	if cfg.Logger != nil {
		bridge.SetLogger(cfg.Logger)
	}

	current := cleaned
	var allDiags []diagnostics.Diagnostic
	phase := 0
	bodies := make(map[*engine.Definition]*sandbox.Body)

	for {
		invs := engine.ScanInvocations(current)
		if len(invs) == 0 && bridge.PendingTransformCount() == 0 {
			break
		}

		// Parse a masked copy so the host grammar never has to recover
		// from the '@' sigil: masking blanks each invocation's span to
		// spaces (preserving newlines) without changing its length, so
		// the resulting tree's byte offsets still index straight into
		// the real, unmasked buffer everything else operates on.
		masked := engine.Mask(current, invs)
		tree, err := parser.ParseDisplay(ctx, masked, current)
		if err != nil {
			return Result{Output: current, Diagnostics: allDiags}, fmt.Errorf("parse error in phase %d: %w", phase, err)
		}
		bridge.SetTree(tree)

		var buf editbuf.Buffer
		var hoists []string

		for _, inv := range invs {
			def, known := reg.Lookup(inv.Name)
			if !known {
				allDiags = append(allDiags, diagnostics.New(diagnostics.KindUnresolvedMacro, cfg.File,
					diagnostics.PositionAt(current, inv.Start), "unresolved macro: %s", inv.Name))
				continue
			}
			if arityDiag := engine.CheckArity(inv, def, cfg.File, current); arityDiag != nil {
				allDiags = append(allDiags, *arityDiag)
				continue
			}

			body, ok := bodies[def]
			if !ok {
				body = bodyOf(def)
				bodies[def] = body
			}

			ctxNode := engine.BindContext(tree.Root(), inv.Start, inv.End)
			result := bridge.Evaluate(body, ctxNode, inv.Start, inv.End, inv.Args)
			allDiags = append(allDiags, result.Diagnostics...)
			if result.Aborted {
				continue
			}

			for _, e := range result.Edits {
				buf.Submit(e.Start, e.End, e.Text)
			}
			hoists = append(hoists, result.Hoists...)

			replacement := result.ReturnText
			if cfg.Verbose {
				replacement = wrapComment(current[inv.Start:inv.End], replacement)
			}
			buf.Submit(inv.Start, inv.End, replacement)
		}

		next, warnings, err := applyPhase(&buf, hoists, current, tree)
		allDiags = append(allDiags, warnings...)
		if err != nil {
			allDiags = append(allDiags, diagnostics.New(diagnostics.KindEditConflict, cfg.File,
				diagnostics.Position{}, "%s", err.Error()))
			return Result{Output: current, Diagnostics: allDiags, Phases: phase}, err
		}
		current = next

		postInvs := engine.ScanInvocations(current)
		tree, err = parser.ParseDisplay(ctx, engine.Mask(current, postInvs), current)
		if err != nil {
			return Result{Output: current, Diagnostics: allDiags, Phases: phase}, fmt.Errorf("parse error after phase %d: %w", phase, err)
		}
		bridge.SetTree(tree)

		transforms := bridge.TakeTransforms()
		if len(transforms) > 0 {
			var tbuf editbuf.Buffer
			var thoists []string
			for _, t := range transforms {
				tres := bridge.RunTransform(t)
				allDiags = append(allDiags, tres.Diagnostics...)
				if tres.Aborted {
					continue
				}
				for _, e := range tres.Edits {
					tbuf.Submit(e.Start, e.End, e.Text)
				}
				thoists = append(thoists, tres.Hoists...)
			}
			next, warnings, err := applyPhase(&tbuf, thoists, current, tree)
			allDiags = append(allDiags, warnings...)
			if err != nil {
				allDiags = append(allDiags, diagnostics.New(diagnostics.KindEditConflict, cfg.File,
					diagnostics.Position{}, "%s", err.Error()))
				return Result{Output: current, Diagnostics: allDiags, Phases: phase}, err
			}
			current = next
		}

		phase++
		if phase > cfg.maxPhases() {
			allDiags = append(allDiags, diagnostics.New(diagnostics.KindIterationLimit, cfg.File,
				diagnostics.Position{}, "exceeded %d phases without reaching a fixed point", cfg.maxPhases()))
			return Result{Output: current, Diagnostics: allDiags, Phases: phase}, fmt.Errorf("iteration-limit")
		}
	}

	return Result{Output: current, Diagnostics: allDiags, Phases: phase}, nil
}

// applyPhase folds any collected hoist strings into buf as one pure
// insertion at the current root's hoist offset (§4.4), then applies
// the whole buffer against source.
func applyPhase(buf *editbuf.Buffer, hoists []string, source []byte, tree *cst.Tree) (string, []diagnostics.Diagnostic, error) {
	if len(hoists) > 0 {
		offset := editbuf.HoistOffset(tree.Root())
		text := "\n"
		for _, h := range hoists {
			text += h
		}
		buf.Submit(offset, offset, text)
	}
	return buf.Apply(string(source))
}

func bodyOf(def *engine.Definition) *sandbox.Body {
	return &sandbox.Body{Name: def.Name, Params: def.Params, Source: def.Body}
}

func wrapComment(original []byte, replacement string) string {
	return "/* " + string(original) + " */" + replacement
}
