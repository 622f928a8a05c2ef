// Package sandbox embeds the goja JavaScript runtime as the macro
// evaluation environment and binds the `upp` runtime API (§4.2) it
// exposes to macro bodies: node access mirroring the scripting host's
// own tree-sitter property names, edit/hoist/transform submission,
// semantic queries, and pattern matching.
package sandbox

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dop251/goja"

	"github.com/upplang/uppc/internal/cst"
	"github.com/upplang/uppc/internal/diagnostics"
	"github.com/upplang/uppc/internal/query"
	"github.com/upplang/uppc/internal/scope"
)

// PendingEdit is one replace() or upp.consume() deletion submitted
// during the current invocation or transform.
type PendingEdit struct {
	Start int
	End   int
	Text  string
}

// Body is the minimal shape the sandbox needs from a macro
// definition, so the sandbox does not import the engine package; the
// driver imports both and converts one into the other.
type Body struct {
	Name   string
	Params []string
	Source string
}

// EvalResult is everything one macro body invocation produced.
type EvalResult struct {
	ReturnText  string
	HasReturn   bool
	Edits       []PendingEdit
	Hoists      []string
	Diagnostics []diagnostics.Diagnostic
	Aborted     bool
}

// Bridge owns the single goja.Runtime reused across every invocation
// and phase of one expansion run (§7: "a single evaluation context
// per run"), including the upp.registry scratch object.
type Bridge struct {
	vm     *goja.Runtime
	parser *cst.Parser
	file   string

	tree      *cst.Tree
	nodeCache map[int]*jsNode

	compiled  map[*Body]goja.Callable
	counter   int
	generated map[string]bool
	logger    func(string)

	// per-call mutable state, reset at the start of each Evaluate.
	cursor    int
	invStart  int
	edits     []PendingEdit
	hoists    []string
	diags     []diagnostics.Diagnostic
	transforms []goja.Callable
	pendingDiag *diagnostics.Diagnostic
}

// New builds a Bridge with a fresh runtime and an empty registry.
func New(parser *cst.Parser, file string) *Bridge {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.UncapFieldNameMapper())

	b := &Bridge{
		vm:        vm,
		parser:    parser,
		file:      file,
		compiled:  make(map[*Body]goja.Callable),
		generated: make(map[string]bool),
	}

	upp := vm.NewObject()
	upp.Set("registry", vm.NewObject())
	upp.Set("consume", b.consume)
	upp.Set("replace", b.replace)
	upp.Set("hoist", b.hoist)
	upp.Set("registerTransform", b.registerTransform)
	upp.Set("walk", b.walk)
	upp.Set("query", b.query)
	upp.Set("matchReplace", b.matchReplace)
	upp.Set("findEnclosing", b.findEnclosing)
	upp.Set("findReferences", b.findReferences)
	upp.Set("getDefinition", b.getDefinition)
	upp.Set("getType", b.getType)
	upp.Set("getFunctionSignature", b.getFunctionSignature)
	upp.Set("createUniqueIdentifier", b.createUniqueIdentifier)
	upp.Set("isDescendant", b.isDescendant)
	upp.Set("error", b.errorFn)
	upp.Set("code", b.code)
	vm.Set("upp", upp)
	vm.Set("console", b.consoleObject())

	return b
}

func (b *Bridge) uppObject() *goja.Object {
	return b.vm.Get("upp").ToObject(b.vm)
}

// SetLogger routes console.log calls from macro bodies (used by debug
// macros such as dump_tree) to the host's logger instead of dropping
// them.
func (b *Bridge) SetLogger(fn func(string)) {
	b.logger = fn
}

func (b *Bridge) consoleObject() *goja.Object {
	c := b.vm.NewObject()
	c.Set("log", func(call goja.FunctionCall) goja.Value {
		if b.logger == nil {
			return goja.Undefined()
		}
		parts := make([]string, len(call.Arguments))
		for i, a := range call.Arguments {
			parts[i] = a.String()
		}
		msg := parts[0]
		for _, p := range parts[1:] {
			msg += " " + p
		}
		if len(parts) > 0 {
			b.logger(msg)
		}
		return goja.Undefined()
	})
	return c
}

// SetTree points the bridge at the current phase's parse, refreshing
// upp.root and invalidating every cached jsNode (a prior Tree's nodes
// must never be touched again, per §7).
func (b *Bridge) SetTree(tree *cst.Tree) {
	b.tree = tree
	b.nodeCache = make(map[int]*jsNode)
	b.uppObject().Set("root", b.wrap(tree.Root(), 0))
}

// wrap returns the cached jsNode for raw, constructing one if this is
// its first sighting this phase, so repeated access (e.g. two calls
// to .parent) yields the same identity for JS `===` comparisons.
func (b *Bridge) wrap(raw *cst.Node, level int) *jsNode {
	if raw == nil {
		return nil
	}
	if existing, ok := b.nodeCache[raw.ID()]; ok {
		return existing
	}
	n := &jsNode{
		Type:            raw.Type(),
		Text:            raw.Text(),
		StartIndex:      raw.StartByte(),
		EndIndex:        raw.EndByte(),
		Level:           level,
		ChildCount:      raw.ChildCount(),
		NamedChildCount: raw.NamedChildCount(),
		raw:             raw,
		host:            b,
	}
	b.nodeCache[raw.ID()] = n
	return n
}

func (b *Bridge) compile(def *Body) (goja.Callable, error) {
	if fn, ok := b.compiled[def]; ok {
		return fn, nil
	}
	src := "(function(" + joinParams(def.Params) + "){\n" + def.Source + "\n})"
	val, err := b.vm.RunString(src)
	if err != nil {
		return nil, err
	}
	fn, ok := goja.AssertFunction(val)
	if !ok {
		return nil, fmt.Errorf("macro %s did not compile to a function", def.Name)
	}
	b.compiled[def] = fn
	return fn, nil
}

func joinParams(params []string) string {
	out := ""
	for i, p := range params {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}

// Evaluate runs one macro invocation: def's compiled body is called
// with args bound positionally to its declared parameter names, with
// upp.contextNode and upp.invocation set for the duration of the
// call.
func (b *Bridge) Evaluate(def *Body, contextNode *cst.Node, invStart, invEnd int, args []string) EvalResult {
	b.cursor = invEnd
	b.invStart = invStart
	b.edits = nil
	b.hoists = nil
	b.diags = nil
	b.pendingDiag = nil

	upp := b.uppObject()
	upp.Set("contextNode", b.wrap(contextNode, 0))
	invObj := b.vm.NewObject()
	invObj.Set("start", invStart)
	invObj.Set("end", invEnd)
	upp.Set("invocation", invObj)

	fn, err := b.compile(def)
	if err != nil {
		return EvalResult{
			Diagnostics: []diagnostics.Diagnostic{diagnostics.New(diagnostics.KindSandboxError, b.file,
				diagnostics.PositionAt(b.tree.Source(), invStart), "%s", err.Error())},
			Aborted: true,
		}
	}

	callArgs := make([]goja.Value, len(def.Params))
	for i := range callArgs {
		if i < len(args) {
			callArgs[i] = b.vm.ToValue(args[i])
		} else {
			callArgs[i] = b.vm.ToValue("")
		}
	}

	ret, callErr := fn(goja.Undefined(), callArgs...)
	if callErr != nil {
		diag := b.pendingDiag
		if diag == nil {
			d := diagnostics.New(diagnostics.KindSandboxError, b.file,
				diagnostics.PositionAt(b.tree.Source(), invStart), "%s", callErr.Error())
			diag = &d
		}
		return EvalResult{Diagnostics: append(append([]diagnostics.Diagnostic{}, b.diags...), *diag), Aborted: true}
	}

	result := EvalResult{Edits: b.edits, Hoists: b.hoists, Diagnostics: b.diags}
	if ret != nil && !goja.IsUndefined(ret) && !goja.IsNull(ret) {
		result.ReturnText = ret.String()
		result.HasReturn = true
	}
	return result
}

// PendingTransformCount reports how many transforms are queued
// without draining them, for the driver's fixed-point check.
func (b *Bridge) PendingTransformCount() int {
	return len(b.transforms)
}

// TakeTransforms returns every transform registered since the last
// call and clears the queue, so a transform that registers a further
// transform correctly defers it to the next phase.
func (b *Bridge) TakeTransforms() []goja.Callable {
	t := b.transforms
	b.transforms = nil
	return t
}

// RunTransform invokes fn with no arguments (transforms read
// upp.root/upp.registry directly rather than receiving parameters)
// and returns the edits/hoists/diagnostics it produced.
func (b *Bridge) RunTransform(fn goja.Callable) EvalResult {
	b.edits = nil
	b.hoists = nil
	b.diags = nil
	b.pendingDiag = nil

	_, err := fn(goja.Undefined())
	if err != nil {
		diag := b.pendingDiag
		if diag == nil {
			d := diagnostics.New(diagnostics.KindSandboxError, b.file, diagnostics.Position{}, "%s", err.Error())
			diag = &d
		}
		return EvalResult{Diagnostics: append(append([]diagnostics.Diagnostic{}, b.diags...), *diag), Aborted: true}
	}
	return EvalResult{Edits: b.edits, Hoists: b.hoists, Diagnostics: b.diags}
}

// --- upp.* native functions ---

func (b *Bridge) consume(call goja.FunctionCall) goja.Value {
	spec := call.Argument(0)
	types, message, validate := parseConsumeSpec(b.vm, spec)

	node := narrowestNonCommentAtOrAfter(b.tree.Root(), b.cursor)
	ok := node != nil && typeMatches(node.Type(), types)
	if ok && validate != nil {
		v, err := validate(goja.Undefined(), b.vm.ToValue(b.wrap(node, 0)))
		if err != nil || v == nil || !v.ToBoolean() {
			ok = false
		}
	}
	if !ok {
		msg := message
		if msg == "" {
			got := "end of input"
			if node != nil {
				got = node.Type()
			}
			msg = fmt.Sprintf("expected %v, got %s", types, got)
		}
		d := diagnostics.New(diagnostics.KindConsumeTypeMismatch, b.file,
			diagnostics.PositionAt(b.tree.Source(), b.cursor), "%s", msg)
		b.pendingDiag = &d
		panic(b.vm.ToValue(msg))
	}

	b.cursor = node.EndByte()
	b.edits = append(b.edits, PendingEdit{Start: node.StartByte(), End: node.EndByte(), Text: ""})
	return b.vm.ToValue(b.wrap(node, 0))
}

func parseConsumeSpec(vm *goja.Runtime, spec goja.Value) (types []string, message string, validate goja.Callable) {
	if spec == nil || goja.IsUndefined(spec) || goja.IsNull(spec) {
		return nil, "", nil
	}
	switch exported := spec.Export().(type) {
	case string:
		return []string{exported}, "", nil
	case []interface{}:
		for _, e := range exported {
			types = append(types, fmt.Sprint(e))
		}
		return types, "", nil
	}
	obj := spec.ToObject(vm)
	if obj == nil {
		return nil, "", nil
	}
	if t := obj.Get("type"); t != nil && !goja.IsUndefined(t) {
		switch tv := t.Export().(type) {
		case string:
			types = []string{tv}
		case []interface{}:
			for _, e := range tv {
				types = append(types, fmt.Sprint(e))
			}
		}
	}
	if m := obj.Get("message"); m != nil && !goja.IsUndefined(m) {
		message = m.String()
	}
	if v := obj.Get("validate"); v != nil && !goja.IsUndefined(v) {
		if fn, ok := goja.AssertFunction(v); ok {
			validate = fn
		}
	}
	return types, message, validate
}

func typeMatches(actual string, want []string) bool {
	if len(want) == 0 {
		return true
	}
	for _, t := range want {
		if t == actual {
			return true
		}
	}
	return false
}

// narrowestNonCommentAtOrAfter finds the node `consume` claims: the
// outermost syntactic unit starting at or after at (e.g. the whole
// `declaration`, not its leading type token). cst.Walk visits a node
// before its children, so the first node seen at the minimal start
// byte is already the outermost one; later children sharing that same
// start byte are skipped rather than overriding it.
func narrowestNonCommentAtOrAfter(root *cst.Node, at int) *cst.Node {
	var best *cst.Node
	cst.Walk(root, func(n *cst.Node) {
		if !n.IsNamed() || n.IsComment() {
			return
		}
		if n.StartByte() < at {
			return
		}
		if best == nil || n.StartByte() < best.StartByte() {
			best = n
		}
	})
	return best
}

func (b *Bridge) replace(call goja.FunctionCall) goja.Value {
	start, end, ok := b.resolveRange(call.Argument(0))
	if !ok {
		panic(b.vm.NewTypeError("replace: expected a node or {start,end} range"))
	}
	text := call.Argument(1).String()
	b.edits = append(b.edits, PendingEdit{Start: start, End: end, Text: text})
	return goja.Undefined()
}

func (b *Bridge) resolveRange(v goja.Value) (int, int, bool) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return 0, 0, false
	}
	if jn, ok := v.Export().(*jsNode); ok && jn != nil {
		return jn.StartIndex, jn.EndIndex, true
	}
	obj := v.ToObject(b.vm)
	if obj == nil {
		return 0, 0, false
	}
	startVal := obj.Get("start")
	endVal := obj.Get("end")
	if startVal == nil || endVal == nil || goja.IsUndefined(startVal) || goja.IsUndefined(endVal) {
		return 0, 0, false
	}
	return int(startVal.ToInteger()), int(endVal.ToInteger()), true
}

func (b *Bridge) hoist(call goja.FunctionCall) goja.Value {
	b.hoists = append(b.hoists, call.Argument(0).String())
	return goja.Undefined()
}

func (b *Bridge) registerTransform(call goja.FunctionCall) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		panic(b.vm.NewTypeError("registerTransform: expected a function"))
	}
	b.transforms = append(b.transforms, fn)
	return goja.Undefined()
}

func (b *Bridge) walk(call goja.FunctionCall) goja.Value {
	jn, _ := call.Argument(0).Export().(*jsNode)
	if jn == nil {
		jn = b.wrap(b.tree.Root(), 0)
	}
	visitor, ok := goja.AssertFunction(call.Argument(1))
	if !ok {
		panic(b.vm.NewTypeError("walk: expected a visitor function"))
	}
	var rec func(n *jsNode)
	rec = func(n *jsNode) {
		if n == nil {
			return
		}
		if _, err := visitor(goja.Undefined(), b.vm.ToValue(n)); err != nil {
			panic(b.vm.ToValue(err.Error()))
		}
		for _, c := range n.Children() {
			rec(c)
		}
	}
	rec(jn)
	return goja.Undefined()
}

func (b *Bridge) query(call goja.FunctionCall) goja.Value {
	pattern := call.Argument(0).String()
	root := b.rootArg(call.Argument(1))
	matches, err := query.Run(pattern, root)
	if err != nil {
		panic(b.vm.NewTypeError("query: " + err.Error()))
	}
	results := make([]interface{}, len(matches))
	for i, m := range matches {
		capObj := b.vm.NewObject()
		for name, node := range m.Captures {
			capObj.Set(name, b.wrap(node, 0))
		}
		matchObj := b.vm.NewObject()
		matchObj.Set("captures", capObj)
		results[i] = matchObj
	}
	return b.vm.ToValue(results)
}

func (b *Bridge) matchReplace(call goja.FunctionCall) goja.Value {
	root := b.rootArg(call.Argument(0))
	patternSrc := call.Argument(1).String()
	builder, ok := goja.AssertFunction(call.Argument(2))
	if !ok {
		panic(b.vm.NewTypeError("matchReplace: expected a builder function"))
	}

	pat, err := query.Compile(b.parser, patternSrc)
	if err != nil {
		panic(b.vm.NewTypeError("matchReplace: " + err.Error()))
	}
	for _, m := range pat.Find(root) {
		capObj := b.vm.NewObject()
		for name, node := range m.Captures {
			capObj.Set(name, b.wrap(node, 0))
		}
		ret, callErr := builder(goja.Undefined(), capObj)
		if callErr != nil {
			panic(b.vm.ToValue(callErr.Error()))
		}
		if ret != nil && !goja.IsUndefined(ret) && !goja.IsNull(ret) {
			b.edits = append(b.edits, PendingEdit{Start: m.Node.StartByte(), End: m.Node.EndByte(), Text: ret.String()})
		}
	}
	return goja.Undefined()
}

func (b *Bridge) rootArg(v goja.Value) *cst.Node {
	if jn, ok := v.Export().(*jsNode); ok && jn != nil {
		return jn.node()
	}
	return b.tree.Root()
}

func (b *Bridge) findEnclosing(call goja.FunctionCall) goja.Value {
	jn, _ := call.Argument(0).Export().(*jsNode)
	if jn == nil {
		return goja.Null()
	}
	typ := call.Argument(1).String()
	return b.vm.ToValue(b.wrap(cst.FindEnclosing(jn.node(), typ), 0))
}

func (b *Bridge) isDescendant(call goja.FunctionCall) goja.Value {
	a, _ := call.Argument(0).Export().(*jsNode)
	n, _ := call.Argument(1).Export().(*jsNode)
	if a == nil || n == nil {
		return b.vm.ToValue(false)
	}
	return b.vm.ToValue(cst.IsDescendant(a.node(), n.node()))
}

func (b *Bridge) findReferences(call goja.FunctionCall) goja.Value {
	def, _ := call.Argument(0).Export().(*jsNode)
	if def == nil {
		return b.vm.ToValue([]interface{}{})
	}
	refs := scope.FindReferences(b.tree.Root(), def.node())
	out := make([]interface{}, len(refs))
	for i, r := range refs {
		out[i] = b.wrap(r, 0)
	}
	return b.vm.ToValue(out)
}

func (b *Bridge) getDefinition(call goja.FunctionCall) goja.Value {
	ref, _ := call.Argument(0).Export().(*jsNode)
	if ref == nil {
		return goja.Null()
	}
	return b.vm.ToValue(b.wrap(scope.Resolve(ref.node()), 0))
}

func (b *Bridge) getType(call goja.FunctionCall) goja.Value {
	def, _ := call.Argument(0).Export().(*jsNode)
	if def == nil {
		return b.vm.ToValue("void *")
	}
	return b.vm.ToValue(scope.GetType(def.node()))
}

func (b *Bridge) getFunctionSignature(call goja.FunctionCall) goja.Value {
	fn, _ := call.Argument(0).Export().(*jsNode)
	if fn == nil {
		return goja.Null()
	}
	sig := scope.GetFunctionSignature(fn.node())
	obj := b.vm.NewObject()
	obj.Set("returnType", sig.ReturnType)
	obj.Set("name", sig.Name)
	obj.Set("params", sig.Params)
	return obj
}

func (b *Bridge) createUniqueIdentifier(call goja.FunctionCall) goja.Value {
	prefix := call.Argument(0).String()
	source := ""
	if b.tree != nil {
		source = string(b.tree.Source())
	}
	var candidate string
	for {
		b.counter++
		candidate = prefix + "_" + strconv.Itoa(b.counter)
		if b.generated[candidate] {
			continue
		}
		if strings.Contains(source, candidate) {
			continue
		}
		break
	}
	b.generated[candidate] = true
	return b.vm.ToValue(candidate)
}

func (b *Bridge) errorFn(call goja.FunctionCall) goja.Value {
	start, end, ok := b.resolveRange(call.Argument(0))
	pos := diagnostics.Position{Line: 1, Column: 1}
	if ok {
		pos = diagnostics.PositionAt(b.tree.Source(), start)
	}
	_ = end
	msg := call.Argument(1).String()
	d := diagnostics.New(diagnostics.KindUserError, b.file, pos, "%s", msg)
	b.pendingDiag = &d
	panic(b.vm.ToValue(msg))
}

func (b *Bridge) code(call goja.FunctionCall) goja.Value {
	if len(call.Arguments) == 0 {
		return b.vm.ToValue("")
	}
	raw := call.Argument(0).ToObject(b.vm)
	n := raw.Get("length").ToInteger()
	var sb []byte
	for i := int64(0); i < n; i++ {
		part := raw.Get(strconv.FormatInt(i, 10))
		if part != nil {
			sb = append(sb, part.String()...)
		}
		if i+1 < int64(len(call.Arguments)) {
			sb = append(sb, b.interpolate(call.Arguments[i+1])...)
		}
	}
	return b.vm.ToValue(string(sb))
}

// interpolate renders one upp.code`...${value}` substitution: a CST
// node is spliced in as its current text (§4.2), everything else
// (strings, numbers) stringifies the ordinary JS way.
func (b *Bridge) interpolate(v goja.Value) string {
	if jn, ok := v.Export().(*jsNode); ok && jn != nil {
		return jn.Text
	}
	return v.String()
}
