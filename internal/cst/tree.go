package cst

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	sitterc "github.com/smacker/go-tree-sitter/c"
)

// Tree is one parse of a source buffer. It owns every Node produced
// from it; the engine must discard all Nodes from a Tree as soon as a
// new Tree replaces it.
type Tree struct {
	source []byte
	raw    *sitter.Tree
	cache  map[uintptr]*Node
	nextID int
}

// Parser parses source text into a Tree using the C grammar. A Parser
// is reusable across calls; it is not safe for concurrent use.
type Parser struct {
	raw *sitter.Parser
}

// NewParser constructs a Parser bound to the host C grammar.
func NewParser() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(sitterc.GetLanguage())
	return &Parser{raw: p}
}

// Parse produces a fresh Tree from source. Every Node from a prior
// Tree is invalid once this returns; the driver re-parses at every
// phase boundary rather than mutating a Tree in place.
func (p *Parser) Parse(ctx context.Context, source []byte) (*Tree, error) {
	return p.ParseDisplay(ctx, source, source)
}

// ParseDisplay parses grammarSource (the buffer the grammar actually
// sees) but hands out Node.Text() against displaySource instead. The
// driver uses this to parse a masked copy of the buffer, where every
// macro invocation's span has been blanked to spaces so the host
// grammar never has to recover from the '@' sigil, while every Node
// still reports the real, unmasked source text. Masking never changes
// length, so the two buffers' byte offsets always agree; callers are
// responsible for that invariant.
func (p *Parser) ParseDisplay(ctx context.Context, grammarSource, displaySource []byte) (*Tree, error) {
	raw, err := p.raw.ParseCtx(ctx, nil, grammarSource)
	if err != nil {
		return nil, err
	}
	t := &Tree{
		source: displaySource,
		raw:    raw,
		cache:  make(map[uintptr]*Node),
	}
	return t, nil
}

// Source returns the buffer Node.Text reads from: the parsed buffer
// for Parse, the display buffer (not the masked one) for ParseDisplay.
func (t *Tree) Source() []byte {
	return t.source
}

// Root returns the translation-unit root node.
func (t *Tree) Root() *Node {
	return t.wrap(t.raw.RootNode())
}

// Wrap exposes the internal node cache to packages outside cst (such
// as query) that receive a raw *sitter.Node from a tree-sitter API
// call and need the same stable, cached *Node the rest of the engine
// sees for that position.
func (t *Tree) Wrap(raw *sitter.Node) *Node {
	return t.wrap(raw)
}

// wrap caches one *Node per distinct raw tree-sitter node within this
// Tree so repeated access (e.g. two calls to Parent()) yields the
// same id, keyed on the raw node's byte range and type since the
// smacker binding does not expose a stable pointer identity for the
// underlying C node across Go-side allocations.
func (t *Tree) wrap(raw *sitter.Node) *Node {
	if raw == nil {
		return nil
	}
	key := rawKey(raw)
	if existing, ok := t.cache[key]; ok {
		return existing
	}
	n := &Node{tree: t, raw: raw, id: t.nextID}
	t.nextID++
	t.cache[key] = n
	return n
}

// rawKey derives a cache key from a raw node's byte range and type so
// that revisiting the same grammar position returns the same *Node
// and the same stable id.
func rawKey(raw *sitter.Node) uintptr {
	start := uintptr(raw.StartByte())
	end := uintptr(raw.EndByte())
	var typeSum uintptr
	for _, c := range raw.Type() {
		typeSum = typeSum*131 + uintptr(c)
	}
	return start<<40 ^ end<<12 ^ typeSum
}
