// Package pysrc parses Python source files with tree-sitter and exposes the
// typed view of the syntax tree that the test analyzers consume: imports,
// calls, function and class definitions, assignments, and assert statements.
package pysrc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/alexaandru/go-sitter-forest/python"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// Sentinel errors for parse failures.
var (
	// ErrParse indicates tree-sitter could not parse the source.
	ErrParse = errors.New("parse failed")
	// ErrNoRoot indicates the parsed tree has no root node.
	ErrNoRoot = errors.New("no root node")
	// ErrNotText indicates the source is not valid UTF-8 text.
	ErrNotText = errors.New("source is not text")

	errPoolType = errors.New("unexpected parser pool entry type")
)

// Parser parses Python sources. Safe for concurrent use: tree-sitter parser
// instances are pooled, one checked out per Parse call.
type Parser struct {
	pool sync.Pool
}

// NewParser creates a parser for the Python grammar.
func NewParser() *Parser {
	lang := sitter.NewLanguage(python.GetLanguage())

	return &Parser{
		pool: sync.Pool{
			New: func() any {
				tsParser := sitter.NewParser()
				tsParser.SetLanguage(lang)

				return tsParser
			},
		},
	}
}

// Parse parses one file's source and extracts the typed view. The returned
// File is immutable; the syntax tree itself is released before returning.
func (p *Parser) Parse(ctx context.Context, path string, source []byte) (*File, error) {
	if !utf8.Valid(source) {
		return nil, fmt.Errorf("%w: %s", ErrNotText, path)
	}

	tsParser, ok := p.pool.Get().(*sitter.Parser)
	if !ok {
		return nil, errPoolType
	}

	defer p.pool.Put(tsParser)

	tree, err := tsParser.ParseString(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, fmt.Errorf("%w: %s", ErrNoRoot, path)
	}

	file := &File{Path: path, Source: source}
	file.extract(root)

	return file, nil
}
