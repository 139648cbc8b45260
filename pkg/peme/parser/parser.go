// Package parser builds the node tree for a peme source unit.
//
// Parsing happens in two layers. Tokens are first assembled into logical
// lines: a physical line plus any following lines swallowed by open
// parentheses. Logical lines are then folded into a tree by comparing their
// indentation. A line indented past the previous one opens a block whose
// head is the previous line; returning to an enclosing indentation closes
// every block above it.
package parser

import (
	"slices"
	"strconv"
	"strings"

	"github.com/sambeau/peme/pkg/peme/ast"
	perrors "github.com/sambeau/peme/pkg/peme/errors"
	"github.com/sambeau/peme/pkg/peme/lexer"
)

type atomParseFn func(tok lexer.Token) (ast.Node, error)

// parenFrame is an open parenthesis and the expressions read since it.
type parenFrame struct {
	start int
	elems []ast.Node
}

// Parser represents the parser
type Parser struct {
	l   *lexer.Lexer
	src *ast.Source

	atomParseFns map[lexer.TokenType]atomParseFn

	// logical line assembly
	parens []parenFrame
	line   []ast.Node
	inLine bool

	// indentation tree
	indents []string
	levels  [][]ast.Node
	last    []ast.Node
}

// New creates a parser over src.
func New(src *ast.Source) *Parser {
	p := &Parser{
		l:   lexer.New(src.Text),
		src: src,
	}

	p.atomParseFns = map[lexer.TokenType]atomParseFn{
		lexer.INT:    p.parseInt,
		lexer.FLOAT:  p.parseFloat,
		lexer.STRING: p.parseString,
		lexer.SYMBOL: p.parseSymbol,
	}
	return p
}

// Parse parses text as one source unit.
func Parse(text, filename string) (*ast.Program, error) {
	return New(ast.NewSource(text, filename)).ParseProgram()
}

// ParseProgram reads the whole unit and returns its top-level expressions.
// The first lexical or syntax error stops parsing.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	for {
		tok, err := p.l.NextToken()
		if err != nil {
			return nil, p.annotateLexError(err)
		}

		switch tok.Type {
		case lexer.EOF:
			if len(p.parens) > 0 {
				return nil, p.error("PARSE-0002", p.parens[len(p.parens)-1].start, nil)
			}
			if p.inLine {
				p.endLine()
			}
			return &ast.Program{Nodes: p.finish(), Source: p.src}, nil

		case lexer.LINE:
			if len(p.parens) > 0 {
				continue
			}
			if p.inLine {
				p.endLine()
			}
			if err := p.startLine(tok); err != nil {
				return nil, err
			}

		case lexer.LPAREN:
			p.parens = append(p.parens, parenFrame{start: tok.Start})

		case lexer.RPAREN:
			if len(p.parens) == 0 {
				return nil, p.error("PARSE-0001", tok.Start, nil)
			}
			frame := p.parens[len(p.parens)-1]
			p.parens = p.parens[:len(p.parens)-1]
			list := ast.NewList(frame.elems...)
			list.SetPosition(ast.Span{Start: frame.start, End: tok.End}, p.src)
			p.push(list)

		case lexer.ATTRIBUTE:
			if err := p.parseAttribute(tok); err != nil {
				return nil, err
			}

		default:
			fn, ok := p.atomParseFns[tok.Type]
			if !ok {
				return nil, p.error("LEX-0001", tok.Start, map[string]any{"Token": tok.Literal})
			}
			node, err := fn(tok)
			if err != nil {
				return nil, err
			}
			node.SetPosition(ast.Span{Start: tok.Start, End: tok.End}, p.src)
			p.push(node)
		}
	}
}

// push appends n to the innermost open parenthesis, or to the current line.
func (p *Parser) push(n ast.Node) {
	if len(p.parens) > 0 {
		top := &p.parens[len(p.parens)-1]
		top.elems = append(top.elems, n)
		return
	}
	p.line = append(p.line, n)
}

// pop removes the last expression pushed at the current nesting depth.
func (p *Parser) pop() (ast.Node, bool) {
	acc := &p.line
	if len(p.parens) > 0 {
		acc = &p.parens[len(p.parens)-1].elems
	}
	if len(*acc) == 0 {
		return nil, false
	}
	n := (*acc)[len(*acc)-1]
	*acc = (*acc)[:len(*acc)-1]
	return n, true
}

func (p *Parser) parseAttribute(tok lexer.Token) error {
	owner, ok := p.pop()
	if !ok {
		return p.error("PARSE-0004", tok.Start, map[string]any{"Name": tok.Literal})
	}
	name := ast.NewSymbol(tok.Literal)
	name.SetPosition(ast.Span{Start: tok.Start + 1, End: tok.End}, p.src)

	attr := ast.NewAttribute(owner, name)
	attr.Elements[0].SetPosition(ast.Span{Start: tok.Start, End: tok.End}, p.src)
	attr.SetPosition(ast.Span{Start: owner.Span().Start, End: tok.End}, p.src)
	p.push(attr)
	return nil
}

func (p *Parser) parseInt(tok lexer.Token) (ast.Node, error) {
	v, err := strconv.ParseInt(tok.Literal, 10, 64)
	if err != nil {
		return nil, p.error("PARSE-0005", tok.Start, map[string]any{"Literal": tok.Literal})
	}
	return ast.NewInt(v), nil
}

func (p *Parser) parseFloat(tok lexer.Token) (ast.Node, error) {
	v, err := strconv.ParseFloat(tok.Literal, 64)
	if err != nil && !isRangeError(err) {
		return nil, p.error("LEX-0001", tok.Start, map[string]any{"Token": tok.Literal})
	}
	return ast.NewFloat(v), nil
}

func isRangeError(err error) bool {
	ne, ok := err.(*strconv.NumError)
	return ok && ne.Err == strconv.ErrRange
}

func (p *Parser) parseString(tok lexer.Token) (ast.Node, error) {
	return ast.NewString(tok.Literal), nil
}

func (p *Parser) parseSymbol(tok lexer.Token) (ast.Node, error) {
	return ast.NewSymbol(tok.Literal), nil
}

// startLine places the previous logical line into the tree according to the
// indentation of the line that begins at tok.
func (p *Parser) startLine(tok lexer.Token) error {
	indent := tok.Literal
	p.inLine = true
	p.line = nil

	if p.indents == nil {
		p.indents = []string{indent}
		p.levels = [][]ast.Node{nil}
		return nil
	}

	top := len(p.indents) - 1
	switch {
	case slices.Contains(p.indents, indent):
		p.levels[top] = append(p.levels[top], p.collapse(p.last))
		p.dedentTo(indent)
	case strings.HasPrefix(indent, p.indents[top]):
		// The previous line becomes the head of a new block.
		p.indents = append(p.indents, indent)
		p.levels = append(p.levels, slices.Clone(p.last))
	default:
		return p.error("PARSE-0003", tok.Start, map[string]any{"Indent": strconv.Quote(indent)})
	}
	return nil
}

func (p *Parser) endLine() {
	p.last = p.line
	p.line = nil
	p.inLine = false
}

// dedentTo closes blocks until indent is on top of the stack.
func (p *Parser) dedentTo(indent string) {
	for p.indents[len(p.indents)-1] != indent {
		block := p.levels[len(p.levels)-1]
		p.indents = p.indents[:len(p.indents)-1]
		p.levels = p.levels[:len(p.levels)-1]
		top := len(p.levels) - 1
		p.levels[top] = append(p.levels[top], p.block(block))
	}
}

// finish closes every open block and returns the top-level expressions.
func (p *Parser) finish() []ast.Node {
	if p.indents == nil {
		return []ast.Node{}
	}
	top := len(p.levels) - 1
	p.levels[top] = append(p.levels[top], p.collapse(p.last))
	p.dedentTo(p.indents[0])
	return p.levels[0]
}

// collapse turns a logical line into a single expression: one expression
// stands alone, several form a call.
func (p *Parser) collapse(exprs []ast.Node) ast.Node {
	if len(exprs) == 1 {
		return exprs[0]
	}
	return p.block(exprs)
}

func (p *Parser) block(exprs []ast.Node) *ast.List {
	list := ast.NewList(exprs...)
	if len(exprs) > 0 {
		list.SetPosition(ast.Span{
			Start: exprs[0].Span().Start,
			End:   exprs[len(exprs)-1].Span().End,
		}, p.src)
	}
	return list
}

func (p *Parser) error(code string, offset int, data map[string]any) *perrors.PemeError {
	return p.src.Annotate(perrors.New(code, data), offset)
}

// annotateLexError adds line and column to an error from the lexer.
func (p *Parser) annotateLexError(err error) error {
	perr, ok := err.(*perrors.PemeError)
	if !ok {
		return err
	}
	if offset, ok := perr.Data["Offset"].(int); ok {
		p.src.Annotate(perr, offset)
	}
	return perr
}

// Incomplete reports whether err means the input ended too early: an open
// parenthesis, string or block comment. Interactive callers use it to keep
// reading.
func Incomplete(err error) bool {
	perr, ok := err.(*perrors.PemeError)
	if !ok {
		return false
	}
	switch perr.Code {
	case "PARSE-0002", "LEX-0002", "LEX-0003":
		return true
	}
	return false
}
