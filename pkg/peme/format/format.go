// Package format pretty-prints parsed peme code in its indented form.
//
// Output parses back to the same expressions. Comments are not kept, since
// the scanner drops them.
package format

import (
	"strings"

	"github.com/sambeau/peme/pkg/peme/ast"
)

// FormatProgram renders every top-level expression as a logical line.
func FormatProgram(program *ast.Program) string {
	p := NewPrinter()
	for _, n := range program.Nodes {
		p.line(n)
	}
	return p.String()
}

// FormatNode renders a single expression as a logical line.
func FormatNode(n ast.Node) string {
	p := NewPrinter()
	p.line(n)
	return p.String()
}

// compound reports whether n can be written as a bare logical line, that is
// a call of at least two expressions. A lone expression on a line stands for
// itself, so shorter lists keep their parentheses.
func compound(n ast.Node) (*ast.List, bool) {
	l, ok := n.(*ast.List)
	if !ok || len(l.Elements) < 2 || ast.IsAttribute(n) {
		return nil, false
	}
	return l, true
}

func inline(nodes []ast.Node) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.Inspect()
	}
	return strings.Join(parts, " ")
}

// line writes n at the current indentation. A compound expression that is
// too wide keeps its head on the first line and moves the remaining
// operands to indented lines below it.
func (p *Printer) line(n ast.Node) {
	p.writeIndent()

	l, ok := compound(n)
	if !ok {
		p.writeln(n.Inspect())
		return
	}
	if flat := inline(l.Elements); p.fitsOnLine(flat) {
		p.writeln(flat)
		return
	}

	head := 1
	p.write(l.Elements[0].Inspect())
	for head < len(l.Elements)-1 {
		next := l.Elements[head]
		if _, isCompound := compound(next); isCompound && head > 1 {
			break
		}
		text := " " + next.Inspect()
		if !p.fitsOnLine(text) {
			break
		}
		p.write(text)
		head++
	}
	p.newline()

	p.indentInc()
	for _, operand := range l.Elements[head:] {
		p.line(operand)
	}
	p.indentDec()
}
