package format

import (
	"strings"
	"unicode/utf8"
)

// MaxLineWidth is the target maximum line length.
const MaxLineWidth = 80

// IndentString is written once per indentation level.
const IndentString = "  "

// Printer manages formatting state and output
type Printer struct {
	output  strings.Builder
	indent  int // Current indentation level
	linePos int // Current position in the current line, in runes
}

// NewPrinter creates a new Printer instance
func NewPrinter() *Printer {
	return &Printer{}
}

// String returns the formatted output
func (p *Printer) String() string {
	return p.output.String()
}

// Reset clears the printer state for reuse
func (p *Printer) Reset() {
	p.output.Reset()
	p.indent = 0
	p.linePos = 0
}

func (p *Printer) write(s string) {
	p.output.WriteString(s)
	p.linePos += utf8.RuneCountInString(s)
}

func (p *Printer) writeln(s string) {
	p.write(s)
	p.newline()
}

func (p *Printer) newline() {
	p.output.WriteString("\n")
	p.linePos = 0
}

func (p *Printer) writeIndent() {
	p.write(strings.Repeat(IndentString, p.indent))
}

func (p *Printer) indentInc() {
	p.indent++
}

func (p *Printer) indentDec() {
	if p.indent > 0 {
		p.indent--
	}
}

// fitsOnLine reports whether s can be written at the current position
// without passing MaxLineWidth.
func (p *Printer) fitsOnLine(s string) bool {
	return p.linePos+utf8.RuneCountInString(s) <= MaxLineWidth
}
