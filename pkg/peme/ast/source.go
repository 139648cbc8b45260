package ast

import (
	"strings"
	"unicode/utf8"

	perrors "github.com/sambeau/peme/pkg/peme/errors"
)

// Source is one parse unit: a file, a -e argument or a REPL entry.
type Source struct {
	Text     string
	Filename string

	lineStarts []int
}

// NewSource wraps text for position lookups.
func NewSource(text, filename string) *Source {
	s := &Source{Text: text, Filename: filename}
	s.index()
	return s
}

func (s *Source) index() {
	s.lineStarts = []int{0}
	for i := 0; i < len(s.Text); i++ {
		if s.Text[i] == '\n' {
			s.lineStarts = append(s.lineStarts, i+1)
		}
	}
}

// Location maps a byte offset to a 1-based line, a 1-based column counted
// in runes, and the text of that line without its newline.
func (s *Source) Location(offset int) (line, column int, text string) {
	if s.lineStarts == nil {
		s.index()
	}
	if offset < 0 {
		offset = 0
	}
	if offset > len(s.Text) {
		offset = len(s.Text)
	}
	// Binary search for the last line start <= offset.
	lo, hi := 0, len(s.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if s.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	start := s.lineStarts[lo]
	end := len(s.Text)
	if lo+1 < len(s.lineStarts) {
		end = s.lineStarts[lo+1] - 1
	}
	text = strings.TrimSuffix(s.Text[start:end], "\r")
	column = utf8.RuneCountInString(s.Text[start:offset]) + 1
	return lo + 1, column, text
}

// Frame builds a backtrace frame pointing at offset.
func (s *Source) Frame(offset int) perrors.Frame {
	line, column, text := s.Location(offset)
	return perrors.Frame{File: s.Filename, Line: line, Column: column, Text: text}
}

// Annotate fills in the position fields of err from offset.
func (s *Source) Annotate(err *perrors.PemeError, offset int) *perrors.PemeError {
	line, column, text := s.Location(offset)
	err.Line = line
	err.Column = column
	err.SourceLine = text
	if err.File == "" {
		err.File = s.Filename
	}
	return err
}

// FrameOf returns the backtrace frame for a node, or false when the node
// was not produced by the parser.
func FrameOf(n Node) (perrors.Frame, bool) {
	src := n.Source()
	if src == nil {
		return perrors.Frame{}, false
	}
	return src.Frame(n.Span().Start), true
}
