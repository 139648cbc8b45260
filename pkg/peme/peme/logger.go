package peme

import (
	"io"
	"strings"
	"sync"

	"github.com/sambeau/peme/pkg/peme/ast"
	"github.com/sambeau/peme/pkg/peme/evaluator"
)

// Logger is an alias for evaluator.Logger for convenience
type Logger = evaluator.Logger

// StdoutLogger returns a logger that writes to stdout (default for CLI/REPL)
func StdoutLogger() Logger {
	return evaluator.DefaultLogger
}

// WriterLogger returns a logger that writes to an io.Writer
func WriterLogger(w io.Writer) Logger {
	return evaluator.NewWriterLogger(w)
}

// BufferedLogger captures printed lines together with the values each print
// received, so embedders can inspect results without reparsing output.
type BufferedLogger struct {
	mu      sync.Mutex
	lines   []string
	values  [][]ast.Node
	partial strings.Builder
	pending []ast.Node
}

// NewBufferedLogger creates a new buffered logger
func NewBufferedLogger() *BufferedLogger {
	return &BufferedLogger{}
}

func (l *BufferedLogger) Log(values ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.partial.WriteString(evaluator.DisplayValues(values...))
	l.pending = appendNodes(l.pending, values)
}

func (l *BufferedLogger) LogLine(values ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, l.partial.String()+evaluator.DisplayValues(values...))
	l.values = append(l.values, appendNodes(l.pending, values))
	l.partial.Reset()
	l.pending = nil
}

func appendNodes(nodes []ast.Node, values []any) []ast.Node {
	for _, v := range values {
		if n, ok := v.(ast.Node); ok {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// String returns all captured output, one printed line per line.
func (l *BufferedLogger) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var sb strings.Builder
	for _, line := range l.lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteString(l.partial.String())
	return sb.String()
}

// Lines returns the completed lines.
func (l *BufferedLogger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

// Values returns the nodes passed to each completed print, in order.
func (l *BufferedLogger) Values() [][]ast.Node {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([][]ast.Node(nil), l.values...)
}

// Reset clears all captured output
func (l *BufferedLogger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = nil
	l.values = nil
	l.partial.Reset()
	l.pending = nil
}

type nullLogger struct{}

func (nullLogger) Log(values ...any)     {}
func (nullLogger) LogLine(values ...any) {}

// NullLogger returns a logger that discards all output
func NullLogger() Logger {
	return nullLogger{}
}
