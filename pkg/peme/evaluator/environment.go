package evaluator

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/sambeau/peme/pkg/peme/ast"
	perrors "github.com/sambeau/peme/pkg/peme/errors"
)

// Logger receives the output of print. Values are usually ast.Node and are
// rendered with DisplayValues.
type Logger interface {
	Log(values ...interface{})
	LogLine(values ...interface{})
}

// DisplayValues joins values with spaces, rendering nodes as print shows
// them.
func DisplayValues(values ...interface{}) string {
	parts := make([]string, len(values))
	for i, v := range values {
		if n, ok := v.(ast.Node); ok {
			parts[i] = ast.Display(n)
			continue
		}
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, " ")
}

// writerLogger writes displayed values to an io.Writer.
type writerLogger struct {
	w io.Writer
}

func (l *writerLogger) Log(values ...interface{}) {
	fmt.Fprint(l.w, DisplayValues(values...))
}

func (l *writerLogger) LogLine(values ...interface{}) {
	fmt.Fprintln(l.w, DisplayValues(values...))
}

// NewWriterLogger returns a Logger that writes to w.
func NewWriterLogger(w io.Writer) Logger {
	return &writerLogger{w: w}
}

// DefaultLogger is the default stdout logger
var DefaultLogger Logger = &writerLogger{w: os.Stdout}

// DefaultMaxDepth bounds the number of nested function calls.
const DefaultMaxDepth = 10000

// Runtime is the interpreter state shared by every scope descended from one
// root: the print logger and the stack of in-flight call sites.
type Runtime struct {
	Logger   Logger
	MaxDepth int

	stack []*ast.List
}

func (rt *Runtime) push(call *ast.List) error {
	if rt.MaxDepth > 0 && len(rt.stack) >= rt.MaxDepth {
		return errorAt(call, "REC-0001", map[string]any{"Limit": rt.MaxDepth})
	}
	rt.stack = append(rt.stack, call)
	return nil
}

func (rt *Runtime) pop() {
	rt.stack = rt.stack[:len(rt.stack)-1]
}

// Depth returns the number of calls in flight.
func (rt *Runtime) Depth() int {
	return len(rt.stack)
}

// Frames renders the call stack, outermost call first. Calls built at run
// time have no source and are skipped.
func (rt *Runtime) Frames() []perrors.Frame {
	frames := make([]perrors.Frame, 0, len(rt.stack))
	for _, call := range rt.stack {
		if f, ok := ast.FrameOf(call); ok {
			frames = append(frames, f)
		}
	}
	return frames
}

// Environment represents the environment for variable bindings
type Environment struct {
	store map[string]ast.Node
	outer *Environment
	rt    *Runtime
}

// NewEnvironment creates a root scope holding the special forms, builtin
// functions and global constants.
func NewEnvironment() *Environment {
	env := &Environment{
		store: make(map[string]ast.Node),
		rt:    &Runtime{Logger: DefaultLogger, MaxDepth: DefaultMaxDepth},
	}
	installForms(env)
	installBuiltins(env)
	installGlobals(env)
	return env
}

// NewEnclosedEnvironment creates a new environment with outer reference
func NewEnclosedEnvironment(outer *Environment) *Environment {
	return &Environment{
		store: make(map[string]ast.Node),
		outer: outer,
		rt:    outer.rt,
	}
}

// Runtime returns the state shared with the root scope.
func (e *Environment) Runtime() *Runtime {
	return e.rt
}

// Declare creates or overwrites a binding in this scope only.
func (e *Environment) Declare(name string, val ast.Node) {
	e.store[name] = val
}

// Lookup searches this scope and then each enclosing scope.
func (e *Environment) Lookup(name string) (ast.Node, bool) {
	for env := e; env != nil; env = env.outer {
		if v, ok := env.store[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Assign replaces an existing binding in the nearest scope that has one. It
// reports false, and binds nothing, when no scope has the name.
func (e *Environment) Assign(name string, val ast.Node) bool {
	for env := e; env != nil; env = env.outer {
		if _, ok := env.store[name]; ok {
			env.store[name] = val
			return true
		}
	}
	return false
}

// LocalNames returns the names bound in this scope, sorted.
func (e *Environment) LocalNames() []string {
	names := make([]string, 0, len(e.store))
	for name := range e.store {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllIdentifiers returns every name visible from this scope, sorted.
// This is used for fuzzy matching in error messages and for completion.
func (e *Environment) AllIdentifiers() []string {
	seen := make(map[string]bool)
	var result []string
	for env := e; env != nil; env = env.outer {
		for name := range env.store {
			if !seen[name] {
				seen[name] = true
				result = append(result, name)
			}
		}
	}
	sort.Strings(result)
	return result
}
