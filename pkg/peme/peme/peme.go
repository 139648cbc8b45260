// Package peme provides a public API for embedding the peme interpreter.
package peme

import (
	"errors"
	"os"

	"github.com/sambeau/peme/pkg/peme/ast"
	perrors "github.com/sambeau/peme/pkg/peme/errors"
	"github.com/sambeau/peme/pkg/peme/evaluator"
	"github.com/sambeau/peme/pkg/peme/parser"
	"github.com/sambeau/peme/pkg/peme/stdlib"
)

// Options controls how a root scope is prepared.
type Options struct {
	Filename   string
	Logger     Logger
	Args       []string
	NoStdlib   bool
	StdlibPath string // replaces the embedded library when set
	MaxDepth   int
}

// Option configures Options.
type Option func(*Options)

// WithFilename names the source in diagnostics.
func WithFilename(name string) Option {
	return func(o *Options) { o.Filename = name }
}

// WithLogger sets where print writes.
func WithLogger(l Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithArgs binds the script arguments to argv.
func WithArgs(args []string) Option {
	return func(o *Options) { o.Args = args }
}

// WithoutStdlib skips loading the standard library.
func WithoutStdlib() Option {
	return func(o *Options) { o.NoStdlib = true }
}

// WithStdlibPath loads the standard library from a file instead.
func WithStdlibPath(path string) Option {
	return func(o *Options) { o.StdlibPath = path }
}

// WithMaxDepth bounds nested calls; zero or less means unbounded.
func WithMaxDepth(n int) Option {
	return func(o *Options) { o.MaxDepth = n }
}

func buildOptions(opts []Option) *Options {
	o := &Options{
		Filename: "<eval>",
		Logger:   StdoutLogger(),
		MaxDepth: evaluator.DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NewEnvironment returns a root scope with the standard library loaded and
// argv bound.
func NewEnvironment(opts ...Option) (*evaluator.Environment, error) {
	return newEnvironment(buildOptions(opts))
}

func newEnvironment(o *Options) (*evaluator.Environment, error) {
	env := evaluator.NewEnvironment()
	env.Runtime().Logger = o.Logger
	env.Runtime().MaxDepth = o.MaxDepth

	argv := make([]ast.Node, len(o.Args))
	for i, a := range o.Args {
		argv[i] = ast.NewString(a)
	}
	env.Declare("argv", ast.NewList(argv...))

	switch {
	case o.NoStdlib:
	case o.StdlibPath != "":
		if err := stdlib.LoadFile(env, o.StdlibPath); err != nil {
			return nil, err
		}
	default:
		if err := stdlib.Load(env); err != nil {
			return nil, err
		}
	}
	return env, nil
}

// Result holds the outcome of a successful run.
type Result struct {
	Value ast.Node
	Env   *evaluator.Environment
}

// String returns the inspected result value.
func (r *Result) String() string {
	if r.Value == nil {
		return "nil"
	}
	return r.Value.Inspect()
}

// Run parses and evaluates source in a fresh root scope.
func Run(source string, opts ...Option) (*Result, error) {
	o := buildOptions(opts)
	env, err := newEnvironment(o)
	if err != nil {
		return nil, err
	}
	return Eval(source, env, o.Filename)
}

// RunFile reads and runs a script.
func RunFile(path string, opts ...Option) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, perrors.New("IO-0001", map[string]any{"Path": path, "GoError": err.Error()})
	}
	return Run(string(data), append([]Option{WithFilename(path)}, opts...)...)
}

// Eval parses and evaluates source in an existing scope.
func Eval(source string, env *evaluator.Environment, filename string) (*Result, error) {
	program, err := parser.Parse(source, filename)
	if err != nil {
		return nil, err
	}
	value, err := evaluator.EvalProgram(program, env)
	if err != nil {
		return nil, err
	}
	return &Result{Value: value, Env: env}, nil
}

// Check parses source without evaluating it.
func Check(source, filename string) error {
	_, err := parser.Parse(source, filename)
	return err
}

// FormatError renders err for a terminal, with the call-stack backtrace
// when err is a peme diagnostic.
func FormatError(err error) string {
	var perr *perrors.PemeError
	if errors.As(err, &perr) {
		return perr.Backtrace()
	}
	return "error: " + err.Error()
}

// FormatErrorJSON renders err as an indented JSON document. Errors from
// outside the interpreter are reported with the io class.
func FormatErrorJSON(err error) string {
	var perr *perrors.PemeError
	if !errors.As(err, &perr) {
		perr = perrors.NewSimple(perrors.ClassIO, err.Error())
	}
	data, jerr := perr.ToJSONIndent()
	if jerr != nil {
		return FormatError(err)
	}
	return string(data)
}
