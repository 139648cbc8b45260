// Package evaluator runs peme programs: the scope chain, the recursive
// evaluator, the special forms and builtins, and operator overloading on
// user objects.
package evaluator

import (
	"errors"

	"github.com/sambeau/peme/pkg/peme/ast"
	perrors "github.com/sambeau/peme/pkg/peme/errors"
)

// Eval evaluates node in env.
func Eval(node ast.Node, env *Environment) (ast.Node, error) {
	switch node := node.(type) {
	case *ast.Symbol:
		return evalSymbol(node, env)
	case *ast.List:
		return evalCombination(node, env)
	default:
		// Numbers, strings, nil, booleans, objects and callables.
		return node, nil
	}
}

// EvalProgram evaluates each top-level expression in order and returns the
// value of the last one, or nil for an empty program.
func EvalProgram(program *ast.Program, env *Environment) (ast.Node, error) {
	return evalSequence(program.Nodes, env)
}

func evalSequence(nodes []ast.Node, env *Environment) (ast.Node, error) {
	var result ast.Node = ast.NIL
	for _, n := range nodes {
		var err error
		result, err = Eval(n, env)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func evalSymbol(sym *ast.Symbol, env *Environment) (ast.Node, error) {
	if v, ok := env.Lookup(sym.Name); ok {
		return v, nil
	}
	err := perrors.NewUnboundSymbol(sym.Name, env.AllIdentifiers())
	return nil, annotate(err, sym)
}

func evalCombination(call *ast.List, env *Environment) (ast.Node, error) {
	if len(call.Elements) == 0 {
		return nil, errorAt(call, "TYPE-0004", nil)
	}

	head, err := Eval(call.Elements[0], env)
	if err != nil {
		return nil, err
	}

	switch fn := head.(type) {
	case *Form:
		result, err := fn.Fn(env, call, call.Elements[1:])
		if err != nil {
			return nil, positioned(err, call)
		}
		return result, nil

	case *Lambda, *Builtin:
		args := make([]ast.Node, 0, len(call.Elements)-1)
		for _, operand := range call.Elements[1:] {
			arg, err := Eval(operand, env)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		return invoke(call, fn, args, env)

	default:
		return nil, errorAt(call.Elements[0], "TYPE-0002", map[string]any{"Got": describe(head)})
	}
}

// invoke calls fn with the call site pushed on the call stack. The first
// frame to see a failure records the stack in the error.
func invoke(call *ast.List, fn ast.Node, args []ast.Node, env *Environment) (ast.Node, error) {
	rt := env.rt
	if err := rt.push(call); err != nil {
		return nil, err
	}
	defer rt.pop()

	result, err := Apply(fn, args, env)
	if err != nil {
		perr := positioned(err, call)
		if !perr.Captured() {
			perr.CaptureFrames(rt.Frames())
		}
		return nil, perr
	}
	return result, nil
}

// Apply calls a Lambda or Builtin with evaluated arguments. It does not
// touch the call stack.
func Apply(fn ast.Node, args []ast.Node, env *Environment) (ast.Node, error) {
	switch fn := fn.(type) {
	case *Lambda:
		return applyLambda(fn, args)
	case *Builtin:
		return fn.Fn(env, args)
	default:
		return nil, perrors.New("TYPE-0002", map[string]any{"Got": describe(fn)})
	}
}

func applyLambda(fn *Lambda, args []ast.Node) (ast.Node, error) {
	if len(args) != len(fn.Params) {
		name := fn.Name
		if name == "" {
			name = "<anonymous>"
		}
		return nil, perrors.New("ARITY-0001", map[string]any{
			"Function": name,
			"Want":     len(fn.Params),
			"Got":      len(args),
		})
	}

	scope := NewEnclosedEnvironment(fn.Env)
	for i, param := range fn.Params {
		scope.Declare(param, args[i])
	}
	return evalSequence(fn.Body, scope)
}

// describe names a value in an error message: its inspected text for
// callables, its variant name otherwise.
func describe(n ast.Node) string {
	switch n.(type) {
	case *Lambda, *Builtin, *Form, *ast.Object:
		return n.Inspect()
	}
	return typeName(n) + " " + n.Inspect()
}

// errorAt builds a catalog error positioned at node.
func errorAt(node ast.Node, code string, data map[string]any) *perrors.PemeError {
	return annotate(perrors.New(code, data), node)
}

// annotate positions err at node when node came from source.
func annotate(err *perrors.PemeError, node ast.Node) *perrors.PemeError {
	if src := node.Source(); src != nil {
		src.Annotate(err, node.Span().Start)
	}
	return err
}

// positioned converts err to a PemeError and gives it node's position if it
// has none yet.
func positioned(err error, node ast.Node) *perrors.PemeError {
	var perr *perrors.PemeError
	if !errors.As(err, &perr) {
		perr = perrors.NewSimple(perrors.ClassType, err.Error())
	}
	if perr.Line == 0 {
		annotate(perr, node)
	}
	return perr
}
