package evaluator

import (
	"github.com/sambeau/peme/pkg/peme/ast"
)

// BuiltinFunction is a host primitive. It receives evaluated arguments.
type BuiltinFunction func(env *Environment, args []ast.Node) (ast.Node, error)

// FormFunction is a host special form. It receives the combination being
// evaluated and its operands unevaluated.
type FormFunction func(env *Environment, call *ast.List, operands []ast.Node) (ast.Node, error)

// Lambda is a user-defined closure. Env is shared with every other closure
// created in the same scope.
type Lambda struct {
	ast.Base
	Name   string
	Params []string
	Body   []ast.Node
	Env    *Environment
}

func (l *Lambda) Type() ast.NodeType { return ast.LAMBDA_NODE }
func (l *Lambda) Inspect() string {
	if l.Name == "" {
		return "<lambda>"
	}
	return "<lambda " + l.Name + ">"
}

// Builtin wraps a BuiltinFunction as a value.
type Builtin struct {
	ast.Base
	Name string
	Fn   BuiltinFunction
}

func (b *Builtin) Type() ast.NodeType { return ast.BUILTIN_NODE }
func (b *Builtin) Inspect() string    { return "<builtin " + b.Name + ">" }

// Form wraps a FormFunction as a value.
type Form struct {
	ast.Base
	Name string
	Fn   FormFunction
}

func (f *Form) Type() ast.NodeType { return ast.FORM_NODE }
func (f *Form) Inspect() string    { return "<form " + f.Name + ">" }

// IsTruthy reports whether n counts as true in a condition. Only nil and
// false are falsy; zero and the empty list are true.
func IsTruthy(n ast.Node) bool {
	switch n := n.(type) {
	case *ast.Nil:
		return false
	case *ast.Bool:
		return n.Value
	default:
		return true
	}
}

// isCallable reports whether n can occupy head position as a function.
func isCallable(n ast.Node) bool {
	switch n.(type) {
	case *Lambda, *Builtin:
		return true
	}
	return false
}

// typeName is the user-facing name of a node's variant.
func typeName(n ast.Node) string {
	switch n.Type() {
	case ast.NIL_NODE:
		return "nil"
	case ast.BOOL_NODE:
		return "bool"
	case ast.INT_NODE:
		return "int"
	case ast.FLOAT_NODE:
		return "float"
	case ast.STRING_NODE:
		return "string"
	case ast.SYMBOL_NODE:
		return "symbol"
	case ast.LIST_NODE:
		return "list"
	case ast.OBJECT_NODE:
		return "object"
	case ast.LAMBDA_NODE:
		return "lambda"
	case ast.BUILTIN_NODE:
		return "builtin"
	case ast.FORM_NODE:
		return "form"
	}
	return string(n.Type())
}
