package evaluator

import (
	"math"
	"math/rand/v2"

	"github.com/sambeau/peme/pkg/peme/ast"
	perrors "github.com/sambeau/peme/pkg/peme/errors"
)

// OverloadableOperators are the operator names a user object may implement
// as attributes. Dispatch is on the left operand.
var OverloadableOperators = []string{"+", "-", "*", "/", "remainder", "=", "<"}

var builtins map[string]BuiltinFunction

func init() {
	builtins = map[string]BuiltinFunction{
		"+":         builtinAdd,
		"-":         builtinSubtract,
		"*":         builtinMultiply,
		"/":         binaryBuiltin("/"),
		"remainder": binaryBuiltin("remainder"),
		"=":         builtinEqual,
		"<":         builtinLess,
		">":         builtinGreater,
		"not":       builtinNot,
		"list*":     builtinList,
		"Object":    builtinObject,
		"print":     builtinPrint,
		"gcd":       builtinGCD,
		"random":    builtinRandom,
		"abs":       builtinAbs,
	}
}

func installBuiltins(env *Environment) {
	for name, fn := range builtins {
		env.Declare(name, &Builtin{Name: name, Fn: fn})
	}
}

func installGlobals(env *Environment) {
	env.Declare("nil", ast.NIL)
	env.Declare("true", ast.TRUE)
	env.Declare("false", ast.FALSE)
	env.Declare("pi", ast.NewFloat(math.Pi))
}

func arityError(name string, want, got int) *perrors.PemeError {
	return perrors.New("ARITY-0002", map[string]any{"Function": name, "Want": want, "Got": got})
}

func typeError(name, expected string, got ast.Node) *perrors.PemeError {
	return perrors.New("TYPE-0001", map[string]any{"Function": name, "Expected": expected, "Got": describe(got)})
}

// callOverload invokes the attribute named op on obj.
func callOverload(env *Environment, op string, obj ast.Node, args ...ast.Node) (ast.Node, error) {
	fn, ok := obj.Attr(op)
	if !ok {
		return nil, perrors.New("ATTR-0002", map[string]any{"Operator": op})
	}
	return Apply(fn, args, env)
}

// number is a numeric operand. Booleans count as 0 and 1.
type number struct {
	i       int64
	f       float64
	isFloat bool
}

func toNumber(n ast.Node) (number, bool) {
	switch n := n.(type) {
	case *ast.Int:
		return number{i: n.Value}, true
	case *ast.Float:
		return number{f: n.Value, isFloat: true}, true
	case *ast.Bool:
		if n.Value {
			return number{i: 1}, true
		}
		return number{i: 0}, true
	}
	return number{}, false
}

func (n number) float() float64 {
	if n.isFloat {
		return n.f
	}
	return float64(n.i)
}

// arithmetic applies a binary operator. A user object on the left handles
// the operator itself.
func arithmetic(env *Environment, op string, left, right ast.Node) (ast.Node, error) {
	if _, ok := left.(*ast.Object); ok {
		return callOverload(env, op, left, right)
	}

	if ls, ok := left.(*ast.String); ok && op == "+" {
		rs, ok := right.(*ast.String)
		if !ok {
			return nil, typeError(op, "a string", right)
		}
		return ast.NewString(ls.Value + rs.Value), nil
	}

	a, ok := toNumber(left)
	if !ok {
		return nil, typeError(op, "numbers", left)
	}
	b, ok := toNumber(right)
	if !ok {
		return nil, typeError(op, "numbers", right)
	}

	switch op {
	case "/":
		if b.float() == 0 {
			return nil, perrors.New("OP-0001", map[string]any{"Function": op})
		}
		return ast.NewFloat(a.float() / b.float()), nil
	case "remainder":
		return remainder(a, b)
	}

	if a.isFloat || b.isFloat {
		x, y := a.float(), b.float()
		switch op {
		case "+":
			return ast.NewFloat(x + y), nil
		case "-":
			return ast.NewFloat(x - y), nil
		case "*":
			return ast.NewFloat(x * y), nil
		}
	} else {
		switch op {
		case "+":
			return ast.NewInt(a.i + b.i), nil
		case "-":
			return ast.NewInt(a.i - b.i), nil
		case "*":
			return ast.NewInt(a.i * b.i), nil
		}
	}
	return nil, perrors.NewSimple(perrors.ClassOperator, "unknown operator "+op)
}

// remainder is floored: a nonzero result has the sign of the divisor.
func remainder(a, b number) (ast.Node, error) {
	if b.float() == 0 {
		return nil, perrors.New("OP-0001", map[string]any{"Function": "remainder"})
	}
	if a.isFloat || b.isFloat {
		x, y := a.float(), b.float()
		r := math.Mod(x, y)
		if r != 0 && (r < 0) != (y < 0) {
			r += y
		}
		return ast.NewFloat(r), nil
	}
	r := a.i % b.i
	if r != 0 && (r < 0) != (b.i < 0) {
		r += b.i
	}
	return ast.NewInt(r), nil
}

// fold applies op left to right. Each step dispatches on the running
// result, so an object on the left sees the next operand.
func fold(env *Environment, op string, args []ast.Node) (ast.Node, error) {
	result := args[0]
	for _, arg := range args[1:] {
		var err error
		result, err = arithmetic(env, op, result, arg)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// (+ args...)
func builtinAdd(env *Environment, args []ast.Node) (ast.Node, error) {
	if len(args) == 0 {
		return ast.NewInt(0), nil
	}
	return fold(env, "+", args)
}

// (* args...)
func builtinMultiply(env *Environment, args []ast.Node) (ast.Node, error) {
	if len(args) == 0 {
		return ast.NewInt(1), nil
	}
	return fold(env, "*", args)
}

// (- x) or (- x y)
func builtinSubtract(env *Environment, args []ast.Node) (ast.Node, error) {
	switch len(args) {
	case 1:
		return negate(env, args[0])
	case 2:
		return arithmetic(env, "-", args[0], args[1])
	}
	return nil, perrors.New("ARITY-0003", map[string]any{"Function": "-", "Min": 1, "Max": 2, "Got": len(args)})
}

func negate(env *Environment, x ast.Node) (ast.Node, error) {
	if _, ok := x.(*ast.Object); ok {
		return callOverload(env, "-", x)
	}
	n, ok := toNumber(x)
	if !ok {
		return nil, typeError("-", "a number", x)
	}
	if n.isFloat {
		return ast.NewFloat(-n.f), nil
	}
	return ast.NewInt(-n.i), nil
}

func binaryBuiltin(op string) BuiltinFunction {
	return func(env *Environment, args []ast.Node) (ast.Node, error) {
		if len(args) != 2 {
			return nil, arityError(op, 2, len(args))
		}
		return arithmetic(env, op, args[0], args[1])
	}
}

// valuesEqual compares by value. Numbers compare across Int, Float and
// Bool; lists compare element-wise; objects and callables by identity.
func valuesEqual(a, b ast.Node) bool {
	if x, ok := toNumber(a); ok {
		y, ok := toNumber(b)
		if !ok {
			return false
		}
		if !x.isFloat && !y.isFloat {
			return x.i == y.i
		}
		return x.float() == y.float()
	}
	if la, ok := a.(*ast.List); ok {
		lb, ok := b.(*ast.List)
		if !ok || len(la.Elements) != len(lb.Elements) {
			return false
		}
		for i := range la.Elements {
			if !valuesEqual(la.Elements[i], lb.Elements[i]) {
				return false
			}
		}
		return true
	}
	return ast.Equal(a, b)
}

// (= a b)
func builtinEqual(env *Environment, args []ast.Node) (ast.Node, error) {
	if len(args) != 2 {
		return nil, arityError("=", 2, len(args))
	}
	if _, ok := args[0].(*ast.Object); ok {
		return callOverload(env, "=", args[0], args[1])
	}
	return ast.NativeBool(valuesEqual(args[0], args[1])), nil
}

func lessThan(env *Environment, name string, left, right ast.Node) (ast.Node, error) {
	if _, ok := left.(*ast.Object); ok {
		return callOverload(env, "<", left, right)
	}
	if ls, ok := left.(*ast.String); ok {
		rs, ok := right.(*ast.String)
		if !ok {
			return nil, typeError(name, "a string", right)
		}
		return ast.NativeBool(ls.Value < rs.Value), nil
	}
	a, ok := toNumber(left)
	if !ok {
		return nil, typeError(name, "numbers or strings", left)
	}
	b, ok := toNumber(right)
	if !ok {
		return nil, typeError(name, "numbers", right)
	}
	if !a.isFloat && !b.isFloat {
		return ast.NativeBool(a.i < b.i), nil
	}
	return ast.NativeBool(a.float() < b.float()), nil
}

// (< a b)
func builtinLess(env *Environment, args []ast.Node) (ast.Node, error) {
	if len(args) != 2 {
		return nil, arityError("<", 2, len(args))
	}
	return lessThan(env, "<", args[0], args[1])
}

// (> a b) is (< b a).
func builtinGreater(env *Environment, args []ast.Node) (ast.Node, error) {
	if len(args) != 2 {
		return nil, arityError(">", 2, len(args))
	}
	return lessThan(env, ">", args[1], args[0])
}

// (not x)
func builtinNot(env *Environment, args []ast.Node) (ast.Node, error) {
	if len(args) != 1 {
		return nil, arityError("not", 1, len(args))
	}
	return ast.NativeBool(!IsTruthy(args[0])), nil
}

// (list* args...)
func builtinList(env *Environment, args []ast.Node) (ast.Node, error) {
	elements := make([]ast.Node, len(args))
	copy(elements, args)
	return ast.NewList(elements...), nil
}

// (Object)
func builtinObject(env *Environment, args []ast.Node) (ast.Node, error) {
	if len(args) != 0 {
		return nil, arityError("Object", 0, len(args))
	}
	return ast.NewObject(), nil
}

// (print args...) writes its arguments separated by spaces.
func builtinPrint(env *Environment, args []ast.Node) (ast.Node, error) {
	values := make([]interface{}, len(args))
	for i, arg := range args {
		values[i] = arg
	}
	env.rt.Logger.LogLine(values...)
	return ast.NIL, nil
}

func toInteger(name string, n ast.Node) (int64, error) {
	num, ok := toNumber(n)
	if !ok || num.isFloat {
		return 0, typeError(name, "integers", n)
	}
	return num.i, nil
}

// (gcd n...)
func builtinGCD(env *Environment, args []ast.Node) (ast.Node, error) {
	if len(args) == 0 {
		return nil, arityError("gcd", 1, 0)
	}
	// Magnitudes are unsigned so that the most negative int64 has one.
	var g uint64
	for _, arg := range args {
		i, err := toInteger("gcd", arg)
		if err != nil {
			return nil, err
		}
		n := uint64(i)
		if i < 0 {
			n = -n
		}
		for n != 0 {
			g, n = n, g%n
		}
	}
	if g > math.MaxInt64 {
		return nil, perrors.New("OP-0002", map[string]any{"Function": "gcd"})
	}
	return ast.NewInt(int64(g)), nil
}

// (random n) returns an integer in [0, n), or a float in [0, n) for a float n.
func builtinRandom(env *Environment, args []ast.Node) (ast.Node, error) {
	if len(args) != 1 {
		return nil, arityError("random", 1, len(args))
	}
	n, ok := toNumber(args[0])
	if !ok || n.float() <= 0 {
		return nil, typeError("random", "a positive number", args[0])
	}
	if n.isFloat {
		return ast.NewFloat(rand.Float64() * n.f), nil
	}
	return ast.NewInt(rand.Int64N(n.i)), nil
}

// (abs x)
func builtinAbs(env *Environment, args []ast.Node) (ast.Node, error) {
	if len(args) != 1 {
		return nil, arityError("abs", 1, len(args))
	}
	n, ok := toNumber(args[0])
	if !ok {
		return nil, typeError("abs", "a number", args[0])
	}
	if n.isFloat {
		return ast.NewFloat(math.Abs(n.f)), nil
	}
	if n.i < 0 {
		return ast.NewInt(-n.i), nil
	}
	return ast.NewInt(n.i), nil
}
