package evaluator

import (
	"github.com/sambeau/peme/pkg/peme/ast"
	perrors "github.com/sambeau/peme/pkg/peme/errors"
)

var forms map[string]FormFunction

func init() {
	forms = map[string]FormFunction{
		"define":          evalDefine,
		"set!":            evalSet,
		"quote":           evalQuote,
		"lambda":          evalLambda,
		"if":              evalIf,
		"cond":            evalCond,
		"and":             evalAnd,
		"or":              evalOr,
		"assert":          evalAssert,
		ast.AttributeHead: evalAttribute,
	}
}

func installForms(env *Environment) {
	for name, fn := range forms {
		env.Declare(name, &Form{Name: name, Fn: fn})
	}
}

func formArity(call *ast.List, name string, want any, got int) *perrors.PemeError {
	return errorAt(call, "ARITY-0002", map[string]any{"Function": name, "Want": want, "Got": got})
}

func formSyntax(form string, got ast.Node) *perrors.PemeError {
	return errorAt(got, "TYPE-0003", map[string]any{"Form": form, "Got": got.Inspect()})
}

// paramNames checks that every parameter is a plain symbol.
func paramNames(form string, params []ast.Node) ([]string, error) {
	names := make([]string, len(params))
	for i, p := range params {
		sym, ok := p.(*ast.Symbol)
		if !ok {
			return nil, formSyntax(form, p)
		}
		names[i] = sym.Name
	}
	return names, nil
}

// (define name value) or (define (name params...) body...)
func evalDefine(env *Environment, call *ast.List, operands []ast.Node) (ast.Node, error) {
	if len(operands) < 2 {
		return nil, formArity(call, "define", "at least 2", len(operands))
	}

	switch target := operands[0].(type) {
	case *ast.Symbol:
		if len(operands) != 2 {
			return nil, formArity(call, "define", 2, len(operands))
		}
		val, err := Eval(operands[1], env)
		if err != nil {
			return nil, err
		}
		if fn, ok := val.(*Lambda); ok && fn.Name == "" {
			fn.Name = target.Name
		}
		env.Declare(target.Name, val)
		return val, nil

	case *ast.List:
		if len(target.Elements) == 0 {
			return nil, formSyntax("define", target)
		}
		name, ok := target.Elements[0].(*ast.Symbol)
		if !ok {
			return nil, formSyntax("define", target)
		}
		params, err := paramNames("define", target.Elements[1:])
		if err != nil {
			return nil, err
		}
		fn := &Lambda{Name: name.Name, Params: params, Body: operands[1:], Env: env}
		env.Declare(name.Name, fn)
		return fn, nil
	}

	return nil, formSyntax("define", operands[0])
}

// (set! name value), (set! owner.attr value), (set! (owner.attr params...) body...)
// or (set! (name params...) body...)
func evalSet(env *Environment, call *ast.List, operands []ast.Node) (ast.Node, error) {
	if len(operands) < 2 {
		return nil, formArity(call, "set!", "at least 2", len(operands))
	}
	target := operands[0]

	if sym, ok := target.(*ast.Symbol); ok {
		if len(operands) != 2 {
			return nil, formArity(call, "set!", 2, len(operands))
		}
		val, err := Eval(operands[1], env)
		if err != nil {
			return nil, err
		}
		if !env.Assign(sym.Name, val) {
			return nil, errorAt(sym, "UNDEF-0002", map[string]any{"Name": sym.Name})
		}
		return val, nil
	}

	if owner, name, ok := ast.AttributeParts(target); ok {
		if len(operands) != 2 {
			return nil, formArity(call, "set!", 2, len(operands))
		}
		obj, err := Eval(owner, env)
		if err != nil {
			return nil, err
		}
		if err := checkSettable(obj, name); err != nil {
			return nil, err
		}
		val, err := Eval(operands[1], env)
		if err != nil {
			return nil, err
		}
		obj.SetAttr(name.Name, val)
		return val, nil
	}

	signature, ok := target.(*ast.List)
	if !ok || len(signature.Elements) == 0 {
		return nil, formSyntax("set!", target)
	}
	params, err := paramNames("set!", signature.Elements[1:])
	if err != nil {
		return nil, err
	}
	head := signature.Elements[0]

	// Method assignment: the closure becomes an attribute of the owner.
	if owner, name, ok := ast.AttributeParts(head); ok {
		obj, err := Eval(owner, env)
		if err != nil {
			return nil, err
		}
		if err := checkSettable(obj, name); err != nil {
			return nil, err
		}
		fn := &Lambda{Name: name.Name, Params: params, Body: operands[1:], Env: env}
		obj.SetAttr(name.Name, fn)
		return fn, nil
	}

	if sym, ok := head.(*ast.Symbol); ok {
		fn := &Lambda{Name: sym.Name, Params: params, Body: operands[1:], Env: env}
		if !env.Assign(sym.Name, fn) {
			return nil, errorAt(sym, "UNDEF-0002", map[string]any{"Name": sym.Name})
		}
		return fn, nil
	}

	return nil, formSyntax("set!", target)
}

// checkSettable rejects the nil and boolean singletons, which every scope
// shares.
func checkSettable(owner ast.Node, name *ast.Symbol) error {
	switch owner.(type) {
	case *ast.Nil, *ast.Bool:
		return errorAt(name, "ATTR-0003", map[string]any{"Type": typeName(owner), "Name": name.Name})
	}
	return nil
}

// (quote expr)
func evalQuote(env *Environment, call *ast.List, operands []ast.Node) (ast.Node, error) {
	if len(operands) != 1 {
		return nil, formArity(call, "quote", 1, len(operands))
	}
	return operands[0], nil
}

// (lambda (params...) body...)
func evalLambda(env *Environment, call *ast.List, operands []ast.Node) (ast.Node, error) {
	if len(operands) < 1 {
		return nil, formArity(call, "lambda", "at least 1", len(operands))
	}
	list, ok := operands[0].(*ast.List)
	if !ok || ast.IsAttribute(list) {
		return nil, formSyntax("lambda", operands[0])
	}
	params, err := paramNames("lambda", list.Elements)
	if err != nil {
		return nil, err
	}
	return &Lambda{Params: params, Body: operands[1:], Env: env}, nil
}

// (if condition then else)
func evalIf(env *Environment, call *ast.List, operands []ast.Node) (ast.Node, error) {
	if len(operands) != 3 {
		return nil, formArity(call, "if", 3, len(operands))
	}
	cond, err := Eval(operands[0], env)
	if err != nil {
		return nil, err
	}
	if IsTruthy(cond) {
		return Eval(operands[1], env)
	}
	return Eval(operands[2], env)
}

// (cond (test result)...) where the test else always matches
func evalCond(env *Environment, call *ast.List, operands []ast.Node) (ast.Node, error) {
	for _, operand := range operands {
		clause, ok := operand.(*ast.List)
		if !ok || len(clause.Elements) != 2 || ast.IsAttribute(clause) {
			return nil, formSyntax("cond", operand)
		}
		test, result := clause.Elements[0], clause.Elements[1]

		if sym, ok := test.(*ast.Symbol); ok && sym.Name == "else" {
			return Eval(result, env)
		}
		v, err := Eval(test, env)
		if err != nil {
			return nil, err
		}
		if IsTruthy(v) {
			return Eval(result, env)
		}
	}
	return ast.NIL, nil
}

// (and exprs...) returns the first falsy value or the last value.
func evalAnd(env *Environment, call *ast.List, operands []ast.Node) (ast.Node, error) {
	var last ast.Node = ast.TRUE
	for _, operand := range operands {
		v, err := Eval(operand, env)
		if err != nil {
			return nil, err
		}
		last = v
		if !IsTruthy(v) {
			return v, nil
		}
	}
	return last, nil
}

// (or exprs...) returns the first truthy value or the last value.
func evalOr(env *Environment, call *ast.List, operands []ast.Node) (ast.Node, error) {
	var last ast.Node = ast.FALSE
	for _, operand := range operands {
		v, err := Eval(operand, env)
		if err != nil {
			return nil, err
		}
		last = v
		if IsTruthy(v) {
			return v, nil
		}
	}
	return last, nil
}

// (assert expr)
func evalAssert(env *Environment, call *ast.List, operands []ast.Node) (ast.Node, error) {
	if len(operands) != 1 {
		return nil, formArity(call, "assert", 1, len(operands))
	}
	v, err := Eval(operands[0], env)
	if err != nil {
		return nil, err
	}
	if !IsTruthy(v) {
		return nil, errorAt(operands[0], "ASSERT-0001", map[string]any{"Expr": operands[0].Inspect()})
	}
	return v, nil
}

// (__attribute__ owner name), written owner.name
func evalAttribute(env *Environment, call *ast.List, operands []ast.Node) (ast.Node, error) {
	if len(operands) != 2 {
		return nil, formArity(call, ast.AttributeHead, 2, len(operands))
	}
	name, ok := operands[1].(*ast.Symbol)
	if !ok {
		return nil, formSyntax(ast.AttributeHead, operands[1])
	}
	owner, err := Eval(operands[0], env)
	if err != nil {
		return nil, err
	}
	v, ok := owner.Attr(name.Name)
	if !ok {
		return nil, errorAt(name, "ATTR-0001", map[string]any{"Type": typeName(owner), "Name": name.Name})
	}
	return v, nil
}
