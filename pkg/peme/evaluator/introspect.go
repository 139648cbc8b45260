package evaluator

import (
	"sort"
)

// BuiltinInfo describes a builtin function or special form for help output.
type BuiltinInfo struct {
	Name        string   `json:"name"`
	Params      []string `json:"params,omitempty"`
	Arity       string   `json:"arity"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Example     string   `json:"example,omitempty"`
}

// BuiltinMetadata documents every builtin function.
var BuiltinMetadata = map[string]BuiltinInfo{
	"+": {
		Name: "+", Params: []string{"x..."}, Arity: "0+", Category: "arithmetic",
		Description: "Sum numbers or concatenate strings; (+) is 0",
		Example:     "(+ 1 2 3)",
	},
	"-": {
		Name: "-", Params: []string{"x", "y?"}, Arity: "1-2", Category: "arithmetic",
		Description: "Subtract y from x, or negate x",
		Example:     "(- 10 4)",
	},
	"*": {
		Name: "*", Params: []string{"x..."}, Arity: "0+", Category: "arithmetic",
		Description: "Multiply numbers; (*) is 1",
		Example:     "(* 2 3 4)",
	},
	"/": {
		Name: "/", Params: []string{"x", "y"}, Arity: "2", Category: "arithmetic",
		Description: "Divide x by y, always giving a float",
		Example:     "(/ 7 2)",
	},
	"remainder": {
		Name: "remainder", Params: []string{"x", "n"}, Arity: "2", Category: "arithmetic",
		Description: "Remainder of x divided by n, with the sign of n",
		Example:     "(remainder -7 3)",
	},
	"=": {
		Name: "=", Params: []string{"a", "b"}, Arity: "2", Category: "comparison",
		Description: "Value equality; numbers compare across int and float",
		Example:     "(= 2 2.0)",
	},
	"<": {
		Name: "<", Params: []string{"a", "b"}, Arity: "2", Category: "comparison",
		Description: "Less than, for numbers or strings",
		Example:     "(< 1 2)",
	},
	">": {
		Name: ">", Params: []string{"a", "b"}, Arity: "2", Category: "comparison",
		Description: "Greater than, for numbers or strings",
		Example:     "(> 2 1)",
	},
	"not": {
		Name: "not", Params: []string{"x"}, Arity: "1", Category: "logic",
		Description: "True when x is nil or false",
		Example:     "(not nil)",
	},
	"list*": {
		Name: "list*", Params: []string{"x..."}, Arity: "0+", Category: "data",
		Description: "Collect the arguments into a list",
		Example:     "(list* 1 2 3)",
	},
	"Object": {
		Name: "Object", Arity: "0", Category: "objects",
		Description: "Create an empty object to hold attributes",
		Example:     "(define p (Object))",
	},
	"print": {
		Name: "print", Params: []string{"x..."}, Arity: "0+", Category: "output",
		Description: "Print the arguments separated by spaces",
		Example:     `(print "total:" 42)`,
	},
	"gcd": {
		Name: "gcd", Params: []string{"n..."}, Arity: "1+", Category: "math",
		Description: "Greatest common divisor of integers",
		Example:     "(gcd 12 18)",
	},
	"random": {
		Name: "random", Params: []string{"n"}, Arity: "1", Category: "math",
		Description: "Random number in [0, n); an integer when n is an integer",
		Example:     "(random 6)",
	},
	"abs": {
		Name: "abs", Params: []string{"x"}, Arity: "1", Category: "math",
		Description: "Absolute value",
		Example:     "(abs -3)",
	},
}

// FormMetadata documents every special form.
var FormMetadata = map[string]BuiltinInfo{
	"define": {
		Name: "define", Params: []string{"name", "value"}, Arity: "2+", Category: "binding",
		Description: "Bind a name in the current scope, or define a function with (define (f args...) body...)",
		Example:     "(define (square x) (* x x))",
	},
	"set!": {
		Name: "set!", Params: []string{"target", "value"}, Arity: "2+", Category: "binding",
		Description: "Change an existing binding, set an attribute with owner.name, or define a method with (set! (owner.name args...) body...)",
		Example:     "(set! p.x 3)",
	},
	"quote": {
		Name: "quote", Params: []string{"expr"}, Arity: "1", Category: "data",
		Description: "Return expr without evaluating it",
		Example:     "(quote (a b c))",
	},
	"lambda": {
		Name: "lambda", Params: []string{"(params...)", "body..."}, Arity: "1+", Category: "functions",
		Description: "Create a closure over the current scope",
		Example:     "(lambda (x) (* x 2))",
	},
	"if": {
		Name: "if", Params: []string{"test", "then", "else"}, Arity: "3", Category: "control",
		Description: "Evaluate then when test is truthy, else otherwise; only nil and false are falsy",
		Example:     `(if (< x 0) "negative" "non-negative")`,
	},
	"cond": {
		Name: "cond", Params: []string{"(test result)..."}, Arity: "0+", Category: "control",
		Description: "Evaluate the result of the first clause whose test is truthy; else always matches",
		Example:     "(cond ((= n 0) 1) (else n))",
	},
	"and": {
		Name: "and", Params: []string{"expr..."}, Arity: "0+", Category: "control",
		Description: "Return the first falsy value, or the last value",
		Example:     "(and 1 2 3)",
	},
	"or": {
		Name: "or", Params: []string{"expr..."}, Arity: "0+", Category: "control",
		Description: "Return the first truthy value, or the last value",
		Example:     "(or false 5)",
	},
	"assert": {
		Name: "assert", Params: []string{"expr"}, Arity: "1", Category: "control",
		Description: "Fail with an assertion error when expr is falsy",
		Example:     "(assert (= (square 3) 9))",
	},
	"__attribute__": {
		Name: "__attribute__", Params: []string{"owner", "name"}, Arity: "2", Category: "objects",
		Description: "Read an attribute; written owner.name",
		Example:     "p.x",
	},
}

// Builtins returns the builtin function metadata sorted by name.
func Builtins() []BuiltinInfo {
	return sortedInfo(BuiltinMetadata)
}

// Forms returns the special form metadata sorted by name.
func Forms() []BuiltinInfo {
	return sortedInfo(FormMetadata)
}

func sortedInfo(m map[string]BuiltinInfo) []BuiltinInfo {
	result := make([]BuiltinInfo, 0, len(m))
	for _, info := range m {
		result = append(result, info)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}
