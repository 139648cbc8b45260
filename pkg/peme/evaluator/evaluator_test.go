package evaluator

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/sambeau/peme/pkg/peme/ast"
	perrors "github.com/sambeau/peme/pkg/peme/errors"
	"github.com/sambeau/peme/pkg/peme/parser"
)

// Helper to parse and evaluate peme code in a fresh root scope
func testEval(input string) (ast.Node, error) {
	return testEvalIn(NewEnvironment(), input)
}

func testEvalIn(env *Environment, input string) (ast.Node, error) {
	program, err := parser.Parse(input, "test.scm")
	if err != nil {
		return nil, err
	}
	return EvalProgram(program, env)
}

func testPemeError(t *testing.T, input string) *perrors.PemeError {
	t.Helper()
	_, err := testEval(input)
	if err == nil {
		t.Fatalf("expected error for %q", input)
	}
	var perr *perrors.PemeError
	if !errors.As(err, &perr) {
		t.Fatalf("error type = %T for %q", err, input)
	}
	return perr
}

func TestEvalExpressions(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		// literals and globals
		{"42", "42"},
		{"-2.5", "-2.5"},
		{`"hi"`, `"hi"`},
		{"nil", "nil"},
		{"true", "true"},
		{"pi", "3.141592653589793"},

		// arithmetic
		{"(+ 1 2 3)", "6"},
		{"(+)", "0"},
		{"(*)", "1"},
		{"(+ 5)", "5"},
		{"(+ 1 2.5)", "3.5"},
		{`(+ "ab" "cd")`, `"abcd"`},
		{"(- 5)", "-5"},
		{"(- 2.5)", "-2.5"},
		{"(- 5 7)", "-2"},
		{"(* 2 3 4)", "24"},
		{"(/ 7 2)", "3.5"},
		{"(/ 4 2)", "2.0"},
		{"(remainder 7 3)", "1"},
		{"(remainder -7 3)", "2"},
		{"(remainder 7 -3)", "-2"},
		{"(remainder 7.5 2)", "1.5"},
		{"(+ true true)", "2"},

		// comparison and logic
		{"(= 1 1.0)", "true"},
		{"(= (quote a) (quote a))", "true"},
		{`(= "a" "b")`, "false"},
		{"(= (list* 1 2) (list* 1 2.0))", "true"},
		{"(< 1 2)", "true"},
		{"(< 2.5 2)", "false"},
		{"(> 1 2)", "false"},
		{`(< "abc" "abd")`, "true"},
		{"(not 0)", "false"},
		{"(not nil)", "true"},

		// data
		{"(list* 1 2 3)", "(1 2 3)"},
		{"(list*)", "()"},
		{"(quote (a b (c)))", "(a b (c))"},
		{"(quote p.x)", "p.x"},
		{"(gcd 12 18)", "6"},
		{"(gcd -4 6 10)", "2"},
		{"(gcd -9223372036854775808 6)", "2"},
		{"(abs -3)", "3"},
		{"(abs -2.5)", "2.5"},
		{"(Object)", "<object>"},
		{"+", "<builtin +>"},
		{"if", "<form if>"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := testEval(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := result.Inspect(); got != tt.expected {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestTruthiness(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`(if 0 "t" "f")`, `"t"`},
		{`(if false "t" "f")`, `"f"`},
		{`(if nil "t" "f")`, `"f"`},
		{`(if (quote ()) "t" "f")`, `"t"`},
		{`(if "" "t" "f")`, `"t"`},
		{"(cond ((= 1 2) 1) (else 2))", "2"},
		{"(cond (0 1) (else 2))", "1"},
		{"(cond (false 1))", "nil"},
		{"(cond)", "nil"},
	}

	for _, tt := range tests {
		result, err := testEval(tt.input)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.input, err)
		}
		if got := result.Inspect(); got != tt.expected {
			t.Errorf("%s = %s, want %s", tt.input, got, tt.expected)
		}
	}
}

func TestAndOrReturnValues(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"(or false 5)", "5"},
		{"(and 5 false)", "false"},
		{"(and 1 2)", "2"},
		{"(or nil false)", "false"},
		{"(or 0 1)", "0"},
		{"(and)", "true"},
		{"(or)", "false"},
		// short circuit: the unbound symbol is never evaluated
		{"(and nil undefined-thing)", "nil"},
		{"(or 1 undefined-thing)", "1"},
	}

	for _, tt := range tests {
		result, err := testEval(tt.input)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.input, err)
		}
		if got := result.Inspect(); got != tt.expected {
			t.Errorf("%s = %s, want %s", tt.input, got, tt.expected)
		}
	}
}

func TestFunctions(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"indented definition", "define (f a b)\n  + a\n    b\n(f 3 4)", "7"},
		{"define returns value", "define x 5", "5"},
		{"lambda call", "((lambda (x) (* x x)) 5)", "25"},
		{"define names lambda", "define sq (lambda (x) x)\nsq", "<lambda sq>"},
		{"anonymous lambda", "(lambda (x) x)", "<lambda>"},
		{"print returns nil", "define (f) (print 1)\n(f)", "nil"},
		{"recursion", "define (fact n)\n  if (< n 2)\n    1\n    * n (fact (- n 1))\n(fact 10)", "3628800"},
		{"higher order", "define (twice f x) (f (f x))\n(twice (lambda (y) (* y 3)) 2)", "18"},
		{"counter closure", `define (make-counter)
  define n 0
  lambda ()
    set! n (+ n 1)
    n
define c (make-counter)
(c)
(c)`, "2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := NewEnvironment()
			env.Runtime().Logger = NewWriterLogger(&bytes.Buffer{})
			result, err := testEvalIn(env, tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := result.Inspect(); got != tt.expected {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestArity(t *testing.T) {
	result, err := testEval("define (f a b) (+ a b)\n(f 1 2)")
	if err != nil || result.Inspect() != "3" {
		t.Fatalf("(f 1 2) = %v, %v", result, err)
	}

	perr := testPemeError(t, "define (f a b) (+ a b)\n(f 1 2 3)")
	if perr.Code != "ARITY-0001" {
		t.Fatalf("code = %s", perr.Code)
	}
	if perr.Message != "lambda f expected 2 args but found 3" {
		t.Errorf("message = %q", perr.Message)
	}
	if perr.Kind() != "ArityError" {
		t.Errorf("kind = %s", perr.Kind())
	}
}

func TestScoping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"define inside call is local", "define x 1\ndefine (f)\n  define x 2\n  x\n(f)\nx", "1"},
		{"define inside call is visible inside", "define x 1\ndefine (f)\n  define x 2\n  x\n(f)", "2"},
		{"set! reaches enclosing scope", "define x 1\ndefine (f)\n  set! x 5\n(f)\nx", "5"},
		{"parameters shadow", "define x 1\ndefine (f x) x\n(f 9)", "9"},
		{"closure sees later set!", "define x 1\ndefine (get) x\nset! x 2\n(get)", "2"},
		{"inner lambda captures by reference", `define (outer)
  define v 1
  define (inner) v
  set! v 10
  inner
define g (outer)
(g)`, "10"},
		{"sibling closures share scope", `define (make)
  define n 0
  define o (Object)
  set! (o.bump) (set! n (+ n 1))
  set! (o.read) n
  o
define c (make)
(c.bump)
(c.bump)
(c.read)`, "2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := testEval(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := result.Inspect(); got != tt.expected {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestAttributes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"set and get", "define p (Object)\nset! p.x 3\np.x", "3"},
		{"set! returns value", "define p (Object)\nset! p.x 3", "3"},
		{"overwrite", "define p (Object)\nset! p.x 3\nset! p.x (+ p.x 1)\np.x", "4"},
		{"nested owner", "define p (Object)\nset! p.q (Object)\nset! p.q.r 7\np.q.r", "7"},
		{"method", "define p (Object)\nset! p.x 3\nset! (p.getx) p.x\n(p.getx)", "3"},
		{"method with args", "define p (Object)\nset! (p.scale k) (* k 2)\n(p.scale 21)", "42"},
		{"any value carries attributes", "define n 5\nset! n.tag 1\nn.tag", "1"},
		{"set! on plain function name", "define (f) 1\nset! (f) 2\n(f)", "2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := testEval(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := result.Inspect(); got != tt.expected {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

const vectorSource = `define v (Object)
set! v.n 10
set! (v.+ other) (+ v.n other)
set! (v.- ) (- 0 v.n)
set! (v.= other) (= v.n other)
set! (v.< other) (< v.n other)
`

func TestOperatorOverloading(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"(+ v 5)", "15"},
		{"(- v)", "-10"},
		{"(= v 10)", "true"},
		{"(= v 11)", "false"},
		{"(< v 11)", "true"},
		{"(> 11 v)", "true"},
		{"(+ v 1 2)", "13"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := testEval(vectorSource + tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := result.Inspect(); got != tt.expected {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	env := NewEnvironment()
	env.Runtime().Logger = NewWriterLogger(&buf)

	_, err := testEvalIn(env, "print \"total:\" 42 2.0 (quote (x \"y\")) nil\n(print)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "total: 42 2.0 (x \"y\") nil\n\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		code    string
		message string
	}{
		{"unbound symbol", "foo", "UNDEF-0001", "unrecognized symbol: foo"},
		{"assign unbound", "set! foo 1", "UNDEF-0002", "assignment to unrecognized symbol: foo"},
		{"missing attribute", "define p (Object)\np.y", "ATTR-0001", "object has no attribute 'y'"},
		{"attribute on nil", "set! nil.tag 1", "ATTR-0003", "cannot set attribute 'tag' on nil"},
		{"attribute on comparison result", "set! (= 1 1).tag 2", "ATTR-0003", "cannot set attribute 'tag' on bool"},
		{"method on false", "set! (false.m x) x", "ATTR-0003", "cannot set attribute 'm' on bool"},
		{"missing overload", vectorSource + "(* v 2)", "ATTR-0002", "object does not overload '*'"},
		{"failed assert", "(assert (= 1 2))", "ASSERT-0001", "assertion failed: (= 1 2)"},
		{"arithmetic on symbol", "(+ (quote a) 1)", "TYPE-0001", "`+` expected numbers, got symbol a"},
		{"number on the left of object", vectorSource + "(+ 1 v)", "TYPE-0001", "`+` expected numbers, got <object>"},
		{"call a number", "(1 2)", "TYPE-0002", "cannot call int 1"},
		{"bad define", "(define 5 1)", "TYPE-0003", "I don't know how to 'define' 5"},
		{"empty combination", "()", "TYPE-0004", "cannot evaluate an empty combination ()"},
		{"if needs three operands", "(if 1 2)", "ARITY-0002", "`if` expects 3 argument(s), got 2"},
		{"builtin arity", "(not 1 2)", "ARITY-0002", "`not` expects 1 argument(s), got 2"},
		{"divide by zero", "(/ 1 0)", "OP-0001", "division by zero in `/`"},
		{"remainder by zero", "(remainder 1 0)", "OP-0001", "division by zero in `remainder`"},
		{"gcd out of range", "(gcd -9223372036854775808 0)", "OP-0002", "result of `gcd` does not fit in a 64-bit integer"},
		{"random needs positive", "(random 0)", "TYPE-0001", "`random` expected a positive number, got int 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perr := testPemeError(t, tt.input)
			if perr.Code != tt.code {
				t.Errorf("code = %s, want %s (%s)", perr.Code, tt.code, perr.Message)
			}
			if perr.Message != tt.message {
				t.Errorf("message = %q, want %q", perr.Message, tt.message)
			}
			if perr.Line == 0 {
				t.Errorf("error has no position")
			}
		})
	}
}

func TestConstantsStayUnchangedAcrossScopes(t *testing.T) {
	if _, err := testEval("set! nil.tag 1\nset! true.tag 2"); err == nil {
		t.Fatal("expected error")
	}
	for _, input := range []string{"nil.tag", "(= 1 1).tag", "false.tag"} {
		_, err := testEval(input)
		var perr *perrors.PemeError
		if !errors.As(err, &perr) || perr.Code != "ATTR-0001" {
			t.Errorf("%s in a fresh scope: err = %v, want ATTR-0001", input, err)
		}
	}
}

func TestUnboundSymbolSuggestion(t *testing.T) {
	perr := testPemeError(t, "define counter 1\ncountr")
	if len(perr.Hints) != 1 || perr.Hints[0] != "Did you mean `counter`?" {
		t.Errorf("hints = %v", perr.Hints)
	}
	if perr.Line != 2 || perr.Column != 1 || perr.SourceLine != "countr" {
		t.Errorf("position = %d:%d %q", perr.Line, perr.Column, perr.SourceLine)
	}
}

func TestDiagnosticsCaptureCallStack(t *testing.T) {
	env := NewEnvironment()
	_, err := testEvalIn(env, "define (g) missing-value\ndefine (f) (g)\n(f)")
	if err == nil {
		t.Fatal("expected error")
	}
	var perr *perrors.PemeError
	if !errors.As(err, &perr) {
		t.Fatalf("error type = %T", err)
	}

	if len(perr.Frames) != 2 {
		t.Fatalf("frames = %d, want 2: %+v", len(perr.Frames), perr.Frames)
	}
	outer, inner := perr.Frames[0], perr.Frames[1]
	if outer.Line != 3 || outer.Column != 1 || outer.Text != "(f)" {
		t.Errorf("outer frame = %+v", outer)
	}
	if inner.Line != 2 || inner.Column != 12 || inner.Text != "define (f) (g)" {
		t.Errorf("inner frame = %+v", inner)
	}
	if perr.Line != 1 || perr.Column != 12 {
		t.Errorf("error position = %d:%d", perr.Line, perr.Column)
	}

	bt := perr.Backtrace()
	first := strings.Index(bt, "In file test.scm, on line 3:")
	second := strings.Index(bt, "In file test.scm, on line 2:")
	if first < 0 || second < 0 || first > second {
		t.Errorf("frames out of order in backtrace:\n%s", bt)
	}
	if !strings.HasSuffix(bt, "UnboundSymbolError: unrecognized symbol: missing-value") {
		t.Errorf("backtrace tail:\n%s", bt)
	}

	if env.Runtime().Depth() != 0 {
		t.Errorf("call stack not unwound: depth %d", env.Runtime().Depth())
	}
}

func TestTopLevelErrorHasNoFrames(t *testing.T) {
	perr := testPemeError(t, "x")
	if len(perr.Frames) != 0 {
		t.Errorf("frames = %+v", perr.Frames)
	}
	if !strings.HasPrefix(perr.Backtrace(), "In file test.scm, on line 1:\nx\n^\n") {
		t.Errorf("backtrace:\n%s", perr.Backtrace())
	}
}

func TestRecursionLimit(t *testing.T) {
	env := NewEnvironment()
	env.Runtime().MaxDepth = 50
	_, err := testEvalIn(env, "define (loop n) (loop (+ n 1))\n(loop 0)")
	var perr *perrors.PemeError
	if !errors.As(err, &perr) || perr.Code != "REC-0001" {
		t.Fatalf("err = %v", err)
	}
	if len(perr.Frames) != 50 {
		t.Errorf("frames = %d, want 50", len(perr.Frames))
	}
	if env.Runtime().Depth() != 0 {
		t.Errorf("depth = %d after error", env.Runtime().Depth())
	}
}

func TestEnvironment(t *testing.T) {
	root := NewEnvironment()
	root.Declare("a", ast.NewInt(1))
	child := NewEnclosedEnvironment(root)
	child.Declare("b", ast.NewInt(2))

	if v, ok := child.Lookup("a"); !ok || v.Inspect() != "1" {
		t.Errorf("Lookup(a) = %v, %v", v, ok)
	}
	if _, ok := root.Lookup("b"); ok {
		t.Error("child binding leaked into root")
	}

	if !child.Assign("a", ast.NewInt(3)) {
		t.Fatal("Assign(a) failed")
	}
	if v, _ := root.Lookup("a"); v.Inspect() != "3" {
		t.Errorf("root a = %s after Assign", v.Inspect())
	}
	if child.Assign("missing", ast.NIL) {
		t.Error("Assign created a binding")
	}
	if _, ok := root.Lookup("missing"); ok {
		t.Error("Assign created a binding in root")
	}

	if names := child.LocalNames(); len(names) != 1 || names[0] != "b" {
		t.Errorf("LocalNames() = %v", names)
	}
	all := child.AllIdentifiers()
	for _, want := range []string{"a", "b", "define", "+", "pi"} {
		found := false
		for _, name := range all {
			if name == want {
				found = true
			}
		}
		if !found {
			t.Errorf("AllIdentifiers() missing %q", want)
		}
	}
	if child.Runtime() != root.Runtime() {
		t.Error("child scope should share the root runtime")
	}
}

func TestMetadataCoversEveryBinding(t *testing.T) {
	for name := range builtins {
		if _, ok := BuiltinMetadata[name]; !ok {
			t.Errorf("builtin %q has no metadata", name)
		}
	}
	for name := range forms {
		if _, ok := FormMetadata[name]; !ok {
			t.Errorf("form %q has no metadata", name)
		}
	}
	if len(Builtins()) != len(BuiltinMetadata) || Builtins()[0].Name > Builtins()[1].Name {
		t.Error("Builtins() should list every builtin in order")
	}
}
