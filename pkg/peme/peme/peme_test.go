package peme

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	perrors "github.com/sambeau/peme/pkg/peme/errors"
)

func TestRun(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		expected string
	}{
		{"arithmetic", "(+ 2 3)", "5"},
		{"uses stdlib", "(square 4)", "16"},
		{"indented program", "define (f a b)\n  + a\n    b\n(f 3 4)", "7"},
		{"empty program", "", "nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Run(tt.source, WithLogger(NullLogger()))
			if err != nil {
				t.Fatalf("Run() error: %v", err)
			}
			if result.String() != tt.expected {
				t.Errorf("got %s, want %s", result.String(), tt.expected)
			}
		})
	}
}

func TestRunWithoutStdlib(t *testing.T) {
	_, err := Run("(square 4)", WithoutStdlib(), WithLogger(NullLogger()))
	var perr *perrors.PemeError
	if !errors.As(err, &perr) || perr.Code != "UNDEF-0001" {
		t.Errorf("expected unbound square, got %v", err)
	}
}

func TestRunCapturesPrint(t *testing.T) {
	logger := NewBufferedLogger()
	_, err := Run("print \"hello\" 1\nprint (list* 1 2)", WithLogger(logger))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	lines := logger.Lines()
	if len(lines) != 2 || lines[0] != "hello 1" || lines[1] != "(1 2)" {
		t.Errorf("lines = %q", lines)
	}
	if logger.String() != "hello 1\n(1 2)\n" {
		t.Errorf("String() = %q", logger.String())
	}
	values := logger.Values()
	if len(values) != 2 || len(values[0]) != 2 || values[0][0].Inspect() != `"hello"` || values[1][0].Inspect() != "(1 2)" {
		t.Errorf("values = %v", values)
	}
	logger.Reset()
	if logger.String() != "" || len(logger.Values()) != 0 {
		t.Error("Reset() should clear output")
	}
}

func TestRunArgs(t *testing.T) {
	result, err := Run("argv", WithArgs([]string{"a", "b c"}), WithoutStdlib())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if result.String() != `("a" "b c")` {
		t.Errorf("argv = %s", result.String())
	}
}

func TestRunMaxDepth(t *testing.T) {
	_, err := Run("define (f n) (f n)\n(f 1)", WithMaxDepth(20), WithoutStdlib())
	var perr *perrors.PemeError
	if !errors.As(err, &perr) || perr.Code != "REC-0001" {
		t.Errorf("expected recursion error, got %v", err)
	}
}

func TestRunFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.scm")
	if err := os.WriteFile(path, []byte("define (g) oops\ndefine (f) (g)\n(f)\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := RunFile(path, WithLogger(NullLogger()))
	var perr *perrors.PemeError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PemeError, got %v", err)
	}
	bt := perr.Backtrace()
	if !strings.Contains(bt, "In file "+path+", on line 3:") {
		t.Errorf("backtrace missing script frame:\n%s", bt)
	}

	_, err = RunFile(filepath.Join(dir, "missing.scm"))
	if !errors.As(err, &perr) || perr.Code != "IO-0001" {
		t.Errorf("expected IO-0001, got %v", err)
	}
}

func TestStdlibOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lib.scm")
	if err := os.WriteFile(path, []byte("define greeting \"hi\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	result, err := Run("greeting", WithStdlibPath(path))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if result.String() != `"hi"` {
		t.Errorf("greeting = %s", result.String())
	}
}

func TestEvalKeepsScope(t *testing.T) {
	env, err := NewEnvironment(WithLogger(NullLogger()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Eval("define x 41", env, "<repl>"); err != nil {
		t.Fatal(err)
	}
	result, err := Eval("(inc x)", env, "<repl>")
	if err != nil {
		t.Fatal(err)
	}
	if result.String() != "42" {
		t.Errorf("got %s", result.String())
	}
}

func TestCheck(t *testing.T) {
	if err := Check("define x\n  + 1 2", "ok.scm"); err != nil {
		t.Errorf("Check() error: %v", err)
	}
	err := Check("(+ 1", "bad.scm")
	var perr *perrors.PemeError
	if !errors.As(err, &perr) || !perr.IsSyntaxError() || perr.File != "bad.scm" {
		t.Errorf("Check() = %v", err)
	}
	// Check never evaluates.
	if err := Check("undefined-name", "x.scm"); err != nil {
		t.Errorf("Check() evaluated the program: %v", err)
	}
}

func TestFormatError(t *testing.T) {
	_, err := Run("define (f) missing-value\n(f)", WithFilename("fail.scm"))
	if err == nil {
		t.Fatal("expected an error")
	}
	got := FormatError(err)
	for _, want := range []string{"In file fail.scm, on line 2:", "(f)", "UnboundSymbolError: "} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatError() missing %q:\n%s", want, got)
		}
	}

	if got := FormatError(errors.New("plain failure")); got != "error: plain failure" {
		t.Errorf("FormatError(plain) = %q", got)
	}
}

func TestFormatErrorJSON(t *testing.T) {
	_, err := Run("define (f) missing-value\n(f)", WithFilename("fail.scm"))
	if err == nil {
		t.Fatal("expected an error")
	}
	var decoded map[string]any
	if jerr := json.Unmarshal([]byte(FormatErrorJSON(err)), &decoded); jerr != nil {
		t.Fatalf("invalid JSON: %v", jerr)
	}
	if decoded["kind"] != "UnboundSymbolError" || decoded["file"] != "fail.scm" {
		t.Errorf("decoded = %v", decoded)
	}

	decoded = nil
	if jerr := json.Unmarshal([]byte(FormatErrorJSON(errors.New("plain failure"))), &decoded); jerr != nil {
		t.Fatalf("invalid JSON: %v", jerr)
	}
	if decoded["class"] != "io" || decoded["message"] != "plain failure" {
		t.Errorf("decoded = %v", decoded)
	}
}
