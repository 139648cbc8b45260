// Package stdlib holds the peme standard library, written in peme and
// embedded in the binary.
package stdlib

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"github.com/sambeau/peme/pkg/peme/ast"
	perrors "github.com/sambeau/peme/pkg/peme/errors"
	"github.com/sambeau/peme/pkg/peme/evaluator"
	"github.com/sambeau/peme/pkg/peme/parser"
)

// Filename is the name the embedded library reports in diagnostics.
const Filename = "<stdlib>"

//go:embed stdlib.scm
var source string

var (
	parseOnce sync.Once
	program   *ast.Program
	parseErr  error
)

// Source returns the text of the embedded library.
func Source() string {
	return source
}

// Program returns the parsed embedded library. It is parsed once.
func Program() (*ast.Program, error) {
	parseOnce.Do(func() {
		program, parseErr = parser.Parse(source, Filename)
	})
	return program, parseErr
}

// Load evaluates the embedded library in env.
func Load(env *evaluator.Environment) error {
	p, err := Program()
	if err != nil {
		return fmt.Errorf("parsing standard library: %w", err)
	}
	_, err = evaluator.EvalProgram(p, env)
	return err
}

// LoadFile evaluates a replacement library read from path.
func LoadFile(env *evaluator.Environment, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return perrors.New("IO-0001", map[string]any{"Path": path, "GoError": err.Error()})
	}
	p, err := parser.Parse(string(data), path)
	if err != nil {
		return err
	}
	_, err = evaluator.EvalProgram(p, env)
	return err
}
