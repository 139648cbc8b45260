// Package repl implements the interactive peme prompt.
package repl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/peterh/liner"
	"github.com/sambeau/peme/pkg/peme/ast"
	"github.com/sambeau/peme/pkg/peme/evaluator"
	"github.com/sambeau/peme/pkg/peme/help"
	"github.com/sambeau/peme/pkg/peme/parser"
	"github.com/sambeau/peme/pkg/peme/peme"
)

const DefaultPrompt = "peme> "
const RAW_PROMPT = "peme:> "
const CONTINUATION_PROMPT = "  ... "

// Filename names REPL input in diagnostics.
const Filename = "<repl>"

const LOGO = `
█▀█ █▀▀ █▀▄▀█ █▀▀
█▀▀ ██▄ █░▀░█ ██▄`

// Config controls a REPL session.
type Config struct {
	Prompt  string
	History string // history file; empty means ~/.peme_history
	Version string

	// NewEnv creates the root scope, at start and on :clear.
	NewEnv func() (*evaluator.Environment, error)
}

// Start runs the REPL on the terminal until the user quits.
func Start(out io.Writer, cfg Config) error {
	s, err := newSession(out, cfg)
	if err != nil {
		return err
	}

	line := liner.NewLiner()
	defer line.Close()

	// Enable Ctrl+C to abort current line
	line.SetCtrlCAborts(true)
	line.SetCompleter(s.complete)

	historyFile := cfg.History
	if historyFile == "" {
		if home, err := os.UserHomeDir(); err == nil {
			historyFile = filepath.Join(home, ".peme_history")
		}
	}
	if historyFile != "" {
		if f, err := os.Open(historyFile); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
		defer func() {
			if f, err := os.Create(historyFile); err == nil {
				line.WriteHistory(f)
				f.Close()
			}
		}()
	}

	fmt.Fprintf(out, "%s\n", LOGO)
	if cfg.Version != "" {
		fmt.Fprintln(out, "v", cfg.Version)
	}
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Type ':quit' or Ctrl+D to quit")
	fmt.Fprintln(out, "Use Tab for completion, ↑↓ for history")
	fmt.Fprintln(out, "Type ':help' for REPL commands")
	fmt.Fprintln(out, "")

	for {
		input, err := line.Prompt(s.prompt())
		if err != nil {
			if err == liner.ErrPromptAborted {
				// Ctrl+C - clear any buffered input and return to main prompt
				if s.pending() {
					fmt.Fprintln(out, "^C (cleared)")
				} else {
					fmt.Fprintln(out, "^C")
				}
				s.reset()
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(out, "\nGoodbye!")
				return nil
			}
			fmt.Fprintf(out, "Error reading input: %v\n", err)
			continue
		}

		entry, quit := s.feed(input)
		if entry != "" {
			line.AppendHistory(entry)
		}
		if quit {
			return nil
		}
	}
}

// session holds the state of one REPL independent of the terminal.
type session struct {
	out    io.Writer
	cfg    Config
	env    *evaluator.Environment
	buffer []string
	block  bool // inside :{ ... :}
	raw    bool // print values as print would
}

func newSession(out io.Writer, cfg Config) (*session, error) {
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	if cfg.NewEnv == nil {
		cfg.NewEnv = func() (*evaluator.Environment, error) {
			return peme.NewEnvironment(peme.WithFilename(Filename), peme.WithLogger(peme.WriterLogger(out)))
		}
	}
	env, err := cfg.NewEnv()
	if err != nil {
		return nil, err
	}
	return &session{out: out, cfg: cfg, env: env}, nil
}

func (s *session) prompt() string {
	switch {
	case s.pending():
		return CONTINUATION_PROMPT
	case s.raw:
		return RAW_PROMPT
	default:
		return s.cfg.Prompt
	}
}

func (s *session) pending() bool { return s.block || len(s.buffer) > 0 }

func (s *session) reset() {
	s.buffer = nil
	s.block = false
}

// feed handles one line of input. It returns the complete entry to add to
// history, if any, and whether the session should end.
func (s *session) feed(input string) (string, bool) {
	trimmed := strings.TrimSpace(input)

	if s.block {
		if trimmed == ":}" {
			source := strings.Join(s.buffer, "\n")
			s.reset()
			s.evaluate(source)
			return source, false
		}
		s.buffer = append(s.buffer, input)
		return "", false
	}

	if len(s.buffer) == 0 {
		switch {
		case trimmed == "":
			return "", false
		case trimmed == ":{":
			s.block = true
			return "", false
		case trimmed == "exit" || trimmed == "quit":
			fmt.Fprintln(s.out, "Goodbye!")
			return "", true
		case strings.HasPrefix(trimmed, ":"):
			return trimmed, s.command(trimmed)
		}
	}

	s.buffer = append(s.buffer, input)
	source := strings.Join(s.buffer, "\n")

	// Keep reading while the input is an unfinished expression
	if _, err := parser.Parse(source, Filename); parser.Incomplete(err) {
		return "", false
	}

	s.reset()
	s.evaluate(source)
	return source, false
}

func (s *session) evaluate(source string) {
	result, err := peme.Eval(source, s.env, Filename)
	if err != nil {
		printError(s.out, err)
		return
	}
	if result.Value == nil || result.Value == ast.NIL {
		return
	}
	if s.raw {
		fmt.Fprintln(s.out, ast.Display(result.Value))
	} else {
		fmt.Fprintln(s.out, result.Value.Inspect())
	}
}

// command handles REPL meta-commands that start with ':'.
// It returns true when the session should end.
func (s *session) command(cmd string) bool {
	name, arg, _ := strings.Cut(cmd, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case ":help", ":h", ":?":
		fmt.Fprintln(s.out, "REPL Commands:")
		fmt.Fprintln(s.out, "  :help, :h, :?     Show this help")
		fmt.Fprintln(s.out, "  :env              Show names defined in this session")
		fmt.Fprintln(s.out, "  :describe TOPIC   Document a builtin, form, type or stdlib function")
		fmt.Fprintln(s.out, "  :clear            Start again with a fresh scope")
		fmt.Fprintln(s.out, "  :raw              Toggle raw output mode (print-style output)")
		fmt.Fprintln(s.out, "  :{ ... :}         Enter several lines as one indented block")
		fmt.Fprintln(s.out, "  :quit, exit       Exit the REPL")

	case ":env":
		s.printEnvironment()

	case ":describe", ":d":
		result, err := help.DescribeTopic(arg)
		if err != nil {
			fmt.Fprintf(s.out, "%v\n", err)
			break
		}
		io.WriteString(s.out, help.FormatText(result))

	case ":clear":
		env, err := s.cfg.NewEnv()
		if err != nil {
			printError(s.out, err)
			break
		}
		s.env = env
		fmt.Fprintln(s.out, "Environment cleared")

	case ":raw":
		s.raw = !s.raw
		if s.raw {
			fmt.Fprintln(s.out, "Raw output mode ON (print-style output)")
		} else {
			fmt.Fprintln(s.out, "Raw output mode OFF (literal output)")
		}

	case ":quit", ":q":
		fmt.Fprintln(s.out, "Goodbye!")
		return true

	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type :help for commands)\n", cmd)
	}
	return false
}

// printEnvironment lists the names bound directly in the root scope,
// skipping bindings that a fresh scope already has.
func (s *session) printEnvironment() {
	fresh, err := s.cfg.NewEnv()
	if err != nil {
		fresh = evaluator.NewEnvironment()
	}

	var shown int
	for _, name := range s.env.LocalNames() {
		val, _ := s.env.Lookup(name)
		if orig, ok := fresh.Lookup(name); ok && sameBinding(orig, val) {
			continue
		}

		value := val.Inspect()
		if r := []rune(value); len(r) > 60 {
			value = string(r[:57]) + "..."
		}
		fmt.Fprintf(s.out, "  %s: %s = %s\n", name, strings.ToLower(string(val.Type())), value)
		shown++
	}
	if shown == 0 {
		fmt.Fprintln(s.out, "(no user variables)")
	}
}

// sameBinding reports whether two root bindings hold the same definition.
func sameBinding(a, b ast.Node) bool {
	switch a := a.(type) {
	case *evaluator.Lambda:
		bl, ok := b.(*evaluator.Lambda)
		return ok && a.Name == bl.Name && slices.Equal(a.Params, bl.Params) &&
			ast.Equal(ast.NewList(a.Body...), ast.NewList(bl.Body...))
	case *evaluator.Builtin, *evaluator.Form:
		return a.Type() == b.Type() && a.Inspect() == b.Inspect()
	case *ast.Object:
		return a == b
	}
	return ast.Equal(a, b)
}

// complete returns whole-line candidates that finish the word under the
// cursor with a name visible in the current scope.
func (s *session) complete(line string) []string {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	start := strings.LastIndexAny(line, " \t()") + 1
	word := line[start:]
	if word == "" {
		return nil
	}

	var matches []string
	for _, name := range s.env.AllIdentifiers() {
		if strings.HasPrefix(name, word) {
			matches = append(matches, line[:start]+name)
		}
	}
	return matches
}

func printError(out io.Writer, err error) {
	fmt.Fprintln(out, peme.FormatError(err))
}
