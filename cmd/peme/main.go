package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sambeau/peme/config"
	"github.com/sambeau/peme/pkg/peme/ast"
	"github.com/sambeau/peme/pkg/peme/evaluator"
	"github.com/sambeau/peme/pkg/peme/format"
	"github.com/sambeau/peme/pkg/peme/help"
	"github.com/sambeau/peme/pkg/peme/parser"
	"github.com/sambeau/peme/pkg/peme/peme"
	"github.com/sambeau/peme/pkg/peme/repl"
	"github.com/sambeau/peme/pkg/peme/watch"
)

// Version is set at build time via -ldflags
var Version = "0.1.0-dev"

// exitCode is returned by run for failures that were already reported.
type exitCode int

func (e exitCode) Error() string {
	return fmt.Sprintf("exit status %d", int(e))
}

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv); err != nil {
		var code exitCode
		if errors.As(err, &code) {
			os.Exit(int(code))
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point, designed for testability (Mat Ryer pattern)
func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	// Check for subcommands first (before flag parsing)
	if len(args) > 0 {
		switch args[0] {
		case "describe":
			return describeCommand(args[1:], stdout, stderr)
		case "fmt":
			return fmtCommand(args[1:], stdout, stderr)
		}
	}

	flags := flag.NewFlagSet("peme", flag.ContinueOnError)
	flags.SetOutput(stderr)

	var (
		configPath      = flags.String("config", "", "Path to config file")
		evalFlag        = flags.String("e", "", "Evaluate code string")
		evalLongFlag    = flags.String("eval", "", "Evaluate code string")
		rawFlag         = flags.Bool("r", false, "Print the -e result as print would")
		rawLongFlag     = flags.Bool("raw", false, "Print the -e result as print would")
		checkFlag       = flags.Bool("check", false, "Check syntax without executing")
		watchFlag       = flags.Bool("watch", false, "Rerun the script whenever it changes")
		jsonFlag        = flags.Bool("json", false, "Report errors as JSON")
		versionFlag     = flags.Bool("V", false, "Show version")
		versionLongFlag = flags.Bool("version", false, "Show version")
		helpFlag        = flags.Bool("h", false, "Show help")
		helpLongFlag    = flags.Bool("help", false, "Show help")
	)
	flags.Usage = func() { printUsage(stderr) }

	if err := flags.Parse(args); err != nil {
		return err
	}

	if *helpFlag || *helpLongFlag {
		printUsage(stdout)
		return nil
	}

	if *versionFlag || *versionLongFlag {
		fmt.Fprintf(stdout, "peme version %s\n", Version)
		return nil
	}

	cfg, _, err := config.LoadWithPath(*configPath, getenv)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	report := reporter(stderr, *jsonFlag)

	evalCode := *evalFlag
	if evalCode == "" {
		evalCode = *evalLongFlag
	}

	switch {
	case evalCode != "":
		return executeInline(evalCode, flags.Args(), cfg, *rawFlag || *rawLongFlag, stdout, report)
	case *checkFlag:
		files := flags.Args()
		if len(files) == 0 {
			fmt.Fprintln(stderr, "Error: --check requires at least one file")
			return exitCode(2)
		}
		if code := checkFiles(files, stdout, stderr, report); code != 0 {
			return exitCode(code)
		}
		return nil
	case *watchFlag:
		if flags.NArg() == 0 {
			fmt.Fprintln(stderr, "Error: -watch requires a script")
			return exitCode(2)
		}
		// Set up signal handling so an interrupt ends the watch loop
		ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		return watchFile(ctx, flags.Arg(0), flags.Args()[1:], cfg, stdout, stderr, report)
	case flags.NArg() > 0:
		return executeFile(flags.Arg(0), flags.Args()[1:], cfg, stdout, report)
	default:
		return repl.Start(stdout, repl.Config{
			Prompt:  cfg.REPL.Prompt,
			History: cfg.REPL.History,
			Version: Version,
			NewEnv: func() (*evaluator.Environment, error) {
				return peme.NewEnvironment(options(cfg, repl.Filename, nil, stdout)...)
			},
		})
	}
}

// options turns configuration into interpreter options.
func options(cfg *config.Config, filename string, args []string, stdout io.Writer) []peme.Option {
	opts := []peme.Option{
		peme.WithFilename(filename),
		peme.WithArgs(args),
		peme.WithLogger(peme.WriterLogger(stdout)),
		peme.WithMaxDepth(cfg.MaxDepth),
	}
	switch {
	case cfg.NoStdlib:
		opts = append(opts, peme.WithoutStdlib())
	case cfg.Stdlib != "":
		opts = append(opts, peme.WithStdlibPath(cfg.Stdlib))
	}
	return opts
}

// reporter returns the function that prints interpreter failures to stderr,
// as a backtrace or as JSON.
func reporter(stderr io.Writer, asJSON bool) func(error) {
	return func(err error) {
		if asJSON {
			fmt.Fprintln(stderr, peme.FormatErrorJSON(err))
			return
		}
		fmt.Fprintln(stderr, peme.FormatError(err))
	}
}

// executeInline evaluates inline code provided via -e and prints the result
func executeInline(code string, args []string, cfg *config.Config, raw bool, stdout io.Writer, report func(error)) error {
	result, err := peme.Run(code, options(cfg, "<eval>", args, stdout)...)
	if err != nil {
		report(err)
		return exitCode(1)
	}

	if raw {
		if result.Value != ast.NIL {
			fmt.Fprintln(stdout, ast.Display(result.Value))
		}
		return nil
	}
	fmt.Fprintln(stdout, result.String())
	return nil
}

// executeFile runs a script with its arguments bound to argv
func executeFile(filename string, args []string, cfg *config.Config, stdout io.Writer, report func(error)) error {
	if _, err := peme.RunFile(filename, options(cfg, filename, args, stdout)...); err != nil {
		report(err)
		return exitCode(1)
	}
	return nil
}

// watchFile runs a script and reruns it whenever it, the configured
// standard library or any configured watch path changes
func watchFile(ctx context.Context, filename string, args []string, cfg *config.Config, stdout, stderr io.Writer, report func(error)) error {
	log := watch.NewLog(stdout, stderr, cfg.Logging.Level, cfg.Logging.Format)

	w, err := watch.New(cfg.Watch.Debounce, log)
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	paths := append([]string{filename}, cfg.Watch.Paths...)
	if cfg.Stdlib != "" {
		paths = append(paths, cfg.Stdlib)
	}
	for _, path := range paths {
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
	}

	return w.Run(ctx, func() {
		if _, err := peme.RunFile(filename, options(cfg, filename, args, stdout)...); err != nil {
			report(err)
			log.Error("%s failed", filename)
			return
		}
		log.Debug("%s finished", filename)
	})
}

// checkFiles checks the syntax of one or more files without executing them.
// It returns 2 when a file cannot be read and 1 when any has syntax errors.
func checkFiles(files []string, stdout, stderr io.Writer, report func(error)) int {
	hasErrors := false

	for _, filename := range files {
		content, err := os.ReadFile(filename)
		if err != nil {
			fmt.Fprintf(stderr, "Error reading %s: %v\n", filename, err)
			return 2 // File error
		}

		if err := peme.Check(string(content), filename); err != nil {
			report(err)
			hasErrors = true
			continue
		}
		fmt.Fprintf(stdout, "%s: ok\n", filename)
	}

	if hasErrors {
		return 1 // Syntax errors
	}
	return 0
}

// describeCommand implements the 'peme describe <topic>' subcommand
func describeCommand(args []string, stdout, stderr io.Writer) error {
	jsonOutput := false
	var topic string

	for _, arg := range args {
		if arg == "--json" || arg == "-json" {
			jsonOutput = true
		} else if topic == "" {
			topic = arg
		}
	}

	if topic == "" {
		fmt.Fprintln(stderr, `Usage: peme describe [--json] <topic>

Topics:
  builtins           List all builtin functions by category
  forms              List all special forms
  types              List all value types
  stdlib             List the standard library functions
  <name>             Help for a builtin, form, type or stdlib function

Examples:
  peme describe builtins
  peme describe define
  peme describe square
  peme describe --json print`)
		return exitCode(1)
	}

	result, err := help.DescribeTopic(topic)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCode(1)
	}

	if jsonOutput {
		data, err := help.FormatJSON(result)
		if err != nil {
			return fmt.Errorf("formatting JSON: %w", err)
		}
		fmt.Fprintln(stdout, string(data))
		return nil
	}
	fmt.Fprint(stdout, help.FormatText(result))
	return nil
}

// fmtCommand implements 'peme fmt', which prints files in canonical
// indented form
func fmtCommand(args []string, stdout, stderr io.Writer) error {
	fmtFlags := flag.NewFlagSet("fmt", flag.ContinueOnError)
	fmtFlags.SetOutput(stderr)
	listFlag := fmtFlags.Bool("l", false, "List files whose formatting differs from peme fmt's")
	fmtFlags.Usage = func() {
		fmt.Fprint(stderr, `peme fmt - print peme source in canonical form

Usage:
  peme fmt [-l] <file>...

Options:
  -l    List files whose formatting differs from peme fmt's

Comments are not preserved.
`)
	}

	if err := fmtFlags.Parse(args); err != nil {
		return err
	}

	files := fmtFlags.Args()
	if len(files) == 0 {
		fmt.Fprintln(stderr, "Error: no files specified")
		fmtFlags.Usage()
		return exitCode(1)
	}

	failed := false
	for _, filename := range files {
		content, err := os.ReadFile(filename)
		if err != nil {
			fmt.Fprintf(stderr, "Error reading %s: %v\n", filename, err)
			failed = true
			continue
		}
		program, err := parser.Parse(string(content), filename)
		if err != nil {
			fmt.Fprintln(stderr, peme.FormatError(err))
			failed = true
			continue
		}

		formatted := format.FormatProgram(program)
		if *listFlag {
			if formatted != string(content) {
				fmt.Fprintln(stdout, filename)
			}
			continue
		}
		fmt.Fprint(stdout, formatted)
	}

	if failed {
		return exitCode(1)
	}
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `peme - an indentation-sensitive Lisp

Usage:
  peme [options] [script.scm] [args...]
  peme -e "code" [args...]
  peme --check <file>...
  peme -watch <script.scm> [args...]
  peme describe [--json] <topic>
  peme fmt [-l] <file>...

Options:
  -e, --eval CODE  Evaluate code and print the result
  -r, --raw        Print the -e result as print would
  --check          Check syntax without executing
  -watch           Rerun the script whenever it changes
  --json           Report errors as JSON instead of a backtrace
  --config PATH    Path to config file (default: auto-detect)
  -V, --version    Show version
  -h, --help       Show this help

Config Resolution:
  1. --config flag
  2. PEME_CONFIG environment variable
  3. ./peme.yaml
  4. ~/.config/peme/peme.yaml

Examples:
  peme                         Start the REPL
  peme script.scm a b          Run a script; argv is ("a" "b")
  peme -e "(square 12)"        Evaluate inline code (outputs: 144)
  peme --check *.scm           Check syntax of several files
  peme describe builtins       List all builtin functions
`)
}
