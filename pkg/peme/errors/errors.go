// Package errors provides structured error types for the peme language.
//
// This package defines PemeError, a unified error type that represents
// lexical, parse and runtime failures with enough metadata to render a
// backtrace: the failing position, the source line, and the call frames
// that were active when the failure first crossed a function call.
package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"golang.org/x/text/width"
)

// ErrorClass categorizes errors for filtering and templating.
type ErrorClass string

const (
	ClassLexical   ErrorClass = "lexical"   // Unrecognized source text
	ClassParse     ErrorClass = "parse"     // Parentheses and indentation
	ClassUndefined ErrorClass = "undefined" // Unbound symbols
	ClassArity     ErrorClass = "arity"     // Wrong argument count
	ClassAttribute ErrorClass = "attribute" // Missing attributes and overloads
	ClassAssertion ErrorClass = "assertion" // Failed assert forms
	ClassType      ErrorClass = "type"      // Incompatible value shapes
	ClassOperator  ErrorClass = "operator"  // Arithmetic faults
	ClassIO        ErrorClass = "io"        // File operations
	ClassRecursion ErrorClass = "recursion" // Call depth limit
)

// Frame is one entry of a captured call stack.
type Frame struct {
	File   string `json:"file"`
	Line   int    `json:"line"`   // 1-based
	Column int    `json:"column"` // 1-based, in runes
	Text   string `json:"text"`   // the full source line
}

// String renders the frame as a location message with a caret under the
// failing column.
func (f Frame) String() string {
	file := f.File
	if file == "" {
		file = "<unknown>"
	}
	return fmt.Sprintf("In file %s, on line %d:\n%s\n%s^", file, f.Line, f.Text, caretPadding(f.Text, f.Column))
}

// caretPadding returns the whitespace that puts a caret under column of text.
// Tabs are copied and wide runes take two cells.
func caretPadding(text string, column int) string {
	var sb strings.Builder
	n := 0
	for _, r := range text {
		if n >= column-1 {
			break
		}
		n++
		if r == '\t' {
			sb.WriteByte('\t')
			continue
		}
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			sb.WriteString("  ")
		default:
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

// PemeError represents any error from scanning, parsing or evaluation.
type PemeError struct {
	Class      ErrorClass     `json:"class"`             // Error category
	Code       string         `json:"code"`              // Error code (e.g., "ARITY-0001")
	Message    string         `json:"message"`           // Human-readable message
	Hints      []string       `json:"hints,omitempty"`   // Suggestions for fixing
	Line       int            `json:"line"`              // 1-based line (0 if unknown)
	Column     int            `json:"column"`            // 1-based column (0 if unknown)
	File       string         `json:"file,omitempty"`    // File path (if known)
	SourceLine string         `json:"source,omitempty"`  // Text of the failing line
	Frames     []Frame        `json:"frames,omitempty"`  // Call stack captured on first propagation
	Data       map[string]any `json:"data,omitempty"`    // Template variables
	captured   bool
}

// Error implements the error interface.
func (e *PemeError) Error() string {
	return e.String()
}

// String returns a formatted single-location representation of the error.
func (e *PemeError) String() string {
	var sb strings.Builder

	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf("line %d, column %d: ", e.Line, e.Column))
	}

	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// Kind returns the user-facing name of the error's class.
func (e *PemeError) Kind() string {
	switch e.Class {
	case ClassLexical:
		return "LexicalError"
	case ClassParse:
		return "ParseError"
	case ClassUndefined:
		return "UnboundSymbolError"
	case ClassArity:
		return "ArityError"
	case ClassAttribute:
		return "AttributeError"
	case ClassAssertion:
		return "AssertionError"
	case ClassOperator:
		return "ArithmeticError"
	case ClassIO:
		return "IOError"
	case ClassRecursion:
		return "RecursionError"
	default:
		return "TypeError"
	}
}

// Backtrace renders every captured frame, outermost first, followed by the
// error description. When no frame was captured the error's own position is
// shown instead.
func (e *PemeError) Backtrace() string {
	var sb strings.Builder

	if len(e.Frames) > 0 {
		for _, f := range e.Frames {
			sb.WriteString(f.String())
			sb.WriteString("\n")
		}
	} else if e.Line > 0 && e.SourceLine != "" {
		sb.WriteString(e.Location().String())
		sb.WriteString("\n")
	}

	sb.WriteString(e.Kind())
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// Location returns the error's own position as a Frame.
func (e *PemeError) Location() Frame {
	return Frame{File: e.File, Line: e.Line, Column: e.Column, Text: e.SourceLine}
}

// CaptureFrames records frames unless an earlier call already did. It reports
// whether the frames were recorded by this call.
func (e *PemeError) CaptureFrames(frames []Frame) bool {
	if e.captured {
		return false
	}
	e.captured = true
	e.Frames = frames
	return true
}

// Captured reports whether a call stack snapshot has been taken.
func (e *PemeError) Captured() bool {
	return e.captured
}

// ToJSONIndent returns the error as indented JSON bytes, with its kind
// alongside the catalog fields.
func (e *PemeError) ToJSONIndent() ([]byte, error) {
	type fields PemeError
	return json.MarshalIndent(struct {
		Kind string `json:"kind"`
		*fields
	}{e.Kind(), (*fields)(e)}, "", "  ")
}

// IsSyntaxError returns true for lexical and parse errors.
func (e *PemeError) IsSyntaxError() bool {
	return e.Class == ClassLexical || e.Class == ClassParse
}

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Class    ErrorClass // Error category
	Template string     // Message template with {{.placeholders}}
	Hints    []string   // Hint templates (may use {{.placeholders}})
}

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	// ========================================
	// Lexical errors (LEX-0xxx)
	// ========================================
	"LEX-0001": {
		Class:    ClassLexical,
		Template: "unrecognized token '{{.Token}}' at offset {{.Offset}}",
	},
	"LEX-0002": {
		Class:    ClassLexical,
		Template: "unterminated block comment",
		Hints:    []string{"close the comment with |#"},
	},
	"LEX-0003": {
		Class:    ClassLexical,
		Template: "unterminated string",
	},
	"LEX-0004": {
		Class:    ClassLexical,
		Template: "attribute '.{{.Name}}' must directly follow an expression",
		Hints:    []string{"owner.{{.Name}}"},
	},

	// ========================================
	// Parse errors (PARSE-0xxx)
	// ========================================
	"PARSE-0001": {
		Class:    ClassParse,
		Template: "missing open parenthesis",
	},
	"PARSE-0002": {
		Class:    ClassParse,
		Template: "missing close parenthesis",
	},
	"PARSE-0003": {
		Class:    ClassParse,
		Template: "invalid indent {{.Indent}}",
		Hints:    []string{"indentation must extend or repeat the indentation of an enclosing line"},
	},
	"PARSE-0004": {
		Class:    ClassParse,
		Template: "attribute '.{{.Name}}' has no owner expression",
	},
	"PARSE-0005": {
		Class:    ClassParse,
		Template: "integer literal {{.Literal}} is out of range",
		Hints:    []string{"integers are 64-bit; write {{.Literal}}.0 for a float"},
	},

	// ========================================
	// Undefined errors (UNDEF-0xxx)
	// ========================================
	"UNDEF-0001": {
		Class:    ClassUndefined,
		Template: "unrecognized symbol: {{.Name}}",
		// Hint "Did you mean `X`?" added dynamically by fuzzy matching
	},
	"UNDEF-0002": {
		Class:    ClassUndefined,
		Template: "assignment to unrecognized symbol: {{.Name}}",
		Hints:    []string{"declare it first with (define {{.Name}} value)"},
	},

	// ========================================
	// Arity errors (ARITY-0xxx)
	// ========================================
	"ARITY-0001": {
		Class:    ClassArity,
		Template: "lambda {{.Function}} expected {{.Want}} args but found {{.Got}}",
	},
	"ARITY-0002": {
		Class:    ClassArity,
		Template: "`{{.Function}}` expects {{.Want}} argument(s), got {{.Got}}",
	},
	"ARITY-0003": {
		Class:    ClassArity,
		Template: "`{{.Function}}` expects {{.Min}}-{{.Max}} arguments, got {{.Got}}",
	},

	// ========================================
	// Attribute errors (ATTR-0xxx)
	// ========================================
	"ATTR-0001": {
		Class:    ClassAttribute,
		Template: "{{.Type}} has no attribute '{{.Name}}'",
	},
	"ATTR-0002": {
		Class:    ClassAttribute,
		Template: "object does not overload '{{.Operator}}'",
		Hints:    []string{"(set! (obj.{{.Operator}} other) ...)"},
	},
	"ATTR-0003": {
		Class:    ClassAttribute,
		Template: "cannot set attribute '{{.Name}}' on {{.Type}}",
		Hints:    []string{"nil, true and false are shared constants; wrap the value in an (Object)"},
	},

	// ========================================
	// Assertion errors (ASSERT-0xxx)
	// ========================================
	"ASSERT-0001": {
		Class:    ClassAssertion,
		Template: "assertion failed: {{.Expr}}",
	},

	// ========================================
	// Type errors (TYPE-0xxx)
	// ========================================
	"TYPE-0001": {
		Class:    ClassType,
		Template: "`{{.Function}}` expected {{.Expected}}, got {{.Got}}",
	},
	"TYPE-0002": {
		Class:    ClassType,
		Template: "cannot call {{.Got}}",
	},
	"TYPE-0003": {
		Class:    ClassType,
		Template: "I don't know how to '{{.Form}}' {{.Got}}",
	},
	"TYPE-0004": {
		Class:    ClassType,
		Template: "cannot evaluate an empty combination ()",
		Hints:    []string{"(quote ()) produces an empty list"},
	},

	// ========================================
	// Operator errors (OP-0xxx)
	// ========================================
	"OP-0001": {
		Class:    ClassOperator,
		Template: "division by zero in `{{.Function}}`",
	},
	"OP-0002": {
		Class:    ClassOperator,
		Template: "result of `{{.Function}}` does not fit in a 64-bit integer",
	},

	// ========================================
	// Recursion errors (REC-0xxx)
	// ========================================
	"REC-0001": {
		Class:    ClassRecursion,
		Template: "maximum recursion depth exceeded ({{.Limit}} calls)",
	},

	// ========================================
	// I/O errors (IO-0xxx)
	// ========================================
	"IO-0001": {
		Class:    ClassIO,
		Template: "failed to read {{.Path}}: {{.GoError}}",
	},
}

// New creates a PemeError from the catalog.
// If the code is not found, creates a generic error with the message.
func New(code string, data map[string]any) *PemeError {
	def, ok := ErrorCatalog[code]
	if !ok {
		msg := code
		if data != nil {
			if m, ok := data["message"].(string); ok {
				msg = m
			}
		}
		return &PemeError{
			Class:   ClassType,
			Code:    code,
			Message: msg,
			Data:    data,
		}
	}

	msg := renderTemplate(def.Template, data)

	var hints []string
	for _, hintTmpl := range def.Hints {
		rendered := renderTemplate(hintTmpl, data)
		if rendered != "" {
			hints = append(hints, rendered)
		}
	}

	return &PemeError{
		Class:   def.Class,
		Code:    code,
		Message: msg,
		Hints:   hints,
		Data:    data,
	}
}

// NewSimple creates a simple error without using the catalog.
func NewSimple(class ErrorClass, message string) *PemeError {
	return &PemeError{
		Class:   class,
		Message: message,
	}
}

// renderTemplate renders a Go template with the given data.
func renderTemplate(tmplStr string, data map[string]any) string {
	if data == nil {
		return tmplStr
	}

	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}

	return buf.String()
}

// ============================================================================
// Fuzzy Matching - "Did you mean?" suggestions
// ============================================================================

// levenshteinDistance computes the edit distance between two strings.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(a)][len(b)]
}

// threshold returns the largest edit distance worth suggesting for input.
func threshold(input string) int {
	switch {
	case len(input) >= 7:
		return 3
	case len(input) >= 4:
		return 2
	default:
		return 1
	}
}

// FindClosestMatch finds the closest match to the given string from candidates.
// Returns the best match if the distance is within the threshold, otherwise empty string.
func FindClosestMatch(input string, candidates []string) string {
	if len(input) == 0 || len(candidates) == 0 {
		return ""
	}

	// Sorted so ties resolve the same way on every run.
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)

	var bestMatch string
	bestDistance := -1

	for _, candidate := range sorted {
		dist := levenshteinDistance(input, candidate)
		if bestDistance == -1 || dist < bestDistance {
			bestDistance = dist
			bestMatch = candidate
		}
	}

	if bestDistance <= 0 || bestDistance > threshold(input) {
		return ""
	}

	return bestMatch
}

// NewUnboundSymbol creates an unbound symbol error with optional fuzzy matching.
func NewUnboundSymbol(name string, visible []string) *PemeError {
	err := New("UNDEF-0001", map[string]any{"Name": name})

	if suggestion := FindClosestMatch(name, visible); suggestion != "" {
		err.Hints = append(err.Hints, "Did you mean `"+suggestion+"`?")
	}

	return err
}
