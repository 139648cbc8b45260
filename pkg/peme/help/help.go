// Package help provides topic-based documentation for peme, used by
// `peme describe` and the REPL's :describe command.
package help

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sambeau/peme/pkg/peme/ast"
	perrors "github.com/sambeau/peme/pkg/peme/errors"
	"github.com/sambeau/peme/pkg/peme/evaluator"
	"github.com/sambeau/peme/pkg/peme/stdlib"
)

// TopicResult represents the help output for a topic
type TopicResult struct {
	Kind        string                  `json:"kind"`
	Name        string                  `json:"name"`
	Description string                  `json:"description,omitempty"`
	Builtins    []evaluator.BuiltinInfo `json:"builtins,omitempty"`
	Types       []TypeInfo              `json:"types,omitempty"`
	Functions   []StdlibFunction        `json:"functions,omitempty"`
	Params      []string                `json:"params,omitempty"`
	Arity       string                  `json:"arity,omitempty"`
	Category    string                  `json:"category,omitempty"`
	Example     string                  `json:"example,omitempty"`
	Definition  string                  `json:"definition,omitempty"`
}

// TypeInfo describes one value variant.
type TypeInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Example     string `json:"example,omitempty"`
}

// StdlibFunction is a function defined by the standard library source.
type StdlibFunction struct {
	Name       string   `json:"name"`
	Params     []string `json:"params"`
	Definition string   `json:"definition"`
}

var typeInfo = []TypeInfo{
	{"nil", "The absent value; falsy", "nil"},
	{"bool", "true or false; only false and nil are falsy", "true"},
	{"int", "64-bit signed integer", "42"},
	{"float", "64-bit floating point number", "3.5"},
	{"string", "Immutable text; prints without quotes", `"hello"`},
	{"symbol", "A name; evaluates to its binding", "(quote x)"},
	{"list", "A sequence; evaluates as a call", "(list* 1 2)"},
	{"object", "A bag of named attributes", "(Object)"},
	{"lambda", "A user function closing over its scope", "(lambda (x) (* x x))"},
	{"builtin", "A function implemented by the interpreter", "print"},
	{"form", "A special form that receives its operands unevaluated", "if"},
}

// DescribeTopic returns help information for the given topic.
// Topics are the keywords builtins, forms, types and stdlib, a type name,
// or the name of a builtin, special form or standard library function.
func DescribeTopic(topic string) (*TopicResult, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("no topic specified (try: builtins, forms, types, stdlib, print)")
	}

	switch topic {
	case "builtins":
		return &TopicResult{Kind: "builtin-list", Name: "builtins", Builtins: evaluator.Builtins()}, nil
	case "forms":
		return &TopicResult{Kind: "form-list", Name: "forms", Builtins: evaluator.Forms()}, nil
	case "types":
		return &TopicResult{Kind: "type-list", Name: "types", Types: typeInfo}, nil
	case "stdlib":
		fns, err := stdlibFunctions()
		if err != nil {
			return nil, err
		}
		return &TopicResult{
			Kind:        "stdlib-list",
			Name:        "stdlib",
			Description: "Functions defined in peme itself and loaded before every script",
			Functions:   fns,
		}, nil
	}

	if info, ok := evaluator.BuiltinMetadata[topic]; ok {
		return fromInfo("builtin", info), nil
	}
	if info, ok := evaluator.FormMetadata[topic]; ok {
		return fromInfo("form", info), nil
	}
	for _, ti := range typeInfo {
		if strings.EqualFold(ti.Name, topic) {
			return &TopicResult{Kind: "type", Name: ti.Name, Description: ti.Description, Example: ti.Example}, nil
		}
	}
	if fns, err := stdlibFunctions(); err == nil {
		for _, fn := range fns {
			if fn.Name == topic {
				return &TopicResult{
					Kind:       "stdlib",
					Name:       fn.Name,
					Params:     fn.Params,
					Arity:      fmt.Sprint(len(fn.Params)),
					Definition: fn.Definition,
				}, nil
			}
		}
	}

	return nil, unknownTopicError(topic)
}

func fromInfo(kind string, info evaluator.BuiltinInfo) *TopicResult {
	return &TopicResult{
		Kind:        kind,
		Name:        info.Name,
		Description: info.Description,
		Params:      info.Params,
		Arity:       info.Arity,
		Category:    info.Category,
		Example:     info.Example,
	}
}

// stdlibFunctions lists every (define (name params...) ...) in the embedded
// standard library, sorted by name.
func stdlibFunctions() ([]StdlibFunction, error) {
	program, err := stdlib.Program()
	if err != nil {
		return nil, err
	}
	var fns []StdlibFunction
	for _, node := range program.Nodes {
		def, ok := node.(*ast.List)
		if !ok || len(def.Elements) < 2 {
			continue
		}
		if head, ok := def.Elements[0].(*ast.Symbol); !ok || head.Name != "define" {
			continue
		}
		sig, ok := def.Elements[1].(*ast.List)
		if !ok || len(sig.Elements) == 0 {
			continue
		}
		name, ok := sig.Elements[0].(*ast.Symbol)
		if !ok {
			continue
		}
		params := make([]string, 0, len(sig.Elements)-1)
		for _, p := range sig.Elements[1:] {
			params = append(params, p.Inspect())
		}
		fns = append(fns, StdlibFunction{Name: name.Name, Params: params, Definition: def.Inspect()})
	}
	sort.Slice(fns, func(i, j int) bool { return fns[i].Name < fns[j].Name })
	return fns, nil
}

// topicNames lists every topic DescribeTopic accepts.
func topicNames() []string {
	names := []string{"builtins", "forms", "types", "stdlib"}
	for name := range evaluator.BuiltinMetadata {
		names = append(names, name)
	}
	for name := range evaluator.FormMetadata {
		names = append(names, name)
	}
	for _, ti := range typeInfo {
		names = append(names, ti.Name)
	}
	if fns, err := stdlibFunctions(); err == nil {
		for _, fn := range fns {
			names = append(names, fn.Name)
		}
	}
	return names
}

// unknownTopicError generates a helpful error for unknown topics
func unknownTopicError(topic string) error {
	if match := perrors.FindClosestMatch(topic, topicNames()); match != "" {
		return fmt.Errorf("unknown topic: %s\nDid you mean: %s?", topic, match)
	}
	return fmt.Errorf("unknown topic: %s\nTry: builtins, forms, types, stdlib", topic)
}
