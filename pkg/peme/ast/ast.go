// Package ast defines the node model shared by parsed code and runtime
// values. Every variant embeds Base, which carries the node's source span
// and its attribute map.
package ast

import (
	"sort"
	"strconv"
	"strings"
)

// NodeType names a node variant.
type NodeType string

const (
	NIL_NODE     = "NIL"
	BOOL_NODE    = "BOOL"
	INT_NODE     = "INT"
	FLOAT_NODE   = "FLOAT"
	STRING_NODE  = "STRING"
	SYMBOL_NODE  = "SYMBOL"
	LIST_NODE    = "LIST"
	OBJECT_NODE  = "OBJECT"
	LAMBDA_NODE  = "LAMBDA"
	BUILTIN_NODE = "BUILTIN"
	FORM_NODE    = "FORM"
)

// AttributeHead is the reserved head symbol of an attribute-access list:
// (__attribute__ owner name).
const AttributeHead = "__attribute__"

// Node is implemented by every value. The set of implementations is closed:
// a type outside this package becomes a Node only by embedding Base.
type Node interface {
	Type() NodeType
	// Inspect renders the node as source text where possible.
	Inspect() string

	Attr(name string) (Node, bool)
	SetAttr(name string, value Node)
	AttrNames() []string

	Span() Span
	Source() *Source
	SetPosition(span Span, src *Source)

	base() *Base
}

// Span is a half-open byte interval [Start, End) in the source text.
type Span struct {
	Start int
	End   int
}

// Base holds the state common to all nodes.
type Base struct {
	attrs map[string]Node
	span  Span
	src   *Source
}

func (b *Base) base() *Base { return b }

// Attr returns the named attribute.
func (b *Base) Attr(name string) (Node, bool) {
	v, ok := b.attrs[name]
	return v, ok
}

// SetAttr creates or replaces the named attribute.
func (b *Base) SetAttr(name string, value Node) {
	if b.attrs == nil {
		b.attrs = make(map[string]Node)
	}
	b.attrs[name] = value
}

// AttrNames returns the attribute names in sorted order.
func (b *Base) AttrNames() []string {
	names := make([]string, 0, len(b.attrs))
	for name := range b.attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Span returns the node's source span. Nodes built at run time have a zero span
// and no source.
func (b *Base) Span() Span { return b.span }

// Source returns the parse unit the node came from, or nil.
func (b *Base) Source() *Source { return b.src }

// SetPosition records where the node was parsed from.
func (b *Base) SetPosition(span Span, src *Source) {
	b.span = span
	b.src = src
}

// Nil is the absent-value sentinel.
type Nil struct{ Base }

func (n *Nil) Type() NodeType  { return NIL_NODE }
func (n *Nil) Inspect() string { return "nil" }

// Bool is true or false.
type Bool struct {
	Base
	Value bool
}

func (b *Bool) Type() NodeType  { return BOOL_NODE }
func (b *Bool) Inspect() string { return strconv.FormatBool(b.Value) }

// Int is a 64-bit integer.
type Int struct {
	Base
	Value int64
}

func (i *Int) Type() NodeType  { return INT_NODE }
func (i *Int) Inspect() string { return strconv.FormatInt(i.Value, 10) }

// Float is an IEEE double.
type Float struct {
	Base
	Value float64
}

func (f *Float) Type() NodeType  { return FLOAT_NODE }
func (f *Float) Inspect() string { return FormatFloat(f.Value) }

// FormatFloat renders v so that it scans back as a float literal.
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if strings.ContainsAny(s, ".NI") {
		return s
	}
	return s + ".0"
}

// String is a string literal value.
type String struct {
	Base
	Value string
}

func (s *String) Type() NodeType  { return STRING_NODE }
func (s *String) Inspect() string { return quote(s.Value) }

func quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteByte(s[i])
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// Symbol is an identifier. Symbols compare by name.
type Symbol struct {
	Base
	Name string
}

func (s *Symbol) Type() NodeType  { return SYMBOL_NODE }
func (s *Symbol) Inspect() string { return s.Name }

// List is a combination in code and the only composite data value.
type List struct {
	Base
	Elements []Node
}

func (l *List) Type() NodeType { return LIST_NODE }
func (l *List) Inspect() string {
	if owner, name, ok := AttributeParts(l); ok {
		return owner.Inspect() + "." + name.Name
	}
	parts := make([]string, len(l.Elements))
	for i, e := range l.Elements {
		parts[i] = e.Inspect()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// Object is a user object: a node whose only content is its attributes.
type Object struct{ Base }

func (o *Object) Type() NodeType  { return OBJECT_NODE }
func (o *Object) Inspect() string { return "<object>" }

// Singletons.
var (
	NIL   = &Nil{}
	TRUE  = &Bool{Value: true}
	FALSE = &Bool{Value: false}
)

// NativeBool converts a Go bool to TRUE or FALSE.
func NativeBool(b bool) *Bool {
	if b {
		return TRUE
	}
	return FALSE
}

func NewInt(v int64) *Int           { return &Int{Value: v} }
func NewFloat(v float64) *Float     { return &Float{Value: v} }
func NewString(v string) *String    { return &String{Value: v} }
func NewSymbol(name string) *Symbol { return &Symbol{Name: name} }
func NewObject() *Object            { return &Object{} }

// NewList builds a list from elements.
func NewList(elements ...Node) *List {
	return &List{Elements: elements}
}

// NewAttribute builds the attribute-access node owner.name.
func NewAttribute(owner Node, name *Symbol) *List {
	return NewList(NewSymbol(AttributeHead), owner, name)
}

// AttributeParts recognizes an attribute-access node structurally.
func AttributeParts(n Node) (owner Node, name *Symbol, ok bool) {
	l, isList := n.(*List)
	if !isList || len(l.Elements) != 3 {
		return nil, nil, false
	}
	head, isSym := l.Elements[0].(*Symbol)
	if !isSym || head.Name != AttributeHead {
		return nil, nil, false
	}
	name, ok = l.Elements[2].(*Symbol)
	if !ok {
		return nil, nil, false
	}
	return l.Elements[1], name, true
}

// IsAttribute reports whether n is an attribute-access node.
func IsAttribute(n Node) bool {
	_, _, ok := AttributeParts(n)
	return ok
}

// Display renders n the way print shows it: strings without quotes,
// everything else as Inspect.
func Display(n Node) string {
	if s, ok := n.(*String); ok {
		return s.Value
	}
	return n.Inspect()
}

// Equal reports structural equality of parsed data, ignoring spans and
// attributes. Numbers compare by value across Int and Float.
func Equal(a, b Node) bool {
	switch a := a.(type) {
	case *Int:
		switch b := b.(type) {
		case *Int:
			return a.Value == b.Value
		case *Float:
			return float64(a.Value) == b.Value
		}
		return false
	case *Float:
		switch b := b.(type) {
		case *Int:
			return a.Value == float64(b.Value)
		case *Float:
			return a.Value == b.Value
		}
		return false
	case *Bool:
		bb, ok := b.(*Bool)
		return ok && a.Value == bb.Value
	case *Nil:
		_, ok := b.(*Nil)
		return ok
	case *String:
		bs, ok := b.(*String)
		return ok && a.Value == bs.Value
	case *Symbol:
		bs, ok := b.(*Symbol)
		return ok && a.Name == bs.Name
	case *List:
		bl, ok := b.(*List)
		if !ok || len(a.Elements) != len(bl.Elements) {
			return false
		}
		for i := range a.Elements {
			if !Equal(a.Elements[i], bl.Elements[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// Program is the result of parsing one source unit.
type Program struct {
	Nodes  []Node
	Source *Source
}

func (p *Program) String() string {
	parts := make([]string, len(p.Nodes))
	for i, n := range p.Nodes {
		parts[i] = n.Inspect()
	}
	return strings.Join(parts, "\n")
}
