// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package ast

import (
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
)

// Visitor is an interface that must
// be satisfied by the argument to Walk.
//
// A Visitor's Visit method is invoked for each node encountered by Walk. If
// the result visitor w is not nil, Walk visits each of the children of node
// with the visitor w, followed by a call of w.Visit(nil).
//
// (see also: ast.Visitor in go/ast)
type Visitor interface {
	Visit(Node) Visitor
}

// Walk traverses a tree in depth-first order: It starts by calling
// v.Visit(node); node must not be nil. If the visitor w returned by
// v.Visit(node) is not nil, Walk is invoked recursively with visitor w for
// each of the non-nil children of node, followed by a call of w.Visit(nil).
func Walk(v Visitor, n Node) {
	w := v.Visit(n)
	if w != nil {
		n.walk(w)
		w.Visit(nil)
	}
}

// VisitFn is a function that implements Visitor.
// Returning false from the function stops the
// traversal from descending into the node.
type VisitFn func(Node) bool

func (v VisitFn) Visit(n Node) Visitor {
	if n == nil || !v(n) {
		return nil
	}
	return v
}

// Printable is implemented by every Node.
type Printable interface {
	// text should write the textual representation
	// of this node to dst, and should redact itself
	// if it is a constant and redact is true
	text(dst *strings.Builder, redact bool)
}

// Node is an expression tree node.
//
// The set of Node implementations is closed;
// callers dispatch on Kind rather than on
// the dynamic type where possible.
type Node interface {
	Printable
	// Kind returns the discriminant
	// of the concrete node variant.
	Kind() Kind
	// Equals returns whether this node
	// is structurally equivalent to another node.
	Equals(Node) bool

	walk(Visitor)
	clone() Node
}

// Sequence is implemented by nodes
// that store their children positionally.
type Sequence interface {
	Len() int
	Child(i int) Node
	// SetChild overwrites the child
	// at position i; the rest of the
	// parent is left untouched.
	SetChild(i int, n Node)
}

// Fields is implemented by nodes
// that store their children in named slots.
type Fields interface {
	// Keys returns the names of the
	// populated child slots in a fixed order.
	Keys() []string
	Field(key string) Node
	// SetField overwrites the child
	// stored under key.
	SetField(key string, n Node)
}

// ToString returns the string
// representation of this node
// and its children in approximately
// query-language syntax
func ToString(p Printable) string {
	if p == nil {
		return "<nil>"
	}
	var dst strings.Builder
	p.text(&dst, false)
	return dst.String()
}

// ToRedacted returns the string
// representation of this node
// and its children, but with all constants
// replaced with random (deterministic) values.
func ToRedacted(p Printable) string {
	if p == nil {
		return "<nil>"
	}
	var dst strings.Builder
	p.text(&dst, true)
	return dst.String()
}

// Equal returns whether a and b are equivalent.
// a or b may be nil.
func Equal(a, b Node) bool {
	if a == nil {
		return b == nil
	}
	return b != nil && a.Equals(b)
}

// QuoteID produces a quoted identifier
// when s cannot be written bare.
func QuoteID(s string) string {
	if s == "" || strings.ContainsAny(s, " .%,~+-*/!<>=(){}[]:'\"`") {
		return "`" + strings.ReplaceAll(s, "`", "``") + "`"
	}
	for _, r := range s {
		if !strconv.IsPrint(r) {
			return strconv.Quote(s)
		}
	}
	return s
}

// FieldRef is a symbolic reference to a field,
// either an input field or a definition
// earlier in the same clause.
type FieldRef struct {
	Path []string
}

// Ref produces a field reference from
// a list of path components.
func Ref(path ...string) *FieldRef {
	return &FieldRef{Path: path}
}

func (f *FieldRef) Kind() Kind { return KindFieldRef }

// Name returns the dotted form of the path.
func (f *FieldRef) Name() string {
	return strings.Join(f.Path, ".")
}

// Head returns the first path component.
func (f *FieldRef) Head() string {
	if len(f.Path) == 0 {
		return ""
	}
	return f.Path[0]
}

func (f *FieldRef) text(dst *strings.Builder, redact bool) {
	for i := range f.Path {
		if i > 0 {
			dst.WriteByte('.')
		}
		dst.WriteString(QuoteID(f.Path[i]))
	}
}

func (f *FieldRef) Equals(x Node) bool {
	f2, ok := x.(*FieldRef)
	return ok && slices.Equal(f.Path, f2.Path)
}

func (f *FieldRef) walk(v Visitor) {}

func (f *FieldRef) clone() Node {
	return &FieldRef{Path: slices.Clone(f.Path)}
}

type Integer int64

func (i Integer) Kind() Kind { return KindInteger }

func (i Integer) text(dst *strings.Builder, redact bool) {
	if redact {
		i = Integer(redactInt(int64(i)))
	}
	dst.WriteString(strconv.FormatInt(int64(i), 10))
}

func (i Integer) Equals(e Node) bool {
	switch e := e.(type) {
	case Integer:
		return e == i
	case Float:
		return float64(i) == float64(e)
	}
	return false
}

func (i Integer) walk(v Visitor) {}
func (i Integer) clone() Node    { return i }

type Float float64

func (f Float) Kind() Kind { return KindFloat }

func (f Float) text(dst *strings.Builder, redact bool) {
	if redact {
		f = Float(redactFloat(float64(f)))
	}
	dst.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 64))
}

func (f Float) Equals(e Node) bool {
	switch e := e.(type) {
	case Float:
		return e == f
	case Integer:
		return float64(e) == float64(f)
	}
	return false
}

func (f Float) walk(v Visitor) {}
func (f Float) clone() Node    { return f }

type String string

func (s String) Kind() Kind { return KindString }

func (s String) text(dst *strings.Builder, redact bool) {
	if redact {
		s = String(redactString(string(s)))
	}
	dst.WriteString(strconv.Quote(string(s)))
}

func (s String) Equals(e Node) bool {
	s2, ok := e.(String)
	return ok && s == s2
}

func (s String) walk(v Visitor) {}
func (s String) clone() Node    { return s }

type Bool bool

func (b Bool) Kind() Kind { return KindBool }

func (b Bool) text(dst *strings.Builder, redact bool) {
	if b {
		dst.WriteString("true")
	} else {
		dst.WriteString("false")
	}
}

func (b Bool) Equals(e Node) bool {
	b2, ok := e.(Bool)
	return ok && b == b2
}

func (b Bool) walk(v Visitor) {}
func (b Bool) clone() Node    { return b }

type Null struct{}

func (n Null) Kind() Kind { return KindNull }

func (n Null) text(dst *strings.Builder, redact bool) {
	dst.WriteString("null")
}

func (n Null) Equals(e Node) bool {
	_, ok := e.(Null)
	return ok
}

func (n Null) walk(v Visitor) {}
func (n Null) clone() Node    { return n }

// binary operators print their operands
// parenthesized when they are themselves binary
func operand(dst *strings.Builder, n Node, redact bool) {
	switch n.Kind() {
	case KindArith, KindCompare, KindLogical:
		dst.WriteByte('(')
		n.text(dst, redact)
		dst.WriteByte(')')
	default:
		n.text(dst, redact)
	}
}

// binaryKeys are the slot names shared
// by every two-operand node
var binaryKeys = []string{"left", "right"}

type ArithOp int

const (
	AddOp ArithOp = iota
	SubOp
	MulOp
	DivOp
	ModOp
)

func (a ArithOp) String() string {
	switch a {
	case AddOp:
		return "+"
	case SubOp:
		return "-"
	case MulOp:
		return "*"
	case DivOp:
		return "/"
	case ModOp:
		return "%"
	default:
		return "<unknown arith op>"
	}
}

// Arithmetic is a binary arithmetic expression.
type Arithmetic struct {
	Op          ArithOp
	Left, Right Node
}

// NewArith generates a binary arithmetic expression.
func NewArith(op ArithOp, left, right Node) *Arithmetic {
	return &Arithmetic{Op: op, Left: left, Right: right}
}

func Add(left, right Node) *Arithmetic { return NewArith(AddOp, left, right) }
func Sub(left, right Node) *Arithmetic { return NewArith(SubOp, left, right) }
func Mul(left, right Node) *Arithmetic { return NewArith(MulOp, left, right) }
func Div(left, right Node) *Arithmetic { return NewArith(DivOp, left, right) }
func Mod(left, right Node) *Arithmetic { return NewArith(ModOp, left, right) }

func (a *Arithmetic) Kind() Kind { return KindArith }

func (a *Arithmetic) text(dst *strings.Builder, redact bool) {
	operand(dst, a.Left, redact)
	dst.WriteByte(' ')
	dst.WriteString(a.Op.String())
	dst.WriteByte(' ')
	operand(dst, a.Right, redact)
}

func (a *Arithmetic) Equals(x Node) bool {
	xa, ok := x.(*Arithmetic)
	return ok && xa.Op == a.Op && Equal(a.Left, xa.Left) && Equal(a.Right, xa.Right)
}

func (a *Arithmetic) walk(v Visitor) {
	Walk(v, a.Left)
	Walk(v, a.Right)
}

func (a *Arithmetic) clone() Node {
	return &Arithmetic{Op: a.Op, Left: Copy(a.Left), Right: Copy(a.Right)}
}

func (a *Arithmetic) Keys() []string { return binaryKeys }

func (a *Arithmetic) Field(key string) Node {
	switch key {
	case "left":
		return a.Left
	case "right":
		return a.Right
	}
	return nil
}

func (a *Arithmetic) SetField(key string, n Node) {
	switch key {
	case "left":
		a.Left = n
	case "right":
		a.Right = n
	}
}

// CmpOp is a comparison operator
type CmpOp int

const (
	Equals CmpOp = iota
	NotEquals
	Less
	LessEquals
	Greater
	GreaterEquals
)

func (c CmpOp) String() string {
	switch c {
	case Equals:
		return "="
	case NotEquals:
		return "!="
	case Less:
		return "<"
	case LessEquals:
		return "<="
	case Greater:
		return ">"
	case GreaterEquals:
		return ">="
	default:
		return "<unknown cmp op>"
	}
}

// Ordinal returns whether the comparison
// requires its arguments to be ordered.
func (c CmpOp) Ordinal() bool {
	return c != Equals && c != NotEquals
}

// Comparison is a binary comparison.
type Comparison struct {
	Op          CmpOp
	Left, Right Node
}

// Compare generates a comparison expression.
func Compare(op CmpOp, left, right Node) *Comparison {
	return &Comparison{Op: op, Left: left, Right: right}
}

func (c *Comparison) Kind() Kind { return KindCompare }

func (c *Comparison) text(dst *strings.Builder, redact bool) {
	operand(dst, c.Left, redact)
	dst.WriteByte(' ')
	dst.WriteString(c.Op.String())
	dst.WriteByte(' ')
	operand(dst, c.Right, redact)
}

func (c *Comparison) Equals(x Node) bool {
	ec, ok := x.(*Comparison)
	return ok && ec.Op == c.Op && Equal(c.Left, ec.Left) && Equal(c.Right, ec.Right)
}

func (c *Comparison) walk(v Visitor) {
	Walk(v, c.Left)
	Walk(v, c.Right)
}

func (c *Comparison) clone() Node {
	return &Comparison{Op: c.Op, Left: Copy(c.Left), Right: Copy(c.Right)}
}

func (c *Comparison) Keys() []string { return binaryKeys }

func (c *Comparison) Field(key string) Node {
	switch key {
	case "left":
		return c.Left
	case "right":
		return c.Right
	}
	return nil
}

func (c *Comparison) SetField(key string, n Node) {
	switch key {
	case "left":
		c.Left = n
	case "right":
		c.Right = n
	}
}

type LogicalOp int

const (
	OpAnd LogicalOp = iota // A AND B
	OpOr                   // A OR B
)

func (l LogicalOp) String() string {
	switch l {
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	default:
		return "<unknown logical op>"
	}
}

// Logical is a boolean conjunction or disjunction.
type Logical struct {
	Op          LogicalOp
	Left, Right Node
}

func And(left, right Node) *Logical { return &Logical{Op: OpAnd, Left: left, Right: right} }
func Or(left, right Node) *Logical  { return &Logical{Op: OpOr, Left: left, Right: right} }

func (l *Logical) Kind() Kind { return KindLogical }

func (l *Logical) text(dst *strings.Builder, redact bool) {
	operand(dst, l.Left, redact)
	dst.WriteByte(' ')
	dst.WriteString(l.Op.String())
	dst.WriteByte(' ')
	operand(dst, l.Right, redact)
}

func (l *Logical) Equals(x Node) bool {
	xl, ok := x.(*Logical)
	return ok && l.Op == xl.Op && Equal(l.Left, xl.Left) && Equal(l.Right, xl.Right)
}

func (l *Logical) walk(v Visitor) {
	Walk(v, l.Left)
	Walk(v, l.Right)
}

func (l *Logical) clone() Node {
	return &Logical{Op: l.Op, Left: Copy(l.Left), Right: Copy(l.Right)}
}

func (l *Logical) Keys() []string { return binaryKeys }

func (l *Logical) Field(key string) Node {
	switch key {
	case "left":
		return l.Left
	case "right":
		return l.Right
	}
	return nil
}

func (l *Logical) SetField(key string, n Node) {
	switch key {
	case "left":
		l.Left = n
	case "right":
		l.Right = n
	}
}

// Not is the boolean negation of Expr.
type Not struct {
	Expr Node
}

var exprKeys = []string{"expr"}

func (n *Not) Kind() Kind { return KindNot }

func (n *Not) text(dst *strings.Builder, redact bool) {
	dst.WriteString("not ")
	operand(dst, n.Expr, redact)
}

func (n *Not) Equals(x Node) bool {
	xn, ok := x.(*Not)
	return ok && Equal(n.Expr, xn.Expr)
}

func (n *Not) walk(v Visitor) {
	Walk(v, n.Expr)
}

func (n *Not) clone() Node {
	return &Not{Expr: Copy(n.Expr)}
}

func (n *Not) Keys() []string { return exprKeys }

func (n *Not) Field(key string) Node {
	if key == "expr" {
		return n.Expr
	}
	return nil
}

func (n *Not) SetField(key string, x Node) {
	if key == "expr" {
		n.Expr = x
	}
}

// Call is a call to a scalar function.
type Call struct {
	Name string
	Args []Node
}

// NewCall produces a call of the named function.
func NewCall(name string, args ...Node) *Call {
	return &Call{Name: name, Args: args}
}

func (c *Call) Kind() Kind { return KindCall }

func (c *Call) text(dst *strings.Builder, redact bool) {
	dst.WriteString(c.Name)
	dst.WriteByte('(')
	for i := range c.Args {
		if i > 0 {
			dst.WriteString(", ")
		}
		c.Args[i].text(dst, redact)
	}
	dst.WriteByte(')')
}

func (c *Call) Equals(x Node) bool {
	xc, ok := x.(*Call)
	return ok && c.Name == xc.Name && slices.EqualFunc(c.Args, xc.Args, Equal)
}

func (c *Call) walk(v Visitor) {
	for i := range c.Args {
		Walk(v, c.Args[i])
	}
}

func (c *Call) clone() Node {
	out := &Call{Name: c.Name, Args: make([]Node, len(c.Args))}
	for i := range c.Args {
		out.Args[i] = Copy(c.Args[i])
	}
	return out
}

func (c *Call) Len() int               { return len(c.Args) }
func (c *Call) Child(i int) Node       { return c.Args[i] }
func (c *Call) SetChild(i int, n Node) { c.Args[i] = n }

// AggregateOp is one of the aggregation operations
type AggregateOp int

const (
	// OpNone is the zero value; it
	// does not describe an aggregate.
	OpNone AggregateOp = iota
	OpCount
	OpCountDistinct
	OpSum
	OpAvg
	OpMin
	OpMax
)

func (a AggregateOp) String() string {
	switch a {
	case OpCount:
		return "count"
	case OpCountDistinct:
		return "count_distinct"
	case OpSum:
		return "sum"
	case OpAvg:
		return "avg"
	case OpMin:
		return "min"
	case OpMax:
		return "max"
	default:
		return "none"
	}
}

// LookupAggregate returns the aggregate
// operation with the given name, or OpNone.
func LookupAggregate(name string) AggregateOp {
	for op := OpCount; op <= OpMax; op++ {
		if strings.EqualFold(op.String(), name) {
			return op
		}
	}
	return OpNone
}

func (a AggregateOp) defaultResult() string {
	switch a {
	case OpCount, OpCountDistinct:
		return "count"
	case OpSum:
		return "sum"
	case OpAvg:
		return "avg"
	case OpMin:
		return "min"
	case OpMax:
		return "max"
	default:
		return ""
	}
}

// Aggregate is an aggregation expression
type Aggregate struct {
	// Op is the aggregation operation
	// (sum, min, max, etc.)
	Op AggregateOp
	// Inner is the expression to be aggregated;
	// it is nil for count()
	Inner Node
	// Filter is an optional filtering expression
	Filter Node
}

func Count(e Node) *Aggregate         { return &Aggregate{Op: OpCount, Inner: e} }
func CountDistinct(e Node) *Aggregate { return &Aggregate{Op: OpCountDistinct, Inner: e} }
func Sum(e Node) *Aggregate           { return &Aggregate{Op: OpSum, Inner: e} }
func Avg(e Node) *Aggregate           { return &Aggregate{Op: OpAvg, Inner: e} }
func Min(e Node) *Aggregate           { return &Aggregate{Op: OpMin, Inner: e} }
func Max(e Node) *Aggregate           { return &Aggregate{Op: OpMax, Inner: e} }

func (a *Aggregate) Kind() Kind { return KindAggregate }

func (a *Aggregate) text(dst *strings.Builder, redact bool) {
	if a.Op == OpCountDistinct {
		dst.WriteString("count(distinct ")
	} else {
		dst.WriteString(a.Op.String())
		dst.WriteByte('(')
	}
	if a.Inner != nil {
		a.Inner.text(dst, redact)
	}
	dst.WriteByte(')')
	if a.Filter != nil {
		dst.WriteString(" { where: ")
		a.Filter.text(dst, redact)
		dst.WriteString(" }")
	}
}

func (a *Aggregate) Equals(e Node) bool {
	ea, ok := e.(*Aggregate)
	return ok && ea.Op == a.Op && Equal(a.Inner, ea.Inner) && Equal(a.Filter, ea.Filter)
}

func (a *Aggregate) walk(v Visitor) {
	if a.Inner != nil {
		Walk(v, a.Inner)
	}
	if a.Filter != nil {
		Walk(v, a.Filter)
	}
}

func (a *Aggregate) clone() Node {
	return &Aggregate{Op: a.Op, Inner: Copy(a.Inner), Filter: Copy(a.Filter)}
}

func (a *Aggregate) Keys() []string {
	keys := make([]string, 0, 2)
	if a.Inner != nil {
		keys = append(keys, "inner")
	}
	if a.Filter != nil {
		keys = append(keys, "filter")
	}
	return keys
}

func (a *Aggregate) Field(key string) Node {
	switch key {
	case "inner":
		return a.Inner
	case "filter":
		return a.Filter
	}
	return nil
}

func (a *Aggregate) SetField(key string, n Node) {
	switch key {
	case "inner":
		a.Inner = n
	case "filter":
		a.Filter = n
	}
}

// Decl is a clause element: an expression
// bound to a definition name, i.e.
//
//	name := expr
//
// Bare expressions in a clause are represented
// as a Decl with an implicit name.
type Decl struct {
	Name string
	Expr Node
	// Value is the translated value of Expr;
	// it is the zero ExprValue until the
	// owning clause has been resolved.
	Value ExprValue
	// Implicit is set when Name was
	// derived from the shape of Expr
	// rather than written explicitly.
	Implicit bool
}

// Define creates an explicit definition.
func Define(name string, e Node) *Decl {
	return &Decl{Name: name, Expr: e}
}

// Declare wraps a bare expression in a
// definition whose name is derived from
// the expression, when it has an obvious one.
// If n is already a *Decl it is returned unchanged.
func Declare(n Node) *Decl {
	if d, ok := n.(*Decl); ok {
		return d
	}
	d := &Decl{Expr: n, Implicit: true}
	switch e := n.(type) {
	case *FieldRef:
		if len(e.Path) > 0 {
			d.Name = e.Path[len(e.Path)-1]
		}
	case *Aggregate:
		d.Name = e.Op.defaultResult()
	}
	return d
}

// Result returns the name of the
// result that the definition outputs.
func (d *Decl) Result() string { return d.Name }

func (d *Decl) Kind() Kind { return KindDecl }

func (d *Decl) text(dst *strings.Builder, redact bool) {
	if !d.Implicit && d.Name != "" {
		dst.WriteString(QuoteID(d.Name))
		dst.WriteString(" := ")
	}
	d.Expr.text(dst, redact)
}

func (d *Decl) Equals(x Node) bool {
	xd, ok := x.(*Decl)
	return ok && d.Name == xd.Name && Equal(d.Expr, xd.Expr)
}

func (d *Decl) walk(v Visitor) {
	Walk(v, d.Expr)
}

func (d *Decl) clone() Node {
	return &Decl{
		Name:     d.Name,
		Expr:     Copy(d.Expr),
		Value:    d.Value.clone(),
		Implicit: d.Implicit,
	}
}

func (d *Decl) Keys() []string { return exprKeys }

func (d *Decl) Field(key string) Node {
	if key == "expr" {
		return d.Expr
	}
	return nil
}

func (d *Decl) SetField(key string, n Node) {
	if key == "expr" {
		d.Expr = n
	}
}

// Error stands in for a sub-expression
// that could not be resolved or translated.
type Error struct {
	Reason string
}

func (e *Error) Kind() Kind { return KindError }

// text produces an identifier that can never
// name a real field, so the reason survives
// into generated output
func (e *Error) text(dst *strings.Builder, redact bool) {
	dst.WriteString(QuoteID("__error__: " + e.Reason))
}

func (e *Error) Equals(x Node) bool {
	xe, ok := x.(*Error)
	return ok && xe.Reason == e.Reason
}

func (e *Error) walk(v Visitor) {}

func (e *Error) clone() Node { return &Error{Reason: e.Reason} }

var (
	_ Sequence = &Call{}
	_ Fields   = &Arithmetic{}
	_ Fields   = &Comparison{}
	_ Fields   = &Logical{}
	_ Fields   = &Not{}
	_ Fields   = &Aggregate{}
	_ Fields   = &Decl{}
)
