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
	"fmt"
	"strings"
)

// TypeError is the error type produced
// during translation when an expression
// is ill-typed.
type TypeError struct {
	At  Node
	Msg string
}

// SyntaxError is the error type
// produced during translation when an
// expression has illegal syntax.
type SyntaxError struct {
	Msg string
}

// Error implements error
func (t *TypeError) Error() string {
	return fmt.Sprintf("%q is ill-typed: %s", ToString(t.At), t.Msg)
}

func (s *SyntaxError) Error() string {
	return s.Msg
}

func errtype(e Node, msg string) *TypeError {
	return &TypeError{At: e, Msg: msg}
}

func errsyntaxf(f string, args ...interface{}) *SyntaxError {
	return &SyntaxError{Msg: fmt.Sprintf(f, args...)}
}

// carried is a failure recorded in the
// tree by an earlier phase; its reason
// is passed through untouched
type carried struct {
	reason string
}

func (c *carried) Error() string { return c.reason }

// Hint is an argument that can be
// supplied to Translate to refine the
// type of field references that would
// otherwise be unknown.
type Hint interface {
	TypeOf(e Node) ValueType
}

// HintFn is a function that implements Hint
type HintFn func(Node) ValueType

func (h HintFn) TypeOf(e Node) ValueType {
	return h(e)
}

// NoHint is the empty Hint
func NoHint(Node) ValueType {
	return AnyType
}

// Schema is a Hint that maps the
// dotted names of input fields to their types.
type Schema map[string]ValueType

func (s Schema) TypeOf(e Node) ValueType {
	if ref, ok := e.(*FieldRef); ok {
		if t, ok := s[ref.Name()]; ok {
			return t
		}
	}
	return AnyType
}

// Translate computes the ExprValue of n.
//
// Translate never fails: an ill-typed
// expression, or one that contains an *Error
// node, produces the result of ErrorFor with
// the reason for the failure. The reason of an
// *Error already present in the tree is
// preserved verbatim.
func Translate(n Node, h Hint) ExprValue {
	if h == nil {
		h = HintFn(NoHint)
	}
	v, err := translate(n, h)
	if err != nil {
		return ErrorFor(err.Error())
	}
	return v
}

func literal(n Node, t ValueType) ExprValue {
	return ExprValue{Type: t, Class: Scalar, Space: LiteralSpace, Value: n, Usage: []FieldUsage{}}
}

func maxClass(vals ...ExprValue) ExprClass {
	c := Scalar
	for i := range vals {
		if vals[i].Class > c {
			c = vals[i].Class
		}
	}
	return c
}

func spaces(vals ...ExprValue) EvalSpace {
	s := make([]EvalSpace, len(vals))
	for i := range vals {
		s[i] = vals[i].Space
	}
	return mergeSpace(s...)
}

func usages(vals ...ExprValue) []FieldUsage {
	u := make([][]FieldUsage, len(vals))
	for i := range vals {
		u[i] = vals[i].Usage
	}
	return mergeUsage(u...)
}

func computed(n Node, t ValueType, vals ...ExprValue) ExprValue {
	return ExprValue{
		Type:  t,
		Class: maxClass(vals...),
		Space: spaces(vals...),
		Value: n,
		Usage: usages(vals...),
	}
}

func isZero(n Node) bool {
	switch n := n.(type) {
	case Integer:
		return n == 0
	case Float:
		return n == 0
	}
	return false
}

func translate2(l, r Node, h Hint) (ExprValue, ExprValue, error) {
	lv, err := translate(l, h)
	if err != nil {
		return lv, lv, err
	}
	rv, err := translate(r, h)
	return lv, rv, err
}

func translate(n Node, h Hint) (ExprValue, error) {
	switch n := n.(type) {
	case nil:
		return ExprValue{}, errsyntaxf("missing expression")
	case Integer, Float:
		return literal(n, NumberType), nil
	case String:
		return literal(n, StringType), nil
	case Bool:
		return literal(n, BoolType), nil
	case Null:
		return literal(n, NullType), nil
	case *Error:
		return ExprValue{}, &carried{reason: n.Reason}
	case *FieldRef:
		if len(n.Path) == 0 {
			return ExprValue{}, errsyntaxf("empty field reference")
		}
		return ExprValue{
			Type:  h.TypeOf(n),
			Class: Scalar,
			Space: InputSpace,
			Value: n,
			Usage: []FieldUsage{{Path: n.Path}},
		}, nil
	case *Decl:
		return translate(n.Expr, h)
	case *Arithmetic:
		lv, rv, err := translate2(n.Left, n.Right, h)
		if err != nil {
			return ExprValue{}, err
		}
		if !NumberType.Accepts(lv.Type) || !NumberType.Accepts(rv.Type) {
			return ExprValue{}, errtype(n, "arguments are not numeric")
		}
		if (n.Op == DivOp || n.Op == ModOp) && isZero(n.Right) {
			return ExprValue{}, errtype(n, "division by zero")
		}
		return computed(n, NumberType, lv, rv), nil
	case *Comparison:
		lv, rv, err := translate2(n.Left, n.Right, h)
		if err != nil {
			return ExprValue{}, err
		}
		if !lv.Type.Accepts(rv.Type) {
			return ExprValue{}, errtype(n, "left- and right-hand-side do not have compatible types")
		}
		if n.Op.Ordinal() && (lv.Type == BoolType || rv.Type == BoolType) {
			return ExprValue{}, errtype(n, "boolean values are not ordered")
		}
		return computed(n, BoolType, lv, rv), nil
	case *Logical:
		lv, rv, err := translate2(n.Left, n.Right, h)
		if err != nil {
			return ExprValue{}, err
		}
		if !BoolType.Accepts(lv.Type) {
			return ExprValue{}, errtype(n, "left-hand-side not a logical expression")
		}
		if !BoolType.Accepts(rv.Type) {
			return ExprValue{}, errtype(n, "right-hand-side not a logical expression")
		}
		return computed(n, BoolType, lv, rv), nil
	case *Not:
		v, err := translate(n.Expr, h)
		if err != nil {
			return ExprValue{}, err
		}
		if !BoolType.Accepts(v.Type) {
			return ExprValue{}, errtype(n, "can't compute NOT of non-logical expression")
		}
		return computed(n, BoolType, v), nil
	case *Call:
		return translateCall(n, h)
	case *Aggregate:
		return translateAggregate(n, h)
	default:
		return ExprValue{}, errsyntaxf("cannot translate %s expression", n.Kind())
	}
}

type builtin struct {
	min, max int // max < 0 means variadic
	arg      ValueType
	ret      func(args []ExprValue) ValueType
}

func returns(t ValueType) func([]ExprValue) ValueType {
	return func([]ExprValue) ValueType { return t }
}

// firstKnown is the result type
// of COALESCE and friends
func firstKnown(args []ExprValue) ValueType {
	for i := range args {
		if args[i].Type != NullType && args[i].Type != AnyType {
			return args[i].Type
		}
	}
	return AnyType
}

var builtins = map[string]builtin{
	"lower":    {min: 1, max: 1, arg: StringType, ret: returns(StringType)},
	"upper":    {min: 1, max: 1, arg: StringType, ret: returns(StringType)},
	"trim":     {min: 1, max: 1, arg: StringType, ret: returns(StringType)},
	"length":   {min: 1, max: 1, arg: StringType, ret: returns(NumberType)},
	"concat":   {min: 1, max: -1, arg: StringType, ret: returns(StringType)},
	"abs":      {min: 1, max: 1, arg: NumberType, ret: returns(NumberType)},
	"ceil":     {min: 1, max: 1, arg: NumberType, ret: returns(NumberType)},
	"floor":    {min: 1, max: 1, arg: NumberType, ret: returns(NumberType)},
	"round":    {min: 1, max: 2, arg: NumberType, ret: returns(NumberType)},
	"coalesce": {min: 1, max: -1, arg: AnyType, ret: firstKnown},
}

func translateCall(c *Call, h Hint) (ExprValue, error) {
	b, ok := builtins[strings.ToLower(c.Name)]
	if !ok {
		return ExprValue{}, errsyntaxf("unknown function %q", c.Name)
	}
	if len(c.Args) < b.min || (b.max >= 0 && len(c.Args) > b.max) {
		if b.min == b.max {
			return ExprValue{}, errsyntaxf("%s expects %d argument(s), but found %d", c.Name, b.min, len(c.Args))
		}
		return ExprValue{}, errsyntaxf("%s expects at least %d argument(s), but found %d", c.Name, b.min, len(c.Args))
	}
	args := make([]ExprValue, len(c.Args))
	for i := range c.Args {
		v, err := translate(c.Args[i], h)
		if err != nil {
			return ExprValue{}, err
		}
		if !b.arg.Accepts(v.Type) {
			return ExprValue{}, errtype(c, fmt.Sprintf("argument %d must be of type %s", i+1, b.arg))
		}
		args[i] = v
	}
	return computed(c, b.ret(args), args...), nil
}

func translateAggregate(a *Aggregate, h Hint) (ExprValue, error) {
	if a.Op == OpNone {
		return ExprValue{}, errsyntaxf("invalid aggregate operation")
	}
	out := ExprValue{
		Type:  NumberType,
		Class: AggregateClass,
		Space: OutputSpace,
		Value: a,
		Usage: []FieldUsage{},
	}
	var parts []ExprValue
	if a.Inner == nil {
		if a.Op != OpCount {
			return ExprValue{}, errsyntaxf("%s requires an argument", a.Op)
		}
	} else {
		inner, err := translate(a.Inner, h)
		if err != nil {
			return ExprValue{}, err
		}
		if inner.Class == AggregateClass {
			return ExprValue{}, errtype(a, "aggregate function calls cannot be nested")
		}
		switch a.Op {
		case OpSum, OpAvg:
			if !NumberType.Accepts(inner.Type) {
				return ExprValue{}, errtype(a, fmt.Sprintf("cannot compute %s of non-numeric expression", a.Op))
			}
		case OpMin, OpMax:
			out.Type = inner.Type
		}
		parts = append(parts, inner)
	}
	if a.Filter != nil {
		f, err := translate(a.Filter, h)
		if err != nil {
			return ExprValue{}, err
		}
		if !BoolType.Accepts(f.Type) {
			return ExprValue{}, errtype(a.Filter, "filter is not a logical expression")
		}
		if f.Class == AggregateClass {
			return ExprValue{}, errtype(a.Filter, "filter cannot contain an aggregate")
		}
		parts = append(parts, f)
	}
	out.Usage = usages(parts...)
	return out, nil
}

// Errors returns every *Error node
// reachable from n in depth-first order.
func Errors(n Node) []*Error {
	var out []*Error
	Walk(VisitFn(func(n Node) bool {
		if e, ok := n.(*Error); ok {
			out = append(out, e)
		}
		return true
	}), n)
	return out
}
