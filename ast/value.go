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
	"golang.org/x/exp/slices"
)

// ValueType is the type of value
// an expression evaluates to.
type ValueType uint8

const (
	// AnyType is a value whose type
	// is not known until a later phase
	// (i.e. an input field without a hint).
	AnyType ValueType = iota
	ErrorType
	NullType
	NumberType
	StringType
	BoolType
)

func (t ValueType) String() string {
	switch t {
	case ErrorType:
		return "error"
	case NullType:
		return "null"
	case NumberType:
		return "number"
	case StringType:
		return "string"
	case BoolType:
		return "boolean"
	default:
		return "any"
	}
}

// ParseValueType is the inverse of ValueType.String.
func ParseValueType(s string) (ValueType, bool) {
	for t := AnyType; t <= BoolType; t++ {
		if t.String() == s {
			return t, true
		}
	}
	return AnyType, false
}

// Accepts returns whether a value of type
// other may be used where t is expected.
// AnyType and NullType are accepted everywhere.
func (t ValueType) Accepts(other ValueType) bool {
	return t == other || t == AnyType || other == AnyType || other == NullType
}

// ExprClass classifies an expression
// by whether it aggregates its input.
type ExprClass uint8

const (
	Scalar ExprClass = iota
	AggregateClass
)

func (c ExprClass) String() string {
	if c == AggregateClass {
		return "aggregate"
	}
	return "scalar"
}

// EvalSpace describes where the value of
// an expression comes from. The spaces are
// ordered; combining expressions yields the
// greatest space of the inputs.
type EvalSpace uint8

const (
	// LiteralSpace is a value written directly in the query.
	LiteralSpace EvalSpace = iota
	// ConstantSpace is a value computed only from literals.
	ConstantSpace
	// InputSpace is a value computed per input row.
	InputSpace
	// OutputSpace is a value computed per output row.
	OutputSpace
)

func (e EvalSpace) String() string {
	switch e {
	case LiteralSpace:
		return "literal"
	case ConstantSpace:
		return "constant"
	case InputSpace:
		return "input"
	default:
		return "output"
	}
}

// mergeSpace combines the spaces of the
// operands of a computed expression;
// a computation over literals is constant
func mergeSpace(spaces ...EvalSpace) EvalSpace {
	out := ConstantSpace
	for _, s := range spaces {
		if s > out {
			out = s
		}
	}
	return out
}

// FieldUsage records a reference
// to an input field.
type FieldUsage struct {
	Path []string
}

// ExprValue is the result of translating
// an expression for semantic purposes.
//
// An ExprValue with Type == ErrorType is
// structurally identical to any other value;
// its Value is an *Error carrying the reason.
type ExprValue struct {
	Type  ValueType
	Class ExprClass
	Space EvalSpace
	// Value is the translated expression.
	Value Node
	// Usage is the set of input fields
	// referenced by Value.
	Usage []FieldUsage
}

// ErrorFor returns an error-kind value
// carrying reason. The value is scalar and
// constant and references no fields, so it can
// flow anywhere a normal ExprValue can.
// The reason is a short phrase meant for
// whoever is debugging the compiler.
func ErrorFor(reason string) ExprValue {
	return ExprValue{
		Type:  ErrorType,
		Class: Scalar,
		Space: ConstantSpace,
		Value: &Error{Reason: reason},
		Usage: []FieldUsage{},
	}
}

// IsError returns whether v is an error-kind value.
func (v *ExprValue) IsError() bool {
	return v.Type == ErrorType
}

// Reason returns the diagnostic message
// of an error-kind value, or "" if v is
// not an error.
func (v *ExprValue) Reason() string {
	if e, ok := v.Value.(*Error); ok && v.IsError() {
		return e.Reason
	}
	return ""
}

// Translated returns whether v has been
// produced by Translate or ErrorFor.
func (v *ExprValue) Translated() bool {
	return v.Value != nil
}

func (v ExprValue) clone() ExprValue {
	v.Value = Copy(v.Value)
	if v.Usage != nil {
		usage := make([]FieldUsage, len(v.Usage))
		for i := range v.Usage {
			usage[i].Path = slices.Clone(v.Usage[i].Path)
		}
		v.Usage = usage
	}
	return v
}

// mergeUsage concatenates usage sets,
// dropping duplicate paths
func mergeUsage(sets ...[]FieldUsage) []FieldUsage {
	out := []FieldUsage{}
	for _, set := range sets {
	outer:
		for i := range set {
			for j := range out {
				if slices.Equal(out[j].Path, set[i].Path) {
					continue outer
				}
			}
			out = append(out, FieldUsage{Path: slices.Clone(set[i].Path)})
		}
	}
	return out
}
