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

// Kind is the discriminant of a Node.
// The set of kinds is closed; every
// concrete node type reports exactly one.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindFieldRef
	KindInteger
	KindFloat
	KindString
	KindBool
	KindNull
	KindArith
	KindCompare
	KindLogical
	KindNot
	KindCall
	KindAggregate
	KindDecl
	KindError

	maxKind
)

func (k Kind) String() string {
	switch k {
	case KindFieldRef:
		return "fieldref"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindNull:
		return "null"
	case KindArith:
		return "arith"
	case KindCompare:
		return "cmp"
	case KindLogical:
		return "logical"
	case KindNot:
		return "not"
	case KindCall:
		return "call"
	case KindAggregate:
		return "aggregate"
	case KindDecl:
		return "decl"
	case KindError:
		return "error"
	default:
		return "invalid"
	}
}

// Valid returns whether k is one of
// the defined node kinds.
func (k Kind) Valid() bool {
	return k > KindInvalid && k < maxKind
}
