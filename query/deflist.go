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

package query

import (
	"fmt"

	"github.com/SnellerInc/semantic/ast"

	"golang.org/x/exp/slices"
)

// Definition is an element of a DefinitionList.
type Definition interface {
	ast.Node
	// Result is the name the element defines,
	// or "" if it defines none.
	Result() string
}

// DefinitionList is an ordered list of
// named elements. Its length is fixed at
// construction; the elements themselves may
// be rewritten in place.
type DefinitionList[T Definition] struct {
	elements []T
	// wrap turns a replacement that is not
	// a T into one that occupies the same slot
	wrap func(old T, n ast.Node) T
}

func newDefinitionList[T Definition](elements []T, wrap func(old T, n ast.Node) T) DefinitionList[T] {
	return DefinitionList[T]{elements: elements, wrap: wrap}
}

// declSlot wraps a replacement for a
// declaration so that the slot keeps its
// name and carries the value of the new node.
func declSlot(h ast.Hint) func(*ast.Decl, ast.Node) *ast.Decl {
	return func(old *ast.Decl, n ast.Node) *ast.Decl {
		d := &ast.Decl{Expr: n}
		if old != nil {
			d.Name = old.Name
			d.Implicit = old.Implicit
		}
		d.Value = ast.Translate(n, h)
		return d
	}
}

// Len returns the number of elements.
func (d *DefinitionList[T]) Len() int { return len(d.elements) }

// At returns element i.
func (d *DefinitionList[T]) At(i int) T { return d.elements[i] }

// Elements returns the elements
// in declaration order.
func (d *DefinitionList[T]) Elements() []T {
	return slices.Clone(d.elements)
}

// Names returns the non-empty definition
// names in declaration order.
func (d *DefinitionList[T]) Names() []string {
	var out []string
	for _, e := range d.elements {
		if name := e.Result(); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Lookup returns the first element
// defining name.
func (d *DefinitionList[T]) Lookup(name string) (T, bool) {
	for _, e := range d.elements {
		if e.Result() == name {
			return e, true
		}
	}
	var zero T
	return zero, false
}

// Child implements ast.Sequence
func (d *DefinitionList[T]) Child(i int) ast.Node { return d.elements[i] }

// SetChild implements ast.Sequence.
// A replacement that is not of the element
// type is wrapped so the slot keeps its shape.
func (d *DefinitionList[T]) SetChild(i int, n ast.Node) {
	if t, ok := n.(T); ok {
		d.elements[i] = t
		return
	}
	if d.wrap == nil {
		panic(fmt.Sprintf("query.DefinitionList: cannot store %T", n))
	}
	d.elements[i] = d.wrap(d.elements[i], n)
}
