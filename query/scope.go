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
)

// Scope is an immutable set of the local
// definitions visible to a clause element.
// The zero Scope is empty.
//
// With returns a new Scope and leaves the
// receiver unchanged, so a Scope captured
// before an element was resolved continues
// to describe exactly what that element saw.
type Scope struct {
	top *binding
	n   int
}

type binding struct {
	def  *ast.Decl
	next *binding
}

// With returns s extended with def.
func (s Scope) With(def *ast.Decl) Scope {
	return Scope{top: &binding{def: def, next: s.top}, n: s.n + 1}
}

// Lookup returns the definition named name.
func (s Scope) Lookup(name string) (*ast.Decl, bool) {
	for b := s.top; b != nil; b = b.next {
		if b.def.Name == name {
			return b.def, true
		}
	}
	return nil, false
}

// Len returns the number of definitions in s.
func (s Scope) Len() int { return s.n }

// Names returns the names in s
// in the order they were added.
func (s Scope) Names() []string {
	out := make([]string, s.n)
	i := s.n
	for b := s.top; b != nil; b = b.next {
		i--
		out[i] = b.def.Name
	}
	return out
}

// substitute returns the replacement
// for a reference, or nil if ref
// does not name a local definition
func (s Scope) substitute(ref *ast.FieldRef) ast.Node {
	def, ok := s.Lookup(ref.Head())
	if !ok {
		return nil
	}
	if len(ref.Path) > 1 {
		return &ast.Error{Reason: fmt.Sprintf("cannot use '.' on local definition '%s'", def.Name)}
	}
	if def.Value.IsError() {
		return &ast.Error{Reason: def.Value.Reason()}
	}
	return ast.Copy(def.Expr)
}

// ResolveElement resolves one clause element
// against the definitions in s and returns the
// resolved definition together with the scope
// visible to the next element.
//
// Every reference in el whose head names a
// definition in s is replaced with a copy of
// that definition's (already resolved)
// expression. References to names not in s,
// including names defined later in the same
// clause, are left alone. The result is then
// translated with h.
//
// Failures never escape as errors: the
// returned definition carries an error value
// instead. A definition whose name is
// already in s is not added to the scope.
func ResolveElement(s Scope, el ast.Node, h ast.Hint) (*ast.Decl, Scope) {
	def := ast.Declare(el)
	ast.RewriteDescendants(def, ast.KindFieldRef, func(n ast.Node) ast.Node {
		return s.substitute(n.(*ast.FieldRef))
	})
	if def.Name == "" {
		def.Value = ast.Translate(def.Expr, h)
		return def, s
	}
	if _, ok := s.Lookup(def.Name); ok {
		def.Value = ast.ErrorFor(fmt.Sprintf("cannot redefine '%s'", def.Name))
		return def, s
	}
	def.Value = ast.Translate(def.Expr, h)
	return def, s.With(def)
}

// resolveAll resolves items in declaration
// order. If check is non-nil, it is called on
// each element that resolved successfully and
// any reason it returns becomes the element's
// error value.
func resolveAll(items []ast.Node, h ast.Hint, check func(d *ast.Decl) string) []*ast.Decl {
	out := make([]*ast.Decl, len(items))
	var s Scope
	for i := range items {
		d, next := ResolveElement(s, items[i], h)
		if check != nil && !d.Value.IsError() {
			if reason := check(d); reason != "" {
				d.Value = ast.ErrorFor(reason)
			}
		}
		out[i], s = d, next
	}
	return out
}
