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

// RewriteFunc is the callback passed to
// RewriteDescendants. It returns the node
// that should replace its argument, or nil
// to leave the argument in place.
type RewriteFunc func(Node) Node

// RewriteDescendants scans the children of root
// for nodes of the given kind and calls fn on each.
//
// root may be any value: if it implements
// Sequence its children are scanned by position,
// and if it implements Fields they are scanned
// by key. Anything else has no children and
// RewriteDescendants returns immediately.
//
// When fn returns a replacement, it is written
// into the slot the child was read from (the
// same position or key) and the replacement is
// not scanned again. A child that does not match,
// or that fn declines to replace, is scanned
// recursively in the same manner.
// Each reachable slot is visited exactly once.
func RewriteDescendants(root interface{}, kind Kind, fn RewriteFunc) {
	switch p := root.(type) {
	case Sequence:
		for i := 0; i < p.Len(); i++ {
			if out := rewriteSlot(p.Child(i), kind, fn); out != nil {
				p.SetChild(i, out)
			}
		}
	case Fields:
		for _, key := range p.Keys() {
			if out := rewriteSlot(p.Field(key), kind, fn); out != nil {
				p.SetField(key, out)
			}
		}
	}
}

// rewriteSlot returns the replacement
// for child, or nil if there is none
func rewriteSlot(child Node, kind Kind, fn RewriteFunc) Node {
	if child == nil {
		return nil
	}
	if child.Kind() == kind {
		if out := fn(child); out != nil {
			return out
		}
	}
	RewriteDescendants(child, kind, fn)
	return nil
}

// Collect returns every node of the given kind
// reachable from the children of root, in the
// order RewriteDescendants visits them.
func Collect(root interface{}, kind Kind) []Node {
	var out []Node
	RewriteDescendants(root, kind, func(n Node) Node {
		out = append(out, n)
		return nil
	})
	return out
}
