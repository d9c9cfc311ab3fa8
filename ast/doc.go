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

// Package ast implements the tree representation
// of query-language expressions and clause elements.
//
// Each of the tree node types satisfies
// the Node interface, and each node reports
// its variant through Kind.
//
// The critical entry points for this package
// are Walk, RewriteDescendants, and Translate.
// Walk examines a tree, RewriteDescendants replaces
// subtrees of a particular kind in place, and Translate
// computes the ExprValue of an expression, folding any
// failure into an error-kind value rather than
// returning an error.
package ast
