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
	"io"
	"strings"

	"github.com/SnellerInc/semantic/ast"
)

// Problem is one failure recorded
// while building a query.
type Problem struct {
	// Clause is the keyword of the clause
	// the problem was found in, if any.
	Clause string
	// Name is the name of the offending
	// definition, if it has one.
	Name   string
	Reason string
}

func (p *Problem) String() string {
	var b strings.Builder
	if p.Clause != "" {
		b.WriteString(p.Clause)
		if p.Name != "" {
			b.WriteString(" ")
			b.WriteString(ast.QuoteID(p.Name))
		}
		b.WriteString(": ")
	}
	b.WriteString(p.Reason)
	return b.String()
}

// ProblemList is an error that
// lists every Problem found in a query.
type ProblemList []Problem

func (p ProblemList) Error() string {
	switch len(p) {
	case 0:
		return "no problems"
	case 1:
		return p[0].String()
	case 2:
		return fmt.Sprintf("%s (and 1 other problem)", p[0].String())
	default:
		return fmt.Sprintf("%s (and %d other problems)", p[0].String(), len(p)-1)
	}
}

// Err returns p as an error,
// or nil if p is empty.
func (p ProblemList) Err() error {
	if len(p) == 0 {
		return nil
	}
	return p
}

// WriteTo writes one line per problem to dst.
func (p ProblemList) WriteTo(dst io.Writer) (int64, error) {
	var nn int64
	for i := range p {
		n, err := fmt.Fprintf(dst, "%s\n", p[i].String())
		nn += int64(n)
		if err != nil {
			return nn, err
		}
	}
	return nn, nil
}

type reporter interface {
	problems() []Problem
}

func declProblems(clause string, lst []*ast.Decl) []Problem {
	var out []Problem
	for _, d := range lst {
		if d.Value.IsError() {
			out = append(out, Problem{Clause: clause, Name: d.Name, Reason: d.Value.Reason()})
		}
	}
	return out
}

func (a *Aggregate) problems() []Problem { return declProblems(a.Clause(), a.elements) }
func (g *GroupBy) problems() []Problem   { return declProblems(g.Clause(), g.elements) }
func (c *Calculate) problems() []Problem { return declProblems(c.Clause(), c.elements) }
func (s *Select) problems() []Problem    { return declProblems(s.Clause(), s.elements) }
func (f *Filter) problems() []Problem    { return declProblems(f.Clause(), f.elements) }

func (o *OrderBy) problems() []Problem {
	var out []Problem
	for i := range o.Items {
		if o.Items[i].Value.IsError() {
			out = append(out, Problem{Clause: o.Clause(), Reason: o.Items[i].Value.Reason()})
		}
	}
	return out
}

func (l *Limit) problems() []Problem {
	if l.Value.IsError() {
		return []Problem{{Clause: l.Clause(), Reason: l.Value.Reason()}}
	}
	return nil
}

// Problems returns the problems recorded
// in the elements of each clause, in order.
func Problems(props ...Property) ProblemList {
	var out ProblemList
	for _, p := range props {
		if r, ok := p.(reporter); ok {
			out = append(out, r.problems()...)
		}
	}
	return out
}
