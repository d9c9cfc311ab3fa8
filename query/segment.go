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

// Segment is one stage of a query pipeline:
// the clauses that together compute one
// set of output rows from the rows of the
// previous stage.
type Segment struct {
	Props []Property
}

// NewSegment returns a segment made of props.
func NewSegment(props ...Property) *Segment {
	return &Segment{Props: props}
}

// Class returns the class forced by the
// first clause in s that forces one.
// A segment in which no clause forces a
// class is a projection.
func (s *Segment) Class() Class {
	for _, p := range s.Props {
		if c := p.Class(); c != ClassNone {
			return c
		}
	}
	return ClassProject
}

type definer interface {
	Names() []string
}

// Outputs returns the names of the fields
// the segment outputs, in clause order.
func (s *Segment) Outputs() []string {
	var out []string
	for _, p := range s.Props {
		if d, ok := p.(definer); ok {
			out = append(out, d.Names()...)
		}
	}
	return out
}

// Problems returns the problems recorded in
// the clauses of s followed by the problems
// with how the clauses fit together.
func (s *Segment) Problems() ProblemList {
	out := Problems(s.Props...)
	var forcedBy Property
	limits := 0
	// duplicates within one clause are
	// already reported as redefinitions
	seen := make(map[string]Property)
	for _, p := range s.Props {
		if c := p.Class(); c != ClassNone {
			if forcedBy == nil {
				forcedBy = p
			} else if c != forcedBy.Class() {
				out = append(out, Problem{
					Clause: p.Clause(),
					Reason: fmt.Sprintf("not allowed in a %s query (forced by %s)", forcedBy.Class(), forcedBy.Clause()),
				})
			}
		}
		if d, ok := p.(definer); ok {
			for _, name := range d.Names() {
				prev, ok := seen[name]
				if !ok {
					seen[name] = p
				} else if prev != p {
					out = append(out, Problem{Clause: p.Clause(), Name: name, Reason: "output field defined more than once"})
				}
			}
		}
		if _, ok := p.(*Limit); ok {
			limits++
			if limits == 2 {
				out = append(out, Problem{Clause: p.Clause(), Reason: "limit given more than once"})
			}
		}
	}
	return append(out, s.orderProblems()...)
}

// orderProblems checks order_by items
// against the outputs of s. A segment
// that names no outputs passes its input
// fields through, so anything goes.
func (s *Segment) orderProblems() []Problem {
	outputs := s.Outputs()
	if len(outputs) == 0 {
		return nil
	}
	var out []Problem
	for _, p := range s.Props {
		o, ok := p.(*OrderBy)
		if !ok {
			continue
		}
		for i := range o.Items {
			it := &o.Items[i]
			if it.Value.IsError() {
				continue
			}
			switch by := it.By.(type) {
			case *ast.FieldRef:
				if !contains(outputs, by.Head()) {
					out = append(out, Problem{Clause: o.Clause(), Reason: fmt.Sprintf("%s is not an output field", ast.QuoteID(by.Head()))})
				}
			case ast.Integer:
				if int(by) > len(outputs) {
					out = append(out, Problem{Clause: o.Clause(), Reason: fmt.Sprintf("column %d is out of range (%d output fields)", int64(by), len(outputs))})
				}
			}
		}
	}
	return out
}

func contains(lst []string, s string) bool {
	for i := range lst {
		if lst[i] == s {
			return true
		}
	}
	return false
}

// Pipeline is a sequence of segments,
// each reading the output of the one before.
type Pipeline struct {
	Segments []*Segment
}

// Refine adds props to the segments of p
// that their stages select. A clause whose
// stage cannot select a segment of p is
// not added and is reported instead.
func (p *Pipeline) Refine(props ...Property) ProblemList {
	var out ProblemList
	n := len(p.Segments)
	for _, prop := range props {
		i := prop.Stage().target(n)
		if i < 0 {
			reason := "there is no query to refine"
			if n > 0 {
				reason = fmt.Sprintf("cannot refine a query with %d segments", n)
			}
			out = append(out, Problem{Clause: prop.Clause(), Reason: reason})
			continue
		}
		seg := p.Segments[i]
		seg.Props = append(seg.Props, prop)
	}
	return out
}

// Class returns the class of the last
// segment of p, which determines the shape
// of the query result.
func (p *Pipeline) Class() Class {
	if len(p.Segments) == 0 {
		return ClassNone
	}
	return p.Segments[len(p.Segments)-1].Class()
}

// Problems returns the problems
// of every segment in order.
func (p *Pipeline) Problems() ProblemList {
	var out ProblemList
	for _, s := range p.Segments {
		out = append(out, s.Problems()...)
	}
	return out
}
