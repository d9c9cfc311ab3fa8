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
	"strings"
	"testing"

	"github.com/SnellerInc/semantic/ast"
)

func reasons(p ProblemList) string {
	var lst []string
	for i := range p {
		lst = append(lst, p[i].String())
	}
	return strings.Join(lst, "; ")
}

func TestSegment(t *testing.T) {
	grouped := func(extra ...Property) *Segment {
		props := []Property{
			NewGroupBy(nil, ast.Ref("carrier")),
			NewAggregate(nil, ast.Define("total", ast.Sum(ast.Ref("amount"))), ast.Count(nil)),
		}
		return NewSegment(append(props, extra...)...)
	}
	testcases := []struct {
		seg   *Segment
		class Class
		want  []string // substrings of each problem, in order
	}{
		{seg: grouped(), class: ClassGrouping},
		{seg: NewSegment(), class: ClassProject},
		{seg: NewSegment(NewWhere(nil, ast.Bool(true)), NewLimit(ast.Integer(1))), class: ClassProject},
		{
			seg:   grouped(NewOrderBy(OrderItem{By: ast.Ref("total"), Desc: true}, OrderItem{By: ast.Integer(3)})),
			class: ClassGrouping,
		},
		{
			seg:   grouped(NewOrderBy(OrderItem{By: ast.Ref("amount")}, OrderItem{By: ast.Integer(4)})),
			class: ClassGrouping,
			want:  []string{"order_by: amount is not an output field", "order_by: column 4 is out of range (3 output fields)"},
		},
		{
			seg:   grouped(NewSelect(nil, ast.Ref("x"))),
			class: ClassGrouping,
			want:  []string{"select: not allowed in a grouping query (forced by group_by)"},
		},
		{
			seg:   NewSegment(NewSelect(nil, ast.Ref("x")), NewHaving(nil, ast.Bool(true))),
			class: ClassProject,
			want:  []string{"having: not allowed in a project query (forced by select)"},
		},
		{
			seg:   grouped(NewCalculate(nil, ast.Define("total", ast.Integer(1)))),
			class: ClassGrouping,
			want:  []string{"calculate total: output field defined more than once"},
		},
		{
			seg:   grouped(NewLimit(ast.Integer(1)), NewLimit(ast.Integer(2))),
			class: ClassGrouping,
			want:  []string{"limit: limit given more than once"},
		},
		{
			seg:   grouped(NewAggregate(nil, ast.Ref("carrier"))),
			class: ClassGrouping,
			want: []string{
				"aggregate carrier: 'carrier' is not an aggregate expression",
				"aggregate carrier: output field defined more than once",
			},
		},
	}
	for i := range testcases {
		seg := testcases[i].seg
		if c := seg.Class(); c != testcases[i].class {
			t.Errorf("case %d: class %s, want %s", i, c, testcases[i].class)
		}
		p := seg.Problems()
		if len(p) != len(testcases[i].want) {
			t.Errorf("case %d: problems %q", i, reasons(p))
			continue
		}
		for j := range p {
			if !strings.Contains(p[j].String(), testcases[i].want[j]) {
				t.Errorf("case %d: problem %d is %q, want %q", i, j, p[j].String(), testcases[i].want[j])
			}
		}
	}
}

func TestOutputs(t *testing.T) {
	seg := NewSegment(
		NewWhere(nil, ast.Bool(true)),
		NewGroupBy(nil, ast.Ref("a", "carrier"), ast.Ref("origin")),
		NewAggregate(nil, ast.Count(nil)),
	)
	got := seg.Outputs()
	want := []string{"carrier", "origin", "count"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("outputs = %v, want %v", got, want)
	}
}

func TestRefine(t *testing.T) {
	base := func(n int) *Pipeline {
		p := &Pipeline{}
		for i := 0; i < n; i++ {
			p.Segments = append(p.Segments, NewSegment(NewGroupBy(nil, ast.Ref("k"))))
		}
		return p
	}

	p := base(1)
	where := NewWhere(nil, ast.Bool(true))
	agg := NewAggregate(nil, ast.Count(nil))
	if probs := p.Refine(where, agg, NewLimit(ast.Integer(5))); len(probs) != 0 {
		t.Fatal(probs)
	}
	if len(p.Segments[0].Props) != 4 {
		t.Errorf("refined segment has %d clauses", len(p.Segments[0].Props))
	}
	if p.Class() != ClassGrouping {
		t.Errorf("class = %s", p.Class())
	}

	p = base(3)
	limit := NewLimit(ast.Integer(5))
	probs := p.Refine(where, agg, limit)
	if len(probs) != 1 || probs[0].Clause != "aggregate" || probs[0].Reason != "cannot refine a query with 3 segments" {
		t.Errorf("problems: %q", reasons(probs))
	}
	if last := p.Segments[2].Props; last[len(last)-1] != limit {
		t.Error("limit did not refine the last segment")
	}
	if first := p.Segments[0].Props; first[len(first)-1] != where {
		t.Error("where did not refine the first segment")
	}
	if len(p.Segments[1].Props) != 1 {
		t.Error("middle segment was refined")
	}

	var empty Pipeline
	probs = empty.Refine(where)
	if len(probs) != 1 || probs[0].Reason != "there is no query to refine" {
		t.Errorf("problems: %q", reasons(probs))
	}
	if empty.Class() != ClassNone {
		t.Errorf("empty pipeline class = %s", empty.Class())
	}
}
