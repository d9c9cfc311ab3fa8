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
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	testcases := []struct {
		in   Node
		want string
	}{
		{Ref("a", "b"), "a.b"},
		{Ref("a b"), "`a b`"},
		{Add(Ref("x"), Mul(Integer(2), Float(1.5))), "x + (2 * 1.5)"},
		{Define("pct", Div(Ref("total"), Integer(100))), "pct := total / 100"},
		{Declare(Ref("carrier")), "carrier"},
		{CountDistinct(Ref("id")), "count(distinct id)"},
		{Count(nil), "count()"},
		{&Aggregate{Op: OpSum, Inner: Ref("x"), Filter: Compare(Greater, Ref("x"), Integer(0))}, "sum(x) { where: x > 0 }"},
		{And(Bool(true), &Not{Expr: Null{}}), "true and not null"},
		{NewCall("lower", String("AB")), `lower("AB")`},
		{&Error{Reason: "bad"}, "`__error__: bad`"},
	}
	for i := range testcases {
		if got := ToString(testcases[i].in); got != testcases[i].want {
			t.Errorf("case %d: got %s, want %s", i, got, testcases[i].want)
		}
	}
}

func TestRedacted(t *testing.T) {
	e := And(Compare(Equals, Ref("name"), String("secret")), Compare(Greater, Ref("n"), Integer(12345)))
	plain := ToString(e)
	red := ToRedacted(e)
	if red == plain {
		t.Fatal("redacted text is identical to plain text")
	}
	if strings.Contains(red, "secret") || strings.Contains(red, "12345") {
		t.Errorf("constants leaked: %s", red)
	}
	if !strings.Contains(red, "name") || !strings.Contains(red, "n >") {
		t.Errorf("identifiers should survive redaction: %s", red)
	}
	if ToRedacted(e) != red {
		t.Error("redaction is not deterministic")
	}
}

func TestDeclare(t *testing.T) {
	testcases := []struct {
		in   Node
		name string
	}{
		{Ref("a", "carrier"), "carrier"},
		{Sum(Ref("x")), "sum"},
		{CountDistinct(Ref("x")), "count"},
		{Add(Ref("x"), Integer(1)), ""},
	}
	for i := range testcases {
		d := Declare(testcases[i].in)
		if d.Name != testcases[i].name || !d.Implicit {
			t.Errorf("case %d: got %q (implicit=%v)", i, d.Name, d.Implicit)
		}
	}
	explicit := Define("x", Integer(1))
	if Declare(explicit) != explicit {
		t.Error("Declare should return an existing Decl unchanged")
	}
}

func TestCopy(t *testing.T) {
	orig := Define("t", &Aggregate{
		Op:     OpSum,
		Inner:  NewCall("abs", Ref("amount")),
		Filter: Compare(NotEquals, Ref("k"), String("x")),
	})
	orig.Value = Translate(orig, nil)
	cp := Copy(orig).(*Decl)
	if !cp.Equals(orig) {
		t.Fatalf("copy %s differs from %s", ToString(cp), ToString(orig))
	}
	if cp.Value.Type != orig.Value.Type || cp.Value.Class != orig.Value.Class {
		t.Error("value classification not copied")
	}
	// mutate the copy and make sure the original is unaffected
	agg := cp.Expr.(*Aggregate)
	agg.Inner.(*Call).Args[0].(*FieldRef).Path[0] = "other"
	agg.Filter = nil
	cp.Value.Usage[0].Path[0] = "other"
	if ToString(orig) != `t := sum(abs(amount)) { where: k != "x" }` {
		t.Errorf("original changed: %s", ToString(orig))
	}
	if orig.Value.Usage[0].Path[0] != "amount" {
		t.Errorf("original usage changed: %v", orig.Value.Usage)
	}
	if Copy(nil) != nil {
		t.Error("Copy(nil) != nil")
	}
}

func TestWalk(t *testing.T) {
	tree := Define("x", Add(Sum(Ref("a")), NewCall("abs", Ref("b"))))
	var kinds []string
	Walk(VisitFn(func(n Node) bool {
		kinds = append(kinds, n.Kind().String())
		// do not descend into aggregates
		return n.Kind() != KindAggregate
	}), tree)
	want := "decl,arith,aggregate,call,fieldref"
	if got := strings.Join(kinds, ","); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}
