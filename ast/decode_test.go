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
	"errors"
	"strings"
	"testing"
)

func TestUnmarshal(t *testing.T) {
	testcases := []struct {
		doc  string
		want string
	}{
		{"carrier", "carrier"},
		{"{ref: a.b}", "a.b"},
		{"{ref: [a, b.c]}", "a.`b.c`"},
		{"3", "3"},
		{"2.5", "2.5"},
		{"{str: hello}", `"hello"`},
		{"true", "true"},
		{"null", "null"},
		{"{arith: '/', left: total, right: {int: 100}}", "total / 100"},
		{"{cmp: '>=', left: x, right: 1}", "x >= 1"},
		{"{logic: or, left: a, right: {not: b}}", "a or not b"},
		{"{call: sum, args: [amount]}", "sum(amount)"},
		{"{call: count}", "count()"},
		{"{call: count, args: [id], distinct: true}", "count(distinct id)"},
		{"{call: max, args: [x], filter: {cmp: '=', left: k, right: {str: z}}}", `max(x) { where: k = "z" }`},
		{"{call: lower, args: [{str: A}]}", `lower("A")`},
		{"{decl: total, expr: {call: sum, args: [amount]}}", "total := sum(amount)"},
		{"{error: oops}", "`__error__: oops`"},
		// only true and false are booleans
		{"y", "y"},
		{"on", "on"},
		{"{cmp: '=', left: off, right: n}", "off = n"},
		{"{decl: y, expr: yes}", "y := yes"},
		{`{"null": true}`, "null"},
		{"{null: true}", "null"},
		// integers keep their precision
		{"9007199254740993", "9007199254740993"},
		{"{int: 9007199254740993}", "9007199254740993"},
		{"{int: -9223372036854775808}", "-9223372036854775808"},
		{"{int: 1e3}", "1000"},
		{"{float: 1}", "1"},
	}
	for i := range testcases {
		n, err := Unmarshal([]byte(testcases[i].doc))
		if err != nil {
			t.Errorf("case %d: %s", i, err)
			continue
		}
		if got := ToString(n); got != testcases[i].want {
			t.Errorf("case %d: got %s, want %s", i, got, testcases[i].want)
			continue
		}
		// and back again
		buf, err := Marshal(n)
		if err != nil {
			t.Errorf("case %d: marshal: %s", i, err)
			continue
		}
		n2, err := Unmarshal(buf)
		if err != nil {
			t.Errorf("case %d: re-decoding %s: %s", i, buf, err)
			continue
		}
		if !n2.Equals(n) {
			t.Errorf("case %d: %s does not round-trip (got %s)", i, ToString(n), ToString(n2))
		}
	}
}

func TestUnmarshalErrors(t *testing.T) {
	testcases := []struct {
		doc string
		msg string
	}{
		{"{}", "no expression kind"},
		{"{ref: a, int: 1}", "ambiguous expression"},
		{"{int: 1.5}", "int must be an integer"},
		{"{arith: '^', left: 1, right: 2}", "unknown arithmetic operator"},
		{"{not: a, extra: 1}", "unexpected field"},
		{"{call: lower, args: [a], distinct: true}", "not an aggregate"},
		{"{call: sum, args: [a, b]}", "at most one argument"},
		{"{call: sum, args: [a], distinct: true}", "does not accept distinct"},
		{"{decl: x}", "has no expr"},
		{"{ref: 'a..b'}", "invalid field reference"},
		{"[1, 2]", "cannot decode"},
		{"{int: 1e19}", "out of range"},
		{"{int: -1e19}", "out of range"},
		{"{int: 9223372036854775808}", "out of range"},
		{"18446744073709551615", "out of range"},
		{"{decl: true, expr: 1}", "decl name must be a string"},
		{"{1: a}", "not a name"},
	}
	for i := range testcases {
		_, err := Unmarshal([]byte(testcases[i].doc))
		if err == nil {
			t.Errorf("case %d: expected an error", i)
			continue
		}
		if !strings.Contains(err.Error(), testcases[i].msg) {
			t.Errorf("case %d: error %q does not mention %q", i, err, testcases[i].msg)
		}
	}
	_, err := Unmarshal([]byte("{not: a, extra: 1}"))
	if !errors.Is(err, errUnexpectedField) {
		t.Errorf("expected errUnexpectedField, got %v", err)
	}
}

func TestEncodeDeclValue(t *testing.T) {
	d := Define("pct", Div(Sum(Ref("amount")), Integer(100)))
	d.Value = Translate(d, nil)
	m := Encode(d).(map[string]interface{})
	v, ok := m["value"].(map[string]interface{})
	if !ok {
		t.Fatalf("no value in %v", m)
	}
	if v["class"] != "aggregate" || v["type"] != "number" || v["space"] != "output" {
		t.Errorf("unexpected value %v", v)
	}
	bad := Define("bad", &Error{Reason: "nope"})
	bad.Value = Translate(bad, nil)
	v = Encode(bad).(map[string]interface{})["value"].(map[string]interface{})
	if v["error"] != "nope" || v["type"] != "error" {
		t.Errorf("unexpected error value %v", v)
	}
}
