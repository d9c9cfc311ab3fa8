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

package compile

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/SnellerInc/semantic/ast"
	"github.com/SnellerInc/semantic/query"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"
)

const flights = `
pipeline:
  - where:
      - {cmp: ">", left: amount, right: {int: 0}}
    group_by:
      - carrier
    aggregate:
      - {decl: total, expr: {call: sum, args: [amount]}}
      - {decl: pct, expr: {arith: "/", left: total, right: 100}}
    order_by:
      - {field: total, desc: true}
    limit: 10
schema:
  amount: number
  carrier: string
`

func testUnit(t *testing.T) *Unit {
	u := NewUnit(Options{})
	u.Logf = t.Logf
	return u
}

func TestCompile(t *testing.T) {
	u := testUnit(t)
	res, err := u.Compile([]byte(flights))
	require.NoError(t, err)
	require.NoError(t, res.Err())
	assert.Equal(t, u.ID, res.ID)
	require.Len(t, res.Pipeline.Segments, 1)

	seg := res.Pipeline.Segments[0]
	assert.Equal(t, query.ClassGrouping, seg.Class())
	assert.Equal(t, []string{"carrier", "total", "pct"}, seg.Outputs())
	require.Len(t, seg.Props, 5)

	clauses := make([]string, len(seg.Props))
	for i := range seg.Props {
		clauses[i] = seg.Props[i].Clause()
	}
	assert.Equal(t, []string{"where", "group_by", "aggregate", "order_by", "limit"}, clauses)

	agg, ok := seg.Props[2].(*query.Aggregate)
	require.True(t, ok)
	pct, ok := agg.Lookup("pct")
	require.True(t, ok)
	assert.Equal(t, "sum(amount) / 100", ast.ToString(pct.Expr))
	assert.Equal(t, ast.NumberType, pct.Value.Type)
	assert.Equal(t, ast.AggregateClass, pct.Value.Class)

	limit, ok := seg.Props[4].(*query.Limit)
	require.True(t, ok)
	assert.Equal(t, int64(10), limit.Rows)
}

func TestPlainScalarNames(t *testing.T) {
	doc := `
pipeline:
  - aggregate:
      - {decl: x, expr: y}
      - {decl: y, expr: 1}
      - {decl: on, expr: {call: max, args: [n]}}
`
	res, err := testUnit(t).Compile([]byte(doc))
	require.NoError(t, err)
	agg, ok := res.Pipeline.Segments[0].Props[0].(*query.Aggregate)
	require.True(t, ok)
	assert.Equal(t, []string{"x", "y", "on"}, agg.Names())

	// y is defined after x, so x refers to the input field
	x := agg.At(0)
	assert.Equal(t, "y", ast.ToString(x.Expr))
	assert.True(t, x.Value.IsError())
	assert.False(t, agg.At(1).Value.IsError())
	assert.Equal(t, "max(n)", ast.ToString(agg.At(2).Expr))

	require.Len(t, res.Problems, 1)
	assert.Equal(t, "x", res.Problems[0].Name)
	assert.Equal(t, "'x' is not an aggregate expression", res.Problems[0].Reason)
}

func TestCompileProblems(t *testing.T) {
	doc := `
pipeline:
  - group_by: [carrier]
    aggregate:
      - {decl: x, expr: z}
      - {decl: z, expr: {int: 1}}
      - {decl: z, expr: {call: count}}
      - {decl: bad, expr: {call: sum, args: [carrier]}}
    order_by:
      - {field: missing}
schema:
  carrier: string
`
	res, err := testUnit(t).Compile([]byte(doc))
	require.NoError(t, err)
	require.Error(t, res.Err())

	var lst query.ProblemList
	require.True(t, errors.As(res.Err(), &lst))
	require.Len(t, lst, 4)
	assert.Equal(t, "aggregate x: 'x' is not an aggregate expression", lst[0].String())
	assert.Equal(t, "aggregate z: cannot redefine 'z'", lst[1].String())
	assert.Equal(t, "bad", lst[2].Name)
	assert.Contains(t, lst[2].Reason, "cannot compute sum of non-numeric expression")
	assert.Equal(t, "order_by: missing is not an output field", lst[3].String())
}

func TestCompileRefinements(t *testing.T) {
	doc := `
pipeline:
  - group_by: [carrier]
    aggregate: [{call: count}]
  - select: [carrier]
refinements:
  - where:
      - {cmp: "=", left: carrier, right: {str: AA}}
    limit: 5
  - aggregate: [{call: count}]
`
	res, err := testUnit(t).Compile([]byte(doc))
	require.NoError(t, err)
	segs := res.Pipeline.Segments
	require.Len(t, segs, 2)
	assert.Equal(t, "where", segs[0].Props[len(segs[0].Props)-1].Clause())
	assert.Equal(t, "limit", segs[1].Props[len(segs[1].Props)-1].Clause())
	assert.Equal(t, query.ClassProject, res.Pipeline.Class())

	require.Len(t, res.Problems, 1)
	assert.Equal(t, "aggregate: cannot refine a query with 2 segments", res.Problems[0].String())
}

func TestSchemaOptions(t *testing.T) {
	doc := `
pipeline:
  - where: [flag]
`
	u := NewUnit(Options{Schema: map[string]string{"flag": "string"}})
	u.Logf = t.Logf
	res, err := u.Compile([]byte(doc))
	require.NoError(t, err)
	require.Len(t, res.Problems, 1)
	assert.Equal(t, "where: where condition must be boolean, found string", res.Problems[0].String())

	// the document overrides the configured schema
	res, err = u.Compile([]byte(doc + "schema:\n  flag: boolean\n"))
	require.NoError(t, err)
	assert.Empty(t, res.Problems)
}

func TestDecodeErrors(t *testing.T) {
	testcases := []struct {
		doc   string
		where string
	}{
		{"pipeline: [", ""},
		{"{}", ""},
		{"pipeline: [{bogus: [a]}]", ""},
		{"pipeline: [{where: [{cmp: '~', left: a, right: b}]}]", "pipeline[0].where"},
		{"pipeline: [{group_by: a}]", ""},
		{"pipeline: [{select: [a]}]\nrefinements: [{aggregate: [{frob: 1}]}]", "refinements[0].aggregate"},
		{"pipeline: [{order_by: [{field: {int: 1, str: x}}]}]", "pipeline[0].order_by[0]"},
		{"pipeline: [{limit: {call: count, args: [{nope: 1}]}}]", "pipeline[0].limit"},
		{"pipeline: [{select: [a]}]\nschema: {a: decimal}", "schema.a"},
		{"pipeline: [{limit: {int: 1e19}}]", "pipeline[0].limit"},
		{"pipeline: [{select: [{decl: true, expr: a}]}]", "pipeline[0].select"},
	}
	for i := range testcases {
		_, err := testUnit(t).Compile([]byte(testcases[i].doc))
		require.Error(t, err, "case %d", i)
		var de *DecodeError
		require.True(t, errors.As(err, &de), "case %d: %T", i, err)
		assert.Equal(t, testcases[i].where, de.Where, "case %d: %s", i, err)
	}
}

func TestLogf(t *testing.T) {
	var lines []string
	u := NewUnit(Options{})
	u.Logf = func(f string, args ...interface{}) {
		t.Logf(f, args...)
		lines = append(lines, f)
	}
	_, err := u.Compile([]byte(flights))
	require.NoError(t, err)
	require.NotEmpty(t, lines)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "%s: "), line)
	}
}

func TestFormat(t *testing.T) {
	u := testUnit(t)
	res, err := u.Compile([]byte(flights))
	require.NoError(t, err)

	buf, err := res.Format("json")
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf, &out))
	assert.Equal(t, u.ID.String(), out["id"])
	assert.Equal(t, "grouping", out["class"])
	assert.NotContains(t, out, "problems")

	buf, err = res.Format("yaml")
	require.NoError(t, err)
	out = nil
	require.NoError(t, yaml.Unmarshal(buf, &out))
	segs, ok := out["pipeline"].([]interface{})
	require.True(t, ok)
	require.Len(t, segs, 1)
	seg := segs[0].(map[string]interface{})
	agg := seg["aggregate"].([]interface{})
	require.Len(t, agg, 2)
	pct := agg[1].(map[string]interface{})
	assert.Equal(t, "pct", pct["name"])
	assert.Equal(t, "sum(amount) / 100", pct["expr"])
	value := pct["value"].(map[string]interface{})
	assert.Equal(t, "aggregate", value["class"])
	assert.Equal(t, []interface{}{"amount"}, value["usage"])

	buf, err = res.Format("text")
	require.NoError(t, err)
	text := string(buf)
	assert.Contains(t, text, "segment 0 (grouping):")
	assert.Contains(t, text, "  aggregate: total := sum(amount), pct := sum(amount) / 100\n")
	assert.Contains(t, text, "  order_by: total desc\n")
	assert.Contains(t, text, "  limit: 10\n")

	_, err = res.Format("xml")
	assert.Error(t, err)
}

func TestRedact(t *testing.T) {
	u := NewUnit(Options{Redact: true})
	u.Logf = t.Logf
	res, err := u.Compile([]byte(`
pipeline:
  - where:
      - {cmp: "=", left: name, right: {str: hunter2}}
`))
	require.NoError(t, err)
	buf, err := res.Format("text")
	require.NoError(t, err)
	assert.NotContains(t, string(buf), "hunter2")
	assert.Contains(t, string(buf), "name =")
}
