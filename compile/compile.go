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

// Package compile turns query documents
// into resolved query pipelines.
package compile

import (
	"fmt"

	"github.com/SnellerInc/semantic/ast"
	"github.com/SnellerInc/semantic/query"

	"github.com/google/uuid"
	"golang.org/x/exp/maps"
)

// Options configures a Unit.
type Options struct {
	// Redact, if set, causes the expressions
	// in a Result to be rendered with every
	// constant replaced by a keyed hash.
	Redact bool `json:"redact,omitempty" yaml:"redact,omitempty"`
	// Schema provides default types for
	// input fields. A schema given in a
	// document takes precedence.
	Schema map[string]string `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// Unit is a compilation unit.
// A Unit may be used to compile
// any number of documents, but
// not concurrently.
type Unit struct {
	// ID identifies the unit in logs
	// and in results. NewUnit assigns
	// a random ID.
	ID uuid.UUID
	// Logf, if non-nil, is used to
	// log the progress of compilation.
	Logf func(f string, args ...interface{})

	Options
}

// NewUnit returns a Unit with a fresh ID.
func NewUnit(opts Options) *Unit {
	return &Unit{ID: uuid.New(), Options: opts}
}

func (u *Unit) logf(f string, args ...interface{}) {
	// let `go vet` know this is printf-like
	if false {
		_ = fmt.Sprintf(f, args...)
	}
	if u.Logf != nil {
		u.Logf("%s: "+f, append([]interface{}{u.ID}, args...)...)
	}
}

// Compile decodes data as a query document
// and builds it. See Build.
func (u *Unit) Compile(data []byte) (*Result, error) {
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	return u.Build(doc)
}

// Build resolves every clause in doc,
// assembles the pipeline, and applies
// the refinements.
//
// Problems with the query itself are
// reported in Result.Problems; the returned
// error is non-nil only when doc cannot
// be decoded.
func (u *Unit) Build(doc *Document) (*Result, error) {
	hint, err := u.schema(doc)
	if err != nil {
		return nil, err
	}
	p := &query.Pipeline{}
	for i := range doc.Pipeline {
		props, err := u.stage(hint, &doc.Pipeline[i], fmt.Sprintf("pipeline[%d]", i))
		if err != nil {
			return nil, err
		}
		p.Segments = append(p.Segments, query.NewSegment(props...))
	}
	var problems query.ProblemList
	for i := range doc.Refinements {
		props, err := u.stage(hint, &doc.Refinements[i], fmt.Sprintf("refinements[%d]", i))
		if err != nil {
			return nil, err
		}
		problems = append(problems, p.Refine(props...)...)
	}
	problems = append(problems, p.Problems()...)
	for i := range problems {
		u.logf("%s", problems[i].String())
	}
	u.logf("built %d segment(s) with %d problem(s)", len(p.Segments), len(problems))
	return &Result{
		ID:       u.ID,
		Pipeline: p,
		Problems: problems,
		redact:   u.Redact,
	}, nil
}

func (u *Unit) schema(doc *Document) (ast.Schema, error) {
	merged := make(map[string]string, len(u.Schema)+len(doc.Schema))
	maps.Copy(merged, u.Schema)
	maps.Copy(merged, doc.Schema)
	return (&Document{Schema: merged}).schema()
}

// stage builds the clauses of s in the
// order in which they are evaluated
func (u *Unit) stage(hint ast.Schema, s *Stage, where string) ([]query.Property, error) {
	var h ast.Hint
	if hint != nil {
		h = hint
	}
	var props []query.Property
	list := func(clause string, v []interface{}, mk func(items []ast.Node) query.Property) error {
		if v == nil {
			return nil
		}
		items, err := ast.DecodeList(v)
		if err != nil {
			return &DecodeError{Where: where + "." + clause, Err: err}
		}
		prop := mk(items)
		u.logf("%s: %s with %d element(s)", where, clause, len(items))
		props = append(props, prop)
		return nil
	}
	steps := []struct {
		clause string
		items  []interface{}
		mk     func(items []ast.Node) query.Property
	}{
		{"where", s.Where, func(items []ast.Node) query.Property { return query.NewWhere(h, items...) }},
		{"group_by", s.GroupBy, func(items []ast.Node) query.Property { return query.NewGroupBy(h, items...) }},
		{"aggregate", s.Aggregate, func(items []ast.Node) query.Property { return query.NewAggregate(h, items...) }},
		{"calculate", s.Calculate, func(items []ast.Node) query.Property { return query.NewCalculate(h, items...) }},
		{"select", s.Select, func(items []ast.Node) query.Property { return query.NewSelect(h, items...) }},
		{"having", s.Having, func(items []ast.Node) query.Property { return query.NewHaving(h, items...) }},
	}
	for i := range steps {
		if err := list(steps[i].clause, steps[i].items, steps[i].mk); err != nil {
			return nil, err
		}
	}
	if s.OrderBy != nil {
		items := make([]query.OrderItem, len(s.OrderBy))
		for i := range s.OrderBy {
			by, err := ast.Decode(s.OrderBy[i].Field)
			if err != nil {
				return nil, &DecodeError{Where: fmt.Sprintf("%s.order_by[%d]", where, i), Err: err}
			}
			items[i] = query.OrderItem{By: by, Desc: s.OrderBy[i].Desc}
		}
		props = append(props, query.NewOrderBy(items...))
	}
	if s.Limit != nil {
		n, err := ast.Decode(s.Limit)
		if err != nil {
			return nil, &DecodeError{Where: where + ".limit", Err: err}
		}
		props = append(props, query.NewLimit(n))
	}
	return props, nil
}
