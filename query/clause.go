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

func named(clause string) func(d *ast.Decl) string {
	return func(d *ast.Decl) string {
		if d.Name == "" {
			return fmt.Sprintf("%s element %s needs a name", clause, ast.ToString(d.Expr))
		}
		return ""
	}
}

func both(a, b func(d *ast.Decl) string) func(d *ast.Decl) string {
	return func(d *ast.Decl) string {
		if r := a(d); r != "" {
			return r
		}
		return b(d)
	}
}

func scalarOnly(clause string) func(d *ast.Decl) string {
	return func(d *ast.Decl) string {
		if d.Value.Class == ast.AggregateClass {
			return fmt.Sprintf("'%s' is an aggregate; %s requires a scalar expression", d.Name, clause)
		}
		return ""
	}
}

// aggregateOnly accepts aggregates
// and constant expressions
func aggregateOnly(d *ast.Decl) string {
	if d.Value.Class != ast.AggregateClass && d.Value.Space > ast.ConstantSpace {
		return fmt.Sprintf("'%s' is not an aggregate expression", d.Name)
	}
	return ""
}

// Aggregate is the aggregate: clause.
type Aggregate struct {
	DefinitionList[*ast.Decl]
}

// NewAggregate resolves items and returns
// the clause. Elements that are not
// aggregate or constant expressions
// resolve to error values.
func NewAggregate(h ast.Hint, items ...ast.Node) *Aggregate {
	return &Aggregate{
		DefinitionList: newDefinitionList(resolveAll(items, h, both(named("aggregate"), aggregateOnly)), declSlot(h)),
	}
}

func (a *Aggregate) Clause() string { return "aggregate" }
func (a *Aggregate) Stage() Stage   { return StageSingle }
func (a *Aggregate) Class() Class   { return ClassGrouping }

// GroupBy is the group_by: clause.
type GroupBy struct {
	DefinitionList[*ast.Decl]
}

func NewGroupBy(h ast.Hint, items ...ast.Node) *GroupBy {
	return &GroupBy{
		DefinitionList: newDefinitionList(resolveAll(items, h, both(named("group_by"), scalarOnly("group_by"))), declSlot(h)),
	}
}

func (g *GroupBy) Clause() string { return "group_by" }
func (g *GroupBy) Stage() Stage   { return StageSingle }
func (g *GroupBy) Class() Class   { return ClassGrouping }

// Calculate is the calculate: clause.
// Its elements are computed over the
// output rows of a grouping query.
type Calculate struct {
	DefinitionList[*ast.Decl]
}

func NewCalculate(h ast.Hint, items ...ast.Node) *Calculate {
	return &Calculate{
		DefinitionList: newDefinitionList(resolveAll(items, h, named("calculate")), declSlot(h)),
	}
}

func (c *Calculate) Clause() string { return "calculate" }
func (c *Calculate) Stage() Stage   { return StageSingle }
func (c *Calculate) Class() Class   { return ClassGrouping }

// Select is the select: clause of
// a projection query.
type Select struct {
	DefinitionList[*ast.Decl]
}

func NewSelect(h ast.Hint, items ...ast.Node) *Select {
	return &Select{
		DefinitionList: newDefinitionList(resolveAll(items, h, both(named("select"), scalarOnly("select"))), declSlot(h)),
	}
}

func (s *Select) Clause() string { return "select" }
func (s *Select) Stage() Stage   { return StageSingle }
func (s *Select) Class() Class   { return ClassProject }

// Filter is a where: or having: clause.
// Its elements are unnamed boolean
// conditions that are all required to hold.
type Filter struct {
	DefinitionList[*ast.Decl]
	having bool
}

// NewWhere returns a where: clause.
// Aggregate conditions are rejected.
func NewWhere(h ast.Hint, conds ...ast.Node) *Filter {
	return newFilter(h, false, conds)
}

// NewHaving returns a having: clause.
func NewHaving(h ast.Hint, conds ...ast.Node) *Filter {
	return newFilter(h, true, conds)
}

func newFilter(h ast.Hint, having bool, conds []ast.Node) *Filter {
	f := &Filter{having: having}
	lst := make([]*ast.Decl, len(conds))
	for i := range conds {
		d := &ast.Decl{Expr: conds[i], Implicit: true}
		d.Value = ast.Translate(d.Expr, h)
		if !d.Value.IsError() {
			if reason := f.check(&d.Value); reason != "" {
				d.Value = ast.ErrorFor(reason)
			}
		}
		lst[i] = d
	}
	f.DefinitionList = newDefinitionList(lst, declSlot(h))
	return f
}

func (f *Filter) check(v *ast.ExprValue) string {
	if !ast.BoolType.Accepts(v.Type) {
		return fmt.Sprintf("%s condition must be boolean, found %s", f.Clause(), v.Type)
	}
	if !f.having && v.Class == ast.AggregateClass {
		return "aggregate expressions are not allowed in where; use having"
	}
	return ""
}

// Having returns whether f is a having: clause.
func (f *Filter) Having() bool { return f.having }

func (f *Filter) Clause() string {
	if f.having {
		return "having"
	}
	return "where"
}

func (f *Filter) Stage() Stage {
	if f.having {
		return StageTail
	}
	return StageHead
}

func (f *Filter) Class() Class {
	if f.having {
		return ClassGrouping
	}
	return ClassNone
}

// OrderItem is one element of an order_by: clause.
type OrderItem struct {
	// By is either a reference to
	// an output field or a 1-based
	// column number.
	By   ast.Node
	Desc bool
	// Value is set by NewOrderBy.
	Value ast.ExprValue
}

// OrderBy is the order_by: clause.
type OrderBy struct {
	Items []OrderItem
}

// NewOrderBy returns an order_by: clause.
// Whether the items name real output
// fields is checked by the Segment that
// the clause belongs to.
func NewOrderBy(items ...OrderItem) *OrderBy {
	for i := range items {
		items[i].Value = orderValue(items[i].By)
	}
	return &OrderBy{Items: items}
}

func orderValue(by ast.Node) ast.ExprValue {
	switch by := by.(type) {
	case *ast.FieldRef:
		if len(by.Path) != 1 {
			return ast.ErrorFor(fmt.Sprintf("order_by field %s must be an output name", ast.ToString(by)))
		}
		return ast.ExprValue{
			Type:  ast.AnyType,
			Class: ast.Scalar,
			Space: ast.OutputSpace,
			Value: by,
			Usage: []ast.FieldUsage{},
		}
	case ast.Integer:
		if by < 1 {
			return ast.ErrorFor(fmt.Sprintf("order_by column %d is not positive", int64(by)))
		}
		return ast.Translate(by, nil)
	case *ast.Error:
		return ast.ErrorFor(by.Reason)
	}
	return ast.ErrorFor("order_by expects an output field name or a column number")
}

func (o *OrderBy) Clause() string { return "order_by" }
func (o *OrderBy) Stage() Stage   { return StageTail }
func (o *OrderBy) Class() Class   { return ClassNone }

// Limit is the limit: clause.
type Limit struct {
	Rows  int64
	Value ast.ExprValue
}

// NewLimit returns a limit: clause
// for the given row count, which must
// be a non-negative integer literal.
func NewLimit(n ast.Node) *Limit {
	l := &Limit{}
	if i, ok := n.(ast.Integer); ok && i >= 0 {
		l.Rows = int64(i)
		l.Value = ast.Translate(i, nil)
		return l
	}
	if e, ok := n.(*ast.Error); ok {
		l.Value = ast.ErrorFor(e.Reason)
		return l
	}
	l.Value = ast.ErrorFor("limit must be a non-negative integer")
	return l
}

func (l *Limit) Clause() string { return "limit" }
func (l *Limit) Stage() Stage   { return StageTail }
func (l *Limit) Class() Class   { return ClassNone }

var (
	_ Property = &Aggregate{}
	_ Property = &GroupBy{}
	_ Property = &Calculate{}
	_ Property = &Select{}
	_ Property = &Filter{}
	_ Property = &OrderBy{}
	_ Property = &Limit{}

	_ ast.Sequence = &Aggregate{}
)
