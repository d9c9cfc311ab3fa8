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

// Package query implements the clauses of a query
// (aggregate, group_by, where, and so forth) and
// the resolution of the definitions they contain.
//
// Each clause is built exactly once from the elements
// handed to it by the parser. Construction resolves
// references between the clause's own definitions in
// declaration order and translates every element,
// recording failures as error values instead of
// returning errors, so a single query can report
// every problem it contains.
package query

// Stage describes the refinement stages
// in which a clause may legally appear.
type Stage uint8

const (
	// StageHead clauses refine the
	// first segment of a pipeline.
	StageHead Stage = iota
	// StageSingle clauses may only refine
	// a pipeline with exactly one segment.
	StageSingle
	// StageTail clauses refine the
	// last segment of a pipeline.
	StageTail
)

func (s Stage) String() string {
	switch s {
	case StageHead:
		return "head"
	case StageSingle:
		return "single"
	case StageTail:
		return "tail"
	default:
		return "invalid"
	}
}

// target returns the index of the segment
// that a clause with stage s refines
// in a pipeline of n segments, or -1
// if it cannot refine such a pipeline.
func (s Stage) target(n int) int {
	if n == 0 {
		return -1
	}
	switch s {
	case StageHead:
		return 0
	case StageSingle:
		if n == 1 {
			return 0
		}
	case StageTail:
		return n - 1
	}
	return -1
}

// Class is the category of query
// that a clause forces.
type Class uint8

const (
	// ClassNone is declared by clauses
	// that do not force a query class.
	ClassNone Class = iota
	ClassProject
	ClassGrouping
)

func (c Class) String() string {
	switch c {
	case ClassProject:
		return "project"
	case ClassGrouping:
		return "grouping"
	default:
		return "none"
	}
}

// Property is implemented by every clause.
//
// Stage and Class are declared per clause
// kind and never change after construction.
type Property interface {
	// Clause is the keyword that
	// introduces the clause.
	Clause() string
	Stage() Stage
	Class() Class
}
