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
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/SnellerInc/semantic/ast"

	"gopkg.in/yaml.v3"
)

// Document is the decoded form of a query
// document. It is usually written in YAML,
// but any JSON document is also accepted.
type Document struct {
	// Pipeline lists the segments of
	// the query, in execution order.
	Pipeline []Stage `json:"pipeline" yaml:"pipeline"`
	// Refinements are applied to Pipeline
	// in order once it has been built.
	Refinements []Stage `json:"refinements,omitempty" yaml:"refinements,omitempty"`
	// Schema maps dotted input field
	// names to value type names.
	Schema map[string]string `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// Stage is the set of clauses of one pipeline
// segment or refinement. Expressions are kept
// in their generic decoded form until the
// stage is built.
type Stage struct {
	Where     []interface{} `json:"where,omitempty" yaml:"where,omitempty"`
	GroupBy   []interface{} `json:"group_by,omitempty" yaml:"group_by,omitempty"`
	Aggregate []interface{} `json:"aggregate,omitempty" yaml:"aggregate,omitempty"`
	Calculate []interface{} `json:"calculate,omitempty" yaml:"calculate,omitempty"`
	Select    []interface{} `json:"select,omitempty" yaml:"select,omitempty"`
	Having    []interface{} `json:"having,omitempty" yaml:"having,omitempty"`
	OrderBy   []Order       `json:"order_by,omitempty" yaml:"order_by,omitempty"`
	Limit     interface{}   `json:"limit,omitempty" yaml:"limit,omitempty"`
}

// Order is one order_by entry.
type Order struct {
	Field interface{} `json:"field" yaml:"field"`
	Desc  bool        `json:"desc,omitempty" yaml:"desc,omitempty"`
}

// DecodeError is returned when a query
// document is malformed.
type DecodeError struct {
	// Where describes the part of the
	// document that could not be decoded,
	// or is empty if the document itself
	// is not valid YAML.
	Where string
	Err   error
}

func (d *DecodeError) Error() string {
	if d.Where == "" {
		return fmt.Sprintf("compile: decoding document: %s", d.Err)
	}
	return fmt.Sprintf("compile: %s: %s", d.Where, d.Err)
}

func (d *DecodeError) Unwrap() error { return d.Err }

var errNoPipeline = errors.New("document has no pipeline")

// ParseDocument decodes a query document.
// Unknown keys are rejected. The YAML 1.2
// core schema is used, so only true and
// false are booleans.
func ParseDocument(data []byte) (*Document, error) {
	doc := new(Document)
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, &DecodeError{Err: err}
	}
	if len(doc.Pipeline) == 0 {
		return nil, &DecodeError{Err: errNoPipeline}
	}
	return doc, nil
}

// schema returns the type hints
// named by the document
func (d *Document) schema() (ast.Schema, error) {
	if len(d.Schema) == 0 {
		return nil, nil
	}
	out := make(ast.Schema, len(d.Schema))
	for name, tn := range d.Schema {
		t, ok := ast.ParseValueType(tn)
		if !ok {
			return nil, &DecodeError{Where: "schema." + name, Err: fmt.Errorf("unknown type %q", tn)}
		}
		out[name] = t
	}
	return out, nil
}
