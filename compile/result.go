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
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/SnellerInc/semantic/ast"
	"github.com/SnellerInc/semantic/query"

	"github.com/google/uuid"
	"sigs.k8s.io/yaml"
)

// Result is the outcome of compiling
// one document.
type Result struct {
	ID       uuid.UUID
	Pipeline *query.Pipeline
	// Problems lists every problem found
	// while building and refining Pipeline.
	Problems query.ProblemList

	redact bool
}

// Err returns Problems as an error,
// or nil if there are none.
func (r *Result) Err() error {
	return r.Problems.Err()
}

func (r *Result) text(p ast.Printable) string {
	if r.redact {
		return ast.ToRedacted(p)
	}
	return ast.ToString(p)
}

type elementer interface {
	Elements() []*ast.Decl
}

func (r *Result) elements(p query.Property) []interface{} {
	var out []interface{}
	switch p := p.(type) {
	case elementer:
		for _, d := range p.Elements() {
			m := map[string]interface{}{
				"expr":  r.text(d.Expr),
				"value": ast.EncodeValue(&d.Value),
			}
			if d.Name != "" {
				m["name"] = d.Name
			}
			out = append(out, m)
		}
	case *query.OrderBy:
		for i := range p.Items {
			out = append(out, map[string]interface{}{
				"by":   r.text(p.Items[i].By),
				"desc": p.Items[i].Desc,
			})
		}
	case *query.Limit:
		out = append(out, map[string]interface{}{"rows": p.Rows})
	}
	return out
}

// Encode returns the generic form of r
// that Format serializes.
func (r *Result) Encode() map[string]interface{} {
	segs := make([]interface{}, len(r.Pipeline.Segments))
	for i, s := range r.Pipeline.Segments {
		seg := map[string]interface{}{
			"class":   s.Class().String(),
			"outputs": s.Outputs(),
		}
		for _, p := range s.Props {
			prev, _ := seg[p.Clause()].([]interface{})
			seg[p.Clause()] = append(prev, r.elements(p)...)
		}
		segs[i] = seg
	}
	out := map[string]interface{}{
		"id":       r.ID.String(),
		"class":    r.Pipeline.Class().String(),
		"pipeline": segs,
	}
	if len(r.Problems) > 0 {
		lst := make([]string, len(r.Problems))
		for i := range r.Problems {
			lst[i] = r.Problems[i].String()
		}
		out["problems"] = lst
	}
	return out
}

// Format serializes r as "yaml", "json", or "text".
func (r *Result) Format(format string) ([]byte, error) {
	switch format {
	case "yaml", "":
		return yaml.Marshal(r.Encode())
	case "json":
		return json.MarshalIndent(r.Encode(), "", "  ")
	case "text":
		var buf bytes.Buffer
		_, err := r.WriteTo(&buf)
		return buf.Bytes(), err
	default:
		return nil, fmt.Errorf("compile: unknown output format %q", format)
	}
}

func (r *Result) clauseText(p query.Property) string {
	var parts []string
	switch p := p.(type) {
	case elementer:
		for _, d := range p.Elements() {
			parts = append(parts, r.text(d))
		}
	case *query.OrderBy:
		for i := range p.Items {
			s := r.text(p.Items[i].By)
			if p.Items[i].Desc {
				s += " desc"
			}
			parts = append(parts, s)
		}
	case *query.Limit:
		parts = append(parts, fmt.Sprint(p.Rows))
	}
	return strings.Join(parts, ", ")
}

// WriteTo writes a human-readable
// rendition of r to dst.
func (r *Result) WriteTo(dst io.Writer) (int64, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "query %s (%s)\n", r.ID, r.Pipeline.Class())
	for i, s := range r.Pipeline.Segments {
		fmt.Fprintf(&b, "segment %d (%s):\n", i, s.Class())
		for _, p := range s.Props {
			fmt.Fprintf(&b, "  %s: %s\n", p.Clause(), r.clauseText(p))
		}
	}
	if len(r.Problems) > 0 {
		b.WriteString("problems:\n")
		for i := range r.Problems {
			fmt.Fprintf(&b, "  %s\n", r.Problems[i].String())
		}
	}
	n, err := io.WriteString(dst, b.String())
	return int64(n), err
}
