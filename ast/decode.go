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
	"fmt"
	"math"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	errUnexpectedField = errors.New("unexpected field")
	errNoKind          = errors.New("no expression kind")
)

// Unmarshal decodes a tree from its
// YAML or JSON document form.
func Unmarshal(data []byte) (Node, error) {
	var v interface{}
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("ast.Unmarshal: %w", err)
	}
	return Decode(v)
}

// Decode builds a tree from the generic value
// produced by decoding a YAML or JSON document
// with gopkg.in/yaml.v3.
//
// Bare strings decode as field references,
// bare numbers and booleans as literals and
// null as Null. Only true and false are
// booleans; y, n, on, off and the like are
// field names. Maps must carry exactly one
// tag key (ref, int, float, str, bool, null,
// arith, cmp, logic, not, call, decl, error)
// selecting the node kind.
func Decode(v interface{}) (Node, error) {
	node, err := decode(v)
	if err != nil {
		err = fmt.Errorf("ast.Decode: %w", err)
	}
	return node, err
}

// DecodeList decodes each element of a list.
func DecodeList(v interface{}) ([]Node, error) {
	lst, ok := v.([]interface{})
	if !ok {
		if v == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("ast.DecodeList: expected a list, found %T", v)
	}
	out := make([]Node, len(lst))
	for i := range lst {
		n, err := decode(lst[i])
		if err != nil {
			return nil, fmt.Errorf("ast.DecodeList: item %d: %w", i, err)
		}
		out[i] = n
	}
	return out, nil
}

var tags = []string{
	"ref", "int", "float", "str", "bool", "null",
	"arith", "cmp", "logic", "not", "call", "decl", "error",
}

// fields accepted alongside each tag
var extras = map[string][]string{
	"arith": {"left", "right"},
	"cmp":   {"left", "right"},
	"logic": {"left", "right"},
	"call":  {"args", "distinct", "filter"},
	"decl":  {"expr", "implicit", "value"},
}

func decode(v interface{}) (Node, error) {
	switch v := v.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(v), nil
	case int, int64, uint64:
		i, err := toInt(v)
		if err != nil {
			return nil, err
		}
		return Integer(i), nil
	case float64:
		return Float(v), nil
	case string:
		return parseRef(v)
	case map[string]interface{}:
		return decodeMap(v)
	case map[interface{}]interface{}:
		m, err := stringKeys(v)
		if err != nil {
			return nil, err
		}
		return decodeMap(m)
	default:
		return nil, fmt.Errorf("cannot decode %T", v)
	}
}

// toInt converts a decoded number to an
// int64, rejecting fractions and values
// that do not fit
func toInt(v interface{}) (int64, error) {
	switch v := v.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("integer %d is out of range", v)
		}
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("int must be an integer, found %v", v)
		}
		if v < -(1<<63) || v >= 1<<63 {
			return 0, fmt.Errorf("integer %v is out of range", v)
		}
		return int64(v), nil
	}
	return 0, fmt.Errorf("int must be an integer, found %v", v)
}

func toFloat(v interface{}) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	}
	return 0, false
}

// stringKeys converts a mapping with
// non-string keys; a null key is "null"
func stringKeys(m map[interface{}]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		switch k := k.(type) {
		case nil:
			out["null"] = v
		case string:
			out[k] = v
		default:
			return nil, fmt.Errorf("mapping key %v is not a name", k)
		}
	}
	return out, nil
}

func parseRef(s string) (*FieldRef, error) {
	if s == "" {
		return nil, fmt.Errorf("empty field reference")
	}
	path := strings.Split(s, ".")
	for i := range path {
		if path[i] == "" {
			return nil, fmt.Errorf("invalid field reference %q", s)
		}
	}
	return &FieldRef{Path: path}, nil
}

func decodeMap(m map[string]interface{}) (Node, error) {
	tag := ""
	for _, t := range tags {
		if _, ok := m[t]; ok {
			if tag != "" {
				return nil, fmt.Errorf("ambiguous expression: both %q and %q present", tag, t)
			}
			tag = t
		}
	}
	if tag == "" {
		return nil, errNoKind
	}
	allowed := extras[tag]
	for k := range m {
		if k == tag {
			continue
		}
		found := false
		for _, a := range allowed {
			if a == k {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w %q in %s expression", errUnexpectedField, k, tag)
		}
	}
	body := m[tag]
	switch tag {
	case "ref":
		switch b := body.(type) {
		case string:
			return parseRef(b)
		case []interface{}:
			path := make([]string, len(b))
			for i := range b {
				s, ok := b[i].(string)
				if !ok || s == "" {
					return nil, fmt.Errorf("ref component %d is not a name", i)
				}
				path[i] = s
			}
			if len(path) == 0 {
				return nil, fmt.Errorf("empty field reference")
			}
			return &FieldRef{Path: path}, nil
		}
		return nil, fmt.Errorf("ref must be a string or list, found %T", body)
	case "int":
		i, err := toInt(body)
		if err != nil {
			return nil, err
		}
		return Integer(i), nil
	case "float":
		f, ok := toFloat(body)
		if !ok {
			return nil, fmt.Errorf("float must be a number, found %T", body)
		}
		return Float(f), nil
	case "str":
		s, ok := body.(string)
		if !ok {
			return nil, fmt.Errorf("str must be a string, found %T", body)
		}
		return String(s), nil
	case "bool":
		b, ok := body.(bool)
		if !ok {
			return nil, fmt.Errorf("bool must be a boolean, found %T", body)
		}
		return Bool(b), nil
	case "null":
		return Null{}, nil
	case "arith":
		op, ok := lookupOp(body, []ArithOp{AddOp, SubOp, MulOp, DivOp, ModOp})
		if !ok {
			return nil, fmt.Errorf("unknown arithmetic operator %v", body)
		}
		l, r, err := decodeOperands(m)
		if err != nil {
			return nil, err
		}
		return &Arithmetic{Op: op, Left: l, Right: r}, nil
	case "cmp":
		op, ok := lookupOp(body, []CmpOp{Equals, NotEquals, Less, LessEquals, Greater, GreaterEquals})
		if !ok {
			return nil, fmt.Errorf("unknown comparison operator %v", body)
		}
		l, r, err := decodeOperands(m)
		if err != nil {
			return nil, err
		}
		return &Comparison{Op: op, Left: l, Right: r}, nil
	case "logic":
		op, ok := lookupOp(body, []LogicalOp{OpAnd, OpOr})
		if !ok {
			return nil, fmt.Errorf("unknown logical operator %v", body)
		}
		l, r, err := decodeOperands(m)
		if err != nil {
			return nil, err
		}
		return &Logical{Op: op, Left: l, Right: r}, nil
	case "not":
		e, err := decode(body)
		if err != nil {
			return nil, err
		}
		return &Not{Expr: e}, nil
	case "call":
		return decodeCall(m)
	case "decl":
		name, ok := body.(string)
		if !ok {
			return nil, fmt.Errorf("decl name must be a string, found %T", body)
		}
		raw, ok := m["expr"]
		if !ok {
			return nil, fmt.Errorf("decl %q has no expr", name)
		}
		e, err := decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decl %q: %w", name, err)
		}
		implicit, _ := m["implicit"].(bool)
		return &Decl{Name: name, Expr: e, Implicit: implicit}, nil
	case "error":
		s, _ := body.(string)
		return &Error{Reason: s}, nil
	}
	return nil, errNoKind
}

func lookupOp[T fmt.Stringer](body interface{}, ops []T) (T, bool) {
	s, _ := body.(string)
	for _, op := range ops {
		if strings.EqualFold(op.String(), s) {
			return op, true
		}
	}
	var zero T
	return zero, false
}

func decodeOperands(m map[string]interface{}) (Node, Node, error) {
	l, err := decode(m["left"])
	if err != nil {
		return nil, nil, fmt.Errorf("left: %w", err)
	}
	r, err := decode(m["right"])
	if err != nil {
		return nil, nil, fmt.Errorf("right: %w", err)
	}
	return l, r, nil
}

func decodeCall(m map[string]interface{}) (Node, error) {
	name, ok := m["call"].(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("call must name a function")
	}
	args, err := DecodeList(m["args"])
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", name, err)
	}
	distinct, _ := m["distinct"].(bool)
	var filter Node
	if raw, ok := m["filter"]; ok {
		filter, err = decode(raw)
		if err != nil {
			return nil, fmt.Errorf("call %s: filter: %w", name, err)
		}
	}
	op := LookupAggregate(name)
	if op == OpNone {
		if distinct || filter != nil {
			return nil, fmt.Errorf("%s is not an aggregate; distinct and filter are not allowed", name)
		}
		return &Call{Name: name, Args: args}, nil
	}
	if distinct {
		if op != OpCount && op != OpCountDistinct {
			return nil, fmt.Errorf("%s does not accept distinct", op)
		}
		op = OpCountDistinct
	}
	if len(args) > 1 {
		return nil, fmt.Errorf("%s expects at most one argument, but found %d", op, len(args))
	}
	agg := &Aggregate{Op: op, Filter: filter}
	if len(args) == 1 {
		agg.Inner = args[0]
	}
	return agg, nil
}

// Encode produces the generic document
// form of n, suitable for marshaling as
// JSON or YAML. It is the inverse of Decode.
func Encode(n Node) interface{} {
	switch n := n.(type) {
	case nil:
		return nil
	case Integer:
		return map[string]interface{}{"int": int64(n)}
	case Float:
		return map[string]interface{}{"float": float64(n)}
	case String:
		return map[string]interface{}{"str": string(n)}
	case Bool:
		return map[string]interface{}{"bool": bool(n)}
	case Null:
		return map[string]interface{}{"null": true}
	case *FieldRef:
		for i := range n.Path {
			if strings.Contains(n.Path[i], ".") {
				return map[string]interface{}{"ref": append([]string(nil), n.Path...)}
			}
		}
		return map[string]interface{}{"ref": n.Name()}
	case *Arithmetic:
		return encodeBinary("arith", n.Op.String(), n.Left, n.Right)
	case *Comparison:
		return encodeBinary("cmp", n.Op.String(), n.Left, n.Right)
	case *Logical:
		return encodeBinary("logic", n.Op.String(), n.Left, n.Right)
	case *Not:
		return map[string]interface{}{"not": Encode(n.Expr)}
	case *Call:
		args := make([]interface{}, len(n.Args))
		for i := range n.Args {
			args[i] = Encode(n.Args[i])
		}
		return map[string]interface{}{"call": n.Name, "args": args}
	case *Aggregate:
		m := map[string]interface{}{"call": n.Op.String(), "args": []interface{}{}}
		if n.Op == OpCountDistinct {
			m["call"] = OpCount.String()
			m["distinct"] = true
		}
		if n.Inner != nil {
			m["args"] = []interface{}{Encode(n.Inner)}
		}
		if n.Filter != nil {
			m["filter"] = Encode(n.Filter)
		}
		return m
	case *Decl:
		m := map[string]interface{}{"decl": n.Name, "expr": Encode(n.Expr)}
		if n.Implicit {
			m["implicit"] = true
		}
		if n.Value.Translated() {
			m["value"] = EncodeValue(&n.Value)
		}
		return m
	case *Error:
		return map[string]interface{}{"error": n.Reason}
	}
	return nil
}

// EncodeValue produces the document form
// of the classification of an ExprValue.
func EncodeValue(v *ExprValue) map[string]interface{} {
	m := map[string]interface{}{
		"type":  v.Type.String(),
		"class": v.Class.String(),
		"space": v.Space.String(),
	}
	if v.IsError() {
		m["error"] = v.Reason()
	}
	usage := make([]string, len(v.Usage))
	for i := range v.Usage {
		usage[i] = strings.Join(v.Usage[i].Path, ".")
	}
	sort.Strings(usage)
	m["usage"] = usage
	return m
}

func encodeBinary(tag, op string, left, right Node) map[string]interface{} {
	return map[string]interface{}{tag: op, "left": Encode(left), "right": Encode(right)}
}

// Marshal encodes n as YAML.
func Marshal(n Node) ([]byte, error) {
	return yaml.Marshal(Encode(n))
}
