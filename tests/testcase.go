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

package tests

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strings"
)

var (
	sepdash = []byte("---")
	tagpfx  = []byte("##")
)

// Spec is a parsed testcase file.
type Spec struct {
	// Sections are the parts of the file
	// separated by `---` lines, each a list
	// of its non-empty lines.
	Sections [][]string
	// Tags are collected from `## key: value`
	// lines. Keys are lower-cased.
	Tags map[string]string
}

// Text returns section i joined
// with newlines, or "" if the file
// has fewer sections.
func (s *Spec) Text(i int) string {
	if i >= len(s.Sections) || len(s.Sections[i]) == 0 {
		return ""
	}
	return strings.Join(s.Sections[i], "\n") + "\n"
}

// ReadSpec reads parts of a textfile separated by `---`.
//
// Each part is a list of lines.
// The procedure skips empty lines and lines starting with `#`;
// lines starting with `##` that contain a colon are tags.
func ReadSpec(r io.Reader) (*Spec, error) {
	rd := bufio.NewScanner(r)
	spec := &Spec{
		Sections: [][]string{{}},
		Tags:     make(map[string]string),
	}
	partID := 0
	for rd.Scan() {
		line := rd.Bytes()
		if bytes.HasPrefix(line, sepdash) {
			partID++
			spec.Sections = append(spec.Sections, []string{})
			continue
		}
		if bytes.HasPrefix(line, tagpfx) {
			key, value, ok := strings.Cut(string(line[len(tagpfx):]), ":")
			if ok {
				spec.Tags[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
			}
			continue
		}
		// allow # line comments iff they begin the line
		if len(line) > 0 && line[0] == '#' {
			continue
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		spec.Sections[partID] = append(spec.Sections[partID], string(line))
	}
	if err := rd.Err(); err != nil {
		return nil, err
	}
	return spec, nil
}

// ReadSpecFile calls ReadSpec on the named file.
func ReadSpecFile(fname string) (*Spec, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSpec(f)
}
