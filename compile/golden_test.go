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
	"path/filepath"
	"strings"
	"testing"

	"github.com/SnellerInc/semantic/tests"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGolden compiles each testdata/*.test file.
// The first section is the document, the second
// lists the expected problems, and the optional
// third is the text report minus its first line.
func TestGolden(t *testing.T) {
	files, err := filepath.Glob("testdata/*.test")
	require.NoError(t, err)
	require.NotEmpty(t, files)
	for _, fname := range files {
		fname := fname
		t.Run(strings.TrimSuffix(filepath.Base(fname), ".test"), func(t *testing.T) {
			spec, err := tests.ReadSpecFile(fname)
			require.NoError(t, err)
			require.GreaterOrEqual(t, len(spec.Sections), 2, "missing problems section")

			u := NewUnit(Options{Redact: spec.Tags["redact"] == "true"})
			u.Logf = t.Logf
			res, err := u.Compile([]byte(spec.Text(0)))
			require.NoError(t, err)

			var got strings.Builder
			_, err = res.Problems.WriteTo(&got)
			require.NoError(t, err)
			same(t, spec.Text(1), got.String())

			if len(spec.Sections) > 2 {
				buf, err := res.Format("text")
				require.NoError(t, err)
				_, body, _ := strings.Cut(string(buf), "\n")
				same(t, spec.Text(2), body)
			}
		})
	}
}

func same(t *testing.T, want, got string) {
	t.Helper()
	if want == got {
		return
	}
	if diff, ok := tests.Diff(want, got); ok {
		t.Errorf("mismatch:\n%s", diff)
		return
	}
	assert.Equal(t, want, got)
}
