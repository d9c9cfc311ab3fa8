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

package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/SnellerInc/semantic/compile"
	"github.com/SnellerInc/semantic/compr"

	"github.com/spf13/cobra"
)

// problemsError is returned when
// a document has problems and
// --fail-on-problems is in effect.
type problemsError struct {
	n int
}

func (p *problemsError) Error() string {
	return fmt.Sprintf("%d problem(s) found", p.n)
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	s := &settings{}
	cmd := &cobra.Command{
		Use:   "semc [file...]",
		Short: "Compile query documents",
		Long: "Compiles each query document (or stdin when no file is given)\n" +
			"and writes a report of the resolved clauses and their problems.\n" +
			"Documents ending in .zst or .s2 are decompressed first.",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(s.config)
			if err != nil {
				return err
			}
			s.merge(cfg, cmd.Flags())
			return run(s, args, stdin, stdout, stderr)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&s.config, "config", "c", "", "configuration file (YAML)")
	flags.StringVarP(&s.format, "format", "o", "yaml", "report format (yaml, json, text)")
	flags.StringVar(&s.compress, "compress", "", "compress the report (zstd, zstd-better, s2)")
	flags.BoolVar(&s.redact, "redact", false, "redact constants in the report")
	flags.BoolVarP(&s.verbose, "verbose", "v", false, "log compilation progress to stderr")
	flags.BoolVar(&s.failOnProblems, "fail-on-problems", false, "exit with status 2 if any document has problems")
	flags.StringToStringVar(&s.schema, "schema", nil, "input field types (field=type,...)")
	cmd.AddCommand(newVersionCmd(stdout))
	return cmd
}

func readDocument(name string, stdin io.Reader) ([]byte, error) {
	var buf []byte
	var err error
	if name == "-" {
		buf, err = io.ReadAll(stdin)
	} else {
		buf, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, err
	}
	return compr.Decode(name, buf)
}

func run(s *settings, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		args = []string{"-"}
	}
	var comp compr.Compressor
	if s.compress != "" {
		comp = compr.Compression(s.compress)
		if comp == nil {
			return fmt.Errorf("unknown compression %q", s.compress)
		}
	}
	logger := log.New(stderr, "semc: ", 0)
	problems := 0
	var out []byte
	for i, name := range args {
		doc, err := readDocument(name, stdin)
		if err != nil {
			return err
		}
		u := compile.NewUnit(compile.Options{Redact: s.redact, Schema: s.schema})
		if s.verbose {
			u.Logf = logger.Printf
			logger.Printf("%s: unit %s", name, u.ID)
		}
		res, err := u.Compile(doc)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		report, err := res.Format(s.format)
		if err != nil {
			return err
		}
		if i > 0 && (s.format == "yaml" || s.format == "") {
			out = append(out, "---\n"...)
		}
		out = append(out, report...)
		if n := len(res.Problems); n > 0 {
			problems += n
			fmt.Fprintf(stderr, "%s: %d problem(s):\n", name, n)
			res.Problems.WriteTo(stderr)
		}
	}
	if comp != nil {
		out = comp.Compress(out, nil)
	}
	if _, err := stdout.Write(out); err != nil {
		return err
	}
	if problems > 0 && s.failOnProblems {
		return &problemsError{n: problems}
	}
	return nil
}
