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
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/SnellerInc/semantic/compile"

	"github.com/spf13/pflag"
	"golang.org/x/exp/maps"
	"gopkg.in/yaml.v3"
)

// Config is the contents of a semc
// configuration file. Flags given on
// the command line take precedence.
type Config struct {
	// Format is one of yaml, json, or text.
	Format string `yaml:"format,omitempty"`
	// Compress names the algorithm used
	// to compress the report, if any.
	Compress       string `yaml:"compress,omitempty"`
	FailOnProblems *bool  `yaml:"fail_on_problems,omitempty"`
	Verbose        bool   `yaml:"verbose,omitempty"`

	compile.Options `yaml:",inline"`
}

func loadConfig(name string) (*Config, error) {
	cfg := new(Config)
	if name == "" {
		return cfg, nil
	}
	buf, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(buf))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config %s: %w", name, err)
	}
	return cfg, nil
}

// settings are the effective options
// of one invocation
type settings struct {
	config         string
	format         string
	compress       string
	redact         bool
	verbose        bool
	failOnProblems bool
	schema         map[string]string
}

// merge fills in every setting whose
// flag was not given from cfg
func (s *settings) merge(cfg *Config, flags *pflag.FlagSet) {
	if !flags.Changed("format") && cfg.Format != "" {
		s.format = cfg.Format
	}
	if !flags.Changed("compress") && cfg.Compress != "" {
		s.compress = cfg.Compress
	}
	if !flags.Changed("redact") {
		s.redact = cfg.Redact
	}
	if !flags.Changed("verbose") {
		s.verbose = cfg.Verbose
	}
	if !flags.Changed("fail-on-problems") && cfg.FailOnProblems != nil {
		s.failOnProblems = *cfg.FailOnProblems
	}
	schema := make(map[string]string, len(cfg.Schema)+len(s.schema))
	maps.Copy(schema, cfg.Schema)
	maps.Copy(schema, s.schema)
	s.schema = schema
}
