// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct {
	// Environ supplies the env object, os.Environ when nil
	Environ func() []string
}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".hcl")
}

// 📝 Parse parses the config from HCL
func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "config.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	// Create evaluation context
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": p.env(),
		},
	}

	// Define HCL schema
	type hclConfig struct {
		Root    string `hcl:"root,optional"`
		Store   string `hcl:"store,optional"`
		Workers int    `hcl:"workers,optional"`
		Catalog *struct {
			Ignore []string `hcl:"ignore,optional"`
		} `hcl:"catalog,block"`
		Archive *struct {
			PreserveMode bool `hcl:"preserve_mode,optional"`
		} `hcl:"archive,block"`
		Certificates *struct {
			DefaultPassword string `hcl:"default_password,optional"`
		} `hcl:"certificates,block"`
	}

	// Decode HCL
	var hclCfg hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &hclCfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	// Convert to model
	cfg := &Config{
		Root:    hclCfg.Root,
		Store:   hclCfg.Store,
		Workers: hclCfg.Workers,
	}
	if hclCfg.Catalog != nil {
		cfg.Catalog.Ignore = hclCfg.Catalog.Ignore
	}
	if hclCfg.Archive != nil {
		cfg.Archive.PreserveMode = hclCfg.Archive.PreserveMode
	}
	if hclCfg.Certificates != nil {
		cfg.Certificates.DefaultPassword = hclCfg.Certificates.DefaultPassword
	}

	return cfg, nil
}

func (p *HCLParser) env() cty.Value {
	environ := os.Environ
	if p.Environ != nil {
		environ = p.Environ
	}

	vars := map[string]cty.Value{}
	for _, kv := range environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" || cty.NormalizeString(k) != k {
			continue
		}
		vars[k] = cty.StringVal(v)
	}
	if len(vars) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(vars)
}
