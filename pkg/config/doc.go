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

/*
Package config loads bundlekit settings from a project file.

	            +-------------+
	            |   Config    |
	            | (Settings)  |
	            +------+------+
	                   |
	      +------------+------------+
	      |            |            |
	+-----+----+ +-----+----+ +-----+----+
	|   YAML   | |   HCL    | |   JSON   |
	|  Parser  | |  Parser  | |  Parser  |
	+----------+ +----------+ +----------+

🎯 Purpose:
- Finds .bundlekit.{yaml,yml,hcl,json} in the working root
- Picks the parser from the file extension
- Rejects unknown fields
- Fills defaults and cleans paths

🔄 Flow:
1. Discover looks for a config file, falling back to defaults
2. Load reads the file and hands it to the registered parser
3. Validate resolves paths relative to the config file and sets defaults

🔍 Example:

	cfg, err := config.Discover(ctx, ".")
	if err != nil {
		return err
	}
	engine := fileops.New(fileops.Options{Workers: cfg.Workers})

HCL files may read the environment through the env object:

	root    = env.HOME
	workers = 8

	catalog {
	  ignore = [".DS_Store", "._*"]
	}
*/
package config
