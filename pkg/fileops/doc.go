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
Package fileops performs bulk operations on a user-owned directory tree.

🎯 Purpose:
- Copy, move, delete and import many entries without stopping at the first failure
- Rename and create single entries with sanitized names
- Load and save text files in place

🔄 Flow:
1. Caller lists a directory through the catalog
2. Batch operations are submitted to a dispatch.Runner
3. Items run on a bounded worker pool
4. A BatchResult accounting for every item settles the returned future

⚡ Rules:
- Copy and import never overwrite, destinations go through naming.Resolve
- Move never renames, an occupied destination fails that item
- Scoped access tokens are released on every path

🔍 Example:

	engine := fileops.New(fileops.Options{Runner: runner, Workers: 4})
	engine.Copy(ctx, entries, dst).Then(func(res fileops.BatchResult, err error) {
		fmt.Println(res.SuccessCount, len(res.Failures))
	})
*/
package fileops
