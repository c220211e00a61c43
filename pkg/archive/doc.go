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
Package archive extracts archive containers and packages application
directories into distributable containers.

🎯 Purpose:
- Unpack zip, tar family, compressed streams and stored rar archives
- Build Payload/<name>.app layouts into an .ipa container
- Report fractional progress on the completion context

⚡ Rules:
- Classification is checked before any I/O
- One job at a time per Service, a second request fails with ErrJobActive
- Output appears under its final name only once the job succeeded
- A failed or cancelled job leaves nothing behind

🔍 Example:

	svc := archive.New(archive.Options{Runner: runner})
	job, err := svc.Extract(ctx, entry, dir, func(p float64) { bar.Set(p) })
	if err != nil {
		return err
	}
	res, err := job.Wait(ctx)
*/
package archive
