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
Package status renders progress and results of bundlekit jobs for people.

🎯 Purpose:
- Turns archive progress fractions into pterm progress bars
- Formats batch results and certificate outcomes as one-line summaries
- Prints per-item changes with pterm prefix printers and mirrors them to zerolog

🔄 Flow:
1. A command starts a job and hands Bar.Update to the archive service
2. The job's future delivers a result on the completion loop
3. UserLogger prints the result; failures carry their reason

🔍 Example:

	bar, err := status.NewBar("extracting Demo.ipa", os.Stdout)
	if err != nil {
		return err
	}
	f, err := svc.Extract(ctx, entry, dir, bar.Update)
	if err != nil {
		return err
	}
	res, err := f.Wait(ctx)
	bar.Stop()
*/
package status
