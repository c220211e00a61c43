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

package text_test

import (
	"fmt"

	"github.com/walteh/bundlekit/pkg/text"
)

func ExampleReplace() {
	rules := []text.Rule{
		{From: "com.example", To: "com.walteh", Glob: "**/Info.plist"},
		{From: "Demo", To: "Sample"},
	}

	res := text.Replace("com.example.Demo", rules)

	fmt.Printf("Modified: %s\n", res.Content)
	fmt.Printf("Changes: %d\n", res.Count)

	// Output:
	// Modified: com.walteh.Sample
	// Changes: 2
}
