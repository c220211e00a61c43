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

package status

import (
	"fmt"

	"github.com/walteh/bundlekit/pkg/certificate"
	"github.com/walteh/bundlekit/pkg/fileops"
)

// Percent converts a progress fraction into a whole percentage in [0, 100]
func Percent(fraction float64) int {
	switch {
	case fraction <= 0:
		return 0
	case fraction >= 1:
		return 100
	default:
		return int(fraction * 100)
	}
}

// FormatProgress formats a progress fraction with percentage
func FormatProgress(fraction float64) string {
	pct := Percent(fraction)
	if pct >= 100 {
		return fmt.Sprintf("✅ Progress: %d%%", pct)
	}
	return fmt.Sprintf("⏳ Progress: %d%%", pct)
}

// FormatBatch summarizes a batch result
func FormatBatch(verb string, r fileops.BatchResult) string {
	switch {
	case r.Total() == 0:
		return fmt.Sprintf("👍 Nothing to %s", verb)
	case r.OK():
		return fmt.Sprintf("✅ %s %d/%d", verb, r.SuccessCount, r.Total())
	default:
		return fmt.Sprintf("⚠️  %s %d/%d (%d failed)", verb, r.SuccessCount, r.Total(), len(r.Failures))
	}
}

// FormatOutcome summarizes a certificate import
func FormatOutcome(o certificate.Outcome) string {
	switch o.State {
	case certificate.StateSucceeded:
		return fmt.Sprintf("✅ Imported %s as %s", o.DisplayName, o.IdentityID)
	case certificate.StateAwaitingPassword:
		return fmt.Sprintf("🔑 Wrong password for %s, try again with another password", o.DisplayName)
	case certificate.StateFailed:
		return FormatError(o.Err)
	default:
		return fmt.Sprintf("⏳ Import %s", o.State)
	}
}

// FormatError formats an error message with emoji
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("❌ Error: %v", err)
}
