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

package catalog

import "strings"

// 🗂️ Kind classifies a catalogued filesystem object
type Kind int

const (
	KindPlainFile            Kind = iota
	KindDirectory                 // Plain directory
	KindArchive                   // Extractable archive container
	KindAuthorizationProfile      // .mobileprovision
	KindPrivateKeyContainer       // .p12 / .pfx
	KindApplicationDirectory      // .app bundle directory
	KindPropertyList              // .plist
)

// String returns a string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindArchive:
		return "archive"
	case KindAuthorizationProfile:
		return "profile"
	case KindPrivateKeyContainer:
		return "p12"
	case KindApplicationDirectory:
		return "app"
	case KindPropertyList:
		return "plist"
	default:
		return "file"
	}
}

// archiveSuffixes lists every name suffix recognised as an archive
var archiveSuffixes = []string{
	".zip", ".ipa", ".tipa",
	".tar", ".tgz", ".gz",
	".zst", ".xz", ".bz2",
	".rar",
}

// 🔍 Classify computes the Kind for a file name
func Classify(name string, isDir bool) Kind {
	lower := strings.ToLower(name)
	if isDir {
		if strings.HasSuffix(lower, ".app") && len(lower) > len(".app") {
			return KindApplicationDirectory
		}
		return KindDirectory
	}

	switch {
	case strings.HasSuffix(lower, ".mobileprovision"):
		return KindAuthorizationProfile
	case strings.HasSuffix(lower, ".p12"), strings.HasSuffix(lower, ".pfx"):
		return KindPrivateKeyContainer
	case strings.HasSuffix(lower, ".plist"):
		return KindPropertyList
	}

	for _, suffix := range archiveSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return KindArchive
		}
	}
	return KindPlainFile
}
