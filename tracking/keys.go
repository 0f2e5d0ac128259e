// Copyright 2026 The mltrack Authors
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

package tracking

import "strings"

var keyReplacer = strings.NewReplacer(":", "_", "/", "_")

// FormatKey rewrites a metric, parameter, or tag key into a filesystem
// backed store's restricted alphabet: ':' and '/' become '_'. The
// Tracker forwards keys verbatim; callers opt into this when their
// backend rejects the separators.
func FormatKey(key string) string {
	return keyReplacer.Replace(key)
}
