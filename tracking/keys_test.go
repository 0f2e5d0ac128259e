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

import "testing"

func TestFormatKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "learning_rate", "learning_rate"},
		{"colon", "train:loss", "train_loss"},
		{"slash", "eval/accuracy", "eval_accuracy"},
		{"both", "gpu:0/memory", "gpu_0_memory"},
		{"repeated", "a//b::c", "a__b__c"},
		{"empty", "", ""},
		{"only separators", ":/", "__"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatKey(tt.in); got != tt.want {
				t.Errorf("FormatKey(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
