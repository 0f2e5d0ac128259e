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

package cli

import (
	"testing"

	"github.com/mltrack/mltrack/internal/commands/shared"
)

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	if cmd.Use != "mltrack" {
		t.Errorf("expected use 'mltrack', got %q", cmd.Use)
	}

	if cmd.Short == "" {
		t.Error("expected short description to be set")
	}

	if cmd.Long == "" {
		t.Error("expected long description to be set")
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	if cmd.PersistentFlags().Lookup("verbose") == nil {
		t.Error("verbose flag not registered")
	}

	if cmd.PersistentFlags().Lookup("quiet") == nil {
		t.Error("quiet flag not registered")
	}

	if cmd.PersistentFlags().Lookup("json") == nil {
		t.Error("json flag not registered")
	}

	if cmd.PersistentFlags().Lookup("config") == nil {
		t.Error("config flag not registered")
	}
}

func TestSetVersion(t *testing.T) {
	SetVersion("1.2.3", "abc123", "2026-08-30")
	defer shared.SetVersion("dev", "unknown", "unknown")

	v, c, b := shared.GetVersion()
	if v != "1.2.3" || c != "abc123" || b != "2026-08-30" {
		t.Errorf("version not propagated: %s %s %s", v, c, b)
	}
}
