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

import (
	"context"
	"os"
	"path/filepath"
)

// SaveText uploads a string as a named text artifact on the active run.
// The content is staged in a temporary directory that is removed before
// returning, whether or not the upload succeeded.
func (t *Tracker) SaveText(ctx context.Context, content, filename string) {
	t.guard(ctx, "save_text", func(ctx context.Context, runID string) error {
		store, err := t.ensureStore(ctx, runID)
		if err != nil {
			return err
		}

		dir, err := os.MkdirTemp("", "mltrack-text-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(dir)

		local := filepath.Join(dir, filepath.Base(filename))
		if err := os.WriteFile(local, []byte(content), 0o644); err != nil {
			return err
		}
		return store.Upload(ctx, local, "")
	})
}
