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

package artifact

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// DirFilter selects which files inside a directory are uploaded.
// Patterns are doublestar globs matched against the slash-separated path
// relative to the uploaded directory ("checkpoints/**/*.ckpt").
type DirFilter struct {
	// Include keeps only matching files. Empty means everything.
	Include []string

	// Exclude drops matching files after Include is applied.
	Exclude []string
}

// match reports whether the relative path survives the filter.
func (f DirFilter) match(rel string) (bool, error) {
	if len(f.Include) > 0 {
		ok, err := matchAny(f.Include, rel)
		if err != nil || !ok {
			return false, err
		}
	}

	if len(f.Exclude) > 0 {
		ok, err := matchAny(f.Exclude, rel)
		if err != nil {
			return false, err
		}
		if ok {
			return false, nil
		}
	}

	return true, nil
}

func matchAny(patterns []string, rel string) (bool, error) {
	for _, p := range patterns {
		ok, err := doublestar.Match(p, rel)
		if err != nil {
			return false, fmt.Errorf("invalid glob pattern %q: %w", p, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// UploadDir walks localDir and uploads every regular file that passes the
// filter, preserving the directory layout under artifactPath.
func UploadDir(ctx context.Context, store Store, localDir, artifactPath string, filter DirFilter) error {
	return filepath.WalkDir(localDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		ok, err := filter.match(rel)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		// The file's own name is appended by Upload; pass its parent.
		dest := artifactPath
		if dir := path.Dir(rel); dir != "." {
			dest = path.Join(artifactPath, dir)
		}

		return store.Upload(ctx, p, dest)
	})
}
