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

// Package artifact uploads run artifacts to the store behind a run's
// artifact root. The store implementation is chosen by the root's URI
// scheme: the tracking server's artifact proxy (mlflow-artifacts:/),
// S3-compatible object storage (s3://), or the local filesystem
// (file:// or a bare path).
package artifact

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Store uploads local files under a run's artifact root.
type Store interface {
	// Upload copies the local file to artifactPath (a root-relative,
	// slash-separated path, which may be empty to mean the root).
	Upload(ctx context.Context, localPath, artifactPath string) error

	// Probe checks whether the store is usable: reachable, writable,
	// and (for object storage) that credentials resolve.
	Probe(ctx context.Context) error

	// Scheme identifies the store kind ("mlflow-artifacts", "s3", "file").
	Scheme() string
}

// Options configures store resolution.
type Options struct {
	// TrackingURI is the tracking server endpoint, required for the
	// mlflow-artifacts proxy scheme.
	TrackingURI string

	// HTTPClient is used by HTTP-backed stores. Defaults to
	// http.DefaultClient when nil.
	HTTPClient *http.Client

	// Token and Username/Password authenticate proxy uploads the same
	// way as tracking API calls.
	Token    string
	Username string
	Password string
}

// ForRoot resolves a Store for the given artifact root URI.
func ForRoot(root string, opts Options) (Store, error) {
	if root == "" {
		return nil, fmt.Errorf("artifact root is empty")
	}

	u, err := url.Parse(root)
	if err != nil {
		return nil, fmt.Errorf("invalid artifact root %q: %w", root, err)
	}

	switch u.Scheme {
	case "mlflow-artifacts":
		if opts.TrackingURI == "" {
			return nil, fmt.Errorf("tracking URI required for artifact proxy uploads")
		}
		return newProxyStore(opts, proxyRootPath(u)), nil
	case "s3":
		return newS3Store(u.Host, strings.TrimPrefix(u.Path, "/"), opts.HTTPClient)
	case "file", "":
		return &localStore{root: localRootPath(u, root)}, nil
	default:
		return nil, fmt.Errorf("unsupported artifact root scheme %q", u.Scheme)
	}
}

// proxyRootPath extracts the server-relative artifact path from an
// mlflow-artifacts URI. Both mlflow-artifacts:/7/run/artifacts and
// mlflow-artifacts://host/7/run/artifacts forms appear in the wild; the
// host portion, when present, duplicates the tracking server and is
// dropped.
func proxyRootPath(u *url.URL) string {
	p := strings.TrimPrefix(u.Path, "/")
	if u.Opaque != "" {
		p = strings.TrimPrefix(u.Opaque, "/")
	}
	return p
}

// localRootPath converts a file:// URI (or bare path) to a filesystem path.
func localRootPath(u *url.URL, raw string) string {
	if u.Scheme == "file" {
		return filepath.FromSlash(u.Path)
	}
	return raw
}

// joinArtifactPath joins a root-relative destination with the local file's
// base name, producing the final slash-separated artifact path.
func joinArtifactPath(artifactPath, localPath string) string {
	name := filepath.Base(localPath)
	if artifactPath == "" {
		return name
	}
	return path.Join(artifactPath, name)
}

// localStore copies artifacts into a directory on the local filesystem.
// This is what a file-backed tracking server uses.
type localStore struct {
	root string
}

func (s *localStore) Scheme() string { return "file" }

func (s *localStore) Probe(ctx context.Context) error {
	return os.MkdirAll(s.root, 0755)
}

func (s *localStore) Upload(ctx context.Context, localPath, artifactPath string) error {
	dest := filepath.Join(s.root, filepath.FromSlash(joinArtifactPath(artifactPath, localPath)))

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", localPath, err)
	}

	if err := os.WriteFile(dest, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}

	return nil
}
