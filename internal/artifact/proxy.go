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
	"io"
	"net/http"
	"os"
	"path"
	"strings"
)

// artifactsPrefix is the tracking server's artifact proxy path prefix.
const artifactsPrefix = "/api/2.0/mlflow-artifacts/artifacts"

// proxyStore uploads artifacts through the tracking server's HTTP proxy.
// The server forwards them to whatever backing store it is configured
// with, so the client needs no store credentials of its own.
type proxyStore struct {
	baseURL    string
	rootPath   string
	httpClient *http.Client
	token      string
	username   string
	password   string
}

func newProxyStore(opts Options, rootPath string) *proxyStore {
	hc := opts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	return &proxyStore{
		baseURL:    strings.TrimRight(opts.TrackingURI, "/"),
		rootPath:   rootPath,
		httpClient: hc,
		token:      opts.Token,
		username:   opts.Username,
		password:   opts.Password,
	}
}

func (s *proxyStore) Scheme() string { return "mlflow-artifacts" }

// Probe checks that the tracking server answers on its artifact proxy
// prefix. Listing the run's (possibly empty) artifact root is the
// cheapest authenticated request the proxy accepts.
func (s *proxyStore) Probe(ctx context.Context) error {
	u := s.baseURL + "/api/2.0/mlflow-artifacts/artifacts?path=" + s.rootPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create probe request: %w", err)
	}
	s.addAuth(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("artifact proxy unreachable: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	// 404 means the proxy is disabled on this server
	// (--no-serve-artifacts); anything else 2xx/4xx still proves the
	// endpoint exists.
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("artifact proxy not enabled on tracking server")
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("artifact proxy returned HTTP %d", resp.StatusCode)
	}

	return nil
}

func (s *proxyStore) Upload(ctx context.Context, localPath, artifactPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", localPath, err)
	}

	dest := path.Join(s.rootPath, joinArtifactPath(artifactPath, localPath))
	u := s.baseURL + artifactsPrefix + "/" + dest

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, f)
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", "application/octet-stream")
	s.addAuth(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return fmt.Errorf("artifact proxy returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

func (s *proxyStore) addAuth(req *http.Request) {
	switch {
	case s.token != "":
		req.Header.Set("Authorization", "Bearer "+s.token)
	case s.username != "":
		req.SetBasicAuth(s.username, s.password)
	}
}
