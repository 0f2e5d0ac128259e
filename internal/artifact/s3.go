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
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// EnvS3Endpoint overrides the S3 endpoint, matching the variable the
// Python client honors for MinIO and other S3-compatible stores.
const EnvS3Endpoint = "MLFLOW_S3_ENDPOINT_URL"

// unsignedPayload skips payload hashing during SigV4 signing so large
// artifacts stream in a single pass.
const unsignedPayload = "UNSIGNED-PAYLOAD"

// s3Store uploads artifacts directly to S3-compatible object storage,
// signing requests with SigV4 using the ambient AWS credential chain.
type s3Store struct {
	bucket     string
	prefix     string
	httpClient *http.Client

	awsCfg aws.Config
	signer *v4.Signer
}

func newS3Store(bucket, prefix string, httpClient *http.Client) (*s3Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 artifact root has no bucket")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if awsCfg.Region == "" {
		awsCfg.Region = "us-east-1"
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &s3Store{
		bucket:     bucket,
		prefix:     prefix,
		httpClient: httpClient,
		awsCfg:     awsCfg,
		signer:     v4.NewSigner(),
	}, nil
}

func (s *s3Store) Scheme() string { return "s3" }

// Probe verifies the credential chain resolves and, when it does, that
// the identity is valid according to STS. A failed probe downgrades the
// text-artifact helper to a warning no-op; it never disables tracking.
func (s *s3Store) Probe(ctx context.Context) error {
	if _, err := s.awsCfg.Credentials.Retrieve(ctx); err != nil {
		return fmt.Errorf("AWS credentials unavailable: %w", err)
	}

	stsClient := sts.NewFromConfig(s.awsCfg)
	if _, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{}); err != nil {
		return fmt.Errorf("AWS identity check failed: %w", err)
	}

	return nil
}

func (s *s3Store) Upload(ctx context.Context, localPath, artifactPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", localPath, err)
	}

	key := path.Join(s.prefix, joinArtifactPath(artifactPath, localPath))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.objectURL(key), f)
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Amz-Content-Sha256", unsignedPayload)

	creds, err := s.awsCfg.Credentials.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("AWS credentials unavailable: %w", err)
	}

	if err := s.signer.SignHTTP(ctx, creds, req, unsignedPayload, "s3", s.awsCfg.Region, time.Now()); err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return fmt.Errorf("object store returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

// objectURL builds the object URL: path-style against a custom endpoint
// (MinIO et al.), virtual-hosted style against AWS proper.
func (s *s3Store) objectURL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()

	if endpoint := os.Getenv(EnvS3Endpoint); endpoint != "" {
		return strings.TrimRight(endpoint, "/") + "/" + s.bucket + "/" + escaped
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.awsCfg.Region, escaped)
}
