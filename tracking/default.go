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
	"sync"
)

var (
	defaultMu      sync.Mutex
	defaultTracker *Tracker
)

// Default returns the process-wide Tracker, building one from ambient
// configuration on first use.
func Default(ctx context.Context) *Tracker {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultTracker == nil {
		defaultTracker = New(ctx)
	}
	return defaultTracker
}

// SetDefault replaces the process-wide Tracker. Tests use it to inject
// a tracker pointed at a fake server.
func SetDefault(t *Tracker) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultTracker = t
}

// The package-level functions mirror the Tracker methods on the
// default tracker, for training code that does not want to thread a
// handle through.

func SetTag(ctx context.Context, key, value string) { Default(ctx).SetTag(ctx, key, value) }

func SetTags(ctx context.Context, tags map[string]string) { Default(ctx).SetTags(ctx, tags) }

func LogParam(ctx context.Context, key, value string) { Default(ctx).LogParam(ctx, key, value) }

func LogParams(ctx context.Context, params map[string]string) { Default(ctx).LogParams(ctx, params) }

func LogMetric(ctx context.Context, key string, value float64, step int64) {
	Default(ctx).LogMetric(ctx, key, value, step)
}

func LogMetrics(ctx context.Context, metrics map[string]float64, step int64) {
	Default(ctx).LogMetrics(ctx, metrics, step)
}

func LogArtifact(ctx context.Context, localPath, artifactPath string) {
	Default(ctx).LogArtifact(ctx, localPath, artifactPath)
}

func LogArtifacts(ctx context.Context, localDir, artifactPath string) {
	Default(ctx).LogArtifacts(ctx, localDir, artifactPath)
}

func SaveText(ctx context.Context, content, filename string) {
	Default(ctx).SaveText(ctx, content, filename)
}

func ActiveRunID(ctx context.Context) string { return Default(ctx).ActiveRunID(ctx) }

func TrackingURI(ctx context.Context) string { return Default(ctx).TrackingURI() }

func Enabled(ctx context.Context) bool { return Default(ctx).Enabled() }
