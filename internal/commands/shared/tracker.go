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

package shared

import (
	"context"

	"github.com/mltrack/mltrack/tracking"
)

// NewTracker builds a Tracker honoring the global --config flag.
func NewTracker(ctx context.Context, extra ...tracking.Option) *tracking.Tracker {
	opts := extra
	if configFlag != "" {
		opts = append(opts, tracking.WithSettingsPath(configFlag))
	}
	return tracking.New(ctx, opts...)
}

// RequireEnabled converts a disabled tracker into an exit error, for
// commands whose whole point is talking to the backend.
func RequireEnabled(t *tracking.Tracker) error {
	if t.Enabled() {
		return nil
	}
	return NewTrackingDisabledError(t.DisabledReason())
}
