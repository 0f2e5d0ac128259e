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

// Capabilities reports what a Tracker can actually do, as opposed to
// what it was configured for. The probe command surfaces this to
// operators; library callers rarely need it.
type Capabilities struct {
	// Enabled reflects the detection outcome at construction.
	Enabled bool

	// DisabledReason is human-readable when Enabled is false.
	DisabledReason string

	// TrackingReachable is the result of the construction-time ping.
	// Informational only: an unreachable server does not disable
	// tracking.
	TrackingReachable bool

	// TrackingError describes the ping failure, if any.
	TrackingError string

	// ArtifactStore is true once an artifact store has been resolved
	// for the active run and its probe succeeded.
	ArtifactStore bool

	// ArtifactScheme names the resolved store backend ("mlflow-artifacts",
	// "s3", "file"), empty until resolution.
	ArtifactScheme string

	// ArtifactError describes why artifact uploads are unavailable.
	ArtifactError string
}
