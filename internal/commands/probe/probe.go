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

// Package probe implements the `mltrack probe` command, which reports
// what the current environment enables: detection outcome, server
// reachability, and artifact store status.
package probe

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mltrack/mltrack/internal/commands/shared"
)

// report is the JSON shape of the probe output.
type report struct {
	Enabled           bool   `json:"enabled"`
	DisabledReason    string `json:"disabled_reason,omitempty"`
	TrackingURI       string `json:"tracking_uri,omitempty"`
	TrackingReachable bool   `json:"tracking_reachable"`
	TrackingError     string `json:"tracking_error,omitempty"`
	ArtifactStore     bool   `json:"artifact_store"`
	ArtifactScheme    string `json:"artifact_scheme,omitempty"`
	ArtifactError     string `json:"artifact_error,omitempty"`
	RunID             string `json:"run_id,omitempty"`
}

// NewCommand creates the probe command.
func NewCommand() *cobra.Command {
	var checkArtifacts bool

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check tracking configuration and reachability",
		Long: `Probe reports whether tracking is enabled in the current environment,
whether the tracking server answers, and (with --artifacts) whether the
active run's artifact store accepts uploads.

Exit code 0 means tracking is enabled and reachable; 3 means disabled;
4 means enabled but unreachable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd, checkArtifacts)
		},
	}

	cmd.Flags().BoolVar(&checkArtifacts, "artifacts", false, "Also probe the artifact store (may start a run)")

	return cmd
}

func runProbe(cmd *cobra.Command, checkArtifacts bool) error {
	ctx := cmd.Context()
	t := shared.NewTracker(ctx)

	caps := t.Capabilities()
	r := report{
		Enabled:           caps.Enabled,
		DisabledReason:    caps.DisabledReason,
		TrackingURI:       t.TrackingURI(),
		TrackingReachable: caps.TrackingReachable,
		TrackingError:     caps.TrackingError,
	}

	if checkArtifacts && caps.Enabled {
		// Artifact resolution needs a run; this may auto-start one.
		r.RunID = t.ActiveRunID(ctx)
		if r.RunID != "" {
			t.SaveText(ctx, "mltrack probe\n", ".mltrack-probe")
		}
		caps = t.Capabilities()
		r.ArtifactStore = caps.ArtifactStore
		r.ArtifactScheme = caps.ArtifactScheme
		r.ArtifactError = caps.ArtifactError
	}

	if err := printReport(cmd, r); err != nil {
		return err
	}

	switch {
	case !r.Enabled:
		return shared.NewTrackingDisabledError(r.DisabledReason)
	case !r.TrackingReachable:
		return shared.NewBackendError("tracking server unreachable", nil)
	}
	return nil
}

func printReport(cmd *cobra.Command, r report) error {
	if shared.GetJSON() {
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal probe report: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if !r.Enabled {
		cmd.Printf("tracking: disabled (%s)\n", r.DisabledReason)
		return nil
	}
	cmd.Println("tracking: enabled")
	cmd.Printf("  server:    %s\n", r.TrackingURI)
	if r.TrackingReachable {
		cmd.Println("  reachable: yes")
	} else {
		cmd.Printf("  reachable: no (%s)\n", r.TrackingError)
	}
	if r.RunID != "" {
		cmd.Printf("  run:       %s\n", r.RunID)
	}
	if r.ArtifactScheme != "" || r.ArtifactError != "" {
		if r.ArtifactStore {
			cmd.Printf("  artifacts: %s\n", r.ArtifactScheme)
		} else {
			cmd.Printf("  artifacts: unavailable (%s)\n", r.ArtifactError)
		}
	}
	return nil
}
