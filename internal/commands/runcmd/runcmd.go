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

// Package runcmd implements `mltrack run`: starting and ending runs
// from job wrappers, so the run id can be exported to worker processes.
package runcmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mltrack/mltrack/internal/commands/shared"
	"github.com/mltrack/mltrack/internal/config"
	"github.com/mltrack/mltrack/tracking"
)

// NewCommand creates the run command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start and end tracking runs",
	}

	cmd.AddCommand(newStartCommand())
	cmd.AddCommand(newEndCommand())

	return cmd
}

func newStartCommand() *cobra.Command {
	var (
		experimentID   string
		experimentName string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a run and print its id",
		Long: `Start creates a run and prints its id, for the launcher to export:

	export ` + config.EnvRunID + `=$(mltrack run start)

Workers that inherit the variable attach to the same run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := shared.NewTracker(cmd.Context(), tracking.WithConfig(tracking.Config{
				ExperimentID:   experimentID,
				ExperimentName: experimentName,
			}))
			if err := shared.RequireEnabled(t); err != nil {
				return err
			}

			runID := t.ActiveRunID(cmd.Context())
			if runID == "" {
				return shared.NewBackendError("could not start a run", nil)
			}

			if shared.GetJSON() {
				out, err := json.Marshal(map[string]string{"run_id": runID})
				if err != nil {
					return fmt.Errorf("failed to marshal run id: %w", err)
				}
				cmd.Println(string(out))
				return nil
			}
			cmd.Println(runID)
			return nil
		},
	}

	cmd.Flags().StringVar(&experimentID, "experiment-id", "", "Experiment to create the run in")
	cmd.Flags().StringVar(&experimentName, "experiment-name", "", "Experiment name (created when missing)")

	return cmd
}

func newEndCommand() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "end",
		Short: "Mark the active run terminated",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch status {
			case tracking.StatusFinished, tracking.StatusFailed, tracking.StatusKilled:
			default:
				return shared.NewInvalidInputError(
					fmt.Sprintf("invalid status %q (want %s, %s, or %s)",
						status, tracking.StatusFinished, tracking.StatusFailed, tracking.StatusKilled), nil)
			}

			t := shared.NewTracker(cmd.Context())
			if err := shared.RequireEnabled(t); err != nil {
				return err
			}
			runID := t.ActiveRunID(cmd.Context())
			if runID == "" {
				return shared.NewBackendError("no active run to end", nil)
			}
			t.EndRun(cmd.Context(), status)
			if !shared.GetQuiet() {
				cmd.Printf("run %s marked %s\n", runID, status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", tracking.StatusFinished, "Terminal status (FINISHED, FAILED, KILLED)")

	return cmd
}
