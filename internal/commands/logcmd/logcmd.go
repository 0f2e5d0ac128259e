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

// Package logcmd implements `mltrack log`: forwarding individual
// values to the active run from shell scripts and job wrappers.
package logcmd

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mltrack/mltrack/internal/commands/shared"
	pkgerrors "github.com/mltrack/mltrack/pkg/errors"
	"github.com/mltrack/mltrack/tracking"
)

// NewCommand creates the log command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Log values to the active run",
		Long: `Log forwards parameters, metrics, tags, and artifacts to the active
run. The run comes from MLFLOW_RUN_ID or the settings file; without one
a new run is started and its id printed as a warning.

Unlike library calls, these commands exit non-zero when tracking is
disabled, since running them by hand and silently doing nothing would
be surprising.`,
	}

	cmd.AddCommand(newParamCommand())
	cmd.AddCommand(newMetricCommand())
	cmd.AddCommand(newTagCommand())
	cmd.AddCommand(newArtifactCommand())
	cmd.AddCommand(newTextCommand())

	return cmd
}

// tracker builds a Tracker and fails the command when disabled.
func tracker(cmd *cobra.Command) (*tracking.Tracker, error) {
	t := shared.NewTracker(cmd.Context())
	if err := shared.RequireEnabled(t); err != nil {
		return nil, err
	}
	return t, nil
}

func newParamCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "param <key> <value>",
		Short: "Log a parameter",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := tracker(cmd)
			if err != nil {
				return err
			}
			t.LogParam(cmd.Context(), args[0], args[1])
			return nil
		},
	}
}

func newMetricCommand() *cobra.Command {
	var step int64

	cmd := &cobra.Command{
		Use:   "metric <key> <value>",
		Short: "Log a metric sample",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return shared.NewInvalidInputError("metric value must be a number", &pkgerrors.ValidationError{
					Field:      "value",
					Message:    fmt.Sprintf("%q is not numeric", args[1]),
					Suggestion: "pass the value as a plain number, e.g. `mltrack log metric loss 0.42`",
				})
			}
			t, err := tracker(cmd)
			if err != nil {
				return err
			}
			t.LogMetric(cmd.Context(), args[0], value, step)
			return nil
		},
	}

	cmd.Flags().Int64Var(&step, "step", 0, "Training step the sample belongs to")

	return cmd
}

func newTagCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tag <key> <value>",
		Short: "Set a tag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := tracker(cmd)
			if err != nil {
				return err
			}
			t.SetTag(cmd.Context(), args[0], args[1])
			return nil
		},
	}
}

func newArtifactCommand() *cobra.Command {
	var (
		dest    string
		include []string
		exclude []string
	)

	cmd := &cobra.Command{
		Use:   "artifact <path>",
		Short: "Upload a file or directory as an artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := os.Stat(args[0])
			if err != nil {
				return shared.NewInvalidInputError("artifact path", err)
			}
			t, err := tracker(cmd)
			if err != nil {
				return err
			}
			if info.IsDir() {
				t.LogArtifactsMatching(cmd.Context(), args[0], dest, include, exclude)
			} else {
				t.LogArtifact(cmd.Context(), args[0], dest)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dest, "dest", "", "Destination path under the artifact root")
	cmd.Flags().StringSliceVar(&include, "include", nil, "Glob patterns to include (directories only)")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Glob patterns to exclude (directories only)")

	return cmd
}

func newTextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "text <filename>",
		Short: "Upload stdin as a named text artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			t, err := tracker(cmd)
			if err != nil {
				return err
			}
			t.SaveText(cmd.Context(), string(content), args[0])
			return nil
		},
	}
}
