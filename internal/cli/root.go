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

// Package cli builds the root command for the mltrack CLI.
package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mltrack/mltrack/internal/commands/shared"
)

// SetVersion sets the version information (called from main).
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand creates the root Cobra command for mltrack.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mltrack",
		Short: "mltrack - resilient MLflow experiment tracking",
		Long: `mltrack forwards parameters, metrics, tags, and artifacts from
training jobs to an MLflow tracking server, degrading to logged no-ops
when the server is unconfigured or unreachable.

Run 'mltrack probe' to check what the current environment enables.
Run 'mltrack auth login' to store credentials for a tracking server.`,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves for proper exit codes
	}

	verbose, quiet, json, config := shared.RegisterFlagPointers()

	cmd.PersistentFlags().BoolVarP(verbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().BoolVarP(quiet, "quiet", "q", false, "Suppress non-error output")
	cmd.PersistentFlags().BoolVar(json, "json", false, "Output in JSON format")
	cmd.PersistentFlags().StringVar(config, "config", "", "Path to settings file (default: ~/.config/mltrack/settings.yaml)")

	// Accept underscore spellings for flags (--from_start == --from-start).
	cmd.PersistentFlags().SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	return cmd
}

// HandleExitError handles exit errors with proper exit codes.
func HandleExitError(err error) {
	shared.HandleExitError(err)
}
