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

// Package auth implements `mltrack auth`: storing and inspecting
// tracking server credentials. Tokens go to the OS keyring; the
// settings file only records that the keyring should be consulted.
package auth

import (
	"fmt"
	"net/url"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/mltrack/mltrack/internal/commands/shared"
	"github.com/mltrack/mltrack/internal/config"
	"github.com/mltrack/mltrack/internal/log"
)

// NewCommand creates the auth command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage tracking server credentials",
	}

	cmd.AddCommand(newLoginCommand())
	cmd.AddCommand(newLogoutCommand())
	cmd.AddCommand(newStatusCommand())

	return cmd
}

func newLoginCommand() *cobra.Command {
	var (
		uri   string
		token string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a tracking server URL and token",
		Long: `Login records the tracking server URL in the settings file and the
token in the OS keyring. Omitted values are prompted for interactively.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, uri, token)
		},
	}

	cmd.Flags().StringVar(&uri, "tracking-uri", "", "Tracking server URL")
	cmd.Flags().StringVar(&token, "token", "", "Bearer token (prompted when omitted)")

	return cmd
}

func runLogin(cmd *cobra.Command, uri, token string) error {
	settingsPath := shared.GetConfigPath()
	settings, err := config.Load(settingsPath)
	if err != nil {
		return shared.NewInvalidInputError("reading settings", err)
	}

	if uri == "" {
		prompt := &survey.Input{
			Message: "Tracking server URL:",
			Default: settings.TrackingURI,
		}
		if err := survey.AskOne(prompt, &uri, survey.WithValidator(validateURI)); err != nil {
			return err
		}
	} else if err := validateURI(uri); err != nil {
		return shared.NewInvalidInputError("invalid tracking URL", err)
	}

	if token == "" {
		prompt := &survey.Password{
			Message: "Token (leave empty for no auth):",
		}
		if err := survey.AskOne(prompt, &token); err != nil {
			return err
		}
	}

	settings.TrackingURI = uri
	settings.Auth.UseKeyring = token != ""
	if token != "" {
		if err := config.StoreKeyringToken(token); err != nil {
			return fmt.Errorf("storing token in keyring: %w", err)
		}
	}
	if err := config.Save(settings, settingsPath); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}

	if token != "" {
		cmd.Printf("Stored %s with token %s\n", uri, log.SanitizeToken(token))
	} else {
		cmd.Printf("Stored %s (no auth)\n", uri)
	}
	return nil
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.DeleteKeyringToken(); err != nil {
				return fmt.Errorf("removing token from keyring: %w", err)
			}

			settingsPath := shared.GetConfigPath()
			settings, err := config.Load(settingsPath)
			if err == nil && settings.Auth.UseKeyring {
				settings.Auth.UseKeyring = false
				if err := config.Save(settings, settingsPath); err != nil {
					return fmt.Errorf("writing settings: %w", err)
				}
			}

			cmd.Println("Logged out")
			return nil
		},
	}
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the effective credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Resolve(shared.GetConfigPath())
			if err != nil {
				return shared.NewInvalidInputError("resolving settings", err)
			}

			if settings.TrackingURI == "" {
				cmd.Println("No tracking server configured")
				return nil
			}
			cmd.Printf("Server: %s\n", settings.TrackingURI)
			switch {
			case settings.Auth.Token != "":
				cmd.Printf("Auth:   token %s\n", log.SanitizeToken(settings.Auth.Token))
			case settings.Auth.Username != "":
				cmd.Printf("Auth:   basic (%s)\n", settings.Auth.Username)
			default:
				cmd.Println("Auth:   none")
			}
			return nil
		},
	}
}

func validateURI(ans interface{}) error {
	s, ok := ans.(string)
	if !ok {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL must use http or https")
	}
	return nil
}
