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

package config

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	// keyringService is the service name used for keyring entries.
	// Supported platforms:
	//   - macOS: Keychain Access
	//   - Linux: Secret Service API (GNOME Keyring, KWallet)
	//   - Windows: Credential Manager
	keyringService = "mltrack"

	// keyringTokenKey is the entry holding the tracking server token.
	keyringTokenKey = "tracking_token"
)

// ErrNoStoredToken is returned when the keyring holds no tracking token.
var ErrNoStoredToken = errors.New("no tracking token stored in keyring")

// KeyringToken retrieves the tracking token from the OS keyring.
func KeyringToken() (string, error) {
	token, err := keyring.Get(keyringService, keyringTokenKey)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNoStoredToken
		}
		return "", fmt.Errorf("keyring error: %w", err)
	}
	return token, nil
}

// StoreKeyringToken saves the tracking token in the OS keyring.
func StoreKeyringToken(token string) error {
	if err := keyring.Set(keyringService, keyringTokenKey, token); err != nil {
		return fmt.Errorf("keyring error: %w", err)
	}
	return nil
}

// DeleteKeyringToken removes the tracking token from the OS keyring.
// Deleting an absent token is not an error.
func DeleteKeyringToken() error {
	err := keyring.Delete(keyringService, keyringTokenKey)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring error: %w", err)
	}
	return nil
}
