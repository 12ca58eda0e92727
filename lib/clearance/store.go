// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clearance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"

	"github.com/xtekky/deepseek4free/lib/sealed"
	"github.com/xtekky/deepseek4free/lib/secret"
)

// Store reads and writes the cookie file.
//
// The file is the JSON form of Snapshot, indented four spaces. Hand
// edits may include comments and trailing commas. When Recipients is
// set the file is written sealed with age, and IdentityFile must name
// an identity that can open it.
type Store struct {
	Path         string
	Recipients   []string
	IdentityFile string
}

// Load reads the cookie file. A missing file is reported with an
// error matching os.ErrNotExist so callers can start from an empty
// snapshot.
func (store *Store) Load() (Snapshot, error) {
	data, err := os.ReadFile(store.Path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("clearance: reading cookie file: %w", err)
	}

	if sealed.IsSealed(data) {
		data, err = store.open(data)
		if err != nil {
			return Snapshot{}, err
		}
	}

	var snapshot Snapshot
	if err := json.Unmarshal(jsonc.ToJSON(data), &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("clearance: parsing %s: %w", store.Path, err)
	}
	return snapshot, nil
}

func (store *Store) open(ciphertext []byte) ([]byte, error) {
	if store.IdentityFile == "" {
		return nil, fmt.Errorf("clearance: %s is sealed but no identity file is configured", store.Path)
	}
	identity, err := secret.ReadFromPath(store.IdentityFile)
	if err != nil {
		return nil, fmt.Errorf("clearance: reading identity: %w", err)
	}
	defer identity.Close()

	plaintext, err := sealed.Decrypt(ciphertext, identity)
	if err != nil {
		return nil, fmt.Errorf("clearance: opening %s: %w", store.Path, err)
	}
	defer plaintext.Close()
	return append([]byte(nil), plaintext.Bytes()...), nil
}

// Save overwrites the cookie file with snapshot. The write goes to a
// temporary file in the same directory and is renamed into place, so
// a concurrent Load sees either the old file or the new one.
func (store *Store) Save(snapshot Snapshot) error {
	if snapshot.Cookies == nil {
		snapshot.Cookies = map[string]string{}
	}
	data, err := json.MarshalIndent(snapshot, "", "    ")
	if err != nil {
		return fmt.Errorf("clearance: encoding snapshot: %w", err)
	}
	data = append(data, '\n')

	if len(store.Recipients) > 0 {
		data, err = sealed.Encrypt(data, store.Recipients)
		if err != nil {
			return fmt.Errorf("clearance: sealing cookie file: %w", err)
		}
	}

	directory := filepath.Dir(store.Path)
	if err := os.MkdirAll(directory, 0o700); err != nil {
		return fmt.Errorf("clearance: creating %s: %w", directory, err)
	}

	temporary, err := os.CreateTemp(directory, ".cookies-*.tmp")
	if err != nil {
		return fmt.Errorf("clearance: creating temporary file: %w", err)
	}
	temporaryPath := temporary.Name()
	defer os.Remove(temporaryPath)

	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		return fmt.Errorf("clearance: writing cookie file: %w", err)
	}
	if err := temporary.Chmod(0o600); err != nil {
		temporary.Close()
		return fmt.Errorf("clearance: setting cookie file mode: %w", err)
	}
	if err := temporary.Close(); err != nil {
		return fmt.Errorf("clearance: closing cookie file: %w", err)
	}
	if err := os.Rename(temporaryPath, store.Path); err != nil {
		return fmt.Errorf("clearance: replacing cookie file: %w", err)
	}
	return nil
}

// LoadOrEmpty is Load, with a missing file reported as an empty
// snapshot.
func (store *Store) LoadOrEmpty() (Snapshot, error) {
	snapshot, err := store.Load()
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, nil
	}
	return snapshot, err
}

// SaveOnRefresh returns a Refresher that delegates to refresher and
// writes every successful snapshot to store. A failed write is logged
// and does not fail the refresh: the in-memory snapshot is still good
// for this process.
func SaveOnRefresh(refresher Refresher, store *Store, logger *slog.Logger) Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return RefresherFunc(func(ctx context.Context) (Snapshot, error) {
		snapshot, err := refresher.Refresh(ctx)
		if err != nil {
			return Snapshot{}, err
		}
		if err := store.Save(snapshot); err != nil {
			logger.Warn("saving refreshed cookies failed", "path", store.Path, "error", err)
		} else {
			logger.Info("refreshed cookies saved", "path", store.Path, "cookies", len(snapshot.Cookies))
		}
		return snapshot, nil
	})
}
