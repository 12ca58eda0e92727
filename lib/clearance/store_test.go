// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clearance

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xtekky/deepseek4free/lib/sealed"
)

func TestStoreSaveLoad(t *testing.T) {
	t.Parallel()

	store := &Store{Path: filepath.Join(t.TempDir(), "nested", "cookies.json")}
	snapshot := Snapshot{
		Cookies:   map[string]string{"cf_clearance": "abc"},
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64)",
	}
	if err := store.Save(snapshot); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(store.Path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "\n    \"cookies\": {\n        \"cf_clearance\": \"abc\"") {
		t.Errorf("cookie file not indented four spaces:\n%s", data)
	}
	info, err := os.Stat(store.Path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("cookie file mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.UserAgent != snapshot.UserAgent || loaded.Cookies["cf_clearance"] != "abc" {
		t.Errorf("Load = %+v, want %+v", loaded, snapshot)
	}
}

func TestStoreOverwritesWholesale(t *testing.T) {
	t.Parallel()

	store := &Store{Path: filepath.Join(t.TempDir(), "cookies.json")}
	if err := store.Save(Snapshot{Cookies: map[string]string{"old": "1", "cf_clearance": "a"}}); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(Snapshot{Cookies: map[string]string{"cf_clearance": "b"}}); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := loaded.Cookies["old"]; ok {
		t.Error("second Save merged with the first instead of replacing it")
	}
	entries, err := os.ReadDir(filepath.Dir(store.Path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries after Save, want 1 (temporary file leaked)", len(entries))
	}
}

func TestStoreLoadToleratesComments(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cookies.json")
	content := `{
    // pasted from the browser devtools
    "cookies": {
        "cf_clearance": "abc",
    },
    "user_agent": "UA",
}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	loaded, err := (&Store{Path: path}).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Cookies["cf_clearance"] != "abc" || loaded.UserAgent != "UA" {
		t.Errorf("Load = %+v", loaded)
	}
}

func TestStoreMissingFile(t *testing.T) {
	t.Parallel()

	store := &Store{Path: filepath.Join(t.TempDir(), "absent.json")}
	if _, err := store.Load(); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load error = %v, want os.ErrNotExist", err)
	}
	snapshot, err := store.LoadOrEmpty()
	if err != nil || !snapshot.Empty() {
		t.Errorf("LoadOrEmpty = %+v, %v; want empty, nil", snapshot, err)
	}
}

func TestStoreSealed(t *testing.T) {
	t.Parallel()

	keypair, err := sealed.GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	defer keypair.Close()

	directory := t.TempDir()
	identityPath := filepath.Join(directory, "identity.txt")
	if err := os.WriteFile(identityPath, []byte(keypair.PrivateKey.String()+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	store := &Store{
		Path:         filepath.Join(directory, "cookies.json.age"),
		Recipients:   []string{keypair.PublicKey},
		IdentityFile: identityPath,
	}
	if err := store.Save(Snapshot{Cookies: map[string]string{"cf_clearance": "secret-value"}, UserAgent: "UA"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(store.Path)
	if err != nil {
		t.Fatal(err)
	}
	if !sealed.IsSealed(data) || strings.Contains(string(data), "secret-value") {
		t.Fatalf("cookie file is not sealed:\n%s", data)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Cookies["cf_clearance"] != "secret-value" {
		t.Errorf("Load = %+v", loaded)
	}

	withoutIdentity := &Store{Path: store.Path}
	if _, err := withoutIdentity.Load(); err == nil {
		t.Error("Load of sealed file without identity succeeded")
	}
}

func TestSaveOnRefresh(t *testing.T) {
	t.Parallel()

	store := &Store{Path: filepath.Join(t.TempDir(), "cookies.json")}
	refresher := SaveOnRefresh(RefresherFunc(func(context.Context) (Snapshot, error) {
		return Snapshot{Cookies: map[string]string{"cf_clearance": "fresh"}, UserAgent: "UA/2"}, nil
	}), store, discardLogger())

	snapshot, err := refresher.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if snapshot.Cookies["cf_clearance"] != "fresh" {
		t.Errorf("Refresh = %+v", snapshot)
	}

	saved, err := store.Load()
	if err != nil {
		t.Fatalf("Load after refresh: %v", err)
	}
	if saved.UserAgent != "UA/2" {
		t.Errorf("saved user agent = %q, want UA/2", saved.UserAgent)
	}
}

func TestSaveOnRefreshPropagatesFailure(t *testing.T) {
	t.Parallel()

	store := &Store{Path: filepath.Join(t.TempDir(), "cookies.json")}
	failure := errors.New("browser crashed")
	refresher := SaveOnRefresh(RefresherFunc(func(context.Context) (Snapshot, error) {
		return Snapshot{}, failure
	}), store, discardLogger())

	if _, err := refresher.Refresh(context.Background()); !errors.Is(err, failure) {
		t.Errorf("Refresh error = %v, want %v", err, failure)
	}
	if _, err := os.Stat(store.Path); !errors.Is(err, os.ErrNotExist) {
		t.Error("failed refresh wrote a cookie file")
	}
}
