// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFromBytesZeroesSource(t *testing.T) {
	source := []byte("sk-bearer-token")

	buffer, err := NewFromBytes(source)
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	defer buffer.Close()

	if got := buffer.String(); got != "sk-bearer-token" {
		t.Errorf("String() = %q, want %q", got, "sk-bearer-token")
	}
	for index, value := range source {
		if value != 0 {
			t.Fatalf("source[%d] = %d after NewFromBytes, want 0", index, value)
		}
	}
}

func TestNewRejectsNonPositiveSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		if _, err := New(size); err == nil {
			t.Errorf("New(%d) succeeded", size)
		}
	}
}

func TestCloseIdempotentAndPanicsOnRead(t *testing.T) {
	buffer, err := NewFromBytes([]byte("token"))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if buffer.Len() != 0 {
		t.Errorf("Len() after Close = %d, want 0", buffer.Len())
	}

	defer func() {
		if recover() == nil {
			t.Error("Bytes() after Close did not panic")
		}
	}()
	buffer.Bytes()
}

func TestReadFromPathTrims(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("  abc123\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	buffer, err := ReadFromPath(path)
	if err != nil {
		t.Fatalf("ReadFromPath: %v", err)
	}
	defer buffer.Close()

	if got := buffer.String(); got != "abc123" {
		t.Errorf("token = %q, want %q", got, "abc123")
	}
}

func TestReadFromPathEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte(" \n\t"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFromPath(path); !errors.Is(err, ErrEmpty) {
		t.Errorf("ReadFromPath error = %v, want ErrEmpty", err)
	}
}

func TestReadFirstLine(t *testing.T) {
	buffer, err := readFirstLine(strings.NewReader("line-one\nline-two\n"))
	if err != nil {
		t.Fatalf("readFirstLine: %v", err)
	}
	defer buffer.Close()
	if got := buffer.String(); got != "line-one" {
		t.Errorf("token = %q, want %q", got, "line-one")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("DSK_TEST_TOKEN", "from-env")
	buffer, err := FromEnv("DSK_TEST_TOKEN")
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if buffer == nil {
		t.Fatal("FromEnv returned nil buffer for a set variable")
	}
	defer buffer.Close()
	if got := buffer.String(); got != "from-env" {
		t.Errorf("token = %q, want %q", got, "from-env")
	}

	t.Setenv("DSK_TEST_TOKEN", "   ")
	blank, err := FromEnv("DSK_TEST_TOKEN")
	if err != nil || blank != nil {
		t.Errorf("FromEnv(blank) = %v, %v; want nil, nil", blank, err)
	}
}
