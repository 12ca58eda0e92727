// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package powmodule

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/tetratelabs/wazero/api"
)

const initialStackPointer = 65536

func loadTestModule(t *testing.T) *Module {
	t.Helper()
	ctx := context.Background()
	module, err := Load(ctx, buildTestModule(DefaultSolveExport), Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	t.Cleanup(func() { module.Close(ctx) })
	return module
}

func stackPointer(t *testing.T, module *Module) uint32 {
	t.Helper()
	global := module.instance.ExportedGlobal("__stack_pointer")
	if global == nil {
		t.Fatal("test module does not export __stack_pointer")
	}
	return api.DecodeU32(global.Get())
}

func TestPrefix(t *testing.T) {
	t.Parallel()

	if got := Prefix("abc123", 1700000000); got != "abc123_1700000000_" {
		t.Errorf("Prefix = %q, want %q", got, "abc123_1700000000_")
	}
	if got := Prefix("", 0); got != "_0_" {
		t.Errorf("Prefix empty = %q, want %q", got, "_0_")
	}
}

func TestComputeSolved(t *testing.T) {
	t.Parallel()
	module := loadTestModule(t)

	answer, err := module.Compute(context.Background(), Input{
		Algorithm:  "DeepSeekHashV1",
		Challenge:  "abc",
		Salt:       "salt",
		Difficulty: 144000,
		ExpireAt:   1700000000,
	})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	// 'a'*100000 + len("abc")*1000 + len("salt_1700000000_") + 144000
	const want = 97*100000 + 3*1000 + 16 + 144000
	if answer != want {
		t.Errorf("answer = %d, want %d", answer, want)
	}
	if sp := stackPointer(t, module); sp != initialStackPointer {
		t.Errorf("stack pointer = %d after Compute, want %d", sp, initialStackPointer)
	}
}

func TestComputeNoSolution(t *testing.T) {
	t.Parallel()
	module := loadTestModule(t)

	_, err := module.Compute(context.Background(), Input{
		Challenge:  "abc",
		Salt:       "salt",
		Difficulty: 0,
		ExpireAt:   1,
	})
	if !errors.Is(err, ErrNoSolution) {
		t.Fatalf("Compute error = %v, want ErrNoSolution", err)
	}
	if sp := stackPointer(t, module); sp != initialStackPointer {
		t.Errorf("stack pointer = %d after unsolved Compute, want %d", sp, initialStackPointer)
	}
}

func TestComputeRejectsNegativeAnswer(t *testing.T) {
	t.Parallel()
	module := loadTestModule(t)

	_, err := module.Compute(context.Background(), Input{
		Challenge:  "abc",
		Salt:       "salt",
		Difficulty: -1_000_000_000,
		ExpireAt:   1,
	})
	if !errors.Is(err, ErrMalformedResult) {
		t.Fatalf("Compute error = %v, want ErrMalformedResult", err)
	}
	if sp := stackPointer(t, module); sp != initialStackPointer {
		t.Errorf("stack pointer = %d after malformed Compute, want %d", sp, initialStackPointer)
	}
}

func TestReadResultStatus(t *testing.T) {
	t.Parallel()
	module := loadTestModule(t)

	// Scratch space below the initial stack pointer, unused between
	// calls.
	const pointer = initialStackPointer - 1024
	tests := []struct {
		name    string
		status  int32
		want    int64
		wantErr error
	}{
		{"unsolved", 0, 0, ErrNoSolution},
		{"solved", 1, 1234, nil},
		{"unknown status", 2, 0, ErrMalformedResult},
		{"negative status", -1, 0, ErrMalformedResult},
	}
	for _, test := range tests {
		record := make([]byte, resultRecordSize)
		binary.LittleEndian.PutUint32(record[0:4], uint32(test.status))
		binary.LittleEndian.PutUint64(record[8:16], math.Float64bits(1234.9))
		if !module.memory.Write(pointer, record) {
			t.Fatalf("%s: writing record out of bounds", test.name)
		}

		answer, err := module.readResult(pointer)
		if test.wantErr != nil {
			if !errors.Is(err, test.wantErr) {
				t.Errorf("%s: readResult error = %v, want %v", test.name, err, test.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: readResult: %v", test.name, err)
			continue
		}
		if answer != test.want {
			t.Errorf("%s: answer = %d, want %d", test.name, answer, test.want)
		}
	}
}

func TestComputeRepeatable(t *testing.T) {
	t.Parallel()
	module := loadTestModule(t)

	input := Input{Challenge: "z", Salt: "s", Difficulty: 1, ExpireAt: 42}
	const want = 'z'*100000 + 1*1000 + int64(len("s_42_")) + 1

	for iteration := range 20 {
		answer, err := module.Compute(context.Background(), input)
		if err != nil {
			t.Fatalf("iteration %d: Compute: %v", iteration, err)
		}
		if answer != want {
			t.Fatalf("iteration %d: answer = %d, want %d", iteration, answer, want)
		}
	}
	if sp := stackPointer(t, module); sp != initialStackPointer {
		t.Errorf("stack pointer = %d after 20 calls, want %d", sp, initialStackPointer)
	}
}

func TestComputeRestoresStackWhenCopyFails(t *testing.T) {
	t.Parallel()
	module := loadTestModule(t)

	// The test allocator hands out the module's last 64 KiB page, so a
	// 1 MiB challenge cannot be copied in.
	_, err := module.Compute(context.Background(), Input{
		Challenge:  strings.Repeat("x", 1<<20),
		Salt:       "salt",
		Difficulty: 1,
		ExpireAt:   1,
	})
	if err == nil {
		t.Fatal("Compute succeeded with a challenge larger than module memory")
	}
	if !strings.Contains(err.Error(), "copying challenge") {
		t.Errorf("Compute error = %v, want a copy failure", err)
	}
	if sp := stackPointer(t, module); sp != initialStackPointer {
		t.Errorf("stack pointer = %d after failed copy, want %d", sp, initialStackPointer)
	}
}

func TestComputeConcurrent(t *testing.T) {
	t.Parallel()
	module := loadTestModule(t)

	const workers = 8
	var waitGroup sync.WaitGroup
	errs := make(chan error, workers)
	answers := make(chan int64, workers)

	for range workers {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			answer, err := module.Compute(context.Background(), Input{
				Challenge: "b", Salt: "x", Difficulty: 5, ExpireAt: 7,
			})
			if err != nil {
				errs <- err
				return
			}
			answers <- answer
		}()
	}
	waitGroup.Wait()
	close(errs)
	close(answers)

	for err := range errs {
		t.Errorf("concurrent Compute: %v", err)
	}
	const want = 'b'*100000 + 1*1000 + int64(len("x_7_")) + 5
	for answer := range answers {
		if answer != want {
			t.Errorf("concurrent answer = %d, want %d", answer, want)
		}
	}
	if sp := stackPointer(t, module); sp != initialStackPointer {
		t.Errorf("stack pointer = %d after concurrent calls, want %d", sp, initialStackPointer)
	}
}

func TestComputeAfterClose(t *testing.T) {
	t.Parallel()
	module := loadTestModule(t)

	if err := module.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := module.Close(context.Background()); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	_, err := module.Compute(context.Background(), Input{Challenge: "a", Difficulty: 1})
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Compute after Close = %v, want ErrClosed", err)
	}
}

func TestLoadMissingExport(t *testing.T) {
	t.Parallel()

	_, err := Load(context.Background(), buildTestModule("renamed_solve"), Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err == nil {
		t.Fatal("Load succeeded without a solve export")
	}
}

func TestLoadCustomExportNames(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	module, err := Load(ctx, buildTestModule("renamed_solve"), Options{
		Exports: Exports{Solve: "renamed_solve"},
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer module.Close(ctx)

	if _, err := module.Compute(ctx, Input{Challenge: "a", Salt: "s", Difficulty: 1, ExpireAt: 1}); err != nil {
		t.Errorf("Compute with renamed export: %v", err)
	}
}

func TestLoadCorruptBinary(t *testing.T) {
	t.Parallel()

	wasm := buildTestModule(DefaultSolveExport)
	_, err := Load(context.Background(), wasm[:len(wasm)-5], Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err == nil {
		t.Fatal("Load succeeded on a truncated binary")
	}
}
