// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package powmodule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// Export names of the wasm-bindgen build shipped with the web client.
const (
	DefaultMemoryExport      = "memory"
	DefaultAllocExport       = "__wbindgen_export_0"
	DefaultAdjustStackExport = "__wbindgen_add_to_stack_pointer"
	DefaultSolveExport       = "wasm_solve"
)

var (
	// ErrNoSolution is returned when the module reports status 0: no
	// answer exists within its internal search bound.
	ErrNoSolution = errors.New("powmodule: no solution within search bound")

	// ErrMalformedResult is returned when the result record does not
	// decode to a valid status and answer.
	ErrMalformedResult = errors.New("powmodule: malformed result record")

	// ErrClosed is returned by Compute after Close.
	ErrClosed = errors.New("powmodule: module closed")
)

// Exports names the module exports the bridge binds to. Empty fields
// take the Default*Export values.
type Exports struct {
	Memory      string
	Alloc       string
	AdjustStack string
	Solve       string
}

func (exports Exports) withDefaults() Exports {
	if exports.Memory == "" {
		exports.Memory = DefaultMemoryExport
	}
	if exports.Alloc == "" {
		exports.Alloc = DefaultAllocExport
	}
	if exports.AdjustStack == "" {
		exports.AdjustStack = DefaultAdjustStackExport
	}
	if exports.Solve == "" {
		exports.Solve = DefaultSolveExport
	}
	return exports
}

// Options configures Load.
type Options struct {
	// Exports overrides the export names. The zero value binds the
	// wasm-bindgen defaults.
	Exports Exports

	// Logger receives load and solve diagnostics. Nil uses
	// slog.Default().
	Logger *slog.Logger
}

// Input is the numeric work item handed to the module. Algorithm is
// carried for logging only: the module implements exactly one.
type Input struct {
	Algorithm  string
	Challenge  string
	Salt       string
	Difficulty int64
	ExpireAt   int64
}

// Prefix returns the salted prefix the module hashes in front of each
// candidate nonce. ExpireAt is formatted as a decimal integer.
func Prefix(salt string, expireAt int64) string {
	return fmt.Sprintf("%s_%d_", salt, expireAt)
}

// Module is a loaded hashing module. Safe for concurrent use: Compute
// calls are serialized.
type Module struct {
	mu     sync.Mutex
	closed bool

	runtime     wazero.Runtime
	instance    api.Module
	memory      api.Memory
	alloc       api.Function
	adjustStack api.Function
	solve       api.Function

	logger *slog.Logger
}

// Load compiles and instantiates wasm. A WASI preview1 host module is
// provided for builds that import it. Missing exports, compile
// failures, and instantiation failures are all fatal: the returned
// Module is nil.
func Load(ctx context.Context, wasm []byte, options Options) (*Module, error) {
	exports := options.Exports.withDefaults()
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	runtime := wazero.NewRuntime(ctx)
	fail := func(err error) (*Module, error) {
		runtime.Close(ctx)
		return nil, err
	}

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		return fail(fmt.Errorf("powmodule: instantiating WASI: %w", err))
	}

	compiled, err := runtime.CompileModule(ctx, wasm)
	if err != nil {
		return fail(fmt.Errorf("powmodule: compiling module: %w", err))
	}

	instance, err := runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName("powmodule"))
	if err != nil {
		return fail(fmt.Errorf("powmodule: instantiating module: %w", err))
	}

	module := &Module{
		runtime:  runtime,
		instance: instance,
		logger:   logger,
	}

	module.memory = instance.ExportedMemory(exports.Memory)
	if module.memory == nil {
		return fail(fmt.Errorf("powmodule: module does not export memory %q", exports.Memory))
	}

	functions := []struct {
		name   string
		target *api.Function
	}{
		{exports.Alloc, &module.alloc},
		{exports.AdjustStack, &module.adjustStack},
		{exports.Solve, &module.solve},
	}
	for _, function := range functions {
		exported := instance.ExportedFunction(function.name)
		if exported == nil {
			return fail(fmt.Errorf("powmodule: module does not export function %q", function.name))
		}
		*function.target = exported
	}

	logger.Info("hashing module loaded",
		"bytes", len(wasm),
		"memory_pages", module.memory.Size()/65536,
	)
	return module, nil
}

// Compute runs the solver for input and returns the integer answer.
// Returns ErrNoSolution when the module exhausted its search bound and
// ErrMalformedResult when the result record is not interpretable.
// The shadow stack reservation is released on every path, including
// failures partway through marshaling.
func (module *Module) Compute(ctx context.Context, input Input) (answer int64, err error) {
	module.mu.Lock()
	defer module.mu.Unlock()

	if module.closed {
		return 0, ErrClosed
	}

	start := time.Now()

	frame, err := module.reserve(ctx, resultRecordSize)
	if err != nil {
		return 0, err
	}
	defer func() {
		if releaseErr := frame.release(); releaseErr != nil && err == nil {
			answer, err = 0, releaseErr
		}
	}()

	challenge, err := module.writeString(ctx, input.Challenge)
	if err != nil {
		return 0, fmt.Errorf("powmodule: copying challenge: %w", err)
	}
	prefix, err := module.writeString(ctx, Prefix(input.Salt, input.ExpireAt))
	if err != nil {
		return 0, fmt.Errorf("powmodule: copying prefix: %w", err)
	}

	_, err = module.solve.Call(ctx,
		api.EncodeU32(frame.pointer),
		api.EncodeU32(challenge.pointer),
		api.EncodeU32(challenge.length),
		api.EncodeU32(prefix.pointer),
		api.EncodeU32(prefix.length),
		api.EncodeF64(float64(input.Difficulty)),
	)
	if err != nil {
		return 0, fmt.Errorf("powmodule: calling solve: %w", err)
	}

	answer, err = module.readResult(frame.pointer)
	module.logger.Debug("proof-of-work computed",
		"algorithm", input.Algorithm,
		"difficulty", input.Difficulty,
		"duration", time.Since(start),
		"solved", err == nil,
	)
	return answer, err
}

// Close releases the runtime and all module memory. Idempotent.
func (module *Module) Close(ctx context.Context) error {
	module.mu.Lock()
	defer module.mu.Unlock()

	if module.closed {
		return nil
	}
	module.closed = true
	return module.runtime.Close(ctx)
}
