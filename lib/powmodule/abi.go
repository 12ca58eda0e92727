// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package powmodule

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/tetratelabs/wazero/api"
)

// resultRecordSize is the size of the record solve writes at its
// return pointer: i32 status, 4 bytes padding, f64 answer.
const resultRecordSize = 16

// Status values in the first word of the result record.
const (
	statusUnsolved = 0
	statusSolved   = 1
)

// stackFrame is scratch space reserved on the module's shadow stack.
// It must be released exactly once.
type stackFrame struct {
	module  *Module
	pointer uint32
	size    int32
}

// reserve moves the module's stack pointer down by size bytes and
// returns the new stack pointer as the frame base.
func (module *Module) reserve(ctx context.Context, size int32) (*stackFrame, error) {
	pointer, err := module.addToStackPointer(ctx, -size)
	if err != nil {
		return nil, fmt.Errorf("powmodule: reserving %d stack bytes: %w", size, err)
	}
	return &stackFrame{module: module, pointer: pointer, size: size}, nil
}

// release restores the stack pointer. It runs under
// context.Background so a cancelled caller still restores it.
func (frame *stackFrame) release() error {
	if _, err := frame.module.addToStackPointer(context.Background(), frame.size); err != nil {
		return fmt.Errorf("powmodule: releasing %d stack bytes: %w", frame.size, err)
	}
	return nil
}

func (module *Module) addToStackPointer(ctx context.Context, delta int32) (uint32, error) {
	results, err := module.adjustStack.Call(ctx, api.EncodeI32(delta))
	if err != nil {
		return 0, err
	}
	if len(results) != 1 {
		return 0, fmt.Errorf("stack adjuster returned %d values, want 1", len(results))
	}
	return api.DecodeU32(results[0]), nil
}

// region is a (pointer, length) pair in module memory.
type region struct {
	pointer uint32
	length  uint32
}

// writeString copies the UTF-8 bytes of text into freshly allocated
// module memory. Allocations are never freed; each solve leaks two
// strings of a few dozen bytes.
func (module *Module) writeString(ctx context.Context, text string) (region, error) {
	encoded := []byte(text)
	length := uint32(len(encoded))

	results, err := module.alloc.Call(ctx, api.EncodeU32(length), api.EncodeU32(1))
	if err != nil {
		return region{}, fmt.Errorf("allocating %d bytes: %w", length, err)
	}
	if len(results) != 1 {
		return region{}, fmt.Errorf("allocator returned %d values, want 1", len(results))
	}
	pointer := api.DecodeU32(results[0])

	if !module.memory.Write(pointer, encoded) {
		return region{}, fmt.Errorf("writing %d bytes at %#x: out of bounds", length, pointer)
	}
	return region{pointer: pointer, length: length}, nil
}

// readResult decodes the record solve wrote at pointer.
func (module *Module) readResult(pointer uint32) (int64, error) {
	record, ok := module.memory.Read(pointer, resultRecordSize)
	if !ok {
		return 0, fmt.Errorf("%w: record at %#x is out of bounds", ErrMalformedResult, pointer)
	}

	// The status word is the discriminant of the Option<f64> that
	// wasm-bindgen returns through retptr: 0 is None and 1 is Some. Any
	// other value means the record is not what the module was built to
	// write.
	status := int32(binary.LittleEndian.Uint32(record[0:4]))
	switch status {
	case statusUnsolved:
		return 0, ErrNoSolution
	case statusSolved:
	default:
		return 0, fmt.Errorf("%w: status %d", ErrMalformedResult, status)
	}

	value := math.Float64frombits(binary.LittleEndian.Uint64(record[8:16]))
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 || value >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: answer %v", ErrMalformedResult, value)
	}
	return int64(value), nil
}
