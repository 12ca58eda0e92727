// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package powmodule hosts the precompiled WebAssembly hashing module
// that answers proof-of-work challenges, and owns every byte of memory
// marshaling across its boundary.
//
// The module is a wasm-bindgen build with a fixed, undocumented
// calling convention. [Module.Compute] drives it in five steps:
//
//  1. Reserve a 16-byte result record on the module's shadow stack
//     (add_to_stack_pointer(-16)). The reservation is released with
//     add_to_stack_pointer(+16) on every exit path.
//  2. Copy the challenge string and the "{salt}_{expire_at}_" prefix
//     into memory obtained from the module's allocator.
//  3. Call solve(ret, challenge_ptr, challenge_len, prefix_ptr,
//     prefix_len, difficulty as f64).
//  4. Read the record: bytes [0:4] are a little-endian i32 status,
//     bytes [8:16] a little-endian f64 answer.
//  5. Status 0 means the module's search bound was exhausted
//     ([ErrNoSolution]); status 1 means the answer is valid. Anything
//     else, and any answer that is not a finite non-negative integer,
//     is [ErrMalformedResult].
//
// The shadow stack and the allocator are process-global state inside
// the module instance, so interleaved calls would corrupt each other's
// scratch region. Module serializes Compute with a mutex; callers that
// need parallel solving load one Module per worker.
//
// [ReadModuleFile] loads the binary from disk, transparently
// decompressing zstd-compressed files and verifying an optional BLAKE3
// digest pin before anything is compiled.
package powmodule
