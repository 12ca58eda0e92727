// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package powmodule

// Hand-assembled WebAssembly binary implementing the bridge's calling
// convention with a deterministic "solver":
//
//	stack pointer global starts at 65536 and is exported as
//	  __stack_pointer so tests can check it is restored;
//	alloc is a bump allocator starting at 65536 (second page);
//	solve writes status 0 when difficulty == 0, otherwise status 1 and
//	  answer = challenge[0]*100000 + len(challenge)*1000 +
//	  len(prefix) + difficulty.

const (
	wasmI32 = 0x7f
	wasmF64 = 0x7c
)

func uleb128(value int) []byte {
	var out []byte
	for {
		b := byte(value & 0x7f)
		value >>= 7
		if value != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func concatBytes(parts ...[]byte) []byte {
	var out []byte
	for _, part := range parts {
		out = append(out, part...)
	}
	return out
}

func wasmSection(id byte, payload []byte) []byte {
	return concatBytes([]byte{id}, uleb128(len(payload)), payload)
}

func wasmVector(items ...[]byte) []byte {
	return concatBytes(uleb128(len(items)), concatBytes(items...))
}

func wasmName(name string) []byte {
	return concatBytes(uleb128(len(name)), []byte(name))
}

func wasmBody(code ...byte) []byte {
	return concatBytes(uleb128(len(code)), code)
}

// buildTestModule assembles the test module, exporting the solver
// under solveExport.
func buildTestModule(solveExport string) []byte {
	header := []byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00}

	types := wasmSection(1, wasmVector(
		[]byte{0x60, 0x01, wasmI32, 0x01, wasmI32},
		[]byte{0x60, 0x02, wasmI32, wasmI32, 0x01, wasmI32},
		[]byte{0x60, 0x06, wasmI32, wasmI32, wasmI32, wasmI32, wasmI32, wasmF64, 0x00},
	))
	functions := wasmSection(3, wasmVector([]byte{0}, []byte{1}, []byte{2}))
	memory := wasmSection(5, wasmVector([]byte{0x00, 0x02}))

	// Both globals: mutable i32 initialized to i32.const 65536.
	globals := wasmSection(6, wasmVector(
		[]byte{wasmI32, 0x01, 0x41, 0x80, 0x80, 0x04, 0x0b},
		[]byte{wasmI32, 0x01, 0x41, 0x80, 0x80, 0x04, 0x0b},
	))

	exports := wasmSection(7, wasmVector(
		append(wasmName("memory"), 0x02, 0x00),
		append(wasmName(DefaultAdjustStackExport), 0x00, 0x00),
		append(wasmName(DefaultAllocExport), 0x00, 0x01),
		append(wasmName(solveExport), 0x00, 0x02),
		append(wasmName("__stack_pointer"), 0x03, 0x00),
	))

	adjustStack := wasmBody(
		0x00,       // no locals
		0x23, 0x00, // global.get sp
		0x20, 0x00, // local.get delta
		0x6a,       // i32.add
		0x24, 0x00, // global.set sp
		0x23, 0x00, // global.get sp
		0x0b,
	)
	alloc := wasmBody(
		0x00,
		0x23, 0x01, // global.get heap (return value)
		0x23, 0x01, // global.get heap
		0x20, 0x00, // local.get length
		0x6a,       // i32.add
		0x24, 0x01, // global.set heap
		0x0b,
	)
	solve := wasmBody(
		0x00,
		0x20, 0x05, // local.get difficulty
		0x44, 0, 0, 0, 0, 0, 0, 0, 0, // f64.const 0
		0x61,       // f64.eq
		0x04, 0x40, // if
		0x20, 0x00, // local.get ret
		0x41, 0x00, // i32.const 0
		0x36, 0x02, 0x00, // i32.store
		0x0f, // return
		0x0b, // end
		0x20, 0x00, // local.get ret
		0x41, 0x01, // i32.const 1
		0x36, 0x02, 0x00, // i32.store
		0x20, 0x00, // local.get ret
		0x20, 0x01, // local.get challenge_ptr
		0x2d, 0x00, 0x00, // i32.load8_u
		0x41, 0xa0, 0x8d, 0x06, // i32.const 100000
		0x6c,       // i32.mul
		0x20, 0x02, // local.get challenge_len
		0x41, 0xe8, 0x07, // i32.const 1000
		0x6c,       // i32.mul
		0x6a,       // i32.add
		0x20, 0x04, // local.get prefix_len
		0x6a,       // i32.add
		0xb8,       // f64.convert_i32_u
		0x20, 0x05, // local.get difficulty
		0xa0,             // f64.add
		0x39, 0x03, 0x08, // f64.store offset=8
		0x0b,
	)
	code := wasmSection(10, wasmVector(adjustStack, alloc, solve))

	return concatBytes(header, types, functions, memory, globals, exports, code)
}
