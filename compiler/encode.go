package compiler

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/cao-lang/cao-lang-go/caoerr"
	"github.com/cao-lang/cao-lang-go/ir"
)

// magic identifies a persisted CompiledProgram; version allows the layout
// to evolve without silently misreading an older payload.
var magic = [4]byte{'C', 'A', 'O', 'L'}

const formatVersion uint16 = 1

// Encode serializes p into the persistable layout from spec.md section 6:
//
//	magic(4) | version(u16) | hash(16) |
//	n_strings(u32) | strings(len-prefixed UTF-8)* |
//	n_labels(u32)  | labels{card_index(string key) -> offset(u32)}* |
//	n_funcs(u32)   | functions{qualified_name(string) -> entry(u32), arity(u32), frame_size(u32)}* |
//	n_bytes(u32)   | bytecode
//
// The function table is an addition beyond the minimal layout sketched in
// spec.md: it is required for a decoded CompiledProgram to support
// MainEntry/Jump resolution without re-compiling, which section 6 demands
// ("must be persistable and reloadable yielding an equal hash").
func Encode(p *CompiledProgram) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(magic[:])
	writeU16(&buf, formatVersion)
	buf.Write(p.Hash[:])

	writeU32(&buf, uint32(len(p.InternedStrings)))
	for _, s := range p.InternedStrings {
		writeString(&buf, s)
	}

	writeU32(&buf, uint32(len(p.Labels)))
	for key, off := range p.Labels {
		writeString(&buf, key)
		writeU32(&buf, off)
	}

	writeU32(&buf, uint32(len(p.Functions)))
	for name, info := range p.Functions {
		writeString(&buf, name)
		writeU32(&buf, info.Entry)
		writeU32(&buf, uint32(info.Arity))
		writeU32(&buf, info.FrameSize)
	}

	writeU32(&buf, uint32(len(p.Bytecode)))
	buf.Write(p.Bytecode)
	return buf.Bytes(), nil
}

// Decode inverts Encode. The returned program's Hash is taken from the
// payload directly (not recomputed), so a corrupted payload that still
// parses structurally will only be caught by a caller comparing the
// decoded Hash against an independently compiled one.
func Decode(data []byte) (*CompiledProgram, error) {
	r := bytes.NewReader(data)

	var gotMagic [4]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil {
		return nil, badInput("magic", err)
	}
	if gotMagic != magic {
		return nil, badInput("magic", fmt.Errorf("got %q", gotMagic))
	}
	version, err := readU16(r)
	if err != nil {
		return nil, badInput("version", err)
	}
	if version != formatVersion {
		return nil, badInput("version", fmt.Errorf("unsupported version %d", version))
	}

	p := &CompiledProgram{
		Labels:    make(map[string]uint32),
		Functions: make(map[string]FuncInfo),
	}
	if _, err := io.ReadFull(r, p.Hash[:]); err != nil {
		return nil, badInput("hash", err)
	}

	nStrings, err := readU32(r)
	if err != nil {
		return nil, badInput("n_strings", err)
	}
	p.InternedStrings = make([]string, nStrings)
	for i := range p.InternedStrings {
		s, err := readString(r)
		if err != nil {
			return nil, badInput("strings", err)
		}
		p.InternedStrings[i] = s
	}

	nLabels, err := readU32(r)
	if err != nil {
		return nil, badInput("n_labels", err)
	}
	for i := uint32(0); i < nLabels; i++ {
		key, err := readString(r)
		if err != nil {
			return nil, badInput("labels", err)
		}
		off, err := readU32(r)
		if err != nil {
			return nil, badInput("labels", err)
		}
		if _, ok := ir.ParseKey(key); !ok {
			return nil, badInput("labels", fmt.Errorf("malformed card index key %q", key))
		}
		p.Labels[key] = off
	}

	nFuncs, err := readU32(r)
	if err != nil {
		return nil, badInput("n_funcs", err)
	}
	for i := uint32(0); i < nFuncs; i++ {
		name, err := readString(r)
		if err != nil {
			return nil, badInput("functions", err)
		}
		entry, err := readU32(r)
		if err != nil {
			return nil, badInput("functions", err)
		}
		arity, err := readU32(r)
		if err != nil {
			return nil, badInput("functions", err)
		}
		frameSize, err := readU32(r)
		if err != nil {
			return nil, badInput("functions", err)
		}
		p.Functions[name] = FuncInfo{Entry: entry, Arity: int(arity), FrameSize: frameSize}
	}

	nBytes, err := readU32(r)
	if err != nil {
		return nil, badInput("n_bytes", err)
	}
	p.Bytecode = make([]byte, nBytes)
	if _, err := io.ReadFull(r, p.Bytecode); err != nil {
		return nil, badInput("bytecode", err)
	}

	// Rebuild the derived, unexported indexes Compile computes eagerly
	// (see program.go): a decoded program must support FuncAt/CardAt just
	// as well as a freshly compiled one, or every CallStatic/Call in a
	// reloaded program would fail to resolve.
	p.entryIndex = make(map[uint32]FuncInfo, len(p.Functions))
	for _, info := range p.Functions {
		p.entryIndex[info.Entry] = info
	}
	p.sortedLabels = make([]cardLabel, 0, len(p.Labels))
	for key, off := range p.Labels {
		idx, ok := ir.ParseKey(key)
		if !ok {
			continue
		}
		p.sortedLabels = append(p.sortedLabels, cardLabel{Offset: off, Index: idx})
	}
	sort.Slice(p.sortedLabels, func(i, j int) bool { return p.sortedLabels[i].Offset < p.sortedLabels[j].Offset })

	return p, nil
}

func badInput(field string, err error) error {
	return caoerr.NewBadInput(fmt.Sprintf("decode %s: %v", field, err))
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeString(buf *bytes.Buffer, s string) {
	writeU32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func readU16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func readU32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readString(r io.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
