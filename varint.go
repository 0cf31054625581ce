// Copyright 2013 Julien Schmidt. All rights reserved.
// http://www.julienschmidt.com
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package clickhouse

import "encoding/binary"

// maxVarintBytes bounds a varuint64 at the 10 bytes needed for a full
// 64-bit value in 7-bit groups (§4.B).
const maxVarintBytes = 10

// readVarUint64 decodes an unsigned LEB128-style varint: 7-bit groups,
// little-endian, high bit of each byte a continuation flag. It rejects any
// sequence that would need an 11th byte or whose 10th byte still has its
// continuation bit set, per spec.md's round-trip invariant.
func readVarUint64(r *readBuffer) (uint64, error) {
	var x uint64
	var s uint
	for i := 0; i < maxVarintBytes; i++ {
		b, err := r.readExact(1)
		if err != nil {
			return 0, err
		}
		c := b[0]
		if c < 0x80 {
			if i == maxVarintBytes-1 && c > 1 {
				return 0, newProtocolError("varuint64 overflow: final byte %#x exceeds u64 range", c)
			}
			return x | uint64(c)<<s, nil
		}
		x |= uint64(c&0x7f) << s
		s += 7
	}
	return 0, newProtocolError("varuint64 longer than %d bytes", maxVarintBytes)
}

// appendVarUint64 appends the minimal-length encoding of u to dst.
func appendVarUint64(dst []byte, u uint64) []byte {
	for u >= 0x80 {
		dst = append(dst, byte(u)|0x80)
		u >>= 7
	}
	return append(dst, byte(u))
}

func readUint8(r *readBuffer) (uint8, error) {
	b, err := r.readExact(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func readBool(r *readBuffer) (bool, error) {
	b, err := readUint8(r)
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

func readUint16(r *readBuffer) (uint16, error) {
	b, err := r.readExact(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func readUint32(r *readBuffer) (uint32, error) {
	b, err := r.readExact(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func readInt32(r *readBuffer) (int32, error) {
	u, err := readUint32(r)
	return int32(u), err
}

func readUint64(r *readBuffer) (uint64, error) {
	b, err := r.readExact(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// readString reads a varuint64 length prefix followed by that many raw
// bytes (§4.B).
func readString(r *readBuffer) (string, error) {
	n, err := readVarUint64(r)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	b, err := r.readExact(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func appendUint8(dst []byte, v uint8) []byte   { return append(dst, v) }
func appendBool(dst []byte, v bool) []byte {
	if v {
		return append(dst, 1)
	}
	return append(dst, 0)
}

func appendUint16(dst []byte, v uint16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return append(dst, b[:]...)
}

func appendUint32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

func appendInt32(dst []byte, v int32) []byte { return appendUint32(dst, uint32(v)) }

func appendUint64(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// appendString appends a varuint64 length prefix and the raw bytes of s.
func appendString(dst []byte, s string) []byte {
	dst = appendVarUint64(dst, uint64(len(s)))
	return append(dst, s...)
}
