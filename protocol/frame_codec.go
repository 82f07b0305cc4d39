// File: protocol/frame_codec.go
// Package protocol implements the outbound frame encoder.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server-to-client frames are never masked. The masked variant exists for
// client roles and tests that need to produce browser-shaped input.

package protocol

import (
	"encoding/binary"
	"unicode/utf8"
)

// EncodeFrame serializes a single final, unmasked frame.
func EncodeFrame(op OpCode, payload []byte) []byte {
	return AppendFrame(make([]byte, 0, MaxFrameHeaderLen+len(payload)), true, op, payload)
}

// AppendFrame appends an unmasked frame to dst.
func AppendFrame(dst []byte, fin bool, op OpCode, payload []byte) []byte {
	dst = appendHeader(dst, fin, op, false, len(payload))
	return append(dst, payload...)
}

// AppendMaskedFrame appends a frame masked with key to dst.
func AppendMaskedFrame(dst []byte, fin bool, op OpCode, payload []byte, key [MaskKeyLen]byte) []byte {
	dst = appendHeader(dst, fin, op, true, len(payload))
	dst = append(dst, key[:]...)
	start := len(dst)
	dst = append(dst, payload...)
	for i := start; i < len(dst); i++ {
		dst[i] ^= key[(i-start)%MaskKeyLen]
	}
	return dst
}

func appendHeader(dst []byte, fin bool, op OpCode, masked bool, n int) []byte {
	var b0 byte
	if fin {
		b0 = FinBit
	}
	b0 |= byte(op) & opcodeMask

	var maskBit byte
	if masked {
		maskBit = MaskBit
	}

	switch {
	case n < len16Code:
		return append(dst, b0, byte(n)|maskBit)
	case n < 1<<16:
		dst = append(dst, b0, len16Code|maskBit)
		return binary.BigEndian.AppendUint16(dst, uint16(n))
	default:
		dst = append(dst, b0, len64Code|maskBit)
		return binary.BigEndian.AppendUint64(dst, uint64(n))
	}
}

// EncodeClosePayload builds a Close frame body: status code then reason.
// Reasons longer than the 125-byte control limit are truncated on a rune boundary.
func EncodeClosePayload(code uint16, reason string) []byte {
	const maxReason = 125 - 2
	for len(reason) > maxReason {
		_, size := utf8.DecodeLastRuneInString(reason)
		reason = reason[:len(reason)-size]
	}
	buf := binary.BigEndian.AppendUint16(make([]byte, 0, 2+len(reason)), code)
	return append(buf, reason...)
}

// ParseClosePayload splits a Close frame body. A body without a status
// reports CloseNoStatusRcvd with ok false.
func ParseClosePayload(payload []byte) (code uint16, reason string, ok bool) {
	if len(payload) < 2 {
		return CloseNoStatusRcvd, "", false
	}
	return binary.BigEndian.Uint16(payload), string(payload[2:]), true
}
