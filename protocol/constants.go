// Package protocol
// Author: momentics <momentics@gmail.com>
//
// WebSocket wire protocol constants

package protocol

import "fmt"

// OpCode is the 4-bit frame type carried in the low nibble of byte 0.
type OpCode byte

const (
	OpContinuation OpCode = 0x0
	OpText         OpCode = 0x1
	OpBinary       OpCode = 0x2
	OpClose        OpCode = 0x8
	OpPing         OpCode = 0x9
	OpPong         OpCode = 0xA
)

// IsControl reports whether op is a control opcode (0x8-0xF).
func (op OpCode) IsControl() bool {
	return op&0x08 != 0
}

// IsReserved reports whether op is not defined by RFC 6455.
func (op OpCode) IsReserved() bool {
	switch op {
	case OpContinuation, OpText, OpBinary, OpClose, OpPing, OpPong:
		return false
	default:
		return true
	}
}

func (op OpCode) String() string {
	switch op {
	case OpContinuation:
		return "continuation"
	case OpText:
		return "text"
	case OpBinary:
		return "binary"
	case OpClose:
		return "close"
	case OpPing:
		return "ping"
	case OpPong:
		return "pong"
	default:
		return fmt.Sprintf("reserved(0x%x)", byte(op))
	}
}

const (
	// Bit masks
	FinBit     = 0x80
	MaskBit    = 0x80
	opcodeMask = 0x0F
	lengthMask = 0x7F

	// Length codes in the second header byte.
	len16Code = 126
	len64Code = 127

	MaskKeyLen        = 4
	MaxFrameHeaderLen = 14 // 2 + 8 extended length + 4 mask key

	// DefaultMaxMessageSize bounds a reassembled message (all fragments).
	DefaultMaxMessageSize = 1 << 20 // 1 MiB

	// Close codes
	CloseNormalClosure      = 1000
	CloseGoingAway          = 1001
	CloseProtocolError      = 1002
	CloseNoStatusRcvd       = 1005
	CloseInvalidPayloadData = 1007
	CloseMessageTooBig      = 1009
)
