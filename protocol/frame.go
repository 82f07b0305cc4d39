// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Resumable WebSocket frame parser. Input arrives as arbitrary, unaligned
// chunks; the parser keeps its cursor between calls so a frame (or any
// field inside it) may be split across any number of chunks.

package protocol

// Frame is one decoded wire unit. Payload is already unmasked.
type Frame struct {
	Fin     bool
	OpCode  OpCode
	Masked  bool
	Payload []byte
}

// Header describes the frame currently being read, once its length is known.
type Header struct {
	Fin        bool
	OpCode     OpCode
	Masked     bool
	PayloadLen uint64
}

type parserState uint8

const (
	stateAwaitingHeader parserState = iota
	stateHaveFinOpcode
	stateAwaitingExtendedLength
	stateAwaitingMaskKey
	stateAwaitingPayload
)

func (s parserState) String() string {
	switch s {
	case stateAwaitingHeader:
		return "awaiting_header"
	case stateHaveFinOpcode:
		return "have_fin_opcode"
	case stateAwaitingExtendedLength:
		return "awaiting_extended_length"
	case stateAwaitingMaskKey:
		return "awaiting_mask_key"
	case stateAwaitingPayload:
		return "awaiting_payload"
	default:
		return "unknown"
	}
}

// payloadPrealloc caps the capacity reserved up front for a payload so a
// forged 64-bit length cannot force a large allocation.
const payloadPrealloc = 64 * 1024

// FrameParser is a pure state machine: no I/O, no limits, opcode-agnostic.
// The zero value is ready to use.
type FrameParser struct {
	state parserState

	fin        bool
	opcode     OpCode
	masked     bool
	lenNeeded  int // extended length bytes still to read
	payloadLen uint64
	maskKey    [MaskKeyLen]byte
	maskRead   int
	payload    []byte
}

// Advance consumes at most one state transition's worth of buf and returns
// the number of bytes consumed plus the frame completed by this step, if any.
// Callers loop over the remainder until buf is exhausted.
func (p *FrameParser) Advance(buf []byte) (int, *Frame) {
	if len(buf) == 0 {
		return 0, nil
	}

	switch p.state {
	case stateAwaitingHeader:
		p.fin = buf[0]&FinBit != 0
		p.opcode = OpCode(buf[0] & opcodeMask)
		p.state = stateHaveFinOpcode
		return 1, nil

	case stateHaveFinOpcode:
		p.masked = buf[0]&MaskBit != 0
		switch code := buf[0] & lengthMask; code {
		case len16Code:
			p.lenNeeded = 2
		case len64Code:
			p.lenNeeded = 8
		default:
			return p.donePayloadLength(1, uint64(code))
		}
		p.payloadLen = 0
		p.state = stateAwaitingExtendedLength
		return 1, nil

	case stateAwaitingExtendedLength:
		n := min(len(buf), p.lenNeeded)
		for _, b := range buf[:n] {
			p.payloadLen = p.payloadLen<<8 | uint64(b)
		}
		p.lenNeeded -= n
		if p.lenNeeded > 0 {
			return n, nil
		}
		return p.donePayloadLength(n, p.payloadLen)

	case stateAwaitingMaskKey:
		n := copy(p.maskKey[p.maskRead:], buf)
		p.maskRead += n
		if p.maskRead < MaskKeyLen {
			return n, nil
		}
		if p.payloadLen == 0 {
			return n, p.complete()
		}
		p.beginPayload()
		return n, nil

	case stateAwaitingPayload:
		need := p.payloadLen - uint64(len(p.payload))
		n := len(buf)
		if uint64(n) > need {
			n = int(need)
		}
		start := len(p.payload)
		p.payload = append(p.payload, buf[:n]...)
		if p.masked {
			for i := start; i < len(p.payload); i++ {
				p.payload[i] ^= p.maskKey[i%MaskKeyLen]
			}
		}
		if uint64(len(p.payload)) < p.payloadLen {
			return n, nil
		}
		return n, p.complete()
	}
	return 0, nil
}

func (p *FrameParser) donePayloadLength(consumed int, length uint64) (int, *Frame) {
	p.payloadLen = length
	switch {
	case p.masked:
		p.maskRead = 0
		p.state = stateAwaitingMaskKey
		return consumed, nil
	case length == 0:
		return consumed, p.complete()
	default:
		p.beginPayload()
		return consumed, nil
	}
}

func (p *FrameParser) beginPayload() {
	p.payload = make([]byte, 0, min(p.payloadLen, payloadPrealloc))
	p.state = stateAwaitingPayload
}

func (p *FrameParser) complete() *Frame {
	f := &Frame{
		Fin:     p.fin,
		OpCode:  p.opcode,
		Masked:  p.masked,
		Payload: p.payload,
	}
	if f.Payload == nil {
		f.Payload = []byte{}
	}
	p.Reset()
	return f
}

// Header returns the in-progress frame's header once its payload length has
// been read, and false before that point or between frames.
func (p *FrameParser) Header() (Header, bool) {
	if p.state != stateAwaitingMaskKey && p.state != stateAwaitingPayload {
		return Header{}, false
	}
	return Header{
		Fin:        p.fin,
		OpCode:     p.opcode,
		Masked:     p.masked,
		PayloadLen: p.payloadLen,
	}, true
}

// Idle reports whether the parser sits on a frame boundary.
func (p *FrameParser) Idle() bool {
	return p.state == stateAwaitingHeader
}

// Reset discards any partial frame.
func (p *FrameParser) Reset() {
	*p = FrameParser{}
}
