// Package adapters
// Author: momentics <momentics@gmail.com>
//
// Reassembly of fragmented data messages.

package adapters

import (
	"unicode/utf8"

	"github.com/momentics/grainws/api"
	"github.com/momentics/grainws/protocol"
)

type accKind uint8

const (
	accEmpty accKind = iota
	accText
	accBinary
)

// accumulator merges a Text/Binary frame and its Continuation frames into
// one message. Text is validated as it arrives; only a trailing partial
// code point may stay unchecked until the next fragment.
type accumulator struct {
	kind      accKind
	buf       []byte
	validated int
	limit     int
}

func newAccumulator(limit int) accumulator {
	return accumulator{limit: limit}
}

func (a *accumulator) empty() bool { return a.kind == accEmpty }

func (a *accumulator) len() int { return len(a.buf) }

// start seeds the accumulator with the first fragment of a message.
func (a *accumulator) start(typ api.MessageType, payload []byte) error {
	if !a.empty() {
		return api.ProtocolViolation("new %s message started while a fragmented message is in progress", typ)
	}
	a.kind = accBinary
	if typ == api.TextMessage {
		a.kind = accText
	}
	a.buf = a.buf[:0]
	a.validated = 0
	return a.append(payload)
}

// append adds a continuation fragment.
func (a *accumulator) append(payload []byte) error {
	if a.empty() {
		return errOrphanContinuation()
	}
	if len(a.buf)+len(payload) > a.limit {
		size := len(a.buf) + len(payload)
		a.reset()
		return tooBig(size, a.limit)
	}
	a.buf = append(a.buf, payload...)
	if a.kind == accText {
		n, ok := validUTF8Prefix(a.buf[a.validated:])
		if !ok {
			a.reset()
			return api.ProtocolViolation("invalid UTF-8 in text message").
				WithContext(closeCodeKey, protocol.CloseInvalidPayloadData)
		}
		a.validated += n
	}
	return nil
}

// finish returns the completed message and empties the accumulator.
func (a *accumulator) finish() (api.Message, error) {
	if a.empty() {
		return api.Message{}, api.ProtocolViolation("final fragment received with no message in progress")
	}
	if a.kind == accText && a.validated != len(a.buf) {
		a.reset()
		return api.Message{}, api.ProtocolViolation("text message ends inside a UTF-8 sequence").
			WithContext(closeCodeKey, protocol.CloseInvalidPayloadData)
	}
	msg := api.Message{Type: api.BinaryMessage, Payload: a.buf}
	if a.kind == accText {
		msg.Type = api.TextMessage
	}
	// The payload escapes to the handler; never reuse its backing array.
	a.buf = nil
	a.kind = accEmpty
	a.validated = 0
	return msg, nil
}

func (a *accumulator) reset() {
	a.kind = accEmpty
	a.buf = nil
	a.validated = 0
}

func tooBig(size, limit int) *api.Error {
	return api.ProtocolViolation("message of %d bytes exceeds the %d byte limit", size, limit).
		WithContext(closeCodeKey, protocol.CloseMessageTooBig)
}

// validUTF8Prefix returns the length of the longest valid prefix of b and
// false if b holds an invalid sequence. An incomplete sequence at the very
// end is not an error: it is left for the next fragment.
func validUTF8Prefix(b []byte) (int, bool) {
	i := 0
	for i < len(b) {
		if b[i] < utf8.RuneSelf {
			i++
			continue
		}
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			if !utf8.FullRune(b[i:]) {
				return i, true
			}
			return i, false
		}
		i += size
	}
	return i, true
}

func errOrphanContinuation() error {
	return api.ProtocolViolation("continuation frame received with no message in progress")
}
