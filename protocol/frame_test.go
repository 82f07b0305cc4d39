package protocol_test

import (
	"bytes"
	"testing"

	"github.com/momentics/grainws/protocol"
)

// feed drives the parser over data in the given chunk sizes and collects frames.
func feed(t *testing.T, p *protocol.FrameParser, chunks ...[]byte) []*protocol.Frame {
	t.Helper()
	var out []*protocol.Frame
	for _, chunk := range chunks {
		for len(chunk) > 0 {
			n, f := p.Advance(chunk)
			if n == 0 {
				t.Fatalf("parser made no progress with %d bytes left", len(chunk))
			}
			chunk = chunk[n:]
			if f != nil {
				out = append(out, f)
			}
		}
	}
	return out
}

func TestParserMaskedHello(t *testing.T) {
	wire := []byte{0x81, 0x85, 0x37, 0xfa, 0x21, 0x3d, 0x7f, 0x9f, 0x4d, 0x51, 0x58}
	var p protocol.FrameParser
	frames := feed(t, &p, wire)
	if len(frames) != 1 {
		t.Fatalf("want 1 frame, got %d", len(frames))
	}
	f := frames[0]
	if !f.Fin || f.OpCode != protocol.OpText || !f.Masked {
		t.Errorf("unexpected header: %+v", f)
	}
	if string(f.Payload) != "Hello" {
		t.Errorf("payload = %q", f.Payload)
	}
	if !p.Idle() {
		t.Error("parser should be idle after a complete frame")
	}
}

func TestParserOneTransitionPerCall(t *testing.T) {
	wire := []byte{0x81, 0x85, 0x37, 0xfa, 0x21, 0x3d, 0x7f, 0x9f, 0x4d, 0x51, 0x58}
	var p protocol.FrameParser
	steps := []int{1, 1, 4, 5}
	rest := wire
	for i, want := range steps {
		n, f := p.Advance(rest)
		if n != want {
			t.Fatalf("step %d consumed %d, want %d", i, n, want)
		}
		if (f != nil) != (i == len(steps)-1) {
			t.Fatalf("step %d frame=%v", i, f)
		}
		rest = rest[n:]
	}
}

func TestParserLengthForms(t *testing.T) {
	for _, size := range []int{0, 1, 125, 126, 127, 65535, 65536, 70000} {
		payload := bytes.Repeat([]byte{'x'}, size)
		wire := protocol.AppendFrame(nil, true, protocol.OpBinary, payload)
		var p protocol.FrameParser
		frames := feed(t, &p, wire)
		if len(frames) != 1 {
			t.Fatalf("size %d: want 1 frame, got %d", size, len(frames))
		}
		if len(frames[0].Payload) != size {
			t.Errorf("size %d: got payload %d", size, len(frames[0].Payload))
		}
	}
}

func TestParserExtendedLength16(t *testing.T) {
	wire := append([]byte{0x82, 0x7e, 0x01, 0x00}, make([]byte, 256)...)
	var p protocol.FrameParser
	frames := feed(t, &p, wire)
	if len(frames) != 1 || len(frames[0].Payload) != 256 {
		t.Fatalf("unexpected frames: %v", frames)
	}
}

func TestParserExtendedLength64(t *testing.T) {
	wire := append([]byte{0x82, 0x7f, 0, 0, 0, 0, 0, 0x01, 0x00, 0x00}, make([]byte, 65536)...)
	var p protocol.FrameParser
	frames := feed(t, &p, wire)
	if len(frames) != 1 || len(frames[0].Payload) != 65536 {
		t.Fatalf("unexpected frames: %d", len(frames))
	}
}

func TestParserChunkInvariance(t *testing.T) {
	key := [4]byte{0xde, 0xad, 0xbe, 0xef}
	var wire []byte
	wire = protocol.AppendMaskedFrame(wire, false, protocol.OpText, []byte("frag-one "), key)
	wire = protocol.AppendMaskedFrame(wire, true, protocol.OpPing, nil, key)
	wire = protocol.AppendMaskedFrame(wire, true, protocol.OpContinuation, bytes.Repeat([]byte("z"), 300), key)
	wire = protocol.AppendFrame(wire, true, protocol.OpBinary, []byte{1, 2, 3})

	var whole protocol.FrameParser
	want := feed(t, &whole, wire)
	if len(want) != 4 {
		t.Fatalf("want 4 frames, got %d", len(want))
	}

	for split := 0; split <= len(wire); split++ {
		var p protocol.FrameParser
		got := feed(t, &p, wire[:split], wire[split:])
		if len(got) != len(want) {
			t.Fatalf("split %d: got %d frames", split, len(got))
		}
		for i := range want {
			if got[i].Fin != want[i].Fin || got[i].OpCode != want[i].OpCode ||
				!bytes.Equal(got[i].Payload, want[i].Payload) {
				t.Fatalf("split %d frame %d differs", split, i)
			}
		}
	}

	var p protocol.FrameParser
	var single [][]byte
	for i := range wire {
		single = append(single, wire[i:i+1])
	}
	if got := feed(t, &p, single...); len(got) != len(want) {
		t.Fatalf("byte-at-a-time: got %d frames", len(got))
	}
}

func TestParserZeroLengthCompletesImmediately(t *testing.T) {
	var p protocol.FrameParser
	if n, f := p.Advance([]byte{0x8a}); n != 1 || f != nil {
		t.Fatalf("header: n=%d f=%v", n, f)
	}
	n, f := p.Advance([]byte{0x00})
	if n != 1 || f == nil {
		t.Fatalf("length byte should complete a zero-length frame: n=%d f=%v", n, f)
	}
	if f.OpCode != protocol.OpPong || len(f.Payload) != 0 || f.Payload == nil {
		t.Errorf("unexpected frame %+v", f)
	}
}

func TestParserMaskedZeroLength(t *testing.T) {
	var p protocol.FrameParser
	frames := feed(t, &p, []byte{0x89, 0x80, 1, 2, 3, 4})
	if len(frames) != 1 || frames[0].OpCode != protocol.OpPing {
		t.Fatalf("unexpected frames %v", frames)
	}
}

func TestParserReservedOpcodePassesThrough(t *testing.T) {
	var p protocol.FrameParser
	frames := feed(t, &p, []byte{0x83, 0x01, 'a'})
	if len(frames) != 1 {
		t.Fatalf("want 1 frame, got %d", len(frames))
	}
	if frames[0].OpCode != 3 || !frames[0].OpCode.IsReserved() {
		t.Errorf("opcode = %v", frames[0].OpCode)
	}
}

func TestParserHeaderVisibleBeforePayload(t *testing.T) {
	var p protocol.FrameParser
	if _, ok := p.Header(); ok {
		t.Fatal("no header expected while idle")
	}
	wire := []byte{0x02, 0x7e, 0x10, 0x00}
	feed(t, &p, wire)
	h, ok := p.Header()
	if !ok {
		t.Fatal("header should be known after the length")
	}
	if h.Fin || h.OpCode != protocol.OpBinary || h.PayloadLen != 4096 {
		t.Errorf("header = %+v", h)
	}
	p.Reset()
	if !p.Idle() {
		t.Error("reset should return to idle")
	}
}

func TestParserEmptyInput(t *testing.T) {
	var p protocol.FrameParser
	if n, f := p.Advance(nil); n != 0 || f != nil {
		t.Fatalf("n=%d f=%v", n, f)
	}
}
