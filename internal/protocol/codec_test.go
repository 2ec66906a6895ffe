package protocol

import (
	"bytes"
	"testing"
)

func TestEncodeHeaderKnownVector(t *testing.T) {
	// Command 7 with the jumbo marker (0x4000) set, 29 payload bytes.
	got := EncodeHeader(0x4007, 29, BufferSize)
	if got != 0x8D06CD01 {
		t.Fatalf("EncodeHeader(0x4007, 29, %d) = %#08x, want 0x8D06CD01", BufferSize, got)
	}

	id, length, err := DecodeHeader(got)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if length != 29 {
		t.Fatalf("decoded length = %d, want 29", length)
	}
	// Decode strips the marker bits and yields the dispatch id.
	if id != 0x0007 {
		t.Fatalf("decoded id = %#04x, want 0x0007", id)
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	ids := []uint16{0, 1, 29, 0x0007, 0x01F4, 0x3FFF}
	lengths := []uint16{4, 7, 29, 255, 1024, 4091, MaxPayloadLength}
	for _, id := range ids {
		for _, length := range lengths {
			header := EncodeHeader(id, length, BufferSize)
			gotID, gotLen, err := DecodeHeader(header)
			if err != nil {
				t.Fatalf("DecodeHeader(encode(%d, %d)): %v", id, length, err)
			}
			if gotID != id || gotLen != length {
				t.Fatalf("round trip (%d, %d) = (%d, %d)", id, length, gotID, gotLen)
			}
		}
	}
}

func TestDecodeHeaderRejectsUnsetValidityBit(t *testing.T) {
	if _, _, err := DecodeHeader(0); err == nil {
		t.Fatal("expected error for zero header")
	}
	if _, _, err := DecodeHeader(0x00001234); err == nil {
		t.Fatal("expected error for header without bit 15")
	}
}

func TestScramblerRoundTrip(t *testing.T) {
	s := NewScrambler()
	payload := []byte("alice\x00\x07\x00race payload bytes")
	buf := append([]byte(nil), payload...)

	s.Apply(buf)
	if bytes.Equal(buf, payload) {
		t.Fatal("scrambler left payload unchanged")
	}
	s.Apply(buf)
	if !bytes.Equal(buf, payload) {
		t.Fatalf("double scramble did not restore payload: % x", buf)
	}
}

func TestScramblerInitialKey(t *testing.T) {
	s := NewScrambler()
	buf := []byte{0, 0, 0, 0, 0}
	s.Apply(buf)
	want := []byte{0xCB, 0x91, 0x01, 0xA2, 0xCB}
	if !bytes.Equal(buf, want) {
		t.Fatalf("initial key stream = % x, want % x", buf, want)
	}
}

func TestScramblerSetKey(t *testing.T) {
	s := NewScrambler()
	s.SetKey([4]byte{1, 2, 3, 4})
	buf := []byte{0, 0, 0, 0}
	s.Apply(buf)
	if !bytes.Equal(buf, []byte{1, 2, 3, 4}) {
		t.Fatalf("rotated key stream = % x", buf)
	}
}

func TestWireReaderSticky(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02})
	if got := r.Uint16(); got != 0x0201 {
		t.Fatalf("Uint16 = %#04x", got)
	}
	if r.Uint32() != 0 {
		t.Fatal("read past end should return zero")
	}
	if r.Err() == nil {
		t.Fatal("expected sticky error after short read")
	}
	if r.Uint8() != 0 {
		t.Fatal("poisoned reader must keep returning zero")
	}
}

func TestWireStringRoundTrip(t *testing.T) {
	w := NewWriter()
	w.String("alice")
	w.String("말타기")
	w.Uint32(42)
	if w.Err() != nil {
		t.Fatalf("writer: %v", w.Err())
	}

	r := NewReader(w.Bytes())
	if got := r.String(); got != "alice" {
		t.Fatalf("first string = %q", got)
	}
	if got := r.String(); got != "말타기" {
		t.Fatalf("second string = %q", got)
	}
	if got := r.Uint32(); got != 42 {
		t.Fatalf("trailing u32 = %d", got)
	}
	if r.Err() != nil {
		t.Fatalf("reader: %v", r.Err())
	}
}

func TestLoginFrameRoundTrip(t *testing.T) {
	in := LobbyLogin{
		Constant0: LoginConstant0,
		Constant1: LoginConstant1,
		LoginID:   "alice",
		MemberNo:  7,
		AuthKey:   "T",
	}
	w := NewWriter()
	if err := in.Encode(w); err != nil {
		t.Fatalf("encode: %v", err)
	}

	var out LobbyLogin
	if err := out.Decode(NewReader(w.Bytes())); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: %+v != %+v", out, in)
	}
}
