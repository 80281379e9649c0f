package fecwire

import "testing"

func TestHeaderRoundTrip(t *testing.T) {
	in := Header{
		Version:    1,
		Flags:      FlagMeta,
		Generation: 0xbeef,
		BlockCount: 1024,
		BlockBytes: 1500,
		ID:         0xdeadbeef,
		PayloadLen: 58,
	}
	buf := in.MarshalBinary(nil)
	if len(buf) != HeaderLen {
		t.Fatalf("marshal length %d, want %d", len(buf), HeaderLen)
	}

	var out Header
	if !out.UnmarshalBinary(buf) {
		t.Fatal("unmarshal failed")
	}
	if out != in {
		t.Fatalf("round trip mismatch: %+v != %+v", out, in)
	}
}

func TestHeaderShortBuffer(t *testing.T) {
	var h Header
	if h.UnmarshalBinary(make([]byte, HeaderLen-1)) {
		t.Fatal("unmarshal accepted a short buffer")
	}
}

func TestHeaderMarshalReusesBuffer(t *testing.T) {
	h := Header{Version: 1, ID: 7}
	scratch := make([]byte, 64)
	out := h.MarshalBinary(scratch)
	if &out[0] != &scratch[0] {
		t.Fatal("marshal did not reuse the provided buffer")
	}
}
