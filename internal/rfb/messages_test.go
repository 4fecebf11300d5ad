package rfb

import (
	"bytes"
	"testing"
)

func TestSetEncodingsMsgEncoding(t *testing.T) {
	got := SetEncodingsMsg{Encodings: preferredEncodings}.encode()
	want := []byte{0x02, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00, 0x05, 0x00, 0x00, 0x00, 0x00}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestFrameUpdateRequestMsgEncoding(t *testing.T) {
	got := FrameUpdateRequestMsg{Incremental: false, Rect: Rect{X: 0, Y: 0, Width: 640, Height: 480}}.encode()
	want := []byte{0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x02, 0x80, 0x01, 0xE0}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestPointerEventMsgEncoding(t *testing.T) {
	got := PointerEventMsg{ButtonMask: 1, X: 100, Y: 200}.encode()
	want := []byte{0x05, 0x01, 0x00, 0x64, 0x00, 0xC8}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}

	got2 := PointerEventMsg{ButtonMask: 0, X: 100, Y: 200}.encode()
	want2 := []byte{0x05, 0x00, 0x00, 0x64, 0x00, 0xC8}
	if !bytes.Equal(got2, want2) {
		t.Fatalf("got % x, want % x", got2, want2)
	}
}

func TestSetCurTextMsgEncodingUsesFourByteBigEndianLength(t *testing.T) {
	got := SetCurTextMsg{Text: "hi"}.encode()
	want := []byte{0x06, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x02, 'h', 'i'}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestSetCurTextMsgEmptyText(t *testing.T) {
	got := SetCurTextMsg{Text: ""}.encode()
	want := []byte{0x06, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestClientInitMsgEncoding(t *testing.T) {
	if got := (ClientInitMsg{Shared: true}).encode(); !bytes.Equal(got, []byte{1}) {
		t.Fatalf("got % x, want 01", got)
	}
	if got := (ClientInitMsg{Shared: false}).encode(); !bytes.Equal(got, []byte{0}) {
		t.Fatalf("got % x, want 00", got)
	}
}

func TestTerminateEncodesToNothing(t *testing.T) {
	if got := (Terminate{}).encode(); got != nil {
		t.Fatalf("got % x, want nil", got)
	}
}
