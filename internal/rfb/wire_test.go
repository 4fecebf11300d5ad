package rfb

import (
	"bytes"
	"testing"
)

func TestReadExactReturnsSessionClosedOnShortRead(t *testing.T) {
	f := NewFramer(bytes.NewReader([]byte{1, 2}))
	buf := make([]byte, 4)
	if err := f.ReadExact(buf); err != ErrSessionClosedByServer {
		t.Fatalf("got %v, want ErrSessionClosedByServer", err)
	}
}

func TestReadExactZeroLengthBufferSucceeds(t *testing.T) {
	f := NewFramer(bytes.NewReader(nil))
	if err := f.ReadExact(nil); err != nil {
		t.Fatalf("ReadExact(nil): %v", err)
	}
}

func TestReadU16BE(t *testing.T) {
	f := NewFramer(bytes.NewReader([]byte{0x01, 0x02}))
	got, err := f.ReadU16BE()
	if err != nil {
		t.Fatalf("ReadU16BE: %v", err)
	}
	if got != 0x0102 {
		t.Fatalf("got %#x, want 0x0102", got)
	}
}

func TestReadI32BE(t *testing.T) {
	f := NewFramer(bytes.NewReader([]byte{0xFF, 0xFF, 0xFF, 0xFF}))
	got, err := f.ReadI32BE()
	if err != nil {
		t.Fatalf("ReadI32BE: %v", err)
	}
	if got != -1 {
		t.Fatalf("got %d, want -1", got)
	}
}

func TestReadStringBE32Len(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 5})
	buf.WriteString("hello")
	f := NewFramer(&buf)

	got, err := f.ReadStringBE32Len()
	if err != nil {
		t.Fatalf("ReadStringBE32Len: %v", err)
	}
	if got != "hello" {
		t.Fatalf("got %q, want hello", got)
	}
}

func TestReadStringBE32LenRejectsOverLongString(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0x10, 0}) // length 4096, over the 1024 bound
	f := NewFramer(&buf)

	_, err := f.ReadStringBE32Len()
	if _, ok := err.(*StringTooLongError); !ok {
		t.Fatalf("got %T (%v), want *StringTooLongError", err, err)
	}
}
