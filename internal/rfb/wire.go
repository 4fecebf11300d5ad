package rfb

import (
	"encoding/binary"
	"errors"
	"io"
)

// maxStringLength bounds the length-prefixed strings the handshake reads
// (server name, security error text). §4.2.
const maxStringLength = 1024

// Framer guarantees full-length reads from a server stream and turns a
// short read into the distinguished ErrSessionClosedByServer condition,
// the way ipc.Conn.Recv turns a short length-prefixed read into an error
// instead of silently under-filling a buffer.
type Framer struct {
	r io.Reader
}

// NewFramer wraps r (typically the read half of a net.Conn).
func NewFramer(r io.Reader) *Framer {
	return &Framer{r: r}
}

// ReadExact loops until buf is completely filled or a zero-length read is
// observed, which is reported as ErrSessionClosedByServer.
func (f *Framer) ReadExact(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	_, err := io.ReadFull(f.r, buf)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrSessionClosedByServer
		}
		return err
	}
	return nil
}

// ReadU8 reads a single byte.
func (f *Framer) ReadU8() (uint8, error) {
	var buf [1]byte
	if err := f.ReadExact(buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadU16BE reads a big-endian uint16.
func (f *Framer) ReadU16BE() (uint16, error) {
	var buf [2]byte
	if err := f.ReadExact(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

// ReadI32BE reads a big-endian int32.
func (f *Framer) ReadI32BE() (int32, error) {
	var buf [4]byte
	if err := f.ReadExact(buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(buf[:])), nil
}

// ReadU32BE reads a big-endian uint32.
func (f *Framer) ReadU32BE() (uint32, error) {
	var buf [4]byte
	if err := f.ReadExact(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// ReadStringBE32Len reads a 4-byte big-endian length followed by that many
// UTF-8 bytes, bounded by maxStringLength (§4.2).
func (f *Framer) ReadStringBE32Len() (string, error) {
	n, err := f.ReadU32BE()
	if err != nil {
		return "", err
	}
	if n > maxStringLength {
		return "", &StringTooLongError{Length: n}
	}
	buf := make([]byte, n)
	if err := f.ReadExact(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
