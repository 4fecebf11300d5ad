package rfb

import "fmt"

// ErrSessionClosedByServer is returned whenever a read observes a zero-length
// result: the server end of the TCP stream has gone away (§7).
var ErrSessionClosedByServer = fmt.Errorf("rfb: session closed by server")

// ErrSendClosed is returned by the Multiplexer when its single-worker pool
// refuses a write (the pool has been shut down or its queue is full).
var ErrSendClosed = fmt.Errorf("rfb: outbound channel closed")

// ServerError wraps a rejection the server sent during handshake (security
// failure, or any step that carries an explicit error string).
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("rfb: server error: %s", e.Message)
}

// InvalidServerCommandError is returned when the 2-byte command code after
// the handshake is anything other than FrameUpdate (0).
type InvalidServerCommandError struct {
	Code uint16
}

func (e *InvalidServerCommandError) Error() string {
	return fmt.Sprintf("rfb: invalid server command %d", e.Code)
}

// InvalidEncodingError is returned when a rectangle names an encoding
// outside {Raw, HexTile}.
type InvalidEncodingError struct {
	Code int32
}

func (e *InvalidEncodingError) Error() string {
	return fmt.Sprintf("rfb: invalid encoding %d", e.Code)
}

// InvalidPixelFormatError is returned when the server's advertised
// PixelFormat is neither the exact same-format RGB-565 layout (fast path)
// nor 32 bits deep (generic path). A 16-bit format that differs from the
// device layout in any field is rejected too.
type InvalidPixelFormatError struct {
	Depth uint8
}

func (e *InvalidPixelFormatError) Error() string {
	return fmt.Sprintf("rfb: unsupported pixel format with depth %d (only the device's RGB-565 layout or depth 32 is supported)", e.Depth)
}

// StringTooLongError is returned when a length-prefixed protocol string
// claims to be longer than the 1024-byte bound §4.2 imposes.
type StringTooLongError struct {
	Length uint32
}

func (e *StringTooLongError) Error() string {
	return fmt.Sprintf("rfb: string length %d exceeds 1024-byte bound", e.Length)
}
