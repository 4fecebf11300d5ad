package rfb

import "encoding/binary"

// Encoding identifies a rectangle encoding, negotiated via SetEncodings and
// read from each rectangle header during decode (§4.4, §6.1).
type Encoding int32

const (
	EncodingRaw     Encoding = 0
	EncodingHexTile Encoding = 5
)

// preferredEncodings lists the encodings advertised by SetEncodings, in
// preference order (§4.3 step 5): HexTile first, then Raw as a fallback.
var preferredEncodings = []Encoding{EncodingHexTile, EncodingRaw}

// ToServerMessage is any value the Multiplexer can serialize onto the wire.
// Terminate is the sentinel poison pill: it carries no bytes and tells the
// Multiplexer to stop after draining everything already queued ahead of it.
type ToServerMessage interface {
	encode() []byte
}

// Terminate is sent on the outbound channel to stop the Multiplexer.
type Terminate struct{}

func (Terminate) encode() []byte { return nil }

// ProtocolVersionMsg is the literal 12-byte client version banner.
type ProtocolVersionMsg struct{}

func (ProtocolVersionMsg) encode() []byte {
	return []byte(clientProtocolVersion)
}

const clientProtocolVersion = "RFB 003.008\n"

// SecurityMsg selects a security type by its wire code.
type SecurityMsg struct {
	Type uint8
}

func (m SecurityMsg) encode() []byte {
	return []byte{m.Type}
}

// SecurityTypeNone is the only security type this client supports (§4.3 step 2).
const SecurityTypeNone uint8 = 1

// ClientInitMsg carries the shared-flag byte (§4.3 step 4).
type ClientInitMsg struct {
	Shared bool
}

func (m ClientInitMsg) encode() []byte {
	return []byte{boolByte(m.Shared)}
}

// SetEncodingsMsg lists the rectangle encodings the client accepts, in
// preference order.
type SetEncodingsMsg struct {
	Encodings []Encoding
}

func (m SetEncodingsMsg) encode() []byte {
	buf := make([]byte, 4+4*len(m.Encodings))
	buf[0] = 2
	buf[1] = 0
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(m.Encodings)))
	for i, e := range m.Encodings {
		binary.BigEndian.PutUint32(buf[4+4*i:8+4*i], uint32(int32(e)))
	}
	return buf
}

// FrameUpdateRequestMsg asks the server for a rectangle, optionally
// incrementally (only changed regions).
type FrameUpdateRequestMsg struct {
	Incremental bool
	Rect        Rect
}

func (m FrameUpdateRequestMsg) encode() []byte {
	buf := make([]byte, 10)
	buf[0] = 3
	buf[1] = boolByte(m.Incremental)
	binary.BigEndian.PutUint16(buf[2:4], m.Rect.X)
	binary.BigEndian.PutUint16(buf[4:6], m.Rect.Y)
	binary.BigEndian.PutUint16(buf[6:8], m.Rect.Width)
	binary.BigEndian.PutUint16(buf[8:10], m.Rect.Height)
	return buf
}

// PointerEventMsg reports a touch position and button state.
type PointerEventMsg struct {
	ButtonMask uint8
	X, Y       uint16
}

func (m PointerEventMsg) encode() []byte {
	buf := make([]byte, 6)
	buf[0] = 5
	buf[1] = m.ButtonMask
	binary.BigEndian.PutUint16(buf[2:4], m.X)
	binary.BigEndian.PutUint16(buf[4:6], m.Y)
	return buf
}

// SetCurTextMsg is ClientCutText. The length field is 4-byte big-endian per
// the RFB wire format; re-specified here deliberately rather than as a
// platform-sized integer.
type SetCurTextMsg struct {
	Text string
}

func (m SetCurTextMsg) encode() []byte {
	body := []byte(m.Text)
	buf := make([]byte, 8+len(body))
	buf[0], buf[1], buf[2], buf[3] = 6, 0, 0, 0
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(body)))
	copy(buf[8:], body)
	return buf
}
