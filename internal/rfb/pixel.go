package rfb

import "encoding/binary"

// PixelFormat mirrors the 16-byte wire structure sent in ServerInit and
// SetPixelFormat (§4.3 step 4, §6.1).
type PixelFormat struct {
	BitsPerPixel uint8
	Depth        uint8
	BigEndian    bool
	TrueColor    bool
	RedMax       uint16
	GreenMax     uint16
	BlueMax      uint16
	RedShift     uint8
	GreenShift   uint8
	BlueShift    uint8
}

// ReadPixelFormat decodes the 16-byte wire layout, including the 3 padding
// bytes that follow the three colour shifts.
func (f *Framer) ReadPixelFormat() (PixelFormat, error) {
	var buf [16]byte
	if err := f.ReadExact(buf[:]); err != nil {
		return PixelFormat{}, err
	}
	pf := PixelFormat{
		BitsPerPixel: buf[0],
		Depth:        buf[1],
		BigEndian:    buf[2] != 0,
		TrueColor:    buf[3] != 0,
		RedMax:       binary.BigEndian.Uint16(buf[4:6]),
		GreenMax:     binary.BigEndian.Uint16(buf[6:8]),
		BlueMax:      binary.BigEndian.Uint16(buf[8:10]),
		RedShift:     buf[10],
		GreenShift:   buf[11],
		BlueShift:    buf[12],
	}
	return pf, nil
}

// encode writes the 16-byte wire layout for pf into buf, which must be at
// least 16 bytes.
func (pf PixelFormat) encode(buf []byte) {
	buf[0] = pf.BitsPerPixel
	buf[1] = pf.Depth
	buf[2] = boolByte(pf.BigEndian)
	buf[3] = boolByte(pf.TrueColor)
	binary.BigEndian.PutUint16(buf[4:6], pf.RedMax)
	binary.BigEndian.PutUint16(buf[6:8], pf.GreenMax)
	binary.BigEndian.PutUint16(buf[8:10], pf.BlueMax)
	buf[10] = pf.RedShift
	buf[11] = pf.GreenShift
	buf[12] = pf.BlueShift
	buf[13], buf[14], buf[15] = 0, 0, 0
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// sameAsDevice implements the §3 "fast path" predicate. The particular
// red/green/blue max and shift values are exactly what the server must
// advertise for its pixel encoding to already be byte-for-byte identical to
// our DevicePixel layout; a server that differs in any of them must go
// through the generic 32-bit path instead. blue_shift is checked against 0
// (not green_shift's expected value) per the resolved same-format predicate.
func (pf PixelFormat) sameAsDevice() bool {
	return pf.BitsPerPixel == 16 &&
		pf.Depth == 16 &&
		!pf.BigEndian &&
		pf.RedMax == 63 &&
		pf.RedShift == 10 &&
		pf.GreenMax == 127 &&
		pf.GreenShift == 4 &&
		pf.BlueMax == 63 &&
		pf.BlueShift == 0
}

// DevicePixel is a single RGB-565 sample as the framebuffer expects it:
// little-endian uint16, red in bits 11-15, green in bits 5-10, blue in
// bits 0-4.
type DevicePixel uint16

// bytesPerServerPixel returns bpsp = depth/8 (§4.4.1).
func bytesPerServerPixel(pf PixelFormat) int {
	return int(pf.Depth) / 8
}

// translateServerPixel converts one raw server pixel sample (exactly
// bytesPerServerPixel(pf) bytes) into a DevicePixel.
//
// Fast path (pf.sameAsDevice()): the two bytes are already a little-endian
// RGB-565 sample and are copied through unchanged.
//
// Generic path (depth must be 32, any other depth is a fatal
// InvalidPixelFormatError): a 24-bit value is assembled from three of the
// four bytes — bytes 1,2,3 if big-endian, else bytes 2,1,0 — then each
// channel is extracted with the server's shift/max and rounded into
// RGB-565 with the standard 8-bit-channel shift (r>>3, g>>2, b>>3).
func translateServerPixel(buf []byte, pf PixelFormat) (DevicePixel, error) {
	if pf.sameAsDevice() {
		return DevicePixel(binary.LittleEndian.Uint16(buf)), nil
	}
	if pf.Depth != 32 {
		return 0, &InvalidPixelFormatError{Depth: pf.Depth}
	}

	var v uint32
	if pf.BigEndian {
		v = uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])
	} else {
		v = uint32(buf[2])<<16 | uint32(buf[1])<<8 | uint32(buf[0])
	}

	r := uint8((v >> pf.RedShift) & uint32(pf.RedMax))
	g := uint8((v >> pf.GreenShift) & uint32(pf.GreenMax))
	b := uint8((v >> pf.BlueShift) & uint32(pf.BlueMax))

	return DevicePixel(uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)), nil
}

// Rect is a rectangle of device pixels decoded from the server stream,
// expressed in the same coordinate space as ServerInfo's framebuffer.
type Rect struct {
	X, Y          uint16
	Width, Height uint16
}

// ServerInfo is the negotiated session parameters captured during the
// handshake (§4.3 step 5): framebuffer dimensions, the server's native
// pixel format, and its name string.
type ServerInfo struct {
	Width, Height uint16
	PixelFormat   PixelFormat
	Name          string
}
