package rfb

import "context"

// Display is the screen abstraction the Decoder writes into. Implementations
// own the CPU-side image buffer and the device handoff; the decoder never
// touches the framebuffer device directly.
type Display interface {
	// WritePixel writes one device pixel at (x, y). Implementations must
	// silently ignore coordinates outside the buffer rather than panic, so a
	// malformed server rectangle cannot crash the session.
	WritePixel(x, y int, p DevicePixel)
	// Commit blits the CPU-side buffer to the device. Called once per
	// completed FrameUpdate.
	Commit() error
}

// fullscreenRect builds the {0,0,width,height} rectangle used for both the
// initial non-incremental request and every subsequent incremental one.
func fullscreenRect(info ServerInfo) Rect {
	return Rect{X: 0, Y: 0, Width: info.Width, Height: info.Height}
}

// Decoder runs the FrameUpdate read loop of §4.4 against a connected
// session: it owns the read half of the stream (via Framer) and a send-only
// handle onto the outbound channel for its own FrameUpdateRequest messages.
type Decoder struct {
	framer *Framer
	send   chan<- ToServerMessage
	info   ServerInfo
	disp   Display
}

// NewDecoder builds a Decoder bound to the negotiated session.
func NewDecoder(framer *Framer, send chan<- ToServerMessage, info ServerInfo, disp Display) *Decoder {
	return &Decoder{framer: framer, send: send, info: info, disp: disp}
}

// sendMsg enqueues m, blocking while the outbound channel is full, and
// returns ctx.Err() if ctx is cancelled first. It does not detect a consumer
// that has stopped reading; only cancellation ends the wait.
func (d *Decoder) sendMsg(ctx context.Context, m ToServerMessage) error {
	select {
	case d.send <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives the decode loop until ctx is cancelled or a fatal protocol
// error occurs. Every error it returns is session-fatal per §7; the caller
// (the session engine) is responsible for tearing the session down.
func (d *Decoder) Run(ctx context.Context) error {
	full := fullscreenRect(d.info)

	if err := d.sendMsg(ctx, FrameUpdateRequestMsg{Incremental: false, Rect: full}); err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		cmd, err := d.framer.ReadU16BE()
		if err != nil {
			return err
		}
		if cmd != 0 {
			return &InvalidServerCommandError{Code: cmd}
		}

		if err := d.decodeFrameUpdate(); err != nil {
			return err
		}

		if err := d.disp.Commit(); err != nil {
			return err
		}

		if err := d.sendMsg(ctx, FrameUpdateRequestMsg{Incremental: true, Rect: full}); err != nil {
			return err
		}
	}
}

// decodeFrameUpdate reads the rectangle count and dispatches each rectangle
// to its encoding-specific decoder (§4.4 step 4).
func (d *Decoder) decodeFrameUpdate() error {
	count, err := d.framer.ReadU16BE()
	if err != nil {
		return err
	}

	for i := uint16(0); i < count; i++ {
		rect, encoding, err := d.readRectHeader()
		if err != nil {
			return err
		}
		switch encoding {
		case EncodingRaw:
			if err := d.decodeRaw(rect); err != nil {
				return err
			}
		case EncodingHexTile:
			if err := d.decodeHexTile(rect); err != nil {
				return err
			}
		default:
			return &InvalidEncodingError{Code: int32(encoding)}
		}
	}
	return nil
}

// readRectHeader reads the 12-byte {x,y,w,h,encoding} header.
func (d *Decoder) readRectHeader() (Rect, Encoding, error) {
	x, err := d.framer.ReadU16BE()
	if err != nil {
		return Rect{}, 0, err
	}
	y, err := d.framer.ReadU16BE()
	if err != nil {
		return Rect{}, 0, err
	}
	w, err := d.framer.ReadU16BE()
	if err != nil {
		return Rect{}, 0, err
	}
	h, err := d.framer.ReadU16BE()
	if err != nil {
		return Rect{}, 0, err
	}
	enc, err := d.framer.ReadI32BE()
	if err != nil {
		return Rect{}, 0, err
	}
	return Rect{X: x, Y: y, Width: w, Height: h}, Encoding(enc), nil
}

// decodeRaw implements §4.4.2: w*h*bpsp bytes, row-major.
func (d *Decoder) decodeRaw(rect Rect) error {
	pf := d.info.PixelFormat
	bpsp := bytesPerServerPixel(pf)
	sample := make([]byte, bpsp)

	for row := uint16(0); row < rect.Height; row++ {
		for col := uint16(0); col < rect.Width; col++ {
			if err := d.framer.ReadExact(sample); err != nil {
				return err
			}
			px, err := translateServerPixel(sample, pf)
			if err != nil {
				return err
			}
			d.disp.WritePixel(int(rect.X+col), int(rect.Y+row), px)
		}
	}
	return nil
}

// HexTile mask bits (§4.4.3).
const (
	hexTileRaw                 = 1 << 0
	hexTileBackgroundSpecified = 1 << 1
	hexTileForegroundSpecified = 1 << 2
	hexTileAnySubrects         = 1 << 3
	hexTileSubrectsColored     = 1 << 4
)

// decodeHexTile implements §4.4.3: the rectangle is tiled 16x16, row-major,
// with two sticky colors (foreground, background) persisting across tiles
// within this rectangle only.
func (d *Decoder) decodeHexTile(rect Rect) error {
	pf := d.info.PixelFormat
	bpsp := bytesPerServerPixel(pf)

	var background, foreground DevicePixel // both start at RGB-565 black

	for tileY := uint16(0); tileY < rect.Height; tileY += 16 {
		th := uint16(16)
		if rect.Height-tileY < 16 {
			th = rect.Height - tileY
		}
		for tileX := uint16(0); tileX < rect.Width; tileX += 16 {
			tw := uint16(16)
			if rect.Width-tileX < 16 {
				tw = rect.Width - tileX
			}

			mask, err := d.framer.ReadU8()
			if err != nil {
				return err
			}

			originX := int(rect.X + tileX)
			originY := int(rect.Y + tileY)

			if mask&hexTileRaw != 0 {
				if err := d.decodeHexTileRaw(originX, originY, tw, th, bpsp, pf); err != nil {
					return err
				}
				continue
			}

			if mask&hexTileBackgroundSpecified != 0 {
				sample := make([]byte, bpsp)
				if err := d.framer.ReadExact(sample); err != nil {
					return err
				}
				background, err = translateServerPixel(sample, pf)
				if err != nil {
					return err
				}
			}
			if mask&hexTileForegroundSpecified != 0 {
				sample := make([]byte, bpsp)
				if err := d.framer.ReadExact(sample); err != nil {
					return err
				}
				foreground, err = translateServerPixel(sample, pf)
				if err != nil {
					return err
				}
			}

			d.fillTile(originX, originY, tw, th, background)

			if mask&hexTileAnySubrects == 0 {
				continue
			}
			subCount, err := d.framer.ReadU8()
			if err != nil {
				return err
			}
			colored := mask&hexTileSubrectsColored != 0

			for s := uint8(0); s < subCount; s++ {
				color := foreground
				if colored {
					sample := make([]byte, bpsp)
					if err := d.framer.ReadExact(sample); err != nil {
						return err
					}
					color, err = translateServerPixel(sample, pf)
					if err != nil {
						return err
					}
				}
				xy, err := d.framer.ReadU8()
				if err != nil {
					return err
				}
				wh, err := d.framer.ReadU8()
				if err != nil {
					return err
				}
				sx := int(xy>>4) & 0xF
				sy := int(xy) & 0xF
				sw := int(wh>>4)&0xF + 1
				sh := int(wh)&0xF + 1
				d.fillTile(originX+sx, originY+sy, uint16(sw), uint16(sh), color)
			}
		}
	}
	return nil
}

// decodeHexTileRaw handles the Raw HexTile subencoding: the entire tile is
// tw*th*bpsp raw pixel bytes, row-major, all other mask bits ignored.
func (d *Decoder) decodeHexTileRaw(originX, originY int, tw, th uint16, bpsp int, pf PixelFormat) error {
	sample := make([]byte, bpsp)
	for row := uint16(0); row < th; row++ {
		for col := uint16(0); col < tw; col++ {
			if err := d.framer.ReadExact(sample); err != nil {
				return err
			}
			px, err := translateServerPixel(sample, pf)
			if err != nil {
				return err
			}
			d.disp.WritePixel(originX+int(col), originY+int(row), px)
		}
	}
	return nil
}

// fillTile writes color into every pixel of the w x h block at (x, y).
func (d *Decoder) fillTile(x, y int, w, h uint16, color DevicePixel) {
	for dy := uint16(0); dy < h; dy++ {
		for dx := uint16(0); dx < w; dx++ {
			d.disp.WritePixel(x+int(dx), y+int(dy), color)
		}
	}
}
