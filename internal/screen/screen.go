// Package screen owns the kiosk's framebuffer device: a CPU-side image
// buffer decoders write into, and the device handoff that blits it. The
// Screen survives session restarts; the supervisor reclaims it between
// sessions to paint splash screens and leases it to the decoder while a
// session is live.
package screen

import (
	"fmt"
	"sync"

	"github.com/breeze-rmm/kiosk/internal/logging"
	"github.com/breeze-rmm/kiosk/internal/rfb"
)

var log = logging.L("screen")

// device is implemented per-platform: it reads the framebuffer's geometry
// and writes whole frames to it.
type device interface {
	geometry() (xres, yres, stride int, err error)
	writeFrame(buf []byte) error
	close() error
}

// Screen is the CPU-side image buffer plus its device handoff. It
// implements rfb.Display, so a Decoder can write directly into it during a
// session while the supervisor holds exclusive ownership the rest of the
// time.
type Screen struct {
	mu sync.Mutex

	dev    device
	xres   int
	yres   int
	stride int
	buf    []byte
}

// Open opens the framebuffer device at path and reads its geometry.
func Open(path string) (*Screen, error) {
	dev, err := openDevice(path)
	if err != nil {
		return nil, fmt.Errorf("screen: open %s: %w", path, err)
	}
	xres, yres, stride, err := dev.geometry()
	if err != nil {
		dev.close()
		return nil, fmt.Errorf("screen: geometry: %w", err)
	}
	if stride < xres*2 {
		stride = xres * 2
	}
	s := &Screen{
		dev:    dev,
		xres:   xres,
		yres:   yres,
		stride: stride,
		buf:    make([]byte, stride*yres),
	}
	log.Info("framebuffer opened", "device", path, "xres", xres, "yres", yres, "stride", stride)
	return s, nil
}

// Close releases the underlying device.
func (s *Screen) Close() error {
	return s.dev.close()
}

// Dimensions returns the device's resolution, for use as the session's
// framebuffer size when requesting frames from the server.
func (s *Screen) Dimensions() (width, height int) {
	return s.xres, s.yres
}

// Lock acquires exclusive access to the image buffer for the duration of a
// session, so the decoder is the sole writer while it runs.
func (s *Screen) Lock() {
	s.mu.Lock()
}

// Unlock releases exclusive access, allowing the supervisor to paint a
// splash screen between sessions.
func (s *Screen) Unlock() {
	s.mu.Unlock()
}

// WritePixel implements rfb.Display. Out-of-bounds coordinates are ignored
// rather than panicking, so a malformed rectangle from the server cannot
// crash the session (§8 "no out-of-bounds writes").
func (s *Screen) WritePixel(x, y int, p rfb.DevicePixel) {
	if x < 0 || y < 0 || x >= s.xres || y >= s.yres {
		return
	}
	off := y*s.stride + x*2
	if off < 0 || off+2 > len(s.buf) {
		return
	}
	s.buf[off] = byte(p)
	s.buf[off+1] = byte(p >> 8)
}

// Commit implements rfb.Display: blit the CPU-side buffer to the device in
// one call.
func (s *Screen) Commit() error {
	return s.dev.writeFrame(s.buf)
}

// Fill clears the entire buffer to a single color and commits it, used by
// the supervisor to paint splash screens between sessions.
func (s *Screen) Fill(p rfb.DevicePixel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lo, hi := byte(p), byte(p>>8)
	for i := 0; i+1 < len(s.buf); i += 2 {
		s.buf[i] = lo
		s.buf[i+1] = hi
	}
	return s.dev.writeFrame(s.buf)
}
