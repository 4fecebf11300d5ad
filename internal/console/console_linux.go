//go:build linux

package console

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// KDSETMODE and its two mode values are defined in linux/kd.h.
const (
	kdSetMode  = 0x4B3A
	kdModeText = 0x00
	kdModeGfx  = 0x01
)

type linuxConsole struct {
	f *os.File
}

// Open opens the console device at path, ready for mode switching.
func Open(path string) (Console, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("console: open %s: %w", path, err)
	}
	return &linuxConsole{f: f}, nil
}

// SetGraphicsMode issues KDSETMODE(KD_GRAPHICS), handing the display over
// to the RFB session's framebuffer writes (§6.4), grounded in the same raw
// ioctl style as internal/screen's geometry reads.
func (c *linuxConsole) SetGraphicsMode() error {
	return unix.IoctlSetInt(int(c.f.Fd()), kdSetMode, kdModeGfx)
}

// SetTextMode issues KDSETMODE(KD_TEXT), restoring the text console. Called
// on shutdown regardless of how the session ended.
func (c *linuxConsole) SetTextMode() error {
	return unix.IoctlSetInt(int(c.f.Fd()), kdSetMode, kdModeText)
}

func (c *linuxConsole) Close() error {
	return c.f.Close()
}
