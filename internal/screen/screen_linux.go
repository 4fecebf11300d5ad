//go:build linux

package screen

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctl request codes from linux/fb.h.
const (
	fbioGetVScreenInfo = 0x4600
	fbioGetFScreenInfo = 0x4602
)

// fbBitfield mirrors struct fb_bitfield.
type fbBitfield struct {
	Offset   uint32
	Length   uint32
	MSBRight uint32
}

// fbVarScreenInfo mirrors the prefix of struct fb_var_screeninfo that this
// package cares about (xres/yres); the tail is kept for layout fidelity.
type fbVarScreenInfo struct {
	XRes, YRes             uint32
	XResVirtual, YResVirtual uint32
	XOffset, YOffset       uint32
	BitsPerPixel           uint32
	Grayscale              uint32
	Red, Green, Blue, Transp fbBitfield
	NonStd                 uint32
	Activate               uint32
	Height, Width          uint32
	AccelFlags             uint32
	PixClock               uint32
	LeftMargin, RightMargin uint32
	UpperMargin, LowerMargin uint32
	HSyncLen, VSyncLen     uint32
	Sync                   uint32
	VMode                  uint32
	Rotate                 uint32
	Colorspace             uint32
	Reserved               [4]uint32
}

// fbFixScreenInfo mirrors struct fb_fix_screeninfo.
type fbFixScreenInfo struct {
	ID           [16]byte
	SMemStart    uint64
	SMemLen      uint32
	Type         uint32
	TypeAux      uint32
	Visual       uint32
	XPanStep     uint16
	YPanStep     uint16
	YWrapStep    uint16
	LineLength   uint32
	MMIOStart    uint64
	MMIOLen      uint32
	Accel        uint32
	Capabilities uint16
	Reserved     [2]uint16
}

type linuxDevice struct {
	f *os.File
}

func openDevice(path string) (device, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return &linuxDevice{f: f}, nil
}

func (d *linuxDevice) geometry() (xres, yres, stride int, err error) {
	var vinfo fbVarScreenInfo
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), fbioGetVScreenInfo, uintptr(unsafe.Pointer(&vinfo))); errno != 0 {
		return 0, 0, 0, fmt.Errorf("ioctl FBIOGET_VSCREENINFO: %w", errno)
	}

	var finfo fbFixScreenInfo
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), fbioGetFScreenInfo, uintptr(unsafe.Pointer(&finfo))); errno != 0 {
		return 0, 0, 0, fmt.Errorf("ioctl FBIOGET_FSCREENINFO: %w", errno)
	}

	return int(vinfo.XRes), int(vinfo.YRes), int(finfo.LineLength), nil
}

func (d *linuxDevice) writeFrame(buf []byte) error {
	if _, err := d.f.WriteAt(buf, 0); err != nil {
		return fmt.Errorf("write framebuffer: %w", err)
	}
	return nil
}

func (d *linuxDevice) close() error {
	return d.f.Close()
}
