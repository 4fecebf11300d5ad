// Package touch reads fixed-layout input_event records from a Linux evdev
// device and translates them into rfb.PointerEvent messages (§4.6).
package touch

import (
	"encoding/binary"
	"errors"
	"io"
	"os"

	"github.com/breeze-rmm/kiosk/internal/logging"
	"github.com/breeze-rmm/kiosk/internal/rfb"
)

var log = logging.L("touch")

// Linux input event type/code constants (linux/input-event-codes.h).
const (
	evAbs = 3
	evKey = 1

	absMtPositionX = 53
	absMtPositionY = 54

	btnTouch = 330
)

// eventSize is the fixed byte length of one native input_event record:
// {seconds:i32, micro:i32, type:u16, code:u16, value:i32} (§4.6, §9).
const eventSize = 16

// Opener opens the evdev device for one session's worth of reading. Run
// calls it once per invocation and closes the result itself, so a session
// never outlives the file descriptor backing its blocking read.
type Opener func() (io.ReadCloser, error)

// OpenFile builds an Opener that opens path with os.Open. This is the
// production Opener; tests substitute one of their own so they can control
// exactly when a read unblocks.
func OpenFile(path string) Opener {
	return func() (io.ReadCloser, error) {
		return os.Open(path)
	}
}

// Producer reads raw evdev records and enqueues PointerEvent messages onto
// send until the device returns EOF or stop ends the read.
type Producer struct {
	open Opener
	send chan<- rfb.ToServerMessage
	x, y uint16
}

// NewProducer builds a Producer bound to open and the session's shared
// outbound channel. open is invoked fresh by Run, not by NewProducer, since
// the device must be reopened (and closed) per session for stop to be able
// to interrupt a pending read.
func NewProducer(open Opener, send chan<- rfb.ToServerMessage) *Producer {
	return &Producer{open: open, send: send}
}

// Run opens the device, reads events until stop is closed or the device
// returns EOF/an error, and closes the device before returning. Because
// io.ReadFull blocks inside the kernel with no way to poll a Go channel,
// cancellation works by closing the device out from under the pending read:
// a watcher goroutine calls dev.Close() as soon as stop fires, which makes
// the blocked Read return an error immediately. Run never returns a fatal
// error of its own for that case, matching §4.6's "exits on cancellation or
// natural end of input" contract.
func (p *Producer) Run(stop <-chan struct{}) error {
	dev, err := p.open()
	if err != nil {
		return err
	}

	closedByStop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		select {
		case <-stop:
			close(closedByStop)
			dev.Close()
		case <-done:
		}
	}()
	defer func() {
		close(done)
		dev.Close()
	}()

	buf := make([]byte, eventSize)
	for {
		if _, err := io.ReadFull(dev, buf); err != nil {
			select {
			case <-closedByStop:
				return nil
			default:
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		msg, ok := p.translate(buf)
		if !ok {
			continue
		}

		select {
		case p.send <- msg:
		case <-stop:
			return nil
		}
	}
}

// translate applies the §4.6 filtering table to one raw event record.
func (p *Producer) translate(buf []byte) (rfb.PointerEventMsg, bool) {
	typ := binary.NativeEndian.Uint16(buf[8:10])
	code := binary.NativeEndian.Uint16(buf[10:12])
	value := int32(binary.NativeEndian.Uint32(buf[12:16]))

	switch {
	case typ == evAbs && code == absMtPositionX:
		p.x = uint16(value)
	case typ == evAbs && code == absMtPositionY:
		p.y = uint16(value)
	case typ == evKey && code == btnTouch && value == 1:
		return rfb.PointerEventMsg{ButtonMask: 1, X: p.x, Y: p.y}, true
	case typ == evKey && code == btnTouch && value == 0:
		return rfb.PointerEventMsg{ButtonMask: 0, X: p.x, Y: p.y}, true
	}
	return rfb.PointerEventMsg{}, false
}
