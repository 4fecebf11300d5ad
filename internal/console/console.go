// Package console switches the kiosk's virtual console between graphics and
// text mode (§6.4), so the RFB session owns the display exclusively while
// running and the text console is restored on shutdown.
package console

// Console controls the mode of a single console device.
type Console interface {
	SetGraphicsMode() error
	SetTextMode() error
	Close() error
}
