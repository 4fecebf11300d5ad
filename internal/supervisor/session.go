package supervisor

import (
	"context"
	"net"
	"runtime/debug"
	"sync"

	"github.com/breeze-rmm/kiosk/internal/logging"
	"github.com/breeze-rmm/kiosk/internal/ping"
	"github.com/breeze-rmm/kiosk/internal/rfb"
	"github.com/breeze-rmm/kiosk/internal/touch"
)

// runSession runs one RFB session to completion: handshake, then four
// concurrent tasks (decoder, multiplexer, touch producer, ping producer)
// sharing the outbound channel (§4.1, §5). Every error is absorbed here;
// the function always returns normally so the caller can loop back to
// CONNECT.
func (s *Supervisor) runSession(ctx context.Context, conn net.Conn) {
	framer := rfb.NewFramer(conn)
	info, err := rfb.Handshake(framer, conn)
	if err != nil {
		log.Warn("handshake failed", "error", err)
		return
	}

	s.scr.Lock()
	defer s.scr.Unlock()

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	outbound := make(chan rfb.ToServerMessage, s.cfg.OutboundChannelCapacity)

	decoder := rfb.NewDecoder(framer, outbound, info, s.scr)
	mux := rfb.NewMultiplexer(conn, outbound)

	touchStop := make(chan struct{})
	pingStop := make(chan struct{})
	var stopOnce sync.Once
	stopProducers := func() {
		stopOnce.Do(func() {
			close(touchStop)
			close(pingStop)
		})
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 4)

	wg.Add(1)
	go runGuarded(&wg, "decoder", func() error {
		err := decoder.Run(sessionCtx)
		cancel()
		return err
	}, errCh)

	wg.Add(1)
	go runGuarded(&wg, "multiplexer", func() error {
		err := mux.Run(sessionCtx)
		cancel()
		return err
	}, errCh)

	if s.touchDevice != "" {
		wg.Add(1)
		go runGuarded(&wg, "touch", func() error {
			producer := touch.NewProducer(touch.OpenFile(s.touchDevice), outbound)
			err := producer.Run(touchStop)
			cancel()
			return err
		}, errCh)
	}

	wg.Add(1)
	go runGuarded(&wg, "ping", func() error {
		producer := ping.NewProducer(s.cfg.PingInterval, outbound)
		err := producer.Run(pingStop)
		cancel()
		return err
	}, errCh)

	// When any task above ends it cancels sessionCtx; this goroutine turns
	// that into the stop signal the select-driven touch/ping loops expect.
	go func() {
		<-sessionCtx.Done()
		stopProducers()
	}()

	wg.Wait()
	close(errCh)
	for taskErr := range errCh {
		if taskErr != nil && taskErr != context.Canceled {
			log.Warn("session task ended", "error", taskErr)
		}
	}
}

// runGuarded runs fn with panic recovery: a panicking task logs and is
// treated as a fatal error for this task rather than taking the whole
// process down.
func runGuarded(wg *sync.WaitGroup, name string, fn func() error, errCh chan<- error) {
	defer wg.Done()
	defer func() {
		if r := recover(); r != nil {
			logging.L("supervisor").Error("session task panicked", "task", name, "panic", r, "stack", string(debug.Stack()))
			errCh <- rfb.ErrSessionClosedByServer
		}
	}()
	errCh <- fn()
}
