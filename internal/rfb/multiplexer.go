package rfb

import (
	"context"
	"io"

	"github.com/breeze-rmm/kiosk/internal/logging"
	"github.com/breeze-rmm/kiosk/internal/workerpool"
)

var log = logging.L("rfb")

// OutboundChannelCapacity is the bounded FIFO capacity described in §3 and
// §9: large enough to absorb a burst from the touch producer without
// blocking it, small enough that a stuck socket applies backpressure
// quickly.
const OutboundChannelCapacity = 10

// Multiplexer is the single consumer of the outbound channel. It serializes
// ToServerMessage values onto the connection's write half in the order they
// were enqueued; a single-worker workerpool.Pool is the literal execution
// engine, so the FIFO ordering the channel already guarantees is preserved
// all the way to the wire without an extra lock around the socket.
type Multiplexer struct {
	w    io.Writer
	ch   <-chan ToServerMessage
	pool *workerpool.Pool
}

// NewMultiplexer builds a Multiplexer that writes to w, consuming ch.
func NewMultiplexer(w io.Writer, ch <-chan ToServerMessage) *Multiplexer {
	return &Multiplexer{
		w:    w,
		ch:   ch,
		pool: workerpool.New(1, OutboundChannelCapacity),
	}
}

// Run consumes ch until it sees a Terminate message or ctx is cancelled. A
// write error is logged and ends the loop; the decoder's read side will
// observe the resulting EOF and unwind the session on its own.
func (m *Multiplexer) Run(ctx context.Context) error {
	defer m.pool.Shutdown(context.Background())

	for {
		select {
		case msg, ok := <-m.ch:
			if !ok {
				return nil
			}
			if _, isTerminate := msg.(Terminate); isTerminate {
				return nil
			}
			if err := m.write(msg); err != nil {
				log.Warn("outbound write failed", "error", err)
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// write submits msg's bytes to the single-worker pool so writes stay FIFO
// even when several messages are already queued ahead of it.
func (m *Multiplexer) write(msg ToServerMessage) error {
	data := msg.encode()
	if len(data) == 0 {
		return nil
	}
	errCh := make(chan error, 1)
	if !m.pool.Submit(func() {
		_, err := m.w.Write(data)
		errCh <- err
	}) {
		return ErrSendClosed
	}
	return <-errCh
}
