// Package ping emits a periodic keep-alive on the outbound channel (§4.7):
// a ticker paired with a stop channel, generalized from clipboard polling
// to a fixed-interval no-op message.
package ping

import (
	"time"

	"github.com/breeze-rmm/kiosk/internal/rfb"
)

// Producer emits an empty ClientCutText every Interval until stopped.
type Producer struct {
	Interval time.Duration
	send     chan<- rfb.ToServerMessage
}

// NewProducer builds a Producer bound to the session's outbound channel.
func NewProducer(interval time.Duration, send chan<- rfb.ToServerMessage) *Producer {
	return &Producer{Interval: interval, send: send}
}

// Run ticks every Interval, sending an empty SetCurText, until stop closes.
func (p *Producer) Run(stop <-chan struct{}) error {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			select {
			case p.send <- rfb.SetCurTextMsg{Text: ""}:
			case <-stop:
				return nil
			}
		case <-stop:
			return nil
		}
	}
}
