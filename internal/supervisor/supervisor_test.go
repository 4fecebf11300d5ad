package supervisor

import (
	"bytes"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/breeze-rmm/kiosk/internal/config"
	"github.com/breeze-rmm/kiosk/internal/locator"
	"github.com/breeze-rmm/kiosk/internal/rfb"
)

// fakeScreen satisfies the Screen interface without touching a device.
type fakeScreen struct {
	mu sync.Mutex
}

func (f *fakeScreen) WritePixel(x, y int, p rfb.DevicePixel) {}
func (f *fakeScreen) Commit() error                          { return nil }
func (f *fakeScreen) Lock()                                  { f.mu.Lock() }
func (f *fakeScreen) Unlock()                                { f.mu.Unlock() }
func (f *fakeScreen) Dimensions() (int, int)                 { return 800, 480 }

// fakeDisplay records which phase calls were made.
type fakeDisplay struct {
	mu    sync.Mutex
	calls []string
}

func (d *fakeDisplay) record(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, name)
}
func (d *fakeDisplay) LookingForManager(string)  { d.record("locate") }
func (d *fakeDisplay) QueryingForServer(string)   { d.record("query") }
func (d *fakeDisplay) Connecting(string)          { d.record("connect") }
func (d *fakeDisplay) Clear()                     { d.record("clear") }
func (d *fakeDisplay) snapshot() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

// serverInitBytes builds a minimal 640x480 same-format ServerInit payload,
// matching rfb's own handshake test fixture.
func serverInitBytes() []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0x02, 0x80}) // width 640
	buf.Write([]byte{0x01, 0xE0}) // height 480
	buf.Write([]byte{
		16, 16, 0, 1,
		0, 63,
		0, 127,
		0, 63,
		10, 4, 0,
		0, 0, 0,
	})
	buf.Write([]byte{0, 0, 0, 1})
	buf.WriteByte('X')
	return buf.Bytes()
}

// serveOneHandshakeThenHangUp plays the server side of one handshake over
// conn and then closes it, so the decoder's next read fails cleanly and the
// session ends.
func serveOneHandshakeThenHangUp(conn net.Conn) {
	defer conn.Close()

	// Drain whatever the client sends (version banner, security, client
	// init, SetEncodings, FrameUpdateRequest) until it stops or errs. This
	// runs alongside the writes below because net.Pipe is synchronous: each
	// side's Write blocks until the other side reads it.
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		buf := make([]byte, 4096)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
		}
	}()

	conn.Write([]byte("RFB 003.008\n"))
	conn.Write([]byte{0x01, 0x01})
	conn.Write([]byte{0, 0, 0, 0})
	conn.Write(serverInitBytes())
	<-drained
}

func TestRunDirectCompletesOneSessionCycle(t *testing.T) {
	cfg := config.Default()
	cfg.DirectRetryDelay = 5 * time.Millisecond
	cfg.PingInterval = time.Hour // keep ping quiet for this test

	display := &fakeDisplay{}
	scr := &fakeScreen{}

	sup := New(cfg, scr, locator.NewFake(nil), display, "", "test-panel")

	var dialCount int
	var mu sync.Mutex
	sup.dial = func(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
		mu.Lock()
		dialCount++
		n := dialCount
		mu.Unlock()

		if n > 1 {
			return nil, context.DeadlineExceeded
		}

		client, server := net.Pipe()
		go serveOneHandshakeThenHangUp(server)
		return client, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_ = sup.RunDirect(ctx, "10.0.0.1:5900")

	calls := display.snapshot()
	if len(calls) == 0 {
		t.Fatalf("expected splash phase calls, got none")
	}
	foundConnect, foundClear := false, false
	for _, c := range calls {
		if c == "connect" {
			foundConnect = true
		}
		if c == "clear" {
			foundClear = true
		}
	}
	if !foundConnect || !foundClear {
		t.Fatalf("expected connect and clear phases, got %v", calls)
	}
}

func TestRunDomainDropsManagerOnQueryFailure(t *testing.T) {
	cfg := config.Default()
	cfg.QueryAttempts = 1
	cfg.QueryTimeout = 10 * time.Millisecond

	display := &fakeDisplay{}
	scr := &fakeScreen{}

	loc := locator.NewFake(map[string]string{"panels.example.com": "127.0.0.1:1"})
	sup := New(cfg, scr, loc, display, "", "test-panel")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	_ = sup.RunDomain(ctx, "panels.example.com")

	calls := display.snapshot()
	sawLocate, sawQuery := false, false
	for _, c := range calls {
		if c == "locate" {
			sawLocate = true
		}
		if c == "query" {
			sawQuery = true
		}
	}
	if !sawLocate || !sawQuery {
		t.Fatalf("expected both locate and query phases, got %v", calls)
	}
}
