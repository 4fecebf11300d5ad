// Package supervisor drives the kiosk's outer bootstrap state machine
// (§4.1): LOCATE → QUERY → CONNECT → SESSION, looping forever and absorbing
// every session-fatal error so the process itself never exits because of a
// bad server, a missing manager, or a dropped connection.
package supervisor

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/breeze-rmm/kiosk/internal/config"
	"github.com/breeze-rmm/kiosk/internal/locator"
	"github.com/breeze-rmm/kiosk/internal/logging"
	"github.com/breeze-rmm/kiosk/internal/query"
	"github.com/breeze-rmm/kiosk/internal/rfb"
	"github.com/breeze-rmm/kiosk/internal/splash"
)

var log = logging.L("supervisor")

// Dialer opens the RFB TCP connection. Substitutable in tests so CONNECT
// can be driven without a real socket.
type Dialer func(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error)

// DialTCP is the production Dialer.
func DialTCP(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}
	return d.DialContext(ctx, "tcp", addr)
}

// Screen is the subset of *screen.Screen the supervisor needs: a
// rfb.Display the session leases exclusively, plus the lock/unlock handoff
// the supervisor uses to reclaim it for splash rendering between sessions.
type Screen interface {
	rfb.Display
	Lock()
	Unlock()
	Dimensions() (width, height int)
}

// Supervisor owns everything that survives across sessions: the screen, the
// touch device, the locator/query collaborators, and the configuration.
type Supervisor struct {
	cfg         *config.Config
	scr         Screen
	loc         locator.Locator
	queryClient *query.Client
	display     splash.Display
	touchDevice string
	dial        Dialer
	panelName   string
}

// New builds a Supervisor. touchDevice is the evdev device path; an empty
// string skips the touch producer (useful for headless/test panels). The
// path, not an open handle, is stored: each session opens and closes its
// own handle so closing it can interrupt a pending read (see
// internal/touch.Producer.Run).
func New(cfg *config.Config, scr Screen, loc locator.Locator, display splash.Display, touchDevice string, panelName string) *Supervisor {
	return &Supervisor{
		cfg:         cfg,
		scr:         scr,
		loc:         loc,
		queryClient: query.NewClient(cfg.QueryAttempts, cfg.QueryTimeout),
		display:     display,
		touchDevice: touchDevice,
		dial:        DialTCP,
		panelName:   panelName,
	}
}

// RunDomain implements run_domain(domain): the full LOCATE→QUERY→CONNECT→
// SESSION cycle, looping until ctx is cancelled.
func (s *Supervisor) RunDomain(ctx context.Context, domain string) error {
	for ctx.Err() == nil {
		s.display.LookingForManager(domain)
		managerAddr, err := s.loc.Resolve(ctx, domain)
		if err != nil {
			log.Warn("locate failed", "domain", domain, "error", err)
			continue
		}
		s.queryAndConnectLoop(ctx, domain, managerAddr)
	}
	return ctx.Err()
}

// RunDirect implements run_direct(addr): starts directly in CONNECT→SESSION,
// retrying the connection forever on failure.
func (s *Supervisor) RunDirect(ctx context.Context, addr string) error {
	s.connectLoop(ctx, addr, false)
	return ctx.Err()
}

// queryAndConnectLoop implements QUERY, returning to LOCATE on failure
// (caller's loop re-resolves domain).
func (s *Supervisor) queryAndConnectLoop(ctx context.Context, domain, managerAddr string) {
	for ctx.Err() == nil {
		s.display.QueryingForServer(managerAddr)

		width, height := s.scr.Dimensions()
		resp, err := s.queryClient.Ask(ctx, managerAddr, query.Request{
			Name:         s.panelName,
			ScreenWidth:  width,
			ScreenHeight: height,
		})
		if err != nil {
			log.Warn("query failed, dropping manager", "manager", managerAddr, "error", err)
			return
		}

		serverAddr := fmt.Sprintf("%s:%d", resp.Server, resp.Port)
		s.connectLoop(ctx, serverAddr, true)
	}
}

// connectLoop implements CONNECT→SESSION→CONNECT. In domain mode a connect
// failure returns control to the caller (QUERY); in direct mode it sleeps
// and retries the same address forever.
func (s *Supervisor) connectLoop(ctx context.Context, serverAddr string, domainMode bool) {
	for ctx.Err() == nil {
		s.display.Connecting(serverAddr)

		conn, err := s.dial(ctx, serverAddr, s.cfg.ConnectTimeout)
		if err != nil {
			log.Warn("connect failed", "server", serverAddr, "error", err)
			if domainMode {
				return
			}
			select {
			case <-time.After(s.cfg.DirectRetryDelay):
				continue
			case <-ctx.Done():
				return
			}
		}

		s.display.Clear()
		s.runSession(ctx, conn)
		conn.Close()
		// Session ended (normal or error): loop back to CONNECT against the
		// same address (§4.1).
	}
}
