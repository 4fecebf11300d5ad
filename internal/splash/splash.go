// Package splash renders the supervisor's between-session status screens
// (§6, "contract only" as a renderer). The supervisor only needs to signal
// which phase it's in; what appears on glass is a presentation detail the
// kiosk's deployment can swap out, so Display is kept to four phase calls.
package splash

import "github.com/breeze-rmm/kiosk/internal/logging"

var log = logging.L("splash")

// Display is notified of the supervisor's bootstrap phase so it can paint
// (or simply log) a status screen.
type Display interface {
	LookingForManager(domain string)
	QueryingForServer(managerAddr string)
	Connecting(serverAddr string)
	Clear()
}

// LogOnly is a minimal Display that only logs phase transitions. It's the
// default for headless test environments and for panels with no local
// rendering surface configured.
type LogOnly struct{}

func (LogOnly) LookingForManager(domain string) {
	log.Info("looking for manager", "domain", domain)
}

func (LogOnly) QueryingForServer(managerAddr string) {
	log.Info("querying for server", "manager", managerAddr)
}

func (LogOnly) Connecting(serverAddr string) {
	log.Info("connecting", "server", serverAddr)
}

func (LogOnly) Clear() {
	log.Info("session active, clearing splash")
}
