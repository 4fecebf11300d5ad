// Package locator resolves the mDNS-advertised manager a kiosk panel should
// query for its RFB server assignment (§6.2). The interface is deliberately
// narrow so the supervisor can be driven by a fakeLocator in tests without
// touching the network.
package locator

import (
	"context"
	"fmt"

	"github.com/breeze-rmm/kiosk/internal/logging"
)

var log = logging.L("locator")

// ServiceName is the mDNS service this panel resolves and browses for.
const ServiceName = "_HtVncConf._udp.local"

// Locator finds a manager's address either by domain name or by browsing
// everything currently advertised on the local segment.
type Locator interface {
	// Resolve returns "host:port" for domain, or an error if nothing answers
	// within the configured timeout.
	Resolve(ctx context.Context, domain string) (string, error)
	// DiscoverAll returns every responder seen within the discovery window,
	// keyed by the first label of its advertised name.
	DiscoverAll(ctx context.Context) (map[string]string, error)
}

// fakeLocator is a fixed domain -> address table, used by supervisor tests
// in place of a real mDNS round trip.
type fakeLocator struct {
	table map[string]string
}

// NewFake builds a Locator backed by a fixed table, for tests.
func NewFake(table map[string]string) Locator {
	return &fakeLocator{table: table}
}

func (f *fakeLocator) Resolve(_ context.Context, domain string) (string, error) {
	addr, ok := f.table[domain]
	if !ok {
		return "", fmt.Errorf("locator: no record for domain %q", domain)
	}
	return addr, nil
}

func (f *fakeLocator) DiscoverAll(_ context.Context) (map[string]string, error) {
	out := make(map[string]string, len(f.table))
	for k, v := range f.table {
		out[k] = v
	}
	return out, nil
}
