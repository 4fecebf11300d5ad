package locator

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// mdnsGroup is the IPv4 multicast group and port mDNS uses; mirrors
// mdns.DefaultAddressIPv4 without depending on pion/mdns's internal parsing,
// since DiscoverAll needs to read raw packets pion/mdns/v2 doesn't expose.
const mdnsGroup = "224.0.0.251:5353"

// DiscoverAll browses ServiceName for the configured discovery window,
// collecting every responder seen, keyed by the first label of its
// advertised name (§6.2). The returned value is "host:port": the port
// comes from each instance's SRV record (carried in the same response
// packet's additional section, the way real mDNS responders answer a PTR
// browse), never from the UDP response's own source port, which is always
// mDNS's fixed 5353.
func (m *mdnsLocator) DiscoverAll(ctx context.Context) (map[string]string, error) {
	groupAddr, err := net.ResolveUDPAddr("udp4", mdnsGroup)
	if err != nil {
		return nil, fmt.Errorf("locator: resolve mdns group: %w", err)
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return nil, fmt.Errorf("locator: open discovery socket: %w", err)
	}
	defer conn.Close()

	if _, err := conn.WriteToUDP(buildPTRQuestion(uint16(time.Now().UnixNano())), groupAddr); err != nil {
		return nil, fmt.Errorf("locator: send discovery query: %w", err)
	}

	instanceHost := make(map[string]string) // PTR target -> responder host
	srvPort := make(map[string]uint16)      // SRV owner name -> port
	deadline := time.Now().Add(m.discoveryFirstWait)
	extended := false
	buf := make([]byte, 9000)

	for {
		if ctx.Err() != nil {
			break
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		conn.SetReadDeadline(time.Now().Add(remaining))

		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			break // timeout: discovery window elapsed
		}

		host, _, splitErr := net.SplitHostPort(src.String())
		if splitErr != nil {
			host = src.String()
		}

		sawAnswer := false
		for _, ans := range parseAnswers(buf[:n]) {
			switch ans.rtype {
			case rrTypePTR:
				instanceHost[ans.ptrTarget] = host
				sawAnswer = true
			case rrTypeSRV:
				srvPort[strings.TrimSuffix(ans.name, ".")] = ans.srvPort
			}
		}

		// Extend the window once more per §6.2's "200ms after first
		// response" rule, but only the first time we see any answer.
		if sawAnswer && !extended {
			extended = true
			if deadline.Sub(time.Now()) < m.discoveryWindow {
				deadline = time.Now().Add(m.discoveryWindow)
			}
		}
	}

	return combineDiscoveries(instanceHost, srvPort), nil
}

// combineDiscoveries pairs each PTR-discovered instance with the port its
// SRV record advertised, producing the "host:port" values §6.2 requires.
// An instance with no matching SRV record is dropped rather than returned
// with a bogus port.
func combineDiscoveries(instanceHost map[string]string, srvPort map[string]uint16) map[string]string {
	results := make(map[string]string, len(instanceHost))
	for target, host := range instanceHost {
		label := firstLabel(target)
		if label == "" {
			continue
		}
		port, ok := srvPort[strings.TrimSuffix(target, ".")]
		if !ok {
			log.Warn("locator: PTR answer with no matching SRV record, skipping", "target", target)
			continue
		}
		results[label] = fmt.Sprintf("%s:%d", host, port)
	}
	return results
}

func firstLabel(name string) string {
	name = strings.TrimSuffix(name, ".")
	if idx := strings.Index(name, "."); idx >= 0 {
		return name[:idx]
	}
	return name
}
