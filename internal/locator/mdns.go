package locator

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/pion/mdns/v2"
	"golang.org/x/net/ipv4"
)

// mdnsLocator resolves ServiceName via the multicast DNS group. Resolve
// needs a port, which only an SRV record carries, so it sends a raw SRV
// question itself (the same hand-rolled wire path DiscoverAll uses) and
// then hands the SRV target to pion/mdns/v2's Conn.Query — the call it's
// actually built for: resolving one hostname to an address. Its public
// surface has no SRV/PTR support of its own, which is why both the SRV
// question and the PTR browse in DiscoverAll are constructed directly (see
// discover.go and DESIGN.md).
type mdnsLocator struct {
	resolveTimeout     time.Duration
	discoveryFirstWait time.Duration
	discoveryWindow    time.Duration
}

// New builds a Locator backed by mDNS, applying the §6.2 timeouts.
func New(resolveTimeout, discoveryFirstWait, discoveryWindow time.Duration) Locator {
	return &mdnsLocator{
		resolveTimeout:     resolveTimeout,
		discoveryFirstWait: discoveryFirstWait,
		discoveryWindow:    discoveryWindow,
	}
}

// Resolve asks for domain's SRV record over mDNS, bounded by the 5s resolve
// timeout (§6.2). The SRV record supplies the port; its target hostname is
// then resolved to an address via pion/mdns/v2, since the address a panel
// should dial is the SRV target's, not whichever host happened to answer
// the SRV question (on a single responder these coincide, but the wire
// contract doesn't guarantee it).
func (m *mdnsLocator) Resolve(ctx context.Context, domain string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.resolveTimeout)
	defer cancel()

	name := qualify(domain)
	target, port, err := m.resolveSRV(ctx, name)
	if err != nil {
		return "", fmt.Errorf("locator: resolve %s: %w", domain, err)
	}

	conn, err := m.openConn()
	if err != nil {
		return "", err
	}
	defer conn.Close()

	_, addr, err := conn.Query(ctx, target)
	if err != nil {
		return "", fmt.Errorf("locator: resolve target %s: %w", target, err)
	}

	host, _, splitErr := net.SplitHostPort(addr.String())
	if splitErr != nil {
		// addr may be a bare IP (no port) depending on the responder; fall
		// back to its string form directly.
		host = addr.String()
	}
	return fmt.Sprintf("%s:%d", host, port), nil
}

// resolveSRV sends a raw SRV question for name over the mDNS multicast
// group and returns the first matching answer's target and port. The
// UDP packet's source port is always mDNS's own 5353, so the service port
// has to come from the SRV record's RDATA, not from the response's source
// address.
func (m *mdnsLocator) resolveSRV(ctx context.Context, name string) (target string, port uint16, err error) {
	groupAddr, err := net.ResolveUDPAddr("udp4", mdnsGroup)
	if err != nil {
		return "", 0, fmt.Errorf("resolve mdns group: %w", err)
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return "", 0, fmt.Errorf("open resolve socket: %w", err)
	}
	defer conn.Close()

	if _, err := conn.WriteToUDP(buildSRVQuestion(uint16(time.Now().UnixNano()), name), groupAddr); err != nil {
		return "", 0, fmt.Errorf("send SRV query: %w", err)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(m.resolveTimeout)
	}

	buf := make([]byte, 9000)
	wantName := strings.TrimSuffix(name, ".")
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", 0, fmt.Errorf("no SRV answer for %s", name)
		}
		conn.SetReadDeadline(time.Now().Add(remaining))

		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			return "", 0, fmt.Errorf("no SRV answer for %s: %w", name, err)
		}

		for _, ans := range parseAnswers(buf[:n]) {
			if ans.rtype == rrTypeSRV && strings.EqualFold(strings.TrimSuffix(ans.name, "."), wantName) {
				return ans.srvTarget, ans.srvPort, nil
			}
		}
	}
}

func (m *mdnsLocator) openConn() (*mdns.Conn, error) {
	addr4, err := net.ResolveUDPAddr("udp4", mdns.DefaultAddressIPv4)
	if err != nil {
		return nil, fmt.Errorf("locator: resolve multicast addr: %w", err)
	}
	l4, err := net.ListenUDP("udp4", addr4)
	if err != nil {
		return nil, fmt.Errorf("locator: listen multicast: %w", err)
	}

	conn, err := mdns.Server(ipv4.NewPacketConn(l4), nil, &mdns.Config{})
	if err != nil {
		l4.Close()
		return nil, fmt.Errorf("locator: start mdns conn: %w", err)
	}
	return conn, nil
}

func qualify(domain string) string {
	domain = strings.TrimSuffix(domain, ".")
	if strings.HasSuffix(domain, ".local") {
		return domain
	}
	return domain + ".local"
}

// mdnsHeaderLen is the fixed 12-byte DNS message header.
const mdnsHeaderLen = 12

// Resource record types this package decodes from raw mDNS responses.
const (
	rrTypePTR = 12
	rrTypeSRV = 33
)

// buildPTRQuestion hand-encodes a minimal DNS question for ServiceName, PTR
// type, class IN. DiscoverAll needs to collect answers from every
// responder within the discovery window, which pion/mdns/v2's Query (built
// to resolve a single name and return on first match) cannot do, so the
// browse-style query here is constructed directly.
func buildPTRQuestion(id uint16) []byte {
	return buildQuestion(id, ServiceName, rrTypePTR)
}

// buildSRVQuestion hand-encodes a DNS question for name, SRV type, class
// IN, used by Resolve to learn a manager's port (§6.2).
func buildSRVQuestion(id uint16, name string) []byte {
	return buildQuestion(id, name, rrTypeSRV)
}

func buildQuestion(id uint16, name string, qtype uint16) []byte {
	var buf []byte
	var header [mdnsHeaderLen]byte
	binary.BigEndian.PutUint16(header[0:2], id)
	binary.BigEndian.PutUint16(header[4:6], 1) // QDCOUNT
	buf = append(buf, header[:]...)
	buf = append(buf, encodeName(name)...)
	buf = binary.BigEndian.AppendUint16(buf, qtype)
	buf = binary.BigEndian.AppendUint16(buf, 1) // QCLASS IN
	return buf
}

func encodeName(name string) []byte {
	name = strings.TrimSuffix(name, ".")
	var buf []byte
	for _, label := range strings.Split(name, ".") {
		buf = append(buf, byte(len(label)))
		buf = append(buf, label...)
	}
	return append(buf, 0x00)
}

// mdnsAnswer is one resource record pulled out of a raw mDNS response: its
// owner name, type, and the fields relevant to that type (ptrTarget for
// PTR, srvTarget/srvPort for SRV).
type mdnsAnswer struct {
	name      string
	rtype     uint16
	ptrTarget string
	srvTarget string
	srvPort   uint16
}

// parseAnswers walks every resource record across the answer, authority,
// and additional sections of a raw mDNS response, handling the DNS
// message-compression pointer (a leading 0xC0 byte) the way real responses
// use it. Real responders answering a PTR browse query pack the matching
// SRV (and A) records for each instance into the same packet's additional
// section, so DiscoverAll can pair a PTR target with its port without a
// second round trip.
func parseAnswers(data []byte) []mdnsAnswer {
	if len(data) < mdnsHeaderLen {
		return nil
	}
	qdCount := int(binary.BigEndian.Uint16(data[4:6]))
	rrCount := int(binary.BigEndian.Uint16(data[6:8])) +
		int(binary.BigEndian.Uint16(data[8:10])) +
		int(binary.BigEndian.Uint16(data[10:12]))

	pos := mdnsHeaderLen
	for i := 0; i < qdCount; i++ {
		_, next, ok := readName(data, pos)
		if !ok {
			return nil
		}
		pos = next + 4 // QTYPE + QCLASS
	}

	var answers []mdnsAnswer
	for i := 0; i < rrCount; i++ {
		name, next, ok := readName(data, pos)
		if !ok {
			return answers
		}
		pos = next
		if pos+10 > len(data) {
			return answers
		}
		rtype := binary.BigEndian.Uint16(data[pos : pos+2])
		rdlength := int(binary.BigEndian.Uint16(data[pos+8 : pos+10]))
		pos += 10
		if pos+rdlength > len(data) {
			return answers
		}

		switch rtype {
		case rrTypePTR:
			if target, _, ok := readName(data, pos); ok {
				answers = append(answers, mdnsAnswer{name: name, rtype: rtype, ptrTarget: target})
			}
		case rrTypeSRV:
			if rdlength >= 6 {
				port := binary.BigEndian.Uint16(data[pos+4 : pos+6])
				target, _, ok := readName(data, pos+6)
				if ok {
					answers = append(answers, mdnsAnswer{name: name, rtype: rtype, srvTarget: target, srvPort: port})
				}
			}
		}
		pos += rdlength
	}
	return answers
}

// readName decodes a (possibly compressed) DNS name starting at pos,
// returning the name and the offset immediately after it in the original
// message (not following any compression pointer).
func readName(data []byte, pos int) (string, int, bool) {
	var labels []string
	start := pos
	jumped := false
	end := pos

	for i := 0; i < 128; i++ { // bound pointer chains against malformed input
		if pos >= len(data) {
			return "", 0, false
		}
		length := int(data[pos])
		if length == 0 {
			pos++
			if !jumped {
				end = pos
			}
			return strings.Join(labels, "."), end, true
		}
		if length&0xC0 == 0xC0 {
			if pos+1 >= len(data) {
				return "", 0, false
			}
			if !jumped {
				end = pos + 2
				jumped = true
			}
			pos = int(binary.BigEndian.Uint16([]byte{data[pos] & 0x3F, data[pos+1]}))
			continue
		}
		pos++
		if pos+length > len(data) {
			return "", 0, false
		}
		labels = append(labels, string(data[pos:pos+length]))
		pos += length
	}
	_ = start
	return "", 0, false
}
