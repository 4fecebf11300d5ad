package locator

import (
	"context"
	"encoding/binary"
	"testing"
)

// buildHeader assembles a 12-byte DNS message header with the given
// QDCOUNT/ANCOUNT, the rest zeroed.
func buildHeader(qdCount, anCount int) []byte {
	var h [mdnsHeaderLen]byte
	binary.BigEndian.PutUint16(h[4:6], uint16(qdCount))
	binary.BigEndian.PutUint16(h[6:8], uint16(anCount))
	return h[:]
}

// buildRR hand-encodes one resource record: owner name, type, class IN,
// a zero TTL, and raw rdata bytes.
func buildRR(name string, rtype uint16, rdata []byte) []byte {
	var buf []byte
	buf = append(buf, encodeName(name)...)
	buf = binary.BigEndian.AppendUint16(buf, rtype)
	buf = binary.BigEndian.AppendUint16(buf, 1) // class IN
	buf = append(buf, 0, 0, 0, 0)                // TTL
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(rdata)))
	return append(buf, rdata...)
}

// buildSRVRData encodes an SRV record's RDATA: priority, weight, port, target.
func buildSRVRData(port uint16, target string) []byte {
	var buf []byte
	buf = binary.BigEndian.AppendUint16(buf, 0) // priority
	buf = binary.BigEndian.AppendUint16(buf, 0) // weight
	buf = binary.BigEndian.AppendUint16(buf, port)
	return append(buf, encodeName(target)...)
}

func TestFakeLocatorResolve(t *testing.T) {
	l := NewFake(map[string]string{"panels.example.com": "10.0.0.9:5900"})

	addr, err := l.Resolve(context.Background(), "panels.example.com")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if addr != "10.0.0.9:5900" {
		t.Fatalf("unexpected addr: %s", addr)
	}

	if _, err := l.Resolve(context.Background(), "missing.example.com"); err == nil {
		t.Fatalf("expected error for unknown domain")
	}
}

func TestFakeLocatorDiscoverAll(t *testing.T) {
	table := map[string]string{
		"lobby":    "10.0.0.1:5900",
		"entrance": "10.0.0.2:5900",
	}
	l := NewFake(table)

	got, err := l.DiscoverAll(context.Background())
	if err != nil {
		t.Fatalf("DiscoverAll: %v", err)
	}
	if len(got) != len(table) {
		t.Fatalf("expected %d entries, got %d", len(table), len(got))
	}
	for k, v := range table {
		if got[k] != v {
			t.Fatalf("entry %s: got %s want %s", k, got[k], v)
		}
	}
}

func TestEncodeParseNameRoundTrip(t *testing.T) {
	encoded := encodeName(ServiceName)
	name, _, ok := readName(encoded, 0)
	if !ok {
		t.Fatalf("readName failed to decode")
	}
	if name != "_HtVncConf._udp.local" {
		t.Fatalf("unexpected name: %s", name)
	}
}

// TestParseAnswersExtractsSRVPort reproduces the shape of a real mDNS
// PTR-browse response: a PTR answer naming a service instance, plus that
// instance's SRV record carrying its actual port. The port must come from
// the SRV RDATA, not from anything in the UDP envelope.
func TestParseAnswersExtractsSRVPort(t *testing.T) {
	instance := "lobby._HtVncConf._udp.local"
	target := "lobby.local"

	var packet []byte
	packet = append(packet, buildHeader(0, 2)...)
	packet = append(packet, buildRR(ServiceName, rrTypePTR, encodeName(instance))...)
	packet = append(packet, buildRR(instance, rrTypeSRV, buildSRVRData(5900, target))...)

	answers := parseAnswers(packet)
	if len(answers) != 2 {
		t.Fatalf("expected 2 answers, got %d", len(answers))
	}

	ptr := answers[0]
	if ptr.rtype != rrTypePTR || ptr.ptrTarget != instance {
		t.Fatalf("unexpected PTR answer: %+v", ptr)
	}

	srv := answers[1]
	if srv.rtype != rrTypeSRV {
		t.Fatalf("expected SRV answer, got %+v", srv)
	}
	if srv.name != instance {
		t.Fatalf("SRV owner name = %q, want %q", srv.name, instance)
	}
	if srv.srvPort != 5900 {
		t.Fatalf("SRV port = %d, want 5900 (not a UDP source/multicast port)", srv.srvPort)
	}
	if srv.srvTarget != target {
		t.Fatalf("SRV target = %q, want %q", srv.srvTarget, target)
	}
}

// TestBuildSRVQuestionHasSRVType checks the hand-encoded question asks for
// an SRV record (type 33), not a PTR (type 12).
func TestBuildSRVQuestionHasSRVType(t *testing.T) {
	q := buildSRVQuestion(1, "lobby.local")
	nameEnd := len(encodeName("lobby.local")) + mdnsHeaderLen
	qtype := binary.BigEndian.Uint16(q[nameEnd : nameEnd+2])
	if qtype != rrTypeSRV {
		t.Fatalf("QTYPE = %d, want %d (SRV)", qtype, rrTypeSRV)
	}
}

// TestCombineDiscoveriesUsesSRVPort is the regression test for the bug
// where DiscoverAll returned a bare host (the UDP response's incidental
// source address, port 5353) instead of "host:port" built from the
// instance's actual SRV record.
func TestCombineDiscoveriesUsesSRVPort(t *testing.T) {
	instanceHost := map[string]string{
		"lobby._HtVncConf._udp.local.":  "192.168.1.10",
		"noport._HtVncConf._udp.local.": "192.168.1.11",
	}
	srvPort := map[string]uint16{
		"lobby._HtVncConf._udp.local": 5900,
	}

	got := combineDiscoveries(instanceHost, srvPort)

	if got["lobby"] != "192.168.1.10:5900" {
		t.Fatalf("lobby entry = %q, want 192.168.1.10:5900", got["lobby"])
	}
	if _, ok := got["noport"]; ok {
		t.Fatalf("expected instance with no matching SRV record to be dropped, got %q", got["noport"])
	}
}

func TestFirstLabel(t *testing.T) {
	cases := map[string]string{
		"lobby._HtVncConf._udp.local.": "lobby",
		"entrance":                     "entrance",
		"":                             "",
	}
	for in, want := range cases {
		if got := firstLabel(in); got != want {
			t.Fatalf("firstLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
