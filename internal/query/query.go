// Package query implements the kiosk's UDP broker handshake (§6.3): a
// length-prefixed key/value request/response exchanged with the manager
// discovered via internal/locator, used to learn which RFB server a panel
// should connect to.
//
// The wire shape here (2-byte big-endian length prefixes, string pairs,
// terminated by two zero-length strings) has no analogue in the example
// pack's dependency closure, so the client is written directly against
// net.ListenUDP / net.DialUDP rather than through a library.
package query

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/breeze-rmm/kiosk/internal/logging"
)

var log = logging.L("query")

// FormFactor is the fixed literal value every request advertises (§6.3).
const FormFactor = "InWallPanel"

// Request identifies the panel asking for a server assignment.
type Request struct {
	Name        string
	ScreenWidth int
	ScreenHeight int
}

// Response carries the server the manager assigned to this panel.
type Response struct {
	Server string
	Port   int
}

// Client sends Requests to a manager address and parses its Response.
type Client struct {
	Attempts int
	Timeout  time.Duration
}

// NewClient builds a Client that makes up to attempts tries (at least one),
// each bounded by timeout. The supervisor passes the configured values,
// which default to 3 attempts of 3s each.
func NewClient(attempts int, timeout time.Duration) *Client {
	if attempts < 1 {
		attempts = 1
	}
	return &Client{Attempts: attempts, Timeout: timeout}
}

// Ask sends req to managerAddr, retrying up to Attempts times. Each attempt
// gets its own ephemeral UDP socket bound to 0.0.0.0:0, matching §6.3.
func (c *Client) Ask(ctx context.Context, managerAddr string, req Request) (Response, error) {
	var lastErr error
	for attempt := 0; attempt < c.Attempts; attempt++ {
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		resp, err := c.askOnce(ctx, managerAddr, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		log.Warn("query attempt failed", "attempt", attempt+1, "error", err)
	}
	return Response{}, fmt.Errorf("query: all %d attempts failed: %w", c.Attempts, lastErr)
}

func (c *Client) askOnce(ctx context.Context, managerAddr string, req Request) (Response, error) {
	raddr, err := net.ResolveUDPAddr("udp", managerAddr)
	if err != nil {
		return Response{}, fmt.Errorf("query: resolve %s: %w", managerAddr, err)
	}
	laddr := &net.UDPAddr{IP: net.IPv4zero, Port: 0}

	conn, err := net.DialUDP("udp", laddr, raddr)
	if err != nil {
		return Response{}, fmt.Errorf("query: dial %s: %w", managerAddr, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.Timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return Response{}, fmt.Errorf("query: set deadline: %w", err)
	}

	if _, err := conn.Write(encodeRequest(req)); err != nil {
		return Response{}, fmt.Errorf("query: write request: %w", err)
	}

	buf := make([]byte, 2048)
	n, err := conn.Read(buf)
	if err != nil {
		return Response{}, fmt.Errorf("query: read response: %w", err)
	}

	return decodeResponse(buf[:n])
}

// encodeRequest writes the required key/value pairs then the terminating
// zero-length/zero-length pair.
func encodeRequest(req Request) []byte {
	var buf bytes.Buffer
	writePair(&buf, "Name", req.Name)
	writePair(&buf, "ScreenWidth", fmt.Sprintf("%d", req.ScreenWidth))
	writePair(&buf, "ScreenHeight", fmt.Sprintf("%d", req.ScreenHeight))
	writePair(&buf, "FormFactor", FormFactor)
	writeString(&buf, "")
	writeString(&buf, "")
	return buf.Bytes()
}

func writePair(buf *bytes.Buffer, key, value string) {
	writeString(buf, key)
	writeString(buf, value)
}

func writeString(buf *bytes.Buffer, s string) {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(s)))
	buf.Write(lenBuf[:])
	buf.WriteString(s)
}

// decodeResponse reads string pairs until the terminating zero-length pair
// or the buffer is exhausted, and extracts Server/Port.
func decodeResponse(data []byte) (Response, error) {
	fields := make(map[string]string)
	pos := 0
	for {
		key, next, ok := readString(data, pos)
		if !ok {
			return Response{}, fmt.Errorf("query: truncated response at offset %d", pos)
		}
		pos = next
		value, next, ok := readString(data, pos)
		if !ok {
			return Response{}, fmt.Errorf("query: truncated response at offset %d", pos)
		}
		pos = next

		if key == "" && value == "" {
			break
		}
		fields[key] = value

		if pos >= len(data) {
			break
		}
	}

	server, ok := fields["Server"]
	if !ok {
		return Response{}, fmt.Errorf("query: response missing Server key")
	}
	portStr, ok := fields["Port"]
	if !ok {
		return Response{}, fmt.Errorf("query: response missing Port key")
	}
	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return Response{}, fmt.Errorf("query: invalid Port value %q: %w", portStr, err)
	}

	return Response{Server: server, Port: port}, nil
}

func readString(data []byte, pos int) (string, int, bool) {
	if pos+2 > len(data) {
		return "", pos, false
	}
	length := int(binary.BigEndian.Uint16(data[pos : pos+2]))
	pos += 2
	if pos+length > len(data) {
		return "", pos, false
	}
	return string(data[pos : pos+length]), pos + length, true
}
