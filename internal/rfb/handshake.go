package rfb

import "io"

// Handshake runs the deterministic 5-step sequence of §4.3 against a server
// stream, writing client bytes to w and reading server bytes via f. On
// success it returns the negotiated ServerInfo; any short read, bad security
// count, or non-zero security result is returned as a fatal error and the
// session must be unwound by the caller.
func Handshake(f *Framer, w io.Writer) (ServerInfo, error) {
	// Step 1: version banner.
	var banner [12]byte
	if err := f.ReadExact(banner[:]); err != nil {
		return ServerInfo{}, err
	}
	if _, err := w.Write(ProtocolVersionMsg{}.encode()); err != nil {
		return ServerInfo{}, err
	}

	// Step 2: security types.
	count, err := f.ReadU8()
	if err != nil {
		return ServerInfo{}, err
	}
	if count == 0 {
		msg, err := f.ReadStringBE32Len()
		if err != nil {
			return ServerInfo{}, err
		}
		return ServerInfo{}, &ServerError{Message: msg}
	}
	types := make([]byte, count)
	if err := f.ReadExact(types); err != nil {
		return ServerInfo{}, err
	}
	if _, err := w.Write(SecurityMsg{Type: SecurityTypeNone}.encode()); err != nil {
		return ServerInfo{}, err
	}

	// Step 3: security result.
	result, err := f.ReadU32BE()
	if err != nil {
		return ServerInfo{}, err
	}
	if result != 0 {
		msg, err := f.ReadStringBE32Len()
		if err != nil {
			return ServerInfo{}, err
		}
		return ServerInfo{}, &ServerError{Message: msg}
	}

	// Step 4: client-init.
	if _, err := w.Write(ClientInitMsg{Shared: true}.encode()); err != nil {
		return ServerInfo{}, err
	}

	// Step 5: ServerInit.
	width, err := f.ReadU16BE()
	if err != nil {
		return ServerInfo{}, err
	}
	height, err := f.ReadU16BE()
	if err != nil {
		return ServerInfo{}, err
	}
	pf, err := f.ReadPixelFormat()
	if err != nil {
		return ServerInfo{}, err
	}
	name, err := f.ReadStringBE32Len()
	if err != nil {
		return ServerInfo{}, err
	}

	if _, err := w.Write(SetEncodingsMsg{Encodings: preferredEncodings}.encode()); err != nil {
		return ServerInfo{}, err
	}

	return ServerInfo{Width: width, Height: height, PixelFormat: pf, Name: name}, nil
}
