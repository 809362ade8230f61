package telnetfilter

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// RFC 2066 charset subnegotiation request-type bytes.
const (
	charsetRequest  byte = 1
	charsetAccepted byte = 2
	charsetRejected byte = 3
	charsetTTableIs byte = 4
)

// charmaps maps a charset name (as it appears on the wire) to the Go
// encoding used to translate bytes to and from UTF-8. Grounded on
// Distortions81-LumenClay/internal/game/telnet.go's charsetList table,
// trimmed to the names spec.md's handshake (aiming for US-ASCII) and MUME
// actually advertise.
var charmaps = map[string]*charmap.Charmap{
	"US-ASCII":    charmap.ISO8859_1,
	"ASCII":       charmap.ISO8859_1,
	"LATIN1":      charmap.ISO8859_1,
	"ISO-8859-1":  charmap.ISO8859_1,
	"WINDOWS-1252": charmap.Windows1252,
	"UTF-8":       nil, // UTF-8 needs no charmap translation
}

// qState is this side's Q Method (RFC 1143) negotiation state for a single
// option. The implementation omits RFC 1143's "opposite" renegotiation
// flag: charset is negotiated once per connection, at startup, so the
// race it guards against does not arise here.
type qState int

const (
	qNo qState = iota
	qYes
	qWantNo
	qWantYes
)

// charsetNegotiator tracks Q Method state for the CHARSET option plus the
// outcome of the most recent subnegotiation round.
type charsetNegotiator struct {
	local   qState
	desired string

	negotiatedName string
	accept         bool
	done           bool
}

func newCharsetNegotiator() charsetNegotiator {
	return charsetNegotiator{local: qNo, desired: "US-ASCII"}
}

// request begins Q Method negotiation: if we are not already
// offering/using the option, announce WILL CHARSET.
func (c *charsetNegotiator) request(name string) []byte {
	c.desired = name
	if c.local == qNo {
		c.local = qWantYes
		return []byte{IAC, WILL, OptCharset}
	}
	return nil
}

// handleNegotiation processes a DO/DONT/WILL/WONT CHARSET byte from the
// server, returning any bytes to send back.
func (c *charsetNegotiator) handleNegotiation(cmd byte) []byte {
	switch cmd {
	case DO:
		switch c.local {
		case qWantYes:
			c.local = qYes
			return c.buildRequest()
		case qNo:
			// Server proposed enabling charset unprompted; agree and
			// immediately propose our desired charset.
			c.local = qYes
			return c.buildRequest()
		}
	case DONT:
		c.local = qNo
		c.done = true
		c.accept = false
	case WILL:
		// The server offers to negotiate charset on its own side; we
		// don't drive that direction, but acknowledging keeps the Q
		// Method state machine well-formed.
		return []byte{IAC, DO, OptCharset}
	case WONT:
		// No-op: server declines to let us drive it either way.
	}
	return nil
}

// buildRequest returns the IAC SB CHARSET REQUEST ';' <name> IAC SE bytes
// spec.md §4.2 documents.
func (c *charsetNegotiator) buildRequest() []byte {
	var buf bytes.Buffer
	buf.Write([]byte{IAC, SB, OptCharset, charsetRequest})
	buf.WriteByte(';')
	buf.WriteString(c.desired)
	buf.Write([]byte{IAC, SE})
	return buf.Bytes()
}

// handleSubnegotiation processes the CHARSET subnegotiation payload
// (everything after the option byte, before IAC SE).
func (c *charsetNegotiator) handleSubnegotiation(payload []byte) []byte {
	if len(payload) == 0 {
		return nil
	}
	switch payload[0] {
	case charsetAccepted:
		c.negotiatedName = string(payload[1:])
		c.accept = true
		c.done = true
	case charsetRejected:
		c.accept = false
		c.done = true
	case charsetRequest:
		// The server is asking us to pick from a ';'-delimited list;
		// honor our desired charset if offered, else reject.
		names := strings.Split(string(payload[1:]), ";")
		for _, n := range names {
			if strings.EqualFold(n, c.desired) {
				var buf bytes.Buffer
				buf.Write([]byte{IAC, SB, OptCharset, charsetAccepted})
				buf.WriteString(n)
				buf.Write([]byte{IAC, SE})
				c.negotiatedName = n
				c.accept = true
				c.done = true
				return buf.Bytes()
			}
		}
		c.accept = false
		c.done = true
		return []byte{IAC, SB, OptCharset, charsetRejected, IAC, SE}
	case charsetTTableIs:
		// Translation-table subnegotiation is not supported; ignore.
	}
	return nil
}

func (c *charsetNegotiator) accepted() (string, bool) {
	return c.negotiatedName, c.done && c.accept
}

// Encode translates UTF-8 text to the negotiated charset's byte
// representation. If no charmap applies (UTF-8 negotiated, or nothing
// negotiated yet), text is returned unchanged.
func (c *charsetNegotiator) Encode(text string) []byte {
	cm, ok := charmaps[strings.ToUpper(c.negotiatedName)]
	if !ok || cm == nil {
		return []byte(text)
	}
	out, err := cm.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return []byte(text)
	}
	return out
}

// Decode translates charset-encoded bytes to UTF-8.
func (c *charsetNegotiator) Decode(data []byte) string {
	cm, ok := charmaps[strings.ToUpper(c.negotiatedName)]
	if !ok || cm == nil {
		return string(data)
	}
	out, err := cm.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(out)
}
