package proxy

import "github.com/anicolao/mudproxy/internal/telnetfilter"

// handshakeInit is the byte sequence the proxy watches for in the
// server's very first bytes (spec.md §6): IAC DO TTYPE IAC DO NAWS.
var handshakeInit = []byte{
	telnetfilter.IAC, telnetfilter.DO, telnetfilter.OptTType,
	telnetfilter.IAC, telnetfilter.DO, telnetfilter.OptNAWS,
}

// sendHandshakeResponse sends the MPI-identify, XML-mode-enable, and
// prompt-terminator-request sequences (spec.md §6), then begins US-ASCII
// charset negotiation. Order matters: the server reads these as separate
// lines.
func (s *Session) sendHandshakeResponse() {
	s.writeServer([]byte("~$#EI\n"))
	s.writeServer([]byte("~$#EX2\n3G\n"))
	s.writeServer([]byte("~$#EP2\nG\n"))
	s.writeServer(s.filter.RequestCharset("US-ASCII"))
}
