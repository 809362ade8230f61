package proxy

import (
	"bytes"
	"io"
	"net"
	"strings"
	"time"

	"github.com/anicolao/mudproxy/internal/eventbus"
	"github.com/anicolao/mudproxy/internal/telnetfilter"
)

// serverPump is the server-to-client pump (spec.md §5): reads raw bytes
// from the MUD server, drives them through the telnet filter, MPI
// handler, and XML tokenizer, writes the result to the client, and posts
// decoded events onto the bus. It owns the handshake-detection state.
func (s *Session) serverPump() {
	defer s.shutdown()

	buf := make([]byte, 4096)
	var handshakeBuf []byte
	handshakeDone := false

	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		s.server.SetReadDeadline(time.Now().Add(readTimeout))
		n, err := s.server.Read(buf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if err != io.EOF {
				s.logf("server read error: %v", err)
			}
			return
		}
		if n == 0 {
			continue
		}
		chunk := append([]byte(nil), buf[:n]...)

		if !handshakeDone {
			handshakeBuf = append(handshakeBuf, chunk...)
			if len(handshakeBuf) < len(handshakeInit) {
				continue
			}
			if bytes.Equal(handshakeBuf[:len(handshakeInit)], handshakeInit) {
				s.sendHandshakeResponse()
			}
			handshakeDone = true
			chunk = handshakeBuf
			handshakeBuf = nil
		}

		s.handleServerChunk(chunk)
	}
}

// handleServerChunk processes one telnet-filtered chunk and writes the
// client-bound result.
//
// The filter's Result duplicates content across Passthrough and Text
// (spec.md §4.2, testable property #1): Passthrough is a faithful record
// of what the client would see with no MPI/XML processing at all, and
// Text is what the MPI/XML pipeline parses. Writing both verbatim would
// double-send every line, so this chunk either carries content or it
// doesn't:
//   - No content (negotiation, subnegotiation, a standalone GA): forward
//     Passthrough as-is. This is also what spec.md's S1 scenario requires
//     for the initial handshake bytes.
//   - Content present: write the tokenizer's rendering of
//     mpiHandler.Feed(Text) instead of Passthrough, then append one
//     prompt terminator per GA observed in the chunk (derived from the
//     GAs counter, not sliced out of Passthrough) to cover the common
//     case of a prompt's IAC GA arriving in the same read as its text.
//
// A telnet negotiation byte interleaved with content within the same
// read() is dropped from the client-bound stream under this scheme; see
// DESIGN.md for why that's an accepted simplification.
func (s *Session) handleServerChunk(chunk []byte) {
	res := s.filter.Feed(chunk)
	if res.ToServer != nil {
		s.writeServer(res.ToServer)
	}
	// One iac_ga event per GA, posted after the events the tokenizer
	// emitted for this chunk's text.
	defer func() {
		for i := 0; i < res.GAs; i++ {
			s.bus.PostMudEvent(eventbus.EventIACGA, "")
		}
	}()

	if len(res.Text) == 0 {
		s.writeClient(res.Passthrough)
		return
	}

	rendered := s.tokenizer.Feed(s.mpiHandler.Feed(res.Text))
	s.writeClient(rendered)

	if res.GAs > 0 {
		term := s.filter.PromptTerminator
		if term == nil {
			term = []byte{telnetfilter.IAC, telnetfilter.GA}
		}
		for i := 0; i < res.GAs; i++ {
			s.writeClient(term)
		}
	}
}

// clientPump is the client-to-server pump (spec.md §5): reads
// newline-delimited lines from the client and either diverts them to the
// bus (recognized mapper commands) or forwards them straight to the
// server.
func (s *Session) clientPump() {
	defer s.shutdown()

	buf := make([]byte, 4096)
	var accumulated bytes.Buffer

	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		s.client.SetReadDeadline(time.Now().Add(readTimeout))
		n, err := s.client.Read(buf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if err != io.EOF {
				s.logf("client read error: %v", err)
			}
			return
		}
		if n == 0 {
			continue
		}
		accumulated.Write(buf[:n])

		for {
			data := accumulated.Bytes()
			idx := bytes.IndexByte(data, '\n')
			if idx < 0 {
				break
			}
			line := strings.TrimRight(string(data[:idx]), "\r")
			rest := append([]byte(nil), data[idx+1:]...)
			accumulated.Reset()
			accumulated.Write(rest)

			s.handleClientLine(line)
		}
	}
}

func (s *Session) handleClientLine(line string) {
	if s.worker.RecognizesCommand(line) {
		s.bus.PostUserData([]byte(line))
		return
	}
	s.writeServer([]byte(line + "\r\n"))
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
