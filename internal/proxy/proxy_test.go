package proxy

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/anicolao/mudproxy/internal/config"
	"github.com/anicolao/mudproxy/internal/mapper"
	"github.com/anicolao/mudproxy/internal/telnetfilter"
	"github.com/anicolao/mudproxy/internal/worker"
)

// testConfig returns a config.Default() with the MPI pager/editor pointed
// at a command that exits immediately, so a test exercising the MPI view
// path doesn't shell out to a real pager.
func testConfig() *config.ProxyConfig {
	cfg := config.Default()
	cfg.Pager = "true"
	cfg.Editor = "true"
	return cfg
}

// newTestSession wires a Session between two net.Pipe connections so a test
// can play the role of both the client and the remote MUD server. The
// returned done channel closes once s.run() returns.
func newTestSession(cfg *config.ProxyConfig, m *mapper.Map) (s *Session, clientTest, serverTest net.Conn, done <-chan struct{}) {
	clientProxy, clientTest := net.Pipe()
	serverProxy, serverTest := net.Pipe()
	s = newSession(clientProxy, serverProxy, cfg, nil)
	s.worker = worker.New(m, cfg, s.sendClientLine, s.sendServerLine, time.Unix(0, 0))

	d := make(chan struct{})
	go func() {
		defer close(d)
		s.run()
	}()
	return s, clientTest, serverTest, d
}

// readAvailable collects bytes arriving on conn until reads go quiet for
// quietFor, or overallTimeout elapses with nothing received at all.
func readAvailable(conn net.Conn, quietFor, overallTimeout time.Duration) []byte {
	var buf bytes.Buffer
	deadline := time.Now().Add(overallTimeout)
	b := make([]byte, 4096)
	for {
		conn.SetReadDeadline(time.Now().Add(quietFor))
		n, err := conn.Read(b)
		if n > 0 {
			buf.Write(b[:n])
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				if buf.Len() > 0 || time.Now().After(deadline) {
					return buf.Bytes()
				}
				continue
			}
			return buf.Bytes()
		}
	}
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not shut down in time")
	}
}

// TestHandshakeDetectionEchoesPassthroughAndRepliesToServer covers spec.md
// S1: the proxy recognizes the server's initial IAC DO TTYPE IAC DO NAWS,
// answers with the MPI-identify/XML-mode/prompt-terminator sequences plus a
// charset request, and forwards the handshake bytes to the client
// unchanged.
func TestHandshakeDetectionEchoesPassthroughAndRepliesToServer(t *testing.T) {
	m := mapper.NewMap()
	s, clientTest, serverTest, done := newTestSession(testConfig(), m)

	if _, err := serverTest.Write(handshakeInit); err != nil {
		t.Fatalf("write handshake: %v", err)
	}

	toServer := readAvailable(serverTest, 150*time.Millisecond, time.Second)
	wantPrefix := []byte("~$#EI\n~$#EX2\n3G\n~$#EP2\nG\n")
	if !bytes.HasPrefix(toServer, wantPrefix) {
		t.Errorf("handshake reply = %q, want prefix %q", toServer, wantPrefix)
	}

	toClient := readAvailable(clientTest, 150*time.Millisecond, time.Second)
	if !bytes.Equal(toClient, handshakeInit) {
		t.Errorf("client saw %v, want the handshake bytes unchanged %v", toClient, handshakeInit)
	}

	clientTest.Close()
	serverTest.Close()
	waitDone(t, done)
	_ = s
}

// TestServerContentRendersAndAppendsPromptTerminator covers spec.md S2: XML
// room/prompt tags are stripped of markup for the client, and a trailing
// IAC GA in the same read becomes the configured prompt terminator rather
// than being forwarded raw.
func TestServerContentRendersAndAppendsPromptTerminator(t *testing.T) {
	m := mapper.NewMap()
	cfg := testConfig()
	cfg.PromptTerminator = "\n"
	s, clientTest, serverTest, done := newTestSession(cfg, m)

	chunk := []byte("<room><name>A Dim Room</name><description>It is dark here.</description></room><prompt>xx</prompt>")
	chunk = append(chunk, telnetfilter.IAC, telnetfilter.GA)

	if _, err := serverTest.Write(chunk); err != nil {
		t.Fatalf("write server content: %v", err)
	}

	toClient := readAvailable(clientTest, 150*time.Millisecond, time.Second)
	for _, want := range []string{"A Dim Room", "It is dark here.", "xx"} {
		if !bytes.Contains(toClient, []byte(want)) {
			t.Errorf("client output %q missing %q", toClient, want)
		}
	}
	if !bytes.HasSuffix(toClient, []byte("\n")) {
		t.Errorf("client output %q, want trailing configured prompt terminator", toClient)
	}
	if bytes.Contains(toClient, []byte{telnetfilter.IAC, telnetfilter.GA}) {
		t.Errorf("client output %q, want raw IAC GA replaced by the configured terminator", toClient)
	}

	clientTest.Close()
	serverTest.Close()
	waitDone(t, done)
	_ = s
}

// TestMPIViewEnvelopeNeverReachesClient covers spec.md S6: an MPI view
// envelope interleaved with ordinary text is consumed entirely by the MPI
// handler, and no envelope byte reaches the client.
func TestMPIViewEnvelopeNeverReachesClient(t *testing.T) {
	m := mapper.NewMap()
	s, clientTest, serverTest, done := newTestSession(testConfig(), m)

	chunk := []byte("\n~$#EV5\nhello")
	if _, err := serverTest.Write(chunk); err != nil {
		t.Fatalf("write server content: %v", err)
	}

	toClient := readAvailable(clientTest, 150*time.Millisecond, time.Second)
	if bytes.Contains(toClient, []byte("~$#E")) {
		t.Errorf("client output %q, want no MPI envelope bytes", toClient)
	}
	if bytes.Contains(toClient, []byte("hello")) {
		t.Errorf("client output %q, want the view payload withheld from the client", toClient)
	}
	if !bytes.Equal(toClient, []byte("\n")) {
		t.Errorf("client output = %q, want only the leading newline to survive", toClient)
	}

	clientTest.Close()
	serverTest.Close()
	waitDone(t, done)
	_ = s
}

// TestClientPumpDivertsRecognizedCommandsElsePassesThrough covers the
// client-to-server pump's command-recognition branch: a line the mapper
// worker recognizes is diverted to the bus and answered on the client
// socket, while an ordinary game command passes straight through to the
// server unmodified.
func TestClientPumpDivertsRecognizedCommandsElsePassesThrough(t *testing.T) {
	m := mapper.NewMap()
	s, clientTest, serverTest, done := newTestSession(testConfig(), m)

	if _, err := clientTest.Write([]byte("vnum\n")); err != nil {
		t.Fatalf("write client command: %v", err)
	}
	reply := readAvailable(clientTest, 150*time.Millisecond, time.Second)
	if !bytes.Contains(reply, []byte("Not synced to a room.")) {
		t.Errorf("client reply = %q, want the vnum command's unsynced reply", reply)
	}

	if _, err := clientTest.Write([]byte("look\n")); err != nil {
		t.Fatalf("write client line: %v", err)
	}
	forwarded := readAvailable(serverTest, 150*time.Millisecond, time.Second)
	if !bytes.Equal(forwarded, []byte("look\r\n")) {
		t.Errorf("server received %q, want %q", forwarded, "look\r\n")
	}

	clientTest.Close()
	serverTest.Close()
	waitDone(t, done)
	_ = s
}
