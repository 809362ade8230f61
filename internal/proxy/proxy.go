// Package proxy implements the three-way concurrency core (spec.md §5):
// a client-to-server pump, a server-to-client pump driving the
// telnet/MPI/XML decode pipeline, and the mapper worker, all wired
// through a single event bus.
//
// Grounded on the teacher's client.Connection goroutine-per-direction
// pump pattern (internal/client/connection.go's readLoop/writeLoop,
// SetReadDeadline plus closeCh for cancellation), generalized from one
// client connection to the proxy's two sockets, and on
// original_source/mapperproxy/mapper/mapper.py's Proxy/Server/Mapper
// classes for the pump responsibilities themselves.
package proxy

import (
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/anicolao/mudproxy/internal/config"
	"github.com/anicolao/mudproxy/internal/eventbus"
	"github.com/anicolao/mudproxy/internal/mapper"
	"github.com/anicolao/mudproxy/internal/mpi"
	"github.com/anicolao/mudproxy/internal/telnetfilter"
	"github.com/anicolao/mudproxy/internal/worker"
	"github.com/anicolao/mudproxy/internal/xmlproto"
)

// readTimeout bounds each socket read so a pump's cancellation check runs
// often enough to be responsive, mirroring the teacher's 100ms poll.
const readTimeout = 100 * time.Millisecond

// dialTimeout bounds the initial connection to the remote MUD server.
const dialTimeout = 10 * time.Second

// Session is one proxied client connection: its own server connection,
// decode pipeline, event bus, and mapper worker.
type Session struct {
	client net.Conn
	server net.Conn
	cfg    *config.ProxyConfig
	logger *log.Logger

	bus        *eventbus.Bus
	filter     *telnetfilter.Filter
	mpiHandler *mpi.Handler
	tokenizer  *xmlproto.Tokenizer
	worker     *worker.Worker

	clientMu sync.Mutex
	serverMu sync.Mutex

	closeCh   chan struct{}
	closeOnce sync.Once
}

// Serve dials the remote MUD server per cfg and runs one proxied session
// over clientConn until either side closes. It returns once the session
// has fully torn down (pumps exited, mapper worker exited, MPI workers
// joined).
func Serve(clientConn net.Conn, cfg *config.ProxyConfig, mapStore *mapper.Map, logger *log.Logger) error {
	remote := fmt.Sprintf("%s:%d", cfg.RemoteHost, cfg.RemotePort)
	serverConn, err := net.DialTimeout("tcp", remote, dialTimeout)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", remote, err)
	}

	s := newSession(clientConn, serverConn, cfg, logger)
	s.worker = worker.New(mapStore, cfg, s.sendClientLine, s.sendServerLine, time.Now())

	s.run()
	return nil
}

func newSession(client, server net.Conn, cfg *config.ProxyConfig, logger *log.Logger) *Session {
	filter := telnetfilter.New()
	if cfg.PromptTerminator != "" {
		filter.PromptTerminator = []byte(cfg.PromptTerminator)
	}
	mpiHandler := mpi.New()
	if cfg.Editor != "" {
		mpiHandler.Editor = cfg.Editor
	}
	if cfg.Pager != "" {
		mpiHandler.Pager = cfg.Pager
	}
	return &Session{
		client:     client,
		server:     server,
		cfg:        cfg,
		logger:     logger,
		bus:        eventbus.New(),
		filter:     filter,
		mpiHandler: mpiHandler,
		tokenizer:  xmlproto.New(cfg.OutputFormat),
		closeCh:    make(chan struct{}),
	}
}

// run drives the session to completion, per spec.md §5's shutdown
// sequencing: pumps exit -> bus.Shutdown() -> mapper worker exits ->
// MPI workers are joined.
func (s *Session) run() {
	defer s.client.Close()
	defer s.server.Close()

	s.tokenizer.OnEvent = func(ev xmlproto.Event) {
		s.bus.PostMudEvent(eventbus.EventName(ev.Name), string(ev.Payload))
	}

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		s.worker.Run(s.bus)
	}()

	mpiForwardDone := make(chan struct{})
	go func() {
		defer close(mpiForwardDone)
		for frame := range s.mpiHandler.ToServer {
			s.writeServer(frame)
		}
	}()

	var pumps sync.WaitGroup
	pumps.Add(2)
	go func() {
		defer pumps.Done()
		s.serverPump()
	}()
	go func() {
		defer pumps.Done()
		s.clientPump()
	}()
	pumps.Wait()

	s.bus.Shutdown()
	<-workerDone
	s.mpiHandler.Wait()
	<-mpiForwardDone
}

// shutdown signals both pumps to stop, exactly once. Closing either
// socket already unblocks the pump that owns it; closeCh unblocks the
// other.
func (s *Session) shutdown() {
	s.closeOnce.Do(func() {
		close(s.closeCh)
		s.client.Close()
		s.server.Close()
	})
}

func (s *Session) logf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

func (s *Session) writeServer(data []byte) {
	s.serverMu.Lock()
	defer s.serverMu.Unlock()
	if _, err := s.server.Write(data); err != nil {
		s.logf("server write error: %v", err)
		s.shutdown()
	}
}

func (s *Session) writeClient(data []byte) {
	if len(data) == 0 {
		return
	}
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	if _, err := s.client.Write(data); err != nil {
		s.logf("client write error: %v", err)
		s.shutdown()
	}
}

// sendClientLine is the mapper worker's clientSend callback: a line of
// text, newline-terminated for the client's benefit (spec.md §7: the
// mapper formats diagnostics and command replies for the client).
func (s *Session) sendClientLine(line string) {
	s.writeClient([]byte(line + "\r\n"))
}

// sendServerLine is the mapper worker's serverSend callback: a command
// line sent on the player's behalf (auto-walk steps, secretaction).
func (s *Session) sendServerLine(line string) {
	s.writeServer([]byte(line + "\r\n"))
}
