// Package remote implements the TCP front-end binding: a line-oriented
// command listener speaking the tag-per-line IDE protocol.
//
// The server accepts one client at a time and re-arms the acceptor when the
// client disconnects. Each connection owns a writer goroutine; deferred-call
// deliveries and engine notifications are posted onto it so all socket writes
// for a session come from one place.
package remote

import (
	"bufio"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sudb/sudb/internal/command"
	"github.com/sudb/sudb/internal/engine"
	"github.com/sudb/sudb/internal/frontend"
	"github.com/sudb/sudb/internal/gate"
)

// DefaultPort is the listen port used when none is configured.
const DefaultPort = 1234

// postQueueSize bounds pending deliveries per session. The engine goroutine
// never blocks on a slow or dead session; overflow is dropped.
const postQueueSize = 64

// Server is the network listener. It implements frontend.Frontend for the
// currently connected client.
type Server struct {
	engine engine.Engine
	gate   *gate.Gate
	log    zerolog.Logger

	mu      sync.Mutex
	ln      net.Listener
	session *session
	closed  bool
}

var _ frontend.Frontend = (*Server)(nil)

// NewServer creates a server bound to the given engine and gate. Call Start
// to begin listening.
func NewServer(eng engine.Engine, g *gate.Gate, log zerolog.Logger) *Server {
	return &Server{
		engine: eng,
		gate:   g,
		log:    log,
	}
}

// Start listens on the given TCP port and begins accepting clients. Port 0
// picks an ephemeral port; Addr reports the bound address.
func (s *Server) Start(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", port, err)
	}

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("listening for debugger clients")
	go s.acceptLoop(ln)
	return nil
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Close stops the listener and disconnects the current client.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	ln := s.ln
	sess := s.session
	s.session = nil
	s.mu.Unlock()

	if sess != nil {
		sess.close()
	}
	if ln != nil {
		return ln.Close()
	}
	return nil
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if !closed {
				s.log.Error().Err(err).Msg("accept failed")
			}
			return
		}
		s.serve(conn)
	}
}

// serve runs one client to completion, then returns so the acceptor re-arms.
func (s *Server) serve(conn net.Conn) {
	s.log.Info().Str("client", conn.RemoteAddr().String()).Msg("client connected")

	sess := newSession(conn, s.log)
	dispatcher := command.NewDispatcher(s.engine, s.gate, sess, sess, s.log)

	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()

	go sess.writerLoop()
	sess.readerLoop(dispatcher)

	s.mu.Lock()
	if s.session == sess {
		s.session = nil
	}
	s.mu.Unlock()

	sess.close()
	s.log.Info().Str("client", conn.RemoteAddr().String()).Msg("client disconnected")
}

// BreakpointHit notifies the connected client that a breakpoint stopped
// execution. Called on the engine goroutine; no client means no reply.
func (s *Server) BreakpointHit(bp engine.BreakPoint) {
	if sess := s.current(); sess != nil {
		sess.Post(func() { sess.write(encodeBreakpointHit(bp)) })
	}
}

// SuspendedAt notifies the connected client that execution is suspended.
func (s *Server) SuspendedAt(file string, line int) {
	if sess := s.current(); sess != nil {
		sess.Post(func() { sess.write(encodeSuspended(file, line)) })
	}
}

func (s *Server) current() *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// session is one connected client. It is the dispatcher's Responder and the
// gate Executor whose Post target is the session writer goroutine.
type session struct {
	conn  net.Conn
	log   zerolog.Logger
	posts chan func()

	closeOnce sync.Once
	done      chan struct{}

	writeMu sync.Mutex
}

var (
	_ command.Responder = (*session)(nil)
	_ gate.Executor     = (*session)(nil)
)

func newSession(conn net.Conn, log zerolog.Logger) *session {
	return &session{
		conn:  conn,
		log:   log,
		posts: make(chan func(), postQueueSize),
		done:  make(chan struct{}),
	}
}

// Post schedules fn on the session writer goroutine. Posts against a closed
// or saturated session are dropped; the engine goroutine never blocks here.
func (sess *session) Post(fn func()) {
	select {
	case <-sess.done:
	default:
		select {
		case sess.posts <- fn:
		case <-sess.done:
		default:
			sess.log.Warn().Msg("session delivery queue full, dropping reply")
		}
	}
}

func (sess *session) writerLoop() {
	for {
		select {
		case fn := <-sess.posts:
			fn()
		case <-sess.done:
			return
		}
	}
}

// readerLoop consumes client lines until disconnect. Each line may carry
// several ";"-separated commands.
func (sess *session) readerLoop(d *command.Dispatcher) {
	scanner := bufio.NewScanner(sess.conn)
	for scanner.Scan() {
		line := scanner.Text()
		sess.log.Debug().Str("line", line).Msg("command from client")
		for _, act := range command.ParseRemoteLine(line) {
			d.Execute(act)
		}
	}
	if err := scanner.Err(); err != nil {
		sess.log.Debug().Err(err).Msg("client read ended")
	}
}

func (sess *session) close() {
	sess.closeOnce.Do(func() {
		close(sess.done)
		sess.conn.Close()
	})
}

// write sends one reply payload. Writes are serialized so notification and
// reply tags never interleave mid-line.
func (sess *session) write(payload string) {
	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	if _, err := sess.conn.Write([]byte(payload)); err != nil {
		sess.log.Debug().Err(err).Msg("client write failed")
		return
	}
	sess.log.Debug().Str("reply", payload).Msg("sent to client")
}

// Responder implementation. Operations the remote grammar cannot produce
// reply with nothing, matching the protocol's silence on failure.

func (sess *session) BreakpointAdded(bp engine.BreakPoint) {
	sess.write(encodeBreakpointAdded(bp))
}

func (sess *session) BreakpointAddFailed(loc engine.Location, err error) {
	sess.log.Debug().Str("location", loc.String()).Err(err).Msg("breakpoint add failed")
}

func (sess *session) BreakpointDeleted(index int) {
	sess.write(encodeBreakpointDeleted(index))
}

func (sess *session) BreakpointDeleteFailed(index int) {
	sess.log.Debug().Int("index", index).Msg("breakpoint delete failed")
}

func (sess *session) BreakpointList(bps []engine.BreakPoint) {}

func (sess *session) Frames(frames []engine.StackFrame, active int) {
	sess.write(encodeFrames(frames, active))
}

func (sess *session) Threads() {
	sess.write(encodeThreads())
}

func (sess *session) Source(lines []engine.CodeLine, current int) {}

func (sess *session) Variables(kind string, vars []engine.Variable) {
	sess.write(encodeVariables(kind, vars))
}

func (sess *session) EvalResult(v engine.Variable, err error) {}

func (sess *session) Help() {}

func (sess *session) Unknown(cmd string) {
	sess.log.Debug().Str("command", cmd).Msg("unknown command from client")
}
