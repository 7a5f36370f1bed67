package net

import (
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/airtrap/server/internal/net/packet"
	"go.uber.org/zap"
)

// Sender is the outbound half handlers and systems see: serialize once,
// route by channel. Implemented by Server; tests substitute a recorder.
type Sender interface {
	Send(sessionID uint32, p *packet.Packet, ch Channel)
}

// Options configures a transport driver.
type Options struct {
	TCPAddr      string
	UDPAddr      string
	OutQueueSize int
	EventQueue   int
	WriteTimeout time.Duration
}

// Server accepts stream connections and pairs them with a shared datagram
// socket. All inbound traffic funnels into one event queue drained by the
// simulation loop; no application code runs on the I/O goroutines.
type Server struct {
	listener net.Listener
	udp      *net.UDPConn

	nextID   atomic.Uint32
	store    *SessionStore
	events   chan Event
	outSize  int
	writeTO  time.Duration

	packetsIn    atomic.Uint64
	packetsOut   atomic.Uint64
	decodeErrors atomic.Uint64

	log     *zap.Logger
	closeCh chan struct{}
}

func NewServer(opts Options, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", opts.TCPAddr)
	if err != nil {
		return nil, fmt.Errorf("bind tcp %s: %w", opts.TCPAddr, err)
	}
	udpAddr, err := net.ResolveUDPAddr("udp", opts.UDPAddr)
	if err != nil {
		ln.Close()
		return nil, fmt.Errorf("resolve udp %s: %w", opts.UDPAddr, err)
	}
	udp, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		ln.Close()
		return nil, fmt.Errorf("bind udp %s: %w", opts.UDPAddr, err)
	}

	if opts.OutQueueSize <= 0 {
		opts.OutQueueSize = 256
	}
	if opts.EventQueue <= 0 {
		opts.EventQueue = 1024
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}

	s := &Server{
		listener: ln,
		udp:      udp,
		store:    NewSessionStore(),
		events:   make(chan Event, opts.EventQueue),
		outSize:  opts.OutQueueSize,
		writeTO:  opts.WriteTimeout,
		log:      log,
		closeCh:  make(chan struct{}),
	}
	return s, nil
}

// Start launches the accept and datagram goroutines.
func (s *Server) Start() {
	go s.acceptLoop()
	go s.datagramLoop()
}

// Events returns the inbound event queue.
func (s *Server) Events() <-chan Event {
	return s.events
}

// Sessions returns the session table.
func (s *Server) Sessions() *SessionStore {
	return s.store
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return
			default:
			}
			s.log.Error("連線接受失敗", zap.Error(err))
			continue
		}

		id := s.nextID.Add(1)
		sess := NewSession(conn, id, s.outSize, s.writeTO, s.log)
		s.store.Add(sess)

		s.log.Info("玩家連線", zap.Uint32("session", id), zap.String("ip", sess.IP))

		go sess.readLoop(s)
		go sess.writeLoop()

		s.pushEvent(Event{Kind: EventConnect, SessionID: id, Channel: ChannelStream})
	}
}

// datagramLoop drains the shared datagram socket. Read errors are ignored
// and the loop continues; unmatchable or undecodable datagrams are dropped.
func (s *Server) datagramLoop() {
	buf := make([]byte, MaxFrameSize)
	for {
		n, addr, err := s.udp.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.closeCh:
				return
			default:
			}
			continue
		}

		sess := s.store.MatchDatagram(addr)
		if sess == nil {
			continue
		}

		p, err := packet.Deserialize(buf[:n])
		if err != nil {
			s.log.Debug("資料報解碼失敗", zap.Error(err))
			s.decodeErrors.Add(1)
			continue
		}

		s.pushEvent(Event{
			Kind:      EventPacket,
			SessionID: sess.ID,
			Channel:   ChannelDatagram,
			Packet:    p,
		})
	}
}

// pushEvent enqueues an event for the simulation loop. Stream events block
// the producing session goroutine until there is room; datagram events are
// dropped under pressure — the next snapshot supersedes them anyway.
func (s *Server) pushEvent(ev Event) {
	if ev.Kind == EventPacket {
		s.packetsIn.Add(1)
	}
	if ev.Channel == ChannelDatagram {
		select {
		case s.events <- ev:
		default:
		}
		return
	}
	select {
	case s.events <- ev:
	case <-s.closeCh:
	}
}

// dropSession removes a closed session from the table and reports the
// disconnect exactly once.
func (s *Server) dropSession(sess *Session) {
	if !s.store.Remove(sess.ID) {
		return
	}
	s.log.Info("玩家斷線", zap.Uint32("session", sess.ID))
	s.pushEvent(Event{Kind: EventDisconnect, SessionID: sess.ID, Channel: ChannelStream})
}

// Send serializes p and routes it. Stream sends go through the session's
// writer goroutine; datagram sends are written inline (WriteToUDP is safe
// for concurrent use) and silently skipped until the endpoint is bound.
func (s *Server) Send(sessionID uint32, p *packet.Packet, ch Channel) {
	sess, ok := s.store.Get(sessionID)
	if !ok {
		return
	}
	p.Header.SessionID = sessionID
	data := p.Serialize()
	s.packetsOut.Add(1)

	if ch == ChannelStream {
		sess.Send(data)
		return
	}
	if addr := sess.UDPAddr(); addr != nil {
		s.udp.WriteToUDP(data, addr)
	}
}

// CloseSession force-closes one session's stream, triggering the normal
// disconnect path.
func (s *Server) CloseSession(sessionID uint32) {
	if sess, ok := s.store.Get(sessionID); ok {
		sess.Close()
	}
}

// Shutdown stops accepting and closes every live session.
func (s *Server) Shutdown() {
	close(s.closeCh)
	s.listener.Close()
	s.udp.Close()
	s.store.Each(func(sess *Session) { sess.Close() })
}

func (s *Server) Addr() net.Addr     { return s.listener.Addr() }
func (s *Server) UDPAddr() net.Addr  { return s.udp.LocalAddr() }
func (s *Server) PacketsIn() uint64  { return s.packetsIn.Load() }
func (s *Server) PacketsOut() uint64 { return s.packetsOut.Load() }
func (s *Server) DecodeErrors() uint64 {
	return s.decodeErrors.Load()
}

func (s *Server) noteDecodeError() {
	s.decodeErrors.Add(1)
}
