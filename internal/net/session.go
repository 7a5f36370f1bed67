package net

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/airtrap/server/internal/net/packet"
	"go.uber.org/zap"
)

// Session represents a single client connection: the reliable stream socket
// plus a datagram endpoint bound lazily on first matching inbound datagram.
// Network I/O runs in dedicated goroutines; game state hangs off
// world.Player and is touched only by the simulation goroutine.
type Session struct {
	ID   uint32
	conn net.Conn

	state atomic.Int32 // packet.SessionState

	OutQueue chan []byte // writer goroutine drains this

	IP string // stream peer IP, used to match the first datagram

	mu      sync.Mutex
	udpAddr *net.UDPAddr // nil until the datagram endpoint is learned

	writeTimeout time.Duration

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	log *zap.Logger
}

func NewSession(conn net.Conn, id uint32, outSize int, writeTimeout time.Duration, log *zap.Logger) *Session {
	ip := ""
	if addr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		ip = addr.IP.String()
	}
	s := &Session{
		ID:           id,
		conn:         conn,
		OutQueue:     make(chan []byte, outSize),
		IP:           ip,
		writeTimeout: writeTimeout,
		closeCh:      make(chan struct{}),
		log:          log.With(zap.Uint32("session", id)),
	}
	s.state.Store(int32(packet.StateConnected))
	return s
}

func (s *Session) State() packet.SessionState {
	return packet.SessionState(s.state.Load())
}

func (s *Session) SetState(st packet.SessionState) {
	s.state.Store(int32(st))
}

// UDPAddr returns the bound datagram endpoint, or nil when unset.
func (s *Session) UDPAddr() *net.UDPAddr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.udpAddr
}

// BindUDP records the datagram endpoint. Only the first call sticks.
func (s *Session) BindUDP(addr *net.UDPAddr) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.udpAddr != nil {
		return false
	}
	s.udpAddr = addr
	return true
}

// Send queues an already-serialized packet for the stream channel.
// Non-blocking: if OutQueue is full, the session is disconnected (backpressure).
func (s *Session) Send(data []byte) {
	if s.closed.Load() {
		return
	}
	select {
	case s.OutQueue <- data:
	default:
		s.log.Warn("輸出佇列已滿，斷開慢速連線")
		s.Close()
	}
}

// Close shuts the session down. Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.SetState(packet.StateDisconnecting)
		close(s.closeCh)
		s.conn.Close()
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// readLoop reads frames from the stream socket, decodes them, and pushes
// packet events onto the server's event queue. A framing error or EOF closes
// the session; a packet decode error only drops that packet.
func (s *Session) readLoop(srv *Server) {
	defer func() {
		s.Close()
		srv.dropSession(s)
	}()

	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		payload, err := ReadFrame(s.conn)
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("讀取錯誤", zap.Error(err))
			}
			return
		}

		p, err := packet.Deserialize(payload)
		if err != nil {
			s.log.Warn("封包解碼失敗", zap.Error(err))
			srv.noteDecodeError()
			continue
		}

		srv.pushEvent(Event{
			Kind:      EventPacket,
			SessionID: s.ID,
			Channel:   ChannelStream,
			Packet:    p,
		})
	}
}

// writeLoop drains OutQueue and writes frames to the stream socket.
func (s *Session) writeLoop() {
	defer s.Close()

	for {
		select {
		case data := <-s.OutQueue:
			s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := WriteFrame(s.conn, data); err != nil {
				if !s.closed.Load() {
					s.log.Debug("寫入錯誤", zap.Error(err))
				}
				return
			}
		case <-s.closeCh:
			return
		}
	}
}
