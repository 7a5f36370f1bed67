package net

import (
	"fmt"
	"net"
	"sync"

	"github.com/airtrap/server/internal/net/packet"
	"go.uber.org/zap"
)

// Client is the endpoint-side transport: one stream connection to the
// server plus a datagram socket on an ephemeral local port. The server
// learns the datagram endpoint from the first datagram we send (the
// startup Ping handles that, see the client sync package).
type Client struct {
	conn      net.Conn
	udp       *net.UDPConn
	serverUDP *net.UDPAddr

	events chan Event

	writeMu sync.Mutex

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    bool

	log *zap.Logger
}

// Dial connects the stream socket and resolves the server's datagram
// endpoint. The datagram socket binds to an ephemeral local port.
func Dial(tcpAddr, udpAddr string, eventQueue int, log *zap.Logger) (*Client, error) {
	conn, err := net.Dial("tcp", tcpAddr)
	if err != nil {
		return nil, fmt.Errorf("dial tcp %s: %w", tcpAddr, err)
	}
	serverUDP, err := net.ResolveUDPAddr("udp", udpAddr)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("resolve udp %s: %w", udpAddr, err)
	}
	udp, err := net.ListenUDP("udp", &net.UDPAddr{})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("bind udp: %w", err)
	}

	if eventQueue <= 0 {
		eventQueue = 256
	}
	c := &Client{
		conn:      conn,
		udp:       udp,
		serverUDP: serverUDP,
		events:    make(chan Event, eventQueue),
		closeCh:   make(chan struct{}),
		log:       log,
	}
	go c.readLoop()
	go c.datagramLoop()
	return c, nil
}

// Events returns the inbound event queue.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Send serializes and transmits a packet on the chosen channel.
func (c *Client) Send(p *packet.Packet, ch Channel) error {
	data := p.Serialize()
	if ch == ChannelDatagram {
		_, err := c.udp.WriteToUDP(data, c.serverUDP)
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return WriteFrame(c.conn, data)
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.closed = true
		close(c.closeCh)
		c.conn.Close()
		c.udp.Close()
	})
}

func (c *Client) readLoop() {
	defer c.Close()
	for {
		payload, err := ReadFrame(c.conn)
		if err != nil {
			select {
			case <-c.closeCh:
			default:
				c.log.Debug("讀取錯誤", zap.Error(err))
				c.pushEvent(Event{Kind: EventDisconnect, Channel: ChannelStream})
			}
			return
		}
		p, err := packet.Deserialize(payload)
		if err != nil {
			c.log.Warn("封包解碼失敗", zap.Error(err))
			continue
		}
		c.pushEvent(Event{Kind: EventPacket, Channel: ChannelStream, Packet: p})
	}
}

func (c *Client) datagramLoop() {
	buf := make([]byte, MaxFrameSize)
	for {
		n, _, err := c.udp.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-c.closeCh:
				return
			default:
			}
			continue
		}
		p, err := packet.Deserialize(buf[:n])
		if err != nil {
			continue
		}
		c.pushEvent(Event{Kind: EventPacket, Channel: ChannelDatagram, Packet: p})
	}
}

func (c *Client) pushEvent(ev Event) {
	if ev.Channel == ChannelDatagram {
		select {
		case c.events <- ev:
		default:
		}
		return
	}
	select {
	case c.events <- ev:
	case <-c.closeCh:
	}
}
