package net

import "github.com/airtrap/server/internal/net/packet"

// Channel tags which transport path carried (or should carry) a packet.
type Channel byte

const (
	ChannelStream   Channel = iota // TCP: in-order, reliable
	ChannelDatagram                // UDP: lossy, unordered
)

func (c Channel) String() string {
	if c == ChannelStream {
		return "stream"
	}
	return "datagram"
}

// EventKind discriminates transport events on the inbound queue.
type EventKind byte

const (
	EventConnect    EventKind = iota // new stream session accepted
	EventPacket                      // decoded inbound packet
	EventDisconnect                  // stream closed or errored
)

// Event is what the I/O goroutines hand to the simulation loop. Packet is
// nil for Connect and Disconnect events.
type Event struct {
	Kind      EventKind
	SessionID uint32
	Channel   Channel
	Packet    *packet.Packet
}
