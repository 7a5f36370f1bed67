package system

import (
	"time"

	"github.com/airtrap/server/internal/core/event"
	coresys "github.com/airtrap/server/internal/core/system"
	"github.com/airtrap/server/internal/handler"
	gonet "github.com/airtrap/server/internal/net"
	"github.com/airtrap/server/internal/net/packet"
	"go.uber.org/zap"
)

// InputSystem drains the transport event queue and dispatches packets
// through the handler registry. Phase 0 (Input). This is the only place
// transport events become game state.
type InputSystem struct {
	server   *gonet.Server
	registry *packet.Registry
	deps     *handler.Deps
	log      *zap.Logger
}

func NewInputSystem(server *gonet.Server, registry *packet.Registry, deps *handler.Deps, log *zap.Logger) *InputSystem {
	return &InputSystem{
		server:   server,
		registry: registry,
		deps:     deps,
		log:      log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	for {
		select {
		case ev := <-s.server.Events():
			s.handle(ev)
		default:
			return
		}
	}
}

func (s *InputSystem) handle(ev gonet.Event) {
	switch ev.Kind {
	case gonet.EventConnect:
		s.sendWelcome(ev.SessionID)
	case gonet.EventPacket:
		s.dispatch(ev)
	case gonet.EventDisconnect:
		s.handleDisconnect(ev.SessionID)
	}
}

// sendWelcome tells the fresh session its assigned ID.
func (s *InputSystem) sendWelcome(sessionID uint32) {
	p := packet.New(packet.OpWelcome)
	if err := (&packet.ConnectPayload{SessionID: sessionID}).EncodeTo(p); err != nil {
		return
	}
	s.server.Send(sessionID, p, gonet.ChannelStream)
}

// dispatch routes one packet. Malformed or unknown packets are logged and
// dropped; the session stays open.
func (s *InputSystem) dispatch(ev gonet.Event) {
	sess, ok := s.server.Sessions().Get(ev.SessionID)
	if !ok {
		return // raced with a disconnect
	}
	if err := s.registry.Dispatch(sess, sess.State(), ev.Packet); err != nil {
		s.log.Debug("封包分派錯誤",
			zap.Uint32("session", ev.SessionID),
			zap.String("channel", ev.Channel.String()),
			zap.Error(err),
		)
	}
}

// handleDisconnect runs the room-manager cleanup for a dead session: leave
// the room, broadcast the avatar death, drop the player record.
func (s *InputSystem) handleDisconnect(sessionID uint32) {
	pl, ok := s.deps.Players.Get(sessionID)
	if !ok {
		return
	}
	roomID := pl.RoomID
	entityID := pl.EntityID
	if r, left := s.deps.Rooms.Leave(pl); left {
		s.deps.Game.ReleaseAvatar(r, pl)
		event.Emit(s.deps.Bus, event.PlayerLeftRoom{
			SessionID: sessionID,
			RoomID:    roomID,
			EntityID:  entityID,
		})
	}
	s.deps.Players.Remove(sessionID)
}
