package handler

import (
	"github.com/airtrap/server/internal/auth"
	"github.com/airtrap/server/internal/config"
	"github.com/airtrap/server/internal/core/event"
	gonet "github.com/airtrap/server/internal/net"
	"github.com/airtrap/server/internal/net/packet"
	"github.com/airtrap/server/internal/world"
	"go.uber.org/zap"
)

// NetControl is the slice of the transport the handlers need: routed sends
// plus the ability to cut a session's stream. The kick command does not cut
// the stream; it sends the victim back to the lobby.
type NetControl interface {
	Send(sessionID uint32, p *packet.Packet, ch gonet.Channel)
	CloseSession(sessionID uint32)
}

// GameControl 由 system.GameSystem 實作，在其建立後填入 Deps。
// Handlers use it for everything that touches per-room entity state.
type GameControl interface {
	// ResyncSession 向單一連線重送 StartGame 與房間內所有實體的 EntitySpawn。
	ResyncSession(r *world.Room, sessionID uint32)
	// ReleaseAvatar 銷毀玩家分身實體並向房間廣播 EntityDeath。
	ReleaseAvatar(r *world.Room, p *world.Player)
}

// Deps holds shared dependencies injected into all packet handlers.
type Deps struct {
	Net     NetControl
	Auth    *auth.Store
	Players *world.State
	Rooms   *world.RoomManager
	Config  *config.Config
	Log     *zap.Logger
	Bus     *event.Bus
	Game    GameControl // filled after the game system is created
}

// session casts the opaque dispatch argument back to the transport session.
func session(sess any) *gonet.Session {
	return sess.(*gonet.Session)
}

// player resolves the game record for a session, which exists only after a
// successful login.
func (d *Deps) player(sess *gonet.Session) (*world.Player, bool) {
	return d.Players.Get(sess.ID)
}

// sendStatus answers a request opcode with a one-byte BooleanPayload ack.
func (d *Deps) sendStatus(sessionID uint32, op packet.OpCode, ok bool) {
	status := byte(0)
	if ok {
		status = 1
	}
	resp := packet.New(op)
	if err := (&packet.BooleanPayload{Status: status}).EncodeTo(resp); err != nil {
		d.Log.Error("編碼回應失敗", zap.String("op", op.String()), zap.Error(err))
		return
	}
	d.Net.Send(sessionID, resp, gonet.ChannelStream)
}

// RegisterAll registers all packet handlers into the registry.
func RegisterAll(reg *packet.Registry, deps *Deps) {
	anyState := []packet.SessionState{
		packet.StateConnected, packet.StateLobby, packet.StateRoom, packet.StateInGame,
	}
	loggedIn := []packet.SessionState{
		packet.StateLobby, packet.StateRoom, packet.StateInGame,
	}

	// Connection management
	reg.Register(packet.OpHello, anyState, deps.HandleHello)
	reg.Register(packet.OpDisconnect, anyState, deps.HandleDisconnect)
	reg.Register(packet.OpPing, anyState, deps.HandlePing)

	// Authentication: multiple attempts are allowed, including after a
	// failed login, so the pre-auth state keeps both opcodes.
	reg.Register(packet.OpLoginRequest,
		[]packet.SessionState{packet.StateConnected, packet.StateLobby}, deps.HandleLogin)
	reg.Register(packet.OpRegisterRequest,
		[]packet.SessionState{packet.StateConnected, packet.StateLobby}, deps.HandleRegister)

	// Room management
	reg.Register(packet.OpListRooms, loggedIn, deps.HandleListRooms)
	reg.Register(packet.OpCreateRoom, loggedIn, deps.HandleCreateRoom)
	reg.Register(packet.OpJoinRoom, loggedIn, deps.HandleJoinRoom)
	reg.Register(packet.OpLeaveRoom,
		[]packet.SessionState{packet.StateRoom, packet.StateInGame}, deps.HandleLeaveRoom)
	reg.Register(packet.OpSetReady,
		[]packet.SessionState{packet.StateRoom}, deps.HandleSetReady)
	reg.Register(packet.OpRoomChatSent, loggedIn, deps.HandleRoomChat)
	reg.Register(packet.OpDebugModeUpdate,
		[]packet.SessionState{packet.StateRoom, packet.StateInGame}, deps.HandleDebugMode)

	// Game state
	reg.Register(packet.OpInputTick,
		[]packet.SessionState{packet.StateInGame}, deps.HandleInputTick)
}
