package client

import (
	"time"

	"github.com/airtrap/server/internal/core/ecs"
	gonet "github.com/airtrap/server/internal/net"
	"github.com/airtrap/server/internal/net/packet"
	"github.com/airtrap/server/internal/world"
	"go.uber.org/zap"
)

// State is the scene-level connection state machine the UI reads.
type State int

const (
	StateConnecting State = iota // transport up, Welcome not yet seen
	StateAuth                    // have a session ID, not logged in
	StateInLobby
	StateInRoom
	StateInGame
)

// chatHistoryCap bounds the chat backlog the HUD can show.
const chatHistoryCap = 8

// pingInterval is the reliable-channel RTT heartbeat.
const pingInterval = time.Second

// Sync applies inbound packets to a mirror ECS world and exposes the
// accessors the scene layer reads. Single-goroutine: the client loop calls
// Update, senders, and accessors from one place.
type Sync struct {
	net *gonet.Client
	log *zap.Logger

	sessionID uint32
	state     State
	loggedIn  bool
	username  string

	rooms []packet.RoomInfo
	chat  []packet.RoomChatReceivedPayload

	ammo   packet.AmmoUpdatePayload
	pingMs uint64
	kicked bool
	debug  bool

	pingTimer time.Duration
	udpPrimed bool

	// Mirror world: the same component bundle the server simulates with.
	world *world.GameWorld
}

func NewSync(netClient *gonet.Client, log *zap.Logger) *Sync {
	return &Sync{
		net:   netClient,
		log:   log,
		state: StateConnecting,
		world: world.NewGameWorld(),
	}
}

// Update drains inbound events and runs the RTT heartbeat. The very first
// call also fires one datagram Ping so the server learns our UDP endpoint.
func (s *Sync) Update(dt time.Duration) {
	for {
		select {
		case ev := <-s.net.Events():
			s.handleEvent(ev)
		default:
			goto drained
		}
	}
drained:

	if !s.udpPrimed {
		s.udpPrimed = true
		s.sendPing(gonet.ChannelDatagram)
	}

	s.pingTimer += dt
	if s.pingTimer >= pingInterval {
		s.pingTimer = 0
		s.sendPing(gonet.ChannelStream)
	}
}

func (s *Sync) handleEvent(ev gonet.Event) {
	switch ev.Kind {
	case gonet.EventPacket:
		s.handlePacket(ev.Packet)
	case gonet.EventDisconnect:
		s.state = StateConnecting
		s.loggedIn = false
	}
}

func (s *Sync) handlePacket(p *packet.Packet) {
	switch p.Header.Op {
	case packet.OpWelcome:
		s.applyWelcome(p)
	case packet.OpLoginResponse, packet.OpRegisterResponse:
		s.applyAuthResponse(p)
	case packet.OpRoomList:
		s.applyRoomList(p)
	case packet.OpJoinRoom, packet.OpCreateRoom:
		s.applyRoomAck(p)
	case packet.OpStartGame:
		s.state = StateInGame
	case packet.OpEntitySpawn:
		s.applySpawn(p)
	case packet.OpEntityDeath:
		s.applyDeath(p)
	case packet.OpRoomUpdate:
		s.applySnapshot(p)
	case packet.OpRoomChatReceived:
		s.applyChat(p)
	case packet.OpAmmoUpdate:
		s.applyAmmo(p)
	case packet.OpPong:
		s.applyPong(p)
	case packet.OpDebugModeUpdate:
		s.applyDebug(p)
	case packet.OpKicked:
		s.applyKicked()
	default:
		s.log.Debug("未處理的操作碼", zap.String("op", p.Header.Op.String()))
	}
}

func (s *Sync) applyWelcome(p *packet.Packet) {
	var payload packet.ConnectPayload
	if err := payload.DecodeFrom(p); err != nil {
		return
	}
	s.sessionID = payload.SessionID
	if s.state == StateConnecting {
		s.state = StateAuth
	}
}

func (s *Sync) applyAuthResponse(p *packet.Packet) {
	var payload packet.LoginResponsePayload
	if err := payload.DecodeFrom(p); err != nil {
		return
	}
	if payload.Success == 0 {
		s.loggedIn = false
		return
	}
	s.loggedIn = true
	s.username = payload.Username
	s.state = StateInLobby
}

func (s *Sync) applyRoomList(p *packet.Packet) {
	infos, err := packet.ReadVector[packet.RoomInfo](p)
	if err != nil {
		s.log.Debug("房間列表解碼失敗", zap.Error(err))
		return
	}
	s.rooms = infos
}

// applyRoomAck moves the state machine on a JoinRoom/CreateRoom status
// byte: nonzero forward into the room, zero back to the lobby.
func (s *Sync) applyRoomAck(p *packet.Packet) {
	var payload packet.BooleanPayload
	if err := payload.DecodeFrom(p); err != nil {
		return
	}
	if payload.Status != 0 {
		s.state = StateInRoom
	} else {
		s.state = StateInLobby
	}
}

func (s *Sync) applySpawn(p *packet.Packet) {
	var payload packet.EntitySpawnPayload
	if err := payload.DecodeFrom(p); err != nil {
		return
	}
	if _, known := s.world.ByNetID(payload.NetID); known {
		return // duplicate spawn, keep the existing mirror entity
	}

	e, err := s.world.ECS.CreateEntity()
	if err != nil {
		s.log.Error("鏡像實體建立失敗", zap.Error(err))
		return
	}
	ecs.Add(s.world.ECS, s.world.Transforms, e, world.Transform{
		Pos: packet.Vec2{X: payload.PosX, Y: payload.PosY},
	})
	ecs.Add(s.world.ECS, s.world.Velocities, e, world.Velocity{})
	ecs.Add(s.world.ECS, s.world.NetIDs, e, world.NetID{ID: payload.NetID, Type: payload.Type})
	ecs.Add(s.world.ECS, s.world.Colliders, e, world.Collider{W: payload.SizeX, H: payload.SizeY})
	s.world.Track(payload.NetID, e)
}

func (s *Sync) applyDeath(p *packet.Packet) {
	var payload packet.EntityDeathPayload
	if err := payload.DecodeFrom(p); err != nil {
		return
	}
	e, ok := s.world.ByNetID(payload.NetID)
	if !ok {
		return
	}
	s.world.Untrack(payload.NetID)
	s.world.ECS.Destroy(e)
}

// applySnapshot overwrites transform and velocity for every known entity.
// Unknown IDs are ignored; a repeated identical snapshot is a no-op.
func (s *Sync) applySnapshot(p *packet.Packet) {
	var head packet.RoomSnapshotPayload
	if err := head.DecodeFrom(p); err != nil {
		return
	}
	entries, err := packet.ReadVector[packet.EntitySnapshotPayload](p)
	if err != nil {
		s.log.Debug("快照解碼失敗", zap.Error(err))
		return
	}
	for i := range entries {
		entry := &entries[i]
		e, ok := s.world.ByNetID(entry.NetID)
		if !ok {
			continue
		}
		if t, found := s.world.Transforms.Get(e); found {
			t.Pos = entry.Position
			t.Rot = entry.Rotation
		}
		if v, found := s.world.Velocities.Get(e); found {
			v.Dir = entry.Velocity
		}
	}
}

func (s *Sync) applyChat(p *packet.Packet) {
	var payload packet.RoomChatReceivedPayload
	if err := payload.DecodeFrom(p); err != nil {
		return
	}
	s.chat = append(s.chat, payload)
	if len(s.chat) > chatHistoryCap {
		s.chat = s.chat[len(s.chat)-chatHistoryCap:]
	}
}

func (s *Sync) applyAmmo(p *packet.Packet) {
	var payload packet.AmmoUpdatePayload
	if err := payload.DecodeFrom(p); err != nil {
		return
	}
	s.ammo = payload
}

func (s *Sync) applyPong(p *packet.Packet) {
	var payload packet.PingPayload
	if err := payload.DecodeFrom(p); err != nil {
		return
	}
	now := uint64(time.Now().UnixMilli())
	if now >= payload.ClientTimeMs {
		s.pingMs = now - payload.ClientTimeMs
	}
}

func (s *Sync) applyDebug(p *packet.Packet) {
	var payload packet.DebugModePayload
	if err := payload.DecodeFrom(p); err != nil {
		return
	}
	s.debug = payload.Enabled != 0
}

func (s *Sync) applyKicked() {
	s.kicked = true
	s.state = StateInLobby
	s.resetMirror()
}

// resetMirror drops every mirrored entity, e.g. after leaving a game.
func (s *Sync) resetMirror() {
	s.world = world.NewGameWorld()
}
