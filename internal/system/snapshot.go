package system

import (
	"time"

	"github.com/airtrap/server/internal/core/ecs"
	coresys "github.com/airtrap/server/internal/core/system"
	"github.com/airtrap/server/internal/handler"
	gonet "github.com/airtrap/server/internal/net"
	"github.com/airtrap/server/internal/net/packet"
	"github.com/airtrap/server/internal/world"
	"go.uber.org/zap"
)

// SnapshotSystem broadcasts one RoomUpdate per in-game room per tick on
// the unreliable channel: full state, no deltas, idempotent on the client.
// Phase 4 (Output).
type SnapshotSystem struct {
	deps *handler.Deps
	game *GameSystem
	log  *zap.Logger
}

func NewSnapshotSystem(deps *handler.Deps, game *GameSystem, log *zap.Logger) *SnapshotSystem {
	return &SnapshotSystem{deps: deps, game: game, log: log}
}

func (s *SnapshotSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *SnapshotSystem) Update(_ time.Duration) {
	for _, r := range s.deps.Rooms.Rooms() {
		if r.Type == world.RoomLobby || r.State != world.RoomInGame || r.World == nil {
			continue
		}
		s.broadcast(r)
	}
}

func (s *SnapshotSystem) broadcast(r *world.Room) {
	w := r.World
	snapshots := make([]packet.EntitySnapshotPayload, 0, w.NetIDs.Len())

	ecs.View3(w.ECS, w.Transforms, w.Velocities, w.NetIDs,
		func(_ ecs.EntityID, t *world.Transform, v *world.Velocity, n *world.NetID) {
			if _, tracked := w.ByNetID(n.ID); !tracked {
				return // dying this tick, death broadcast already out
			}
			snapshots = append(snapshots, packet.EntitySnapshotPayload{
				NetID:    n.ID,
				Position: t.Pos,
				Velocity: v.Dir,
				Rotation: t.Rot,
			})
		})

	p := packet.New(packet.OpRoomUpdate)
	head := packet.RoomSnapshotPayload{
		RoomID:         r.ID,
		CurrentPlayers: uint32(r.MemberCount()),
		ServerTick:     s.game.Tick(),
		EntityCount:    uint16(len(snapshots)),
		InGame:         1,
	}
	if err := head.EncodeTo(p); err != nil {
		return
	}
	if err := packet.WriteVector(p, snapshots); err != nil {
		s.log.Warn("快照編碼失敗", zap.Uint32("room", r.ID), zap.Error(err))
		return
	}

	for _, sid := range r.Members() {
		s.deps.Net.Send(sid, p, gonet.ChannelDatagram)
	}
}
