package system

import (
	"time"

	"github.com/airtrap/server/internal/core/ecs"
	coresys "github.com/airtrap/server/internal/core/system"
	"github.com/airtrap/server/internal/handler"
	"github.com/airtrap/server/internal/net/packet"
	"github.com/airtrap/server/internal/world"
)

// fieldMargin is how far past the play field an entity may drift before it
// is despawned.
const fieldMargin = 64

// LifetimeSystem expires bullets and despawns anything that drifted off
// the field. Despawns still broadcast EntityDeath so client mirrors stay
// in lockstep. Phase 3 (PostUpdate).
type LifetimeSystem struct {
	deps *handler.Deps
	game *GameSystem
}

func NewLifetimeSystem(deps *handler.Deps, game *GameSystem) *LifetimeSystem {
	return &LifetimeSystem{deps: deps, game: game}
}

func (s *LifetimeSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *LifetimeSystem) Update(dt time.Duration) {
	step := float32(dt.Seconds())
	for _, r := range s.deps.Rooms.Rooms() {
		if r.State != world.RoomInGame || r.World == nil {
			continue
		}
		s.expire(r, step)
		s.cullOffField(r)
	}
}

func (s *LifetimeSystem) expire(r *world.Room, step float32) {
	w := r.World
	var expired []ecs.EntityID
	w.Lifetimes.Each(func(e ecs.EntityID, l *world.Lifetime) {
		l.Remaining -= step
		if l.Remaining <= 0 {
			expired = append(expired, e)
		}
	})
	for _, e := range expired {
		s.game.DespawnEntity(r, e)
	}
}

func (s *LifetimeSystem) cullOffField(r *world.Room) {
	w := r.World
	var gone []ecs.EntityID
	ecs.View2(w.ECS, w.NetIDs, w.Transforms,
		func(e ecs.EntityID, n *world.NetID, t *world.Transform) {
			if n.Type == packet.EntityPlayer {
				return // avatars are clamped, never culled
			}
			if t.Pos.X < -fieldMargin || t.Pos.X > r.FieldW+fieldMargin ||
				t.Pos.Y < -fieldMargin || t.Pos.Y > r.FieldH+fieldMargin {
				gone = append(gone, e)
			}
		})
	for _, e := range gone {
		s.game.DespawnEntity(r, e)
	}
}
