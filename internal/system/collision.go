package system

import (
	"time"

	"github.com/airtrap/server/internal/core/ecs"
	coresys "github.com/airtrap/server/internal/core/system"
	"github.com/airtrap/server/internal/handler"
	"github.com/airtrap/server/internal/net/packet"
	"github.com/airtrap/server/internal/world"
)

// CollisionSystem overlaps projectiles with the opposing team: player
// bullets damage enemies, enemy bullets damage avatars. A hit consumes the
// bullet; zero health kills through the game system so the death broadcast
// and kill event fire. Phase 2 (Update), after movement.
type CollisionSystem struct {
	deps *handler.Deps
	game *GameSystem
}

func NewCollisionSystem(deps *handler.Deps, game *GameSystem) *CollisionSystem {
	return &CollisionSystem{deps: deps, game: game}
}

func (s *CollisionSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *CollisionSystem) Update(_ time.Duration) {
	for _, r := range s.deps.Rooms.Rooms() {
		if r.State != world.RoomInGame || r.World == nil {
			continue
		}
		s.resolve(r)
	}
}

type boxEntity struct {
	id     ecs.EntityID
	typ    packet.EntityType
	pos    packet.Vec2
	box    world.Collider
	owner  uint32
	damage int32
}

func (s *CollisionSystem) resolve(r *world.Room) {
	w := r.World

	// Snapshot both sides first; resolving mutates the joined stores.
	var bullets, targets []boxEntity

	ecs.View3(w.ECS, w.Projectiles, w.Transforms, w.Colliders,
		func(e ecs.EntityID, proj *world.Projectile, t *world.Transform, c *world.Collider) {
			n, ok := w.NetIDs.Get(e)
			if !ok {
				return
			}
			var owner uint32
			if o, found := w.Owners.Get(e); found {
				owner = o.SessionID
			}
			bullets = append(bullets, boxEntity{
				id: e, typ: n.Type, pos: t.Pos, box: *c, owner: owner, damage: proj.Damage,
			})
		})

	ecs.View3(w.ECS, w.Healths, w.Transforms, w.Colliders,
		func(e ecs.EntityID, _ *world.Health, t *world.Transform, c *world.Collider) {
			n, ok := w.NetIDs.Get(e)
			if !ok {
				return
			}
			targets = append(targets, boxEntity{id: e, typ: n.Type, pos: t.Pos, box: *c})
		})

	dead := map[ecs.EntityID]bool{}
	for _, b := range bullets {
		for _, t := range targets {
			if dead[t.id] || !opposing(b.typ, t.typ) {
				continue
			}
			if !overlap(b.pos, b.box, t.pos, t.box) {
				continue
			}

			// The bullet vanishes without a kill event.
			s.game.DespawnEntity(r, b.id)

			hp, err := ecs.Get(w.ECS, w.Healths, t.id)
			if err != nil {
				break
			}
			hp.Current -= b.damage
			if hp.Current <= 0 {
				dead[t.id] = true
				s.game.KillEntity(r, t.id, b.owner)
			}
			break // one target per bullet
		}
	}
}

// opposing pairs bullet types with their valid targets.
func opposing(bullet, target packet.EntityType) bool {
	switch bullet {
	case packet.EntityBullet:
		return target != packet.EntityPlayer && target != packet.EntityBullet &&
			target != packet.EntityEnemyBullet
	case packet.EntityEnemyBullet:
		return target == packet.EntityPlayer
	}
	return false
}

// overlap is a center-anchored AABB test.
func overlap(ap packet.Vec2, ac world.Collider, bp packet.Vec2, bc world.Collider) bool {
	dx := ap.X - bp.X
	if dx < 0 {
		dx = -dx
	}
	dy := ap.Y - bp.Y
	if dy < 0 {
		dy = -dy
	}
	return dx*2 <= ac.W+bc.W && dy*2 <= ac.H+bc.H
}
