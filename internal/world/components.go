package world

import (
	"github.com/airtrap/server/internal/core/ecs"
	"github.com/airtrap/server/internal/net/packet"
)

// Component set of the per-room simulation. Plain data only; behavior lives
// in the systems package.

type Transform struct {
	Pos packet.Vec2
	Rot float32
}

type Velocity struct {
	Dir packet.Vec2
}

// NetID marks an entity as network-visible. Every state change of such an
// entity reaches clients through the spawn/snapshot/death packet trio.
type NetID struct {
	ID   uint32
	Type packet.EntityType
}

// Collider is an axis-aligned box centered on the transform position.
type Collider struct {
	W float32
	H float32
}

type Health struct {
	Current int32
	Max     int32
}

// Owner links a projectile back to the firing session (0 for enemy fire).
type Owner struct {
	SessionID uint32
}

// Projectile carries a bullet's damage on impact.
type Projectile struct {
	Damage int32
}

// Lifetime destroys an entity when it runs out, without a death broadcast
// being implied — the despawn path decides that.
type Lifetime struct {
	Remaining float32
}

// EnemyAI drives scripted enemies: constant leftward drift plus periodic fire.
type EnemyAI struct {
	Speed      float32
	FirePeriod float32
	FireTimer  float32
	Score      uint32
	Damage     int32
}

// GameWorld bundles the room's ECS world with its component stores and the
// netID lookup used to resolve packets back to entities.
type GameWorld struct {
	ECS        *ecs.World
	Transforms *ecs.Store[Transform]
	Velocities *ecs.Store[Velocity]
	NetIDs     *ecs.Store[NetID]
	Colliders   *ecs.Store[Collider]
	Healths     *ecs.Store[Health]
	Owners      *ecs.Store[Owner]
	Lifetimes   *ecs.Store[Lifetime]
	Enemies     *ecs.Store[EnemyAI]
	Projectiles *ecs.Store[Projectile]

	byNet map[uint32]ecs.EntityID
}

func NewGameWorld() *GameWorld {
	g := &GameWorld{
		ECS:        ecs.NewWorld(),
		Transforms: ecs.NewStore[Transform](),
		Velocities: ecs.NewStore[Velocity](),
		NetIDs:     ecs.NewStore[NetID](),
		Colliders:  ecs.NewStore[Collider](),
		Healths:    ecs.NewStore[Health](),
		Owners:      ecs.NewStore[Owner](),
		Lifetimes:   ecs.NewStore[Lifetime](),
		Enemies:     ecs.NewStore[EnemyAI](),
		Projectiles: ecs.NewStore[Projectile](),
		byNet:       make(map[uint32]ecs.EntityID, 64),
	}
	g.ECS.RegisterStore(g.Transforms)
	g.ECS.RegisterStore(g.Velocities)
	g.ECS.RegisterStore(g.NetIDs)
	g.ECS.RegisterStore(g.Colliders)
	g.ECS.RegisterStore(g.Healths)
	g.ECS.RegisterStore(g.Owners)
	g.ECS.RegisterStore(g.Lifetimes)
	g.ECS.RegisterStore(g.Enemies)
	g.ECS.RegisterStore(g.Projectiles)
	return g
}

// Track records the netID → entity mapping for a spawned entity.
func (g *GameWorld) Track(netID uint32, e ecs.EntityID) {
	g.byNet[netID] = e
}

// Untrack drops the mapping, usually right before destroying the entity.
func (g *GameWorld) Untrack(netID uint32) {
	delete(g.byNet, netID)
}

// ByNetID resolves a network ID to its entity.
func (g *GameWorld) ByNetID(netID uint32) (ecs.EntityID, bool) {
	e, ok := g.byNet[netID]
	return e, ok
}

// EachMoving joins every network-visible entity that can move. This is the
// integration view.
func EachMoving(g *GameWorld, fn func(*Transform, *Velocity, *NetID)) {
	ecs.View3(g.ECS, g.Transforms, g.Velocities, g.NetIDs,
		func(_ ecs.EntityID, t *Transform, v *Velocity, n *NetID) {
			fn(t, v, n)
		})
}
