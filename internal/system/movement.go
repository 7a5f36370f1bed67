package system

import (
	"time"

	coresys "github.com/airtrap/server/internal/core/system"
	"github.com/airtrap/server/internal/handler"
	"github.com/airtrap/server/internal/net/packet"
	"github.com/airtrap/server/internal/world"
)

// MovementSystem turns each member's input bitmask into a velocity, then
// integrates every moving entity in the room. Phase 2 (Update).
type MovementSystem struct {
	deps *handler.Deps
}

func NewMovementSystem(deps *handler.Deps) *MovementSystem {
	return &MovementSystem{deps: deps}
}

func (s *MovementSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *MovementSystem) Update(dt time.Duration) {
	step := float32(dt.Seconds())
	for _, r := range s.deps.Rooms.Rooms() {
		if r.State != world.RoomInGame || r.World == nil {
			continue
		}
		s.applyInputs(r)
		s.integrate(r, step)
	}
}

// applyInputs composes avatar velocity from the stored bitmask and the
// room's speed multiplier.
func (s *MovementSystem) applyInputs(r *world.Room) {
	speed := float32(s.deps.Config.Game.BaseSpeed) * r.Speed
	for _, sid := range r.Members() {
		pl, ok := s.deps.Players.Get(sid)
		if !ok || pl.EntityID == 0 {
			continue
		}
		e, ok := r.World.ByNetID(pl.EntityID)
		if !ok {
			continue
		}

		var vel packet.Vec2
		mask := pl.InputMask
		if mask&world.InputUp != 0 {
			vel.Y -= speed
		}
		if mask&world.InputDown != 0 {
			vel.Y += speed
		}
		if mask&world.InputLeft != 0 {
			vel.X -= speed
		}
		if mask&world.InputRight != 0 {
			vel.X += speed
		}

		if v, found := r.World.Velocities.Get(e); found {
			v.Dir = vel
		}
		pl.Vel = vel
	}
}

// integrate advances every entity carrying a transform and a velocity, and
// clamps avatars to the play field.
func (s *MovementSystem) integrate(r *world.Room, step float32) {
	w := r.World
	world.EachMoving(w, func(t *world.Transform, v *world.Velocity, n *world.NetID) {
		t.Pos.X += v.Dir.X * step
		t.Pos.Y += v.Dir.Y * step

		if n.Type == packet.EntityPlayer {
			t.Pos.X = clamp(t.Pos.X, 0, r.FieldW)
			t.Pos.Y = clamp(t.Pos.Y, 0, r.FieldH)
		}
	})

	// Mirror avatar transforms back into the session records; the weapon
	// muzzle and the avatar death fallback read positions from there.
	for _, sid := range r.Members() {
		pl, ok := s.deps.Players.Get(sid)
		if !ok || pl.EntityID == 0 {
			continue
		}
		if e, found := r.World.ByNetID(pl.EntityID); found {
			if t, found := r.World.Transforms.Get(e); found {
				pl.Pos = t.Pos
			}
		}
	}
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
