package client

import (
	"github.com/airtrap/server/internal/core/ecs"
	"github.com/airtrap/server/internal/net/packet"
	"github.com/airtrap/server/internal/world"
)

// Scene-level read accessors.

func (s *Sync) SessionID() uint32 { return s.sessionID }
func (s *Sync) State() State      { return s.state }
func (s *Sync) LoggedIn() bool    { return s.loggedIn }
func (s *Sync) Username() string  { return s.username }
func (s *Sync) PingMs() uint64    { return s.pingMs }
func (s *Sync) DebugMode() bool   { return s.debug }

// Rooms returns the last received room list.
func (s *Sync) Rooms() []packet.RoomInfo { return s.rooms }

// ChatHistory returns up to the last eight chat lines, oldest first.
func (s *Sync) ChatHistory() []packet.RoomChatReceivedPayload { return s.chat }

// Ammo returns the latest HUD ammo state.
func (s *Sync) Ammo() packet.AmmoUpdatePayload { return s.ammo }

// ConsumeKicked reports and clears the one-shot kicked latch; the scene
// layer returns to the main menu when it fires.
func (s *Sync) ConsumeKicked() bool {
	k := s.kicked
	s.kicked = false
	return k
}

// EntityCount reports the number of mirrored entities.
func (s *Sync) EntityCount() int {
	return s.world.ECS.Live()
}

// EachEntity walks the mirror for rendering: net ID, type, transform, and
// size hint per entity.
func (s *Sync) EachEntity(fn func(n world.NetID, t world.Transform, size world.Collider)) {
	w := s.world
	w.NetIDs.Each(func(e ecs.EntityID, n *world.NetID) {
		t, ok := w.Transforms.Get(e)
		if !ok {
			return
		}
		var c world.Collider
		if col, found := w.Colliders.Get(e); found {
			c = *col
		}
		fn(*n, *t, c)
	})
}

// Entity resolves a single mirrored entity by its network ID.
func (s *Sync) Entity(netID uint32) (world.Transform, world.Velocity, bool) {
	e, ok := s.world.ByNetID(netID)
	if !ok {
		return world.Transform{}, world.Velocity{}, false
	}
	t, okT := s.world.Transforms.Get(e)
	v, okV := s.world.Velocities.Get(e)
	if !okT || !okV {
		return world.Transform{}, world.Velocity{}, false
	}
	return *t, *v, true
}
