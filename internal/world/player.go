package world

import (
	gonet "github.com/airtrap/server/internal/net"
	"github.com/airtrap/server/internal/net/packet"
)

// Input bitmask bits carried by InputTick.
const (
	InputUp    byte = 1 << 0
	InputDown  byte = 1 << 1
	InputLeft  byte = 1 << 2
	InputRight byte = 1 << 3
	InputFire  byte = 1 << 4
)

// WeaponState is the per-player ammo loop. Changes are pushed to the owner
// as reliable AmmoUpdate packets.
type WeaponState struct {
	Magazine  uint16
	MagSize   uint16
	Reloading bool
	Cooldown  float32 // seconds until the reload completes
	FireDelay float32 // seconds until the next shot is allowed
}

// Player is the game-side record of a connected session. Mutated only from
// the simulation goroutine; the transport session it points at is safe to
// share.
type Player struct {
	SessionID uint32
	Session   *gonet.Session
	Username  string
	LoggedIn  bool

	RoomID    uint32 // 0 = not in any room
	Ready     bool
	Spectator bool

	EntityID  uint32 // avatar net ID, 0 = no avatar
	InputMask byte
	Pos       packet.Vec2
	Vel       packet.Vec2

	Weapon WeaponState
}

func NewPlayer(sess *gonet.Session) *Player {
	return &Player{
		SessionID: sess.ID,
		Session:   sess,
		Username:  "guest",
	}
}
