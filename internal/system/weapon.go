package system

import (
	"time"

	coresys "github.com/airtrap/server/internal/core/system"
	"github.com/airtrap/server/internal/handler"
	"github.com/airtrap/server/internal/net/packet"
	"github.com/airtrap/server/internal/world"
)

// WeaponSystem runs the ammo loop: the fire bit spawns bullets while the
// magazine lasts, an empty magazine starts the reload, and every state
// change reaches the owner as a reliable AmmoUpdate. Phase 2 (Update).
type WeaponSystem struct {
	deps *handler.Deps
	game *GameSystem
}

func NewWeaponSystem(deps *handler.Deps, game *GameSystem) *WeaponSystem {
	return &WeaponSystem{deps: deps, game: game}
}

func (s *WeaponSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *WeaponSystem) Update(dt time.Duration) {
	step := float32(dt.Seconds())
	for _, r := range s.deps.Rooms.Rooms() {
		if r.State != world.RoomInGame || r.World == nil {
			continue
		}
		for _, sid := range r.Members() {
			pl, ok := s.deps.Players.Get(sid)
			if !ok || pl.EntityID == 0 {
				continue
			}
			s.tickWeapon(r, pl, step)
		}
	}
}

func (s *WeaponSystem) tickWeapon(r *world.Room, pl *world.Player, step float32) {
	cfg := s.deps.Config.Game
	w := &pl.Weapon

	if w.FireDelay > 0 {
		w.FireDelay -= step
	}

	if w.Reloading {
		w.Cooldown -= step
		if w.Cooldown <= 0 {
			w.Reloading = false
			w.Cooldown = 0
			w.Magazine = w.MagSize
			sendAmmo(s.deps, pl)
		}
		return
	}

	if pl.InputMask&world.InputFire == 0 || w.FireDelay > 0 || w.Magazine == 0 {
		return
	}

	muzzle := packet.Vec2{
		X: pl.Pos.X + float32(cfg.PlayerSizeX)/2,
		Y: pl.Pos.Y,
	}
	s.game.SpawnBullet(r, packet.EntityBullet, pl.SessionID,
		muzzle,
		packet.Vec2{X: float32(cfg.BulletSpeed), Y: 0},
		int32(cfg.BulletDamage),
		float32(cfg.BulletTTL),
	)

	w.Magazine--
	// Carry the overshoot so the average cadence matches the interval.
	w.FireDelay += float32(cfg.FireInterval)
	if w.Magazine == 0 {
		w.Reloading = true
		w.Cooldown = float32(cfg.ReloadTime)
	}
	sendAmmo(s.deps, pl)
}
