package system

import (
	"time"

	"github.com/airtrap/server/internal/core/ecs"
	"github.com/airtrap/server/internal/core/event"
	coresys "github.com/airtrap/server/internal/core/system"
	"github.com/airtrap/server/internal/data"
	"github.com/airtrap/server/internal/handler"
	gonet "github.com/airtrap/server/internal/net"
	"github.com/airtrap/server/internal/net/packet"
	"github.com/airtrap/server/internal/scripting"
	"github.com/airtrap/server/internal/world"
	"go.uber.org/zap"
)

// GameSystem owns the per-room entity lifecycle: it advances the global
// tick, opens the ready gate, spawns avatars when a room starts, and is the
// single place entities are created and destroyed with their spawn/death
// broadcasts. Phase 1 (PreUpdate), after event dispatch.
type GameSystem struct {
	deps   *handler.Deps
	levels *data.LevelTable
	lua    *scripting.Engine
	tick   uint32
	log    *zap.Logger
}

func NewGameSystem(deps *handler.Deps, levels *data.LevelTable, lua *scripting.Engine, log *zap.Logger) *GameSystem {
	return &GameSystem{
		deps:   deps,
		levels: levels,
		lua:    lua,
		log:    log,
	}
}

func (g *GameSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

// Tick is the global simulation tick stamped into snapshots.
func (g *GameSystem) Tick() uint32 { return g.tick }

func (g *GameSystem) Update(_ time.Duration) {
	g.tick++

	for _, r := range g.deps.Rooms.LaunchReady() {
		g.startRoom(r)
		event.Emit(g.deps.Bus, event.RoomStarted{RoomID: r.ID})
	}
}

// startRoom builds the room's simulation world, schedules its waves,
// spawns one avatar per non-spectator member, and tells everyone.
func (g *GameSystem) startRoom(r *world.Room) {
	level := g.levels.Get(r.LevelID)
	r.World = world.NewGameWorld()
	r.Elapsed = 0
	r.NextWave = 0
	r.FieldW = level.FieldW
	r.FieldH = level.FieldH

	if level.WaveScript != "" && g.lua != nil {
		waves, err := g.lua.BuildWaves(level.WaveScript, r.Seed, r.Difficulty, r.Duration)
		if err != nil {
			g.log.Warn("波次腳本失敗，改用內建排程",
				zap.Uint32("room", r.ID),
				zap.String("script", level.WaveScript),
				zap.Error(err),
			)
			waves = scripting.DefaultWaves(r.Seed, r.Difficulty, r.Duration, r.FieldH)
		}
		r.Waves = waves
	} else {
		r.Waves = scripting.DefaultWaves(r.Seed, r.Difficulty, r.Duration, r.FieldH)
	}

	sendToRoom(g.deps, r, packet.New(packet.OpStartGame))

	members := r.Members()
	for i, sid := range members {
		pl, ok := g.deps.Players.Get(sid)
		if !ok || pl.Spectator || pl.EntityID != 0 {
			continue
		}
		g.spawnAvatar(r, pl, i)
	}
	for _, sid := range members {
		g.sendEntities(r, sid)
		if sess, ok := g.deps.Players.Get(sid); ok {
			sess.Session.SetState(packet.StateInGame)
		}
	}

	g.log.Info("房間開始遊戲",
		zap.Uint32("room", r.ID),
		zap.Int("members", len(members)),
		zap.Int("waves", len(r.Waves)),
	)
}

// spawnAvatar creates the player's network-visible entity. The spawn
// broadcast happens via sendEntities once every avatar exists.
func (g *GameSystem) spawnAvatar(r *world.Room, pl *world.Player, slot int) {
	cfg := g.deps.Config.Game
	pos := packet.Vec2{
		X: float32(cfg.SpawnX),
		Y: float32(cfg.SpawnY) + float32(slot)*float32(cfg.PlayerSizeY)*3,
	}

	netID := world.NextNetID()
	e, err := r.World.ECS.CreateEntity()
	if err != nil {
		g.log.Error("無法建立分身實體", zap.Error(err))
		return
	}
	w := r.World
	ecs.Add(w.ECS, w.Transforms, e, world.Transform{Pos: pos})
	ecs.Add(w.ECS, w.Velocities, e, world.Velocity{})
	ecs.Add(w.ECS, w.NetIDs, e, world.NetID{ID: netID, Type: packet.EntityPlayer})
	ecs.Add(w.ECS, w.Colliders, e, world.Collider{W: float32(cfg.PlayerSizeX), H: float32(cfg.PlayerSizeY)})
	ecs.Add(w.ECS, w.Healths, e, world.Health{Current: int32(cfg.PlayerHP), Max: int32(cfg.PlayerHP)})
	ecs.Add(w.ECS, w.Owners, e, world.Owner{SessionID: pl.SessionID})
	w.Track(netID, e)

	pl.EntityID = netID
	pl.Pos = pos
	pl.Vel = packet.Vec2{}
	pl.Weapon = world.WeaponState{
		Magazine: uint16(cfg.MagazineSize),
		MagSize:  uint16(cfg.MagazineSize),
	}
	sendAmmo(g.deps, pl)
}

// sendEntities replays every live entity in the room as EntitySpawn packets
// to one session.
func (g *GameSystem) sendEntities(r *world.Room, sessionID uint32) {
	if r.World == nil {
		return
	}
	w := r.World
	w.NetIDs.Each(func(e ecs.EntityID, n *world.NetID) {
		if _, tracked := w.ByNetID(n.ID); !tracked {
			return
		}
		t, ok := w.Transforms.Get(e)
		if !ok {
			return
		}
		var sizeX, sizeY float32
		if c, ok := w.Colliders.Get(e); ok {
			sizeX, sizeY = c.W, c.H
		}
		p := packet.New(packet.OpEntitySpawn)
		if err := (&packet.EntitySpawnPayload{
			NetID: n.ID,
			Type:  n.Type,
			PosX:  t.Pos.X,
			PosY:  t.Pos.Y,
			SizeX: sizeX,
			SizeY: sizeY,
		}).EncodeTo(p); err != nil {
			return
		}
		g.deps.Net.Send(sessionID, p, gonet.ChannelStream)
	})
}

// ResyncSession catches a mid-game joiner up: StartGame, then the full
// entity set, before the next snapshot reaches it.
func (g *GameSystem) ResyncSession(r *world.Room, sessionID uint32) {
	g.deps.Net.Send(sessionID, packet.New(packet.OpStartGame), gonet.ChannelStream)
	g.sendEntities(r, sessionID)
}

// ReleaseAvatar destroys the player's entity and broadcasts its death to
// whoever is still in the room. Safe on rooms that never started.
func (g *GameSystem) ReleaseAvatar(r *world.Room, pl *world.Player) {
	if pl.EntityID == 0 || r == nil || r.World == nil {
		pl.EntityID = 0
		return
	}
	netID := pl.EntityID
	pl.EntityID = 0

	e, ok := r.World.ByNetID(netID)
	pos := pl.Pos
	if ok {
		if t, found := r.World.Transforms.Get(e); found {
			pos = t.Pos
		}
		r.World.Untrack(netID)
		r.World.ECS.Destroy(e)
	}

	broadcastDeath(g.deps, r, packet.EntityDeathPayload{
		NetID:    netID,
		Type:     packet.EntityPlayer,
		Position: pos,
	})
}

// KillEntity removes any network-visible entity with its death broadcast
// and fires the kill event for scorekeeping.
func (g *GameSystem) KillEntity(r *world.Room, e ecs.EntityID, killerSession uint32) {
	w := r.World
	n, ok := w.NetIDs.Get(e)
	if !ok {
		return
	}
	if _, tracked := w.ByNetID(n.ID); !tracked {
		return // already dying this tick
	}
	var pos packet.Vec2
	if t, found := w.Transforms.Get(e); found {
		pos = t.Pos
	}
	netID, typ := n.ID, n.Type

	// A dead avatar also frees the player's entity slot.
	if typ == packet.EntityPlayer {
		if o, found := w.Owners.Get(e); found {
			if pl, found := g.deps.Players.Get(o.SessionID); found {
				pl.EntityID = 0
			}
		}
	}

	var score uint32
	if ai, found := w.Enemies.Get(e); found {
		score = ai.Score
	}

	w.Untrack(netID)
	w.ECS.MarkForDestruction(e)

	broadcastDeath(g.deps, r, packet.EntityDeathPayload{NetID: netID, Type: typ, Position: pos})
	event.Emit(g.deps.Bus, event.EntityKilled{
		RoomID:        r.ID,
		NetID:         netID,
		KillerSession: killerSession,
		Score:         score,
	})
}

// DespawnEntity removes an entity that expired or left the field. It still
// broadcasts EntityDeath so client mirrors stay in lockstep, but no kill
// event fires.
func (g *GameSystem) DespawnEntity(r *world.Room, e ecs.EntityID) {
	w := r.World
	n, ok := w.NetIDs.Get(e)
	if !ok {
		w.ECS.MarkForDestruction(e)
		return
	}
	if _, tracked := w.ByNetID(n.ID); !tracked {
		return // already dying this tick
	}
	var pos packet.Vec2
	if t, found := w.Transforms.Get(e); found {
		pos = t.Pos
	}
	netID, typ := n.ID, n.Type
	w.Untrack(netID)
	w.ECS.MarkForDestruction(e)
	broadcastDeath(g.deps, r, packet.EntityDeathPayload{NetID: netID, Type: typ, Position: pos})
}

// SpawnEnemy creates a scripted enemy at the given position and announces it.
func (g *GameSystem) SpawnEnemy(r *world.Room, tmpl *data.EnemyTemplate, x, y float32) {
	w := r.World
	e, err := w.ECS.CreateEntity()
	if err != nil {
		g.log.Error("無法建立敵人實體", zap.Error(err))
		return
	}
	netID := world.NextNetID()
	pos := packet.Vec2{X: x, Y: y}
	vel := packet.Vec2{X: -tmpl.Speed * r.Speed, Y: 0}

	ecs.Add(w.ECS, w.Transforms, e, world.Transform{Pos: pos})
	ecs.Add(w.ECS, w.Velocities, e, world.Velocity{Dir: vel})
	ecs.Add(w.ECS, w.NetIDs, e, world.NetID{ID: netID, Type: packet.EntityType(tmpl.TypeID)})
	ecs.Add(w.ECS, w.Colliders, e, world.Collider{W: tmpl.SizeX, H: tmpl.SizeY})
	ecs.Add(w.ECS, w.Healths, e, world.Health{Current: tmpl.HP, Max: tmpl.HP})
	ecs.Add(w.ECS, w.Enemies, e, world.EnemyAI{
		Speed:      tmpl.Speed,
		FirePeriod: tmpl.FirePeriod,
		FireTimer:  tmpl.FirePeriod,
		Score:      tmpl.Score,
		Damage:     tmpl.Damage,
	})
	w.Track(netID, e)

	broadcastSpawn(g.deps, r, packet.EntitySpawnPayload{
		NetID: netID,
		Type:  packet.EntityType(tmpl.TypeID),
		PosX:  x,
		PosY:  y,
		SizeX: tmpl.SizeX,
		SizeY: tmpl.SizeY,
	})
}

// SpawnBullet creates a projectile and announces it. ownerSession is 0 for
// enemy fire.
func (g *GameSystem) SpawnBullet(r *world.Room, typ packet.EntityType, ownerSession uint32, pos, vel packet.Vec2, damage int32, ttl float32) {
	w := r.World
	e, err := w.ECS.CreateEntity()
	if err != nil {
		g.log.Error("無法建立子彈實體", zap.Error(err))
		return
	}
	netID := world.NextNetID()

	ecs.Add(w.ECS, w.Transforms, e, world.Transform{Pos: pos})
	ecs.Add(w.ECS, w.Velocities, e, world.Velocity{Dir: vel})
	ecs.Add(w.ECS, w.NetIDs, e, world.NetID{ID: netID, Type: typ})
	ecs.Add(w.ECS, w.Colliders, e, world.Collider{W: 8, H: 4})
	ecs.Add(w.ECS, w.Owners, e, world.Owner{SessionID: ownerSession})
	ecs.Add(w.ECS, w.Lifetimes, e, world.Lifetime{Remaining: ttl})
	ecs.Add(w.ECS, w.Projectiles, e, world.Projectile{Damage: damage})
	w.Track(netID, e)

	broadcastSpawn(g.deps, r, packet.EntitySpawnPayload{
		NetID: netID,
		Type:  typ,
		PosX:  pos.X,
		PosY:  pos.Y,
		SizeX: 8,
		SizeY: 4,
	})
}
