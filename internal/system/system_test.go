package system

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/airtrap/server/internal/config"
	"github.com/airtrap/server/internal/core/ecs"
	"github.com/airtrap/server/internal/core/event"
	coresys "github.com/airtrap/server/internal/core/system"
	"github.com/airtrap/server/internal/data"
	"github.com/airtrap/server/internal/handler"
	gonet "github.com/airtrap/server/internal/net"
	"github.com/airtrap/server/internal/net/packet"
	"github.com/airtrap/server/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recorder captures outbound packets instead of hitting sockets.
type recorder struct {
	mu   sync.Mutex
	sent []sentPacket
}

type sentPacket struct {
	SessionID uint32
	Op        packet.OpCode
	Ch        gonet.Channel
	Raw       []byte
}

func (r *recorder) Send(sessionID uint32, p *packet.Packet, ch gonet.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentPacket{
		SessionID: sessionID,
		Op:        p.Header.Op,
		Ch:        ch,
		Raw:       p.Serialize(),
	})
}

func (r *recorder) CloseSession(uint32) {}

func (r *recorder) take() []sentPacket {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.sent
	r.sent = nil
	return out
}

func (r *recorder) ofOp(op packet.OpCode) []sentPacket {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sentPacket
	for _, sp := range r.sent {
		if sp.Op == op {
			out = append(out, sp)
		}
	}
	return out
}

func decode[T any, PT interface {
	*T
	packet.Decoder
}](t *testing.T, sp sentPacket) T {
	t.Helper()
	p, err := packet.Deserialize(sp.Raw)
	require.NoError(t, err)
	var v T
	require.NoError(t, PT(&v).DecodeFrom(p))
	return v
}

type harness struct {
	deps   *handler.Deps
	game   *GameSystem
	runner *coresys.Runner
	rec    *recorder
	tick   time.Duration
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := config.Defaults()
	log := zap.NewNop()
	rec := &recorder{}
	players := world.NewState()
	rooms := world.NewRoomManager(players)
	bus := event.NewBus()

	deps := &handler.Deps{
		Net:     rec,
		Players: players,
		Rooms:   rooms,
		Config:  cfg,
		Log:     log,
		Bus:     bus,
	}

	game := NewGameSystem(deps, &data.LevelTable{}, nil, log)
	deps.Game = game

	runner := coresys.NewRunner()
	runner.Register(NewEventDispatchSystem(bus))
	runner.Register(game)
	runner.Register(NewMovementSystem(deps))
	runner.Register(NewWeaponSystem(deps, game))
	runner.Register(NewEnemySystem(deps, game, data.DefaultEnemyTable()))
	runner.Register(NewCollisionSystem(deps, game))
	runner.Register(NewLifetimeSystem(deps, game))
	runner.Register(NewSnapshotSystem(deps, game, log))
	runner.Register(NewCleanupSystem(deps))

	return &harness{deps: deps, game: game, runner: runner, rec: rec, tick: cfg.Network.TickRate}
}

// join creates a logged-in player backed by a pipe session.
func (h *harness) join(t *testing.T, id uint32, name string) *world.Player {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { server.Close(); client.Close() })
	sess := gonet.NewSession(server, id, 16, time.Second, zap.NewNop())

	pl := world.NewPlayer(sess)
	pl.Username = name
	pl.LoggedIn = true
	h.deps.Players.Add(pl)
	h.deps.Rooms.JoinLobby(pl)
	sess.SetState(packet.StateLobby)
	return pl
}

func (h *harness) steps(n int) {
	for i := 0; i < n; i++ {
		h.runner.Tick(h.tick)
	}
}

func TestSinglePlayerRoomStart(t *testing.T) {
	h := newHarness(t)
	pl := h.join(t, 1, "alice")

	r := h.deps.Rooms.CreateRoom(1, "r", 2, 1.0, 1.0, 1, 0, 0)
	_, err := h.deps.Rooms.Join(pl, r.ID, false)
	require.NoError(t, err)
	pl.Ready = true

	h.steps(2)

	// Within two ticks: StartGame plus exactly one avatar spawn.
	require.Len(t, h.rec.ofOp(packet.OpStartGame), 1)
	spawns := h.rec.ofOp(packet.OpEntitySpawn)
	require.Len(t, spawns, 1)
	spawn := decode[packet.EntitySpawnPayload](t, spawns[0])
	assert.Equal(t, packet.EntityPlayer, spawn.Type)
	assert.Equal(t, pl.EntityID, spawn.NetID)
	assert.NotZero(t, pl.EntityID)

	// The fresh magazine was announced.
	require.NotEmpty(t, h.rec.ofOp(packet.OpAmmoUpdate))
	assert.Equal(t, packet.StateInGame, pl.Session.State())
}

func TestInputMovesAvatar(t *testing.T) {
	h := newHarness(t)
	pl := h.join(t, 1, "alice")
	r := h.deps.Rooms.CreateRoom(1, "r", 2, 1.0, 1.0, 0, 0, 0)
	_, err := h.deps.Rooms.Join(pl, r.ID, false)
	require.NoError(t, err)
	pl.Ready = true
	h.steps(1)

	startX := pl.Pos.X
	pl.InputMask = world.InputRight

	// One second of simulated time.
	ticks := int(time.Second / h.tick)
	h.steps(ticks)

	moved := pl.Pos.X - startX
	expected := float32(h.deps.Config.Game.BaseSpeed) // speed 1.0 for 1 s
	perTick := expected / float32(ticks)
	assert.InDelta(t, expected, moved, float64(perTick)+0.01,
		"1s of Right at speed 1.0 must advance x by base_speed ± one tick")

	// Velocity is reflected in the snapshot.
	snaps := h.rec.ofOp(packet.OpRoomUpdate)
	require.NotEmpty(t, snaps)
	last := snaps[len(snaps)-1]
	assert.Equal(t, gonet.ChannelDatagram, last.Ch)

	p, err := packet.Deserialize(last.Raw)
	require.NoError(t, err)
	var head packet.RoomSnapshotPayload
	require.NoError(t, head.DecodeFrom(p))
	assert.Equal(t, r.ID, head.RoomID)
	assert.Equal(t, byte(1), head.InGame)
	entries, err := packet.ReadVector[packet.EntitySnapshotPayload](p)
	require.NoError(t, err)

	var found bool
	for _, e := range entries {
		if e.NetID == pl.EntityID {
			found = true
			assert.Equal(t, expected, e.Velocity.X)
		}
	}
	assert.True(t, found, "avatar must appear in every snapshot")
}

func TestSnapshotPerMemberInvariant(t *testing.T) {
	h := newHarness(t)
	a := h.join(t, 1, "a")
	b := h.join(t, 2, "b")
	r := h.deps.Rooms.CreateRoom(1, "r", 4, 1.0, 1.0, 0, 0, 0)
	h.deps.Rooms.Join(a, r.ID, false)
	h.deps.Rooms.Join(b, r.ID, false)
	a.Ready, b.Ready = true, true
	h.steps(1)
	h.rec.take()

	h.steps(1)
	snaps := h.rec.ofOp(packet.OpRoomUpdate)
	// One snapshot per member per tick.
	require.Len(t, snaps, 2)

	p, err := packet.Deserialize(snaps[0].Raw)
	require.NoError(t, err)
	var head packet.RoomSnapshotPayload
	require.NoError(t, head.DecodeFrom(p))
	entries, err := packet.ReadVector[packet.EntitySnapshotPayload](p)
	require.NoError(t, err)

	counts := map[uint32]int{}
	for _, e := range entries {
		counts[e.NetID]++
	}
	assert.Equal(t, 1, counts[a.EntityID], "exactly one entry per avatar")
	assert.Equal(t, 1, counts[b.EntityID])
}

func TestLeaveBroadcastsDeathAndDestroysEmptyRoom(t *testing.T) {
	h := newHarness(t)
	a := h.join(t, 1, "a")
	b := h.join(t, 2, "b")
	r := h.deps.Rooms.CreateRoom(1, "r", 4, 1.0, 1.0, 0, 0, 0)
	h.deps.Rooms.Join(a, r.ID, false)
	h.deps.Rooms.Join(b, r.ID, false)
	a.Ready, b.Ready = true, true
	h.steps(1)
	aEntity := a.EntityID
	require.NotZero(t, aEntity)
	h.rec.take()

	// A leaves: the remaining member gets the avatar death.
	left, ok := h.deps.Rooms.Leave(a)
	require.True(t, ok)
	h.deps.Game.ReleaseAvatar(left, a)

	deaths := h.rec.ofOp(packet.OpEntityDeath)
	require.Len(t, deaths, 1)
	assert.Equal(t, b.SessionID, deaths[0].SessionID)
	death := decode[packet.EntityDeathPayload](t, deaths[0])
	assert.Equal(t, aEntity, death.NetID)
	assert.Equal(t, packet.EntityPlayer, death.Type)
	assert.Zero(t, a.EntityID)

	got, _ := h.deps.Rooms.Get(r.ID)
	assert.Equal(t, []uint32{2}, got.Members())

	// Last member out destroys the room.
	leftB, _ := h.deps.Rooms.Leave(b)
	h.deps.Game.ReleaseAvatar(leftB, b)
	_, exists := h.deps.Rooms.Get(r.ID)
	assert.False(t, exists)
}

func TestSpectatorMidJoinGetsResync(t *testing.T) {
	h := newHarness(t)
	a := h.join(t, 1, "a")
	r := h.deps.Rooms.CreateRoom(1, "r", 1, 1.0, 1.0, 0, 0, 0)
	h.deps.Rooms.Join(a, r.ID, false)
	a.Ready = true
	h.steps(1)
	h.rec.take()

	c := h.join(t, 3, "c")
	joined, err := h.deps.Rooms.Join(c, r.ID, true)
	require.NoError(t, err)
	h.deps.Game.ResyncSession(joined, c.SessionID)

	// StartGame plus one spawn per live entity, all to c only.
	starts := h.rec.ofOp(packet.OpStartGame)
	require.Len(t, starts, 1)
	assert.Equal(t, c.SessionID, starts[0].SessionID)

	spawns := h.rec.ofOp(packet.OpEntitySpawn)
	require.Len(t, spawns, 1)
	assert.Equal(t, c.SessionID, spawns[0].SessionID)
	spawn := decode[packet.EntitySpawnPayload](t, spawns[0])
	assert.Equal(t, a.EntityID, spawn.NetID)

	// The spectator has no avatar but is counted as a member.
	assert.Zero(t, c.EntityID)
	got, _ := h.deps.Rooms.Get(r.ID)
	assert.Len(t, got.Members(), 2)
}

func TestFiringSpawnsBulletAndConsumesAmmo(t *testing.T) {
	h := newHarness(t)
	pl := h.join(t, 1, "alice")
	r := h.deps.Rooms.CreateRoom(1, "r", 2, 1.0, 1.0, 0, 0, 0)
	h.deps.Rooms.Join(pl, r.ID, false)
	pl.Ready = true
	h.steps(1)
	h.rec.take()

	pl.InputMask = world.InputFire
	h.steps(1)
	pl.InputMask = 0

	spawns := h.rec.ofOp(packet.OpEntitySpawn)
	require.Len(t, spawns, 1)
	bullet := decode[packet.EntitySpawnPayload](t, spawns[0])
	assert.Equal(t, packet.EntityBullet, bullet.Type)

	ammos := h.rec.ofOp(packet.OpAmmoUpdate)
	require.NotEmpty(t, ammos)
	ammo := decode[packet.AmmoUpdatePayload](t, ammos[len(ammos)-1])
	assert.Equal(t, uint16(h.deps.Config.Game.MagazineSize-1), ammo.Current)

	// The bullet eventually times out and despawns with a death broadcast.
	h.steps(int(3 * time.Second / h.tick))
	deaths := h.rec.ofOp(packet.OpEntityDeath)
	require.NotEmpty(t, deaths)
	death := decode[packet.EntityDeathPayload](t, deaths[0])
	assert.Equal(t, bullet.NetID, death.NetID)
}

func TestMagazineRunsDryAndReloads(t *testing.T) {
	h := newHarness(t)
	pl := h.join(t, 1, "alice")
	r := h.deps.Rooms.CreateRoom(1, "r", 2, 1.0, 1.0, 0, 0, 0)
	h.deps.Rooms.Join(pl, r.ID, false)
	pl.Ready = true
	h.steps(1)

	pl.InputMask = world.InputFire
	// Hold fire long enough to drain the magazine and trigger the reload.
	mag := h.deps.Config.Game.MagazineSize
	fireTicks := int(float64(mag)*h.deps.Config.Game.FireInterval/h.tick.Seconds()) + 2
	h.steps(fireTicks)

	assert.True(t, pl.Weapon.Reloading || pl.Weapon.Magazine == uint16(mag),
		"magazine must have cycled into a reload (or already completed one)")

	// Wait out the reload.
	pl.InputMask = 0
	h.steps(int(h.deps.Config.Game.ReloadTime/h.tick.Seconds()) + 2)
	assert.False(t, pl.Weapon.Reloading)
	assert.Equal(t, uint16(mag), pl.Weapon.Magazine)
}

func TestEnemyWaveSpawnsAndDies(t *testing.T) {
	h := newHarness(t)
	pl := h.join(t, 1, "alice")
	r := h.deps.Rooms.CreateRoom(1, "r", 2, 1.0, 1.0, 0, 7, 30)
	h.deps.Rooms.Join(pl, r.ID, false)
	pl.Ready = true
	h.steps(1)
	require.NotEmpty(t, r.Waves, "a started room carries a wave schedule")
	h.rec.take()

	// Run until the first wave is due.
	first := r.Waves[0].Time
	h.steps(int(first/h.tick.Seconds()) + 2)

	spawns := h.rec.ofOp(packet.OpEntitySpawn)
	require.NotEmpty(t, spawns, "first wave must have spawned")
	enemy := decode[packet.EntitySpawnPayload](t, spawns[0])
	assert.Equal(t, packet.EntityEnemy, enemy.Type)
	assert.Equal(t, r.FieldW, enemy.PosX)

	// Shoot it down: place the avatar in line and hold fire.
	var killed []event.EntityKilled
	event.Subscribe(h.deps.Bus, func(ev event.EntityKilled) { killed = append(killed, ev) })

	e, ok := r.World.ByNetID(enemy.NetID)
	require.True(t, ok)
	et, err := ecsGet(r, e)
	require.NoError(t, err)

	if av, ok := r.World.ByNetID(pl.EntityID); ok {
		if at, found := r.World.Transforms.Get(av); found {
			at.Pos = packet.Vec2{X: et.Pos.X - 200, Y: et.Pos.Y}
			pl.Pos = at.Pos
		}
	}
	pl.InputMask = world.InputFire
	h.steps(int(2 * time.Second / h.tick))

	require.NotEmpty(t, killed, "the enemy must die to player fire")
	assert.Equal(t, pl.SessionID, killed[0].KillerSession)
	assert.NotZero(t, killed[0].Score)

	deaths := h.rec.ofOp(packet.OpEntityDeath)
	var enemyDied bool
	for _, d := range deaths {
		if decode[packet.EntityDeathPayload](t, d).NetID == enemy.NetID {
			enemyDied = true
		}
	}
	assert.True(t, enemyDied)
}

// ecsGet pulls an entity transform through the locked accessor.
func ecsGet(r *world.Room, e ecs.EntityID) (*world.Transform, error) {
	return ecs.Get(r.World.ECS, r.World.Transforms, e)
}
