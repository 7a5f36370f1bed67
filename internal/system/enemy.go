package system

import (
	"time"

	"github.com/airtrap/server/internal/core/ecs"
	coresys "github.com/airtrap/server/internal/core/system"
	"github.com/airtrap/server/internal/data"
	"github.com/airtrap/server/internal/handler"
	"github.com/airtrap/server/internal/net/packet"
	"github.com/airtrap/server/internal/world"
)

// EnemySystem advances each room's wave schedule and lets live enemies
// fire on their template period. Phase 2 (Update).
type EnemySystem struct {
	deps    *handler.Deps
	game    *GameSystem
	enemies *data.EnemyTable
}

func NewEnemySystem(deps *handler.Deps, game *GameSystem, enemies *data.EnemyTable) *EnemySystem {
	return &EnemySystem{deps: deps, game: game, enemies: enemies}
}

func (s *EnemySystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *EnemySystem) Update(dt time.Duration) {
	step := dt.Seconds()
	for _, r := range s.deps.Rooms.Rooms() {
		if r.State != world.RoomInGame || r.World == nil {
			continue
		}
		r.Elapsed += step
		s.spawnDueWaves(r)
		s.tickFire(r, float32(step))
	}
}

// spawnDueWaves pops every schedule entry whose time has come.
func (s *EnemySystem) spawnDueWaves(r *world.Room) {
	for r.NextWave < len(r.Waves) && r.Waves[r.NextWave].Time <= r.Elapsed {
		wave := r.Waves[r.NextWave]
		r.NextWave++

		tmpl := s.enemies.Get(wave.TypeID)
		if tmpl == nil {
			continue
		}
		for i := 0; i < wave.Count; i++ {
			y := wave.Y + float32(i)*wave.Spacing
			if y > r.FieldH {
				y = r.FieldH
			}
			s.game.SpawnEnemy(r, tmpl, r.FieldW, y)
		}
	}
}

// tickFire decrements enemy fire timers and spawns leftward bullets.
func (s *EnemySystem) tickFire(r *world.Room, step float32) {
	w := r.World
	cfg := s.deps.Config.Game

	type shot struct {
		pos packet.Vec2
		dmg int32
	}
	var shots []shot

	ecs.View2(w.ECS, w.Enemies, w.Transforms, func(_ ecs.EntityID, ai *world.EnemyAI, t *world.Transform) {
		if ai.FirePeriod <= 0 {
			return
		}
		ai.FireTimer -= step
		if ai.FireTimer > 0 {
			return
		}
		ai.FireTimer = ai.FirePeriod
		shots = append(shots, shot{pos: t.Pos, dmg: ai.Damage})
	})

	// Spawning mutates the joined stores, so it happens after the view.
	for _, sh := range shots {
		s.game.SpawnBullet(r, packet.EntityEnemyBullet, 0,
			sh.pos,
			packet.Vec2{X: -float32(cfg.BulletSpeed) / 2, Y: 0},
			sh.dmg,
			float32(cfg.BulletTTL)*2,
		)
	}
}
