package scripting

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// SpawnEvent is one scheduled enemy wave: at Time seconds into the room,
// spawn Count enemies of TypeID stacked vertically from Y with Spacing.
type SpawnEvent struct {
	Time    float64
	TypeID  uint32
	Count   int
	Y       float32
	Spacing float32
}

// Engine wraps a single gopher-lua VM for wave-schedule generation.
// Single-goroutine access only (simulation loop).
type Engine struct {
	vm         *lua.LState
	scriptsDir string
	log        *zap.Logger
}

// NewEngine creates a Lua engine rooted at the given scripts directory.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	return &Engine{vm: vm, scriptsDir: scriptsDir, log: log}, nil
}

func (e *Engine) Close() {
	e.vm.Close()
}

// BuildWaves executes a level's wave script and collects its schedule.
// The script must define build_waves(seed, difficulty, duration) returning
// an array of {t=, enemy=, count=, y=, spacing=} tables.
func (e *Engine) BuildWaves(script string, seed uint32, difficulty float32, duration uint32) ([]SpawnEvent, error) {
	path := filepath.Join(e.scriptsDir, script)
	if err := e.vm.DoFile(path); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	fn := e.vm.GetGlobal("build_waves")
	if fn == lua.LNil {
		return nil, fmt.Errorf("%s: build_waves not defined", script)
	}

	if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true},
		lua.LNumber(seed), lua.LNumber(difficulty), lua.LNumber(duration)); err != nil {
		return nil, fmt.Errorf("call build_waves: %w", err)
	}

	ret := e.vm.Get(-1)
	e.vm.Pop(1)
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("build_waves returned %s, want table", ret.Type())
	}

	var waves []SpawnEvent
	tbl.ForEach(func(_, v lua.LValue) {
		entry, ok := v.(*lua.LTable)
		if !ok {
			return
		}
		waves = append(waves, SpawnEvent{
			Time:    float64(lua.LVAsNumber(entry.RawGetString("t"))),
			TypeID:  uint32(lua.LVAsNumber(entry.RawGetString("enemy"))),
			Count:   int(lua.LVAsNumber(entry.RawGetString("count"))),
			Y:       float32(lua.LVAsNumber(entry.RawGetString("y"))),
			Spacing: float32(lua.LVAsNumber(entry.RawGetString("spacing"))),
		})
	})
	sort.SliceStable(waves, func(i, j int) bool { return waves[i].Time < waves[j].Time })

	e.log.Debug("波次腳本載入完成",
		zap.String("script", script),
		zap.Int("waves", len(waves)),
	)
	return waves, nil
}

// DefaultWaves is the built-in schedule used when a level carries no wave
// script: a drone wave every few seconds, denser with difficulty.
func DefaultWaves(seed uint32, difficulty float32, duration uint32, fieldH float32) []SpawnEvent {
	if duration == 0 {
		duration = 120
	}
	if difficulty <= 0 {
		difficulty = 1
	}
	rng := rand.New(rand.NewSource(int64(seed)))

	interval := 6.0 / float64(difficulty)
	if interval < 1.5 {
		interval = 1.5
	}

	var waves []SpawnEvent
	for t := 3.0; t < float64(duration); t += interval {
		count := 1 + rng.Intn(int(difficulty)+2)
		waves = append(waves, SpawnEvent{
			Time:    t,
			TypeID:  2, // drone
			Count:   count,
			Y:       rng.Float32() * (fieldH - 64),
			Spacing: 48,
		})
	}
	return waves
}
