package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const waveScript = `
function build_waves(seed, difficulty, duration)
    local waves = {}
    waves[1] = { t = 10, enemy = 2, count = 3, y = 100, spacing = 50 }
    waves[2] = { t = 2,  enemy = 5, count = 1, y = 300, spacing = 0 }
    waves[3] = { t = 20 + seed, enemy = 2, count = difficulty * 2, y = 0, spacing = 40 }
    return waves
end
`

func newEngine(t *testing.T, scripts map[string]string) *Engine {
	t.Helper()
	dir := t.TempDir()
	for name, body := range scripts {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	e, err := NewEngine(dir, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestBuildWaves(t *testing.T) {
	e := newEngine(t, map[string]string{"level1.lua": waveScript})

	waves, err := e.BuildWaves("level1.lua", 1, 2.0, 120)
	require.NoError(t, err)
	require.Len(t, waves, 3)

	// Sorted by time regardless of script order.
	assert.Equal(t, 2.0, waves[0].Time)
	assert.Equal(t, uint32(5), waves[0].TypeID)
	assert.Equal(t, 10.0, waves[1].Time)
	assert.Equal(t, 3, waves[1].Count)
	assert.Equal(t, 21.0, waves[2].Time)
	assert.Equal(t, 4, waves[2].Count)
}

func TestBuildWavesMissingScript(t *testing.T) {
	e := newEngine(t, nil)
	_, err := e.BuildWaves("nope.lua", 0, 1, 0)
	assert.Error(t, err)
}

func TestBuildWavesMissingFunction(t *testing.T) {
	e := newEngine(t, map[string]string{"empty.lua": "-- nothing here"})
	_, err := e.BuildWaves("empty.lua", 0, 1, 0)
	assert.Error(t, err)
}

func TestDefaultWavesDeterministic(t *testing.T) {
	a := DefaultWaves(7, 1.0, 60, 1080)
	b := DefaultWaves(7, 1.0, 60, 1080)
	require.NotEmpty(t, a)
	assert.Equal(t, a, b, "same seed must yield the same schedule")

	c := DefaultWaves(8, 1.0, 60, 1080)
	assert.NotEqual(t, a, c)
}

func TestDefaultWavesDifficultyScalesDensity(t *testing.T) {
	easy := DefaultWaves(1, 1.0, 120, 1080)
	hard := DefaultWaves(1, 4.0, 120, 1080)
	assert.Greater(t, len(hard), len(easy))
}
