package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LevelDef describes one selectable level: play-field bounds and the wave
// script that schedules its enemies.
type LevelDef struct {
	LevelID    uint32  `yaml:"level_id"`
	Name       string  `yaml:"name"`
	WaveScript string  `yaml:"wave_script"` // lua file under the scripts dir
	FieldW     float32 `yaml:"field_w"`
	FieldH     float32 `yaml:"field_h"`
}

type levelListFile struct {
	Levels []LevelDef `yaml:"levels"`
}

// LevelTable holds all level definitions indexed by LevelID.
type LevelTable struct {
	levels map[uint32]*LevelDef
}

// LoadLevelTable loads level definitions from a YAML file.
func LoadLevelTable(path string) (*LevelTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read level_list: %w", err)
	}
	var f levelListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse level_list: %w", err)
	}
	t := &LevelTable{levels: make(map[uint32]*LevelDef, len(f.Levels))}
	for i := range f.Levels {
		l := &f.Levels[i]
		t.levels[l.LevelID] = l
	}
	return t, nil
}

// Get returns the level definition, falling back to the default field when
// the ID is unknown.
func (t *LevelTable) Get(levelID uint32) *LevelDef {
	if t == nil {
		return defaultLevel
	}
	if l, ok := t.levels[levelID]; ok {
		return l
	}
	return defaultLevel
}

func (t *LevelTable) Count() int {
	return len(t.levels)
}

var defaultLevel = &LevelDef{
	LevelID: 0,
	Name:    "open space",
	FieldW:  1920,
	FieldH:  1080,
}
