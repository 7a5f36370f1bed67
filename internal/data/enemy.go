package data

import (
	"fmt"
	"os"

	"github.com/airtrap/server/internal/net/packet"
	"gopkg.in/yaml.v3"
)

// EnemyTemplate holds static data for an enemy type loaded from YAML.
type EnemyTemplate struct {
	TypeID     uint32  `yaml:"type_id"`
	Name       string  `yaml:"name"`
	HP         int32   `yaml:"hp"`
	Speed      float32 `yaml:"speed"`       // leftward drift, units/s before room speed
	SizeX      float32 `yaml:"size_x"`
	SizeY      float32 `yaml:"size_y"`
	FirePeriod float32 `yaml:"fire_period"` // seconds between shots, 0 = never fires
	Damage     int32   `yaml:"damage"`      // damage of each bullet it fires
	Score      uint32  `yaml:"score"`
}

type enemyListFile struct {
	Enemies []EnemyTemplate `yaml:"enemies"`
}

// EnemyTable holds all enemy templates indexed by TypeID.
type EnemyTable struct {
	templates map[uint32]*EnemyTemplate
}

// LoadEnemyTable loads enemy templates from a YAML file.
func LoadEnemyTable(path string) (*EnemyTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read enemy_list: %w", err)
	}
	var f enemyListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse enemy_list: %w", err)
	}
	t := &EnemyTable{templates: make(map[uint32]*EnemyTemplate, len(f.Enemies))}
	for i := range f.Enemies {
		e := &f.Enemies[i]
		t.templates[e.TypeID] = e
	}
	return t, nil
}

// Get returns the template for a type ID, or nil.
func (t *EnemyTable) Get(typeID uint32) *EnemyTemplate {
	return t.templates[typeID]
}

func (t *EnemyTable) Count() int {
	return len(t.templates)
}

// DefaultEnemyTable is used when no data file is deployed next to the
// binary. It holds only the drone; waves naming any other type ID spawn
// nothing with this table.
func DefaultEnemyTable() *EnemyTable {
	stock := []EnemyTemplate{
		{TypeID: uint32(packet.EntityEnemy), Name: "drone", HP: 10, Speed: 80, SizeX: 24, SizeY: 24, FirePeriod: 2.5, Damage: 10, Score: 100},
	}
	t := &EnemyTable{templates: make(map[uint32]*EnemyTemplate, len(stock))}
	for i := range stock {
		t.templates[stock[i].TypeID] = &stock[i]
	}
	return t
}
