package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Network   NetworkConfig   `toml:"network"`
	Game      GameConfig      `toml:"game"`
	Auth      AuthConfig      `toml:"auth"`
	Data      DataConfig      `toml:"data"`
	Scripting ScriptingConfig `toml:"scripting"`
	Logging   LoggingConfig   `toml:"logging"`
	Metrics   MetricsConfig   `toml:"metrics"`
}

type ServerConfig struct {
	Name string `toml:"name"`
	ID   int    `toml:"id"`
}

type NetworkConfig struct {
	Driver         string        `toml:"driver"`
	TCPAddress     string        `toml:"tcp_address"`
	UDPAddress     string        `toml:"udp_address"`
	TickRate       time.Duration `toml:"tick_rate"`
	OutQueueSize   int           `toml:"out_queue_size"`
	EventQueueSize int           `toml:"event_queue_size"`
	WriteTimeout   time.Duration `toml:"write_timeout"`
}

type GameConfig struct {
	BaseSpeed    float64 `toml:"base_speed"`    // player units/s at room speed 1.0
	SpawnX       float64 `toml:"spawn_x"`
	SpawnY       float64 `toml:"spawn_y"`
	PlayerHP     int     `toml:"player_hp"`
	PlayerSizeX  float64 `toml:"player_size_x"`
	PlayerSizeY  float64 `toml:"player_size_y"`
	BulletSpeed  float64 `toml:"bullet_speed"`
	BulletTTL    float64 `toml:"bullet_ttl"`    // seconds
	BulletDamage int     `toml:"bullet_damage"`
	MagazineSize int     `toml:"magazine_size"`
	ReloadTime   float64 `toml:"reload_time"`   // seconds
	FireInterval float64 `toml:"fire_interval"` // seconds between shots
}

type AuthConfig struct {
	CredentialsPath string `toml:"credentials_path"`
}

type DataConfig struct {
	EnemyList string `toml:"enemy_list"`
	LevelList string `toml:"level_list"`
}

type ScriptingConfig struct {
	Dir string `toml:"dir"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Defaults()
	if err := toml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefaults reads the config file when it exists, otherwise returns
// the built-in defaults so the server boots from a bare checkout.
func LoadOrDefaults(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Defaults(), nil
	}
	return Load(path)
}

func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name: "airtrap",
			ID:   1,
		},
		Network: NetworkConfig{
			Driver:         "tcpudp",
			TCPAddress:     "0.0.0.0:4242",
			UDPAddress:     "0.0.0.0:4243",
			TickRate:       time.Second / 60,
			OutQueueSize:   256,
			EventQueueSize: 1024,
			WriteTimeout:   10 * time.Second,
		},
		Game: GameConfig{
			BaseSpeed:    200,
			SpawnX:       100,
			SpawnY:       100,
			PlayerHP:     100,
			PlayerSizeX:  32,
			PlayerSizeY:  16,
			BulletSpeed:  600,
			BulletTTL:    2.0,
			BulletDamage: 10,
			MagazineSize: 30,
			ReloadTime:   1.5,
			FireInterval: 0.15,
		},
		Auth: AuthConfig{
			CredentialsPath: "login.txt",
		},
		Data: DataConfig{
			EnemyList: "data/yaml/enemy_list.yaml",
			LevelList: "data/yaml/level_list.yaml",
		},
		Scripting: ScriptingConfig{
			Dir: "scripts",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: "127.0.0.1:9100",
		},
	}
}
