package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/airtrap/server/internal/auth"
	"github.com/airtrap/server/internal/config"
	"github.com/airtrap/server/internal/core/event"
	coresys "github.com/airtrap/server/internal/core/system"
	"github.com/airtrap/server/internal/data"
	"github.com/airtrap/server/internal/handler"
	"github.com/airtrap/server/internal/metrics"
	gonet "github.com/airtrap/server/internal/net"
	"github.com/airtrap/server/internal/net/packet"
	"github.com/airtrap/server/internal/scripting"
	"github.com/airtrap/server/internal/system"
	"github.com/airtrap/server/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string, serverID int) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m             airtrap  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m      R-Type 合作射擊 · Go 遊戲伺服器      \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1m伺服器:\033[0m %s \033[90m(編號: %d)\033[0m\n\n", serverName, serverID)
}

func printSection(title string) {
	// Use display width for CJK characters (each CJK char = 2 columns)
	displayWidth := 0
	for _, r := range title {
		if r > 0x7F {
			displayWidth += 2
		} else {
			displayWidth++
		}
	}
	lineLen := 46 - displayWidth - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	displayWidth := 0
	for _, r := range label {
		if r > 0x7F {
			displayWidth += 2
		} else {
			displayWidth++
		}
	}
	dotsLen := 42 - displayWidth - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("AIRTRAP_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadOrDefaults(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// The single positional argument selects the transport driver, the
	// descendant of the old network-plugin path.
	if len(os.Args) > 1 && os.Args[1] != "" {
		cfg.Network.Driver = os.Args[1]
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.ID)

	// 3. Credential store
	printSection("資料載入")
	authStore := auth.NewStore(cfg.Auth.CredentialsPath, log)
	printOK(fmt.Sprintf("帳號檔 %s", cfg.Auth.CredentialsPath))

	// 4. Data tables; built-in defaults when no files are deployed.
	enemyTable := data.DefaultEnemyTable()
	if t, err := data.LoadEnemyTable(cfg.Data.EnemyList); err == nil {
		enemyTable = t
	} else if !errors.Is(err, os.ErrNotExist) {
		log.Warn("敵人表載入失敗，使用內建表", zap.Error(err))
	}
	printStat("敵人模板", enemyTable.Count())

	var levelTable *data.LevelTable
	if t, err := data.LoadLevelTable(cfg.Data.LevelList); err == nil {
		levelTable = t
		printStat("關卡定義", levelTable.Count())
	} else {
		printStat("關卡定義", 0)
	}

	// 5. Lua wave scripting
	luaEngine, err := scripting.NewEngine(cfg.Scripting.Dir, log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()
	printOK("Lua 波次引擎就緒")
	fmt.Println()

	// 6. World state, room manager, event bus
	players := world.NewState()
	rooms := world.NewRoomManager(players)
	bus := event.NewBus()

	// 7. Transport driver
	netServer, err := gonet.OpenDriver(cfg.Network.Driver, gonet.Options{
		TCPAddr:      cfg.Network.TCPAddress,
		UDPAddr:      cfg.Network.UDPAddress,
		OutQueueSize: cfg.Network.OutQueueSize,
		EventQueue:   cfg.Network.EventQueueSize,
		WriteTimeout: cfg.Network.WriteTimeout,
	}, log)
	if err != nil {
		return fmt.Errorf("transport: %w", err)
	}
	netServer.Start()

	// 8. Handler registry and systems
	deps := &handler.Deps{
		Net:     netServer,
		Auth:    authStore,
		Players: players,
		Rooms:   rooms,
		Config:  cfg,
		Log:     log,
		Bus:     bus,
	}
	pktReg := packet.NewRegistry(log)
	handler.RegisterAll(pktReg, deps)

	gameSys := system.NewGameSystem(deps, levelTable, luaEngine, log)
	deps.Game = gameSys

	runner := coresys.NewRunner()
	// Phase 0: Input — transport events become game state
	runner.Register(system.NewInputSystem(netServer, pktReg, deps, log))
	// Phase 1: Event dispatch + ready gate / room starts
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(gameSys)
	// Phase 2: Game logic
	runner.Register(system.NewMovementSystem(deps))
	runner.Register(system.NewWeaponSystem(deps, gameSys))
	runner.Register(system.NewEnemySystem(deps, gameSys, enemyTable))
	runner.Register(system.NewCollisionSystem(deps, gameSys))
	// Phase 3: Post-update
	runner.Register(system.NewLifetimeSystem(deps, gameSys))
	// Phase 4: Output
	runner.Register(system.NewSnapshotSystem(deps, gameSys, log))
	// Phase 5: Cleanup
	runner.Register(system.NewCleanupSystem(deps))

	// Subscribe to game events (kill feed into the log for now).
	event.Subscribe(bus, func(ev event.EntityKilled) {
		log.Debug("event: EntityKilled",
			zap.Uint32("room", ev.RoomID),
			zap.Uint32("net_id", ev.NetID),
			zap.Uint32("killer", ev.KillerSession),
			zap.Uint32("score", ev.Score),
		)
	})
	event.Subscribe(bus, func(ev event.RoomStarted) {
		log.Info("event: RoomStarted", zap.Uint32("room", ev.RoomID))
	})

	// 9. Metrics
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		m.Serve(cfg.Metrics.Address, log)
		runner.Register(system.NewMetricsSystem(deps, m, netServer))
		printOK(fmt.Sprintf("metrics 於 %s/metrics", cfg.Metrics.Address))
	}

	// 10. Fixed-timestep game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Network.TickRate)
	defer ticker.Stop()

	printSection("伺服器就緒")
	printReady(fmt.Sprintf("TCP 監聽 %s", netServer.Addr().String()))
	printReady(fmt.Sprintf("UDP 監聽 %s", netServer.UDPAddr().String()))
	printReady(fmt.Sprintf("遊戲迴圈啟動 (tick: %s)", cfg.Network.TickRate))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			runner.Tick(cfg.Network.TickRate)
			if m != nil {
				m.TickDuration.Observe(time.Since(start).Seconds())
			}
		case sig := <-shutdownCh:
			log.Info("收到關閉信號", zap.String("signal", sig.String()))
			netServer.Shutdown()
			log.Info("伺服器已停止")
			return nil
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
