// Package main provides the arena server binary: the websocket combat
// server backed by the orchestrator and YAML content registries.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/dice"
	"github.com/cory-johannsen/arena/internal/game/effect"
	"github.com/cory-johannsen/arena/internal/game/ruleset"
	"github.com/cory-johannsen/arena/internal/game/session"
	"github.com/cory-johannsen/arena/internal/gameserver"
	"github.com/cory-johannsen/arena/internal/observability"
	"github.com/cory-johannsen/arena/internal/scripting"
	"github.com/cory-johannsen/arena/internal/server"
	"github.com/cory-johannsen/arena/internal/transport/ws"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	classesDir := flag.String("classes-dir", "", "override for the class YAML directory")
	monstersDir := flag.String("monsters-dir", "", "override for the monster YAML directory")
	effectsDir := flag.String("effects-dir", "", "override for the effect YAML directory")
	scriptsDir := flag.String("scripts-dir", "", "override for the Lua narration script directory")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *classesDir != "" {
		cfg.Content.ClassesDir = *classesDir
	}
	if *monstersDir != "" {
		cfg.Content.MonstersDir = *monstersDir
	}
	if *effectsDir != "" {
		cfg.Content.EffectsDir = *effectsDir
	}
	if *scriptsDir != "" {
		cfg.Content.ScriptsDir = *scriptsDir
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting arena server", zap.String("addr", cfg.Server.Addr()))

	cryptoSrc := dice.NewCryptoSource()
	roller := dice.NewLoggedRoller(cryptoSrc, logger)

	// Load content registries.
	contentStart := time.Now()
	classes, err := ruleset.LoadClasses(cfg.Content.ClassesDir)
	if err != nil {
		logger.Fatal("loading class definitions", zap.Error(err))
	}
	monsters, err := ruleset.LoadMonsters(cfg.Content.MonstersDir)
	if err != nil {
		logger.Fatal("loading monster definitions", zap.Error(err))
	}
	effects, err := effect.LoadDirectory(cfg.Content.EffectsDir)
	if err != nil {
		logger.Fatal("loading effect definitions", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("classes", len(classes.All())),
		zap.Int("monsters", monsters.Len()),
		zap.Int("effects", len(effects.All())),
		zap.Duration("elapsed", time.Since(contentStart)),
	)

	// Optional Lua narration hooks.
	var narrator *scripting.Narrator
	if cfg.Content.ScriptsDir != "" {
		if info, err := os.Stat(cfg.Content.ScriptsDir); err == nil && info.IsDir() {
			narrator = scripting.NewNarrator(logger)
			if err := narrator.Load(cfg.Content.ScriptsDir, cfg.Content.ScriptInstructionLimit); err != nil {
				logger.Fatal("loading narration scripts",
					zap.String("dir", cfg.Content.ScriptsDir), zap.Error(err))
			}
			defer narrator.Close()
			logger.Info("narration scripts loaded", zap.String("dir", cfg.Content.ScriptsDir))
		} else {
			logger.Warn("scripts dir not found, narration disabled",
				zap.String("dir", cfg.Content.ScriptsDir))
		}
	}

	sessions := session.NewManager()
	resolver := combat.NewResolver(effects, combat.DefaultSpellbook())
	ticks := gameserver.NewRoomTickManager(time.Duration(cfg.Combat.TickIntervalMs) * time.Millisecond)

	// The websocket server and the orchestrator reference each other; the
	// server is built first with the orchestrator slotted in afterwards.
	var orch *gameserver.Orchestrator
	wsServer := ws.NewServer(sessions, combatService{&orch}, logger)
	orch = gameserver.NewOrchestrator(
		sessions,
		classes,
		monsters,
		resolver,
		roller,
		narrator,
		wsServer,
		ticks,
		cfg.Combat,
		logger,
	)

	mux := http.NewServeMux()
	mux.Handle("/ws", wsServer)
	httpServer := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: mux,
	}

	tickCtx, tickCancel := context.WithCancel(context.Background())

	lc := server.NewSupervisor(logger)
	lc.Add("ticker", &server.FuncService{
		StartFn: func() error {
			ticks.Start(tickCtx)
			<-tickCtx.Done()
			return nil
		},
		StopFn: tickCancel,
	})
	lc.Add("orchestrator", &server.FuncService{
		StartFn: func() error { return nil },
		StopFn:  orch.Stop,
	})
	lc.Add("http", &server.FuncService{
		StartFn: func() error {
			logger.Info("arena server ready",
				zap.String("addr", cfg.Server.Addr()),
				zap.Duration("startup", time.Since(start)),
			)
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
		StopFn: func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("http shutdown", zap.Error(err))
			}
		},
	})

	if err := lc.Run(context.Background()); err != nil {
		logger.Error("lifecycle error", zap.Error(err))
	}
	logger.Info("arena server stopped")
}

// combatService defers orchestrator method calls through a pointer so the
// websocket server can be constructed before the orchestrator exists.
type combatService struct {
	orch **gameserver.Orchestrator
}

func (s combatService) StartCombat(roomID string) bool {
	return (*s.orch).StartCombat(roomID)
}

func (s combatService) HandleAction(uid string, intent combat.Intent) {
	(*s.orch).HandleAction(uid, intent)
}

func (s combatService) CombatInRoom(roomID string) *combat.Combat {
	return (*s.orch).CombatInRoom(roomID)
}
