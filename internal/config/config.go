// Package config provides Viper-based configuration loading for the arena
// server.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig holds the websocket listener settings.
type ServerConfig struct {
	// Host is the bind address for the HTTP/websocket listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the HTTP/websocket listener.
	Port int `mapstructure:"port"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// CombatConfig holds the tunable parameters of the combat engine.
type CombatConfig struct {
	// TickIntervalMs is the fixed interval of the regeneration/NPC tick.
	TickIntervalMs int `mapstructure:"tick_interval_ms"`
	// ActionRechargeMs is the time a player needs to accrue one action point.
	ActionRechargeMs int `mapstructure:"action_recharge_ms"`
	// MonsterRechargeMultiplier scales monster recharge relative to players
	// when a monster definition carries no explicit rate.
	MonsterRechargeMultiplier int `mapstructure:"monster_recharge_multiplier"`
	// MaxActionPoints is the action point cap for every combatant.
	MaxActionPoints int `mapstructure:"max_action_points"`
	// MonstersPerPlayer scales the generated opposition: the encounter gets
	// max(1, floor(players × MonstersPerPlayer)) monsters.
	MonstersPerPlayer float64 `mapstructure:"monsters_per_player"`
	// GraceDelayMs is the pause between the final combat update and the
	// ended notification.
	GraceDelayMs int `mapstructure:"grace_delay_ms"`
	// RetentionMs is how long an ended combat stays readable before
	// eviction.
	RetentionMs int `mapstructure:"retention_ms"`
}

// ContentConfig holds the content directory layout.
type ContentConfig struct {
	// ClassesDir contains the character class YAML definitions.
	ClassesDir string `mapstructure:"classes_dir"`
	// MonstersDir contains the monster YAML definitions.
	MonstersDir string `mapstructure:"monsters_dir"`
	// EffectsDir contains the status-effect YAML definitions.
	EffectsDir string `mapstructure:"effects_dir"`
	// ScriptsDir contains optional Lua narration hooks; empty disables them.
	ScriptsDir string `mapstructure:"scripts_dir"`
	// ScriptInstructionLimit caps Lua opcodes per hook call; 0 uses the
	// scripting package default.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
}

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Combat  CombatConfig  `mapstructure:"combat"`
	Content ContentConfig `mapstructure:"content"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error
// describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateCombat(c.Combat); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateContent(c.Content); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", s.Port)
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateCombat(c CombatConfig) error {
	var errs []string
	if c.TickIntervalMs < 1 {
		errs = append(errs, fmt.Sprintf("combat.tick_interval_ms must be >= 1, got %d", c.TickIntervalMs))
	}
	if c.ActionRechargeMs < 1 {
		errs = append(errs, fmt.Sprintf("combat.action_recharge_ms must be >= 1, got %d", c.ActionRechargeMs))
	}
	if c.MonsterRechargeMultiplier < 1 {
		errs = append(errs, fmt.Sprintf("combat.monster_recharge_multiplier must be >= 1, got %d", c.MonsterRechargeMultiplier))
	}
	if c.MaxActionPoints < 1 {
		errs = append(errs, fmt.Sprintf("combat.max_action_points must be >= 1, got %d", c.MaxActionPoints))
	}
	if c.MonstersPerPlayer <= 0 {
		errs = append(errs, fmt.Sprintf("combat.monsters_per_player must be > 0, got %g", c.MonstersPerPlayer))
	}
	if c.GraceDelayMs < 0 {
		errs = append(errs, fmt.Sprintf("combat.grace_delay_ms must be >= 0, got %d", c.GraceDelayMs))
	}
	if c.RetentionMs < 0 {
		errs = append(errs, fmt.Sprintf("combat.retention_ms must be >= 0, got %d", c.RetentionMs))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.ClassesDir == "" {
		errs = append(errs, "content.classes_dir must not be empty")
	}
	if c.MonstersDir == "" {
		errs = append(errs, "content.monsters_dir must not be empty")
	}
	if c.EffectsDir == "" {
		errs = append(errs, "content.effects_dir must not be empty")
	}
	if c.ScriptInstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("content.script_instruction_limit must be >= 0, got %d", c.ScriptInstructionLimit))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment
// variable overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with ARENA_ prefix
	v.SetEnvPrefix("ARENA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("combat.tick_interval_ms", 1000)
	v.SetDefault("combat.action_recharge_ms", 6000)
	v.SetDefault("combat.monster_recharge_multiplier", 3)
	v.SetDefault("combat.max_action_points", 3)
	v.SetDefault("combat.monsters_per_player", 1.5)
	v.SetDefault("combat.grace_delay_ms", 500)
	v.SetDefault("combat.retention_ms", 60000)

	v.SetDefault("content.classes_dir", "content/classes")
	v.SetDefault("content.monsters_dir", "content/monsters")
	v.SetDefault("content.effects_dir", "content/effects")
	v.SetDefault("content.scripts_dir", "")
	v.SetDefault("content.script_instruction_limit", 0)
}
