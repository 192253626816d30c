package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
)

const (
	defaultDataDir               = "data"
	defaultStatusAddr            = ":8090"
	defaultMaxConcurrentCommands = 8
	defaultPomodoroMaxMinutes    = 180
)

type Config struct {
	// DiscordGuildID is the server the slash commands are registered in.
	DiscordGuildID string
	// DiscordBotToken is loaded exclusively from secrets.toml.
	DiscordBotToken string
	// TrackedChannelIDs limits accounting to specific voice channels.
	// Empty means every voice channel in the guild counts.
	TrackedChannelIDs []string
	// StatusAddr is the HTTP status listen address; empty disables the
	// status endpoint.
	StatusAddr string
	DataDir    string
	// MaxConcurrentCommands bounds how many slash-command interactions
	// are processed at once.
	MaxConcurrentCommands int
	// PomodoroMaxMinutes caps the focus and rest phases of the timer.
	PomodoroMaxMinutes int
}

type fileConfig struct {
	DiscordGuildID        string   `toml:"discord_guild_id"`
	TrackedChannelIDs     []string `toml:"tracked_channel_ids"`
	StatusAddr            *string  `toml:"status_listen"`
	DataDir               string   `toml:"data_dir"`
	MaxConcurrentCommands *int     `toml:"max_concurrent_commands"`
	PomodoroMaxMinutes    *int     `toml:"pomodoro_max_minutes"`
}

// secretsConfig holds the bot token so the main config.toml can be
// shared or checked into version control without leaking credentials.
type secretsConfig struct {
	DiscordBotToken string `toml:"discord_bot_token"`
}

func defaultConfig() Config {
	return Config{
		StatusAddr:            defaultStatusAddr,
		DataDir:               defaultDataDir,
		MaxConcurrentCommands: defaultMaxConcurrentCommands,
		PomodoroMaxMinutes:    defaultPomodoroMaxMinutes,
	}
}

func defaultConfigPath() string {
	return filepath.Join(defaultDataDir, "config.toml")
}

func loadConfig(configPath, secretsPath string) Config {
	cfg := defaultConfig()

	if configPath == "" {
		configPath = defaultConfigPath()
	}

	if fc, ok, err := loadConfigFile(configPath); err != nil {
		fatal("config file", err, "path", configPath)
	} else if ok {
		applyFileConfig(&cfg, *fc)
	} else {
		if err := rewriteConfigFile(configPath, cfg); err != nil {
			fatal("write default config", err, "path", configPath)
		}
		logger.Info("created default config file", "path", configPath)
	}

	if secretsPath == "" {
		secretsPath = filepath.Join(cfg.DataDir, "secrets.toml")
	}
	if sc, ok, err := loadSecretsFile(secretsPath); err != nil {
		fatal("secrets file", err, "path", secretsPath)
	} else if ok {
		applySecretsConfig(&cfg, *sc)
	}

	return cfg
}

func loadConfigFile(path string) (*fileConfig, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}

	var cfg fileConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, true, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, true, nil
}

func loadSecretsFile(path string) (*secretsConfig, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}

	var cfg secretsConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, true, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, true, nil
}

func applyFileConfig(cfg *Config, fc fileConfig) {
	if fc.DiscordGuildID != "" {
		cfg.DiscordGuildID = strings.TrimSpace(fc.DiscordGuildID)
	}
	if len(fc.TrackedChannelIDs) > 0 {
		ids := make([]string, 0, len(fc.TrackedChannelIDs))
		for _, id := range fc.TrackedChannelIDs {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		cfg.TrackedChannelIDs = ids
	}
	if fc.StatusAddr != nil {
		addr := strings.TrimSpace(*fc.StatusAddr)
		// Be forgiving: "8090" means ":8090".
		if addr != "" && !strings.Contains(addr, ":") {
			addr = ":" + addr
		}
		cfg.StatusAddr = addr
	}
	if fc.DataDir != "" {
		cfg.DataDir = fc.DataDir
	}
	if fc.MaxConcurrentCommands != nil && *fc.MaxConcurrentCommands > 0 {
		cfg.MaxConcurrentCommands = *fc.MaxConcurrentCommands
	}
	if fc.PomodoroMaxMinutes != nil && *fc.PomodoroMaxMinutes > 0 {
		cfg.PomodoroMaxMinutes = *fc.PomodoroMaxMinutes
	}
}

func applySecretsConfig(cfg *Config, sc secretsConfig) {
	if sc.DiscordBotToken != "" {
		cfg.DiscordBotToken = strings.TrimSpace(sc.DiscordBotToken)
	}
}

func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.DiscordBotToken) == "" {
		return fmt.Errorf("discord_bot_token is required (set it in %s)", filepath.Join(cfg.DataDir, "secrets.toml"))
	}
	if strings.TrimSpace(cfg.DiscordGuildID) == "" {
		return fmt.Errorf("discord_guild_id is required")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("data_dir cannot be empty")
	}
	if cfg.MaxConcurrentCommands <= 0 {
		return fmt.Errorf("max_concurrent_commands must be > 0, got %d", cfg.MaxConcurrentCommands)
	}
	if cfg.PomodoroMaxMinutes <= 0 {
		return fmt.Errorf("pomodoro_max_minutes must be > 0, got %d", cfg.PomodoroMaxMinutes)
	}
	return nil
}

func rewriteConfigFile(path string, cfg Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	intPtr := func(v int) *int { return &v }
	stringPtr := func(v string) *string { return &v }

	fc := fileConfig{
		DiscordGuildID:        cfg.DiscordGuildID,
		TrackedChannelIDs:     cfg.TrackedChannelIDs,
		StatusAddr:            stringPtr(cfg.StatusAddr),
		DataDir:               cfg.DataDir,
		MaxConcurrentCommands: intPtr(cfg.MaxConcurrentCommands),
		PomodoroMaxMinutes:    intPtr(cfg.PomodoroMaxMinutes),
	}

	data, err := toml.Marshal(fc)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	return atomicWriteFile(path, data)
}

// atomicWriteFile writes data to path via a temp file and rename,
// keeping the previous version as path+".bak".
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmpFile.Name()
	removeTemp := true
	defer func() {
		if tmpFile != nil {
			_ = tmpFile.Close()
		}
		if removeTemp {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	tmpFile = nil

	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}

	bakPath := path + ".bak"
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(bakPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", bakPath, err)
		}
		if err := os.Rename(path, bakPath); err != nil {
			return fmt.Errorf("rename %s to %s: %w", path, bakPath, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s to %s: %w", tmpName, path, err)
	}
	removeTemp = false
	return nil
}
