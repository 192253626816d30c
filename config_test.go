package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyFileConfigOverlaysOnlySetFields(t *testing.T) {
	cfg := defaultConfig()

	statusAddr := "9100"
	maxCmds := 3
	applyFileConfig(&cfg, fileConfig{
		DiscordGuildID:        " guild-1 ",
		StatusAddr:            &statusAddr,
		MaxConcurrentCommands: &maxCmds,
	})

	if cfg.DiscordGuildID != "guild-1" {
		t.Fatalf("guild id not trimmed/applied: %q", cfg.DiscordGuildID)
	}
	if cfg.StatusAddr != ":9100" {
		t.Fatalf("bare port must be normalized to :9100, got %q", cfg.StatusAddr)
	}
	if cfg.MaxConcurrentCommands != 3 {
		t.Fatalf("max commands not applied: %d", cfg.MaxConcurrentCommands)
	}
	// Untouched fields keep their defaults.
	if cfg.DataDir != defaultDataDir {
		t.Fatalf("data dir must keep its default, got %q", cfg.DataDir)
	}
	if cfg.PomodoroMaxMinutes != defaultPomodoroMaxMinutes {
		t.Fatalf("pomodoro cap must keep its default, got %d", cfg.PomodoroMaxMinutes)
	}
}

func TestValidateConfigRejectsMissingToken(t *testing.T) {
	cfg := defaultConfig()
	cfg.DiscordGuildID = "guild-1"
	if err := validateConfig(cfg); err == nil {
		t.Fatalf("expected error for missing bot token")
	}

	cfg.DiscordBotToken = "token"
	if err := validateConfig(cfg); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cfg.DiscordGuildID = ""
	if err := validateConfig(cfg); err == nil {
		t.Fatalf("expected error for missing guild id")
	}
}

func TestRewriteConfigFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := defaultConfig()
	cfg.DiscordGuildID = "guild-1"
	cfg.TrackedChannelIDs = []string{"chan-1", "chan-2"}
	cfg.MaxConcurrentCommands = 12

	if err := rewriteConfigFile(path, cfg); err != nil {
		t.Fatalf("rewriteConfigFile: %v", err)
	}

	fc, ok, err := loadConfigFile(path)
	if err != nil || !ok {
		t.Fatalf("loadConfigFile: ok=%v err=%v", ok, err)
	}

	out := defaultConfig()
	applyFileConfig(&out, *fc)
	if out.DiscordGuildID != "guild-1" {
		t.Fatalf("guild id lost in round trip: %q", out.DiscordGuildID)
	}
	if len(out.TrackedChannelIDs) != 2 || out.TrackedChannelIDs[1] != "chan-2" {
		t.Fatalf("tracked channels lost in round trip: %v", out.TrackedChannelIDs)
	}
	if out.MaxConcurrentCommands != 12 {
		t.Fatalf("max commands lost in round trip: %d", out.MaxConcurrentCommands)
	}

	// Rewriting keeps a backup of the previous file.
	if err := rewriteConfigFile(path, cfg); err != nil {
		t.Fatalf("second rewriteConfigFile: %v", err)
	}
	if _, err := os.Stat(path + ".bak"); err != nil {
		t.Fatalf("expected config backup: %v", err)
	}
}

func TestLoadConfigFileMissingIsNotError(t *testing.T) {
	_, ok, err := loadConfigFile(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("missing config must not error: %v", err)
	}
	if ok {
		t.Fatalf("missing config must report ok=false")
	}
}

func TestLoadSecretsFileParsesToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.toml")
	if err := os.WriteFile(path, []byte("discord_bot_token = \"abc123\"\n"), 0o600); err != nil {
		t.Fatalf("write secrets: %v", err)
	}

	sc, ok, err := loadSecretsFile(path)
	if err != nil || !ok {
		t.Fatalf("loadSecretsFile: ok=%v err=%v", ok, err)
	}

	cfg := defaultConfig()
	applySecretsConfig(&cfg, *sc)
	if cfg.DiscordBotToken != "abc123" {
		t.Fatalf("token not applied: %q", cfg.DiscordBotToken)
	}
}
