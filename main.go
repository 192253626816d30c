package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	debugpkg "runtime/debug"
	"syscall"
	"time"
)

const botSoftwareName = "studybot"

func main() {
	// Top-level panic handler: capture any unexpected panic to panic.log
	// with a stack trace so operators can inspect it.
	defer func() {
		if r := recover(); r != nil {
			if f, err := os.OpenFile("panic.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
				defer f.Close()
				ts := time.Now().UTC().Format(time.RFC3339)
				fmt.Fprintf(f, "[%s] panic: %v\n%s\n\n", ts, r, debugpkg.Stack())
			}
		}
	}()

	configFlag := flag.String("config", "", "path to config.toml")
	secretsFlag := flag.String("secrets", "", "path to secrets.toml")
	dataDirFlag := flag.String("data-dir", "", "override data directory")
	guildFlag := flag.String("guild", "", "override Discord guild id")
	statusAddrFlag := flag.String("status", "", "override status HTTP listen address")
	logDirFlag := flag.String("log-dir", "", "override log directory")
	stdoutLogFlag := flag.Bool("stdout", true, "mirror logs to stdout")
	debugFlag := flag.Bool("debug", false, "enable debug logging")
	simdShaFlag := flag.Bool("simd-sha", true, "use SIMD sha256 for user id hashing")
	rewriteConfigFlag := flag.Bool("rewrite-config", false, "rewrite config on startup")
	flag.Parse()

	if *debugFlag {
		logger.setLevel(logLevelDebug)
	}
	setSha256Implementation(*simdShaFlag)

	cfg := loadConfig(*configFlag, *secretsFlag)
	if *dataDirFlag != "" {
		cfg.DataDir = *dataDirFlag
	}
	if *guildFlag != "" {
		cfg.DiscordGuildID = *guildFlag
	}
	if *statusAddrFlag != "" {
		cfg.StatusAddr = *statusAddrFlag
	}

	logDir := *logDirFlag
	if logDir == "" {
		logDir = filepath.Join(cfg.DataDir, "logs")
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		fatal("create log directory", err, "dir", logDir)
	}
	configureFileLogging(
		filepath.Join(logDir, "bot.log"),
		filepath.Join(logDir, "error.log"),
		filepath.Join(logDir, "debug.log"),
		*stdoutLogFlag,
	)
	defer logger.Stop()

	logger.Info("starting", "name", botSoftwareName, "data_dir", cfg.DataDir)

	if err := validateConfig(cfg); err != nil {
		fatal("invalid config", err)
	}
	if *rewriteConfigFlag {
		path := *configFlag
		if path == "" {
			path = defaultConfigPath()
		}
		if err := rewriteConfigFile(path, cfg); err != nil {
			fatal("rewrite config", err, "path", path)
		}
	}

	store, err := newRecordStore(cfg.DataDir)
	if err != nil {
		fatal("open record store", err, "dir", cfg.DataDir)
	}
	records, err := store.load()
	if err != nil {
		fatal("load study records", err)
	}
	logger.Info("loaded study records", "users", len(records))

	journal, err := openSessionJournal(cfg.DataDir)
	if err != nil {
		fatal("open session journal", err, "dir", cfg.DataDir)
	}
	defer journal.Close()

	metrics := newBotMetrics()
	engine := newStudyEngine(records, store, journal, metrics)

	open, err := journal.LoadOpenSessions()
	if err != nil {
		logger.Warn("load open sessions failed", "error", err)
	} else {
		engine.restoreOpenSessions(open)
	}

	pomo := newPomodoroManager(time.Duration(cfg.PomodoroMaxMinutes) * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bot := newStudyBot(cfg, engine, pomo, metrics)
	if err := bot.start(ctx); err != nil {
		fatal("start discord bot", err)
	}

	status := newStatusServer(cfg.StatusAddr, engine, metrics)
	status.start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	cancel()
	pomo.StopAll()
	bot.close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	status.stop(shutdownCtx)
}
