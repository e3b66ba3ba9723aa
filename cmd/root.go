package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/plexsweep/plexsweep/internal/api"
	"github.com/plexsweep/plexsweep/internal/cache"
	"github.com/plexsweep/plexsweep/internal/catalog"
	"github.com/plexsweep/plexsweep/internal/config"
	"github.com/plexsweep/plexsweep/internal/database"
	"github.com/plexsweep/plexsweep/internal/engine"
	"github.com/spf13/cobra"
)

var rootCmdPersistentFlags struct {
	LogFile    string
	ConfigFile string
	LogLevel   string
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootCmdPersistentFlags.LogFile, "log-file", "", "File to write logs to")
	rootCmd.PersistentFlags().StringVarP(&rootCmdPersistentFlags.ConfigFile, "config", "c", "", "Path to config file (default: search for config.yml in current dir, ~/.plexsweep, /etc/plexsweep)")
	rootCmd.PersistentFlags().StringVar(&rootCmdPersistentFlags.LogLevel, "log-level", "", "Log level (debug, info, warn, error) - overrides config file setting")
}

var rootCmd = &cobra.Command{
	Use:   "plexsweep",
	Short: "Plexsweep keeps Plex libraries tidy with admin-defined maintenance rules",
	Long: `Plexsweep scans your Plex media library against maintenance rules,
flags stale media for review and deletes approved items through Radarr
and Sonarr.`,
	Example: `plexsweep --config config.yml
  plexsweep -c /path/to/config.yml --log-level debug`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logToFile()
	},
	Run: root,
}

func root(cmd *cobra.Command, _ []string) {
	cfg, err := config.Load(rootCmdPersistentFlags.ConfigFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if rootCmdPersistentFlags.LogLevel != "" {
		setLogLevel(rootCmdPersistentFlags.LogLevel)
	} else {
		setLogLevel(cfg.LogLevel)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer db.Close() //nolint: errcheck

	bytesCache := cache.NewBytes(cfg.Cache)
	cat := catalog.NewTautulli(cfg.Tautulli, cache.NewPrefixedCache[[]catalog.Section](bytesCache, "tautulli:sections:"))

	eng, err := engine.New(cfg, db, cat)
	if err != nil {
		log.Fatalf("failed to create engine: %v", err)
	}

	server, err := api.New(cfg, eng)
	if err != nil {
		log.Fatalf("failed to create API server: %v", err)
	}

	go func() {
		if err := eng.Run(ctx); err != nil {
			log.Error("engine error", "error", err)
		}
	}()

	go func() {
		if err := server.Run(ctx); err != nil {
			log.Error("API server error", "error", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	log.Info("plexsweep started successfully", "dry_run", cfg.DryRun)
	<-c
	log.Info("shutting down gracefully...")

	cancel()
	if err := eng.Close(); err != nil {
		log.Error("failed to stop engine", "error", err)
	}
	time.Sleep(2 * time.Second)
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info", "":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.Warnf("unknown log level %s, defaulting to info", level)
		log.SetLevel(log.InfoLevel)
	}
}

func logToFile() {
	if rootCmdPersistentFlags.LogFile == "" {
		return
	}
	file, err := os.OpenFile(rootCmdPersistentFlags.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec
	if err != nil {
		log.Errorf("failed to open log file: %v", err)
		return
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.Info("logging to both console and file", "file", rootCmdPersistentFlags.LogFile)
}
