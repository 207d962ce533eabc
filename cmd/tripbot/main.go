package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tripbot/internal/bus"
	"tripbot/internal/channel"
	"tripbot/internal/config"
	"tripbot/internal/dialogue"
	"tripbot/internal/domain"
	"tripbot/internal/memory"
	"tripbot/internal/provider"
	"tripbot/internal/speech"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	// Pick up GEMINI_API_KEY etc. from a local .env when present.
	_ = godotenv.Load()

	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:     "tripbot",
		Short:   "Tripbot: conversational travel assistant",
		Long:    "Tripbot is a travel assistant with intent-routed dialogue, spoken replies, and Telegram/CLI session shells.",
		Version: version,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.tripbot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(gatewayCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize config and workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := config.DefaultConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			workspace := config.ExpandPath(cfg.General.Workspace)
			if err := os.MkdirAll(workspace, 0o755); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath, "workspace", workspace)
			return nil
		},
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func loadConfigOrDefaults() *config.Config {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config not found, using defaults", "path", cfgPath, "err", err)
		cfg = config.Defaults()
		cfg.Generation.APIKey = os.Getenv("GEMINI_API_KEY")
		cfg.Memory.DBPath = config.ExpandPath(cfg.Memory.DBPath)
		cfg.Audio.OutputDir = config.ExpandPath(cfg.Audio.OutputDir)
	}
	return cfg
}

// core holds the wired dialogue stack shared by chat and gateway.
type core struct {
	bus          *bus.InMemoryBus
	store        *memory.SQLiteStore
	orchestrator *dialogue.Orchestrator
}

func buildCore(cfg *config.Config) (*core, error) {
	messageBus := bus.New(100, logger)

	var store *memory.SQLiteStore
	if cfg.Memory.Enabled {
		s, err := memory.NewSQLiteStore(cfg.Memory.DBPath, logger)
		if err != nil {
			return nil, fmt.Errorf("transcript store: %w", err)
		}
		store = s
	}

	gen := provider.NewGemini(provider.GeminiConfig{
		APIBase:  cfg.Generation.APIBase,
		APIKey:   cfg.Generation.APIKey,
		Model:    cfg.Generation.Model,
		TTSModel: cfg.Generation.TTSModel,
		Voice:    cfg.Generation.Voice,
		Timeout:  time.Duration(cfg.Generation.TimeoutSeconds) * time.Second,
		Logger:   logger,
	})

	var speaker *speech.Speaker
	if cfg.Audio.Enabled {
		speaker = speech.NewSpeaker(speech.Config{
			Generator:         gen,
			Sink:              &speech.BusSink{Bus: messageBus},
			Voice:             cfg.Generation.Voice,
			DefaultSampleRate: cfg.Audio.DefaultSampleRate,
			Logger:            logger,
		})
	}

	templates, err := dialogue.LoadTemplates(cfg.Templates.Path, logger)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, fmt.Errorf("load templates: %w", err)
	}

	var transcripts domain.TranscriptStore
	if store != nil {
		transcripts = store
	}
	orch := dialogue.New(dialogue.Config{
		Generator:    gen,
		Bus:          messageBus,
		Store:        transcripts,
		Speaker:      speaker,
		Templates:    templates,
		Language:     cfg.General.Language,
		HistoryLimit: cfg.Memory.MaxHistoryPerSession,
		Logger:       logger,
	})

	return &core{bus: messageBus, store: store, orchestrator: orch}, nil
}

func (c *core) close() {
	c.bus.Close()
	if c.store != nil {
		c.store.Close()
	}
}

func chatCmd() *cobra.Command {
	var fresh bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start interactive chat (CLI)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrDefaults()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, err := buildCore(cfg)
			if err != nil {
				return err
			}
			defer c.close()

			go c.orchestrator.Run(ctx)

			// A fresh session gets a random ID so the previous transcript
			// stays untouched; the default resumes "direct".
			chatID := "direct"
			if fresh {
				chatID = uuid.NewString()
			}

			cli := channel.NewCLI(channel.CLIConfig{
				Logger:   logger,
				ChatID:   chatID,
				AudioDir: cfg.Audio.OutputDir,
			})
			return cli.Start(ctx, c.bus)
		},
	}
	cmd.Flags().BoolVar(&fresh, "fresh", false, "start a new session instead of resuming the default one")
	return cmd
}

func gatewayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Start gateway (Telegram + dialogue loop)",
		Long:  "Starts all enabled channels and the dialogue orchestrator. Press Ctrl+C to stop.",
		RunE:  runGateway,
	}
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := buildCore(cfg)
	if err != nil {
		return err
	}

	go c.orchestrator.Run(ctx)

	var telegramCh *channel.Telegram
	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token != "" {
		telegramCh = channel.NewTelegram(channel.TelegramConfig{
			Token:     cfg.Channels.Telegram.Token,
			AllowFrom: cfg.Channels.Telegram.AllowFrom,
			ParseMode: cfg.Channels.Telegram.ParseMode,
			Logger:    logger,
		})
		go func() {
			if err := telegramCh.Start(ctx, c.bus); err != nil {
				logger.Error("telegram channel error", "err", err)
			}
		}()
		logger.Info("telegram channel enabled")
	} else {
		logger.Info("telegram channel disabled")
	}

	logger.Info("gateway started. Press Ctrl+C to stop.")

	// Block until shutdown signal
	<-ctx.Done()
	logger.Info("shutting down gateway...")

	// Graceful shutdown with timeout
	const shutdownTimeout = 10 * time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if telegramCh != nil {
			_ = telegramCh.Stop()
		}
		c.close()
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
		return nil
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timed out, forcing exit")
		return fmt.Errorf("shutdown timed out")
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show system status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				logger.Info("config", "path", cfgPath, "loaded", false)
				cfg = config.Defaults()
				cfg.Generation.APIKey = os.Getenv("GEMINI_API_KEY")
			} else {
				logger.Info("config", "path", cfgPath, "loaded", true)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			gen := provider.NewGemini(provider.GeminiConfig{
				APIBase: cfg.Generation.APIBase,
				APIKey:  cfg.Generation.APIKey,
				Model:   cfg.Generation.Model,
				Logger:  logger,
			})
			if err := gen.Healthy(ctx); err != nil {
				logger.Info("generation service", "name", gen.Name(), "healthy", false, "err", err)
			} else {
				logger.Info("generation service", "name", gen.Name(), "healthy", true)
			}
			logger.Info("audio", "enabled", cfg.Audio.Enabled)
			logger.Info("memory", "enabled", cfg.Memory.Enabled, "path", cfg.Memory.DBPath)
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			sanitized := config.Sanitize(cfg)
			data, _ := json.MarshalIndent(sanitized, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}
