package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/reconecta/chat/backend/internal/config"
	"github.com/reconecta/chat/backend/internal/logging"
	"github.com/reconecta/chat/backend/internal/model/persona"
	"github.com/reconecta/chat/backend/internal/service/ai"
	"github.com/reconecta/chat/backend/internal/service/chat"
)

type rootFlags struct {
	addr     string
	provider string
	logLevel string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:          "reconecta",
		Short:        "ReConecta emotional support chat",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.addr, "addr", "", "listen address, overrides PORT")
	root.PersistentFlags().StringVar(&flags.provider, "provider", "", "AI provider (gemini or ark), overrides AI_PROVIDER")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level, overrides LOG_LEVEL")

	root.AddCommand(newServeCmd(flags), newChatCmd(flags))
	return root
}

// app is what both commands need: settings, persona and the conversation service.
type app struct {
	cfg     *config.Config
	persona persona.Persona
	chatSvc *chat.Service
}

func bootstrap(ctx context.Context, flags *rootFlags, logFile *os.File) (*app, error) {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cfg, flags); err != nil {
		return nil, err
	}

	out := os.Stderr
	if logFile != nil {
		out = logFile
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, out)

	if envErr != nil {
		log.Debug().Err(envErr).Msg("no .env file, using process environment only")
	}

	p, err := persona.Resolve(cfg.AI.PersonaFile)
	if err != nil {
		return nil, err
	}

	var backend ai.Backend
	if cfg.AI.Enabled() {
		backend, err = ai.NewBackend(ctx, cfg.AI, p)
		if err != nil {
			log.Warn().Err(err).Str("provider", string(cfg.AI.Provider)).Msg("AI backend init failed, turns will be unavailable")
			backend = nil
		} else {
			log.Info().Str("provider", string(cfg.AI.Provider)).Msg("AI backend ready")
		}
	} else {
		log.Warn().Str("provider", string(cfg.AI.Provider)).Msg("AI credentials not configured, turns will be unavailable")
	}

	chatSvc := chat.NewService(backend, p, chat.Options{KeepPartialOnFailure: cfg.Chat.KeepPartialOnFailure}, cfg.Chat.IdleTTL)
	return &app{cfg: cfg, persona: p, chatSvc: chatSvc}, nil
}

func applyFlags(cfg *config.Config, flags *rootFlags) error {
	if flags.addr != "" {
		server, err := config.ParseAddr(flags.addr)
		if err != nil {
			return err
		}
		cfg.Server = server
	}
	if flags.provider != "" {
		provider, err := config.ParseProvider(flags.provider)
		if err != nil {
			return err
		}
		cfg.AI.Provider = provider
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	return nil
}
