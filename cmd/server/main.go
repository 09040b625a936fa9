package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/quentinlc/lobbychat/internal/adapters/http"
	"github.com/quentinlc/lobbychat/internal/adapters/realtime"
	"github.com/quentinlc/lobbychat/internal/app"
	"github.com/quentinlc/lobbychat/internal/auth"
	"github.com/quentinlc/lobbychat/internal/config"
	"github.com/quentinlc/lobbychat/internal/core"
	"github.com/quentinlc/lobbychat/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := store.Open(cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.DataDir).Msg("failed to open store")
	}
	defer db.Close()

	users := store.NewUserStore(db)
	lobbies := store.NewLobbyStore(db)
	messages := store.NewMessageStore(db)

	verifier := auth.NewVerifier(cfg.Secret, cfg.TokenTTL)
	broadcast := core.NewRouter()
	registry := app.NewRegistry()
	members := app.NewMembership(lobbies, messages)
	pipeline := app.NewPipeline(members, messages, broadcast)

	handlers := &router.Handlers{
		Users:    users,
		Members:  members,
		Pipeline: pipeline,
		Verifier: verifier,
		BaseURL:  cfg.BaseURL,
		TokenTTL: cfg.TokenTTL,
	}
	rt := &realtime.Controller{
		Registry:   registry,
		Router:     broadcast,
		Members:    members,
		Pipeline:   pipeline,
		Limiter:    realtime.NewSendRateLimiter(cfg.SendRateLimit, cfg.SendRateInterval),
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		SendBuffer: cfg.SendBuffer,
	}

	r := router.SetupRouter(ctx, cfg, handlers, rt)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("lobbychat server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
