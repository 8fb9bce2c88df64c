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

	router "github.com/dkeye/Soundroom/internal/adapters/http"
	"github.com/dkeye/Soundroom/internal/adapters/rtc"
	"github.com/dkeye/Soundroom/internal/app/orch"
	"github.com/dkeye/Soundroom/internal/config"
	"github.com/dkeye/Soundroom/internal/core"
	"github.com/dkeye/Soundroom/internal/store/memory"
	sqlitestore "github.com/dkeye/Soundroom/internal/store/sqlite"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Set up the global logger before config.Load so it can log.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer store.Close()

	o := orch.New(store, orch.Options{
		JoinAnnounceDelay: cfg.JoinAnnounceDelay,
		EvictionGrace:     cfg.EvictionGrace,
		StoreTimeout:      cfg.StoreTimeout,
		SoundRateLimit:    cfg.SoundRateLimit,
		SoundRateInterval: cfg.SoundRateInterval,
		ICEServers:        rtc.ICEServers(cfg.ICEServers),
	})
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		o.Run(ctx)
	}()

	r := router.SetupRouter(ctx, cfg, o, store)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Soundroom server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	<-loopDone
	log.Info().Msg("Server exited gracefully")
}

func openStore(ctx context.Context, cfg *config.Config) (core.RoomStore, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return sqlitestore.Open(ctx, sqlitestore.Config{Path: cfg.Store.Path, PoolSize: cfg.Store.PoolSize})
	default:
		log.Warn().Str("module", "main").Msg("using in-memory store, data is lost on restart")
		return memory.New(), nil
	}
}
