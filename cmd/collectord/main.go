package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/framewire/internal/auth"
	"github.com/danmuck/framewire/internal/collector"
	"github.com/danmuck/framewire/internal/config"
	"github.com/danmuck/framewire/internal/logging"
	"github.com/danmuck/framewire/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func main() {
	wirePath := flag.String("wire", "wire.toml", "shared wire config (signing, codec)")
	configPath := flag.String("config", "", "collector config")
	flag.Parse()

	logging.ConfigureRuntime()
	logger := observability.InitLogger("collectord")
	gin.SetMode(gin.ReleaseMode)

	if err := run(*wirePath, *configPath, logger); err != nil {
		fmt.Fprintf(os.Stderr, "collectord: %v\n", err)
		os.Exit(1)
	}
}

func run(wirePath, configPath string, logger zerolog.Logger) error {
	cfg, err := loadCollectorConfig(configPath)
	if err != nil {
		return err
	}
	wire, err := config.LoadWireConfig(wirePath)
	if err != nil {
		return err
	}
	codec, err := wire.Codec()
	if err != nil {
		return err
	}

	logger = logger.With().Str("collector", cfg.Name).Logger()
	sink := collector.NewMemorySink(cfg.Keep)
	intake, err := collector.NewIntake(cfg.Name, codec, sink, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := net.ListenPacket("udp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Listen, err)
	}
	defer conn.Close()
	if cfg.Multicast != "" {
		if err := collector.JoinGroup(conn, cfg.Multicast, cfg.Interface); err != nil {
			return err
		}
		logger.Info().Str("group", cfg.Multicast).Str("interface", cfg.Interface).Msg("joined multicast group")
	}

	errs := make(chan error, 2)
	go func() { errs <- intake.Serve(ctx, conn) }()

	var srv *http.Server
	if cfg.HTTPAddr != "" {
		var guard auth.Validator
		if cfg.StatusToken != "" {
			guard = auth.StaticToken{Token: cfg.StatusToken}
		}
		status := collector.NewServer(cfg.Name, cfg.HTTPAddr, cfg.CorsOrigins, intake, sink, guard)
		status.MarkReady(true)
		srv = &http.Server{Addr: cfg.HTTPAddr, Handler: status.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info().Str("addr", cfg.HTTPAddr).Msg("status server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errs:
		stop()
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("status server shutdown")
		}
	}
	stats := intake.Stats()
	logger.Info().Int64("accepted", stats.Accepted).Int64("rejected", stats.Rejected).Msg("collector stopped")
	return runErr
}
