package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"questchain/cmd/internal/passphrase"
	"questchain/config"
	"questchain/core"
	"questchain/core/events"
	"questchain/core/genesis"
	"questchain/observability/logging"
	qotel "questchain/observability/otel"
	"questchain/rpc"
	"questchain/storage"
	"questchain/storage/archive"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	if err := run(*configFile); err != nil {
		fmt.Fprintln(os.Stderr, "questd:", err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	passSource := passphrase.NewSource(config.AdminPassphraseEnv, "admin keystore")
	cfg, err := config.Load(configFile, config.WithKeystorePassphraseSource(passSource.Get))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, closer := logging.Setup("questd", cfg.Node.Environment, logging.ParseLevel(cfg.Node.LogLevel), logging.FileConfig{Path: cfg.Node.LogFile})
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	headers := qotel.ParseHeaders(cfg.Telemetry.Headers)
	if cfg.Telemetry.Endpoint != "" {
		logger.Info("telemetry exporting",
			slog.String("endpoint", cfg.Telemetry.Endpoint),
			slog.Bool("traces", cfg.Telemetry.Traces),
			slog.Bool("metrics", cfg.Telemetry.Metrics),
			logging.MaskHeaders("headers", headers))
	}
	shutdownTelemetry, err := qotel.Init(ctx, qotel.Config{
		ServiceName:    "questd",
		Environment:    cfg.Node.Environment,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		Headers:        headers,
		Metrics:        cfg.Telemetry.Metrics,
		Traces:         cfg.Telemetry.Traces,
		SampleRatio:    cfg.Telemetry.SampleRatio,
		MetricInterval: time.Duration(cfg.Telemetry.MetricIntervalSeconds) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	db, err := storage.NewLevelDB(cfg.Node.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ledger, err := core.OpenLedger(db)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	rt, err := core.NewRuntime(ledger)
	if err != nil {
		return fmt.Errorf("init runtime: %w", err)
	}
	rt.SetLogger(logger)
	feed := events.NewFeed(cfg.Node.EventFeedSize)
	rt.SetFeed(feed)

	var store *archive.Archive
	if cfg.Archive.Enabled {
		store, err = archive.Open(archive.Config{
			Driver:        cfg.Archive.Driver,
			DSN:           cfg.Archive.DSN,
			BatchSize:     cfg.Archive.BatchSize,
			FlushInterval: time.Duration(cfg.Archive.FlushIntervalSeconds) * time.Second,
		})
		if err != nil {
			return fmt.Errorf("open event archive: %w", err)
		}
		defer store.Close()
		archiveCtx, stopArchive := context.WithCancel(ctx)
		archived := store.Start(archiveCtx, feed, logger.With(slog.String("component", "archive")))
		defer func() {
			stopArchive()
			<-archived
		}()
		logger.Info("event archive enabled", slog.String("driver", cfg.Archive.Driver), logging.MaskDSN("dsn", cfg.Archive.DSN))
	}

	applied, err := genesis.Apply(ctx, rt, cfg.Genesis)
	if err != nil {
		return err
	}
	if applied {
		root, err := rt.Commit()
		if err != nil {
			return fmt.Errorf("commit genesis: %w", err)
		}
		logger.Info("genesis applied", slog.String("root", root.Hex()), slog.String("admin", cfg.Genesis.Admin))
	}
	logger.Info("ledger opened",
		slog.Uint64("height", rt.Height()),
		slog.Int64("last_timestamp", rt.LastTimestamp()),
		slog.String("data_dir", cfg.Node.DataDir))

	auth, err := queryAuth(cfg.QueryAuth)
	if err != nil {
		return err
	}
	server := rpc.NewServer(rt, rpc.Config{
		Address:       cfg.Node.QueryAddress,
		RatePerSecond: cfg.RateLimit.RatePerSecond,
		Burst:         cfg.RateLimit.Burst,
		Auth:          auth,
	}, logger)
	if store != nil {
		server.SetArchive(store)
	}

	if addr := strings.TrimSpace(cfg.Node.HealthAddress); addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen health %s: %w", addr, err)
		}
		healthSrv := rpc.NewHealthServer(logger)
		healthSrv.SetServing(true)
		go func() {
			if err := healthSrv.Serve(ctx, lis); err != nil {
				logger.Error("grpc health server failed", slog.Any("error", err))
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(ctx) }()

	interval := time.Duration(cfg.Node.CommitIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			commit(rt, logger)
		case err := <-serveErr:
			commit(rt, logger)
			if err != nil {
				return fmt.Errorf("query api: %w", err)
			}
			return nil
		case <-ctx.Done():
			logger.Info("shutting down")
			err := <-serveErr
			commit(rt, logger)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("query api: %w", err)
			}
			return nil
		}
	}
}

func queryAuth(cfg config.QueryAuth) (rpc.AuthConfig, error) {
	if !cfg.Enabled {
		return rpc.AuthConfig{}, nil
	}
	secret := strings.TrimSpace(os.Getenv(cfg.SecretEnv))
	if secret == "" {
		return rpc.AuthConfig{}, fmt.Errorf("query auth enabled but %s is empty", cfg.SecretEnv)
	}
	return rpc.AuthConfig{
		Secret:    secret,
		Issuer:    cfg.Issuer,
		Audience:  cfg.Audience,
		ClockSkew: time.Duration(cfg.ClockSkewSeconds) * time.Second,
	}, nil
}

func commit(rt *core.Runtime, logger *slog.Logger) {
	root, err := rt.Commit()
	if err != nil {
		logger.Error("commit failed", slog.Any("error", err))
		return
	}
	logger.Debug("committed", slog.Uint64("height", rt.Height()), slog.String("root", root.Hex()))
}
