package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"

	"blockbookclient/internal/config"
	"blockbookclient/internal/core/application"
	"blockbookclient/internal/logger"
	"blockbookclient/pkg/blockbook"
)

// main is entry point of application.
func main() {
	configFile := flag.String("config", "", "Path to YAML configuration file (default: config/config.yml)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	appLogger, err := logger.NewAppLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logger: %v\n", err)
		os.Exit(1)
	}

	service, err := application.NewBlockbookService(application.Config{
		Nodes:                 cfg.Client.Nodes,
		DisableTypeValidation: cfg.Client.DisableTypeValidation,
		RequestTimeout:        time.Duration(cfg.Client.RequestTimeoutMs) * time.Millisecond,
		PingInterval:          time.Duration(cfg.Client.PingIntervalSeconds) * time.Second,
		HTTPTimeout:           time.Duration(cfg.Client.HTTPTimeoutSeconds) * time.Second,
		Logger:                appLogger,
	})
	if err != nil {
		appLogger.Error("Failed to create blockbook client", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	status, err := service.GetStatus(ctx)
	if err != nil {
		appLogger.Error("Initial status check failed", "error", err)
		os.Exit(1)
	}
	appLogger.Info("Talking to blockbook",
		"coin", status.Blockbook.Coin,
		"bestHeight", status.Blockbook.BestHeight,
		"inSync", status.Blockbook.InSync,
	)

	if err := watch(ctx, service, cfg, appLogger); err != nil && ctx.Err() == nil {
		appLogger.Error("Watch loop failed", "error", err)
		os.Exit(1)
	}

	appLogger.Info("Application shut down gracefully.")
}

// watch keeps a live session and its subscriptions until ctx is canceled.
// Subscriptions do not survive a reconnect, so every successful connect is
// followed by a full resubscribe.
func watch(ctx context.Context, service blockbook.Client, cfg *config.Config, appLogger logger.AppLogger) error {
	for {
		if err := connectAndSubscribe(ctx, service, cfg.Watch.Addresses, appLogger); err != nil {
			return err
		}

		// Block until the session drops or we are told to stop.
		ticker := time.NewTicker(time.Second)
		for service.IsConnected() {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return disconnect(service, appLogger)
			case <-ticker.C:
			}
		}
		ticker.Stop()

		if ctx.Err() != nil {
			return nil
		}
		appLogger.Warn("Session dropped, reconnecting",
			"delaySeconds", cfg.Watch.ReconnectDelaySeconds)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(cfg.Watch.ReconnectDelaySeconds) * time.Second):
		}
	}
}

// connectAndSubscribe dials with exponential backoff and re-establishes all
// subscriptions on the fresh session.
func connectAndSubscribe(ctx context.Context, service blockbook.Client, addresses []string, appLogger logger.AppLogger) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if err := service.Connect(ctx); err != nil {
			appLogger.Warn("Connect attempt failed", "error", err)
			return struct{}{}, err
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()))
	if err != nil {
		return fmt.Errorf("giving up on connect: %w", err)
	}

	info, err := service.GetInfo(ctx)
	if err != nil {
		return fmt.Errorf("getInfo after connect failed: %w", err)
	}
	appLogger.Info("Session established", "chain", info.Name, "bestHeight", info.BestHeight)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return service.SubscribeNewBlock(groupCtx, func(n blockbook.BlockNotification) {
			appLogger.Info("New block", "height", n.Height, "hash", n.Hash)
		})
	})
	if len(addresses) > 0 {
		group.Go(func() error {
			return service.SubscribeAddresses(groupCtx, addresses, func(n blockbook.AddressNotification) {
				appLogger.Info("Address activity", "address", n.Address)
			})
		})
	}
	if err := group.Wait(); err != nil {
		return fmt.Errorf("resubscribe failed: %w", err)
	}
	return nil
}

// disconnect closes the session with its own deadline, independent of the
// already-canceled run context.
func disconnect(service blockbook.Client, appLogger logger.AppLogger) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := service.Disconnect(shutdownCtx); err != nil {
		appLogger.Error("Disconnect failed", "error", err)
		return err
	}
	appLogger.Info("Session closed.")
	return nil
}
