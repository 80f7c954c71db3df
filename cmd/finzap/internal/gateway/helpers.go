package gateway

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/lfsouza/finzap/cmd/finzap/internal"
	"github.com/lfsouza/finzap/pkg/bus"
	"github.com/lfsouza/finzap/pkg/extract/factory"
	"github.com/lfsouza/finzap/pkg/ledger"
	"github.com/lfsouza/finzap/pkg/logger"
	"github.com/lfsouza/finzap/pkg/media"
	"github.com/lfsouza/finzap/pkg/router"
	"github.com/lfsouza/finzap/pkg/session"
)

func gatewayCmd(debug bool) error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	if debug || cfg.Log.Level == "debug" {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("🔍 Debug mode enabled")
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	extractor, err := factory.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("error creating extraction provider: %w", err)
	}

	msgBus := bus.NewMessageBus()
	defer msgBus.Close()

	bridge := session.NewBridge(
		cfg.Session.BridgeURL,
		time.Duration(cfg.Session.ConnectTimeoutSecs)*time.Second,
	)
	credStore := session.NewFileCredentialStore(cfg.Session.AuthDir)
	sessionManager := session.NewManager(
		bridge,
		credStore,
		msgBus,
		cfg.Session.MaxReconnectAttempts,
		time.Duration(cfg.Session.ReconnectDelayMs)*time.Millisecond,
	)

	ingestor := media.NewIngestor(cfg.Media.TempDir, sessionManager)
	txLedger := ledger.NewLedger(cfg.Ledger.Path)

	sweeper, err := media.NewSweeper(
		cfg.Media.TempDir,
		cfg.Media.SweepSchedule,
		time.Duration(cfg.Media.MaxAgeMinutes)*time.Minute,
	)
	if err != nil {
		return fmt.Errorf("invalid media config: %w", err)
	}

	msgRouter := router.NewRouter(
		msgBus,
		ingestor,
		extractor,
		txLedger,
		time.Duration(cfg.Extract.TimeoutSecs)*time.Second,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go msgRouter.Run(ctx)
	go sweeper.Run(ctx)

	sessionErr := make(chan error, 1)
	go func() {
		sessionErr <- sessionManager.Run(ctx)
	}()

	fmt.Printf("✓ Gateway started (provider: %s, model: %s)\n", cfg.Extract.Provider, extractor.Model())
	fmt.Println("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	select {
	case <-sigChan:
		fmt.Println("\nShutting down...")
		cancel()
		<-sessionErr
		fmt.Println("✓ Gateway stopped")
		return nil
	case err := <-sessionErr:
		// Logout and reconnect exhaustion are process-fatal; external
		// supervision restarts and, for logout, re-pairs.
		if errors.Is(err, session.ErrLoggedOut) || errors.Is(err, session.ErrReconnectExhausted) {
			logger.ErrorCF("gateway", "Session terminated", map[string]any{"error": err.Error()})
			return err
		}
		return err
	}
}
