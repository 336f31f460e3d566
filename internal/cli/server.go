package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"certiflash/internal/app"
	"certiflash/internal/config"
	"certiflash/internal/identity"
	"certiflash/internal/infra/memory"
	"certiflash/internal/logger"
	transport "certiflash/internal/transport/http"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	builtin, err := builtinCatalog(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer be.close()

	resolver := identity.NewResolver(cfg.Auth.Secret)
	if cfg.Auth.InitialToken != "" {
		if id, err := resolver.Resolve(cfg.Auth.InitialToken); err != nil {
			log.Warn("initial auth token rejected", zap.Error(err))
		} else {
			log.Info("initial auth token accepted", zap.String("user", id.UserID))
		}
	}

	catalogs := memory.NewCatalogRepository(
		app.NewCatalogSource(be.catalogs, builtin, log),
		config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute),
	)
	writer := app.NewLedgerWriter(be.ledgers, log, config.TTLDuration(cfg.Writer.Timeout, 5*time.Second))
	wsHandler := transport.NewWSHandler(catalogs, be.ledgers, writer, resolver, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return writer.Run(gctx)
	})
	g.Go(func() error {
		log.Info("starting quiz service",
			zap.String("port", finalPort),
			zap.String("store", be.kind),
			zap.String("appId", cfg.AppID),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if pending := writer.Pending(); pending > 0 {
		log.Warn("ledgers left unwritten", zap.Int("users", pending))
	}
	return err
}
