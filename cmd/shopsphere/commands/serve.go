package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"shopsphere/internal/api"
	"shopsphere/internal/api/middleware"
	"shopsphere/internal/assets"
	"shopsphere/internal/cache"
	"shopsphere/internal/database"
	"shopsphere/internal/notify"
	"shopsphere/internal/payment"
	"shopsphere/internal/repository"
	"shopsphere/internal/service"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Connect to Postgres, apply pending migrations and serve the API until
SIGINT or SIGTERM. Redis is optional: when it cannot be reached the catalog
is served uncached.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&httpAddr, "addr", "", "Listen address (overrides HTTP_ADDR)")
}

var httpAddr string

func runServe(ctx context.Context) error {
	if httpAddr != "" {
		cfg.HTTPAddr = httpAddr
	}
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := database.Migrate(ctx, pool, logger)
	if err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}
	if len(applied) > 0 {
		logger.Info("migrations applied", "versions", applied)
	}

	store := repository.NewStore(pool)

	var (
		products    repository.ProductRepository
		invalidator service.ProductInvalidator
	)
	rdb, err := cache.ConnectRedis(ctx, cfg)
	if err != nil {
		logger.Warn("redis unavailable, serving catalog uncached", "addr", cfg.RedisURL, "error", err)
	} else {
		defer rdb.Close()
		cached := cache.NewCachedProductRepository(store.Products(), rdb, cfg.CacheTTL, logger)
		products, invalidator = cached, cached
	}

	resolver := assets.Resolver{CloudinaryCloud: cfg.CloudinaryCloud, LocalBaseURL: cfg.AssetBaseURL}
	hub := notify.NewHub(cfg.CORSOrigins, logger)
	dispatcher := notify.NewDispatcher(store.Notifications(), hub, logger)

	handler := api.NewRouter(api.Deps{
		Catalog:       service.NewCatalogService(store, products, invalidator, logger),
		Orders:        service.NewOrderService(store, resolver, dispatcher, invalidator, logger),
		Payments:      service.NewPaymentService(store, payment.NewSimulator(cfg.PaymentDelay), dispatcher, logger),
		Reviews:       service.NewReviewService(store),
		Wishlist:      service.NewWishlistService(store),
		Notifications: service.NewNotificationService(store),
		Hub:           hub,
		Resolver:      resolver,
		Auth:          middleware.NewAuthenticator(cfg.JWTSecret),
		CORSOrigins:   cfg.CORSOrigins,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
