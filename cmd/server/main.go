package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"getir-be/internal/analytics"
	"getir-be/internal/auth"
	"getir-be/internal/cart"
	"getir-be/internal/category"
	"getir-be/internal/config"
	"getir-be/internal/db"
	"getir-be/internal/driver"
	"getir-be/internal/httpapi"
	"getir-be/internal/location"
	"getir-be/internal/logger"
	"getir-be/internal/metrics"
	"getir-be/internal/middleware"
	"getir-be/internal/notification"
	"getir-be/internal/order"
	"getir-be/internal/product"
	"getir-be/internal/store"
	"getir-be/internal/storetype"
	"getir-be/internal/user"

	"go.uber.org/zap"
)

// Overridable in tests.
var (
	initDBFunc      = db.InitDB
	startServerFunc = listenAndServe
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}

func run() error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv, cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database := initDBFunc(cfg)
	defer database.Close()

	handler, err := newServer(ctx, cfg, database)
	if err != nil {
		return err
	}

	addr := ":" + cfg.AppPort
	logger.L().Info("server starting", zap.String("addr", addr), zap.String("env", cfg.AppEnv))
	return startServerFunc(ctx, addr, handler)
}

// newServer wires repositories, services and routes over one database
// handle. Background work it starts stops with ctx.
func newServer(ctx context.Context, cfg *config.Config, database *sql.DB) (http.Handler, error) {
	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, auth.DefaultTokenTTL)
	if err != nil {
		return nil, err
	}

	userRepo := user.NewRepository(database)
	userSvc := user.NewService(userRepo)

	var codeGen auth.CodeGenerator = auth.RandomCode
	if cfg.OTPFixedCode != "" {
		codeGen = auth.FixedCode(cfg.OTPFixedCode)
	}
	authSvc := auth.NewService(userRepo, tokens, auth.NewCodeStore(cfg.OTPTTL), auth.Options{
		Generator: codeGen,
		Sender:    auth.LogSender{Debug: cfg.OTPDebug},
		Limiter:   auth.NewPhoneLimiter(cfg.OTPRatePerMinute),
		CodeTTL:   cfg.OTPTTL,
		Debug:     cfg.OTPDebug,
	})

	productRepo := product.NewRepository(database)
	productSvc := product.NewService(productRepo, rand.New(rand.NewSource(time.Now().UnixNano())))

	storeSvc := store.NewService(store.NewRepository(database))
	cartSvc := cart.NewService(cart.NewMemoryStore(cfg.CartTTL), productRepo, cfg.DeliveryFee)
	notificationSvc := notification.NewService(notification.NewRepository(database))
	orderSvc := order.NewService(order.NewRepository(database), cartSvc, storeSvc, notificationSvc, cfg.TaxRatePercent)

	return httpapi.NewRouter(httpapi.Deps{
		Config: cfg,
		Tokens: tokens,

		Auth:          authSvc,
		Users:         userSvc,
		Categories:    category.NewService(category.NewRepository(database)),
		StoreTypes:    storetype.NewService(storetype.NewRepository(database)),
		Stores:        storeSvc,
		Products:      productSvc,
		Carts:         cartSvc,
		Orders:        orderSvc,
		Notifications: notificationSvc,
		Drivers:       driver.NewService(driver.NewRepository(database)),
		Locations:     location.NewService(location.NewRepository(database)),
		Analytics:     analytics.NewService(analytics.NewRepository(database), orderSvc, storeSvc, productSvc),

		Limiter: middleware.NewRateLimiter(ctx, cfg.InternalKey),
		Metrics: metrics.NewRegistry(),
	}), nil
}

func listenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
