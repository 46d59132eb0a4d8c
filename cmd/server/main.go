package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"acmeramp/config"
	"acmeramp/internal/database"
	"acmeramp/internal/router"
	"acmeramp/pkg/chain"
	"acmeramp/pkg/logger"
	"acmeramp/pkg/payment"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("config: %v", err)
	}
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatalf("database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.Log.Fatalf("migrate: %v", err)
	}

	var provider payment.Provider
	if cfg.Stripe.SecretKey != "" {
		provider = payment.NewStripeProvider(cfg.Stripe.APIBaseURL, cfg.Stripe.SecretKey)
	} else {
		logger.Log.Warn("STRIPE_SECRET_KEY not set, using stub payment provider")
		provider = payment.NewStubProvider()
	}

	var chainClient chain.Client
	if cfg.Chain.TreasuryPrivateKey != "" {
		ec, err := chain.NewEthClient(cfg.Chain.RPCURL, cfg.Chain.TokenAddress, cfg.Chain.TreasuryPrivateKey, cfg.Chain.ReceiptTimeout)
		if err != nil {
			logger.Log.Fatalf("chain: %v", err)
		}
		defer ec.Close()
		chainClient = ec
	} else {
		logger.Log.Warn("TREASURY_PRIVATE_KEY not set, using stub chain client")
		chainClient = chain.NewStubClient(cfg.Chain.TreasuryAddress)
	}

	engine := router.Setup(cfg, db, provider, chainClient)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Log.Infof("server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatalf("server shutdown: %v", err)
	}
	logger.Log.Info("server stopped")
}
