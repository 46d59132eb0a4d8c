package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"acmeramp/config"
	"acmeramp/internal/handler"
	"acmeramp/internal/middleware"
	"acmeramp/internal/repository"
	"acmeramp/internal/settlement"
	"acmeramp/pkg/chain"
	"acmeramp/pkg/payment"
)

// Setup wires repositories, settlement services, and handlers. Collaborators
// are constructed once here and passed down; nothing holds a global client.
func Setup(cfg *config.Config, db *gorm.DB, provider payment.Provider, chainClient chain.Client) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.Limits.RateLimit, cfg.Limits.RateWindow)))

	txRepo := repository.NewTransactionRepository(db)
	accountRepo := repository.NewConnectedAccountRepository(db)

	onrampSvc := settlement.NewOnRampService(txRepo, provider, chainClient, cfg.Limits.MinOnRampCents, cfg.Limits.MaxOnRampCents)
	offrampSvc := settlement.NewOffRampService(txRepo, accountRepo, provider, chainClient, cfg.Limits.MinOffRampCents)
	connectSvc := settlement.NewConnectService(accountRepo, provider)

	onrampHandler := handler.NewOnRampHandler(onrampSvc)
	offrampHandler := handler.NewOffRampHandler(offrampSvc)
	connectHandler := handler.NewConnectHandler(connectSvc, cfg)
	webhookHandler := handler.NewWebhookHandler(onrampSvc, cfg)
	txHandler := handler.NewTransactionHandler(txRepo)
	healthHandler := handler.NewHealthHandler(db, chainClient)

	api := r.Group("/api/v1")
	{
		onramp := api.Group("/onramp")
		{
			onramp.POST("/initiate", onrampHandler.Initiate)
			onramp.POST("/confirm", onrampHandler.Confirm)
		}
		offramp := api.Group("/offramp")
		{
			offramp.POST("/initiate", offrampHandler.Initiate)
			offramp.POST("/confirm", offrampHandler.Confirm)
		}
		connect := api.Group("/connect")
		{
			connect.POST("/onboard", connectHandler.Onboard)
			connect.GET("/status", connectHandler.Status)
			connect.GET("/return", connectHandler.Return)
			connect.GET("/refresh", connectHandler.Refresh)
		}
		api.POST("/webhooks/stripe", webhookHandler.Handle)
		api.GET("/transactions", txHandler.List)
		api.GET("/health", healthHandler.Health)
	}

	return r
}
