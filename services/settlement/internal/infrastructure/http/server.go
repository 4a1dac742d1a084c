package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/qraft-Inc/coffeetrace-sub002/pkg/logger"
	handlers "github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/adapter/handler/http"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/config"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/provider"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/middleware/auth"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/usecase"
)

// Services are the use cases exposed over HTTP.
type Services struct {
	Ledger   *usecase.LedgerService
	Payments *usecase.PaymentService
	Tips     *usecase.TipService
	Webhooks *usecase.WebhookService
	Payouts  *usecase.PayoutService
	Checkout provider.CheckoutProvider
}

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	echo     *echo.Echo
	services Services
}

func NewServer(cfg *config.Config, log *zap.Logger, services Services) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewValidator()
	logger.WithEchoLogger(e, log)

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(logger.NewEchoRequestLogger(log))
	e.Use(echoprometheus.NewMiddleware(cfg.Service.Name))
	e.Use(middleware.BodyLimit("2M"))
	if len(cfg.Server.HTTP.AllowOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.Server.HTTP.AllowOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost},
		}))
	}

	s := &Server{
		config:   cfg,
		logger:   log,
		echo:     e,
		services: services,
	}
	s.setupRoutes()
	return s
}

// Echo exposes the router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.echo.Server.ReadTimeout = s.config.Server.HTTP.ReadTimeout
	s.echo.Server.WriteTimeout = s.config.Server.HTTP.WriteTimeout
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})
	s.echo.GET("/metrics", echoprometheus.NewHandler())

	tipHandler := handlers.NewTipHandler(s.services.Tips, s.logger)
	webhookHandler := handlers.NewWebhookHandler(s.services.Webhooks, s.services.Checkout, s.logger)
	paymentHandler := handlers.NewPaymentHandler(s.services.Payments, s.logger)
	walletHandler := handlers.NewWalletHandler(s.services.Ledger, s.logger)
	payoutHandler := handlers.NewPayoutHandler(s.services.Payouts, s.logger)

	// Processor callbacks authenticate by signature, not JWT.
	s.echo.POST("/webhooks/checkout", webhookHandler.HandleCheckout)

	v1 := s.echo.Group("/api/v1")

	// Tipping is open to buyers without an account.
	v1.POST("/tips", tipHandler.CreateTip)
	v1.GET("/tips/:reference", tipHandler.GetTip)

	protected := v1.Group("", auth.JWTMiddleware(auth.JWTConfig{
		Secret:    s.config.Auth.JWTSecret,
		Logger:    s.logger,
		SkipPaths: s.config.Auth.SkipPaths,
	}))
	adminOnly := auth.RequireRole(auth.RoleAdmin)

	payments := protected.Group("/payments")
	payments.POST("", paymentHandler.CreatePayment, auth.RequireRole(auth.RoleBuyer, auth.RoleAdmin))
	payments.GET("/:id", paymentHandler.GetPayment)
	payments.POST("/:id/approve", paymentHandler.ApprovePayment, adminOnly)
	payments.POST("/:id/process", paymentHandler.ProcessPayment, auth.RequireRole(auth.RoleBuyer, auth.RoleAdmin))

	wallets := protected.Group("/wallets")
	wallets.GET("/:farmerId", walletHandler.GetWallet)
	wallets.GET("/:farmerId/transactions", walletHandler.ListTransactions)
	wallets.GET("/:farmerId/verify", walletHandler.VerifyWallet, adminOnly)
	wallets.POST("/transactions/:id/reverse", walletHandler.ReverseTransaction, adminOnly)

	payouts := protected.Group("/payouts")
	payouts.POST("", payoutHandler.RequestPayout, auth.RequireRole(auth.RoleFarmer, auth.RoleAdmin))
	payouts.GET("/:id", payoutHandler.GetPayout)
	payouts.POST("/:id/execute", payoutHandler.ExecutePayout, auth.RequireRole(auth.RoleFarmer, auth.RoleAdmin))
	payouts.POST("/:id/reconcile", payoutHandler.ReconcilePayout, adminOnly)

	farmers := protected.Group("/farmers/:farmerId")
	farmers.GET("/payments", paymentHandler.ListFarmerPayments)
	farmers.GET("/payouts", payoutHandler.ListFarmerPayouts)
}
