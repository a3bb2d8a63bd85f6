package server

import (
	"context"
	"net/http"
	"time"

	commercedomain "github.com/blizzgame/marketplace/internal/commerce/domain"
	"github.com/blizzgame/marketplace/internal/config"
	"github.com/blizzgame/marketplace/internal/observability"
	obsmiddleware "github.com/blizzgame/marketplace/internal/observability/logger"
	obsmetrics "github.com/blizzgame/marketplace/internal/observability/metrics"
	obstracing "github.com/blizzgame/marketplace/internal/observability/tracing"
	paymentdomain "github.com/blizzgame/marketplace/internal/payment/domain"
	reputationdomain "github.com/blizzgame/marketplace/internal/reputation/domain"
	shopdomain "github.com/blizzgame/marketplace/internal/shop/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(obsmetrics.GinMiddleware(httpMetrics))
	}
	r.Use(CorrelationID())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	log           *zap.Logger
	shopSvc       shopdomain.Service
	paymentSvc    paymentdomain.Service
	reputationSvc reputationdomain.Service
	commerceSvc   commercedomain.Service
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	Log           *zap.Logger
	ShopSvc       shopdomain.Service
	PaymentSvc    paymentdomain.Service
	ReputationSvc reputationdomain.Service
	CommerceSvc   commercedomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		log:           p.Log.Named("http"),
		shopSvc:       p.ShopSvc,
		paymentSvc:    p.PaymentSvc,
		reputationSvc: p.ReputationSvc,
		commerceSvc:   p.CommerceSvc,
	}

	svc.registerShopRoutes()
	svc.registerReputationRoutes()
	svc.registerWebhookRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerShopRoutes() {
	api := s.engine.Group("/api/shop")

	api.GET("/countries", s.ListCountries)

	// -------- Cart & checkout --------
	api.POST("/carts/items", s.AddCartItem)
	api.POST("/checkout", s.Checkout)
	api.GET("/orders/:id", s.GetOrder)

	// -------- Payments --------
	api.POST("/orders/:id/payment", s.InitiatePayment)
	api.POST("/payments/cinetpay/notify", s.PaymentNotification)
	// CinetPay pings the notify URL with GET to check that it answers.
	api.GET("/payments/cinetpay/notify", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// -------- Catalog --------
	api.POST("/catalog/sync", s.SyncCatalog)

	s.engine.GET("/shop/orders/:id/payment/return", s.PaymentReturn)
}

func (s *Server) registerReputationRoutes() {
	api := s.engine.Group("/api/reputation")

	api.GET("/badges", s.ListBadges)
	api.GET("/sellers/:id", s.GetSellerReputation)
	api.POST("/sellers/:id/outcomes", s.RecordSellerOutcome)
}

func (s *Server) registerWebhookRoutes() {
	hooks := s.engine.Group("/webhooks/shopify")

	hooks.POST("/orders", s.shopifyWebhook(commercedomain.TopicOrdersUpdated))
	hooks.POST("/fulfillments", s.shopifyWebhook(commercedomain.TopicFulfillmentsCreate))
	hooks.POST("/refunds", s.shopifyWebhook(commercedomain.TopicRefundsCreate))
	hooks.POST("/products/create", s.shopifyWebhook(commercedomain.TopicProductsCreate))
	hooks.POST("/products/update", s.shopifyWebhook(commercedomain.TopicProductsUpdate))
	hooks.POST("/products/delete", s.shopifyWebhook(commercedomain.TopicProductsDelete))
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
