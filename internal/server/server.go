package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/pricingread/internal/config"
	deadletterdomain "github.com/smallbiznis/pricingread/internal/deadletter/domain"
	ingestiondomain "github.com/smallbiznis/pricingread/internal/ingestion/domain"
	"github.com/smallbiznis/pricingread/internal/observability"
	obslogger "github.com/smallbiznis/pricingread/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/pricingread/internal/observability/metrics"
	obstracing "github.com/smallbiznis/pricingread/internal/observability/tracing"
	readdomain "github.com/smallbiznis/pricingread/internal/readmodel/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// maxEventBytes bounds a single ingested event.
const maxEventBytes = 1 << 20

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.Middleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if httpMetrics != nil {
		r.GET("/metrics", httpMetrics.Handler())
	}

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
					panic(err)
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
	log           *zap.Logger
	ingestionSvc  ingestiondomain.Service
	readSvc       readdomain.Service
	deadLetterSvc deadletterdomain.Service
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Log           *zap.Logger
	IngestionSvc  ingestiondomain.Service
	ReadSvc       readdomain.Service
	DeadLetterSvc deadletterdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		log:           p.Log.Named("http.server"),
		ingestionSvc:  p.IngestionSvc,
		readSvc:       p.ReadSvc,
		deadLetterSvc: p.DeadLetterSvc,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/v1")

	api.POST("/events", MaxBodySize(maxEventBytes), s.IngestEvent)

	api.GET("/orders", s.ListOrders)
	api.GET("/orders/:order_id/pricing/latest", s.GetLatestPricing)
	api.GET("/orders/:order_id/pricing/history", s.GetPricingHistory)
	api.GET("/orders/:order_id/payments", s.ListPayments)
	api.GET("/orders/:order_id/payments/latest", s.GetLatestPayment)
	api.GET("/orders/:order_id/suppliers", s.ListSuppliers)
	api.GET("/orders/:order_id/suppliers/latest", s.GetLatestSuppliers)
	api.GET("/orders/:order_id/obligations", s.GetObligations)

	api.GET("/components/:semantic_id/lineage", s.GetLineage)
	api.GET("/components/:semantic_id/net", s.GetNetAmount)

	api.GET("/refunds/:refund_id", s.ListRefundTimeline)
	api.GET("/refunds/:refund_id/latest", s.GetLatestRefund)

	api.GET("/dead-letters", s.ListDeadLetters)
	api.GET("/dead-letters/:id", s.GetDeadLetter)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
