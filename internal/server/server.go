package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/taxgate/internal/audit/domain"
	"github.com/smallbiznis/taxgate/internal/clock"
	"github.com/smallbiznis/taxgate/internal/config"
	invoicedomain "github.com/smallbiznis/taxgate/internal/invoice/domain"
	"github.com/smallbiznis/taxgate/internal/observability"
	obsmiddleware "github.com/smallbiznis/taxgate/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/taxgate/internal/observability/metrics"
	obstracing "github.com/smallbiznis/taxgate/internal/observability/tracing"
	referencedomain "github.com/smallbiznis/taxgate/internal/reference/domain"
	submissiondomain "github.com/smallbiznis/taxgate/internal/submission/domain"
	tenantdomain "github.com/smallbiznis/taxgate/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
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
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

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
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
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
	cfg           config.Config
	db            *gorm.DB
	log           *zap.Logger
	clock         clock.Clock
	tenantRepo    tenantdomain.Repository
	invoiceSvc    invoicedomain.Service
	refSvc        referencedomain.Service
	submissionSvc submissiondomain.Service
	auditSvc      auditdomain.Service

	// defaultTenant is resolved on first use, after migrations have seeded it.
	defaultTenantMu sync.Mutex
	defaultTenantID string
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	Log           *zap.Logger
	Clock         clock.Clock
	TenantRepo    tenantdomain.Repository
	InvoiceSvc    invoicedomain.Service
	RefSvc        referencedomain.Service
	SubmissionSvc submissiondomain.Service
	AuditSvc      auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		log:           p.Log.Named("http.server"),
		clock:         p.Clock,
		tenantRepo:    p.TenantRepo,
		invoiceSvc:    p.InvoiceSvc,
		refSvc:        p.RefSvc,
		submissionSvc: p.SubmissionSvc,
		auditSvc:      p.AuditSvc,
	}
	svc.registerHealthRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// defaultTenant returns the seeded tenant so single-seller deployments can omit the header.
func (s *Server) defaultTenant(ctx context.Context) string {
	seed := s.cfg.DefaultTenant
	if !seed.Enabled() || s.tenantRepo == nil {
		return ""
	}

	s.defaultTenantMu.Lock()
	defer s.defaultTenantMu.Unlock()
	if s.defaultTenantID != "" {
		return s.defaultTenantID
	}

	tenant, err := s.tenantRepo.FindActiveBySellerNTN(ctx, seed.SellerNTN)
	if err != nil {
		s.log.Warn("default tenant not found", zap.String("seller_ntn", seed.SellerNTN), zap.Error(err))
		return ""
	}
	s.defaultTenantID = tenant.ID.String()
	return s.defaultTenantID
}

func (s *Server) registerHealthRoutes() {
	s.engine.GET("/health", s.Health)
	s.engine.GET("/health/ready", s.Ready)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")
	api.Use(s.TenantContext())

	// -------- Invoices --------
	invoices := api.Group("/invoices")
	invoices.POST("", s.CreateInvoice)
	invoices.GET("", s.ListInvoices)
	invoices.GET("/suggest-ref", s.SuggestRef)
	invoices.GET("/ref-check", s.CheckRef)
	invoices.GET("/:id", s.GetInvoiceByID)
	invoices.PUT("/:id", s.UpdateInvoice)
	invoices.DELETE("/:id", s.DeleteInvoice)

	// -------- Submission --------
	invoices.POST("/:id/submit", s.SubmitInvoice)
	invoices.POST("/:id/validate", s.ValidateInvoice)
	invoices.GET("/:id/attempts", s.ListAttempts)
}
