package router

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prepacking/backend/internal/infrastructure/auth"
	"github.com/prepacking/backend/internal/infrastructure/config"
	"github.com/prepacking/backend/internal/infrastructure/logger"
	"github.com/prepacking/backend/internal/interfaces/http/handler"
	"github.com/prepacking/backend/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// EngineDeps are the collaborators of the HTTP surface
type EngineDeps struct {
	Config         config.HTTPConfig
	Mode           string
	ServiceName    string
	Logger         *zap.Logger
	TracerProvider trace.TracerProvider // nil disables request tracing
	Meter          metric.Meter         // nil disables HTTP metrics
	Profiling      bool
	JWT            *auth.JWTService
	Revocations    auth.TokenRevocations
	System         *handler.SystemHandler
	Prepacking     *handler.PrepackingEventHandler
}

// NewEngine builds the gin engine with the full middleware chain.
// /health and the ping stay public; every other /api route requires a bearer token.
func NewEngine(deps EngineDeps) (*gin.Engine, error) {
	if deps.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(deps.Config.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(deps.Config.TrustedProxies); err != nil {
			return nil, fmt.Errorf("invalid trusted proxies: %w", err)
		}
	}

	httpMetrics, err := middleware.HTTPMetrics(deps.Meter)
	if err != nil {
		return nil, fmt.Errorf("create HTTP metrics: %w", err)
	}

	// tracing first so request logs carry the trace id
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName:    deps.ServiceName,
		Enabled:        deps.TracerProvider != nil,
		TracerProvider: deps.TracerProvider,
	}))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(httpMetrics)
	engine.Use(middleware.Secure())
	cors, err := middleware.CORS(corsConfig(deps.Config))
	if err != nil {
		return nil, err
	}
	engine.Use(cors)
	engine.Use(middleware.BodyLimit(deps.Config.MaxBodySize))

	engine.GET("/health", deps.System.Health)
	engine.GET("/api/system/ping", deps.System.Ping)

	jwtConfig := middleware.DefaultJWTConfig(deps.JWT)
	jwtConfig.Revocations = deps.Revocations
	jwtConfig.Logger = log

	r := NewRouter(engine)
	r.Use(
		middleware.JWTAuthMiddleware(jwtConfig),
		middleware.SpanEnricher(),
		middleware.Profiling(deps.Profiling),
	)
	r.Register(RouteRegistrarFunc(func(rg *gin.RouterGroup) {
		system := rg.Group("/system")
		system.GET("/info", deps.System.GetSystemInfo)
	}))
	r.Register(deps.Prepacking)
	r.Setup()

	return engine, nil
}

func corsConfig(cfg config.HTTPConfig) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.CORSAllowOrigins
	if len(cfg.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.CORSAllowMethods
	}
	if len(cfg.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.CORSAllowHeaders
	}
	return cors
}
