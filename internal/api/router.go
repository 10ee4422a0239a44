package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Conceptual-Machines/microgenre-api/internal/api/handlers"
	apimiddleware "github.com/Conceptual-Machines/microgenre-api/internal/api/middleware"
	"github.com/Conceptual-Machines/microgenre-api/internal/config"
	"github.com/Conceptual-Machines/microgenre-api/internal/metrics"
)

// Dependencies are the collaborators SetupRouter wires into handlers
type Dependencies struct {
	Generator   handlers.Generator
	Recorder    metrics.Recorder
	RateLimiter *apimiddleware.RateLimiter
}

func SetupRouter(cfg *config.Config, deps Dependencies, version string) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true

	// ClientIP keys the rate limiter, so forwarded headers count only from known proxies
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Printf("⚠️  Ignoring TRUSTED_PROXIES: %v", err)
		_ = router.SetTrustedProxies(nil)
	}

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking, structured logging and API metrics
	router.Use(apimiddleware.RequestTracking(deps.Recorder))

	// CORS middleware
	router.Use(apimiddleware.CORS(cfg.CORSAllowedOrigins))

	// Health check
	router.GET("/api/health", handlers.HealthCheck)

	// Metrics endpoints
	metricsHandler := handlers.NewMetricsHandler(handlers.ServiceInfo{
		Version:      version,
		Model:        cfg.Model,
		Provider:     providerLabel(cfg),
		AuthMode:     cfg.AuthMode,
		RateLimitRPM: cfg.RateLimitRPM,
	})
	router.GET("/api/metrics", metricsHandler.GetMetrics)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	generateHandler := handlers.NewGenerateHandler(deps.Generator)
	router.POST("/api/generate",
		authMiddleware(cfg),
		apimiddleware.RateLimit(deps.RateLimiter),
		generateHandler.Generate,
	)

	router.NoMethod(handlers.MethodNotAllowed(router.Routes))

	// Static front end for everything else
	router.NoRoute(handlers.Static(cfg.PublicDir))

	return router
}

func authMiddleware(cfg *config.Config) gin.HandlerFunc {
	switch cfg.AuthMode {
	case config.AuthModeGateway:
		return apimiddleware.GatewayAuth()
	case config.AuthModeJWT:
		return apimiddleware.JWTAuth(cfg.JWTSecret)
	default:
		return apimiddleware.NoAuth()
	}
}
