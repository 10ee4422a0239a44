// Package handler is the serverless entrypoint. The platform routes
// /api/generate to Handler; everything else is served by the same engine
// the standalone server uses.
package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/microgenre-api/internal/api"
	"github.com/Conceptual-Machines/microgenre-api/internal/config"
	"github.com/Conceptual-Machines/microgenre-api/internal/observability"
)

// releaseVersion is set via ldflags during build
var releaseVersion = "dev"

var (
	engineOnce sync.Once
	engine     http.Handler
	engineErr  error
)

// loadEngine is swapped in tests
var loadEngine = func() (http.Handler, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	observability.InitSentry(cfg.SentryDSN, cfg.Environment, releaseVersion)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	return api.NewEngine(context.Background(), cfg, releaseVersion)
}

// Handler serves one serverless invocation
func Handler(w http.ResponseWriter, r *http.Request) {
	engineOnce.Do(func() {
		engine, engineErr = loadEngine()
		if engineErr != nil {
			log.Printf("❌ Failed to initialize handler: %v", engineErr)
		}
	})

	if engineErr != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":    false,
			"error": engineErr.Error(),
		})
		return
	}

	engine.ServeHTTP(w, r)

	// Invocations may be frozen right after returning
	observability.GetClient().Flush()
}
