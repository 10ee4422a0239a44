package handlers

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// ServiceInfo is the static part of GET /api/metrics
type ServiceInfo struct {
	Version      string `json:"version"`
	Model        string `json:"model"`
	Provider     string `json:"provider"`
	AuthMode     string `json:"auth_mode"`
	RateLimitRPM int    `json:"rate_limit_rpm"`
}

// MetricsHandler reports uptime, the generation settings and Go runtime stats.
// Counters and histograms live on /metrics.
type MetricsHandler struct {
	startedAt time.Time
	info      ServiceInfo
}

func NewMetricsHandler(info ServiceInfo) *MetricsHandler {
	return &MetricsHandler{startedAt: time.Now(), info: info}
}

type MetricsResponse struct {
	OK        bool         `json:"ok"`
	Uptime    string       `json:"uptime"`
	StartedAt string       `json:"started_at"`
	Service   ServiceInfo  `json:"service"`
	Runtime   RuntimeStats `json:"runtime"`
}

type RuntimeStats struct {
	GoVersion  string `json:"go_version"`
	Goroutines int    `json:"goroutines"`
	HeapKB     uint64 `json:"heap_kb"`
	NumGC      uint32 `json:"num_gc"`
}

func (h *MetricsHandler) GetMetrics(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	c.JSON(http.StatusOK, MetricsResponse{
		OK:        true,
		Uptime:    formatUptime(time.Since(h.startedAt)),
		StartedAt: h.startedAt.UTC().Format(time.RFC3339),
		Service:   h.info,
		Runtime: RuntimeStats{
			GoVersion:  runtime.Version(),
			Goroutines: runtime.NumGoroutine(),
			HeapKB:     m.HeapAlloc >> 10,
			NumGC:      m.NumGC,
		},
	})
}

// formatUptime renders d as 1h2m3.45s, dropping leading zero units
func formatUptime(d time.Duration) string {
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := (d % time.Minute).Seconds()

	switch {
	case h > 0:
		return fmt.Sprintf("%dh%dm%.2fs", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm%.2fs", m, s)
	default:
		return fmt.Sprintf("%.2fs", s)
	}
}
