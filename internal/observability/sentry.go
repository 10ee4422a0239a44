package observability

import (
	"log"
	"strings"

	"github.com/getsentry/sentry-go"
)

const environmentProduction = "production"

// InitSentry initializes the global Sentry client. It reports whether Sentry
// is active; callers flush on shutdown when it is.
func InitSentry(dsn, environment, release string) bool {
	if dsn == "" {
		log.Println("⚠️  Sentry not configured (SENTRY_DSN not set)")
		return false
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          "microgenre-api@" + release,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
		EnableLogs:       true,
		Debug:            environment != environmentProduction,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			if event.Request != nil {
				event.Request.Headers = FilterSensitiveHeaders(event.Request.Headers)
			}
			return event
		},
	})
	if err != nil {
		log.Printf("Failed to initialize Sentry: %v", err)
		return false
	}

	log.Printf("✅ Sentry initialized (environment: %s, release: %s)", environment, release)
	return true
}

var sensitiveHeaders = map[string]bool{
	"authorization": true,
	"cookie":        true,
	"x-api-key":     true,
}

// FilterSensitiveHeaders redacts credentials before events leave the process
func FilterSensitiveHeaders(headers map[string]string) map[string]string {
	filtered := make(map[string]string, len(headers))
	for k, v := range headers {
		if sensitiveHeaders[strings.ToLower(k)] {
			filtered[k] = "[REDACTED]"
		} else {
			filtered[k] = v
		}
	}
	return filtered
}
