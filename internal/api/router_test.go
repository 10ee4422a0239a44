package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apimiddleware "github.com/Conceptual-Machines/microgenre-api/internal/api/middleware"
	"github.com/Conceptual-Machines/microgenre-api/internal/config"
	"github.com/Conceptual-Machines/microgenre-api/internal/genre"
	"github.com/Conceptual-Machines/microgenre-api/internal/llm"
	"github.com/Conceptual-Machines/microgenre-api/internal/metrics"
	"github.com/Conceptual-Machines/microgenre-api/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeGenerator struct {
	got  []genre.GenerateRequest
	card *models.GenreCard
	err  error
}

func (f *fakeGenerator) Generate(_ context.Context, req genre.GenerateRequest) (*models.GenreCard, *genre.Result, error) {
	f.got = append(f.got, req)
	return f.card, &genre.Result{Model: "gpt-4o-mini", Provider: "openai"}, f.err
}

func sampleCard() *models.GenreCard {
	return &models.GenreCard{
		Title:   "Tidal Chrome",
		Tagline: "Submerged synth choirs.",
		Palette: models.Palette{
			Bg: "#0B1320", Primary: "#3FA7D6", Secondary: "#59CD90", Accent: "#FAC05E", Text: "#F8F8F8",
		},
		Visuals: models.Visuals{
			FontStyle: "display", Weight: "700", Texture: "vhs", Shape: "waves", Mood: "nocturnal",
		},
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.PublicDir = t.TempDir()
	return cfg
}

func do(r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestGenerate_Success(t *testing.T) {
	gen := &fakeGenerator{card: sampleCard()}
	r := SetupRouter(testConfig(t), Dependencies{Generator: gen}, "test")

	w := do(r, http.MethodPost, "/api/generate", `{"seed":"rainy tram rides","temperature":1.1}`,
		map[string]string{"Content-Type": "application/json"})

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["ok"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "Tidal Chrome", data["title"])
	assert.Equal(t, "#FAC05E", data["palette"].(map[string]any)["accent"])
	assert.Equal(t, "700", data["visuals"].(map[string]any)["weight"])
	assert.Equal(t, "gpt-4o-mini", w.Header().Get("X-Model"))

	require.Len(t, gen.got, 1)
	assert.Equal(t, genre.GenerateRequest{Seed: "rainy tram rides", Temperature: 1.1}, gen.got[0])
}

func TestGenerate_EmptyBodyUsesDefaults(t *testing.T) {
	gen := &fakeGenerator{card: sampleCard()}
	r := SetupRouter(testConfig(t), Dependencies{Generator: gen}, "test")

	w := do(r, http.MethodPost, "/api/generate", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, genre.DefaultRequest(), gen.got[0])
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		genErr     error
		wantStatus int
		wantError  string
	}{
		{
			name:       "malformed json",
			body:       `{"seed":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "upstream auth error passes through",
			body:       `{}`,
			genErr:     &llm.ProviderError{Provider: "openai", StatusCode: 401, Message: "Incorrect API key provided"},
			wantStatus: http.StatusUnauthorized,
			wantError:  "Incorrect API key provided",
		},
		{
			name:       "invalid card",
			body:       `{}`,
			genErr:     genre.ErrInvalidCard,
			wantStatus: http.StatusBadGateway,
			wantError:  genre.ErrInvalidCard.Error(),
		},
		{
			name:       "unknown failure",
			body:       `{}`,
			genErr:     assert.AnError,
			wantStatus: http.StatusInternalServerError,
			wantError:  assert.AnError.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{err: tt.genErr}
			r := SetupRouter(testConfig(t), Dependencies{Generator: gen}, "test")

			w := do(r, http.MethodPost, "/api/generate", tt.body, nil)
			assert.Equal(t, tt.wantStatus, w.Code)

			body := decode(t, w)
			assert.Equal(t, false, body["ok"])
			assert.NotEmpty(t, body["error"])
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body["error"])
			}
		})
	}
}

func TestGenerate_BodyTooLarge(t *testing.T) {
	gen := &fakeGenerator{card: sampleCard()}
	r := SetupRouter(testConfig(t), Dependencies{Generator: gen}, "test")

	big := `{"seed":"` + strings.Repeat("a", 32<<10) + `"}`
	w := do(r, http.MethodPost, "/api/generate", big, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, gen.got)
}

func TestMethodNotAllowed(t *testing.T) {
	r := SetupRouter(testConfig(t), Dependencies{Generator: &fakeGenerator{}}, "test")

	w := do(r, http.MethodGet, "/api/generate", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "POST", w.Header().Get("Allow"))
	assert.JSONEq(t, `{"ok":false,"error":"Method not allowed"}`, w.Body.String())

	w = do(r, http.MethodDelete, "/api/health", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "GET", w.Header().Get("Allow"))
}

func TestHealthAndMetrics(t *testing.T) {
	r := SetupRouter(testConfig(t), Dependencies{
		Generator: &fakeGenerator{},
		Recorder:  metrics.NewPrometheusRecorder(),
	}, "1.2.3")

	w := do(r, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["ok"])
	service, ok := body["service"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "1.2.3", service["version"])
	assert.Equal(t, "gpt-4o-mini", service["model"])
	assert.Equal(t, "openai", service["provider"])
	assert.Contains(t, body, "runtime")

	w = do(r, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `microgenre_http_requests_total{endpoint="/api/health",status="2xx"}`)
}

func TestStaticFiles(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.PublicDir, "index.html"), []byte("<h1>genres</h1>"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.PublicDir, "app.js"), []byte("console.log(1)"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(cfg.PublicDir, "empty"), 0o700))

	r := SetupRouter(cfg, Dependencies{Generator: &fakeGenerator{}}, "test")

	w := do(r, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<h1>genres</h1>")

	w = do(r, http.MethodGet, "/app.js", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "console.log(1)", w.Body.String())

	for _, path := range []string{"/missing.css", "/empty/", "/../../etc/passwd"} {
		w = do(r, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.JSONEq(t, `{"ok":false,"error":"Not found"}`, w.Body.String(), path)
	}

	w = do(r, http.MethodPost, "/app.js", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthModes(t *testing.T) {
	t.Run("gateway requires user header", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.AuthMode = config.AuthModeGateway
		r := SetupRouter(cfg, Dependencies{Generator: &fakeGenerator{card: sampleCard()}}, "test")

		assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/api/generate", "", nil).Code)
		assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/generate", "", map[string]string{"X-User-ID": "7"}).Code)

		// Health stays public
		assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/health", "", nil).Code)
	})

	t.Run("jwt", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.AuthMode = config.AuthModeJWT
		cfg.JWTSecret = "secret"
		r := SetupRouter(cfg, Dependencies{Generator: &fakeGenerator{card: sampleCard()}}, "test")

		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   "dj",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		}).SignedString([]byte("secret"))
		require.NoError(t, err)

		assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/api/generate", "", nil).Code)
		assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/generate", "",
			map[string]string{"Authorization": "Bearer " + token}).Code)
	})
}

func TestRateLimitOnGenerate(t *testing.T) {
	gen := &fakeGenerator{card: sampleCard()}
	r := SetupRouter(testConfig(t), Dependencies{
		Generator:   gen,
		RateLimiter: apimiddleware.NewRateLimiter(1, 1),
	}, "test")

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/generate", "", nil).Code)

	w := do(r, http.MethodPost, "/api/generate", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Len(t, gen.got, 1)

	// Other routes are not limited
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/health", "", nil).Code)
}

func TestRateLimitIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	gen := &fakeGenerator{card: sampleCard()}
	r := SetupRouter(testConfig(t), Dependencies{
		Generator:   gen,
		RateLimiter: apimiddleware.NewRateLimiter(1, 1),
	}, "test")

	w := do(r, http.MethodPost, "/api/generate", "", map[string]string{"X-Forwarded-For": "1.1.1.1"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPost, "/api/generate", "", map[string]string{"X-Forwarded-For": "2.2.2.2"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Len(t, gen.got, 1)
}

func TestRateLimitHonorsForwardedForFromTrustedProxy(t *testing.T) {
	cfg := testConfig(t)
	// httptest requests come from 192.0.2.1
	cfg.TrustedProxies = []string{"192.0.2.0/24"}
	gen := &fakeGenerator{card: sampleCard()}
	r := SetupRouter(cfg, Dependencies{
		Generator:   gen,
		RateLimiter: apimiddleware.NewRateLimiter(1, 1),
	}, "test")

	for _, ip := range []string{"1.1.1.1", "2.2.2.2"} {
		w := do(r, http.MethodPost, "/api/generate", "", map[string]string{"X-Forwarded-For": ip})
		assert.Equal(t, http.StatusOK, w.Code, ip)
	}
	w := do(r, http.MethodPost, "/api/generate", "", map[string]string{"X-Forwarded-For": "1.1.1.1"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	r := SetupRouter(testConfig(t), Dependencies{Generator: &fakeGenerator{}}, "test")

	w := do(r, http.MethodOptions, "/api/generate", "", map[string]string{
		"Origin":                        "https://genres.example",
		"Access-Control-Request-Method": "POST",
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
