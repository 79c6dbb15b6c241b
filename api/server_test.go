package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/forecast-autoscaler/internal/auth"
	"github.com/OldStager01/forecast-autoscaler/internal/metrics"
	"github.com/OldStager01/forecast-autoscaler/internal/orchestrator"
	"github.com/OldStager01/forecast-autoscaler/internal/resilience"
	"github.com/OldStager01/forecast-autoscaler/pkg/config"
	"github.com/OldStager01/forecast-autoscaler/pkg/database"
	"github.com/OldStager01/forecast-autoscaler/pkg/database/queries"
	"github.com/OldStager01/forecast-autoscaler/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeManager struct {
	mu     sync.Mutex
	record *models.CycleRecord
	err    error
	events chan *models.Event
}

func newFakeManager() *fakeManager {
	return &fakeManager{events: make(chan *models.Event, 10)}
}

func (f *fakeManager) ClusterID() string { return "aks-test" }

func (f *fakeManager) Status() orchestrator.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return orchestrator.Status{ClusterID: "aks-test", Interval: 5 * time.Minute, BreakerState: "closed", LastCycle: f.record}
}

func (f *fakeManager) RunOnce(ctx context.Context) (*models.CycleRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record, f.err
}

func (f *fakeManager) SubscribeAllEvents() <-chan *models.Event { return f.events }

const testPassword = "correct horse battery staple"

func newTestServer(t *testing.T, manager *fakeManager, opts Options) *Server {
	t.Helper()

	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)

	s := NewServer(config.APIConfig{
		JWTSecret:            "test-secret",
		JWTDuration:          time.Hour,
		JWTIssuer:            "forecast-autoscaler",
		OperatorUsername:     "operator",
		OperatorPasswordHash: hash,
		DefaultLimit:         10,
		MaxLimit:             20,
	}, manager, opts)
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s
}

func do(s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func login(t *testing.T, s *Server) string {
	t.Helper()

	w := do(s, http.MethodPost, "/auth/login", "", `{"username":"operator","password":"`+testPassword+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expires_in"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3600, resp.ExpiresIn)
	return resp.Token
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, newFakeManager(), Options{})

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		w := do(s, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
	}

	w := do(s, http.MethodGet, "/health", "", "")
	assert.Contains(t, w.Body.String(), `"circuit_breaker":"closed"`)
}

func TestLogin(t *testing.T) {
	s := newTestServer(t, newFakeManager(), Options{})

	tests := []struct {
		name     string
		body     string
		expected int
	}{
		{"wrong password", `{"username":"operator","password":"nope"}`, http.StatusUnauthorized},
		{"wrong username", `{"username":"admin","password":"` + testPassword + `"}`, http.StatusUnauthorized},
		{"missing fields", `{"username":"operator"}`, http.StatusBadRequest},
		{"malformed username", `{"username":"op","password":"x"}`, http.StatusBadRequest},
		{"not json", `operator`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(s, http.MethodPost, "/auth/login", "", tt.body)
			assert.Equal(t, tt.expected, w.Code)
		})
	}

	assert.NotEmpty(t, login(t, s))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, newFakeManager(), Options{})

	tests := []struct {
		name  string
		token string
	}{
		{"no token", ""},
		{"garbage token", "not-a-jwt"},
		{"foreign issuer", mustToken(t, auth.NewService("test-secret", time.Hour, "someone-else"))},
		{"expired", mustToken(t, auth.NewService("test-secret", -time.Minute, "forecast-autoscaler"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(s, http.MethodGet, "/api/v1/status", tt.token, "")
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func mustToken(t *testing.T, svc *auth.Service) string {
	t.Helper()
	token, err := svc.GenerateToken("operator")
	require.NoError(t, err)
	return token
}

func TestStatus(t *testing.T) {
	manager := newFakeManager()
	manager.record = models.NewCycleRecord("aks-test")
	s := newTestServer(t, manager, Options{})

	w := do(s, http.MethodGet, "/api/v1/status", login(t, s), "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "aks-test", resp["cluster_id"])
	assert.Equal(t, "closed", resp["circuit_breaker"])
	assert.NotNil(t, resp["last_cycle"])
	assert.Nil(t, resp["stats_24h"])
}

func TestTriggerCycle(t *testing.T) {
	record := models.NewCycleRecord("aks-test")
	record.Status = models.CycleSuccess
	record.Action = models.ActionSetNodeCount

	tests := []struct {
		name     string
		record   *models.CycleRecord
		err      error
		expected int
	}{
		{"success", record, nil, http.StatusOK},
		{"cycle failed", record, assertError("cluster missing"), http.StatusOK},
		{"in progress", nil, orchestrator.ErrCycleInProgress, http.StatusConflict},
		{"breaker open", nil, resilience.ErrCircuitOpen, http.StatusServiceUnavailable},
		{"no record", nil, assertError("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := newFakeManager()
			manager.record, manager.err = tt.record, tt.err
			s := newTestServer(t, manager, Options{})

			w := do(s, http.MethodPost, "/api/v1/cycles", login(t, s), "")
			assert.Equal(t, tt.expected, w.Code, w.Body.String())
		})
	}
}

type assertError string

func (e assertError) Error() string { return string(e) }

func TestCycleHistory(t *testing.T) {
	db, err := database.New(database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "history.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewMigrator(db).Run(context.Background()))

	repo := queries.NewCycleRepository(db.DB)
	var ids []string
	for i := 0; i < 3; i++ {
		r := models.NewCycleRecord("aks-test")
		r.StartedAt = time.Now().Add(-time.Duration(i) * time.Minute)
		r.FinishedAt = r.StartedAt.Add(time.Second)
		r.Status = models.CycleSuccess
		require.NoError(t, repo.Insert(context.Background(), r))
		ids = append(ids, r.ID)
	}

	s := newTestServer(t, newFakeManager(), Options{DB: db})
	token := login(t, s)

	w := do(s, http.MethodGet, "/api/v1/cycles?limit=2", token, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var list struct {
		Count  int                  `json:"count"`
		Cycles []models.CycleRecord `json:"cycles"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, ids[0], list.Cycles[0].ID)

	w = do(s, http.MethodGet, "/api/v1/cycles/"+ids[1], token, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(s, http.MethodGet, "/api/v1/cycles/"+models.NewUUID(), token, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(s, http.MethodGet, "/api/v1/cycles/not-a-cycle", token, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for _, q := range []string{"limit=0", "limit=abc", "from=yesterday", "from=2026-01-02T00:00:00Z&to=2026-01-01T00:00:00Z"} {
		w = do(s, http.MethodGet, "/api/v1/cycles?"+q, token, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}

	w = do(s, http.MethodGet, "/api/v1/status", token, "")
	assert.Contains(t, w.Body.String(), `"total_cycles":3`)
}

func TestCycleHistoryDisabled(t *testing.T) {
	s := newTestServer(t, newFakeManager(), Options{})

	w := do(s, http.MethodGet, "/api/v1/cycles", login(t, s), "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	m.IncDecision("aks-test", string(models.ActionNoChange))
	s := newTestServer(t, newFakeManager(), Options{Metrics: m})

	w := do(s, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "autoscaler_decisions_total")
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, newFakeManager(), Options{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/status", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSwaggerDocs(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		code    int
	}{
		{name: "enabled", enabled: true, code: http.StatusOK},
		{name: "disabled", enabled: false, code: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(config.APIConfig{JWTSecret: "test-secret", SwaggerEnabled: tt.enabled}, newFakeManager(), Options{})
			t.Cleanup(func() { s.Shutdown(context.Background()) })

			w := do(s, http.MethodGet, "/swagger/doc.json", "", "")
			require.Equal(t, tt.code, w.Code)
			if !tt.enabled {
				return
			}

			var doc struct {
				Swagger string                     `json:"swagger"`
				Info    struct{ Title string }     `json:"info"`
				Paths   map[string]json.RawMessage `json:"paths"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
			assert.Equal(t, "2.0", doc.Swagger)
			assert.Equal(t, "Forecast Autoscaler API", doc.Info.Title)
			for _, path := range []string{"/health", "/auth/login", "/api/v1/status", "/api/v1/cycles", "/api/v1/cycles/{id}"} {
				assert.Contains(t, doc.Paths, path)
			}

			ui := do(s, http.MethodGet, "/swagger/index.html", "", "")
			assert.Equal(t, http.StatusOK, ui.Code)
			assert.Contains(t, ui.Header().Get("Content-Security-Policy"), "'unsafe-inline'")
		})
	}
}
