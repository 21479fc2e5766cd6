package httpserver

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/pricebet/pricebet/internal/fees"
	"github.com/pricebet/pricebet/internal/ledger"
	"github.com/pricebet/pricebet/internal/mirror"
	"github.com/pricebet/pricebet/pkg/healthprobe"
	"github.com/pricebet/pricebet/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mapCache struct {
	mu   sync.Mutex
	data map[string]interface{}
}

func newMapCache() *mapCache { return &mapCache{data: make(map[string]interface{})} }

func (c *mapCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *mapCache) Set(key string, value interface{}, _ time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return true
}

func (c *mapCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

func (c *mapCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]interface{})
}

func (c *mapCache) Close() {}

func newTestServer(t *testing.T) (*Server, *ledger.Memory, *mirror.Mirror) {
	t.Helper()

	led := ledger.NewMemory(ledger.MemoryConfig{
		Seed:   10_000_000,
		MinBet: 1_000_000,
		Split:  fees.SplitProtocol,
		Logger: zap.NewNop(),
	})
	mir := mirror.New(&mirror.Config{Cache: newMapCache(), Logger: zap.NewNop()})

	hc := healthprobe.New()
	srv := New(&Config{
		Port:          "0",
		Logger:        zap.NewNop(),
		HealthChecker: hc,
		Ledger:        led,
		Mirror:        mir,
	})
	return srv, led, mir
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.server.Handler.ServeHTTP(w, r)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.serve(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.serve(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Body.Bytes())
}

func TestCreateMarket(t *testing.T) {
	srv, _, mir := newTestServer(t)

	deadline := time.Now().Add(48 * time.Hour).UnixMilli()
	body, err := json.Marshal(CreateMarketRequest{
		AssetIndex:   2,
		ThresholdE10: 1_000_000_000_000,
		DeadlineMS:   deadline,
		Creator:      "0x1111111111111111111111111111111111111111",
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.serve(rec, httptest.NewRequest(http.MethodPost, "/api/markets", bytes.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)

	var m types.Market
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, uint64(1), m.ID)
	assert.Equal(t, types.StatusActive, m.Status)
	assert.Equal(t, uint64(10_000_000), m.YesPool)
	assert.Equal(t, uint64(10_000_000), m.NoPool)

	// The mirrored copy is written on the create path.
	mirrored, ok := mir.GetMarket(m.ID)
	require.True(t, ok)
	assert.Equal(t, m.ID, mirrored.ID)
}

func TestCreateMarketValidation(t *testing.T) {
	srv, _, _ := newTestServer(t)

	tests := []struct {
		name string
		req  CreateMarketRequest
	}{
		{
			name: "zero threshold",
			req: CreateMarketRequest{
				AssetIndex: 1,
				DeadlineMS: time.Now().Add(48 * time.Hour).UnixMilli(),
			},
		},
		{
			name: "deadline too near",
			req: CreateMarketRequest{
				AssetIndex:   1,
				ThresholdE10: 1,
				DeadlineMS:   time.Now().Add(time.Hour).UnixMilli(),
			},
		},
		{
			name: "asset index out of range",
			req: CreateMarketRequest{
				AssetIndex:   42,
				ThresholdE10: 1,
				DeadlineMS:   time.Now().Add(48 * time.Hour).UnixMilli(),
			},
		},
		{
			name: "bad creator address",
			req: CreateMarketRequest{
				AssetIndex:   1,
				ThresholdE10: 1,
				DeadlineMS:   time.Now().Add(48 * time.Hour).UnixMilli(),
				Creator:      "not-hex",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := json.Marshal(tt.req)
			require.NoError(t, err)

			rec := httptest.NewRecorder()
			srv.serve(rec, httptest.NewRequest(http.MethodPost, "/api/markets", bytes.NewReader(body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var errResp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
			assert.NotEmpty(t, errResp.Error)
		})
	}
}

func TestCreateMarketMalformedBody(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.serve(rec, httptest.NewRequest(http.MethodPost, "/api/markets", bytes.NewReader([]byte("{not json"))))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMarketFromMirror(t *testing.T) {
	srv, _, mir := newTestServer(t)

	require.NoError(t, mir.PutMarket(&types.Market{ID: 7, Status: types.StatusLocked}))

	rec := httptest.NewRecorder()
	srv.serve(rec, httptest.NewRequest(http.MethodGet, "/api/markets/7", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var m types.Market
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, uint64(7), m.ID)
	assert.Equal(t, types.StatusLocked, m.Status)
}

func TestGetMarketFallsBackToLedger(t *testing.T) {
	srv, led, _ := newTestServer(t)

	m, err := led.Initialize(context.Background(), ledger.InitParams{
		AssetIndex:   0,
		ThresholdE10: 1,
		DeadlineMS:   time.Now().Add(48 * time.Hour).UnixMilli(),
	})
	require.NoError(t, err)

	// Nothing in the mirror; the handler must read the ledger.
	rec := httptest.NewRecorder()
	srv.serve(rec, httptest.NewRequest(http.MethodGet, "/api/markets/1", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var got types.Market
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, m.ID, got.ID)
}

func TestGetMarketNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.serve(rec, httptest.NewRequest(http.MethodGet, "/api/markets/999", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetMarketBadID(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.serve(rec, httptest.NewRequest(http.MethodGet, "/api/markets/seven", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListMarkets(t *testing.T) {
	srv, _, mir := newTestServer(t)

	require.NoError(t, mir.PutMarket(&types.Market{ID: 1}))
	require.NoError(t, mir.PutMarket(&types.Market{ID: 2}))

	rec := httptest.NewRecorder()
	srv.serve(rec, httptest.NewRequest(http.MethodGet, "/api/markets", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListMarketsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Markets, 2)
}

func TestStartAndShutdown(t *testing.T) {
	srv, _, _ := newTestServer(t)

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after shutdown")
	}
}
