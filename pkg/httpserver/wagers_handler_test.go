package httpserver

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goccy/go-json"
	"github.com/pricebet/pricebet/internal/ledger"
	"github.com/pricebet/pricebet/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const aliceHex = "0x00000000000000000000000000000000000000a1"

func createActiveMarket(t *testing.T, led *ledger.Memory) *types.Market {
	t.Helper()
	m, err := led.Initialize(context.Background(), ledger.InitParams{
		AssetIndex:   1,
		ThresholdE10: 1_000_000_000_000,
		DeadlineMS:   time.Now().Add(72 * time.Hour).UnixMilli(),
	})
	require.NoError(t, err)
	return m
}

func postJSON(t *testing.T, srv *Server, path string, v interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.serve(rec, httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body)))
	return rec
}

func TestBetAcceptedWithQuote(t *testing.T) {
	srv, led, mir := newTestServer(t)
	m := createActiveMarket(t, led)

	rec := postJSON(t, srv, "/api/markets/1/bets", BetRequest{
		User:   aliceHex,
		Side:   "yes",
		Amount: 10_000_000,
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp BetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "YES", resp.Side)
	// Full duration remaining, balanced pools: base fee only.
	assert.Equal(t, uint64(20_000), resp.Quote.TotalFee)
	assert.Equal(t, uint64(9_980_000), resp.Quote.NetReceived)

	// Mirror refreshed on the mutation path.
	mirrored, ok := mir.GetMarket(m.ID)
	require.True(t, ok)
	assert.Equal(t, uint64(19_980_000), mirrored.YesPool)
}

func TestBetGuardRejectionsMapToConflict(t *testing.T) {
	srv, led, _ := newTestServer(t)
	createActiveMarket(t, led)

	rec := postJSON(t, srv, "/api/markets/1/bets", BetRequest{
		User:   aliceHex,
		Side:   "NO",
		Amount: 500, // below minimum bet
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestBetUnknownMarket(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := postJSON(t, srv, "/api/markets/99/bets", BetRequest{
		User:   aliceHex,
		Side:   "YES",
		Amount: 2_000_000,
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBetBadSide(t *testing.T) {
	srv, led, _ := newTestServer(t)
	createActiveMarket(t, led)

	rec := postJSON(t, srv, "/api/markets/1/bets", BetRequest{
		User:   aliceHex,
		Side:   "MAYBE",
		Amount: 2_000_000,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSwitchOncePerMarket(t *testing.T) {
	srv, led, _ := newTestServer(t)
	createActiveMarket(t, led)

	rec := postJSON(t, srv, "/api/markets/1/bets", BetRequest{
		User:   aliceHex,
		Side:   "NO",
		Amount: 10_000_000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(t, srv, "/api/markets/1/switch", SwitchRequest{
		User:   aliceHex,
		Side:   "YES",
		Amount: 4_000_000,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SwitchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	// 15% early haircut.
	assert.Equal(t, uint64(3_400_000), resp.NetReceived)

	rec = postJSON(t, srv, "/api/markets/1/switch", SwitchRequest{
		User:   aliceHex,
		Side:   "NO",
		Amount: 1_000_000,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestClaimBeforeSettlementRejected(t *testing.T) {
	srv, led, _ := newTestServer(t)
	createActiveMarket(t, led)

	rec := postJSON(t, srv, "/api/markets/1/claim", ClaimRequest{User: aliceHex})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestManualSettleBeforeDeadlineRejected(t *testing.T) {
	srv, led, _ := newTestServer(t)
	m := createActiveMarket(t, led)

	rec := postJSON(t, srv, "/api/markets/1/settle", SettleRequest{
		PriceE10:    2_000_000_000_000,
		TimestampMS: m.DeadlineMS + 1,
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPositionEndpoint(t *testing.T) {
	srv, led, _ := newTestServer(t)
	createActiveMarket(t, led)

	_, err := led.Buy(context.Background(), 1, common.HexToAddress(aliceHex), types.SideYes, 10_000_000)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.serve(rec, httptest.NewRequest(http.MethodGet, "/api/markets/1/position?user="+aliceHex, nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp PositionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(9_980_000), resp.Position.YesAmount)
	assert.Zero(t, resp.Position.NoAmount)
}

func TestPositionMissingUser(t *testing.T) {
	srv, led, _ := newTestServer(t)
	createActiveMarket(t, led)

	rec := httptest.NewRecorder()
	srv.serve(rec, httptest.NewRequest(http.MethodGet, "/api/markets/1/position", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
