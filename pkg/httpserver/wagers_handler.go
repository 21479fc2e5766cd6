package httpserver

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/pricebet/pricebet/internal/fees"
	"github.com/pricebet/pricebet/internal/ledger"
	"github.com/pricebet/pricebet/internal/mirror"
	"github.com/pricebet/pricebet/internal/storage"
	"github.com/pricebet/pricebet/pkg/types"
	"go.uber.org/zap"
)

// WagersHandler handles wagers, switches, claims, and manual
// settlement against the ledger.
type WagersHandler struct {
	ledger  ledger.Ledger
	mirror  *mirror.Mirror
	storage storage.Storage
	logger  *zap.Logger
}

// NewWagersHandler creates a new wagers handler.
func NewWagersHandler(led ledger.Ledger, mir *mirror.Mirror, st storage.Storage, logger *zap.Logger) *WagersHandler {
	return &WagersHandler{
		ledger:  led,
		mirror:  mir,
		storage: st,
		logger:  logger,
	}
}

// BetRequest is the POST /api/markets/{id}/bets body.
type BetRequest struct {
	User   string `json:"user"`
	Side   string `json:"side"`
	Amount uint64 `json:"amount"`
}

// BetResponse is the accepted-wager response.
type BetResponse struct {
	MarketID uint64      `json:"market_id"`
	Side     string      `json:"side"`
	Quote    *fees.Quote `json:"quote"`
}

// SwitchRequest is the POST /api/markets/{id}/switch body. Side is
// the destination side.
type SwitchRequest struct {
	User   string `json:"user"`
	Side   string `json:"side"`
	Amount uint64 `json:"amount"`
}

// SwitchResponse reports the net amount credited after the haircut.
type SwitchResponse struct {
	MarketID    uint64 `json:"market_id"`
	Side        string `json:"side"`
	NetReceived uint64 `json:"net_received"`
}

// ClaimRequest is the POST /api/markets/{id}/claim body.
type ClaimRequest struct {
	User string `json:"user"`
}

// SettleRequest is the POST /api/markets/{id}/settle body for
// operator-supplied manual settlement.
type SettleRequest struct {
	PriceE10    uint64 `json:"price_e10"`
	TimestampMS int64  `json:"timestamp_ms"`
}

// SettleResponse reports the settled outcome.
type SettleResponse struct {
	MarketID uint64 `json:"market_id"`
	Outcome  string `json:"outcome"`
}

// PositionResponse is the GET /api/markets/{id}/position response.
type PositionResponse struct {
	MarketID uint64         `json:"market_id"`
	User     string         `json:"user"`
	Position types.Position `json:"position"`
}

// HandleBet handles POST /api/markets/{id}/bets.
func (h *WagersHandler) HandleBet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.marketID(w, r)
	if !ok {
		return
	}

	var req BetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "malformed request body", http.StatusBadRequest)
		return
	}

	user, ok := h.userAddress(w, req.User)
	if !ok {
		return
	}
	side, ok := h.side(w, req.Side)
	if !ok {
		return
	}

	quote, err := h.ledger.Buy(r.Context(), id, user, side, req.Amount)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	h.recordWager(r, id, req.User, side, quote)
	h.refreshMirror(r, id)

	h.writeJSON(w, http.StatusCreated, BetResponse{
		MarketID: id,
		Side:     side.String(),
		Quote:    quote,
	})
}

// HandleSwitch handles POST /api/markets/{id}/switch.
func (h *WagersHandler) HandleSwitch(w http.ResponseWriter, r *http.Request) {
	id, ok := h.marketID(w, r)
	if !ok {
		return
	}

	var req SwitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "malformed request body", http.StatusBadRequest)
		return
	}

	user, ok := h.userAddress(w, req.User)
	if !ok {
		return
	}
	side, ok := h.side(w, req.Side)
	if !ok {
		return
	}

	net, err := h.ledger.SwitchPosition(r.Context(), id, user, side, req.Amount)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	h.refreshMirror(r, id)

	h.writeJSON(w, http.StatusOK, SwitchResponse{
		MarketID:    id,
		Side:        side.String(),
		NetReceived: net,
	})
}

// HandleClaim handles POST /api/markets/{id}/claim.
func (h *WagersHandler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	id, ok := h.marketID(w, r)
	if !ok {
		return
	}

	var req ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "malformed request body", http.StatusBadRequest)
		return
	}

	user, ok := h.userAddress(w, req.User)
	if !ok {
		return
	}

	breakdown, err := h.ledger.Claim(r.Context(), id, user)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, breakdown)
}

// HandleSettle handles POST /api/markets/{id}/settle, the manual
// recovery path for oracle outages. Same ledger guards as the oracle
// path, including the exactly-once status guard.
func (h *WagersHandler) HandleSettle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.marketID(w, r)
	if !ok {
		return
	}

	var req SettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "malformed request body", http.StatusBadRequest)
		return
	}

	outcome, err := h.ledger.SettleWithManualPrice(r.Context(), id, req.PriceE10, req.TimestampMS)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	h.logger.Info("market-settled-manually",
		zap.Uint64("market-id", id),
		zap.Uint64("price-e10", req.PriceE10),
		zap.String("outcome", outcome.String()))

	h.refreshMirror(r, id)
	h.recordSettlement(r, id, outcome, req.PriceE10)

	h.writeJSON(w, http.StatusOK, SettleResponse{
		MarketID: id,
		Outcome:  outcome.String(),
	})
}

// HandlePosition handles GET /api/markets/{id}/position?user=0x...
func (h *WagersHandler) HandlePosition(w http.ResponseWriter, r *http.Request) {
	id, ok := h.marketID(w, r)
	if !ok {
		return
	}

	userParam := r.URL.Query().Get("user")
	user, ok := h.userAddress(w, userParam)
	if !ok {
		return
	}

	pos, err := h.ledger.GetPosition(r.Context(), id, user)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, PositionResponse{
		MarketID: id,
		User:     user.Hex(),
		Position: pos,
	})
}

func (h *WagersHandler) marketID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, "market id must be a positive integer", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *WagersHandler) userAddress(w http.ResponseWriter, addr string) (common.Address, bool) {
	if !common.IsHexAddress(addr) {
		h.writeError(w, "user must be a hex address", http.StatusBadRequest)
		return common.Address{}, false
	}
	return common.HexToAddress(addr), true
}

func (h *WagersHandler) side(w http.ResponseWriter, s string) (types.Side, bool) {
	switch strings.ToUpper(s) {
	case "YES":
		return types.SideYes, true
	case "NO":
		return types.SideNo, true
	default:
		h.writeError(w, "side must be YES or NO", http.StatusBadRequest)
		return 0, false
	}
}

// writeLedgerError maps the domain error classes to HTTP statuses.
func (h *WagersHandler) writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case types.IsGuard(err, types.GuardMarketNotFound):
		h.writeError(w, "market not found", http.StatusNotFound)
	case types.IsGuard(err):
		h.writeError(w, err.Error(), http.StatusConflict)
	case types.IsValidation(err):
		h.writeError(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("ledger-operation-failed", zap.Error(err))
		h.writeError(w, "internal error", http.StatusInternalServerError)
	}
}

// recordWager writes the audit row; failures are logged and swallowed.
func (h *WagersHandler) recordWager(r *http.Request, id uint64, user string, side types.Side, quote *fees.Quote) {
	if h.storage == nil {
		return
	}
	rec := &storage.WagerRecord{
		ID:          uuid.NewString(),
		MarketID:    id,
		User:        strings.ToLower(user),
		Side:        side,
		Amount:      quote.Bet,
		Fee:         quote.TotalFee,
		NetReceived: quote.NetReceived,
		PlacedAt:    time.Now(),
	}
	if err := h.storage.RecordWager(r.Context(), rec); err != nil {
		h.logger.Warn("wager-audit-write-failed",
			zap.Uint64("market-id", id),
			zap.Error(err))
	}
}

// recordSettlement writes the manual-settlement audit row.
func (h *WagersHandler) recordSettlement(r *http.Request, id uint64, outcome types.Outcome, priceE10 uint64) {
	if h.storage == nil {
		return
	}
	rec := &storage.SettlementRecord{
		ID:        uuid.NewString(),
		MarketID:  id,
		Outcome:   outcome,
		PriceE10:  priceE10,
		SettledAt: time.Now(),
	}
	if err := h.storage.RecordSettlement(r.Context(), rec); err != nil {
		h.logger.Warn("settlement-audit-write-failed",
			zap.Uint64("market-id", id),
			zap.Error(err))
	}
}

// refreshMirror re-reads the market after a mutation so displayed
// pools do not wait for the next sync cycle.
func (h *WagersHandler) refreshMirror(r *http.Request, id uint64) {
	m, err := h.ledger.GetMarket(r.Context(), id)
	if err != nil {
		h.logger.Warn("post-mutation-read-failed", zap.Uint64("market-id", id), zap.Error(err))
		return
	}
	if err := h.mirror.PutMarket(m); err != nil {
		h.logger.Warn("mirror-write-failed", zap.Uint64("market-id", id), zap.Error(err))
	}
}

func (h *WagersHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

func (h *WagersHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	h.writeJSON(w, statusCode, ErrorResponse{Error: message})
}
