package httpserver

import (
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/pricebet/pricebet/internal/ledger"
	"github.com/pricebet/pricebet/internal/mirror"
	"github.com/pricebet/pricebet/internal/snapshot"
	"github.com/pricebet/pricebet/pkg/types"
	"go.uber.org/zap"
)

// MarketsHandler handles HTTP requests for market records.
type MarketsHandler struct {
	ledger    ledger.Ledger
	mirror    *mirror.Mirror
	publisher *snapshot.Publisher
	logger    *zap.Logger
}

// NewMarketsHandler creates a new markets handler.
func NewMarketsHandler(led ledger.Ledger, mir *mirror.Mirror, pub *snapshot.Publisher, logger *zap.Logger) *MarketsHandler {
	return &MarketsHandler{
		ledger:    led,
		mirror:    mir,
		publisher: pub,
		logger:    logger,
	}
}

// CreateMarketRequest is the POST /api/markets body. Addresses are
// hex strings.
type CreateMarketRequest struct {
	AssetIndex   uint8  `json:"asset_index"`
	ThresholdE10 uint64 `json:"threshold_e10"`
	DeadlineMS   int64  `json:"deadline_ms"`
	Creator      string `json:"creator"`
	FeeTreasury  string `json:"fee_treasury"`
	FeeBurn      string `json:"fee_burn"`
}

// ListMarketsResponse represents the GET /api/markets response.
type ListMarketsResponse struct {
	Markets []*types.Market `json:"markets"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleList handles GET /api/markets. Served from the mirror; pool
// totals may trail the ledger by one sync interval.
func (h *MarketsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	markets := h.mirror.ListMarkets()

	h.writeJSON(w, http.StatusOK, ListMarketsResponse{Markets: markets})
}

// HandleGet handles GET /api/markets/{id}. Falls back to an
// authoritative ledger read when the mirrored record is missing.
func (h *MarketsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, "market id must be a positive integer", http.StatusBadRequest)
		return
	}

	if m, ok := h.mirror.GetMarket(id); ok {
		h.writeJSON(w, http.StatusOK, m)
		return
	}

	m, err := h.ledger.GetMarket(r.Context(), id)
	if err != nil {
		if types.IsGuard(err, types.GuardMarketNotFound) {
			h.writeError(w, "market not found", http.StatusNotFound)
			return
		}
		h.logger.Error("market-read-failed", zap.Uint64("market-id", id), zap.Error(err))
		h.writeError(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, m)
}

// HandleCreate handles POST /api/markets: ledger initialize, mirror
// write, best-effort snapshot publish.
func (h *MarketsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "malformed request body", http.StatusBadRequest)
		return
	}

	for field, addr := range map[string]string{
		"creator":      req.Creator,
		"fee_treasury": req.FeeTreasury,
		"fee_burn":     req.FeeBurn,
	} {
		if addr != "" && !common.IsHexAddress(addr) {
			h.writeError(w, field+" must be a hex address", http.StatusBadRequest)
			return
		}
	}

	m, err := h.ledger.Initialize(r.Context(), ledger.InitParams{
		AssetIndex:   req.AssetIndex,
		ThresholdE10: req.ThresholdE10,
		DeadlineMS:   req.DeadlineMS,
		Creator:      common.HexToAddress(req.Creator),
		FeeTreasury:  common.HexToAddress(req.FeeTreasury),
		FeeBurn:      common.HexToAddress(req.FeeBurn),
	})
	if err != nil {
		if types.IsValidation(err) {
			h.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("market-create-failed", zap.Error(err))
		h.writeError(w, "internal error", http.StatusInternalServerError)
		return
	}

	if err := h.mirror.PutMarket(m); err != nil {
		h.logger.Warn("mirror-write-failed", zap.Uint64("market-id", m.ID), zap.Error(err))
	}

	if h.publisher != nil {
		if err := h.publisher.Publish(r.Context(), h.mirror.ListMarkets()); err != nil {
			h.logger.Warn("snapshot-publish-failed", zap.Error(err))
		}
	}

	h.logger.Info("market-created",
		zap.Uint64("market-id", m.ID),
		zap.Int64("deadline-ms", m.DeadlineMS))

	h.writeJSON(w, http.StatusCreated, m)
}

func (h *MarketsHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

// writeError writes a JSON error response.
func (h *MarketsHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	h.writeJSON(w, statusCode, ErrorResponse{Error: message})
}
