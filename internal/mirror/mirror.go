// Package mirror maintains the non-authoritative key-value copy of
// market records used by monitors and the HTTP API, plus the
// detection-marker store consumed by the settlement orchestrator.
// Writes are last-writer-wins with no concurrency token — acceptable
// only because the ledger, never the mirror, is authoritative for
// anything that moves money.
package mirror

import (
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/pricebet/pricebet/pkg/cache"
	"github.com/pricebet/pricebet/pkg/types"
	"go.uber.org/zap"
)

// DefaultMarkerTTL is the detection-marker expiry. A marker that is
// never consumed expires after seven days.
const DefaultMarkerTTL = 7 * 24 * time.Hour

// Market record TTL. Refreshed by the pool-sync monitor well inside
// this window.
const marketTTL = 24 * time.Hour

const indexKey = "markets:index"

// Mirror is the key-value mirror of market metadata.
type Mirror struct {
	cache     cache.Cache
	markerTTL time.Duration
	logger    *zap.Logger

	// The master index is read-modify-written, so it needs a lock the
	// generic cache surface does not provide.
	indexMu sync.Mutex
}

// Config holds mirror configuration.
type Config struct {
	Cache     cache.Cache
	MarkerTTL time.Duration
	Logger    *zap.Logger
}

// New creates a mirror over the given cache.
func New(cfg *Config) *Mirror {
	ttl := cfg.MarkerTTL
	if ttl == 0 {
		ttl = DefaultMarkerTTL
	}
	return &Mirror{
		cache:     cfg.Cache,
		markerTTL: ttl,
		logger:    cfg.Logger,
	}
}

func marketKey(id uint64) string { return fmt.Sprintf("market:%d", id) }
func markerKey(id uint64) string { return fmt.Sprintf("marker:%d", id) }

// PutMarket stores a JSON-encoded market record and ensures the id is
// in the master index.
func (m *Mirror) PutMarket(market *types.Market) error {
	data, err := json.Marshal(market)
	if err != nil {
		return fmt.Errorf("marshal market: %w", err)
	}

	if !m.cache.Set(marketKey(market.ID), data, marketTTL) {
		m.logger.Warn("mirror-market-write-dropped", zap.Uint64("market-id", market.ID))
	}

	m.addToIndex(market.ID)
	return nil
}

// GetMarket returns the mirrored record, which may be stale or absent.
func (m *Mirror) GetMarket(id uint64) (*types.Market, bool) {
	value, found := m.cache.Get(marketKey(id))
	if !found {
		return nil, false
	}

	data, ok := value.([]byte)
	if !ok {
		m.logger.Warn("mirror-invalid-market-record", zap.Uint64("market-id", id))
		return nil, false
	}

	var market types.Market
	if err := json.Unmarshal(data, &market); err != nil {
		m.logger.Warn("mirror-market-decode-failed",
			zap.Uint64("market-id", id),
			zap.Error(err))
		return nil, false
	}

	return &market, true
}

// Index returns the ids of all mirrored markets.
func (m *Mirror) Index() []uint64 {
	m.indexMu.Lock()
	defer m.indexMu.Unlock()
	return m.readIndex()
}

// ListMarkets returns every decodable mirrored record.
func (m *Mirror) ListMarkets() []*types.Market {
	ids := m.Index()
	out := make([]*types.Market, 0, len(ids))
	for _, id := range ids {
		if market, ok := m.GetMarket(id); ok {
			out = append(out, market)
		}
	}
	return out
}

// Marker returns the stored detection marker for a market.
func (m *Mirror) Marker(id uint64) (string, bool) {
	value, found := m.cache.Get(markerKey(id))
	if !found {
		return "", false
	}
	token, ok := value.(string)
	if !ok {
		return "", false
	}
	return token, true
}

// SetMarker stores the detection baseline with the marker TTL.
func (m *Mirror) SetMarker(id uint64, token string) {
	if !m.cache.Set(markerKey(id), token, m.markerTTL) {
		// A dropped marker only re-baselines the detector next cycle;
		// the first-observation rule keeps settlement correct.
		m.logger.Warn("mirror-marker-write-dropped", zap.Uint64("market-id", id))
	}
}

// DeleteMarker consumes a marker after a successful settlement.
func (m *Mirror) DeleteMarker(id uint64) {
	m.cache.Delete(markerKey(id))
}

func (m *Mirror) addToIndex(id uint64) {
	m.indexMu.Lock()
	defer m.indexMu.Unlock()

	ids := m.readIndex()
	for _, existing := range ids {
		if existing == id {
			return
		}
	}
	ids = append(ids, id)

	data, err := json.Marshal(ids)
	if err != nil {
		m.logger.Warn("mirror-index-encode-failed", zap.Error(err))
		return
	}
	if !m.cache.Set(indexKey, data, marketTTL) {
		m.logger.Warn("mirror-index-write-dropped")
	}
}

// readIndex decodes the master index; callers hold indexMu.
func (m *Mirror) readIndex() []uint64 {
	value, found := m.cache.Get(indexKey)
	if !found {
		return nil
	}
	data, ok := value.([]byte)
	if !ok {
		return nil
	}
	var ids []uint64
	if err := json.Unmarshal(data, &ids); err != nil {
		m.logger.Warn("mirror-index-decode-failed", zap.Error(err))
		return nil
	}
	return ids
}
