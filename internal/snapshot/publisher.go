// Package snapshot publishes the market-list snapshot to an external
// object-pinning service after mutations. Publication is cosmetic: a
// failure here never affects ledger state and is logged and swallowed
// by callers.
package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/pricebet/pricebet/pkg/types"
	"go.uber.org/zap"
)

// Publisher pins market-list snapshots over HTTP.
type Publisher struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewPublisher creates a publisher. An empty baseURL disables
// publication; Publish becomes a no-op.
func NewPublisher(baseURL string, logger *zap.Logger) *Publisher {
	return &Publisher{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

// snapshotPayload is the pinned document.
type snapshotPayload struct {
	GeneratedAtMS int64           `json:"generated_at_ms"`
	Markets       []*types.Market `json:"markets"`
}

// Publish pins the current market list.
func (p *Publisher) Publish(ctx context.Context, markets []*types.Market) error {
	if p.baseURL == "" {
		return nil
	}

	payload := snapshotPayload{
		GeneratedAtMS: time.Now().UnixMilli(),
		Markets:       markets,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/pins", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "pricebet/1.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(respBody))
	}

	p.logger.Debug("snapshot-published", zap.Int("markets", len(markets)))
	return nil
}
