package oracle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goccy/go-json"
	"github.com/pricebet/pricebet/pkg/types"
	"go.uber.org/zap"
)

// DefaultQueryLimit is how many newest log entries to request. The
// detector only inspects the newest entry, but a small window keeps
// the response useful for debugging.
const DefaultQueryLimit = 5

// Client queries an oracle node's action-log endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates an action-log client.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// actionEntry is the wire form of one log entry: an opaque ordering
// token plus a packed note carrying "<priceE10>:<timestampMS>".
type actionEntry struct {
	State string `json:"action_state"`
	Note  string `json:"note"`
}

// actionLogResponse is the wire form of the action-log query.
type actionLogResponse struct {
	Actions []actionEntry `json:"actions"`
}

// FetchLatestActions returns the newest log entries for the oracle
// account, newest first. When after is non-empty only entries past
// that ordering token are requested. Entries with short or malformed
// notes are returned with Valid=false so the detector can treat them
// as "no data" instead of dropping them and mis-identifying the
// newest entry.
func (c *Client) FetchLatestActions(ctx context.Context, account common.Address, after string, limit int) ([]types.OracleEntry, error) {
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	params := url.Values{}
	params.Add("account", account.Hex())
	params.Add("limit", strconv.Itoa(limit))
	if after != "" {
		params.Add("after", after)
	}

	requestURL := fmt.Sprintf("%s/v1/actions?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "pricebet/1.0")

	c.logger.Debug("fetching-oracle-actions",
		zap.String("account", account.Hex()),
		zap.String("after", after),
		zap.Int("limit", limit))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		QueryErrorsTotal.Inc()
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		QueryErrorsTotal.Inc()
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		QueryErrorsTotal.Inc()
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var logResp actionLogResponse
	err = json.Unmarshal(body, &logResp)
	if err != nil {
		QueryErrorsTotal.Inc()
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	QueriesTotal.Inc()

	entries := make([]types.OracleEntry, 0, len(logResp.Actions))
	for _, a := range logResp.Actions {
		entries = append(entries, parseEntry(a))
	}

	c.logger.Debug("fetched-oracle-actions",
		zap.Int("count", len(entries)))

	return entries, nil
}

// parseEntry decodes the packed note into embedded fields. Anything
// short or unparseable yields Valid=false.
func parseEntry(a actionEntry) types.OracleEntry {
	entry := types.OracleEntry{Token: a.State}

	parts := strings.Split(a.Note, ":")
	if len(parts) != 2 {
		return entry
	}

	price, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return entry
	}
	ts, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return entry
	}

	entry.PriceE10 = price
	entry.TimestampMS = ts
	entry.Valid = true
	return entry
}
