package types

// OracleEntry is one parsed entry from the oracle's append-only
// action log. Token is the opaque ordering token assigned by the
// oracle; TimestampMS and PriceE10 are embedded application-level
// fields. Valid is false when the embedded fields could not be
// parsed (short or malformed payload) — such entries must be treated
// as "no data", never as a settlement signal.
type OracleEntry struct {
	Token       string `json:"action_state"`
	TimestampMS int64  `json:"timestamp_ms"`
	PriceE10    uint64 `json:"price_e10"`
	Valid       bool   `json:"-"`
}
