// Package oracle watches an external price oracle's append-only
// action log for updates that qualify a market for settlement. The
// oracle exposes no subscription mechanism, so detection is a
// baseline-diff poll: capture the newest entry's ordering token as a
// marker, then signal when a later poll sees a different token whose
// embedded timestamp is at or after the market's deadline.
package oracle

import (
	"github.com/pricebet/pricebet/pkg/types"
)

// Signal is the outcome of one detector evaluation.
type Signal struct {
	// Qualified is true when a post-deadline oracle update has been
	// observed and the market can settle now.
	Qualified bool
	// Marker is the baseline token to persist for the next cycle.
	// Empty means no usable entry was observed; keep whatever marker
	// already exists.
	Marker string
	// Entry is the qualifying entry when Qualified is true.
	Entry types.OracleEntry
}

// Evaluate inspects the newest action-log entries against a prior
// baseline marker and the market deadline. Pure function: feed it the
// stored marker and the latest poll result, persist the returned
// marker, settle on Qualified.
//
// Rules:
//   - No entries, or a newest entry whose embedded fields failed to
//     parse, is "no data" — never a signal.
//   - With no prior marker, a newest entry already timestamped at or
//     after the deadline is itself a qualifying settlement; signal
//     immediately rather than waiting a second cycle. Otherwise the
//     newest token becomes the baseline.
//   - With a prior marker, signal only when the newest token differs
//     from the marker AND its timestamp is at or after the deadline.
//     An update timestamped before the deadline only advances the
//     baseline.
//
// The log is append-only and totally ordered by the oracle, so only
// the newest entry is ever inspected.
func Evaluate(marker string, entries []types.OracleEntry, deadlineMS int64) Signal {
	if len(entries) == 0 {
		return Signal{Marker: marker}
	}

	newest := entries[0]
	if !newest.Valid {
		ParseFailuresTotal.Inc()
		return Signal{Marker: marker}
	}

	if newest.TimestampMS >= deadlineMS && (marker == "" || newest.Token != marker) {
		return Signal{Qualified: true, Marker: newest.Token, Entry: newest}
	}

	// Pre-deadline update (or unchanged token): advance the baseline.
	return Signal{Marker: newest.Token}
}
