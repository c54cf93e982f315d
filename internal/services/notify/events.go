package notify

import (
	"time"

	"poseidon/internal/domain/lp"
)

// EventKind classifies monitor and execution events.
type EventKind string

const (
	EventOutOfRange  EventKind = "OUT_OF_RANGE"
	EventBackInRange EventKind = "BACK_IN_RANGE"
	EventRebalanced  EventKind = "REBALANCED"
	EventDCAExecuted EventKind = "DCA_EXECUTED"
	EventDCAFailed   EventKind = "DCA_FAILED"
	EventDailyDigest EventKind = "DAILY_SUMMARY"
)

// SuggestedAction tells the recipient what the engine would do next, as an
// endpoint plus parameters a client can replay.
type SuggestedAction struct {
	Endpoint string            `json:"endpoint"`
	Params   map[string]string `json:"params,omitempty"`
}

// Event is the transport-agnostic payload handed to the fan-out.
type Event struct {
	Kind       EventKind `json:"kind"`
	Wallet     string    `json:"wallet"`
	PositionID string    `json:"positionId,omitempty"`
	Pool       string    `json:"pool,omitempty"`
	Venue      lp.Venue  `json:"venue,omitempty"`
	Range      *lp.Range `json:"range,omitempty"`
	// DriftUnits is the distance from the nearest range edge in grid units.
	DriftUnits int32            `json:"driftUnits,omitempty"`
	Message    string           `json:"message,omitempty"`
	Action     *SuggestedAction `json:"action,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

// wantsEvent applies the recipient's preferences.
func wantsEvent(prefs lp.Preferences, kind EventKind) bool {
	switch kind {
	case EventOutOfRange:
		return prefs.AlertOutOfRange
	case EventBackInRange:
		return prefs.AlertBackInRange
	case EventDailyDigest:
		return prefs.DailySummary
	default:
		return true
	}
}
