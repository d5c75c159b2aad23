// Package types provides domain models shared across cohortkeeper components.
//
// Zero-dependency design: types.go, json.go, timestamp.go and errors.go use
// only the standard library so the engine packages can import them freely. ID
// utilities in ids.go import uuid and are only needed by the execution log.
//
// All values here are produced fresh per execution. Nothing in this package
// holds long-lived mutable state.
package types

// EventRecord is one normalized user action handed to the segmentation engine.
// Timestamp is an ISO-8601 UTC instant; sequences of records are expected to be
// sorted ascending by Timestamp before they reach the engine.
type EventRecord struct {
	UserID     string     `json:"user_id"`
	Event      string     `json:"event"`
	Timestamp  string     `json:"timestamp"`
	SessionID  string     `json:"session_id,omitempty"`
	Properties Properties `json:"properties,omitempty"`
}

// Properties holds schemaless event metadata.
// Values are loosely typed: string, number, bool, nil, nested map or slice.
type Properties map[string]any

// Session is a contiguous run of one user's events.
// Created transiently during metrics computation; never persisted.
type Session struct {
	SessionID string        `json:"sessionId"`
	Start     string        `json:"start"`
	End       string        `json:"end"`
	Events    []EventRecord `json:"events"`
}

// UserMetrics is derived entirely from one user's matched events.
type UserMetrics struct {
	UserID                 string  `json:"userId"`
	EventCount             int     `json:"eventCount"`
	SessionCount           int     `json:"sessionCount"`
	LastActive             string  `json:"lastActive"`
	AvgSessionDurationMs   float64 `json:"avgSessionDurationMs"`
	TotalSessionDurationMs int64   `json:"totalSessionDurationMs"`
}

// SegmentSummary aggregates all UserMetrics of an execution.
// AvgSessionDurationMs is weighted by session, not averaged per user.
type SegmentSummary struct {
	Users                int     `json:"users"`
	Events               int     `json:"events"`
	Sessions             int     `json:"sessions"`
	AvgSessionDurationMs float64 `json:"avgSessionDurationMs"`
	LastActive           string  `json:"lastActive"`
	LastRun              string  `json:"lastRun"`
}

// SegmentExecution is the full result of evaluating a rule against a dataset.
// MetricsByUser keys are exactly MatchedUserIDs; MatchedUserIDs carries the
// first-seen order of users among matching events. The JSON encoding writes
// metricsByUser in that order (json.go). Protobuf Struct responses do not keep
// key order, so gRPC clients order by matchedUserIds.
type SegmentExecution struct {
	MatchedEvents  []EventRecord          `json:"matchedEvents"`
	MatchedUserIDs []string               `json:"matchedUserIds"`
	MetricsByUser  map[string]UserMetrics `json:"metricsByUser"`
	Summary        SegmentSummary         `json:"summary"`
}

// Resource limits enforced when validating authored rules.
const (
	// MaxPathDepth bounds the number of dot segments in a condition path.
	MaxPathDepth = 16

	// MaxRuleDepth bounds rule tree nesting; evaluation recursion equals tree depth.
	MaxRuleDepth = 32

	// MaxInOperatorValues limits in/nin lists to keep membership checks cheap.
	MaxInOperatorValues = 64
)
