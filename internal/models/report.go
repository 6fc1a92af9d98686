package models

import (
	"time"

	"github.com/google/uuid"
)

// Source error kinds recorded in the aggregation report.
const (
	ErrKindSourceUnavailable = "source_unavailable"
	ErrKindMalformedPayload  = "malformed_payload"
)

// SourceError records a single source's failure for one aggregation cycle.
// The source is excluded from the cycle; the error never propagates.
type SourceError struct {
	SourceID string `json:"source_id"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
}

// AliasSuggestion is a raw team name an operator may want to map to a
// canonical name. Produced from unmatched quotes; the engine never adds
// aliases itself.
type AliasSuggestion struct {
	RawName  string `json:"raw_name"`
	SeenWith string `json:"seen_with"` // the other raw name on the same quote
	SourceID string `json:"source_id"`
}

// AggregationReport is written once per aggregation run and consumed by the
// administrative review screen.
type AggregationReport struct {
	ID               uuid.UUID         `json:"id"`
	Sport            string            `json:"sport"`
	League           string            `json:"league,omitempty"`
	RanAt            time.Time         `json:"ran_at"`
	SourceErrors     []SourceError     `json:"source_errors,omitempty"`
	Unmatched        []UnmatchedQuote  `json:"unmatched,omitempty"`
	AliasSuggestions []AliasSuggestion `json:"alias_suggestions,omitempty"`
	LeagueSubstituted string           `json:"league_substituted,omitempty"` // sibling league whose results were substituted wholesale
}
