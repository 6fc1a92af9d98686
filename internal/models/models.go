package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Market keys produced by the normalizer.
const (
	MarketHeadToHead   = "1x2"
	MarketOverUnder    = "over_under"
	MarketDoubleChance = "double_chance"
)

// Outcome keys within the head-to-head market.
const (
	OutcomeHome = "1"
	OutcomeDraw = "X"
	OutcomeAway = "2"
)

// Odds outside this range are treated as absent, never passed downstream.
var (
	MinValidOdds = decimal.NewFromFloat(1.01)
	MaxValidOdds = decimal.NewFromInt(100)
)

// ValidOdds reports whether a decimal price is inside the accepted odds range.
func ValidOdds(price decimal.Decimal) bool {
	return price.GreaterThanOrEqual(MinValidOdds) && price.LessThanOrEqual(MaxValidOdds)
}

// FieldMapping describes where events and their fields live inside a source
// payload. It is either configured per source or promoted from a
// DiscoveredMapping by an operator.
type FieldMapping struct {
	EventsPath    string            `json:"events_path"`    // dot path to the event array, "" = document root
	HomeField     string            `json:"home_field"`     // field holding the home participant name
	AwayField     string            `json:"away_field"`     // field holding the away participant name
	OutcomeFields map[string]string `json:"outcome_fields"` // outcome key -> payload field name
}

// BookmakerSource is the per-bookmaker configuration. Owned by configuration,
// read-only to the engine.
type BookmakerSource struct {
	ID              string                  `json:"id"`
	Name            string                  `json:"name"`
	BaseURL         string                  `json:"base_url"`
	APIKey          string                  `json:"api_key"`
	Mapping         *FieldMapping           `json:"mapping,omitempty"` // head-to-head mapping; nil = requires discovery before production use
	MarketMappings  map[string]FieldMapping `json:"market_mappings,omitempty"` // additional markets (over/under, double chance)
	Markets         []string                `json:"markets"`
	ReportsReversed bool                    `json:"reports_reversed"` // source is known to report home/away swapped
}

// Confidence level of a discovered mapping.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
)

// DiscoveredMapping is the output of schema discovery. Advisory data only:
// an operator review step promotes it into a BookmakerSource's mapping, it is
// never applied to live traffic automatically.
type DiscoveredMapping struct {
	FieldMapping
	Confidence Confidence       `json:"confidence"`
	Alternates []EventCandidate `json:"alternates,omitempty"` // lower-ranked candidate arrays, for manual inspection
}

// EventCandidate is a payload array that passed the event-structure test,
// identified by its path and a sample of its first element.
type EventCandidate struct {
	Path   string         `json:"path"`
	Sample map[string]any `json:"sample,omitempty"`
}

// CanonicalFixture is a fixture known from the authoritative sports-data
// source. Immutable once created.
type CanonicalFixture struct {
	ExternalID string    `json:"external_id"`
	HomeTeam   string    `json:"home_team"`
	AwayTeam   string    `json:"away_team"`
	League     string    `json:"league"`
	Kickoff    time.Time `json:"kickoff"`
}

// Quote is one source's set of prices for a single event and market. Raw team
// names are retained as reported, pre-matching.
type Quote struct {
	ID        uuid.UUID                  `json:"id"`
	SourceID  string                     `json:"source_id"`
	Market    string                     `json:"market"`
	Prices    map[string]decimal.Decimal `json:"prices"` // outcome -> price; missing key = no price
	RawHome   string                     `json:"raw_home"`
	RawAway   string                     `json:"raw_away"`
	FetchedAt time.Time                  `json:"fetched_at"`
}

// Price returns the price for an outcome and whether one is present.
func (q *Quote) Price(outcome string) (decimal.Decimal, bool) {
	p, ok := q.Prices[outcome]
	return p, ok
}

// UnmatchedQuote records a quote that could not be bound to a canonical
// fixture, retaining the raw names for alias-suggestion review.
type UnmatchedQuote struct {
	SourceID string `json:"source_id"`
	Market   string `json:"market"`
	RawHome  string `json:"raw_home"`
	RawAway  string `json:"raw_away"`
	Reason   string `json:"reason"`
}

// MatchResult binds a quote to a canonical fixture, or carries the unmatched
// record when binding failed. Exactly one of Fixture/Unmatched is set.
type MatchResult struct {
	Quote     Quote             `json:"quote"`
	Fixture   *CanonicalFixture `json:"fixture,omitempty"`
	Unmatched *UnmatchedQuote   `json:"unmatched,omitempty"`
}

// Matched reports whether the quote was bound to a fixture.
func (r *MatchResult) Matched() bool {
	return r.Fixture != nil
}

// AliasEntry maps a canonical team name to its known variant spellings.
// Mutated only through an explicit administrative correction step, never
// inferred by the engine.
type AliasEntry struct {
	Canonical string   `json:"canonical"`
	Variants  []string `json:"variants"`
}

// RemunerationClass classifies how a bookmaker remunerates, used as a ranking
// tie-break. Revenue share outranks CPA, which outranks CPL.
type RemunerationClass string

const (
	ClassRevenueShare       RemunerationClass = "revenue_share"
	ClassCostPerAcquisition RemunerationClass = "cpa"
	ClassCostPerLead        RemunerationClass = "cpl"
)

// Rank returns the tie-break rank of the class; lower is better.
func (c RemunerationClass) Rank() int {
	switch c {
	case ClassRevenueShare:
		return 0
	case ClassCostPerAcquisition:
		return 1
	case ClassCostPerLead:
		return 2
	default:
		return 3
	}
}

// RankingPolicy is the per-bookmaker business priority used to resolve price
// ties.
type RankingPolicy struct {
	SourceID         string            `json:"source_id"`
	PriorityOverride *int              `json:"priority_override,omitempty"` // lower wins; nil = no override
	Class            RemunerationClass `json:"class"`
	Value            decimal.Decimal   `json:"value"` // remuneration value within class
}

// BestPick is the winning quote for one outcome after ranking, with the
// tie-break step that decided it.
type BestPick struct {
	Outcome  string          `json:"outcome"`
	Price    decimal.Decimal `json:"price"`
	SourceID string          `json:"source_id"`
	TieBreak string          `json:"tie_break,omitempty"` // empty when the max price was unique
}
