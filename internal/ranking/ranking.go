package ranking

import (
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/oddslab/odds-intel-service/internal/models"
)

// Tie-break steps recorded on a BestPick when the maximum price was shared.
const (
	TieBreakOverride = "priority_override"
	TieBreakClass    = "remuneration_class"
	TieBreakValue    = "remuneration_value"
	TieBreakLexical  = "source_id"
)

// Ranker selects the best price per outcome across sources and resolves
// price ties through the business policy. Resolution is fully deterministic:
// it never depends on map iteration order.
type Ranker struct {
	policies map[string]models.RankingPolicy
	logger   zerolog.Logger
}

// NewRanker creates a ranker from the configured per-source policies.
func NewRanker(policies []models.RankingPolicy, logger zerolog.Logger) *Ranker {
	byID := make(map[string]models.RankingPolicy, len(policies))
	for _, p := range policies {
		byID[p.SourceID] = p
	}
	return &Ranker{
		policies: byID,
		logger:   logger.With().Str("component", "ranker").Logger(),
	}
}

// BestPicks returns, for each outcome present in the quotes of one market,
// the quote with the maximum price. Zero or absent prices are no price and
// never participate.
func (r *Ranker) BestPicks(quotes []models.Quote) []models.BestPick {
	outcomes := collectOutcomes(quotes)

	picks := make([]models.BestPick, 0, len(outcomes))
	for _, outcome := range outcomes {
		if pick, ok := r.bestFor(outcome, quotes); ok {
			picks = append(picks, pick)
		}
	}
	return picks
}

func (r *Ranker) bestFor(outcome string, quotes []models.Quote) (models.BestPick, bool) {
	var max decimal.Decimal
	var tied []string // source IDs holding the max price

	for _, q := range quotes {
		price, ok := q.Price(outcome)
		if !ok || price.LessThanOrEqual(decimal.Zero) {
			continue
		}
		switch {
		case len(tied) == 0 || price.GreaterThan(max):
			max = price
			tied = []string{q.SourceID}
		case price.Equal(max):
			tied = append(tied, q.SourceID)
		}
	}

	if len(tied) == 0 {
		return models.BestPick{}, false
	}
	if len(tied) == 1 {
		return models.BestPick{Outcome: outcome, Price: max, SourceID: tied[0]}, true
	}

	sort.Slice(tied, func(i, j int) bool {
		before, _ := r.precedes(tied[i], tied[j])
		return before
	})
	_, step := r.precedes(tied[0], tied[1])

	r.logger.Debug().
		Str("outcome", outcome).
		Str("winner", tied[0]).
		Str("tie_break", step).
		Int("tied", len(tied)).
		Msg("resolved price tie")

	return models.BestPick{Outcome: outcome, Price: max, SourceID: tied[0], TieBreak: step}, true
}

// precedes reports whether source a outranks source b within a price tie,
// and which step of the policy decided it.
func (r *Ranker) precedes(a, b string) (bool, string) {
	pa, pb := r.policies[a], r.policies[b]

	// A manual priority override beats everything; among overrides the
	// lower rank wins.
	switch {
	case pa.PriorityOverride != nil && pb.PriorityOverride == nil:
		return true, TieBreakOverride
	case pa.PriorityOverride == nil && pb.PriorityOverride != nil:
		return false, TieBreakOverride
	case pa.PriorityOverride != nil && pb.PriorityOverride != nil && *pa.PriorityOverride != *pb.PriorityOverride:
		return *pa.PriorityOverride < *pb.PriorityOverride, TieBreakOverride
	}

	if pa.Class.Rank() != pb.Class.Rank() {
		return pa.Class.Rank() < pb.Class.Rank(), TieBreakClass
	}

	if !pa.Value.Equal(pb.Value) {
		return pa.Value.GreaterThan(pb.Value), TieBreakValue
	}

	return a < b, TieBreakLexical
}

func collectOutcomes(quotes []models.Quote) []string {
	seen := make(map[string]bool)
	var outcomes []string
	for _, q := range quotes {
		for outcome := range q.Prices {
			if !seen[outcome] {
				seen[outcome] = true
				outcomes = append(outcomes, outcome)
			}
		}
	}
	sort.Strings(outcomes)
	return outcomes
}
