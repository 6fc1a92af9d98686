package matching

import (
	"github.com/rs/zerolog"

	"github.com/oddslab/odds-intel-service/internal/alias"
	"github.com/oddslab/odds-intel-service/internal/models"
)

// Unmatched reasons surfaced in the aggregation report.
const (
	ReasonNoFixture = "no fixture matched both team names"
	ReasonAmbiguous = "multiple fixtures matched both team names"
)

// Matcher binds normalized quotes to canonical fixtures through the alias
// registry. It never mutates the registry; unmatched quotes are accumulated
// for operator review.
type Matcher struct {
	registry *alias.Registry
	logger   zerolog.Logger
}

// NewMatcher creates a fixture matcher backed by the given alias registry.
func NewMatcher(registry *alias.Registry, logger zerolog.Logger) *Matcher {
	return &Matcher{
		registry: registry,
		logger:   logger.With().Str("component", "fixture_matcher").Logger(),
	}
}

// MatchFixture matches a quote against the candidate fixtures. Both home and
// away must resolve to the same fixture; a one-sided match is rejected. When
// more than one fixture satisfies both sides the match is rejected as
// ambiguous rather than guessed. allowReversed additionally accepts swapped
// home/away, for sources known to report reversed fixtures.
func (m *Matcher) MatchFixture(q models.Quote, fixtures []models.CanonicalFixture, allowReversed bool) models.MatchResult {
	var candidates []*models.CanonicalFixture

	for i := range fixtures {
		f := &fixtures[i]
		if m.registry.MatchTeamNames(q.RawHome, f.HomeTeam) && m.registry.MatchTeamNames(q.RawAway, f.AwayTeam) {
			candidates = append(candidates, f)
			continue
		}
		if allowReversed &&
			m.registry.MatchTeamNames(q.RawHome, f.AwayTeam) && m.registry.MatchTeamNames(q.RawAway, f.HomeTeam) {
			candidates = append(candidates, f)
		}
	}

	switch len(candidates) {
	case 1:
		return models.MatchResult{Quote: q, Fixture: candidates[0]}
	case 0:
		return m.unmatched(q, ReasonNoFixture)
	default:
		m.logger.Warn().
			Str("source_id", q.SourceID).
			Str("raw_home", q.RawHome).
			Str("raw_away", q.RawAway).
			Int("candidates", len(candidates)).
			Msg("ambiguous fixture match rejected")
		return m.unmatched(q, ReasonAmbiguous)
	}
}

// MatchAll matches every quote and splits the results into bound pairs and
// unmatched records.
func (m *Matcher) MatchAll(quotes []models.Quote, fixtures []models.CanonicalFixture, allowReversed bool) ([]models.MatchResult, []models.UnmatchedQuote) {
	results := make([]models.MatchResult, 0, len(quotes))
	var unmatched []models.UnmatchedQuote

	for _, q := range quotes {
		res := m.MatchFixture(q, fixtures, allowReversed)
		results = append(results, res)
		if res.Unmatched != nil {
			unmatched = append(unmatched, *res.Unmatched)
		}
	}
	return results, unmatched
}

// SuggestAliases turns unmatched quotes into alias suggestions for names the
// registry cannot resolve at all. Names that do resolve are omitted: those
// failures come from missing fixtures, not missing aliases.
func (m *Matcher) SuggestAliases(unmatched []models.UnmatchedQuote) []models.AliasSuggestion {
	var suggestions []models.AliasSuggestion
	seen := make(map[string]bool)

	add := func(raw, other, sourceID string) {
		key := alias.Normalize(raw)
		if key == "" || seen[key] {
			return
		}
		if _, ok := m.registry.CanonicalFor(raw); ok {
			return
		}
		seen[key] = true
		suggestions = append(suggestions, models.AliasSuggestion{
			RawName:  raw,
			SeenWith: other,
			SourceID: sourceID,
		})
	}

	for _, u := range unmatched {
		add(u.RawHome, u.RawAway, u.SourceID)
		add(u.RawAway, u.RawHome, u.SourceID)
	}
	return suggestions
}

// InvolvesTeam reports whether a fixture involves the given team, on either
// side, resolved through the registry.
func (m *Matcher) InvolvesTeam(f models.CanonicalFixture, team string) bool {
	return m.registry.MatchTeamNames(f.HomeTeam, team) || m.registry.MatchTeamNames(f.AwayTeam, team)
}

// CanonicalTeam resolves a team name to its canonical form. Unknown names
// are returned unchanged.
func (m *Matcher) CanonicalTeam(name string) string {
	if canon, ok := m.registry.CanonicalFor(name); ok {
		return canon
	}
	return name
}

func (m *Matcher) unmatched(q models.Quote, reason string) models.MatchResult {
	return models.MatchResult{
		Quote: q,
		Unmatched: &models.UnmatchedQuote{
			SourceID: q.SourceID,
			Market:   q.Market,
			RawHome:  q.RawHome,
			RawAway:  q.RawAway,
			Reason:   reason,
		},
	}
}
