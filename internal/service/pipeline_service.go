package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/oddslab/odds-intel-service/internal/aggregator"
	"github.com/oddslab/odds-intel-service/internal/matching"
	"github.com/oddslab/odds-intel-service/internal/models"
	"github.com/oddslab/odds-intel-service/internal/ranking"
	"github.com/oddslab/odds-intel-service/internal/source"
	"github.com/oddslab/odds-intel-service/pkg/discovery"
	"github.com/oddslab/odds-intel-service/pkg/signals"
)

// MarketView is one aggregation cycle's output for the presentation layer.
type MarketView struct {
	Sport             string                        `json:"sport"`
	League            string                        `json:"league,omitempty"`
	LeagueSubstituted string                        `json:"league_substituted,omitempty"`
	Markets           map[string][]models.Quote     `json:"markets"`
	BestPicks         map[string][]models.BestPick  `json:"best_picks"`
	Fixtures          []FixtureView                 `json:"fixtures,omitempty"`
}

// FixtureView is a matched fixture with its derived signals and current
// live-score state.
type FixtureView struct {
	Fixture models.CanonicalFixture `json:"fixture"`
	Score   *signals.ScoreEstimate  `json:"score_estimate,omitempty"`
	Goals   *signals.UnderOver      `json:"goals_recommendation,omitempty"`
	Live    *models.LiveScore       `json:"live,omitempty"`
}

// PipelineService orchestrates one odds-intelligence cycle: fixtures,
// concurrent source aggregation, ranking, derived signals and the per-run
// report.
type PipelineService struct {
	aggregator  *aggregator.Aggregator
	provider    source.FixturesProvider
	fetcher     source.Fetcher
	matcher     *matching.Matcher
	ranker      *ranking.Ranker
	cache       FixtureCache
	reports     ReportSink
	liveScores  source.LiveScoreReader // optional
	sources     []models.BookmakerSource
	minFixtures int
	logger      zerolog.Logger
}

// NewPipelineService creates the pipeline service.
func NewPipelineService(
	agg *aggregator.Aggregator,
	provider source.FixturesProvider,
	fetcher source.Fetcher,
	matcher *matching.Matcher,
	ranker *ranking.Ranker,
	cache FixtureCache,
	reports ReportSink,
	liveScores source.LiveScoreReader,
	sources []models.BookmakerSource,
	minFixtures int,
	logger zerolog.Logger,
) *PipelineService {
	return &PipelineService{
		aggregator:  agg,
		provider:    provider,
		fetcher:     fetcher,
		matcher:     matcher,
		ranker:      ranker,
		cache:       cache,
		reports:     reports,
		liveScores:  liveScores,
		sources:     sources,
		minFixtures: minFixtures,
		logger:      logger.With().Str("component", "pipeline_service").Logger(),
	}
}

// MarketQuotes runs one aggregation cycle for a sport/league and returns the
// per-market quote lists with best picks. When fixtureID is set, quotes are
// matched and only that fixture's view is derived.
func (s *PipelineService) MarketQuotes(ctx context.Context, sport, league, fixtureID string) (*MarketView, error) {
	fixtures, predictions := s.loadFixtures(ctx, league)

	if fixtureID != "" {
		filtered := fixtures[:0:0]
		for _, f := range fixtures {
			if f.ExternalID == fixtureID {
				filtered = append(filtered, f)
			}
		}
		fixtures = filtered
	}

	result, err := s.aggregator.Aggregate(ctx, sport, league, fixtures)
	if err != nil {
		return nil, fmt.Errorf("aggregation failed: %w", err)
	}

	view := &MarketView{
		Sport:             sport,
		League:            league,
		LeagueSubstituted: result.LeagueSubstituted,
		Markets:           result.Markets,
		BestPicks:         make(map[string][]models.BestPick, len(result.Markets)),
	}
	for market, quotes := range result.Markets {
		view.BestPicks[market] = s.ranker.BestPicks(quotes)
	}
	view.Fixtures = s.deriveFixtureViews(ctx, result, fixtures, predictions)

	s.publishReport(ctx, sport, league, result)
	return view, nil
}

// TeamRecentFixtures returns the recent fixtures involving a team, falling
// back to the cached history when the provider returns too few. The fresh
// result is always merged into the cache.
func (s *PipelineService) TeamRecentFixtures(ctx context.Context, league, team string) ([]models.CanonicalFixture, error) {
	fresh, _ := s.loadFixtures(ctx, league)

	var involving []models.CanonicalFixture
	for _, f := range fresh {
		if s.matcher.InvolvesTeam(f, team) {
			involving = append(involving, f)
		}
	}

	if len(involving) >= s.minFixtures {
		return involving, nil
	}

	// Cache keys are the provider's canonical names; a query by a known
	// alias must hit the same history.
	cached, err := s.cache.Get(ctx, s.matcher.CanonicalTeam(team))
	if err != nil {
		s.logger.Warn().Err(err).Str("team", team).Msg("fixture cache read failed")
		return involving, nil
	}
	merged := mergeByID(involving, cached)
	if len(merged) == 0 {
		return nil, fmt.Errorf("no fixtures found for team %s", team)
	}
	return merged, nil
}

// RunDiscovery fetches a source once and runs schema discovery on the body.
// This is the explicit discovery/test mode: the result is advisory and no
// configuration is touched. Promotion happens through the administrative
// surface.
func (s *PipelineService) RunDiscovery(ctx context.Context, sourceID, sport, league string) (*models.DiscoveredMapping, error) {
	var src *models.BookmakerSource
	for i := range s.sources {
		if s.sources[i].ID == sourceID {
			src = &s.sources[i]
			break
		}
	}
	if src == nil {
		return nil, fmt.Errorf("unknown source %s", sourceID)
	}

	payload, err := s.fetcher.Fetch(ctx, *src, sport, league)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source %s: %w", sourceID, err)
	}

	mapping, err := discovery.Discover(payload)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("source_id", sourceID).
		Str("events_path", mapping.EventsPath).
		Str("confidence", string(mapping.Confidence)).
		Msg("discovered mapping")
	return mapping, nil
}

// Ready reports whether downstream dependencies are reachable.
func (s *PipelineService) Ready(ctx context.Context) error {
	return s.cache.Ping(ctx)
}

// loadFixtures queries the authoritative provider and refreshes the fixture
// cache. Provider failure degrades to an empty fixture list; aggregation
// still runs unmatched.
func (s *PipelineService) loadFixtures(ctx context.Context, league string) ([]models.CanonicalFixture, map[string]models.FixturePrediction) {
	if s.provider == nil {
		return nil, nil
	}
	fixtures, predictions, err := s.provider.FixturesByLeague(ctx, league, time.Now().UTC())
	if err != nil {
		s.logger.Warn().Err(err).Str("league", league).Msg("fixtures provider unavailable")
		return nil, nil
	}

	if len(fixtures) > 0 {
		if err := s.cache.StoreAll(ctx, fixtures); err != nil {
			s.logger.Warn().Err(err).Msg("failed to refresh fixture cache")
		}
	}

	byID := make(map[string]models.FixturePrediction, len(predictions))
	for _, p := range predictions {
		byID[p.FixtureID] = p
	}
	return fixtures, byID
}

// deriveFixtureViews computes per-fixture signals from the ranking output of
// each fixture's own head-to-head quotes.
func (s *PipelineService) deriveFixtureViews(ctx context.Context, result *aggregator.Result, fixtures []models.CanonicalFixture, predictions map[string]models.FixturePrediction) []FixtureView {
	if len(result.MatchResults) == 0 {
		return nil
	}

	quotesByFixture := make(map[string][]models.Quote)
	for _, mr := range result.MatchResults {
		if mr.Matched() && mr.Quote.Market == models.MarketHeadToHead {
			quotesByFixture[mr.Fixture.ExternalID] = append(quotesByFixture[mr.Fixture.ExternalID], mr.Quote)
		}
	}

	views := make([]FixtureView, 0, len(fixtures))
	for _, f := range fixtures {
		view := FixtureView{Fixture: f}

		if picks := s.ranker.BestPicks(quotesByFixture[f.ExternalID]); len(picks) > 0 {
			view.Score = scoreFromPicks(picks)
		}
		if pred, ok := predictions[f.ExternalID]; ok && len(pred.GoalsRaw) > 0 {
			if uo, labels, err := signals.ParseGoals(pred.GoalsRaw); err == nil {
				sanitized := signals.Sanitize(uo, labels)
				view.Goals = &sanitized
			}
		}
		if s.liveScores != nil {
			if live, err := s.liveScores.Score(ctx, f.ExternalID); err == nil {
				view.Live = live
			}
		}

		views = append(views, view)
	}
	return views
}

// scoreFromPicks derives the score template from a complete 1/X/2 pick set.
func scoreFromPicks(picks []models.BestPick) *signals.ScoreEstimate {
	prices := make(map[string]decimal.Decimal, len(picks))
	for _, p := range picks {
		prices[p.Outcome] = p.Price
	}
	home, okH := prices[models.OutcomeHome]
	draw, okD := prices[models.OutcomeDraw]
	away, okA := prices[models.OutcomeAway]
	if !okH || !okD || !okA {
		return nil
	}

	score, err := signals.EstimateScore(home.InexactFloat64(), draw.InexactFloat64(), away.InexactFloat64())
	if err != nil {
		return nil
	}
	return &score
}

// publishReport writes the per-run report. Publish failures are logged, not
// returned: review data never fails the cycle.
func (s *PipelineService) publishReport(ctx context.Context, sport, league string, result *aggregator.Result) {
	report := &models.AggregationReport{
		ID:                uuid.New(),
		Sport:             sport,
		League:            league,
		RanAt:             time.Now().UTC(),
		SourceErrors:      result.SourceErrors,
		Unmatched:         result.Unmatched,
		AliasSuggestions:  s.matcher.SuggestAliases(result.Unmatched),
		LeagueSubstituted: result.LeagueSubstituted,
	}

	if err := s.reports.Publish(ctx, report); err != nil {
		s.logger.Warn().Err(err).Str("report_id", report.ID.String()).Msg("failed to publish aggregation report")
	}
}

func mergeByID(fresh, cached []models.CanonicalFixture) []models.CanonicalFixture {
	seen := make(map[string]bool, len(fresh)+len(cached))
	var merged []models.CanonicalFixture
	for _, list := range [][]models.CanonicalFixture{fresh, cached} {
		for _, f := range list {
			if !seen[f.ExternalID] {
				seen[f.ExternalID] = true
				merged = append(merged, f)
			}
		}
	}
	return merged
}
