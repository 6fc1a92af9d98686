package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/oddslab/odds-intel-service/internal/aggregator"
	"github.com/oddslab/odds-intel-service/internal/alias"
	"github.com/oddslab/odds-intel-service/internal/matching"
	"github.com/oddslab/odds-intel-service/internal/mocks"
	"github.com/oddslab/odds-intel-service/internal/models"
	"github.com/oddslab/odds-intel-service/internal/normalizer"
	"github.com/oddslab/odds-intel-service/internal/ranking"
	"github.com/oddslab/odds-intel-service/pkg/signals"
)

// stubFetcher serves canned payloads per source
type stubFetcher struct {
	payloads map[string][]byte
	errs     map[string]error
}

func (f *stubFetcher) Fetch(ctx context.Context, src models.BookmakerSource, sport, league string) ([]byte, error) {
	if err, ok := f.errs[src.ID]; ok {
		return nil, err
	}
	if body, ok := f.payloads[src.ID]; ok {
		return body, nil
	}
	return []byte(`{"events": []}`), nil
}

// stubProvider serves a fixed fixture list
type stubProvider struct {
	fixtures    []models.CanonicalFixture
	predictions []models.FixturePrediction
	err         error
}

func (p *stubProvider) FixturesByLeague(ctx context.Context, league string, date time.Time) ([]models.CanonicalFixture, []models.FixturePrediction, error) {
	if p.err != nil {
		return nil, nil, p.err
	}
	return p.fixtures, p.predictions, nil
}

// stubLiveScores serves one score per fixture id
type stubLiveScores struct {
	scores map[string]*models.LiveScore
}

func (l *stubLiveScores) Score(ctx context.Context, fixtureID string) (*models.LiveScore, error) {
	if s, ok := l.scores[fixtureID]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("no score for %s", fixtureID)
}

// testPipelineSetup is a helper struct to hold test dependencies
type testPipelineSetup struct {
	service   *PipelineService
	fetcher   *stubFetcher
	provider  *stubProvider
	mockCache *mocks.MockFixtureCache
	mockSink  *mocks.MockReportSink
	ctrl      *gomock.Controller
	sources   []models.BookmakerSource
}

func (s *testPipelineSetup) cleanup() {
	s.ctrl.Finish()
}

func setupTestPipeline(t *testing.T) *testPipelineSetup {
	ctrl := gomock.NewController(t)
	logger := zerolog.Nop()

	mapping := &models.FieldMapping{
		EventsPath: "events",
		HomeField:  "home",
		AwayField:  "away",
		OutcomeFields: map[string]string{
			models.OutcomeHome: "odds1",
			models.OutcomeDraw: "oddsX",
			models.OutcomeAway: "odds2",
		},
	}
	sources := []models.BookmakerSource{
		{ID: "bookie-a", Name: "Bookie A", Mapping: mapping},
		{ID: "bookie-b", Name: "Bookie B", Mapping: mapping},
	}

	fetcher := &stubFetcher{
		payloads: map[string][]byte{
			"bookie-a": []byte(`{"events": [{"home": "Inter", "away": "AC Milan", "odds1": 2.10, "oddsX": 3.10, "odds2": 3.45}]}`),
			"bookie-b": []byte(`{"events": [{"home": "FC Internazionale", "away": "Milan", "odds1": 2.05, "oddsX": 3.15, "odds2": 3.45}]}`),
		},
		errs: map[string]error{},
	}

	goals, _ := json.Marshal(map[string]string{"2.5": "Under", "3.5": "Under"})
	provider := &stubProvider{
		fixtures: []models.CanonicalFixture{
			{ExternalID: "fx-1", HomeTeam: "Inter", AwayTeam: "AC Milan", League: "serie-a", Kickoff: time.Now().Add(2 * time.Hour)},
		},
		predictions: []models.FixturePrediction{
			{FixtureID: "fx-1", HomePercent: "45", DrawPercent: "30", AwayPercent: "25", GoalsRaw: goals},
		},
	}

	registry := alias.NewRegistry([]models.AliasEntry{
		{Canonical: "Inter", Variants: []string{"FC Internazionale"}},
		{Canonical: "AC Milan", Variants: []string{"Milan"}},
	})
	matcher := matching.NewMatcher(registry, logger)
	norm := normalizer.New(logger)
	agg := aggregator.New(fetcher, norm, matcher, sources, time.Second, nil, logger)
	ranker := ranking.NewRanker(nil, logger)

	mockCache := mocks.NewMockFixtureCache(ctrl)
	mockSink := mocks.NewMockReportSink(ctrl)

	live := &stubLiveScores{scores: map[string]*models.LiveScore{
		"fx-1": {FixtureID: "fx-1", Status: "1H", Minute: 31, HomeGoals: 1, AwayGoals: 0},
	}}

	svc := NewPipelineService(agg, provider, fetcher, matcher, ranker, mockCache, mockSink, live, sources, 3, logger)

	return &testPipelineSetup{
		service:   svc,
		fetcher:   fetcher,
		provider:  provider,
		mockCache: mockCache,
		mockSink:  mockSink,
		ctrl:      ctrl,
		sources:   sources,
	}
}

// TestMarketQuotes_FullCycle tests one complete aggregation cycle
func TestMarketQuotes_FullCycle(t *testing.T) {
	setup := setupTestPipeline(t)
	defer setup.cleanup()

	setup.mockCache.EXPECT().StoreAll(gomock.Any(), gomock.Any()).Return(nil)

	var published *models.AggregationReport
	setup.mockSink.EXPECT().
		Publish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, r *models.AggregationReport) error {
			published = r
			return nil
		})

	view, err := setup.service.MarketQuotes(context.Background(), "football", "serie-a", "")

	require.NoError(t, err)
	require.Len(t, view.Markets[models.MarketHeadToHead], 2)

	picks := view.BestPicks[models.MarketHeadToHead]
	require.Len(t, picks, 3)
	for _, p := range picks {
		if p.Outcome == models.OutcomeHome {
			// Max price wins: 2.10 from bookie-a.
			assert.Equal(t, "bookie-a", p.SourceID)
		}
	}

	require.Len(t, view.Fixtures, 1)
	fv := view.Fixtures[0]
	assert.Equal(t, "fx-1", fv.Fixture.ExternalID)
	require.NotNil(t, fv.Score)
	assert.Equal(t, signals.ScoreEstimate{HomeGoals: 1, AwayGoals: 1}, *fv.Score)
	require.NotNil(t, fv.Goals)
	assert.Equal(t, signals.UnderOver{Type: signals.TypeUnder, Threshold: "2.5"}, *fv.Goals)
	require.NotNil(t, fv.Live)
	assert.Equal(t, 31, fv.Live.Minute)

	require.NotNil(t, published)
	assert.Equal(t, "football", published.Sport)
	assert.Empty(t, published.SourceErrors)
	assert.Empty(t, published.Unmatched)
}

// TestMarketQuotes_SourceFailureReported tests per-source degradation
func TestMarketQuotes_SourceFailureReported(t *testing.T) {
	setup := setupTestPipeline(t)
	defer setup.cleanup()

	setup.fetcher.errs["bookie-b"] = fmt.Errorf("connection refused")
	setup.mockCache.EXPECT().StoreAll(gomock.Any(), gomock.Any()).Return(nil)

	var published *models.AggregationReport
	setup.mockSink.EXPECT().
		Publish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, r *models.AggregationReport) error {
			published = r
			return nil
		})

	view, err := setup.service.MarketQuotes(context.Background(), "football", "serie-a", "")

	require.NoError(t, err)
	assert.Len(t, view.Markets[models.MarketHeadToHead], 1)
	require.NotNil(t, published)
	require.Len(t, published.SourceErrors, 1)
	assert.Equal(t, "bookie-b", published.SourceErrors[0].SourceID)
	assert.Equal(t, models.ErrKindSourceUnavailable, published.SourceErrors[0].Kind)
}

// TestMarketQuotes_ProviderDownDegrades tests aggregation without fixtures
func TestMarketQuotes_ProviderDownDegrades(t *testing.T) {
	setup := setupTestPipeline(t)
	defer setup.cleanup()

	setup.provider.err = fmt.Errorf("provider down")
	setup.mockSink.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	view, err := setup.service.MarketQuotes(context.Background(), "football", "serie-a", "")

	require.NoError(t, err)
	assert.Len(t, view.Markets[models.MarketHeadToHead], 2)
	assert.Empty(t, view.Fixtures)
}

// TestMarketQuotes_PublishFailureTolerated tests that a sink outage never
// fails the cycle
func TestMarketQuotes_PublishFailureTolerated(t *testing.T) {
	setup := setupTestPipeline(t)
	defer setup.cleanup()

	setup.mockCache.EXPECT().StoreAll(gomock.Any(), gomock.Any()).Return(nil)
	setup.mockSink.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(fmt.Errorf("kafka down"))

	_, err := setup.service.MarketQuotes(context.Background(), "football", "serie-a", "")

	assert.NoError(t, err)
}

// TestTeamRecentFixtures_CacheFallback tests the too-few-fixtures fallback
func TestTeamRecentFixtures_CacheFallback(t *testing.T) {
	setup := setupTestPipeline(t)
	defer setup.cleanup()

	setup.mockCache.EXPECT().StoreAll(gomock.Any(), gomock.Any()).Return(nil)
	setup.mockCache.EXPECT().Get(gomock.Any(), "Inter").Return([]models.CanonicalFixture{
		{ExternalID: "fx-old-1", HomeTeam: "Inter", AwayTeam: "Juventus"},
		{ExternalID: "fx-old-2", HomeTeam: "Roma", AwayTeam: "Inter"},
	}, nil)

	fixtures, err := setup.service.TeamRecentFixtures(context.Background(), "serie-a", "Inter")

	require.NoError(t, err)
	// One fresh fixture plus two cached ones, deduplicated.
	assert.Len(t, fixtures, 3)
	assert.Equal(t, "fx-1", fixtures[0].ExternalID)
}

// TestTeamRecentFixtures_AliasHitsCanonicalCacheKey tests that a query by a
// known variant reads the cache under the canonical name
func TestTeamRecentFixtures_AliasHitsCanonicalCacheKey(t *testing.T) {
	setup := setupTestPipeline(t)
	defer setup.cleanup()

	setup.mockCache.EXPECT().StoreAll(gomock.Any(), gomock.Any()).Return(nil)
	setup.mockCache.EXPECT().Get(gomock.Any(), "Inter").Return([]models.CanonicalFixture{
		{ExternalID: "fx-old-1", HomeTeam: "Inter", AwayTeam: "Juventus"},
		{ExternalID: "fx-old-2", HomeTeam: "Roma", AwayTeam: "Inter"},
	}, nil)

	fixtures, err := setup.service.TeamRecentFixtures(context.Background(), "serie-a", "FC Internazionale")

	require.NoError(t, err)
	assert.Len(t, fixtures, 3)
}

// TestRunDiscovery tests the explicit discovery mode
func TestRunDiscovery(t *testing.T) {
	setup := setupTestPipeline(t)
	defer setup.cleanup()

	mapping, err := setup.service.RunDiscovery(context.Background(), "bookie-a", "football", "serie-a")

	require.NoError(t, err)
	assert.Equal(t, "events", mapping.EventsPath)
	assert.Equal(t, models.ConfidenceHigh, mapping.Confidence)
	assert.Equal(t, "home", mapping.HomeField)
}

// TestRunDiscovery_UnknownSource tests the unknown source error
func TestRunDiscovery_UnknownSource(t *testing.T) {
	setup := setupTestPipeline(t)
	defer setup.cleanup()

	_, err := setup.service.RunDiscovery(context.Background(), "nope", "football", "serie-a")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source")
}
