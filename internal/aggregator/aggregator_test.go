package aggregator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddslab/odds-intel-service/internal/alias"
	"github.com/oddslab/odds-intel-service/internal/matching"
	"github.com/oddslab/odds-intel-service/internal/models"
	"github.com/oddslab/odds-intel-service/internal/normalizer"
)

// stubFetcher serves canned payloads per source and league
type stubFetcher struct {
	payloads map[string][]byte // "sourceID/league" -> body
	errs     map[string]error  // sourceID -> error
	delays   map[string]time.Duration
}

func (f *stubFetcher) Fetch(ctx context.Context, src models.BookmakerSource, sport, league string) ([]byte, error) {
	if d, ok := f.delays[src.ID]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := f.errs[src.ID]; ok {
		return nil, err
	}
	if body, ok := f.payloads[src.ID+"/"+league]; ok {
		return body, nil
	}
	return []byte(`{"events": []}`), nil
}

func testMapping() *models.FieldMapping {
	return &models.FieldMapping{
		EventsPath: "events",
		HomeField:  "home",
		AwayField:  "away",
		OutcomeFields: map[string]string{
			models.OutcomeHome: "odds1",
			models.OutcomeDraw: "oddsX",
			models.OutcomeAway: "odds2",
		},
	}
}

func testSources() []models.BookmakerSource {
	return []models.BookmakerSource{
		{ID: "bookie-a", Name: "Bookie A", Mapping: testMapping()},
		{ID: "bookie-b", Name: "Bookie B", Mapping: testMapping()},
	}
}

func eventsPayload(home, away string) []byte {
	return []byte(fmt.Sprintf(
		`{"events": [{"home": %q, "away": %q, "odds1": 2.10, "oddsX": 3.30, "odds2": 3.45}]}`,
		home, away,
	))
}

// testAggregatorSetup is a helper struct to hold test dependencies
type testAggregatorSetup struct {
	fetcher *stubFetcher
	sources []models.BookmakerSource
}

func (s *testAggregatorSetup) build(timeout time.Duration, siblings map[string][]string) *Aggregator {
	registry := alias.NewRegistry([]models.AliasEntry{
		{Canonical: "Inter", Variants: []string{"FC Internazionale"}},
		{Canonical: "AC Milan", Variants: []string{"Milan"}},
	})
	return New(
		s.fetcher,
		normalizer.New(zerolog.Nop()),
		matching.NewMatcher(registry, zerolog.Nop()),
		s.sources,
		timeout,
		siblings,
		zerolog.Nop(),
	)
}

func setupTestAggregator() *testAggregatorSetup {
	return &testAggregatorSetup{
		fetcher: &stubFetcher{
			payloads: map[string][]byte{
				"bookie-a/serie-a": eventsPayload("Inter", "AC Milan"),
				"bookie-b/serie-a": eventsPayload("FC Internazionale", "Milan"),
			},
			errs:   map[string]error{},
			delays: map[string]time.Duration{},
		},
		sources: testSources(),
	}
}

// TestAggregate_CollectsAllSources tests the happy path across sources
func TestAggregate_CollectsAllSources(t *testing.T) {
	setup := setupTestAggregator()
	agg := setup.build(time.Second, nil)

	result, err := agg.Aggregate(context.Background(), "football", "serie-a", nil)

	require.NoError(t, err)
	assert.Empty(t, result.SourceErrors)
	require.Len(t, result.Markets[models.MarketHeadToHead], 2)
	assert.Equal(t, "bookie-a", result.Markets[models.MarketHeadToHead][0].SourceID)
	assert.Equal(t, "bookie-b", result.Markets[models.MarketHeadToHead][1].SourceID)
}

// TestAggregate_TimeoutDoesNotAbortSiblings tests that a hanging source only
// loses its own quotes
func TestAggregate_TimeoutDoesNotAbortSiblings(t *testing.T) {
	setup := setupTestAggregator()
	setup.fetcher.delays["bookie-a"] = 500 * time.Millisecond
	agg := setup.build(50*time.Millisecond, nil)

	result, err := agg.Aggregate(context.Background(), "football", "serie-a", nil)

	require.NoError(t, err)
	require.Len(t, result.SourceErrors, 1)
	assert.Equal(t, "bookie-a", result.SourceErrors[0].SourceID)
	assert.Equal(t, models.ErrKindSourceUnavailable, result.SourceErrors[0].Kind)

	quotes := result.Markets[models.MarketHeadToHead]
	require.Len(t, quotes, 1)
	assert.Equal(t, "bookie-b", quotes[0].SourceID)
}

// TestAggregate_MalformedPayloadRecorded tests the malformed-body taxonomy
func TestAggregate_MalformedPayloadRecorded(t *testing.T) {
	setup := setupTestAggregator()
	setup.fetcher.payloads["bookie-a/serie-a"] = []byte("<html>down</html>")
	agg := setup.build(time.Second, nil)

	result, err := agg.Aggregate(context.Background(), "football", "serie-a", nil)

	require.NoError(t, err)
	require.Len(t, result.SourceErrors, 1)
	assert.Equal(t, models.ErrKindMalformedPayload, result.SourceErrors[0].Kind)
	assert.Len(t, result.Markets[models.MarketHeadToHead], 1)
}

// TestAggregate_SiblingLeagueSubstitution tests the wholesale fallback
func TestAggregate_SiblingLeagueSubstitution(t *testing.T) {
	setup := setupTestAggregator()
	siblings := map[string][]string{"serie-b": {"serie-c", "serie-a"}}
	agg := setup.build(time.Second, siblings)

	result, err := agg.Aggregate(context.Background(), "football", "serie-b", nil)

	require.NoError(t, err)
	assert.Equal(t, "serie-a", result.LeagueSubstituted)
	assert.Len(t, result.Markets[models.MarketHeadToHead], 2)
}

// TestAggregate_NoSiblingDataStaysEmpty tests that substitution never
// invents quotes
func TestAggregate_NoSiblingDataStaysEmpty(t *testing.T) {
	setup := setupTestAggregator()
	agg := setup.build(time.Second, map[string][]string{"serie-b": {"serie-c"}})

	result, err := agg.Aggregate(context.Background(), "football", "serie-b", nil)

	require.NoError(t, err)
	assert.Empty(t, result.LeagueSubstituted)
	assert.Empty(t, result.Markets)
}

// TestAggregate_FixtureMatching tests quote-to-fixture cross-referencing
func TestAggregate_FixtureMatching(t *testing.T) {
	setup := setupTestAggregator()
	setup.fetcher.payloads["bookie-b/serie-a"] = eventsPayload("Nowhere FC", "Milan")
	agg := setup.build(time.Second, nil)

	fixtures := []models.CanonicalFixture{
		{ExternalID: "fx-1", HomeTeam: "Inter", AwayTeam: "AC Milan", League: "serie-a"},
	}

	result, err := agg.Aggregate(context.Background(), "football", "serie-a", fixtures)

	require.NoError(t, err)
	require.Len(t, result.MatchResults, 2)

	matched := 0
	for _, mr := range result.MatchResults {
		if mr.Matched() {
			matched++
			assert.Equal(t, "fx-1", mr.Fixture.ExternalID)
		}
	}
	assert.Equal(t, 1, matched)
	require.Len(t, result.Unmatched, 1)
	assert.Equal(t, "Nowhere FC", result.Unmatched[0].RawHome)
}

// TestAggregate_NoSourcesConfigured tests the single fatal error path
func TestAggregate_NoSourcesConfigured(t *testing.T) {
	setup := setupTestAggregator()
	setup.sources = nil
	agg := setup.build(time.Second, nil)

	_, err := agg.Aggregate(context.Background(), "football", "serie-a", nil)

	assert.ErrorIs(t, err, ErrNoSources)
}

// TestAggregate_ActiveMarketFilter tests that inactive markets are dropped
func TestAggregate_ActiveMarketFilter(t *testing.T) {
	setup := setupTestAggregator()
	setup.sources[0].Markets = []string{models.MarketOverUnder}
	agg := setup.build(time.Second, nil)

	result, err := agg.Aggregate(context.Background(), "football", "serie-a", nil)

	require.NoError(t, err)
	// bookie-a only has the head-to-head mapping, which is not active.
	quotes := result.Markets[models.MarketHeadToHead]
	require.Len(t, quotes, 1)
	assert.Equal(t, "bookie-b", quotes[0].SourceID)
}
