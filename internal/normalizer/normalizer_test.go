package normalizer

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddslab/odds-intel-service/internal/models"
)

func setupTestSource() models.BookmakerSource {
	return models.BookmakerSource{
		ID:      "bookie-a",
		Name:    "Bookie A",
		BaseURL: "https://api.bookie-a.test/odds",
		Mapping: &models.FieldMapping{
			EventsPath: "data.events",
			HomeField:  "home",
			AwayField:  "away",
			OutcomeFields: map[string]string{
				models.OutcomeHome: "odds1",
				models.OutcomeDraw: "oddsX",
				models.OutcomeAway: "odds2",
			},
		},
		Markets: []string{models.MarketHeadToHead},
	}
}

// TestNormalize_Success tests mapping a payload into quotes
func TestNormalize_Success(t *testing.T) {
	n := New(zerolog.Nop())
	src := setupTestSource()

	payload := []byte(`{
		"data": {
			"events": [
				{"home": "Inter", "away": "AC Milan", "odds1": 2.10, "oddsX": 3.30, "odds2": "3.45"},
				{"home": "Juventus", "away": "Roma", "odds1": 1.80, "oddsX": 3.60, "odds2": 4.40}
			]
		}
	}`)

	quotes, err := n.Normalize(src, payload)

	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, "bookie-a", quotes[0].SourceID)
	assert.Equal(t, models.MarketHeadToHead, quotes[0].Market)
	assert.Equal(t, "Inter", quotes[0].RawHome)
	assert.Equal(t, "AC Milan", quotes[0].RawAway)

	price, ok := quotes[0].Price(models.OutcomeHome)
	require.True(t, ok)
	assert.True(t, price.Equal(decimal.NewFromFloat(2.10)))

	// String-encoded odds are accepted.
	price, ok = quotes[0].Price(models.OutcomeAway)
	require.True(t, ok)
	assert.True(t, price.Equal(decimal.NewFromFloat(3.45)))
}

// TestNormalize_InvalidOddsTreatedAsAbsent tests the per-outcome odds guard
func TestNormalize_InvalidOddsTreatedAsAbsent(t *testing.T) {
	n := New(zerolog.Nop())
	src := setupTestSource()

	payload := []byte(`{
		"data": {
			"events": [
				{"home": "Inter", "away": "AC Milan", "odds1": 0, "oddsX": "n/a", "odds2": 350.0}
			]
		}
	}`)

	quotes, err := n.Normalize(src, payload)

	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Empty(t, quotes[0].Prices)
}

// TestNormalize_MissingNamesSkipsEvent tests events without both names
func TestNormalize_MissingNamesSkipsEvent(t *testing.T) {
	n := New(zerolog.Nop())
	src := setupTestSource()

	payload := []byte(`{
		"data": {
			"events": [
				{"home": "Inter", "odds1": 2.10, "oddsX": 3.30, "odds2": 3.45},
				{"home": "Juventus", "away": "Roma", "odds1": 1.80, "oddsX": 3.60, "odds2": 4.40}
			]
		}
	}`)

	quotes, err := n.Normalize(src, payload)

	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "Juventus", quotes[0].RawHome)
}

// TestNormalize_NoMapping tests that unmapped sources are refused
func TestNormalize_NoMapping(t *testing.T) {
	n := New(zerolog.Nop())
	src := setupTestSource()
	src.Mapping = nil

	_, err := n.Normalize(src, []byte(`{}`))

	assert.ErrorIs(t, err, ErrNoMapping)
}

// TestNormalize_MalformedPayload tests the undecodable body failure
func TestNormalize_MalformedPayload(t *testing.T) {
	n := New(zerolog.Nop())

	_, err := n.Normalize(setupTestSource(), []byte("<html></html>"))

	assert.Error(t, err)
}

// TestNormalize_BadEventsPath tests a mapping pointing nowhere
func TestNormalize_BadEventsPath(t *testing.T) {
	n := New(zerolog.Nop())
	src := setupTestSource()
	src.Mapping.EventsPath = "data.missing"

	_, err := n.Normalize(src, []byte(`{"data": {"events": []}}`))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "data.missing")
}

// TestNormalize_ExtraMarketMappings tests additional market mappings
func TestNormalize_ExtraMarketMappings(t *testing.T) {
	n := New(zerolog.Nop())
	src := setupTestSource()
	src.MarketMappings = map[string]models.FieldMapping{
		models.MarketOverUnder: {
			EventsPath: "data.events",
			HomeField:  "home",
			AwayField:  "away",
			OutcomeFields: map[string]string{
				"over_2.5":  "over",
				"under_2.5": "under",
			},
		},
	}

	payload := []byte(`{
		"data": {
			"events": [
				{"home": "Inter", "away": "AC Milan", "odds1": 2.10, "oddsX": 3.30, "odds2": 3.45, "over": 1.95, "under": 1.85}
			]
		}
	}`)

	quotes, err := n.Normalize(src, payload)

	require.NoError(t, err)
	require.Len(t, quotes, 2)

	markets := []string{quotes[0].Market, quotes[1].Market}
	assert.Contains(t, markets, models.MarketHeadToHead)
	assert.Contains(t, markets, models.MarketOverUnder)
}

// TestNormalize_NestedOutcomeFields tests dot-path outcome fields
func TestNormalize_NestedOutcomeFields(t *testing.T) {
	n := New(zerolog.Nop())
	src := setupTestSource()
	src.Mapping.OutcomeFields = map[string]string{
		models.OutcomeHome: "prices.win1",
		models.OutcomeDraw: "prices.winx",
		models.OutcomeAway: "prices.win2",
	}

	payload := []byte(`{
		"data": {
			"events": [
				{"home": "Ajax", "away": "PSV", "prices": {"win1": 2.60, "winx": 3.40, "win2": 2.55}}
			]
		}
	}`)

	quotes, err := n.Normalize(src, payload)

	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Len(t, quotes[0].Prices, 3)
}
