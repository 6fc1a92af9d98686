package normalizer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/oddslab/odds-intel-service/internal/models"
	"github.com/oddslab/odds-intel-service/pkg/discovery"
)

// ErrNoMapping is returned for sources without a configured field mapping.
// Production traffic never falls back to discovery silently; discovery runs
// only in the explicit discovery mode.
var ErrNoMapping = fmt.Errorf("source has no configured field mapping")

// Normalizer converts raw source payloads into canonical quotes using each
// source's configured field mapping.
type Normalizer struct {
	logger zerolog.Logger
}

// New creates a normalizer.
func New(logger zerolog.Logger) *Normalizer {
	return &Normalizer{logger: logger.With().Str("component", "normalizer").Logger()}
}

// Normalize decodes a source payload and produces its quotes, grouped later
// by market key. Individual invalid prices are dropped, not errors; an
// undecodable body or missing event array fails the whole payload.
func (n *Normalizer) Normalize(src models.BookmakerSource, payload []byte) ([]models.Quote, error) {
	if src.Mapping == nil {
		return nil, fmt.Errorf("source %s: %w", src.ID, ErrNoMapping)
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("source %s payload undecodable: %w", src.ID, err)
	}

	now := time.Now().UTC()
	var quotes []models.Quote

	mapped, err := n.applyMapping(src, doc, models.MarketHeadToHead, *src.Mapping, now)
	if err != nil {
		return nil, err
	}
	quotes = append(quotes, mapped...)

	// Additional configured markets, in deterministic order.
	extraMarkets := make([]string, 0, len(src.MarketMappings))
	for market := range src.MarketMappings {
		extraMarkets = append(extraMarkets, market)
	}
	sort.Strings(extraMarkets)
	for _, market := range extraMarkets {
		mapped, err := n.applyMapping(src, doc, market, src.MarketMappings[market], now)
		if err != nil {
			n.logger.Warn().
				Err(err).
				Str("source_id", src.ID).
				Str("market", market).
				Msg("skipping market mapping")
			continue
		}
		quotes = append(quotes, mapped...)
	}

	return quotes, nil
}

func (n *Normalizer) applyMapping(src models.BookmakerSource, doc any, market string, mapping models.FieldMapping, now time.Time) ([]models.Quote, error) {
	eventsNode, ok := discovery.LookupPath(doc, mapping.EventsPath)
	if !ok {
		return nil, fmt.Errorf("source %s: events path %q not found", src.ID, mapping.EventsPath)
	}
	events, ok := eventsNode.([]any)
	if !ok {
		return nil, fmt.Errorf("source %s: events path %q is not an array", src.ID, mapping.EventsPath)
	}

	quotes := make([]models.Quote, 0, len(events))
	skipped := 0
	for _, elem := range events {
		obj, ok := elem.(map[string]any)
		if !ok {
			skipped++
			continue
		}

		home := stringField(obj, mapping.HomeField)
		away := stringField(obj, mapping.AwayField)
		if home == "" || away == "" {
			skipped++
			continue
		}

		prices := make(map[string]decimal.Decimal)
		for outcome, field := range mapping.OutcomeFields {
			price, ok := priceField(obj, field)
			if !ok {
				// Non-numeric or out-of-range: the outcome is absent,
				// never zero or negative downstream.
				continue
			}
			prices[outcome] = price
		}

		quotes = append(quotes, models.Quote{
			ID:        uuid.New(),
			SourceID:  src.ID,
			Market:    market,
			Prices:    prices,
			RawHome:   home,
			RawAway:   away,
			FetchedAt: now,
		})
	}

	if skipped > 0 {
		n.logger.Debug().
			Str("source_id", src.ID).
			Str("market", market).
			Int("skipped", skipped).
			Msg("skipped events without both participant names")
	}
	return quotes, nil
}

func stringField(obj map[string]any, field string) string {
	v, ok := discovery.LookupPath(obj, field)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// priceField extracts a decimal price, accepting JSON numbers and numeric
// strings, and enforces the valid odds range.
func priceField(obj map[string]any, field string) (decimal.Decimal, bool) {
	v, ok := discovery.LookupPath(obj, field)
	if !ok {
		return decimal.Decimal{}, false
	}

	var raw string
	switch val := v.(type) {
	case json.Number:
		raw = val.String()
	case string:
		raw = val
	default:
		return decimal.Decimal{}, false
	}

	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if !models.ValidOdds(price) {
		return decimal.Decimal{}, false
	}
	return price, true
}
