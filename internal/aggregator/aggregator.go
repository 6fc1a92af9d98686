package aggregator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/oddslab/odds-intel-service/internal/matching"
	"github.com/oddslab/odds-intel-service/internal/models"
	"github.com/oddslab/odds-intel-service/internal/normalizer"
	"github.com/oddslab/odds-intel-service/internal/source"
)

// ErrNoSources indicates total configuration absence. It is the only fatal
// error inside an aggregation cycle: it means a deployment defect, not a
// data issue.
var ErrNoSources = errors.New("no bookmaker sources configured")

var (
	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odds_intel_source_fetches_total",
		Help: "Bookmaker source fetches by result.",
	}, []string{"source", "status"})

	cyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "odds_intel_aggregation_cycles_total",
		Help: "Completed aggregation cycles.",
	})
)

// Result is one aggregation cycle's output.
type Result struct {
	// Markets maps market key to every source's normalized quotes for it.
	Markets map[string][]models.Quote
	// MatchResults cross-references quotes to fixtures when fixtures were
	// supplied.
	MatchResults []models.MatchResult
	Unmatched    []models.UnmatchedQuote
	SourceErrors []models.SourceError
	// LeagueSubstituted names the sibling league whose result set replaced
	// an empty primary league, or is empty.
	LeagueSubstituted string
}

// Aggregator fans out to all configured sources concurrently and collects
// their normalized, matched quotes per market.
type Aggregator struct {
	fetcher          source.Fetcher
	normalizer       *normalizer.Normalizer
	matcher          *matching.Matcher
	sources          []models.BookmakerSource
	perSourceTimeout time.Duration
	siblingLeagues   map[string][]string // league -> sibling league keys of the same family
	logger           zerolog.Logger
}

// New creates an aggregator over the configured sources.
func New(
	fetcher source.Fetcher,
	norm *normalizer.Normalizer,
	matcher *matching.Matcher,
	sources []models.BookmakerSource,
	perSourceTimeout time.Duration,
	siblingLeagues map[string][]string,
	logger zerolog.Logger,
) *Aggregator {
	return &Aggregator{
		fetcher:          fetcher,
		normalizer:       norm,
		matcher:          matcher,
		sources:          sources,
		perSourceTimeout: perSourceTimeout,
		siblingLeagues:   siblingLeagues,
		logger:           logger.With().Str("component", "aggregator").Logger(),
	}
}

// Aggregate runs one cycle for a sport/league. Every source is fetched
// concurrently under its own timeout; no source's failure aborts the others.
// When fixtures are supplied each quote is matched against them.
func (a *Aggregator) Aggregate(ctx context.Context, sport, league string, fixtures []models.CanonicalFixture) (*Result, error) {
	if len(a.sources) == 0 {
		return nil, ErrNoSources
	}
	defer cyclesTotal.Inc()

	quotes, sourceErrors := a.fetchAll(ctx, sport, league)

	substituted := ""
	if len(quotes) == 0 && league != "" {
		// A league with no events at all may have siblings in the same
		// federation family. The sibling's result set is substituted
		// wholesale; results from two leagues are never merged.
		for _, sibling := range a.siblingLeagues[league] {
			sibQuotes, sibErrors := a.fetchAll(ctx, sport, sibling)
			if len(sibQuotes) > 0 {
				a.logger.Info().
					Str("league", league).
					Str("sibling", sibling).
					Int("quotes", len(sibQuotes)).
					Msg("substituted sibling league results")
				quotes, sourceErrors = sibQuotes, sibErrors
				substituted = sibling
				break
			}
		}
	}

	result := &Result{
		Markets:           make(map[string][]models.Quote),
		SourceErrors:      sourceErrors,
		LeagueSubstituted: substituted,
	}

	if len(fixtures) > 0 {
		allowReversed := make(map[string]bool, len(a.sources))
		for _, src := range a.sources {
			allowReversed[src.ID] = src.ReportsReversed
		}
		for _, q := range quotes {
			res := a.matcher.MatchFixture(q, fixtures, allowReversed[q.SourceID])
			result.MatchResults = append(result.MatchResults, res)
			if res.Unmatched != nil {
				result.Unmatched = append(result.Unmatched, *res.Unmatched)
			}
		}
	}

	for _, q := range quotes {
		result.Markets[q.Market] = append(result.Markets[q.Market], q)
	}
	return result, nil
}

// fetchAll fans out one fetch per source and waits for all of them to
// settle. Each goroutine writes its own slot; results merge only after the
// wait, so there is no shared mutable state to lock.
func (a *Aggregator) fetchAll(ctx context.Context, sport, league string) ([]models.Quote, []models.SourceError) {
	type outcome struct {
		quotes []models.Quote
		err    *models.SourceError
	}

	outcomes := make([]outcome, len(a.sources))
	var wg sync.WaitGroup
	for i := range a.sources {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			quotes, srcErr := a.fetchOne(ctx, a.sources[i], sport, league)
			outcomes[i] = outcome{quotes: quotes, err: srcErr}
		}(i)
	}
	wg.Wait()

	var quotes []models.Quote
	var sourceErrors []models.SourceError
	for _, o := range outcomes {
		quotes = append(quotes, o.quotes...)
		if o.err != nil {
			sourceErrors = append(sourceErrors, *o.err)
		}
	}
	return quotes, sourceErrors
}

// fetchOne fetches and normalizes a single source under its own timeout.
// Failures are recorded, never propagated: the source simply contributes no
// quotes this cycle.
func (a *Aggregator) fetchOne(ctx context.Context, src models.BookmakerSource, sport, league string) ([]models.Quote, *models.SourceError) {
	fetchCtx, cancel := context.WithTimeout(ctx, a.perSourceTimeout)
	defer cancel()

	payload, err := a.fetcher.Fetch(fetchCtx, src, sport, league)
	if err != nil {
		fetchesTotal.WithLabelValues(src.ID, "unavailable").Inc()
		a.logger.Warn().Err(err).Str("source_id", src.ID).Msg("source unavailable")
		return nil, &models.SourceError{
			SourceID: src.ID,
			Kind:     models.ErrKindSourceUnavailable,
			Message:  err.Error(),
		}
	}

	quotes, err := a.normalizer.Normalize(src, payload)
	if err != nil {
		fetchesTotal.WithLabelValues(src.ID, "malformed").Inc()
		a.logger.Warn().Err(err).Str("source_id", src.ID).Msg("malformed payload")
		return nil, &models.SourceError{
			SourceID: src.ID,
			Kind:     models.ErrKindMalformedPayload,
			Message:  err.Error(),
		}
	}

	fetchesTotal.WithLabelValues(src.ID, "ok").Inc()
	return filterMarkets(quotes, src.Markets), nil
}

// filterMarkets keeps only quotes for the source's active markets. An empty
// list means all markets are active.
func filterMarkets(quotes []models.Quote, markets []string) []models.Quote {
	if len(markets) == 0 {
		return quotes
	}
	active := make(map[string]bool, len(markets))
	for _, m := range markets {
		active[m] = true
	}
	filtered := quotes[:0]
	for _, q := range quotes {
		if active[q.Market] {
			filtered = append(filtered, q)
		}
	}
	return filtered
}
