package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/oddslab/odds-intel-service/internal/models"
)

// FixturesProvider is the read-only authoritative fixtures source.
type FixturesProvider interface {
	FixturesByLeague(ctx context.Context, league string, date time.Time) ([]models.CanonicalFixture, []models.FixturePrediction, error)
}

// LiveScoreReader exposes the externally maintained live-score store. This
// core never polls or writes scores; it only reads current state per fixture.
type LiveScoreReader interface {
	Score(ctx context.Context, fixtureID string) (*models.LiveScore, error)
}

// FixturesClient fetches fixtures and predictions from the sports-data
// provider.
type FixturesClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewFixturesClient creates a fixtures provider client.
func NewFixturesClient(baseURL, apiKey string, timeout time.Duration) *FixturesClient {
	return &FixturesClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

type fixtureDTO struct {
	ID          string    `json:"id"`
	HomeTeam    string    `json:"home_team"`
	AwayTeam    string    `json:"away_team"`
	League      string    `json:"league"`
	Kickoff     time.Time `json:"kickoff"`
	Predictions *struct {
		HomePercent string          `json:"home_percent"`
		DrawPercent string          `json:"draw_percent"`
		AwayPercent string          `json:"away_percent"`
		Goals       json.RawMessage `json:"goals"`
	} `json:"predictions,omitempty"`
}

type fixturesResponse struct {
	Fixtures []fixtureDTO `json:"fixtures"`
}

// FixturesByLeague returns the canonical fixtures for a league and date,
// together with the provider's raw prediction values.
func (c *FixturesClient) FixturesByLeague(ctx context.Context, league string, date time.Time) ([]models.CanonicalFixture, []models.FixturePrediction, error) {
	query := url.Values{}
	query.Set("league", league)
	query.Set("date", date.Format("2006-01-02"))
	endpoint := fmt.Sprintf("%s/fixtures?%s", c.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("creating fixtures request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching fixtures: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("fixtures provider returned status %d", resp.StatusCode)
	}

	var body fixturesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, nil, fmt.Errorf("decoding fixtures response: %w", err)
	}

	fixtures := make([]models.CanonicalFixture, 0, len(body.Fixtures))
	var predictions []models.FixturePrediction
	for _, dto := range body.Fixtures {
		fixtures = append(fixtures, models.CanonicalFixture{
			ExternalID: dto.ID,
			HomeTeam:   dto.HomeTeam,
			AwayTeam:   dto.AwayTeam,
			League:     dto.League,
			Kickoff:    dto.Kickoff,
		})
		if dto.Predictions != nil {
			predictions = append(predictions, models.FixturePrediction{
				FixtureID:   dto.ID,
				HomePercent: dto.Predictions.HomePercent,
				DrawPercent: dto.Predictions.DrawPercent,
				AwayPercent: dto.Predictions.AwayPercent,
				GoalsRaw:    dto.Predictions.Goals,
			})
		}
	}
	return fixtures, predictions, nil
}

// Score reads the current live state of one fixture from the provider's
// score store. The store itself is maintained elsewhere; this is a read.
func (c *FixturesClient) Score(ctx context.Context, fixtureID string) (*models.LiveScore, error) {
	endpoint := fmt.Sprintf("%s/fixtures/%s/live", c.baseURL, url.PathEscape(fixtureID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating live score request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching live score: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("live score store returned status %d", resp.StatusCode)
	}

	var score models.LiveScore
	if err := json.NewDecoder(resp.Body).Decode(&score); err != nil {
		return nil, fmt.Errorf("decoding live score response: %w", err)
	}
	return &score, nil
}
