package models

import "encoding/json"

// FixturePrediction carries the provider's raw prediction values for one
// fixture. GoalsRaw may be a signed numeric threshold or a threshold->label
// map; pkg/signals parses it.
type FixturePrediction struct {
	FixtureID   string          `json:"fixture_id"`
	HomePercent string          `json:"home_percent"`
	DrawPercent string          `json:"draw_percent"`
	AwayPercent string          `json:"away_percent"`
	GoalsRaw    json.RawMessage `json:"goals,omitempty"`
}

// LiveScore is the read-only view of the external live-score store.
type LiveScore struct {
	FixtureID string `json:"fixture_id"`
	Status    string `json:"status"`
	Minute    int    `json:"minute"`
	HomeGoals int    `json:"home_goals"`
	AwayGoals int    `json:"away_goals"`
}
