// Package signals derives secondary predictive signals from aggregated
// decimal odds: an implied most-likely score and a sanitized under/over
// recommendation. These are deliberately coarse display heuristics, not
// forecast models.
package signals

import "fmt"

// Probability thresholds of the score template.
const (
	dominantThreshold = 0.55 // a side at or above this implied probability is dominant
	drawThreshold     = 0.28 // minimum implied draw probability for a draw template
)

// ScoreEstimate is a coarse score template selected from implied
// probabilities.
type ScoreEstimate struct {
	HomeGoals int `json:"home_goals"`
	AwayGoals int `json:"away_goals"`
}

// ImpliedProbabilities converts a 1/X/2 odds triple to implied probabilities
// with the bookmaker overround removed: each price is inverted and the triple
// renormalized to sum to 1.
func ImpliedProbabilities(homeOdds, drawOdds, awayOdds float64) (home, draw, away float64, err error) {
	for _, o := range []float64{homeOdds, drawOdds, awayOdds} {
		if o <= 1.0 {
			return 0, 0, 0, fmt.Errorf("odds must be greater than 1.0, got %v", o)
		}
	}

	home = 1 / homeOdds
	draw = 1 / drawOdds
	away = 1 / awayOdds
	total := home + draw + away

	return home / total, draw / total, away / total, nil
}

// EstimateScore maps a 1/X/2 odds triple to a score template: a dominant
// side (>=55% implied) gets a two-goal win, a leading but non-dominant side
// a one-goal win, a draw only when its implied probability reaches 28% and
// neither side dominates, and 0-0 as the null default.
func EstimateScore(homeOdds, drawOdds, awayOdds float64) (ScoreEstimate, error) {
	home, draw, away, err := ImpliedProbabilities(homeOdds, drawOdds, awayOdds)
	if err != nil {
		return ScoreEstimate{}, err
	}

	switch {
	case home >= dominantThreshold:
		return ScoreEstimate{HomeGoals: 2, AwayGoals: 1}, nil
	case away >= dominantThreshold:
		return ScoreEstimate{HomeGoals: 1, AwayGoals: 2}, nil
	case draw >= drawThreshold:
		return ScoreEstimate{HomeGoals: 1, AwayGoals: 1}, nil
	case home > away:
		return ScoreEstimate{HomeGoals: 1, AwayGoals: 0}, nil
	case away > home:
		return ScoreEstimate{HomeGoals: 0, AwayGoals: 1}, nil
	default:
		return ScoreEstimate{}, nil
	}
}
