package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/oddslab/odds-intel-service/internal/alias"
	"github.com/oddslab/odds-intel-service/internal/models"
)

// FixtureCache keeps recent valid fixture lists in Redis, keyed per team.
// It serves as a fallback when the fixtures provider returns too few
// fixtures. Writes for the same key are last-writer-wins with a monotonic
// merge: fresh and cached entries are united and deduplicated, so a partial
// fresh result never erases a richer cached history.
type FixtureCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// FixtureCacheConfig holds Redis cache configuration
type FixtureCacheConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewFixtureCache creates a Redis-backed fixture cache.
func NewFixtureCache(config FixtureCacheConfig, logger zerolog.Logger) *FixtureCache {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	return &FixtureCache{
		client: client,
		ttl:    config.TTL,
		logger: logger.With().Str("component", "fixture_cache").Logger(),
	}
}

func teamKey(team string) string {
	return fmt.Sprintf("fixtures:team:%s", alias.Normalize(team))
}

// Get retrieves the cached fixture list for a team. A missing key is not an
// error; it returns an empty list.
func (c *FixtureCache) Get(ctx context.Context, team string) ([]models.CanonicalFixture, error) {
	data, err := c.client.Get(ctx, teamKey(team)).Bytes()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get from Redis: %w", err)
	}

	var fixtures []models.CanonicalFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached fixtures: %w", err)
	}
	return fixtures, nil
}

// Merge unites fresh fixtures for a team with the cached list and writes the
// result back: deduplicated by fixture external id, newest kickoff first,
// fresh entries winning duplicates.
func (c *FixtureCache) Merge(ctx context.Context, team string, fresh []models.CanonicalFixture) error {
	cached, err := c.Get(ctx, team)
	if err != nil {
		// An unreadable cached value is replaced rather than blocking the
		// write.
		c.logger.Warn().Err(err).Str("team", team).Msg("discarding unreadable cached fixture list")
		cached = nil
	}

	merged := MergeFixtureLists(fresh, cached)

	data, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to marshal fixtures: %w", err)
	}
	if err := c.client.Set(ctx, teamKey(team), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in Redis: %w", err)
	}

	c.logger.Debug().
		Str("team", team).
		Int("fresh", len(fresh)).
		Int("cached", len(cached)).
		Int("merged", len(merged)).
		Msg("merged fixture list into cache")

	return nil
}

// StoreAll merges every fixture into both of its team keys.
func (c *FixtureCache) StoreAll(ctx context.Context, fixtures []models.CanonicalFixture) error {
	byTeam := make(map[string][]models.CanonicalFixture)
	for _, f := range fixtures {
		byTeam[f.HomeTeam] = append(byTeam[f.HomeTeam], f)
		byTeam[f.AwayTeam] = append(byTeam[f.AwayTeam], f)
	}

	teams := make([]string, 0, len(byTeam))
	for team := range byTeam {
		teams = append(teams, team)
	}
	sort.Strings(teams)

	for _, team := range teams {
		if err := c.Merge(ctx, team, byTeam[team]); err != nil {
			return err
		}
	}
	return nil
}

// MergeFixtureLists is the monotonic merge rule: fresh ∪ cached, deduplicated
// by external id with fresh winning, ordered newest kickoff first.
func MergeFixtureLists(fresh, cached []models.CanonicalFixture) []models.CanonicalFixture {
	seen := make(map[string]bool, len(fresh)+len(cached))
	merged := make([]models.CanonicalFixture, 0, len(fresh)+len(cached))

	for _, list := range [][]models.CanonicalFixture{fresh, cached} {
		for _, f := range list {
			if seen[f.ExternalID] {
				continue
			}
			seen[f.ExternalID] = true
			merged = append(merged, f)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Kickoff.After(merged[j].Kickoff)
	})
	return merged
}

// Ping checks the Redis connection.
func (c *FixtureCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *FixtureCache) Close() error {
	return c.client.Close()
}
