package service

import (
	"context"

	"github.com/oddslab/odds-intel-service/internal/models"
)

// FixtureCache is an interface that abstracts the fixture cache
// This allows for easier testing and mocking
type FixtureCache interface {
	Get(ctx context.Context, team string) ([]models.CanonicalFixture, error)
	StoreAll(ctx context.Context, fixtures []models.CanonicalFixture) error
	Ping(ctx context.Context) error
	Close() error
}
