package service

import (
	"context"

	"github.com/oddslab/odds-intel-service/internal/models"
)

// ReportSink is an interface that abstracts the per-run report delivery
// This allows for easier testing and mocking
type ReportSink interface {
	Publish(ctx context.Context, report *models.AggregationReport) error
}
