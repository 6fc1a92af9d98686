package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/oddslab/odds-intel-service/internal/models"
)

// ReportPublisher writes one AggregationReport per run to Kafka, where the
// administrative review screen consumes unmatched quotes, alias suggestions
// and per-source errors.
type ReportPublisher struct {
	writer *kafka.Writer
	logger zerolog.Logger
}

// ReportPublisherConfig holds Kafka publisher configuration
type ReportPublisherConfig struct {
	Brokers []string // e.g., ["localhost:9092"]
	Topic   string   // e.g., "aggregation_reports"
}

// NewReportPublisher creates a Kafka report publisher.
func NewReportPublisher(config ReportPublisherConfig, logger zerolog.Logger) *ReportPublisher {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(config.Brokers...),
		Topic:    config.Topic,
		Balancer: &kafka.LeastBytes{},
	}

	return &ReportPublisher{
		writer: writer,
		logger: logger.With().Str("component", "report_publisher").Logger(),
	}
}

// Publish writes the aggregation report. Reports are operational review
// data: a publish failure is returned to the caller but must not fail the
// aggregation cycle itself.
func (p *ReportPublisher) Publish(ctx context.Context, report *models.AggregationReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(report.ID.String()),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish report: %w", err)
	}

	p.logger.Info().
		Str("report_id", report.ID.String()).
		Str("sport", report.Sport).
		Int("source_errors", len(report.SourceErrors)).
		Int("unmatched", len(report.Unmatched)).
		Int("alias_suggestions", len(report.AliasSuggestions)).
		Msg("published aggregation report")

	return nil
}

// Close closes the Kafka writer.
func (p *ReportPublisher) Close() error {
	return p.writer.Close()
}
