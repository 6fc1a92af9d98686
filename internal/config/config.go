package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/oddslab/odds-intel-service/internal/models"
)

// Config holds all configuration for odds-intel-service
type Config struct {
	Server      ServerConfig
	Kafka       KafkaConfig
	Redis       RedisConfig
	Provider    ProviderConfig
	Aggregation AggregationConfig
	Sources     []SourceConfig
	Ranking     []PolicyConfig
	Aliases     []AliasConfig
	Logging     LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers     []string
	ReportTopic string // Topic the per-run aggregation report is published to
}

// RedisConfig holds Redis configuration for the fixture cache
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// ProviderConfig holds the authoritative fixtures provider configuration
type ProviderConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// AggregationConfig holds aggregation cycle parameters
type AggregationConfig struct {
	PerSourceTimeout time.Duration       // Budget for one bookmaker fetch
	MinTeamFixtures  int                 // Below this, the cached history backfills
	SiblingLeagues   map[string][]string // League -> same-family fallback leagues
}

// SourceConfig holds one bookmaker source definition
type SourceConfig struct {
	ID              string
	Name            string
	BaseURL         string
	APIKey          string
	Markets         []string
	ReportsReversed bool
	Mapping         *MappingConfig
	MarketMappings  map[string]MappingConfig
}

// MappingConfig holds one payload field mapping
type MappingConfig struct {
	EventsPath string
	HomeField  string
	AwayField  string
	Outcomes   map[string]string
}

// PolicyConfig holds one per-bookmaker ranking policy
type PolicyConfig struct {
	SourceID string
	Priority *int    // Lower wins; nil means no override
	Class    string  // revenue_share, cpa, cpl
	Value    float64 // Remuneration value within class
}

// AliasConfig holds one canonical team name with its variants
type AliasConfig struct {
	Canonical string
	Variants  []string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 8082)
	v.SetDefault("server.readtimeout", 30*time.Second)
	v.SetDefault("server.writetimeout", 30*time.Second)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.reporttopic", "aggregation_reports")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("provider.baseurl", "http://localhost:8090")
	v.SetDefault("provider.timeout", 10*time.Second)

	v.SetDefault("aggregation.persourcetimeout", 5*time.Second)
	v.SetDefault("aggregation.minteamfixtures", 3)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Read config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Override with environment variables
	v.SetEnvPrefix("ODDS_INTEL")
	v.AutomaticEnv()
	// Replace . with _ for environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Unmarshal to struct
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	seen := make(map[string]bool, len(c.Sources))
	for _, src := range c.Sources {
		if src.ID == "" {
			return fmt.Errorf("source with empty id")
		}
		if seen[src.ID] {
			return fmt.Errorf("duplicate source id %s", src.ID)
		}
		seen[src.ID] = true
	}
	for _, p := range c.Ranking {
		switch models.RemunerationClass(p.Class) {
		case models.ClassRevenueShare, models.ClassCostPerAcquisition, models.ClassCostPerLead:
		default:
			return fmt.Errorf("unknown remuneration class %q for source %s", p.Class, p.SourceID)
		}
	}
	return nil
}

// ToBookmakerSources converts the source definitions to model form
func (c *Config) ToBookmakerSources() []models.BookmakerSource {
	sources := make([]models.BookmakerSource, 0, len(c.Sources))
	for _, s := range c.Sources {
		src := models.BookmakerSource{
			ID:              s.ID,
			Name:            s.Name,
			BaseURL:         s.BaseURL,
			APIKey:          s.APIKey,
			Markets:         s.Markets,
			ReportsReversed: s.ReportsReversed,
			Mapping:         s.Mapping.toFieldMapping(),
		}
		if len(s.MarketMappings) > 0 {
			src.MarketMappings = make(map[string]models.FieldMapping, len(s.MarketMappings))
			for market, m := range s.MarketMappings {
				src.MarketMappings[market] = *m.toFieldMapping()
			}
		}
		sources = append(sources, src)
	}
	return sources
}

func (m *MappingConfig) toFieldMapping() *models.FieldMapping {
	if m == nil {
		return nil
	}
	return &models.FieldMapping{
		EventsPath:    m.EventsPath,
		HomeField:     m.HomeField,
		AwayField:     m.AwayField,
		OutcomeFields: m.Outcomes,
	}
}

// ToRankingPolicies converts the policy definitions to model form
func (c *Config) ToRankingPolicies() []models.RankingPolicy {
	policies := make([]models.RankingPolicy, 0, len(c.Ranking))
	for _, p := range c.Ranking {
		policies = append(policies, models.RankingPolicy{
			SourceID:         p.SourceID,
			PriorityOverride: p.Priority,
			Class:            models.RemunerationClass(p.Class),
			Value:            decimal.NewFromFloat(p.Value),
		})
	}
	return policies
}

// ToAliasEntries converts the alias definitions to model form
func (c *Config) ToAliasEntries() []models.AliasEntry {
	entries := make([]models.AliasEntry, 0, len(c.Aliases))
	for _, a := range c.Aliases {
		entries = append(entries, models.AliasEntry{
			Canonical: a.Canonical,
			Variants:  a.Variants,
		})
	}
	return entries
}
