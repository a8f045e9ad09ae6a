package config

import (
	"fmt"
	"math"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all tunables. Everything comes from environment variables;
// scoring weights and badge thresholds are configuration, not code.
type Config struct {
	Env        string `env:"APP_ENV" env-default:"development"`
	ListenAddr string `env:"LISTEN_ADDR" env-default:":8080"`
	AdminToken string `env:"ADMIN_TOKEN"`

	Database  DatabaseConfig
	Scoring   ScoringConfig
	ROI       ROIConfig
	Detection DetectionConfig
	Publisher PublisherConfig
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL"`
	MaxConns        int32         `env:"DB_MAX_CONNS" env-default:"10"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" env-default:"1h"`
}

// ScoringConfig holds the accountability score tunables.
type ScoringConfig struct {
	FreshnessWindow time.Duration `env:"SCORE_FRESHNESS_WINDOW" env-default:"24h"`
	PreviewCooldown time.Duration `env:"SCORE_PREVIEW_COOLDOWN" env-default:"336h"` // 14 days
	BatchWorkers    int           `env:"SCORE_BATCH_WORKERS" env-default:"4"`

	WeightCompletion    float64 `env:"SCORE_WEIGHT_COMPLETION" env-default:"0.35"`
	WeightDelivery      float64 `env:"SCORE_WEIGHT_DELIVERY" env-default:"0.20"`
	WeightCommunity     float64 `env:"SCORE_WEIGHT_COMMUNITY" env-default:"0.15"`
	WeightEfficiency    float64 `env:"SCORE_WEIGHT_EFFICIENCY" env-default:"0.15"`
	WeightCommunication float64 `env:"SCORE_WEIGHT_COMMUNICATION" env-default:"0.15"`

	BadgeTrustedMin  int `env:"BADGE_TRUSTED_MIN" env-default:"80"`
	BadgeReliableMin int `env:"BADGE_RELIABLE_MIN" env-default:"60"`
	BadgeUnprovenMin int `env:"BADGE_UNPROVEN_MIN" env-default:"40"`
}

// ROIConfig holds the project ROI tunables.
type ROIConfig struct {
	BatchLimit         int     `env:"ROI_BATCH_LIMIT" env-default:"100"`
	WeightGithub       float64 `env:"ROI_WEIGHT_GITHUB" env-default:"0.30"`
	WeightDeliverables float64 `env:"ROI_WEIGHT_DELIVERABLES" env-default:"0.30"`
	WeightOnchain      float64 `env:"ROI_WEIGHT_ONCHAIN" env-default:"0.25"`
	WeightCommunity    float64 `env:"ROI_WEIGHT_COMMUNITY" env-default:"0.15"`
	FundingBaseline    float64 `env:"ROI_FUNDING_BASELINE" env-default:"10000"`
}

// DetectionConfig holds the flag detector tunables.
type DetectionConfig struct {
	GhostDays           int     `env:"DETECT_GHOST_DAYS" env-default:"90"`
	OverdueDays         int     `env:"DETECT_OVERDUE_DAYS" env-default:"30"`
	ClusterMinFunds     int     `env:"DETECT_CLUSTER_MIN_FUNDS" env-default:"3"`
	SimilarityThreshold float64 `env:"DETECT_SIMILARITY_THRESHOLD" env-default:"0.76"`
	SimilarityGroupCap  int     `env:"DETECT_SIMILARITY_GROUP_CAP" env-default:"50"`
}

// PublisherConfig controls the background publish sweep.
type PublisherConfig struct {
	Enabled  bool          `env:"PUBLISH_SWEEP_ENABLED" env-default:"false"`
	Interval time.Duration `env:"PUBLISH_SWEEP_INTERVAL" env-default:"1h"`
}

func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	sum := c.Scoring.WeightCompletion + c.Scoring.WeightDelivery +
		c.Scoring.WeightCommunity + c.Scoring.WeightEfficiency +
		c.Scoring.WeightCommunication
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("score weights must sum to 1, got %v", sum)
	}
	if c.Scoring.BadgeTrustedMin <= c.Scoring.BadgeReliableMin ||
		c.Scoring.BadgeReliableMin <= c.Scoring.BadgeUnprovenMin {
		return fmt.Errorf("badge thresholds must be strictly descending")
	}
	if c.Scoring.BatchWorkers < 1 {
		return fmt.Errorf("SCORE_BATCH_WORKERS must be at least 1")
	}
	if c.ROI.BatchLimit < 1 {
		return fmt.Errorf("ROI_BATCH_LIMIT must be at least 1")
	}
	return nil
}
