package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 4, cfg.Scoring.BatchWorkers)
	assert.Equal(t, 80, cfg.Scoring.BadgeTrustedMin)
	assert.Equal(t, 100, cfg.ROI.BatchLimit)
	assert.Equal(t, 0.76, cfg.Detection.SimilarityThreshold)
	assert.False(t, cfg.Publisher.Enabled)
}

func TestValidateWeights(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Scoring.WeightCompletion = 0.5
	assert.Error(t, cfg.Validate())
}

func TestValidateBadgeThresholds(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Scoring.BadgeReliableMin = cfg.Scoring.BadgeTrustedMin
	assert.Error(t, cfg.Validate())
}

func TestValidateBounds(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Scoring.BatchWorkers = 0
	assert.Error(t, cfg.Validate())

	cfg, _ = Load()
	cfg.ROI.BatchLimit = 0
	assert.Error(t, cfg.Validate())
}
