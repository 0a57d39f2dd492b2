package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 72.0, cfg.Hotspots.TimeWindowHours)
	assert.Equal(t, 400.0, cfg.Hotspots.EpsMeters)
	assert.Equal(t, 3, cfg.Hotspots.MinPoints)
	assert.Equal(t, 10, cfg.Enrichment.ChunkSize)
}

func TestEnrichmentGenerators_PrimaryFirst(t *testing.T) {
	cfg := DefaultConfig().Enrichment
	cfg.OpenAI.APIKey = "sk-primary"
	cfg.Alternates = []GeneratorConfig{{Name: "local", BaseURL: "http://localhost:11434/v1", Model: "llama3"}}

	generators := cfg.Generators()
	assert.Len(t, generators, 2)
	assert.Equal(t, "openai", generators[0].Name)
	assert.Equal(t, "sk-primary", generators[0].APIKey)
	assert.Equal(t, "local", generators[1].Name)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Hotspots.EpsMeters = 0
	cfg.Hotspots.MinPoints = -1
	cfg.Hotspots.SeverityMode = "loud"
	cfg.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Kafka.Topic = ""

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "eps_meters")
	assert.Contains(t, err.Error(), "min_points")
	assert.Contains(t, err.Error(), "severity_mode")
	assert.Contains(t, err.Error(), "kafka.topic")
}
