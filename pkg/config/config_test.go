package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	require.NoError(t, err)

	assert.Equal(t, "test", c.Environment)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "trim", c.Classifier.Policy)
	assert.Equal(t, 5, c.Report.SubmissionThreshold)
	assert.Equal(t, 5, c.Report.CommentThreshold)
	assert.Equal(t, []string{"AutoModerator"}, c.Report.Bots)
	assert.Equal(t, 0.5, c.Window.RetentionHours)
	assert.Equal(t, time.Minute, c.Window.Delay)
	assert.Equal(t, "tickerpulse.documents", c.Kafka.Topics.Documents)
}

func TestParseFileOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
environment: prod
classifier:
  policy: word
report:
  submission_threshold: 20
  bots: []
window:
  symbols: [GME, AMC]
  retention_hours: 2
  delay: 15s
  targets:
    GME: 420
`))
	require.NoError(t, err)

	assert.Equal(t, "word", c.Classifier.Policy)
	assert.Equal(t, 20, c.Report.SubmissionThreshold)
	assert.Empty(t, c.Report.Bots)
	assert.Equal(t, []string{"GME", "AMC"}, c.Window.Symbols)
	assert.Equal(t, 2.0, c.Window.RetentionHours)
	assert.Equal(t, 15*time.Second, c.Window.Delay)
	assert.Equal(t, 420.0, c.Window.Targets["GME"])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "unknown policy", yaml: "classifier: {policy: regex}"},
		{name: "negative retention", yaml: "window: {retention_hours: -1}"},
		{name: "kafka without brokers", yaml: "kafka: {enabled: true}"},
		{name: "feed without key", yaml: "feed: {enabled: true}\nwindow: {symbols: [GME]}"},
		{name: "feed without symbols", yaml: "feed: {enabled: true, api_key: k}"},
		{name: "stream without kafka", yaml: "stream: {enabled: true}"},
		{name: "bad port", yaml: "server: {port: 70000}"},
		{name: "not yaml", yaml: "environment: [unterminated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoadWithEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: dev\nkafka:\n  brokers: [a:9092]\n"), 0o600))

	t.Setenv("TICKERPULSE_KAFKA_BROKERS", "b:9092,c:9092")
	t.Setenv("TICKERPULSE_PORT", "9999")
	t.Setenv("TICKERPULSE_WINDOW_SYMBOLS", "TSLA")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"b:9092", "c:9092"}, c.Kafka.Brokers)
	assert.Equal(t, 9999, c.Server.Port)
	assert.Equal(t, []string{"TSLA"}, c.Window.Symbols)
	assert.Equal(t, "dev", c.Environment)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, ErrInvalid)
}
