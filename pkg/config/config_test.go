package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "orchestrator.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadParsesAllSections(t *testing.T) {
	path := writeConfig(t, `
serial:
  roots: ["/dev"]
  globs: ["ttyUSB*"]
bus:
  outbound_topics: ["cmd.v01", "cmd.v02"]
queue:
  default_capacity: 64
  per_device:
    v01: 128
schedule:
  stale_after: "5m"
  prune_every: "30s"
discovery:
  instance_id: "orch-a1"
  port: 8090
log:
  path: "/var/log/orchestrator.sselog"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, []string{"/dev"}, cfg.Serial.Roots)
	require.Equal(t, []string{"ttyUSB*"}, cfg.Serial.Globs)
	require.Equal(t, []string{"cmd.v01", "cmd.v02"}, cfg.Bus.OutboundTopics)
	require.Equal(t, 64, cfg.Queue.DefaultCapacity)
	require.Equal(t, 128, cfg.Queue.PerDevice["v01"])
	require.Equal(t, 5*time.Minute, cfg.Schedule.StaleAfter.Duration())
	require.Equal(t, 30*time.Second, cfg.Schedule.PruneEvery.Duration())
	require.Equal(t, "orch-a1", cfg.Discovery.InstanceID)
	require.Equal(t, uint16(8090), cfg.Discovery.Port)
	require.Equal(t, "/var/log/orchestrator.sselog", cfg.Log.Path)
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	path := writeConfig(t, "schedule:\n  stale_after: \"not-a-duration\"\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/orchestrator.yaml")
	require.Error(t, err)
}

func TestLoadRejectsNegativeCapacity(t *testing.T) {
	path := writeConfig(t, "queue:\n  default_capacity: -1\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestCapacityForFallsBackToDefault(t *testing.T) {
	cfg := &Config{
		Queue: QueueConfig{
			DefaultCapacity: 32,
			PerDevice:       map[string]int{"v01": 64},
		},
	}

	require.Equal(t, 64, cfg.CapacityFor("v01"))
	require.Equal(t, 32, cfg.CapacityFor("v02"))
}

func TestEmptyConfigLoadsWithZeroValues(t *testing.T) {
	path := writeConfig(t, "")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 0, cfg.Queue.DefaultCapacity)
	require.Empty(t, cfg.Bus.OutboundTopics)
}
