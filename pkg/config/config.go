// Package config loads the orchestrator's YAML configuration file:
// serial discovery roots/globs, the outbound bus topic list, per-device
// queue capacity overrides, schedule staleness/prune intervals,
// discovery advertisement identity, and the diagnostic log path.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config files can express durations
// as Go duration strings ("5m", "100ms") instead of raw nanoseconds.
type Duration time.Duration

// UnmarshalYAML parses a duration string with time.ParseDuration.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the value as a time.Duration.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

// Config is the orchestrator's top-level configuration.
type Config struct {
	Serial    SerialConfig    `yaml:"serial"`
	Bus       BusConfig       `yaml:"bus"`
	Queue     QueueConfig     `yaml:"queue"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Log       LogConfig       `yaml:"log"`
}

// SerialConfig names where the Transport Manager looks for serial
// endpoints.
type SerialConfig struct {
	// Roots are directories to search, in addition to the platform
	// default (/dev on Unix).
	Roots []string `yaml:"roots,omitempty"`

	// Globs are filename patterns to match within each root, in
	// addition to the platform defaults (ttyUSB*, ttyACM*, cu.*).
	Globs []string `yaml:"globs,omitempty"`
}

// BusConfig configures the Transport Manager's outbound forwarding.
type BusConfig struct {
	// OutboundTopics are the bus topics the Transport Manager
	// subscribes to and forwards onto the matching device's endpoint.
	OutboundTopics []string `yaml:"outbound_topics"`
}

// QueueConfig configures the Command Queue Registry.
type QueueConfig struct {
	// DefaultCapacity is the per-device queue capacity used when no
	// PerDevice override applies. Zero uses queue.DefaultCapacity.
	DefaultCapacity int `yaml:"default_capacity,omitempty"`

	// PerDevice overrides DefaultCapacity for specific device ids.
	PerDevice map[string]int `yaml:"per_device,omitempty"`
}

// ScheduleConfig configures the Device Schedule Tracker's housekeeping.
type ScheduleConfig struct {
	// StaleAfter overrides schedule.StaleAfter when nonzero.
	StaleAfter Duration `yaml:"stale_after,omitempty"`

	// PruneEvery is how often the tracker is swept for stale entries.
	PruneEvery Duration `yaml:"prune_every,omitempty"`
}

// DiscoveryConfig configures this orchestrator's LAN presence
// advertisement.
type DiscoveryConfig struct {
	// InstanceID identifies this orchestrator on the LAN. Required to
	// advertise; advertisement is skipped if empty.
	InstanceID string `yaml:"instance_id,omitempty"`

	// Port is the operator-console port to advertise.
	Port uint16 `yaml:"port,omitempty"`

	// Interface restricts advertisement/browsing to one network
	// interface. Empty means all interfaces.
	Interface string `yaml:"interface,omitempty"`
}

// LogConfig configures the diagnostic event log.
type LogConfig struct {
	// Path is the .sselog file path. Empty disables file logging.
	Path string `yaml:"path,omitempty"`
}

// Load reads and parses the YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %q: %w", path, err)
	}

	return &cfg, nil
}

// Validate checks the configuration for internally-inconsistent
// values that would only fail confusingly later.
func (c *Config) Validate() error {
	for id, capacity := range c.Queue.PerDevice {
		if capacity < 0 {
			return fmt.Errorf("queue.per_device[%s]: negative capacity %d", id, capacity)
		}
	}
	if c.Queue.DefaultCapacity < 0 {
		return fmt.Errorf("queue.default_capacity: negative capacity %d", c.Queue.DefaultCapacity)
	}
	return nil
}

// CapacityFor returns the configured queue capacity for deviceID,
// falling back to DefaultCapacity.
func (c *Config) CapacityFor(deviceID string) int {
	if capacity, ok := c.Queue.PerDevice[deviceID]; ok {
		return capacity
	}
	return c.Queue.DefaultCapacity
}
