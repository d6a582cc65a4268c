// Package config loads and validates the collector configuration.
//
// Defaults cover every key, so the collector runs with no configuration
// file at all; a file at the given path is merged over the defaults with
// file values winning. The loaded Config is immutable for the process
// lifetime.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config is the root collector configuration.
type Config struct {
	Device     DeviceConfig     `mapstructure:"device"`
	MQTT       MQTTConfig       `mapstructure:"mqtt"`
	Collection CollectionConfig `mapstructure:"collection"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// DeviceConfig identifies the device this collector runs on.
type DeviceConfig struct {
	ID       string            `mapstructure:"id"`
	Name     string            `mapstructure:"name"`
	Location string            `mapstructure:"location"`
	Tags     map[string]string `mapstructure:"tags"`
}

// MQTTConfig holds broker connection and topic settings.
type MQTTConfig struct {
	Broker   string        `mapstructure:"broker"`
	ClientID string        `mapstructure:"client_id"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	QoS      byte          `mapstructure:"qos"`
	Retained bool          `mapstructure:"retained"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Topics   TopicsConfig  `mapstructure:"topics"`
}

// TopicsConfig names the segments of the MQTT topic scheme.
type TopicsConfig struct {
	Prefix    string `mapstructure:"prefix"`
	Metrics   string `mapstructure:"metrics"`
	Logs      string `mapstructure:"logs"`
	Events    string `mapstructure:"events"`
	Heartbeat string `mapstructure:"heartbeat"`
}

// CollectionConfig controls what is collected and how often.
type CollectionConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Metrics  MetricsConfig `mapstructure:"metrics"`
	Logs     LogsConfig    `mapstructure:"logs"`
	Events   EventsConfig  `mapstructure:"events"`
}

// MetricsConfig enables or disables individual metric categories.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	CPU     bool `mapstructure:"cpu"`
	Memory  bool `mapstructure:"memory"`
	Disk    bool `mapstructure:"disk"`
	Network bool `mapstructure:"network"`
	Load    bool `mapstructure:"load"`
}

// LogsConfig reserves the log collection settings. No collector consumes
// these yet; the section exists so fleets can be configured ahead of an
// agent upgrade.
type LogsConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Paths   []string `mapstructure:"paths"`
	Exclude []string `mapstructure:"exclude"`
}

// EventsConfig reserves the event collection settings.
type EventsConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Types   []string `mapstructure:"types"`
}

// LoggingConfig controls the collector's own log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads the configuration file at path and merges it over the
// defaults. A missing file is not an error; the defaults are used
// unmodified. Validation failure aborts with an error and no partial
// configuration is returned.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = fmt.Sprintf("%s-%s", cfg.MQTT.Topics.Prefix, cfg.Device.ID)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("device.id", defaultDeviceID())
	v.SetDefault("device.name", "SignalBeam Edge Device")
	v.SetDefault("device.location", "")
	v.SetDefault("device.tags", map[string]string{})

	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.retained", false)
	v.SetDefault("mqtt.timeout", 30*time.Second)
	v.SetDefault("mqtt.topics.prefix", "signalbeam")
	v.SetDefault("mqtt.topics.metrics", "metrics")
	v.SetDefault("mqtt.topics.logs", "logs")
	v.SetDefault("mqtt.topics.events", "events")
	v.SetDefault("mqtt.topics.heartbeat", "heartbeat")

	v.SetDefault("collection.interval", 30*time.Second)
	v.SetDefault("collection.metrics.enabled", true)
	v.SetDefault("collection.metrics.cpu", true)
	v.SetDefault("collection.metrics.memory", true)
	v.SetDefault("collection.metrics.disk", true)
	v.SetDefault("collection.metrics.network", true)
	v.SetDefault("collection.metrics.load", true)
	v.SetDefault("collection.logs.enabled", false)
	v.SetDefault("collection.logs.paths", []string{})
	v.SetDefault("collection.logs.exclude", []string{})
	v.SetDefault("collection.events.enabled", false)
	v.SetDefault("collection.events.types", []string{})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// validate checks the invariants that startup depends on.
func (c *Config) validate() error {
	if c.Device.ID == "" {
		return fmt.Errorf("device.id is required")
	}
	if c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required")
	}
	if c.Collection.Interval <= 0 {
		return fmt.Errorf("collection.interval must be positive")
	}
	return nil
}

// defaultDeviceID derives a stable device identifier from the hostname,
// falling back to a timestamp-based id if the hostname is unavailable.
func defaultDeviceID() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return fmt.Sprintf("device-%d", time.Now().Unix())
	}
	return hostname
}
