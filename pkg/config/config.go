// Package config holds the plain struct tree the core consumes. Per spec.md
// §1/§6, loading configuration from YAML/env is a host-process concern; this
// package only defines the shape (with mapstructure tags so a caller-owned
// viper instance can Unmarshal into it) and applies defaults/validation.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration tree for the daemon.
type Config struct {
	SNMP       SNMPConfig       `mapstructure:"snmp"`
	Discovery  DiscoveryConfig  `mapstructure:"discovery"`
	Collection CollectionConfig `mapstructure:"collection"`
	MQTT       MQTTConfig       `mapstructure:"mqtt"`
}

// SNMPConfig configures both the embedded agent's listener and the SNMP
// collector's remote-polling defaults.
type SNMPConfig struct {
	Port           int    `mapstructure:"port"`
	CommunityRead  string `mapstructure:"community_read"`
	CommunityWrite string `mapstructure:"community_write"`
	EnterpriseOID  string `mapstructure:"enterprise_oid"`
}

// DiscoveryConfig configures the discovery loop (spec §4.2).
type DiscoveryConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	ScanIntervalSeconds int           `mapstructure:"scan_interval_seconds"`
	Subnets             []string      `mapstructure:"subnets"`
	StaticHosts         []string      `mapstructure:"static_hosts"`
	ExcludeIPs          []string      `mapstructure:"exclude_ips"`
	PingTimeoutMS       int           `mapstructure:"ping_timeout_ms"`
	UseARPScan          bool          `mapstructure:"use_arp_scan"`
}

// ScanInterval returns ScanIntervalSeconds as a time.Duration, defaulting to
// 300s per spec §4.7 when unset.
func (d DiscoveryConfig) ScanInterval() time.Duration {
	if d.ScanIntervalSeconds <= 0 {
		return 300 * time.Second
	}
	return time.Duration(d.ScanIntervalSeconds) * time.Second
}

// PingTimeout returns PingTimeoutMS as a time.Duration, defaulting to 1s.
func (d DiscoveryConfig) PingTimeout() time.Duration {
	if d.PingTimeoutMS <= 0 {
		return time.Second
	}
	return time.Duration(d.PingTimeoutMS) * time.Millisecond
}

// CollectionConfig configures the collection loop and its transports
// (spec §4.4/§4.7).
type CollectionConfig struct {
	IntervalSeconds  int    `mapstructure:"interval_seconds"`
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
	CollectLocal     bool   `mapstructure:"collect_local"`
	CollectRemoteSNMP bool  `mapstructure:"collect_remote_snmp"`
	CollectRemoteSSH bool   `mapstructure:"collect_remote_ssh"`
	SNMPCommunity    string `mapstructure:"snmp_community"`
	SNMPPort         int    `mapstructure:"snmp_port"`
	SSHUsername      string `mapstructure:"ssh_username"`
	SSHKeyPath       string `mapstructure:"ssh_key_path"`
	SSHPassword      string `mapstructure:"ssh_password"`
}

// Interval returns IntervalSeconds as a time.Duration, defaulting to 60s.
func (c CollectionConfig) Interval() time.Duration {
	if c.IntervalSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Timeout returns TimeoutSeconds as a time.Duration, defaulting to 10s.
func (c CollectionConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// MQTTConfig configures the broker connection for the republisher
// (spec §4.6).
type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

// Default returns a Config populated with spec-documented defaults.
func Default() *Config {
	return &Config{
		SNMP: SNMPConfig{
			Port:          1161,
			CommunityRead: "public",
			EnterpriseOID: "1.3.6.1.4.1.99999.1",
		},
		Discovery: DiscoveryConfig{
			Enabled:             true,
			ScanIntervalSeconds: 300,
			PingTimeoutMS:       1000,
			UseARPScan:          true,
		},
		Collection: CollectionConfig{
			IntervalSeconds:   60,
			TimeoutSeconds:    10,
			CollectLocal:      true,
			CollectRemoteSNMP: true,
			SNMPPort:          161,
			SNMPCommunity:     "public",
		},
		MQTT: MQTTConfig{
			Port:        1883,
			TopicPrefix: "snmp-agent",
		},
	}
}

// Load decodes an already-initialized viper instance (the caller is
// responsible for SetConfigFile/ReadInConfig, env binding, etc.) on top of
// Default, then validates the result. The core never opens a config file
// itself, per spec §1.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate rejects values that would make the daemon's loops meaningless
// rather than merely suboptimal.
func (c *Config) validate() error {
	if c.SNMP.Port <= 0 || c.SNMP.Port > 65535 {
		return fmt.Errorf("config: snmp.port %d out of range", c.SNMP.Port)
	}
	if c.MQTT.Enabled && c.MQTT.Host == "" {
		return fmt.Errorf("config: mqtt.host is required when mqtt.enabled is true")
	}
	if c.Collection.CollectRemoteSSH && c.Collection.SSHUsername == "" {
		return fmt.Errorf("config: collection.ssh_username is required when collection.collect_remote_ssh is true")
	}
	return nil
}
