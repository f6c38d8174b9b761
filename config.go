package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Station    StationConfig    `yaml:"station"`
	Database   DatabaseConfig   `yaml:"database"`
	CAT        CATConfig        `yaml:"cat"`
	Cluster    ClusterConfig    `yaml:"cluster"`
	UDP        UDPConfig        `yaml:"udp"`
	Lookup     LookupConfig     `yaml:"lookup"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
}

// StationConfig identifies the operating station
type StationConfig struct {
	Callsign string `yaml:"callsign"`
	Grid     string `yaml:"grid"` // Maidenhead locator, used for distance calculations
}

// DatabaseConfig contains contact store settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// CATConfig contains transceiver serial control settings
type CATConfig struct {
	Enabled               bool   `yaml:"enabled"`
	Port                  string `yaml:"port"` // e.g. /dev/ttyUSB0
	Baud                  int    `yaml:"baud"`
	PollIntervalMillis    int    `yaml:"poll_interval_ms"`
	ReconnectDelaySeconds int    `yaml:"reconnect_delay"`
}

// ClusterConfig contains DX cluster connection settings
type ClusterConfig struct {
	Enabled               bool   `yaml:"enabled"`
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	Callsign              string `yaml:"callsign"` // login callsign, defaults to station callsign
	ReconnectDelaySeconds int    `yaml:"reconnect_delay"`
	LoginDelaySeconds     int    `yaml:"login_delay"`
}

// UDPConfig contains the logging-software listener settings
type UDPConfig struct {
	WSJTXPort      int    `yaml:"wsjtx_port"`
	MulticastGroup string `yaml:"multicast_group"` // empty disables the multicast join
	ADIFPort       int    `yaml:"adif_port"`
	Source         string `yaml:"source"` // software feeding the binary port, e.g. "wsjtx"
}

// LookupConfig contains callsign directory settings
type LookupConfig struct {
	Enabled        bool   `yaml:"enabled"`
	URL            string `yaml:"url"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	TimeoutSeconds int    `yaml:"timeout"`
	CacheSize      int    `yaml:"cache_size"`
}

// MQTTConfig contains MQTT publishing settings
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"` // e.g. tcp://mqtt.example.com:1883
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
	Retain      bool   `yaml:"retain"`
}

// PrometheusConfig contains metrics endpoint settings
type PrometheusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// LoadConfig reads and validates the configuration file
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if not specified
	if config.Database.Path == "" {
		config.Database.Path = "logbook.db"
	}
	if config.CAT.Baud == 0 {
		config.CAT.Baud = 9600
	}
	if config.CAT.PollIntervalMillis == 0 {
		config.CAT.PollIntervalMillis = 200
	}
	if config.CAT.ReconnectDelaySeconds == 0 {
		config.CAT.ReconnectDelaySeconds = 2
	}
	if config.Cluster.Port == 0 {
		config.Cluster.Port = 7300
	}
	if config.Cluster.Callsign == "" {
		config.Cluster.Callsign = config.Station.Callsign
	}
	if config.Cluster.ReconnectDelaySeconds == 0 {
		config.Cluster.ReconnectDelaySeconds = 10
	}
	if config.Cluster.LoginDelaySeconds == 0 {
		config.Cluster.LoginDelaySeconds = 2
	}
	if config.UDP.WSJTXPort == 0 {
		config.UDP.WSJTXPort = 2237
	}
	if config.UDP.MulticastGroup == "" {
		config.UDP.MulticastGroup = "224.0.0.1"
	}
	if config.UDP.ADIFPort == 0 {
		config.UDP.ADIFPort = 2333
	}
	if config.UDP.Source == "" {
		config.UDP.Source = "wsjtx"
	}
	if config.Lookup.URL == "" {
		config.Lookup.URL = "https://xmldata.qrz.com/xml/current/"
	}
	if config.Lookup.TimeoutSeconds == 0 {
		config.Lookup.TimeoutSeconds = 10
	}
	if config.Lookup.CacheSize == 0 {
		config.Lookup.CacheSize = 4096
	}
	if config.MQTT.TopicPrefix == "" {
		config.MQTT.TopicPrefix = "logbookd"
	}
	if config.Prometheus.Listen == "" {
		config.Prometheus.Listen = ":9108"
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Station.Callsign == "" {
		return fmt.Errorf("station.callsign is required")
	}
	if c.CAT.Enabled && c.CAT.Port == "" {
		return fmt.Errorf("cat.port is required when cat is enabled")
	}
	if c.Cluster.Enabled && c.Cluster.Host == "" {
		return fmt.Errorf("cluster.host is required when cluster is enabled")
	}
	if c.Lookup.Enabled && (c.Lookup.Username == "" || c.Lookup.Password == "") {
		return fmt.Errorf("lookup.username and lookup.password are required when lookup is enabled")
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	if c.UDP.WSJTXPort == c.UDP.ADIFPort {
		return fmt.Errorf("udp.wsjtx_port and udp.adif_port must differ")
	}
	return nil
}
