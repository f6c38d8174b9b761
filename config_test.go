package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestLoadConfigDefaults verifies the minimal config picks up every
// default value.
func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
station:
  callsign: M0TST
  grid: IO91wm
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "M0TST", cfg.Station.Callsign)
	assert.Equal(t, "logbook.db", cfg.Database.Path)
	assert.Equal(t, 9600, cfg.CAT.Baud)
	assert.Equal(t, 200, cfg.CAT.PollIntervalMillis)
	assert.Equal(t, 2, cfg.CAT.ReconnectDelaySeconds)
	assert.Equal(t, 7300, cfg.Cluster.Port)
	assert.Equal(t, "M0TST", cfg.Cluster.Callsign) // falls back to station
	assert.Equal(t, 10, cfg.Cluster.ReconnectDelaySeconds)
	assert.Equal(t, 2237, cfg.UDP.WSJTXPort)
	assert.Equal(t, "224.0.0.1", cfg.UDP.MulticastGroup)
	assert.Equal(t, 2333, cfg.UDP.ADIFPort)
	assert.Equal(t, "wsjtx", cfg.UDP.Source)
	assert.Equal(t, "https://xmldata.qrz.com/xml/current/", cfg.Lookup.URL)
	assert.Equal(t, 10, cfg.Lookup.TimeoutSeconds)
	assert.Equal(t, 4096, cfg.Lookup.CacheSize)
	assert.Equal(t, "logbookd", cfg.MQTT.TopicPrefix)
	assert.Equal(t, ":9108", cfg.Prometheus.Listen)
}

// TestLoadConfigFull verifies explicit values survive loading.
func TestLoadConfigFull(t *testing.T) {
	path := writeConfig(t, `
station:
  callsign: M0TST
  grid: IO91wm
database:
  path: /var/lib/logbookd/log.db
cat:
  enabled: true
  port: /dev/ttyUSB0
  baud: 38400
  poll_interval_ms: 500
cluster:
  enabled: true
  host: dxc.example.net
  port: 7373
  callsign: M0TST-2
udp:
  wsjtx_port: 2238
  adif_port: 2334
  source: jtdx
lookup:
  enabled: true
  username: tester
  password: secret
mqtt:
  enabled: true
  broker: tcp://mqtt.example.net:1883
  qos: 1
  retain: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/logbookd/log.db", cfg.Database.Path)
	assert.True(t, cfg.CAT.Enabled)
	assert.Equal(t, 38400, cfg.CAT.Baud)
	assert.Equal(t, 500, cfg.CAT.PollIntervalMillis)
	assert.Equal(t, "dxc.example.net", cfg.Cluster.Host)
	assert.Equal(t, 7373, cfg.Cluster.Port)
	assert.Equal(t, "M0TST-2", cfg.Cluster.Callsign)
	assert.Equal(t, 2238, cfg.UDP.WSJTXPort)
	assert.Equal(t, "jtdx", cfg.UDP.Source)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
	assert.True(t, cfg.MQTT.Retain)
}

// TestLoadConfigValidation verifies each conditional requirement.
func TestLoadConfigValidation(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing station callsign",
			yaml:    "database:\n  path: x.db\n",
			wantErr: "station.callsign is required",
		},
		{
			name:    "cat enabled without port",
			yaml:    "station:\n  callsign: M0TST\ncat:\n  enabled: true\n",
			wantErr: "cat.port is required",
		},
		{
			name:    "cluster enabled without host",
			yaml:    "station:\n  callsign: M0TST\ncluster:\n  enabled: true\n",
			wantErr: "cluster.host is required",
		},
		{
			name:    "lookup enabled without credentials",
			yaml:    "station:\n  callsign: M0TST\nlookup:\n  enabled: true\n",
			wantErr: "lookup.username and lookup.password are required",
		},
		{
			name:    "mqtt enabled without broker",
			yaml:    "station:\n  callsign: M0TST\nmqtt:\n  enabled: true\n",
			wantErr: "mqtt.broker is required",
		},
		{
			name:    "udp port clash",
			yaml:    "station:\n  callsign: M0TST\nudp:\n  wsjtx_port: 2237\n  adif_port: 2237\n",
			wantErr: "must differ",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.yaml))
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

// TestLoadConfigMissingFile verifies a missing file is an error, not a
// silent default config.
func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

// TestLoadConfigBadYAML verifies parse errors surface.
func TestLoadConfigBadYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "station: [this is not a mapping"))
	assert.ErrorContains(t, err, "failed to parse config file")
}
