package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
database:
  host: "localhost"
  port: 5432
  username: "u"
  password: "p"
  name: "db"
kafka:
  host: "localhost"
  port: 9092
  shipment_updated_topic_name: "shipment.updated"
  sync_requested_topic_name: "sync.requested"
redis:
  host: "localhost"
  port: 6379
gmail:
  client_id: "cid"
  client_secret: "secret"
  requests_per_second: 5
carriers:
  mode: "live"
  timeout_seconds: 10
  rate_limit_per_minute: 60
  rate_limits:
    fedex: 20
  ups:
    access_license_number: "lic"
  usps:
    user_id: "uid"
  fedex:
    key: "k"
    meter_number: "m"
mailtrack:
  http_addr: ":8080"
  cache_ttl_seconds: 3600
  retention_days: 90
  worker_batch_size: 20
`), 0o600))

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, "u", cfg.Database.Username)
	require.Equal(t, "postgres://u:p@localhost:5432/db?sslmode=disable", cfg.Database.ConnString())
	require.Equal(t, "shipment.updated", cfg.Kafka.ShipmentUpdatedTopicName)
	require.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers())
	require.Equal(t, "localhost:6379", cfg.Redis.Addr())
	require.Equal(t, 5.0, cfg.Gmail.RequestsPerSecond)
	require.Equal(t, 20, cfg.Carriers.RateLimits["fedex"])
	require.Equal(t, "lic", cfg.Carriers.UPS.AccessLicenseNumber)
	require.Equal(t, "m", cfg.Carriers.FedEx.MeterNumber)
	require.Equal(t, ":8080", cfg.MailTrack.HTTPAddr)
	require.Equal(t, 90, cfg.MailTrack.RetentionDays)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to read config file")
}
