package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Gmail     GmailConfig     `yaml:"gmail"`
	Carriers  CarriersConfig  `yaml:"carriers"`
	MailTrack MailTrackConfig `yaml:"mailtrack"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (c DatabaseConfig) ConnString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Username, c.Password, c.Host, c.Port, c.DBName, sslMode)
}

type KafkaConfig struct {
	Host                     string `yaml:"host"`
	Port                     int    `yaml:"port"`
	ShipmentUpdatedTopicName string `yaml:"shipment_updated_topic_name"`
	SyncRequestedTopicName   string `yaml:"sync_requested_topic_name"`
}

func (c KafkaConfig) Brokers() []string {
	return []string{fmt.Sprintf("%s:%d", c.Host, c.Port)}
}

// RedisConfig is optional. Without a host the tracking cache stays in process.
type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type GmailConfig struct {
	ClientID          string  `yaml:"client_id"`
	ClientSecret      string  `yaml:"client_secret"`
	TokenURL          string  `yaml:"token_url"` // default: Google's OAuth2 endpoint
	Endpoint          string  `yaml:"endpoint"`  // default: https://gmail.googleapis.com/
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type CarriersConfig struct {
	Mode           string `yaml:"mode"` // "live" | "fake"
	TimeoutSeconds int    `yaml:"timeout_seconds"`

	RateLimitPerMinute int            `yaml:"rate_limit_per_minute"`
	RateLimits         map[string]int `yaml:"rate_limits"` // per carrier code

	FedEx FedExConfig `yaml:"fedex"`
	UPS   UPSConfig   `yaml:"ups"`
	USPS  USPSConfig  `yaml:"usps"`
}

type FedExConfig struct {
	BaseURL       string `yaml:"base_url"`
	Key           string `yaml:"key"`
	Password      string `yaml:"password"`
	AccountNumber string `yaml:"account_number"`
	MeterNumber   string `yaml:"meter_number"`
}

type UPSConfig struct {
	BaseURL             string `yaml:"base_url"`
	AccessLicenseNumber string `yaml:"access_license_number"`
}

type USPSConfig struct {
	BaseURL string `yaml:"base_url"`
	UserID  string `yaml:"user_id"`
}

type MailTrackConfig struct {
	HTTPAddr           string `yaml:"http_addr"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	CacheTTLSeconds     int `yaml:"cache_ttl_seconds"`
	RetentionDays       int `yaml:"retention_days"`
	SyncIntervalSeconds int `yaml:"sync_interval_seconds"`
	FreshGraceHours     int `yaml:"fresh_grace_hours"`
	FetchConcurrency    int `yaml:"fetch_concurrency"`
	LookupConcurrency   int `yaml:"lookup_concurrency"`

	WorkerHTTPAddr            string `yaml:"worker_http_addr"`
	WorkerPollIntervalSeconds int    `yaml:"worker_poll_interval_seconds"`
	WorkerBatchSize           int    `yaml:"worker_batch_size"`
	WorkerConcurrency         int    `yaml:"worker_concurrency"`
	WorkerLeaseSeconds        int    `yaml:"worker_lease_seconds"`

	// Worker scheduling (optional). If not set: active accounts every 60..75
	// minutes, idle accounts every 6 hours, backoff 5/15/30/60 minutes.
	WorkerActiveMinSeconds int `yaml:"worker_active_min_seconds"`
	WorkerActiveMaxSeconds int `yaml:"worker_active_max_seconds"`
	WorkerIdleSeconds      int `yaml:"worker_idle_seconds"`
	WorkerBackoff1Seconds  int `yaml:"worker_backoff_1_seconds"`
	WorkerBackoff2Seconds  int `yaml:"worker_backoff_2_seconds"`
	WorkerBackoff3Seconds  int `yaml:"worker_backoff_3_seconds"`
	WorkerBackoff4Seconds  int `yaml:"worker_backoff_4_seconds"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
