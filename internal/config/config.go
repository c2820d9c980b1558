package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	DataDir string

	// NMED source configuration.
	NMEDAPIKey       string
	NMEDArcGISURL    string
	NMEDApigeeURL    string
	NMEDCities       []string
	NMEDLookbackDays int
	NMEDTimeout      time.Duration

	// ABQ source configuration. TextDir takes precedence over RowsFile.
	ABQRowsFile string
	ABQTextDir  string

	GroupByAddress bool

	// Kafka sink configuration (feature-flagged via KAFKA_ENABLED).
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	// Run archive sqlite path; empty disables archiving.
	ArchivePath string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	nmedTimeout, err := parseDuration("NMED_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	lookbackDays := 365
	if s := os.Getenv("NMED_LOOKBACK_DAYS"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return nil, errors.New("invalid NMED_LOOKBACK_DAYS")
		}
		lookbackDays = n
	}

	kafkaEnabled := os.Getenv("KAFKA_ENABLED") == "true"

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DataDir: envOrDefault("DATA_DIR", "data"),

		NMEDAPIKey:       os.Getenv("NMED_API_KEY"),
		NMEDArcGISURL:    os.Getenv("NMED_ARCGIS_URL"),
		NMEDApigeeURL:    os.Getenv("NMED_APIGEE_URL"),
		NMEDCities:       parseList(os.Getenv("NMED_CITIES")),
		NMEDLookbackDays: lookbackDays,
		NMEDTimeout:      nmedTimeout,

		ABQRowsFile: os.Getenv("ABQ_ROWS_FILE"),
		ABQTextDir:  os.Getenv("ABQ_TEXT_DIR"),

		GroupByAddress: os.Getenv("GROUP_BY_ADDRESS") == "true",

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: parseList(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "inspection-records"),

		ArchivePath: os.Getenv("ARCHIVE_PATH"),
	}

	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
		}
		if cfg.KafkaTopic == "" {
			return nil, errors.New("KAFKA_ENABLED is true but KAFKA_TOPIC is empty")
		}
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parseList splits a comma-separated value, trimming whitespace and dropping
// empty entries.
func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}
