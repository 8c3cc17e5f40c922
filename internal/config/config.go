package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all run settings, populated from environment variables.
type Config struct {
	OutputDir           string
	LogLevel            string
	LogFormat           string
	HTTPTimeout         time.Duration
	HTTPUserAgent       string
	ConcurrentPipelines bool
	ShutdownTimeout     time.Duration

	StatesBundleURL  string
	StatesAPIURL     string
	CitiesAPIURL     string
	MunicipiosAPIURL string

	HTMLIndexURL       string
	HTMLBaseURL        string
	HTMLRelativePrefix string
	HTMLStatesListID   string
	HTMLCitiesListID   string

	// Kafka publishing of loaded records.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool

	// MinIO mirror of the written files.
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioPrefix    string

	PushgatewayURL string
	PushgatewayJob string
}

// MinioEnabled reports whether written files are mirrored to object storage.
func (c *Config) MinioEnabled() bool { return c.MinioEndpoint != "" }

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	httpTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("HTTP_TIMEOUT", "30s"))
	if err != nil || httpTimeout <= 0 {
		return nil, errors.New("invalid HTTP_TIMEOUT")
	}

	concurrent, err := parseBool("CONCURRENT_PIPELINES", true)
	if err != nil {
		return nil, err
	}
	minioSSL, err := parseBool("MINIO_USE_SSL", false)
	if err != nil {
		return nil, err
	}

	brokers := sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled, err := parseBool("KAFKA_ENABLED", len(brokers) > 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		OutputDir:           sharedcfg.EnvOrDefault("OUTPUT_DIR", "."),
		LogLevel:            sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
		HTTPTimeout:         httpTimeout,
		HTTPUserAgent:       sharedcfg.EnvOrDefault("HTTP_USER_AGENT", "ibge-localidades-etl/1.0"),
		ConcurrentPipelines: concurrent,
		ShutdownTimeout:     shutdownTimeout,

		StatesBundleURL:  sharedcfg.EnvOrDefault("STATES_BUNDLE_URL", "https://cidades.ibge.gov.br/dist/main-client.js"),
		StatesAPIURL:     sharedcfg.EnvOrDefault("STATES_API_URL", "https://servicodados.ibge.gov.br/api/v1/localidades/estados"),
		CitiesAPIURL:     sharedcfg.EnvOrDefault("CITIES_API_URL", "https://servicodados.ibge.gov.br/api/v1/localidades/aniversarios"),
		MunicipiosAPIURL: sharedcfg.EnvOrDefault("MUNICIPIOS_API_URL", "https://servicodados.ibge.gov.br/api/v1/localidades/municipios"),

		HTMLIndexURL:       sharedcfg.EnvOrDefault("HTML_INDEX_URL", "https://cidades.ibge.gov.br/xtras/home.php"),
		HTMLBaseURL:        sharedcfg.EnvOrDefault("HTML_BASE_URL", "https://cidades.ibge.gov.br/xtras/"),
		HTMLRelativePrefix: sharedcfg.EnvOrDefault("HTML_RELATIVE_PREFIX", "../xtras/"),
		HTMLStatesListID:   sharedcfg.EnvOrDefault("HTML_STATES_LIST_ID", "lista_ufs"),
		HTMLCitiesListID:   sharedcfg.EnvOrDefault("HTML_CITIES_LIST_ID", "lista_municipios"),

		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "ibge-localidades"),
		KafkaEnabled: kafkaEnabled,

		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    sharedcfg.EnvOrDefault("MINIO_BUCKET", "ibge-localidades"),
		MinioUseSSL:    minioSSL,
		MinioPrefix:    os.Getenv("MINIO_PREFIX"),

		PushgatewayURL: os.Getenv("PUSHGATEWAY_URL"),
		PushgatewayJob: sharedcfg.EnvOrDefault("PUSHGATEWAY_JOB", "ibge_localidades_etl"),
	}

	for name, raw := range map[string]string{
		"STATES_BUNDLE_URL":  cfg.StatesBundleURL,
		"STATES_API_URL":     cfg.StatesAPIURL,
		"CITIES_API_URL":     cfg.CitiesAPIURL,
		"MUNICIPIOS_API_URL": cfg.MunicipiosAPIURL,
		"HTML_INDEX_URL":     cfg.HTMLIndexURL,
		"HTML_BASE_URL":      cfg.HTMLBaseURL,
	} {
		if err := validateURL(name, raw); err != nil {
			return nil, err
		}
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required")
	}
	if cfg.MinioEnabled() && (cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "") {
		return nil, errors.New("MINIO_ENDPOINT is set but MINIO_ACCESS_KEY or MINIO_SECRET_KEY is not")
	}

	return cfg, nil
}

func parseBool(key string, fallback bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", key, s)
	}
	return b, nil
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
