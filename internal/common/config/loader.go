// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", currentEnvironment()))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)
	// Booleans whose default is true cannot be filled after Unmarshal.
	v.SetDefault("fulfillment.abort_on_track_error", true)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideEmptyConfig(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// APP_ENV is the variable the deployment sets; APP_ENVIRONMENT is kept for older manifests.
func currentEnvironment() string {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env
	}
	if env := os.Getenv("APP_ENVIRONMENT"); env != "" {
		return env
	}
	return EnvDevelopment
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

func setIfEmpty(dst *string, envKey string) {
	if *dst != "" {
		return
	}
	if val := os.Getenv(envKey); val != "" {
		*dst = val
	}
}

// overrideEmptyConfig fills fields still empty after the YAML pass from the flat
// variables the existing deployments export.
func overrideEmptyConfig(cfg *Config) {
	setIfEmpty(&cfg.App.Environment, "APP_ENV")
	setIfEmpty(&cfg.Fulfillment.AdminEmail, "ADMIN_EMAIL")
	setIfEmpty(&cfg.Fulfillment.ITSEmail, "ITS_EMAIL")

	setIfEmpty(&cfg.Database.Postgres.URL, "DATABASE_URL")
	setIfEmpty(&cfg.Database.Postgres.User, "DB_USER")
	setIfEmpty(&cfg.Database.Postgres.Password, "DB_PASSWORD")

	aws := &cfg.Integrations.AWS
	setIfEmpty(&aws.Region, "AWS_REGION")
	setIfEmpty(&aws.SES.AccessKey, "SES_AWS_ACCESS_KEY")
	setIfEmpty(&aws.SES.SecretKey, "SES_AWS_KEY_SECRET")
	setIfEmpty(&aws.SES.Region, "SES_AWS_REGION")
	setIfEmpty(&aws.SNS.TopicARN, "OPS_ALERT_TOPIC_ARN")

	src := &cfg.Integrations.Storage.Source
	setIfEmpty(&src.Bucket, "AWS_S3_BUCKET")
	setIfEmpty(&src.AccessKey, "AWS_ACCESS_KEY")
	setIfEmpty(&src.SecretKey, "AWS_KEY_SECRET")
	setIfEmpty(&src.Region, "AWS_REGION")

	dst := &cfg.Integrations.Storage.Destination
	setIfEmpty(&dst.Bucket, "MOBILE_S3_BUCKET")
	setIfEmpty(&dst.AccessKey, "MOBILE_S3_ACCESS_KEY")
	setIfEmpty(&dst.SecretKey, "MOBILE_S3_KEY_SECRET")
	setIfEmpty(&dst.Region, "MOBILE_S3_REGION")

	email := &cfg.Integrations.Email
	setIfEmpty(&email.FromAddress, "EMAIL_FROM_ADDRESS")
	setIfEmpty(&email.FromName, "EMAIL_FROM_NAME")

	smtp := &cfg.Integrations.SMTP
	setIfEmpty(&smtp.Host, "EMAIL_HOST")
	setIfEmpty(&smtp.Username, "EMAIL_USER")
	setIfEmpty(&smtp.Password, "EMAIL_PASSWORD")
	if smtp.Port == 0 {
		if port, err := strconv.Atoi(os.Getenv("EMAIL_PORT")); err == nil {
			smtp.Port = port
		}
	}

	sf := &cfg.Integrations.Salesforce
	setIfEmpty(&sf.ClientID, "SF_CLIENT_ID")
	setIfEmpty(&sf.ClientSecret, "SF_CLIENT_SECRET")
	setIfEmpty(&sf.Username, "SF_USERNAME")
	setIfEmpty(&sf.Password, "SF_PASSWORD")
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "fulfillment-workers"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = EnvDevelopment
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if cfg.Database.Elasticsearch.AuditIndex == "" {
		cfg.Database.Elasticsearch.AuditIndex = "fulfillment-audit"
	}

	if cfg.Fulfillment.LockTTL == 0 {
		cfg.Fulfillment.LockTTL = 900000
	}

	aws := &cfg.Integrations.AWS
	if aws.Region == "" {
		aws.Region = "ap-northeast-1"
	}
	if aws.SES.Region == "" {
		aws.SES.Region = aws.Region
	}
	if cfg.Integrations.SMTP.Port == 0 {
		cfg.Integrations.SMTP.Port = 587
	}

	storage := &cfg.Integrations.Storage
	for _, b := range []*BucketConfig{&storage.Source, &storage.Destination} {
		if b.Region == "" {
			b.Region = aws.Region
		}
		if b.Endpoint == "" {
			b.Endpoint = "s3." + b.Region + ".amazonaws.com"
			b.UseSSL = true
		}
	}

	sf := &cfg.Integrations.Salesforce
	if sf.LoginURL == "" {
		sf.LoginURL = "https://login.salesforce.com/services/oauth2/token"
	}
	if sf.BaseURL == "" {
		sf.BaseURL = "https://ap5.salesforce.com/services/data/v52.0"
	}
	if sf.Timeout == 0 {
		sf.Timeout = 30000
	}

	auto := &cfg.Integrations.Automation
	if auto.Command == "" {
		auto.Command = "node"
	}
	if auto.ScriptsPath == "" {
		auto.ScriptsPath = "apps/rpa/dist/modules/playwright/scripts"
	}
	if auto.FileExt == "" {
		auto.FileExt = "js"
	}
	if auto.Timeout == 0 {
		auto.Timeout = 300000
	}

	if cfg.Queue.Concurrency == 0 {
		cfg.Queue.Concurrency = 5
	}
	if cfg.Queue.Name == "" {
		cfg.Queue.Name = "fulfillment"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	switch cfg.App.Environment {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		return fmt.Errorf("app.environment must be one of development, staging, production: got %q", cfg.App.Environment)
	}

	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}

	pg := cfg.Database.Postgres
	if pg.URL == "" {
		if pg.Host == "" {
			return fmt.Errorf("database.postgres.host or url is required")
		}
		if pg.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if pg.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	}

	if cfg.Database.Elasticsearch.Enabled && cfg.Database.Elasticsearch.GetURL() == "" {
		return fmt.Errorf("database.elasticsearch.addresses or url is required")
	}

	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	if cfg.Fulfillment.AdminEmail == "" {
		return fmt.Errorf("fulfillment.admin_email is required")
	}
	if cfg.Fulfillment.ITSEmail == "" {
		return fmt.Errorf("fulfillment.its_email is required")
	}
	// The lease must outlive the slowest run or a second trigger can take it mid-run.
	for name, worker := range cfg.Workers {
		if cfg.Fulfillment.LockTTL <= worker.Timeout {
			return fmt.Errorf("fulfillment.lock_ttl (%dms) must exceed workers.%s.timeout (%dms)",
				cfg.Fulfillment.LockTTL, name, worker.Timeout)
		}
	}
	if cfg.Integrations.Email.FromAddress == "" {
		return fmt.Errorf("integrations.email.from_address is required")
	}
	if cfg.Integrations.Storage.Source.Bucket == "" {
		return fmt.Errorf("integrations.storage.source.bucket is required")
	}

	if cfg.App.IsDevelopment() {
		if cfg.Integrations.SMTP.Host == "" {
			return fmt.Errorf("integrations.smtp.host is required in development")
		}
		return nil
	}

	if cfg.Integrations.Storage.Destination.Bucket == "" {
		return fmt.Errorf("integrations.storage.destination.bucket is required in %s", cfg.App.Environment)
	}
	if !cfg.Integrations.AWS.SES.Enabled {
		return fmt.Errorf("integrations.aws.ses.enabled must be true in %s", cfg.App.Environment)
	}
	if cfg.App.IsProduction() {
		sf := cfg.Integrations.Salesforce
		if sf.ClientID == "" || sf.ClientSecret == "" || sf.Username == "" || sf.Password == "" {
			return fmt.Errorf("integrations.salesforce credentials are required in production")
		}
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
