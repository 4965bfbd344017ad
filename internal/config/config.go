package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string
	AllowedOrigin string
	Env           string
	LogLevel      string

	DatabaseURL    string
	DBMaxOpenConns int
	DBTxRetries    int

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	ListingCacheTTL time.Duration

	AuthSecret            string
	AccessTokenTTLMinutes int
	SeedAdminUsername     string
	SeedAdminPassword     string

	R2Endpoint        string
	R2Bucket          string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2PublicBase      string
	ImageURLTTL       time.Duration

	DailyJobEnabled bool
	DailyJobHour    int
}

// Load reads configuration from the environment and, when CONFIG_FILE is set,
// from that file. Environment variables win over the file.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Config{
		Port:          v.GetString("port"),
		AllowedOrigin: v.GetString("allowed_origin"),
		Env:           strings.ToLower(v.GetString("app_env")),
		LogLevel:      v.GetString("log_level"),

		DatabaseURL:    strings.TrimSpace(v.GetString("database_url")),
		DBMaxOpenConns: v.GetInt("db_max_open_conns"),
		DBTxRetries:    v.GetInt("db_tx_retries"),

		RedisAddr:       strings.TrimSpace(v.GetString("redis_addr")),
		RedisPassword:   v.GetString("redis_password"),
		RedisDB:         v.GetInt("redis_db"),
		ListingCacheTTL: time.Duration(v.GetInt("listing_cache_ttl_seconds")) * time.Second,

		AuthSecret:            strings.TrimSpace(v.GetString("auth_secret")),
		AccessTokenTTLMinutes: v.GetInt("access_token_ttl_minutes"),
		SeedAdminUsername:     strings.TrimSpace(v.GetString("seed_admin_username")),
		SeedAdminPassword:     v.GetString("seed_admin_password"),

		R2Endpoint:        strings.TrimSpace(v.GetString("r2_endpoint")),
		R2Bucket:          strings.TrimSpace(v.GetString("r2_bucket_name")),
		R2AccessKeyID:     strings.TrimSpace(v.GetString("r2_access_key_id")),
		R2SecretAccessKey: strings.TrimSpace(v.GetString("r2_secret_access_key")),
		R2PublicBase:      strings.TrimRight(strings.TrimSpace(v.GetString("r2_public_base")), "/"),
		ImageURLTTL:       time.Duration(v.GetInt("image_url_ttl_seconds")) * time.Second,

		DailyJobEnabled: v.GetBool("daily_job_enabled"),
		DailyJobHour:    v.GetInt("daily_job_hour"),
	}

	applyFallbacks(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("allowed_origin", "http://localhost:3000")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("db_max_open_conns", 30)
	v.SetDefault("db_tx_retries", 5)
	v.SetDefault("redis_db", 0)
	v.SetDefault("listing_cache_ttl_seconds", 30)
	v.SetDefault("access_token_ttl_minutes", 480)
	v.SetDefault("seed_admin_username", "admin")
	v.SetDefault("image_url_ttl_seconds", 60)
	v.SetDefault("daily_job_enabled", true)
	v.SetDefault("daily_job_hour", 0)
}

func applyFallbacks(cfg *Config) {
	if cfg.DBMaxOpenConns < 1 {
		cfg.DBMaxOpenConns = 30
	}
	if cfg.DBTxRetries < 1 {
		cfg.DBTxRetries = 5
	}
	if cfg.ListingCacheTTL <= 0 {
		cfg.ListingCacheTTL = 30 * time.Second
	}
	if cfg.AccessTokenTTLMinutes < 1 {
		cfg.AccessTokenTTLMinutes = 480
	}
	if cfg.ImageURLTTL <= 0 {
		cfg.ImageURLTTL = time.Minute
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.DailyJobHour < 0 || c.DailyJobHour > 23 {
		errs = append(errs, fmt.Errorf("DAILY_JOB_HOUR must be within 0..23, got %d", c.DailyJobHour))
	}
	if c.RedisDB < 0 {
		errs = append(errs, fmt.Errorf("REDIS_DB must not be negative"))
	}
	if c.ImageStorageEnabled() && c.R2Endpoint == "" {
		errs = append(errs, fmt.Errorf("R2_ENDPOINT is required when R2 credentials are set"))
	}
	return errors.Join(errs...)
}

func (c Config) Production() bool {
	return c.Env == "production" || c.Env == "prod"
}

func (c Config) ImageStorageEnabled() bool {
	return c.R2Bucket != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != ""
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}
