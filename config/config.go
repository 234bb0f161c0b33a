package config

import (
	"log"

	"github.com/spf13/viper"
)

type WebServerConfig struct {
	Port            string `mapstructure:"port"`
	IP              string `mapstructure:"ip"`
	Scheme          string `mapstructure:"scheme"`
	ReadTimeout     int    `mapstructure:"read_timeout"`
	WriteTimeout    int    `mapstructure:"write_timeout"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type RedisConfig struct {
	Address          string `mapstructure:"address"`
	Password         string `mapstructure:"password"`
	DB               int    `mapstructure:"db"`
	PoolSize         int    `mapstructure:"pool_size"`
	MinIdleConns     int    `mapstructure:"min_idle_conns"`
	OperationTimeout int    `mapstructure:"operation_timeout"`
}

type CacheConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MaxSizeMB   int  `mapstructure:"max_size_mb"`
	TTLSeconds  int  `mapstructure:"ttl_seconds"`
	CounterSize int  `mapstructure:"counter_size"`
}

type VerificationConfig struct {
	CodeTTLMinutes  int `mapstructure:"code_ttl_minutes"`
	CooldownMinutes int `mapstructure:"cooldown_minutes"`
}

type CaptchaConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Secret    string `mapstructure:"secret"`
	VerifyURL string `mapstructure:"verify_url"`
}

type EmailConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     string `mapstructure:"smtp_port"`
	SMTPUsername string `mapstructure:"smtp_username"`
	SMTPPassword string `mapstructure:"smtp_password"`
	FromEmail    string `mapstructure:"from_email"`
	FromName     string `mapstructure:"from_name"`
}

// TierConfig holds the window and request budget for one admission tier.
type TierConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	Max           int `mapstructure:"max"`
}

type AdmissionConfig struct {
	CourseCreate  TierConfig `mapstructure:"course_create"`
	SectionCreate TierConfig `mapstructure:"section_create"`
	LinkOps       TierConfig `mapstructure:"link_ops"`
	Search        TierConfig `mapstructure:"search"`
	CourseDetail  TierConfig `mapstructure:"course_detail"`
	ClickTight    TierConfig `mapstructure:"click_tight"`
	ClickHourly   TierConfig `mapstructure:"click_hourly"`
	Report        TierConfig `mapstructure:"report"`
	VerifyCaller  TierConfig `mapstructure:"verify_caller"`
	VerifyGlobal  TierConfig `mapstructure:"verify_global"`
}

type Config struct {
	WebServer    WebServerConfig    `mapstructure:"webserver"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Verification VerificationConfig `mapstructure:"verification"`
	Captcha      CaptchaConfig      `mapstructure:"captcha"`
	Email        EmailConfig        `mapstructure:"email"`
	Admission    AdmissionConfig    `mapstructure:"admission"`
}

func LoadConfig() (Config, error) {
	var config Config

	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Enable environment variable overrides
	viper.SetEnvPrefix("COURSELINKS")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults and env vars still apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Error reading config file: %v", err)
			return config, err
		}
	}

	if err := viper.Unmarshal(&config); err != nil {
		log.Printf("Unable to decode into struct: %v", err)
		return config, err
	}

	return config, nil
}

func MustLoadConfig() Config {
	config, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return config
}

func setDefaults() {
	// WebServer defaults
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.ip", "127.0.0.1")
	viper.SetDefault("webserver.scheme", "http")
	viper.SetDefault("webserver.read_timeout", 15)
	viper.SetDefault("webserver.write_timeout", 15)
	viper.SetDefault("webserver.shutdown_timeout", 30)

	// Logging defaults
	viper.SetDefault("logging.level", "info")

	// Redis defaults
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.min_idle_conns", 5)
	viper.SetDefault("redis.operation_timeout", 5)

	// Cache defaults
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.max_size_mb", 50)
	viper.SetDefault("cache.ttl_seconds", 60)
	viper.SetDefault("cache.counter_size", 100000)

	// Verification defaults
	viper.SetDefault("verification.code_ttl_minutes", 15)
	viper.SetDefault("verification.cooldown_minutes", 15)

	// Captcha defaults (disabled until a secret is configured)
	viper.SetDefault("captcha.enabled", false)
	viper.SetDefault("captcha.secret", "")
	viper.SetDefault("captcha.verify_url", "https://hcaptcha.com/siteverify")

	// Email defaults (disabled means codes are logged instead of sent)
	viper.SetDefault("email.enabled", false)
	viper.SetDefault("email.smtp_host", "localhost")
	viper.SetDefault("email.smtp_port", "587")
	viper.SetDefault("email.smtp_username", "")
	viper.SetDefault("email.smtp_password", "")
	viper.SetDefault("email.from_email", "noreply@courselinks.app")
	viper.SetDefault("email.from_name", "Course Links")

	// Admission tier defaults
	viper.SetDefault("admission.course_create.window_seconds", 86400)
	viper.SetDefault("admission.course_create.max", 10)
	viper.SetDefault("admission.section_create.window_seconds", 86400)
	viper.SetDefault("admission.section_create.max", 10)
	viper.SetDefault("admission.link_ops.window_seconds", 60)
	viper.SetDefault("admission.link_ops.max", 30)
	viper.SetDefault("admission.search.window_seconds", 1)
	viper.SetDefault("admission.search.max", 100)
	viper.SetDefault("admission.course_detail.window_seconds", 1)
	viper.SetDefault("admission.course_detail.max", 20)
	viper.SetDefault("admission.click_tight.window_seconds", 60)
	viper.SetDefault("admission.click_tight.max", 3)
	viper.SetDefault("admission.click_hourly.window_seconds", 3600)
	viper.SetDefault("admission.click_hourly.max", 10)
	viper.SetDefault("admission.report.window_seconds", 60)
	viper.SetDefault("admission.report.max", 1)
	viper.SetDefault("admission.verify_caller.window_seconds", 60)
	viper.SetDefault("admission.verify_caller.max", 1)
	viper.SetDefault("admission.verify_global.window_seconds", 86400)
	viper.SetDefault("admission.verify_global.max", 300)
}
