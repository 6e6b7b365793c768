package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type AppCfg struct {
	Env          string        `yaml:"env"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	RatePerIP    int           `yaml:"rate_per_ip_per_minute"`
	JWT          struct {
		Secret       string        `yaml:"secret"`
		FlowTokenTTL time.Duration `yaml:"flowTokenTTL"`
		AccessTTL    time.Duration `yaml:"accessTTL"`
	} `yaml:"jwt"`
}

type MongoCfg struct {
	URI                string `yaml:"uri"`
	Database           string `yaml:"database"`
	UsersCollection    string `yaml:"usersCollection"`
	ProfilesCollection string `yaml:"profilesCollection"`
	MaxPoolSize        uint64 `yaml:"maxPoolSize"`
}

type RedisCfg struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"poolSize"`
}

type TwilioCfg struct {
	AccountSID string `yaml:"accountSID"`
	AuthToken  string `yaml:"authToken"`
	From       string `yaml:"from"`
}

type BrevoCfg struct {
	APIKey    string `yaml:"apiKey"`
	FromEmail string `yaml:"fromEmail"`
	FromName  string `yaml:"fromName"`
}

type SecurityCfg struct {
	EncryptionKey      string        `yaml:"encryptionKey"`
	OTPLength          int           `yaml:"otpLength"`
	OTPExpiration      time.Duration `yaml:"otpExpiration"`
	OTPResendInterval  time.Duration `yaml:"otpResendInterval"`
	OTPRateLimit       int           `yaml:"otpRateLimit"`
	OTPRateWindow      time.Duration `yaml:"otpRateWindow"`
	OTPMaxAttempts     int           `yaml:"otpMaxAttempts"`
	TempDataExpiration time.Duration `yaml:"tempDataExpiration"`
	MaxLoginAttempts   int           `yaml:"maxLoginAttempts"`
	LockDuration       time.Duration `yaml:"lockDuration"`
	Argon2Memory       uint32        `yaml:"argon2Memory"`
	Argon2Iterations   uint32        `yaml:"argon2Iterations"`
	Argon2Parallelism  uint8         `yaml:"argon2Parallelism"`
}

type Config struct {
	App      AppCfg      `yaml:"app"`
	Mongo    MongoCfg    `yaml:"mongo"`
	Redis    RedisCfg    `yaml:"redis"`
	Twilio   TwilioCfg   `yaml:"twilio"`
	Brevo    BrevoCfg    `yaml:"brevo"`
	Security SecurityCfg `yaml:"security"`
}

// Load reads the YAML config at path and applies environment overrides.
// Secrets are expected to come from the environment in production.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	override := func(env string, apply func(string)) {
		if v := os.Getenv(env); v != "" {
			apply(v)
		}
	}
	overrideDur := func(env string, apply func(time.Duration)) {
		override(env, func(v string) {
			if d, err := time.ParseDuration(v); err == nil {
				apply(d)
			}
		})
	}
	overrideInt := func(env string, apply func(int)) {
		override(env, func(v string) {
			if n, err := strconv.Atoi(v); err == nil {
				apply(n)
			}
		})
	}

	override("APP_ENV", func(v string) { cfg.App.Env = v })
	overrideInt("APP_PORT", func(n int) { cfg.App.Port = n })
	override("JWT_SECRET", func(v string) { cfg.App.JWT.Secret = v })
	overrideDur("JWT_FLOW_TOKEN_TTL", func(d time.Duration) { cfg.App.JWT.FlowTokenTTL = d })
	overrideDur("JWT_ACCESS_TTL", func(d time.Duration) { cfg.App.JWT.AccessTTL = d })
	override("MONGO_URI", func(v string) { cfg.Mongo.URI = v })
	override("MONGO_DB", func(v string) { cfg.Mongo.Database = v })
	override("REDIS_ADDR", func(v string) { cfg.Redis.Addr = v })
	override("REDIS_PASSWORD", func(v string) { cfg.Redis.Password = v })
	overrideInt("REDIS_DB", func(n int) { cfg.Redis.DB = n })
	override("TWILIO_ACCOUNT_SID", func(v string) { cfg.Twilio.AccountSID = v })
	override("TWILIO_AUTH_TOKEN", func(v string) { cfg.Twilio.AuthToken = v })
	override("TWILIO_FROM", func(v string) { cfg.Twilio.From = v })
	override("BREVO_API_KEY", func(v string) { cfg.Brevo.APIKey = v })
	override("BREVO_FROM_EMAIL", func(v string) { cfg.Brevo.FromEmail = v })
	override("BREVO_FROM_NAME", func(v string) { cfg.Brevo.FromName = v })
	override("ENCRYPTION_KEY", func(v string) { cfg.Security.EncryptionKey = v })
	overrideInt("OTP_LENGTH", func(n int) { cfg.Security.OTPLength = n })
	overrideDur("OTP_EXPIRATION", func(d time.Duration) { cfg.Security.OTPExpiration = d })
	overrideDur("OTP_RESEND_INTERVAL", func(d time.Duration) { cfg.Security.OTPResendInterval = d })
	overrideInt("OTP_RATE_LIMIT", func(n int) { cfg.Security.OTPRateLimit = n })
	overrideDur("OTP_RATE_WINDOW", func(d time.Duration) { cfg.Security.OTPRateWindow = d })
	overrideInt("OTP_MAX_ATTEMPTS", func(n int) { cfg.Security.OTPMaxAttempts = n })
	overrideDur("TEMP_DATA_EXPIRATION", func(d time.Duration) { cfg.Security.TempDataExpiration = d })
	overrideInt("MAX_LOGIN_ATTEMPTS", func(n int) { cfg.Security.MaxLoginAttempts = n })
	overrideDur("LOCK_DURATION", func(d time.Duration) { cfg.Security.LockDuration = d })

	applyDefaults(cfg)

	if cfg.App.JWT.Secret == "" {
		return nil, errors.New("JWT_SECRET is required (set in .env or config.yaml)")
	}
	if cfg.Security.EncryptionKey == "" {
		return nil, errors.New("ENCRYPTION_KEY is required (set in .env or config.yaml)")
	}
	if cfg.Mongo.URI == "" {
		return nil, errors.New("MONGO_URI is required")
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Port == 0 {
		cfg.App.Port = 8080
	}
	if cfg.App.RatePerIP == 0 {
		cfg.App.RatePerIP = 60
	}
	if cfg.App.JWT.FlowTokenTTL == 0 {
		cfg.App.JWT.FlowTokenTTL = 30 * time.Minute
	}
	if cfg.App.JWT.AccessTTL == 0 {
		cfg.App.JWT.AccessTTL = 15 * time.Minute
	}
	if cfg.Mongo.UsersCollection == "" {
		cfg.Mongo.UsersCollection = "users"
	}
	if cfg.Mongo.ProfilesCollection == "" {
		cfg.Mongo.ProfilesCollection = "user_profiles"
	}
	if cfg.Security.OTPLength == 0 {
		cfg.Security.OTPLength = 6
	}
	if cfg.Security.OTPExpiration == 0 {
		cfg.Security.OTPExpiration = 5 * time.Minute
	}
	if cfg.Security.OTPResendInterval == 0 {
		cfg.Security.OTPResendInterval = time.Minute
	}
	if cfg.Security.OTPRateLimit == 0 {
		cfg.Security.OTPRateLimit = 5
	}
	if cfg.Security.OTPRateWindow == 0 {
		cfg.Security.OTPRateWindow = 5 * time.Minute
	}
	if cfg.Security.OTPMaxAttempts == 0 {
		cfg.Security.OTPMaxAttempts = 5
	}
	if cfg.Security.TempDataExpiration == 0 {
		cfg.Security.TempDataExpiration = 10 * time.Minute
	}
	if cfg.Security.MaxLoginAttempts == 0 {
		cfg.Security.MaxLoginAttempts = 5
	}
	if cfg.Security.LockDuration == 0 {
		cfg.Security.LockDuration = 2 * time.Hour
	}
	if cfg.Security.Argon2Memory == 0 {
		cfg.Security.Argon2Memory = 64 * 1024
	}
	if cfg.Security.Argon2Iterations == 0 {
		cfg.Security.Argon2Iterations = 3
	}
	if cfg.Security.Argon2Parallelism == 0 {
		cfg.Security.Argon2Parallelism = 2
	}
}
