package config

import (
	"context"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/hashicorp/vault-client-go"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var config = viper.New()

type Config struct {
	Platform struct {
		Name     string `mapstructure:"NAME"`
		Timezone string `mapstructure:"TIMEZONE"`
	} `mapstructure:"PLATFORM"`
	AppEnv     string `mapstructure:"APP_ENV"`
	AppName    string `mapstructure:"APP_NAME"`
	AppVersion string `mapstructure:"APP_VERSION"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`
	NodeID     int64  `mapstructure:"NODE_ID"`
	TLS        struct {
		Enable   bool   `mapstructure:"ENABLE"`
		CertPath string `mapstructure:"CERT_PATH"`
		KeyPath  string `mapstructure:"KEY_PATH"`
	} `mapstructure:"TLS"`
	Otel struct {
		Addr        string            `mapstructure:"ADDR"`
		URLPath     string            `mapstructure:"URL_PATH"`
		Insecure    bool              `mapstructure:"INSECURE"`
		Headers     map[string]string `mapstructure:"HEADERS"`
		SampleRatio float64           `mapstructure:"SAMPLE_RATIO"`
	} `mapstructure:"OTEL"`
	Server struct {
		Addr         string        `mapstructure:"ADDR"`
		ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
		WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
		IdleTimeout  time.Duration `mapstructure:"IDLE_TIMEOUT"`
	} `mapstructure:"HTTP_SERVER"`
	Database struct {
		Type           string        `mapstructure:"TYPE"`
		Host           string        `mapstructure:"HOST"`
		Port           string        `mapstructure:"PORT"`
		DBNAME         string        `mapstructure:"DBNAME"`
		User           string        `mapstructure:"USER"`
		Password       string        `mapstructure:"PASSWORD"`
		SSLMode        string        `mapstructure:"SSLMODE"`
		Timezone       string        `mapstructure:"TIMEZONE"`
		AutoMigrate    bool          `mapstructure:"AUTO_MIGRATE"`
		LogSQL         bool          `mapstructure:"LOG_SQL"`
		SlowThreshold  time.Duration `mapstructure:"SLOW_THRESHOLD"`
		ConnectionPool struct {
			MaxIdleConn     int           `mapstructure:"MAX_IDLE_CONN"`
			MaxOpenConns    int           `mapstructure:"MAX_OPEN_CONNS"`
			ConnMaxLifetime time.Duration `mapstructure:"CONN_MAX_LIFETIME"`
			ConnMaxIdleTime time.Duration `mapstructure:"CONN_MAX_IDLE_TIME"`
		} `mapstructure:"CONNECTION_POOL"`
	} `mapstructure:"DATABASE"`
	Redis struct {
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
		DialRetries int           `mapstructure:"DIAL_RETRIES"`
	} `mapstructure:"REDIS"`
	Worker struct {
		Concurrency     int           `mapstructure:"CONCURRENCY"`
		ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	} `mapstructure:"WORKER"`
	AccessControl struct {
		Model  string `mapstructure:"MODEL"`
		Policy string `mapstructure:"POLICY"`
	} `mapstructure:"ACCESS_CONTROL"`
	Flagsmith struct {
		Addr   string `mapstructure:"ADDR"`
		ApiKey string `mapstructure:"API_KEY"`
	} `mapstructure:"FLAGSMITH"`
	Vault struct {
		Enable bool   `mapstructure:"ENABLE"`
		Mount  string `mapstructure:"MOUNT"`
	} `mapstructure:"VAULT"`
	Payment struct {
		Provider     string        `mapstructure:"PROVIDER"`
		BaseURL      string        `mapstructure:"BASE_URL"`
		ClientID     string        `mapstructure:"CLIENT_ID"`
		ClientSecret string        `mapstructure:"CLIENT_SECRET"`
		Currency     string        `mapstructure:"CURRENCY"`
		EmailSubject string        `mapstructure:"EMAIL_SUBJECT"`
		Timeout      time.Duration `mapstructure:"TIMEOUT"`
		LockTTL      time.Duration `mapstructure:"LOCK_TTL"`
	} `mapstructure:"PAYMENT"`
	Compensation struct {
		AdminUserID      string `mapstructure:"ADMIN_USER_ID"`
		SweepConcurrency int    `mapstructure:"SWEEP_CONCURRENCY"`
		NightlySweep     bool   `mapstructure:"NIGHTLY_SWEEP"`
		NightlySweepHour int    `mapstructure:"NIGHTLY_SWEEP_HOUR"`
	} `mapstructure:"COMPENSATION"`
}

var Module = fx.Module("config", fx.Provide(LoadConfig))

type Params struct {
	fx.In
	Vault *vault.Client `optional:"true"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "lookbook-compensation")
	v.SetDefault("NODE_ID", 1)
	v.SetDefault("PLATFORM.TIMEZONE", "UTC")
	v.SetDefault("HTTP_SERVER.ADDR", "8080")
	v.SetDefault("OTEL.INSECURE", true)
	v.SetDefault("OTEL.SAMPLE_RATIO", 1.0)
	v.SetDefault("REDIS.DIAL_RETRIES", 5)
	v.SetDefault("DATABASE.TYPE", "postgres")
	v.SetDefault("DATABASE.SLOW_THRESHOLD", 200*time.Millisecond)
	v.SetDefault("VAULT.MOUNT", "secret")
	v.SetDefault("PAYMENT.PROVIDER", "venmo")
	v.SetDefault("PAYMENT.BASE_URL", "https://api-m.sandbox.paypal.com")
	v.SetDefault("PAYMENT.CURRENCY", "USD")
	v.SetDefault("PAYMENT.EMAIL_SUBJECT", "You have a payout!")
	v.SetDefault("PAYMENT.TIMEOUT", 30*time.Second)
	v.SetDefault("PAYMENT.LOCK_TTL", 2*time.Minute)
	v.SetDefault("WORKER.CONCURRENCY", 10)
	v.SetDefault("WORKER.SHUTDOWN_TIMEOUT", 30*time.Second)
	v.SetDefault("COMPENSATION.SWEEP_CONCURRENCY", 4)
	v.SetDefault("COMPENSATION.NIGHTLY_SWEEP_HOUR", 1)
}

func LoadConfig(p Params) *Config {
	setDefaults(config)

	config.SetConfigName("config")
	config.SetConfigType("yaml")
	config.AddConfigPath(".")

	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()

	if err := config.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			zap.L().Error("failed to read config", zap.Error(err))
			os.Exit(1)
		}
	}

	var cfg Config
	if err := config.Unmarshal(&cfg); err != nil {
		zap.L().Error("failed to unmarshal config", zap.Error(err))
		os.Exit(1)
	}

	if p.Vault != nil && cfg.Vault.Enable {
		if err := cfg.applySecrets(context.Background(), p.Vault); err != nil {
			zap.L().Error("failed get secret from vault", zap.Error(err))
			os.Exit(1)
		}
	}

	return &cfg
}

func (cfg *Config) applySecrets(ctx context.Context, client *vault.Client) error {
	zap.L().Info("Starting Get Secrets", zap.String("path", cfg.AppEnv))
	secret, err := client.Secrets.KvV2Read(ctx, cfg.AppEnv, vault.WithMountPath(cfg.Vault.Mount))
	if err != nil {
		return err
	}
	zap.L().Info("Success Get Secret")

	get := func(key, fallback string) string {
		if val, ok := secret.Data.Data[key].(string); ok && val != "" {
			return val
		}
		return fallback
	}

	cfg.Database.User = get("postgres_user", cfg.Database.User)
	cfg.Database.Password = get("postgres_password", cfg.Database.Password)
	cfg.Redis.Password = get("redis_password", cfg.Redis.Password)
	cfg.Flagsmith.ApiKey = get("flagsmith_api_key", cfg.Flagsmith.ApiKey)
	cfg.Payment.ClientID = get("payment_client_id", cfg.Payment.ClientID)
	cfg.Payment.ClientSecret = get("payment_client_secret", cfg.Payment.ClientSecret)
	return nil
}

// Location returns the platform timezone used for month boundaries and
// policy end-of-day cutoffs. Unknown zones fall back to UTC.
func (cfg *Config) Location() *time.Location {
	if cfg == nil || cfg.Platform.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(cfg.Platform.Timezone)
	if err != nil {
		zap.L().Warn("unknown platform timezone, using UTC", zap.String("timezone", cfg.Platform.Timezone), zap.Error(err))
		return time.UTC
	}
	return loc
}
