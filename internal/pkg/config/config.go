package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	ServerAddr         string        `env:"SERVER_ADDR" envDefault:":8080"`
	OpsAddr            string        `env:"OPS_ADDR" envDefault:":9091"`
	PostgresURL        string        `env:"POSTGRES_URL,required"`
	RedisAddr          string        `env:"REDIS_ADDR"`
	KafkaBrokers       string        `env:"KAFKA_BROKERS"`
	KafkaAuditTopic    string        `env:"KAFKA_AUDIT_TOPIC" envDefault:"identity.audit"`
	JWTSecret          string        `env:"JWT_SECRET,required"`
	AccessTokenTTL     time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL    time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
	QuickLoginSecret   string        `env:"QUICK_LOGIN_SECRET,required"`
	QuickLoginMaxAge   time.Duration `env:"QUICK_LOGIN_MAX_AGE" envDefault:"12h"`
	PlatformHosts      string        `env:"PLATFORM_HOSTS" envDefault:"localhost"`
	DirectoryCacheTTL  time.Duration `env:"DIRECTORY_CACHE_TTL" envDefault:"30s"`
	LoginRatePerMinute int           `env:"LOGIN_RATE_PER_MINUTE" envDefault:"10"`
	LoginBurst         int           `env:"LOGIN_BURST" envDefault:"5"`
}

// PlatformHostList splits the configured platform hosts.
func (c *Config) PlatformHostList() []string {
	parts := strings.Split(c.PlatformHosts, ",")
	hosts := make([]string, 0, len(parts))
	for _, p := range parts {
		if h := strings.ToLower(strings.TrimSpace(p)); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
