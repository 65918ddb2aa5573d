package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all the configuration for the application.
type Config struct {
	Env          string `yaml:"env" env:"ENV" env-default:"production"`
	HTTPServer   `yaml:"http_server"`
	Database     `yaml:"database"`
	Redis        `yaml:"redis"`
	URLShortener `yaml:"url_shortener"`
	RateLimit    `yaml:"rate_limit"`
	Analytics    `yaml:"analytics"`
	Auth         `yaml:"auth"`
}

// HTTPServer holds HTTP listener configuration.
type HTTPServer struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"30s"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:1603,http://localhost:3000"`
}

// Database holds the link store configuration.
type Database struct {
	Driver          string `yaml:"driver" env:"DB_DRIVER" env-default:"postgres"` // postgres | memory
	Host            string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port            int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User            string `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password        string `yaml:"password" env:"DB_PASSWORD"`
	DBName          string `yaml:"dbname" env:"DB_NAME" env-default:"shawty"`
	SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE" env-default:"disable"`
	Timezone        string `yaml:"timezone" env:"DB_TIMEZONE" env-default:"UTC"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"50"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" env-default:"1h"`
	AutoMigrate     bool   `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE" env-default:"true"`
}

// Redis holds the cache and rate limiter backend configuration.
type Redis struct {
	Enabled  bool   `yaml:"enabled" env:"REDIS_ENABLED" env-default:"true"`
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	PoolSize int    `yaml:"pool_size" env:"REDIS_POOL_SIZE" env-default:"20"`
}

// URLShortener holds service-specific configuration.
type URLShortener struct {
	AliasLength        int           `yaml:"alias_length" env:"ALIAS_LENGTH" env-default:"6"`
	MaxAttempts        int           `yaml:"max_attempts" env:"ALIAS_MAX_ATTEMPTS" env-default:"10"`
	CacheTTL           time.Duration `yaml:"cache_ttl" env:"CACHE_TTL" env-default:"1h"`
	BaseURL            string        `yaml:"base_url" env:"BASE_URL" env-default:"http://localhost:8080"`
	UnlockURL          string        `yaml:"unlock_url" env:"UNLOCK_URL" env-default:"/unlock"`
	BloomCapacity      uint          `yaml:"bloom_capacity" env:"BLOOM_CAPACITY" env-default:"1000000"`
	BloomFalsePositive float64       `yaml:"bloom_false_positive" env:"BLOOM_FALSE_POSITIVE" env-default:"0.01"`
}

// RateLimit holds the anonymous creation and unlock throttling limits.
type RateLimit struct {
	AnonymousLimit  int64         `yaml:"anonymous_limit" env:"RATE_LIMIT_ANONYMOUS" env-default:"5"`
	AnonymousWindow time.Duration `yaml:"anonymous_window" env:"RATE_LIMIT_WINDOW" env-default:"720h"`
	UnlockLimit     int64         `yaml:"unlock_limit" env:"RATE_LIMIT_UNLOCK" env-default:"10"`
	UnlockWindow    time.Duration `yaml:"unlock_window" env:"RATE_LIMIT_UNLOCK_WINDOW" env-default:"15m"`
}

// Analytics holds the click enrichment worker configuration.
type Analytics struct {
	Workers     int           `yaml:"workers" env:"ANALYTICS_WORKERS" env-default:"4"`
	BufferSize  int           `yaml:"buffer_size" env:"ANALYTICS_BUFFER_SIZE" env-default:"1000"`
	Retries     int           `yaml:"retries" env:"ANALYTICS_RETRIES" env-default:"3"`
	RetryDelay  time.Duration `yaml:"retry_delay" env:"ANALYTICS_RETRY_DELAY" env-default:"500ms"`
	GeoURL      string        `yaml:"geo_url" env:"GEO_URL" env-default:"http://ip-api.com/json"`
	GeoTimeout  time.Duration `yaml:"geo_timeout" env:"GEO_TIMEOUT" env-default:"3s"`
	GeoCacheTTL time.Duration `yaml:"geo_cache_ttl" env:"GEO_CACHE_TTL" env-default:"24h"`
	DevCountry  string        `yaml:"dev_country" env:"DEV_COUNTRY" env-default:"Indonesia (Dev)"`
	JobTimeout  time.Duration `yaml:"job_timeout" env:"ANALYTICS_JOB_TIMEOUT" env-default:"10s"`
	RegexesPath string        `yaml:"regexes_path" env:"UA_REGEXES_PATH"`
}

// Auth holds token validation settings. Tokens are issued by the account service.
type Auth struct {
	JWTSecret      string        `yaml:"jwt_secret" env:"JWT_SECRET" env-default:"change-me"`
	Issuer         string        `yaml:"issuer" env:"JWT_ISSUER" env-default:"shawty"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl" env:"JWT_ACCESS_TOKEN_TTL" env-default:"24h"`
	BcryptCost     int           `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"12"`
}

// MustLoad loads the application configuration.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Load reads CONFIG_PATH (default config/local.yml) when it exists and falls
// back to environment variables only.
func Load() (*Config, error) {
	// Try to load .env file (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment variables")
	}

	var cfg Config

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/local.yml" // default path
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, err
		}
	} else {
		log.Println("Config file not found, using environment variables only")
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}
