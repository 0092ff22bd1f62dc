package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr          = ":8080"
	defaultLogLevel          = "info"
	defaultLogFormat         = "console"
	defaultJWTSecret         = "change-me-jwt-secret"
	defaultBackendPrefix     = "/api/v1"
	defaultBackendTimeout    = "10s"
	defaultBroadcastDriver   = "reverb"
	defaultReverbPort        = "443"
	defaultReverbScheme      = "https"
	defaultRedisAddr         = "localhost:6379"
	defaultEventNamespace    = `App\Events\`
	defaultInterestChannel   = "formation-interests"
	defaultDatabaseURL       = "file:zetta.db"
	defaultReadStateBackend  = "sql"
	defaultResetClears       = "false"
	defaultRecentLimit       = "5"
	defaultSoundsDir         = "./public/sounds"
	defaultSubscribeTimeout  = "5s"
	driverReverb             = "reverb"
	driverRedis              = "redis"
	readStateSQL             = "sql"
	readStateRedis           = "redis"
)

// Config is the runtime configuration of the notification desk.
type Config struct {
	AppEnv    string
	HTTPAddr  string
	LogLevel  string
	LogFormat string
	JWTSecret string

	BackendURL     string
	BackendPrefix  string
	BackendToken   string
	BackendTimeout time.Duration

	BroadcastDriver  string
	ReverbAppKey     string
	ReverbHost       string
	ReverbPort       int
	ReverbScheme     string
	SubscribeTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	EventNamespace  string
	InterestChannel string

	DatabaseURL          string
	ReadStateBackend     string
	ResetClearsReadState bool
	RecentLimit          int
	SoundsDir            string

	CORSAllowedOrigins []string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{}

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", defaultLogLevel)))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(getEnv("LOG_FORMAT", defaultLogFormat)))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))

	cfg.BackendURL = strings.TrimRight(strings.TrimSpace(os.Getenv("BACKEND_URL")), "/")
	cfg.BackendPrefix = strings.TrimRight(strings.TrimSpace(getEnv("BACKEND_API_PREFIX", defaultBackendPrefix)), "/")
	cfg.BackendToken = strings.TrimSpace(os.Getenv("BACKEND_TOKEN"))

	var err error
	cfg.BackendTimeout, err = parseDurationEnv("BACKEND_TIMEOUT", defaultBackendTimeout)
	if err != nil {
		return nil, err
	}
	cfg.SubscribeTimeout, err = parseDurationEnv("BROADCAST_SUBSCRIBE_TIMEOUT", defaultSubscribeTimeout)
	if err != nil {
		return nil, err
	}

	cfg.BroadcastDriver = strings.ToLower(strings.TrimSpace(getEnv("BROADCAST_DRIVER", defaultBroadcastDriver)))
	cfg.ReverbAppKey = strings.TrimSpace(os.Getenv("REVERB_APP_KEY"))
	cfg.ReverbHost = strings.TrimSpace(os.Getenv("REVERB_HOST"))
	cfg.ReverbScheme = strings.ToLower(strings.TrimSpace(getEnv("REVERB_SCHEME", defaultReverbScheme)))
	cfg.ReverbPort, err = parseIntEnv("REVERB_PORT", defaultReverbPort)
	if err != nil {
		return nil, err
	}

	cfg.RedisAddr = strings.TrimSpace(getEnv("REDIS_ADDR", defaultRedisAddr))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisPrefix = os.Getenv("REDIS_PREFIX")
	cfg.RedisDB, err = parseIntEnv("REDIS_DB", "0")
	if err != nil {
		return nil, err
	}

	cfg.EventNamespace = getEnv("BROADCAST_EVENT_NAMESPACE", defaultEventNamespace)
	cfg.InterestChannel = strings.TrimSpace(getEnv("INTEREST_CHANNEL", defaultInterestChannel))

	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.ReadStateBackend = strings.ToLower(strings.TrimSpace(getEnv("READSTATE_BACKEND", defaultReadStateBackend)))
	cfg.ResetClearsReadState = parseBoolEnv("RESET_CLEARS_READ_STATE", defaultResetClears)
	cfg.RecentLimit, err = parseIntEnv("RECENT_LIMIT", defaultRecentLimit)
	if err != nil {
		return nil, err
	}
	cfg.SoundsDir = strings.TrimSpace(getEnv("SOUNDS_DIR", defaultSoundsDir))

	if extra := os.Getenv("CORS_ALLOWED_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
			}
		}
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReverbURL is the Pusher-protocol websocket endpoint of the Reverb server.
func (c *Config) ReverbURL() string {
	scheme := "ws"
	if c.ReverbScheme == "https" {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s:%d/app/%s?protocol=7&client=zetta&version=1.0", scheme, c.ReverbHost, c.ReverbPort, c.ReverbAppKey)
}

// UsesRedisBroadcast reports whether events arrive through Laravel's redis broadcaster.
func (c *Config) UsesRedisBroadcast() bool {
	return c.BroadcastDriver == driverRedis
}

// UsesRedisReadState reports whether read markers are stored in redis instead of SQL.
func (c *Config) UsesRedisReadState() bool {
	return c.ReadStateBackend == readStateRedis
}

func validateConfig(cfg *Config) error {
	if cfg.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL must be set")
	}
	if cfg.BackendTimeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be > 0")
	}
	if cfg.SubscribeTimeout <= 0 {
		return fmt.Errorf("BROADCAST_SUBSCRIBE_TIMEOUT must be > 0")
	}
	if cfg.InterestChannel == "" {
		return fmt.Errorf("INTEREST_CHANNEL must not be empty")
	}
	switch cfg.BroadcastDriver {
	case driverReverb:
		if cfg.ReverbAppKey == "" || cfg.ReverbHost == "" {
			return fmt.Errorf("REVERB_APP_KEY and REVERB_HOST must be set when BROADCAST_DRIVER=reverb")
		}
		if cfg.ReverbScheme != "http" && cfg.ReverbScheme != "https" {
			return fmt.Errorf("REVERB_SCHEME must be http or https")
		}
	case driverRedis:
	default:
		return fmt.Errorf("BROADCAST_DRIVER must be one of: reverb, redis")
	}
	if cfg.ReadStateBackend != readStateSQL && cfg.ReadStateBackend != readStateRedis {
		return fmt.Errorf("READSTATE_BACKEND must be one of: sql, redis")
	}
	if cfg.RecentLimit <= 0 {
		return fmt.Errorf("RECENT_LIMIT must be > 0")
	}

	if isProdLike(cfg.AppEnv) && isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
		return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
	}
	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
