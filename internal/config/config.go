package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"

	RasterCanvas = "canvas"
	RasterChrome = "chrome"
)

type Config struct {
	Port    int
	BaseURL string

	// SessionSecret signs session cookies. When GeneratedSecret is true it
	// was made up at startup and sessions will not survive a restart.
	SessionSecret   []byte
	GeneratedSecret bool
	SessionTTL      time.Duration
	SessionStore    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Rasterizer    string
	ChromeBin     string
	ChromeURL     string
	RenderTimeout time.Duration

	MaxPhotoBytes int64
	LogLevel      string
}

// Load reads .env (if present) and then the environment.
func Load() (Config, error) {
	// a missing .env is fine; real deployments use the environment
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() (Config, error) {
	cfg := Config{
		BaseURL:       strings.TrimRight(getenv("BASE_URL", "http://localhost:8080"), "/"),
		SessionStore:  strings.ToLower(getenv("SESSION_STORE", StoreMemory)),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		Rasterizer:    strings.ToLower(getenv("RASTERIZER", RasterCanvas)),
		ChromeBin:     os.Getenv("CHROME_BIN"),
		ChromeURL:     os.Getenv("CHROME_URL"),
		LogLevel:      strings.ToLower(getenv("LOG_LEVEL", "info")),
	}

	var err error
	if cfg.Port, err = intEnv("PORT", 8080); err != nil {
		return Config{}, err
	}
	if cfg.RedisDB, err = intEnv("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL, err = durationEnv("SESSION_TTL", 2*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.RenderTimeout, err = durationEnv("RENDER_TIMEOUT", 30*time.Second); err != nil {
		return Config{}, err
	}
	maxPhoto, err := intEnv("MAX_PHOTO_BYTES", 5<<20)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxPhotoBytes = int64(maxPhoto)

	if s := os.Getenv("SESSION_SECRET"); s != "" {
		cfg.SessionSecret = []byte(s)
	} else if s := os.Getenv("JWT_SECRET"); s != "" {
		cfg.SessionSecret = []byte(s)
	} else {
		cfg.SessionSecret = make([]byte, 32)
		if _, err := rand.Read(cfg.SessionSecret); err != nil {
			return Config{}, fmt.Errorf("generate session secret: %w", err)
		}
		cfg.GeneratedSecret = true
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	switch c.SessionStore {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("unknown SESSION_STORE %q (want memory or redis)", c.SessionStore)
	}
	switch c.Rasterizer {
	case RasterCanvas, RasterChrome:
	default:
		return fmt.Errorf("unknown RASTERIZER %q (want canvas or chrome)", c.Rasterizer)
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.MaxPhotoBytes <= 0 {
		return errors.New("MAX_PHOTO_BYTES must be positive")
	}
	return nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable: %w", key, err)
	}
	return d, nil
}
