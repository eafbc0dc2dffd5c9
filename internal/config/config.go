package config

import (
	"os"
	"strconv"
	"time"
)

// Runtime configuration resolved from environment variables with defaults
// suitable for local development. Bidding defaults encode the marketplace
// rules: a 24 hour window, extended twice by 12 hours before a purge.
type Config struct {
	HTTP struct {
		Addr string
	}
	DB struct {
		// Empty URL selects the in-memory repositories.
		URL string
	}
	Redis struct {
		// Empty Addr routes events to the log sink.
		Addr   string
		Stream string
	}
	Log struct {
		Level  string
		Format string
	}
	Bidding struct {
		Window        time.Duration
		Extension     time.Duration
		MaxExtensions int
	}
	Sweep struct {
		Interval    time.Duration
		Parallelism int
	}
	Lock struct {
		AcquireTimeout time.Duration
	}
	Detour struct {
		// "straightline" or "googlemaps".
		Estimator  string
		MapsAPIKey string
		// How long cached estimates stay fresh when Redis is configured.
		CacheTTL time.Duration
	}
	Directory struct {
		// Empty BaseURL treats every courier as eligible.
		BaseURL string
	}
}

func Load() Config {
	var cfg Config
	cfg.HTTP.Addr = Get("HTTP_ADDR", ":8080")
	cfg.DB.URL = os.Getenv("DATABASE_URL")
	cfg.Redis.Addr = os.Getenv("REDIS_ADDR")
	cfg.Redis.Stream = Get("EVENT_STREAM", "marketplace.events")
	cfg.Log.Level = Get("LOG_LEVEL", "info")
	cfg.Log.Format = Get("LOG_FORMAT", "json")
	cfg.Bidding.Window = getDuration("BIDDING_WINDOW", 24*time.Hour)
	cfg.Bidding.Extension = getDuration("BIDDING_EXTENSION", 12*time.Hour)
	cfg.Bidding.MaxExtensions = getInt("MAX_EXTENSIONS", 2)
	cfg.Sweep.Interval = getDuration("SWEEP_INTERVAL", time.Minute)
	cfg.Sweep.Parallelism = getInt("SWEEP_PARALLELISM", 8)
	cfg.Lock.AcquireTimeout = getDuration("LOCK_TIMEOUT", 3*time.Second)
	cfg.Detour.Estimator = Get("DETOUR_ESTIMATOR", "straightline")
	cfg.Detour.MapsAPIKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	cfg.Detour.CacheTTL = getDuration("DETOUR_CACHE_TTL", 24*time.Hour)
	cfg.Directory.BaseURL = os.Getenv("COURIER_DIRECTORY_URL")
	return cfg
}

// Return the environment value for key, or fallback when unset or empty.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
