package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// BlockhashSource selects which endpoint transfer blockhashes are fetched from.
type BlockhashSource string

const (
	BlockhashFromEphem BlockhashSource = "ephemeral"
	BlockhashFromProxy BlockhashSource = "proxy"
)

// Config holds environment-driven configuration.
type Config struct {
	ProxyURL   string
	EphemURL   string
	ProxyWSURL string
	EphemWSURL string
	Commitment string

	AirdropLamports  uint64
	TransferLamports uint64
	BlockhashSource  BlockhashSource
	ConfirmAfterSend bool
	SkipPreflight    bool

	ConfirmPollInterval time.Duration
	BlockhashCacheTTL   time.Duration
	WatchWindow         time.Duration

	Port           string
	RateLimitRPM   int
	MaxConcurrency int
	AdminToken     string
	MongoURI       string
	MongoDB        string
	LogLevel       string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getuint(key string, def uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getbool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getdur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// Load loads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		ProxyURL:            getenv("PROXY_RPC_URL", "http://127.0.0.1:9899"),
		EphemURL:            getenv("EPHEM_RPC_URL", "http://127.0.0.1:8899"),
		ProxyWSURL:          getenv("PROXY_WS_URL", ""),
		EphemWSURL:          getenv("EPHEM_WS_URL", ""),
		Commitment:          getenv("SOL_COMMITMENT", "confirmed"),
		AirdropLamports:     getuint("AIRDROP_LAMPORTS", 1_000_000_000),
		TransferLamports:    getuint("TRANSFER_LAMPORTS", 111),
		BlockhashSource:     BlockhashSource(getenv("BLOCKHASH_SOURCE", string(BlockhashFromEphem))),
		ConfirmAfterSend:    getbool("CONFIRM_AFTER_SEND", true),
		SkipPreflight:       getbool("SKIP_PREFLIGHT", true),
		ConfirmPollInterval: getdur("CONFIRM_POLL_INTERVAL", 400*time.Millisecond),
		BlockhashCacheTTL:   getdur("BLOCKHASH_CACHE_TTL", 0),
		WatchWindow:         getdur("WATCH_WINDOW", 5*time.Second),
		Port:                getenv("PORT", "8080"),
		RateLimitRPM:        getint("RATE_LIMIT_RPM", 10),
		MaxConcurrency:      getint("MAX_CONCURRENCY", 4),
		AdminToken:          getenv("ADMIN_TOKEN", ""),
		MongoURI:            getenv("MONGO_URI", ""),
		MongoDB:             getenv("MONGO_DB", "conjunto"),
		LogLevel:            getenv("LOG_LEVEL", "info"),
	}
}

var (
	ErrInvalidURL             = errors.New("invalid endpoint url")
	ErrInvalidCommitment      = errors.New("commitment must be processed, confirmed or finalized")
	ErrInvalidBlockhashSource = errors.New("blockhash source must be ephemeral or proxy")
	ErrInvalidPollInterval    = errors.New("confirm poll interval must be positive")
)

func checkURL(name, raw string, schemes ...string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%s %q: %w", name, raw, ErrInvalidURL)
	}
	for _, s := range schemes {
		if strings.EqualFold(u.Scheme, s) {
			return nil
		}
	}
	return fmt.Errorf("%s %q: scheme %q: %w", name, raw, u.Scheme, ErrInvalidURL)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.ProxyURL == "" || c.EphemURL == "" {
		return fmt.Errorf("proxy and ephemeral urls are required: %w", ErrInvalidURL)
	}
	for _, u := range []struct{ name, v string }{{"proxy url", c.ProxyURL}, {"ephemeral url", c.EphemURL}} {
		if err := checkURL(u.name, u.v, "http", "https"); err != nil {
			return err
		}
	}
	for _, u := range []struct{ name, v string }{{"proxy ws url", c.ProxyWSURL}, {"ephemeral ws url", c.EphemWSURL}} {
		if err := checkURL(u.name, u.v, "ws", "wss"); err != nil {
			return err
		}
	}
	switch c.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("%q: %w", c.Commitment, ErrInvalidCommitment)
	}
	switch c.BlockhashSource {
	case BlockhashFromEphem, BlockhashFromProxy:
	default:
		return fmt.Errorf("%q: %w", c.BlockhashSource, ErrInvalidBlockhashSource)
	}
	if c.ConfirmPollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	return nil
}
