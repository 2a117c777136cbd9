package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DriverChromedp   = "chromedp"
	DriverPlaywright = "playwright"
)

// Mobile Safari; the review list renders without sign-in on mobile.
const defaultUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string

	BrowserDriver string
	Headless      bool
	UserAgent     string
	NavTimeout    time.Duration
	NavRPS        float64
	MaxPages      int

	ExtractMode    string
	PatternsFile   string
	LoaderMaxIters int
	LoaderStalls   int

	RedisAddr string
	RedisDB   int
	RedisPass string
	CacheTTL  time.Duration

	MySQLDSN       string
	Workers        int
	ReviewCount    int
	IngestURLs     []string
	IngestURLsFile string
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Msg("ignoring non-integer value")
		}
		return def
	}
	atof := func(k string, def float64) float64 {
		if v := os.Getenv(k); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
			log.Warn().Str("key", k).Msg("ignoring non-numeric value")
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),

		BrowserDriver: strings.ToLower(env("BROWSER_DRIVER", DriverChromedp)),
		Headless:      env("HEADLESS", "true") != "false",
		UserAgent:     env("USER_AGENT", defaultUserAgent),
		NavTimeout:    time.Duration(atoi("NAV_TIMEOUT_SECONDS", 60)) * time.Second,
		NavRPS:        atof("NAV_RPS", 1),
		MaxPages:      atoi("MAX_PAGES", 4),

		ExtractMode:    env("EXTRACT_MODE", "auto"),
		PatternsFile:   env("PATTERNS_FILE", ""),
		LoaderMaxIters: atoi("LOADER_MAX_ITERATIONS", 50),
		LoaderStalls:   atoi("LOADER_STALL_LIMIT", 10),

		RedisAddr: env("REDIS_ADDR", ""),
		RedisPass: env("REDIS_PASSWORD", ""),
		RedisDB:   atoi("REDIS_DB", 0),
		CacheTTL:  time.Duration(atoi("CACHE_TTL_SECONDS", 0)) * time.Second,

		MySQLDSN:       env("MYSQL_DSN", ""),
		Workers:        atoi("INGEST_WORKERS", 2),
		ReviewCount:    atoi("INGEST_REVIEW_COUNT", 50),
		IngestURLs:     splitList(env("INGEST_URLS", "")),
		IngestURLsFile: env("INGEST_URLS_FILE", ""),
	}
	if c.BrowserDriver != DriverChromedp && c.BrowserDriver != DriverPlaywright {
		log.Warn().Str("driver", c.BrowserDriver).Msg("unknown BROWSER_DRIVER, using chromedp")
		c.BrowserDriver = DriverChromedp
	}
	if c.MaxPages < 1 {
		c.MaxPages = 1
	}
	return c
}

// CacheEnabled reports whether results should go through Redis.
func (c Config) CacheEnabled() bool { return c.RedisAddr != "" && c.CacheTTL > 0 }

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
