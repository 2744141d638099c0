package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type config struct {
	port           int
	rateEnabled    bool
	rateRequests   int
	rateWindow     time.Duration
	rateKeyHeader  string
	trustXFF       bool
	trustedProxies []string
	retryAfter     time.Duration
	addHeaders     bool

	cacheTTL        time.Duration
	cleanupInterval time.Duration
	rdnsServers     []string
	rdnsTimeout     time.Duration
	rdnsQPS         float64
	rdnsBurst       int
	rdnsMaxInFlight int

	requestTimeout     time.Duration
	concurrencyMax     int
	concurrencyTimeout time.Duration

	rateStatsEnabled       bool
	rateStatsRedisAddr     string
	rateStatsRedisPassword string
	rateStatsRedisDB       int
	rateStatsPrefix        string
	rateStatsTTL           time.Duration
	rateStatsBucket        string
	rateStatsTrackKeys     bool

	logFormat string
	logLevel  string
}

var errMissingPort = errors.New("port is required: use --port or PORT")

// readConfig lê .env (se existir), flags e variáveis de ambiente, nessa ordem
// de precedência: --port > PORT.
func readConfig(args []string) (config, error) {
	// .env é opcional; variáveis já exportadas têm prioridade.
	_ = godotenv.Load()

	fs := flag.NewFlagSet("ip-api", flag.ContinueOnError)
	port := fs.Int("port", 0, "listen port (7112 binds dual stack [::])")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	cfg := config{}
	cfg.port = *port
	if cfg.port == 0 {
		cfg.port = getenvIntDefault("PORT", 0)
	}
	if cfg.port <= 0 || cfg.port > 65535 {
		return config{}, errMissingPort
	}

	cfg.rateEnabled = getenvBoolDefault("RATE_ENABLED", true)
	cfg.rateRequests = getenvIntDefault("RATE_LIMIT_REQUESTS", 60)
	cfg.rateWindow = getenvSecsDefault("RATE_LIMIT_WINDOW_SECS", 60*time.Second)
	if cfg.rateWindow == 0 {
		cfg.rateWindow = 60 * time.Second
	}
	cfg.rateKeyHeader = os.Getenv("RATE_KEY_HEADER")
	// exposto direto à internet, use TRUST_XFF=false ou TRUSTED_PROXIES: sem isso
	// o cliente troca o X-Forwarded-For e ganha uma cota nova a cada requisição.
	cfg.trustXFF = getenvBoolDefault("TRUST_XFF", true)
	cfg.trustedProxies = getenvList("TRUSTED_PROXIES")
	cfg.retryAfter = getenvDurationDefault("RETRY_AFTER", cfg.rateWindow)
	cfg.addHeaders = getenvBoolDefault("ADD_RATELIMIT_HEADERS", false)

	cfg.cacheTTL = getenvSecsDefault("DNS_CACHE_TTL_SECS", 300*time.Second)
	cfg.cleanupInterval = getenvDurationDefault("CLEANUP_INTERVAL", 5*time.Minute)
	if cfg.cleanupInterval == 0 {
		cfg.cleanupInterval = 5 * time.Minute
	}
	cfg.rdnsServers = getenvList("RDNS_SERVERS")
	cfg.rdnsTimeout = getenvDurationDefault("RDNS_TIMEOUT", 2*time.Second)
	cfg.rdnsQPS = getenvFloatDefault("RDNS_QPS", 0)
	cfg.rdnsBurst = getenvIntDefault("RDNS_BURST", 10)
	cfg.rdnsMaxInFlight = getenvIntDefault("RDNS_MAX_INFLIGHT", 64)

	cfg.requestTimeout = getenvSecsDefault("REQUEST_TIMEOUT_SECS", 30*time.Second)
	if cfg.requestTimeout == 0 {
		cfg.requestTimeout = 30 * time.Second
	}
	cfg.concurrencyMax = getenvIntDefault("CONCURRENCY_MAX", 100)
	cfg.concurrencyTimeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", 0)

	cfg.rateStatsEnabled = getenvBoolDefault("RATE_STATS_ENABLED", false)
	cfg.rateStatsRedisAddr = getenvDefault("RATE_STATS_REDIS_ADDR", "")
	cfg.rateStatsRedisPassword = os.Getenv("RATE_STATS_REDIS_PASSWORD")
	cfg.rateStatsRedisDB = getenvIntDefault("RATE_STATS_REDIS_DB", 0)
	cfg.rateStatsPrefix = getenvDefault("RATE_STATS_PREFIX", "ipapi:ratelimit")
	cfg.rateStatsTTL = getenvDurationDefault("RATE_STATS_TTL", 24*time.Hour)
	cfg.rateStatsBucket = getenvDefault("RATE_STATS_BUCKET", "minute")
	cfg.rateStatsTrackKeys = getenvBoolDefault("RATE_STATS_TRACK_KEYS", false)

	cfg.logFormat = strings.ToLower(getenvDefault("LOG_FORMAT", "text"))
	cfg.logLevel = strings.ToLower(getenvDefault("LOG_LEVEL", "info"))

	if cfg.rateStatsEnabled && strings.TrimSpace(cfg.rateStatsRedisAddr) == "" {
		return config{}, errors.New("RATE_STATS_REDIS_ADDR is required when RATE_STATS_ENABLED=true")
	}
	if cfg.logFormat != "text" && cfg.logFormat != "json" {
		return config{}, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.logFormat)
	}
	return cfg, nil
}

// bindAddress: 7112 escuta em [::] (dual stack), o resto só IPv4.
func bindAddress(port int) (network, addr string) {
	if port == 7112 {
		return "tcp", fmt.Sprintf("[::]:%d", port)
	}
	return "tcp4", fmt.Sprintf("0.0.0.0:%d", port)
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// getenvIntDefault: valor inválido ou negativo volta para o default.
func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || i < 0 {
		return def
	}
	return i
}

func getenvSecsDefault(k string, def time.Duration) time.Duration {
	secs := getenvIntDefault(k, -1)
	if secs < 0 {
		return def
	}
	return time.Duration(secs) * time.Second
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def
	}
	return d
}

func getenvList(k string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(k), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
