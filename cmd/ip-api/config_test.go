package main

import (
	"errors"
	"testing"
	"time"
)

func TestReadConfig_Defaults(t *testing.T) {
	t.Setenv("PORT", "8080")

	cfg, err := readConfig(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.port != 8080 {
		t.Fatalf("expected port 8080, got %d", cfg.port)
	}
	if cfg.rateRequests != 60 || cfg.rateWindow != 60*time.Second {
		t.Fatalf("unexpected rate defaults: %d/%s", cfg.rateRequests, cfg.rateWindow)
	}
	if cfg.retryAfter != cfg.rateWindow {
		t.Fatalf("expected retryAfter to default to the window, got %s", cfg.retryAfter)
	}
	if cfg.cacheTTL != 300*time.Second {
		t.Fatalf("expected ttl 300s, got %s", cfg.cacheTTL)
	}
	if cfg.requestTimeout != 30*time.Second {
		t.Fatalf("expected request timeout 30s, got %s", cfg.requestTimeout)
	}
	if !cfg.trustXFF || !cfg.rateEnabled {
		t.Fatalf("expected trustXFF and rate enabled by default")
	}
}

func TestReadConfig_FlagOverridesEnv(t *testing.T) {
	t.Setenv("PORT", "8080")

	cfg, err := readConfig([]string{"--port", "7112"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.port != 7112 {
		t.Fatalf("expected flag port, got %d", cfg.port)
	}
}

func TestReadConfig_MissingPort(t *testing.T) {
	t.Setenv("PORT", "")

	if _, err := readConfig(nil); !errors.Is(err, errMissingPort) {
		t.Fatalf("expected errMissingPort, got %v", err)
	}
}

func TestReadConfig_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("RATE_LIMIT_REQUESTS", "-5")
	t.Setenv("RATE_LIMIT_WINDOW_SECS", "abc")
	t.Setenv("DNS_CACHE_TTL_SECS", "-1")
	t.Setenv("RDNS_TIMEOUT", "-2s")
	t.Setenv("REQUEST_TIMEOUT_SECS", "0")

	cfg, err := readConfig(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.rateRequests != 60 || cfg.rateWindow != 60*time.Second {
		t.Fatalf("expected defaults, got %d/%s", cfg.rateRequests, cfg.rateWindow)
	}
	if cfg.cacheTTL != 300*time.Second || cfg.rdnsTimeout != 2*time.Second {
		t.Fatalf("expected defaults, got ttl=%s timeout=%s", cfg.cacheTTL, cfg.rdnsTimeout)
	}
	if cfg.requestTimeout != 30*time.Second {
		t.Fatalf("expected zero request timeout to fall back to 30s, got %s", cfg.requestTimeout)
	}
}

func TestReadConfig_Lists(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("RDNS_SERVERS", " 1.1.1.1, ,8.8.8.8:53 ")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1")

	cfg, err := readConfig(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.rdnsServers) != 2 || cfg.rdnsServers[0] != "1.1.1.1" || cfg.rdnsServers[1] != "8.8.8.8:53" {
		t.Fatalf("unexpected servers: %v", cfg.rdnsServers)
	}
	if len(cfg.trustedProxies) != 1 {
		t.Fatalf("unexpected proxies: %v", cfg.trustedProxies)
	}
}

func TestReadConfig_StatsRequireRedisAddr(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("RATE_STATS_ENABLED", "true")
	t.Setenv("RATE_STATS_REDIS_ADDR", "")

	if _, err := readConfig(nil); err == nil {
		t.Fatalf("expected error without redis addr")
	}
}

func TestBindAddress(t *testing.T) {
	if n, a := bindAddress(7112); n != "tcp" || a != "[::]:7112" {
		t.Fatalf("expected dual stack for 7112, got %s %s", n, a)
	}
	if n, a := bindAddress(8080); n != "tcp4" || a != "0.0.0.0:8080" {
		t.Fatalf("expected ipv4 for 8080, got %s %s", n, a)
	}
}
