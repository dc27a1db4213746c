// Package config loads startup configuration from the environment.
//
// A .env file in the working directory is loaded first (development
// convenience); real environment variables win over it. Everything the
// auth subsystem treats as policy — session lifetime, cookie security,
// the password and email-domain denylists, rate limits — comes from here
// rather than compiled constants.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full startup configuration.
type Config struct {
	Port   int
	DBPath string

	// SessionLifetime is the validity window of a new session and the
	// target of a sliding renewal.
	SessionLifetime time.Duration

	// SecureCookies forces the Secure attribute on session cookies.
	// Enable whenever the app is served over HTTPS.
	SecureCookies bool

	// CommonPasswords is the case-insensitive denylist of passwords
	// rejected at registration. Loaded from PASSWORD_DENYLIST_FILE when
	// set, otherwise a small built-in list.
	CommonPasswords []string

	// DisposableDomains is the denylist of throwaway email domains.
	// Loaded from DISPOSABLE_DOMAINS_FILE when set.
	DisposableDomains []string

	// AuthRatePerMin / AuthBurst throttle the /api/auth endpoints per
	// client IP. AuthRatePerMin <= 0 disables the limiter.
	AuthRatePerMin int
	AuthBurst      int
}

// Fallback denylists, used only when no file is configured. Deployments are
// expected to point the *_FILE variables at real lists (e.g. a top-10k
// passwords file); these cover the bare minimum so a default dev setup
// still enforces the policy.
var (
	defaultCommonPasswords = []string{
		"password", "123456", "12345678", "qwerty", "abc123", "111111", "123123",
	}
	defaultDisposableDomains = []string{
		"mailinator.com", "guerrillamail.com", "10minutemail.com",
		"tempmail.com", "yopmail.com",
	}
)

// Load reads configuration from .env (if present) and the environment.
func Load() (*Config, error) {
	// Ignore the error: a missing .env just means env-only configuration.
	_ = godotenv.Load()

	cfg := &Config{
		Port:            8080,
		DBPath:          "data/pawfinder.db",
		SessionLifetime: 30 * 24 * time.Hour,
		SecureCookies:   false,
		AuthRatePerMin:  10,
		AuthBurst:       10,
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("SESSION_LIFETIME"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("config: invalid SESSION_LIFETIME %q", v)
		}
		cfg.SessionLifetime = d
	}
	if v := os.Getenv("SECURE_COOKIES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("config: invalid SECURE_COOKIES %q", v)
		}
		cfg.SecureCookies = b
	}
	if v := os.Getenv("AUTH_RATE_PER_MIN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: invalid AUTH_RATE_PER_MIN %q", v)
		}
		cfg.AuthRatePerMin = n
	}
	if v := os.Getenv("AUTH_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("config: invalid AUTH_BURST %q", v)
		}
		cfg.AuthBurst = n
	}

	var err error
	cfg.CommonPasswords, err = loadDenylist(os.Getenv("PASSWORD_DENYLIST_FILE"), defaultCommonPasswords)
	if err != nil {
		return nil, fmt.Errorf("config: password denylist: %w", err)
	}
	cfg.DisposableDomains, err = loadDenylist(os.Getenv("DISPOSABLE_DOMAINS_FILE"), defaultDisposableDomains)
	if err != nil {
		return nil, fmt.Errorf("config: disposable domains: %w", err)
	}

	return cfg, nil
}

// loadDenylist reads one entry per line from path, skipping blanks and
// #-comments. An empty path returns the fallback list.
func loadDenylist(path string, fallback []string) ([]string, error) {
	if path == "" {
		return fallback, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
