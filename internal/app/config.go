package app

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
)

type Config struct {
	Env       string
	Port      string
	HTTPAddr  string
	CORSAllow []string

	RedisAddr string // host:port, empty keeps rooms in process memory
	RedisDB   int

	RateLimitPerMin int
}

// Shared reports whether rooms and color relays go through redis
func (c Config) Shared() bool { return c.RedisAddr != "" }

// OriginPatterns turns the CORS allowlist into websocket origin host
// patterns: "http://localhost:4200" becomes "localhost:4200", "*" stays "*"
func (c Config) OriginPatterns() []string {
	var out []string
	for _, o := range c.CORSAllow {
		if !strings.Contains(o, "://") {
			out = append(out, o)
			continue
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		out = append(out, u.Host)
	}
	return out
}

func LoadConfig() Config {
	cfg := Config{
		Env:       getEnv("APP_ENV", "dev"),
		Port:      getEnv("PORT", "5500"),
		RedisAddr: getEnv("REDIS_ADDR", ""),
	}
	cfg.HTTPAddr = ":" + strings.TrimPrefix(cfg.Port, ":")
	cfg.RedisDB = getEnvInt("REDIS_DB", 0)
	cfg.RateLimitPerMin = getEnvInt("RATE_LIMIT_PER_MIN", 120)
	// CORS allowlist
	allow := getEnv("CORS_ALLOW", "*")
	cfg.CORSAllow = splitCSV(allow)
	log.Printf("config: %+v\n", cfg)
	return cfg
}

// getEnv returns the env var or a default
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// getEnvInt parses an int env var with a fallback
func getEnvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		var i int
		_, _ = fmt.Sscanf(v, "%d", &i)
		if i > 0 {
			return i
		}
	}
	return def
}

// splitCSV trims and filters a comma-separated list
func splitCSV(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
