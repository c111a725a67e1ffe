package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort  string
	Environment string
	Debug       bool

	RedisURL string
	RedisTTL time.Duration

	// MaxRequestWait bounds a whole stream request. Zero disables the deadline.
	MaxRequestWait time.Duration

	// Base URL lists per scraper. An empty list disables the scraper.
	EZTVURLs   []string
	YTSURLs    []string
	TGXURLs    []string
	ApiBayURLs []string
	X1337xURLs []string

	FlaresolverrURL      string
	FlaresolverrSessions int
	SessionRefresh       time.Duration

	TGXDetailLimit int

	TitleBasicsPath string
}

func Load() *Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	return &Config{
		ServerPort:  getEnv("PORT", "7000"),
		Environment: getEnv("APP_ENV", "development"),
		Debug:       getEnv("DEBUG", "false") == "true",

		RedisURL: getEnv("REDIS_URL", ""),
		RedisTTL: time.Duration(getEnvInt("REDIS_TTL_HOURS", 24)) * time.Hour,

		MaxRequestWait: time.Duration(getEnvInt("MAX_REQUEST_WAIT_SECONDS", 0)) * time.Second,

		EZTVURLs:   getEnvList("EZTV_URL", "https://eztvx.to"),
		YTSURLs:    getEnvList("YTS_URL", "https://yts.mx"),
		TGXURLs:    getEnvList("TGX_URL", "https://torrentgalaxy.to"),
		ApiBayURLs: getEnvList("APIBAY_URL", "https://apibay.org"),
		X1337xURLs: getEnvList("X1337X_URL", "https://1337x.to"),

		FlaresolverrURL:      strings.TrimSuffix(getEnv("FLARESOLVERR_URL", ""), "/"),
		FlaresolverrSessions: getEnvInt("FLARESOLVERR_SESSIONS", 3),
		SessionRefresh:       time.Duration(getEnvInt("FLARESOLVERR_SESSION_REFRESH_MS", 600000)) * time.Millisecond,

		TGXDetailLimit: getEnvInt("TGX_DETAIL_LIMIT", 5),

		TitleBasicsPath: getEnv("TITLE_BASICS_PATH", "data/title.basics.tsv"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated env value into trimmed entries.
// An explicitly empty value yields an empty list (scraper disabled).
func getEnvList(key, defaultValue string) []string {
	value, set := os.LookupEnv(key)
	if !set {
		value = defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSuffix(strings.TrimSpace(part), "/")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
