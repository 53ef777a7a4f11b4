// Package config reads runtime settings from the environment. main loads a
// .env file first, so values there behave like exported variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Data source kinds accepted by DATASOURCE.
const (
	SourceMemory   = "memory"
	SourceGeoJSON  = "geojson"
	SourcePostgres = "postgres"
)

type Postgres struct {
	DSN     string
	Table   string
	MaxOpen int
	MaxIdle int
}

type Redis struct {
	// Addr is empty when caching is disabled.
	Addr string
	Pass string
	DB   int
	TTL  time.Duration
}

type Config struct {
	DataSource  string
	GeoJSONPath string
	Postgres    Postgres
	Redis       Redis

	MetricsAddr     string
	LogFile         string
	HandleThreshold int
}

// Load builds a Config from the environment, applying defaults.
func Load() Config {
	c := Config{
		DataSource:      strings.ToLower(envOr("DATASOURCE", SourceMemory)),
		GeoJSONPath:     os.Getenv("GEOJSON_PATH"),
		MetricsAddr:     os.Getenv("METRICS_ADDR"),
		LogFile:         envOr("LOG_FILE", "geoedit.log"),
		HandleThreshold: envInt("HANDLE_THRESHOLD", 2),
	}
	if c.GeoJSONPath != "" && os.Getenv("DATASOURCE") == "" {
		c.DataSource = SourceGeoJSON
	}
	c.Postgres = Postgres{
		DSN:     BuildPostgresDSN(),
		Table:   envOr("PG_TABLE", "geoedit_elements"),
		MaxOpen: envInt("PG_MAX_OPEN_CONNS", 10),
		MaxIdle: envInt("PG_MAX_IDLE_CONNS", 5),
	}
	if os.Getenv("REDIS_HOST") != "" {
		c.Redis.Addr = os.Getenv("REDIS_HOST") + ":" + envOr("REDIS_PORT", "6379")
	}
	c.Redis.Pass = os.Getenv("REDIS_PASS")
	// ignore parse errors, default 0
	if n := envInt("REDIS_DB", 0); n >= 0 {
		c.Redis.DB = n
	}
	c.Redis.TTL = time.Duration(envInt("CACHE_TTL_S", 300)) * time.Second
	return c
}

// BuildPostgresDSN assembles a postgres:// URL from the PG_* variables.
func BuildPostgresDSN() string {
	if v := os.Getenv("PG_DSN"); v != "" {
		return v
	}
	host := envOr("PG_HOST", "localhost")
	port := envOr("PG_PORT", "5432")
	user := envOr("PG_USER", "postgres")
	pass := os.Getenv("PG_PASSWORD")
	db := envOr("PG_DB", "geoedit")
	ssl := envOr("PG_SSLMODE", "disable")
	dsn := "postgres://" + user
	if pass != "" {
		dsn += ":" + pass
	}
	dsn += "@" + host + ":" + port + "/" + db + "?sslmode=" + ssl
	return dsn
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
