package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"DATASOURCE", "GEOJSON_PATH", "REDIS_HOST", "PG_DSN", "PG_HOST", "PG_PASSWORD", "HANDLE_THRESHOLD", "CACHE_TTL_S"} {
		t.Setenv(k, "")
	}
	c := Load()
	if c.DataSource != SourceMemory {
		t.Fatalf("datasource: got %q, want %q", c.DataSource, SourceMemory)
	}
	if c.Redis.Addr != "" {
		t.Fatalf("redis addr: got %q, want empty", c.Redis.Addr)
	}
	if c.Redis.TTL != 300*time.Second {
		t.Fatalf("ttl: got %v", c.Redis.TTL)
	}
	if c.HandleThreshold != 2 {
		t.Fatalf("threshold: got %d, want 2", c.HandleThreshold)
	}
}

func TestLoadGeoJSONImpliesSource(t *testing.T) {
	t.Setenv("DATASOURCE", "")
	t.Setenv("GEOJSON_PATH", "/tmp/x.geojson")
	if got := Load().DataSource; got != SourceGeoJSON {
		t.Fatalf("datasource: got %q, want %q", got, SourceGeoJSON)
	}
}

func TestBuildPostgresDSN(t *testing.T) {
	t.Setenv("PG_DSN", "")
	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_PORT", "6543")
	t.Setenv("PG_USER", "me")
	t.Setenv("PG_PASSWORD", "pw")
	t.Setenv("PG_DB", "maps")
	t.Setenv("PG_SSLMODE", "")
	want := "postgres://me:pw@db:6543/maps?sslmode=disable"
	if got := BuildPostgresDSN(); got != want {
		t.Fatalf("dsn: got %q, want %q", got, want)
	}
}

func TestLoadRedis(t *testing.T) {
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("CACHE_TTL_S", "10")
	c := Load()
	if c.Redis.Addr != "cache:6379" || c.Redis.DB != 3 || c.Redis.TTL != 10*time.Second {
		t.Fatalf("redis: got %+v", c.Redis)
	}
}
