// Command geoedit edits point, line and polygon geometries in the terminal.
// An optional argument opens a GeoJSON file as the dataset.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"geoedit/internal/config"
	"geoedit/internal/datasource"
	"geoedit/internal/logger"
	"geoedit/internal/metrics"
	"geoedit/internal/tui"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	if len(os.Args) > 1 {
		cfg.DataSource = config.SourceGeoJSON
		cfg.GeoJSONPath = os.Args[1]
	}

	// the TUI owns the terminal, so logs go to a file
	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open log file:", err)
		os.Exit(1)
	}
	defer logFile.Close()
	l := logger.Setup(logFile)
	l.Info("start", "datasource", cfg.DataSource)

	base, name, closeFn, err := openAdapter(cfg)
	if err != nil {
		l.Error("datasource_open_error", "datasource", cfg.DataSource, "err", err)
		fmt.Fprintln(os.Stderr, "open data source:", err)
		os.Exit(1)
	}
	defer closeFn()

	rc := datasource.OpenRedis(cfg.Redis.Addr, cfg.Redis.Pass, cfg.Redis.DB)
	if rc == nil {
		l.Info("redis_disabled")
	} else {
		defer rc.Close()
		if err := rc.Ping(context.Background()).Err(); err != nil {
			l.Error("redis_ping_error", "err", err)
		} else {
			l.Info("redis_ping_ok")
		}
	}
	wrap := func(a datasource.Adapter, name string) datasource.Adapter {
		return wrapAdapter(a, rc, name, cfg.Redis.TTL)
	}

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			l.Info("metrics_listen", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				l.Error("metrics_server_error", "err", err)
			}
		}()
	}

	m := tui.New(tui.Options{
		Adapter:         wrap(base, name),
		Name:            name,
		HandleThreshold: float64(cfg.HandleThreshold),
		Wrap:            wrap,
	})
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion()).Run(); err != nil {
		l.Error("tui_error", "err", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	l.Info("exit")
}

// openAdapter builds the configured backend and a closer for it.
func openAdapter(cfg config.Config) (datasource.Adapter, string, func(), error) {
	nop := func() {}
	switch cfg.DataSource {
	case config.SourceGeoJSON:
		f, err := datasource.OpenFile(cfg.GeoJSONPath)
		if err != nil {
			return nil, "", nop, err
		}
		return f, filepath.Base(cfg.GeoJSONPath), nop, nil
	case config.SourcePostgres:
		db, err := datasource.OpenPostgres(cfg.Postgres.DSN, cfg.Postgres.MaxOpen, cfg.Postgres.MaxIdle)
		if err != nil {
			return nil, "", nop, err
		}
		pg, err := datasource.NewPostgres(db, cfg.Postgres.Table)
		if err != nil {
			db.Close()
			return nil, "", nop, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := pg.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, "", nop, err
		}
		logger.L().Info("db_open_ok", "table", cfg.Postgres.Table)
		return pg, "postgres:" + cfg.Postgres.Table, func() { db.Close() }, nil
	case config.SourceMemory:
		return datasource.NewMemory(), "memory", nop, nil
	}
	return nil, "", nop, fmt.Errorf("unknown datasource %q", cfg.DataSource)
}

// wrapAdapter adds metrics and, when Redis is configured, the load cache.
func wrapAdapter(a datasource.Adapter, rc *redis.Client, name string, ttl time.Duration) datasource.Adapter {
	return datasource.NewCached(datasource.NewInstrumented(a), rc, "geoedit:"+name, ttl)
}
