package datasource

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"

	_ "github.com/lib/pq"

	"geoedit/internal/geom"
	"geoedit/internal/logger"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Postgres stores one row per geometry. Shapes are kept as WKT next to their
// bounding box so viewport queries need no spatial extension.
type Postgres struct {
	db    *sql.DB
	table string
}

// OpenPostgres opens a pooled connection for dsn.
func OpenPostgres(dsn string, maxOpen, maxIdle int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	return db, nil
}

// NewPostgres wraps db. The table name is interpolated into SQL and must be a
// plain identifier.
func NewPostgres(db *sql.DB, table string) (*Postgres, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("datasource: invalid table name %q", table)
	}
	return &Postgres{db: db, table: table}, nil
}

// EnsureSchema creates the table and its bbox index if missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	for i, s := range p.schema() {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := p.db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done", "table", p.table)
	return nil
}

func (p *Postgres) schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS ` + p.table + ` (
            id BIGSERIAL PRIMARY KEY,
            kind TEXT NOT NULL,
            wkt TEXT NOT NULL,
            style TEXT NOT NULL DEFAULT '',
            props JSONB,
            min_x DOUBLE PRECISION NOT NULL,
            min_y DOUBLE PRECISION NOT NULL,
            max_x DOUBLE PRECISION NOT NULL,
            max_y DOUBLE PRECISION NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_` + p.table + `_bbox ON ` + p.table + `(min_x, max_x, min_y, max_y)`,
	}
}

func (p *Postgres) LoadElements(ctx context.Context, vp Viewport) ([]*geom.Geometry, error) {
	q := `SELECT id, kind, wkt, style, props FROM ` + p.table + `
        WHERE min_x <= $3 AND max_x >= $1 AND min_y <= $4 AND max_y >= $2
        ORDER BY id`
	rows, err := p.db.QueryContext(ctx, q, vp.BBox.MinX, vp.BBox.MinY, vp.BBox.MaxX, vp.BBox.MaxY)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*geom.Geometry
	for rows.Next() {
		var (
			r     row
			props []byte
		)
		if err := rows.Scan(&r.id, &r.kind, &r.wkt, &r.style, &props); err != nil {
			return nil, err
		}
		r.props = props
		g, err := r.geometry()
		if err != nil {
			logger.L().Warn("pg_row_skip", "id", r.id, "err", err)
			continue
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (p *Postgres) InsertElement(ctx context.Context, g *geom.Geometry) (int64, error) {
	args, err := rowArgs(g)
	if err != nil {
		return 0, err
	}
	q := `INSERT INTO ` + p.table + ` (kind, wkt, style, props, min_x, min_y, max_x, max_y)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	var id int64
	if err := p.db.QueryRowContext(ctx, q, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (p *Postgres) UpdateElement(ctx context.Context, id int64, g *geom.Geometry) error {
	args, err := rowArgs(g)
	if err != nil {
		return err
	}
	q := `UPDATE ` + p.table + ` SET kind = $1, wkt = $2, style = $3, props = $4,
        min_x = $5, min_y = $6, max_x = $7, max_y = $8 WHERE id = $9`
	res, err := p.db.ExecContext(ctx, q, append(args, id)...)
	if err != nil {
		return err
	}
	return affected(res, id)
}

func (p *Postgres) DeleteElement(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM `+p.table+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return affected(res, id)
}

func (p *Postgres) Extent(ctx context.Context) (geom.BBox, bool, error) {
	var minX, minY, maxX, maxY sql.NullFloat64
	q := `SELECT MIN(min_x), MIN(min_y), MAX(max_x), MAX(max_y) FROM ` + p.table
	if err := p.db.QueryRowContext(ctx, q).Scan(&minX, &minY, &maxX, &maxY); err != nil {
		return geom.BBox{}, false, err
	}
	if !minX.Valid {
		return geom.BBox{}, false, nil
	}
	return geom.BBox{MinX: minX.Float64, MinY: minY.Float64, MaxX: maxX.Float64, MaxY: maxY.Float64}, true, nil
}

func affected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}

// row is the column form of a geometry.
type row struct {
	id    int64
	kind  string
	wkt   string
	style string
	props []byte
}

func (r row) geometry() (*geom.Geometry, error) {
	kind, err := geom.ParseKind(r.kind)
	if err != nil {
		return nil, err
	}
	gs, err := geom.ParseWKT(r.wkt)
	if err != nil {
		return nil, err
	}
	g := gs[0]
	if g.Kind != kind {
		return nil, fmt.Errorf("kind column %s does not match wkt %s", kind, g.Kind)
	}
	g.ID = r.id
	g.Style = r.style
	if len(r.props) > 0 && string(r.props) != "null" {
		if err := json.Unmarshal(r.props, &g.Properties); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func rowArgs(g *geom.Geometry) ([]any, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	// nil binds as SQL NULL
	var props any
	if len(g.Properties) > 0 {
		b, err := json.Marshal(g.Properties)
		if err != nil {
			return nil, err
		}
		props = string(b)
	}
	bb := g.BBox()
	return []any{g.Kind.String(), geom.FormatWKT(g), g.Style, props, bb.MinX, bb.MinY, bb.MaxX, bb.MaxY}, nil
}
