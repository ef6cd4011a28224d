package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"pumpradar/internal/application/port"
	"pumpradar/internal/domain"
	"pumpradar/internal/infrastructure/storage"
)

type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) GetDB() *sql.DB {
	return r.db
}

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS events (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  kind TEXT NOT NULL,
  symbol TEXT NOT NULL,
  price REAL NOT NULL,
  percent REAL NOT NULL,
  volume REAL NOT NULL,
  funding_rate REAL,
  ts_ms INTEGER NOT NULL,
  payload TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts_ms);
CREATE INDEX IF NOT EXISTS idx_events_symbol ON events(symbol);
`)
	return err
}

func (r *Repo) SaveEvent(ctx context.Context, ev domain.Event) error {
	rec, err := storage.NewEventRecord(ev)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO events(kind, symbol, price, percent, volume, funding_rate, ts_ms, payload, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.Kind, rec.Symbol, rec.Price, rec.Percent, rec.Volume, rec.FundingRate, rec.TsMs, rec.Payload, rec.TsMs)
	return err
}

func (r *Repo) RecentEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT payload FROM events ORDER BY ts_ms DESC, id DESC LIMIT ?`, storage.ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		ev, err := storage.DecodeEvent(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// CountBySymbol 某个交易对的事件数
func (r *Repo) CountBySymbol(ctx context.Context, symbol string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE symbol=?`, symbol).Scan(&n)
	return n, err
}

var _ port.EventRepository = (*Repo)(nil)
