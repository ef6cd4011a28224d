package postgres

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"pumpradar/internal/application/port"
	"pumpradar/internal/domain"
	"pumpradar/internal/infrastructure/storage"
)

type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS events (
  id BIGSERIAL PRIMARY KEY,
  kind TEXT NOT NULL,
  symbol TEXT NOT NULL,
  price DOUBLE PRECISION NOT NULL,
  percent DOUBLE PRECISION NOT NULL,
  volume DOUBLE PRECISION NOT NULL,
  funding_rate DOUBLE PRECISION,
  ts_ms BIGINT NOT NULL,
  payload JSONB NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
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
		INSERT INTO events(kind, symbol, price, percent, volume, funding_rate, ts_ms, payload)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8)
	`, rec.Kind, rec.Symbol, rec.Price, rec.Percent, rec.Volume, rec.FundingRate, rec.TsMs, rec.Payload)
	return err
}

func (r *Repo) RecentEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT payload::text FROM events ORDER BY ts_ms DESC, id DESC LIMIT $1`, storage.ClampLimit(limit))
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

var _ port.EventRepository = (*Repo)(nil)
