// Package marketdata stores and serves the raw close and adjustment-factor
// series that feed the backtests.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hxlyu/allweather/internal/contracts"
)

// Repository persists market data in Postgres. Prices are stored as
// numeric(12,3): three decimals is the exchange tick resolution for the
// ETFs we track, and storing more digits only invites float noise.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UpsertCloses writes one asset's close series, replacing existing rows on
// the same (code, date).
func (r *Repository) UpsertCloses(ctx context.Context, code string, points []contracts.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO market.daily_closes (ts_code, trade_date, close)
		VALUES ($1, $2, $3)
		ON CONFLICT (ts_code, trade_date) DO UPDATE SET close = EXCLUDED.close
	`
	for _, p := range points {
		batch.Queue(query, code, p.Date, decimal.NewFromFloat(p.Close).Round(3))
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range points {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert closes for %s: %w", code, err)
		}
	}
	return nil
}

// UpsertFactors writes one asset's adjustment-factor series.
func (r *Repository) UpsertFactors(ctx context.Context, code string, factors []contracts.FactorPoint) error {
	if len(factors) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO market.adj_factors (ts_code, trade_date, factor)
		VALUES ($1, $2, $3)
		ON CONFLICT (ts_code, trade_date) DO UPDATE SET factor = EXCLUDED.factor
	`
	for _, f := range factors {
		batch.Queue(query, code, f.Date, decimal.NewFromFloat(f.Factor))
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range factors {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert factors for %s: %w", code, err)
		}
	}
	return nil
}

// GetCloses reads one asset's close series in [from, to], ascending.
func (r *Repository) GetCloses(ctx context.Context, code string, from, to time.Time) ([]contracts.PricePoint, error) {
	query := `
		SELECT trade_date, close
		FROM market.daily_closes
		WHERE ts_code = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, code, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []contracts.PricePoint
	for rows.Next() {
		var d time.Time
		var close decimal.Decimal
		if err := rows.Scan(&d, &close); err != nil {
			return nil, err
		}
		points = append(points, contracts.PricePoint{Date: contracts.Day(d), Close: close.InexactFloat64()})
	}
	return points, rows.Err()
}

// GetFactors reads one asset's factor series in [from, to], ascending.
func (r *Repository) GetFactors(ctx context.Context, code string, from, to time.Time) ([]contracts.FactorPoint, error) {
	query := `
		SELECT trade_date, factor
		FROM market.adj_factors
		WHERE ts_code = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, code, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var factors []contracts.FactorPoint
	for rows.Next() {
		var d time.Time
		var f decimal.Decimal
		if err := rows.Scan(&d, &f); err != nil {
			return nil, err
		}
		factors = append(factors, contracts.FactorPoint{Date: contracts.Day(d), Factor: f.InexactFloat64()})
	}
	return factors, rows.Err()
}

// LatestCloseDate returns the most recent stored date for a code, or the
// zero time when the code has no rows yet.
func (r *Repository) LatestCloseDate(ctx context.Context, code string) (time.Time, error) {
	query := `
		SELECT trade_date
		FROM market.daily_closes
		WHERE ts_code = $1
		ORDER BY trade_date DESC
		LIMIT 1
	`

	var d time.Time
	err := r.pool.QueryRow(ctx, query, code).Scan(&d)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return contracts.Day(d), nil
}
