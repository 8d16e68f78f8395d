// AngelaMos | 2026
// repository.go

package usage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/taskispace/api/internal/core"
)

type Counter struct {
	UserID       string     `db:"user_id"`
	Metric       Metric     `db:"metric_name"`
	CurrentValue int64      `db:"current_value"`
	PeriodStart  time.Time  `db:"period_start"`
	PeriodEnd    *time.Time `db:"period_end"`
}

type Repository interface {
	// GetValue returns 0 when no row matches. since filters out rows from
	// an earlier period.
	GetValue(ctx context.Context, userID string, metric Metric, since *time.Time) (int64, error)
	// Set writes c.CurrentValue over whatever is stored for the pair.
	Set(ctx context.Context, c Counter) error
	// Accumulate adds c.CurrentValue to the stored value for the same
	// period, or restarts at it for a newer period. With a ceiling the
	// write only happens when the result stays within it; ok reports
	// whether it did.
	Accumulate(ctx context.Context, c Counter, ceiling *int64) (value int64, ok bool, err error)
	DeleteMetrics(ctx context.Context, userID string, metrics ...Metric) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
	ListByUser(ctx context.Context, userID string) ([]Counter, error)
}

// Queries use ? placeholders and are rebound for the connected driver.
type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) GetValue(
	ctx context.Context,
	userID string,
	metric Metric,
	since *time.Time,
) (int64, error) {
	query := `
		SELECT current_value
		FROM subscription_usage
		WHERE user_id = ? AND metric_name = ?`
	args := []any{userID, string(metric)}

	if since != nil {
		query += ` AND period_start >= ?`
		args = append(args, *since)
	}

	var value int64
	err := r.db.GetContext(ctx, &value, r.db.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get usage %s: %w", metric, err)
	}
	return value, nil
}

func (r *repository) Set(ctx context.Context, c Counter) error {
	query := `
		INSERT INTO subscription_usage
			(user_id, metric_name, current_value, period_start, period_end)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, metric_name) DO UPDATE SET
			current_value = excluded.current_value,
			period_start = excluded.period_start,
			period_end = excluded.period_end`

	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		c.UserID,
		string(c.Metric),
		c.CurrentValue,
		c.PeriodStart,
		c.PeriodEnd,
	)
	if err != nil {
		return fmt.Errorf("set usage %s: %w", c.Metric, err)
	}
	return nil
}

const accumulatedValue = `
	CASE WHEN subscription_usage.period_start = excluded.period_start
		THEN subscription_usage.current_value + excluded.current_value
		ELSE excluded.current_value
	END`

func (r *repository) Accumulate(
	ctx context.Context,
	c Counter,
	ceiling *int64,
) (int64, bool, error) {
	query := `
		INSERT INTO subscription_usage
			(user_id, metric_name, current_value, period_start, period_end)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, metric_name) DO UPDATE SET
			current_value = ` + accumulatedValue + `,
			period_start = excluded.period_start,
			period_end = excluded.period_end`
	args := []any{c.UserID, string(c.Metric), c.CurrentValue, c.PeriodStart, c.PeriodEnd}

	if ceiling != nil {
		if c.CurrentValue > *ceiling {
			return 0, false, nil
		}
		query += ` WHERE ` + accumulatedValue + ` <= ?`
		args = append(args, *ceiling)
	}
	query += ` RETURNING current_value`

	var value int64
	err := r.db.GetContext(ctx, &value, r.db.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("accumulate usage %s: %w", c.Metric, err)
	}
	return value, true, nil
}

func (r *repository) DeleteMetrics(
	ctx context.Context,
	userID string,
	metrics ...Metric,
) (int64, error) {
	if len(metrics) == 0 {
		return 0, nil
	}

	names := make([]string, 0, len(metrics))
	for _, m := range metrics {
		names = append(names, string(m))
	}

	query, args, err := sqlx.In(
		`DELETE FROM subscription_usage WHERE user_id = ? AND metric_name IN (?)`,
		userID,
		names,
	)
	if err != nil {
		return 0, fmt.Errorf("delete usage: %w", err)
	}

	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("delete usage: %w", err)
	}
	return result.RowsAffected()
}

// DeleteExpired removes periodic rows whose window closed before before.
// Permanent counters have no end and are never touched.
func (r *repository) DeleteExpired(
	ctx context.Context,
	before time.Time,
) (int64, error) {
	query := `
		DELETE FROM subscription_usage
		WHERE period_end IS NOT NULL AND period_end < ?`

	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), before)
	if err != nil {
		return 0, fmt.Errorf("delete expired usage: %w", err)
	}
	return result.RowsAffected()
}

func (r *repository) ListByUser(
	ctx context.Context,
	userID string,
) ([]Counter, error) {
	query := `
		SELECT user_id, metric_name, current_value, period_start, period_end
		FROM subscription_usage
		WHERE user_id = ?
		ORDER BY metric_name`

	var counters []Counter
	if err := r.db.SelectContext(ctx, &counters, r.db.Rebind(query), userID); err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	return counters, nil
}
