package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"basis-spread-alerts/internal/scanner"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertObservationSQL = `INSERT INTO basis_observations (
        scanned_at,
        exchange,
        contract,
        futures_price,
        spot_price,
        profit,
        observed_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    );`

	listObservationsBetweenSQL = `SELECT
        id,
        scanned_at,
        exchange,
        contract,
        futures_price,
        spot_price,
        profit,
        observed_at,
        created_at
    FROM basis_observations
    WHERE scanned_at >= $1
      AND scanned_at < $2
    ORDER BY scanned_at, exchange, contract;`

	listRecentObservationsSQL = `SELECT
        id,
        scanned_at,
        exchange,
        contract,
        futures_price,
        spot_price,
        profit,
        observed_at,
        created_at
    FROM basis_observations
    ORDER BY scanned_at DESC, exchange, contract
    LIMIT $1;`

	countObservationsSQL = `SELECT COUNT(*) FROM basis_observations;`

	insertAlertSQL = `INSERT INTO alerts (
        scanned_at,
        actionable,
        threshold_pct
    ) VALUES (
        $1,$2,$3
    ) RETURNING id, scanned_at, actionable, threshold_pct, created_at;`

	listRecentAlertsSQL = `SELECT
        id,
        scanned_at,
        actionable,
        threshold_pct,
        created_at
    FROM alerts
    ORDER BY created_at DESC
    LIMIT $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// ObservationStore defines persistence for basis observations.
type ObservationStore interface {
	InsertObservations(ctx context.Context, result scanner.ScanResult) error
	ListObservationsBetween(ctx context.Context, from, to time.Time) ([]ObservationRow, error)
	ListRecentObservations(ctx context.Context, limit int) ([]ObservationRow, error)
	CountObservations(ctx context.Context) (int64, error)
}

// AlertStore defines operations for alert auditing.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to observations and alerts. Construct it with Open.
type Store struct {
	pool *pgxpool.Pool
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// unlock is best effort; the session release covers a failed unlock
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

// InsertObservations appends every observation of a scan result. Rows are
// only ever inserted; earlier cycles are never rewritten.
func (s *Store) InsertObservations(ctx context.Context, result scanner.ScanResult) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	for _, obs := range result.Observations {
		_, execErr := pool.Exec(ctx, insertObservationSQL,
			result.ScannedAt,
			obs.Exchange,
			obs.Contract,
			obs.FuturesPrice.String(),
			obs.SpotPrice.String(),
			obs.Profit.String(),
			obs.ObservedAt,
		)
		if execErr != nil {
			return fmt.Errorf("insert observation %s %s: %w", obs.Exchange, obs.Contract, execErr)
		}
	}
	return nil
}

// ListObservationsBetween lists observations within a scan-time window.
func (s *Store) ListObservationsBetween(ctx context.Context, from, to time.Time) ([]ObservationRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listObservationsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list observations between: %w", queryErr)
	}
	defer rows.Close()

	return collectObservationRows(rows, 0)
}

// ListRecentObservations lists the most recent observations.
func (s *Store) ListRecentObservations(ctx context.Context, limit int) ([]ObservationRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentObservationsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent observations: %w", queryErr)
	}
	defer rows.Close()

	return collectObservationRows(rows, limit)
}

// CountObservations counts stored observations.
func (s *Store) CountObservations(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countObservationsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count observations: %w", scanErr)
	}
	return count, nil
}

// InsertAlert persists an alert emission.
func (s *Store) InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertRecord{}, err
	}

	row := pool.QueryRow(ctx, insertAlertSQL,
		alert.ScannedAt,
		alert.Actionable,
		alert.ThresholdPct.String(),
	)

	var rec AlertRecord
	var thresholdStr string
	if scanErr := row.Scan(
		&rec.ID,
		&rec.ScannedAt,
		&rec.Actionable,
		&thresholdStr,
		&rec.CreatedAt,
	); scanErr != nil {
		return AlertRecord{}, fmt.Errorf("insert alert: %w", scanErr)
	}

	var convErr error
	rec.ThresholdPct, convErr = decimal.NewFromString(thresholdStr)
	if convErr != nil {
		return AlertRecord{}, fmt.Errorf("parse threshold pct: %w", convErr)
	}

	return rec, nil
}

// ListRecentAlerts lists most recent alerts.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]AlertRecord, 0, limit)
	for rows.Next() {
		var rec AlertRecord
		var thresholdStr string
		if err := rows.Scan(
			&rec.ID,
			&rec.ScannedAt,
			&rec.Actionable,
			&thresholdStr,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}

		var convErr error
		rec.ThresholdPct, convErr = decimal.NewFromString(thresholdStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse threshold pct: %w", convErr)
		}

		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

func collectObservationRows(rows pgx.Rows, capacityHint int) ([]ObservationRow, error) {
	observations := make([]ObservationRow, 0, capacityHint)
	for rows.Next() {
		row, scanErr := scanObservationRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		observations = append(observations, row)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return observations, nil
}

func scanObservationRow(rows pgx.Rows) (ObservationRow, error) {
	var (
		row        ObservationRow
		futuresStr string
		spotStr    string
		profitStr  string
	)

	if err := rows.Scan(
		&row.ID,
		&row.ScannedAt,
		&row.Exchange,
		&row.Contract,
		&futuresStr,
		&spotStr,
		&profitStr,
		&row.ObservedAt,
		&row.CreatedAt,
	); err != nil {
		return ObservationRow{}, err
	}

	var err error
	row.FuturesPrice, err = decimal.NewFromString(futuresStr)
	if err != nil {
		return ObservationRow{}, fmt.Errorf("parse futures price: %w", err)
	}
	row.SpotPrice, err = decimal.NewFromString(spotStr)
	if err != nil {
		return ObservationRow{}, fmt.Errorf("parse spot price: %w", err)
	}
	row.Profit, err = decimal.NewFromString(profitStr)
	if err != nil {
		return ObservationRow{}, fmt.Errorf("parse profit: %w", err)
	}

	return row, nil
}
