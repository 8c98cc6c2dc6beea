package plotlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"fieldplot/internal/plot/models"
	"fieldplot/pkg/platform/sentinel"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateLog(ctx context.Context, log *models.PlotLog) error {
	query := `INSERT INTO plot_logs (id, plot_id, report_datetime, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (plot_id) DO NOTHING`
	res, err := s.db.ExecContext(ctx, query, log.ID, log.PlotID, log.ReportDatetime, log.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert plot log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert plot log rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) FindLog(ctx context.Context, id uuid.UUID) (*models.PlotLog, error) {
	query := `SELECT id, plot_id, report_datetime, created_at FROM plot_logs WHERE id = $1`
	return s.scanLog(ctx, query, id)
}

func (s *PostgresStore) FindLogByPlot(ctx context.Context, plotID uuid.UUID) (*models.PlotLog, error) {
	query := `SELECT id, plot_id, report_datetime, created_at FROM plot_logs WHERE plot_id = $1`
	return s.scanLog(ctx, query, plotID)
}

func (s *PostgresStore) scanLog(ctx context.Context, query string, arg any) (*models.PlotLog, error) {
	var log models.PlotLog
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&log.ID, &log.PlotID, &log.ReportDatetime, &log.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find plot log: %w", err)
	}
	return &log, nil
}

const entryColumns = `id, plot_log_id, report_datetime, report_date, log_status,
	reason, reason_other, comment, created_at, updated_at`

func (s *PostgresStore) CreateEntry(ctx context.Context, entry *models.PlotLogEntry) error {
	query := `INSERT INTO plot_log_entries (` + entryColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (plot_log_id, report_date) DO NOTHING`
	res, err := s.db.ExecContext(ctx, query,
		entry.ID, entry.PlotLogID, entry.ReportDatetime, entry.ReportDate, entry.LogStatus,
		entry.Reason, entry.ReasonOther, entry.Comment, entry.CreatedAt, entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert log entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert log entry rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) UpdateEntry(ctx context.Context, entry *models.PlotLogEntry) error {
	query := `UPDATE plot_log_entries SET
		report_datetime = $2, report_date = $3, log_status = $4,
		reason = $5, reason_other = $6, comment = $7, updated_at = $8
		WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query,
		entry.ID, entry.ReportDatetime, entry.ReportDate, entry.LogStatus,
		entry.Reason, entry.ReasonOther, entry.Comment, entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update log entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update log entry rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM plot_log_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete log entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete log entry rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindEntry(ctx context.Context, id uuid.UUID) (*models.PlotLogEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM plot_log_entries WHERE id = $1`
	var e models.PlotLogEntry
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.PlotLogID, &e.ReportDatetime, &e.ReportDate, &e.LogStatus,
		&e.Reason, &e.ReasonOther, &e.Comment, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find log entry: %w", err)
	}
	return &e, nil
}

func (s *PostgresStore) ListEntriesByPlot(ctx context.Context, plotID uuid.UUID) ([]*models.PlotLogEntry, error) {
	query := `SELECT e.id, e.plot_log_id, e.report_datetime, e.report_date, e.log_status,
			e.reason, e.reason_other, e.comment, e.created_at, e.updated_at
		FROM plot_log_entries e
		JOIN plot_logs l ON l.id = e.plot_log_id
		WHERE l.plot_id = $1
		ORDER BY e.report_datetime ASC`
	rows, err := s.db.QueryContext(ctx, query, plotID)
	if err != nil {
		return nil, fmt.Errorf("list log entries: %w", err)
	}
	defer rows.Close()

	var out []*models.PlotLogEntry
	for rows.Next() {
		var e models.PlotLogEntry
		if err := rows.Scan(
			&e.ID, &e.PlotLogID, &e.ReportDatetime, &e.ReportDate, &e.LogStatus,
			&e.Reason, &e.ReasonOther, &e.Comment, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list log entries: %w", err)
	}
	return out, nil
}
