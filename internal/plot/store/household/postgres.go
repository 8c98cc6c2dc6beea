package household

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

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

func (s *PostgresStore) Create(ctx context.Context, h *models.Household) error {
	query := `INSERT INTO households (id, plot_id, sequence, report_datetime, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (plot_id, sequence) DO NOTHING`
	res, err := s.db.ExecContext(ctx, query, h.ID, h.PlotID, h.Sequence, h.ReportDatetime, h.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert household: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert household rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context, plotID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM households WHERE plot_id = $1`, plotID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count households: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) ListByPlot(ctx context.Context, plotID uuid.UUID) ([]*models.Household, error) {
	query := `SELECT id, plot_id, sequence, report_datetime, created_at
		FROM households WHERE plot_id = $1 ORDER BY sequence ASC`
	rows, err := s.db.QueryContext(ctx, query, plotID)
	if err != nil {
		return nil, fmt.Errorf("list households: %w", err)
	}
	defer rows.Close()

	var out []*models.Household
	for rows.Next() {
		var h models.Household
		if err := rows.Scan(&h.ID, &h.PlotID, &h.Sequence, &h.ReportDatetime, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan household: %w", err)
		}
		out = append(out, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list households: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM households WHERE id = $1`, id)
	if err != nil {
		// household_members and downstream rows reference households with
		// ON DELETE RESTRICT
		if strings.Contains(err.Error(), "23503") {
			return sentinel.ErrProtected
		}
		return fmt.Errorf("delete household: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete household rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
