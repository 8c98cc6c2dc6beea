package plot

import (
	"context"
	"database/sql"
	"errors"
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

const plotColumns = `id, plot_identifier, map_area, target_latitude, target_longitude, target_radius,
	confirmed_latitude, confirmed_longitude, distance_from_target,
	status, accessible, access_attempts,
	household_count, eligible_members, time_of_week, time_of_day,
	htc, ess, rss, selected, enrolled, enrolled_at,
	location_name, description, comment, report_datetime,
	created_by, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, p *models.Plot) error {
	query := `INSERT INTO plots (` + plotColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29)
		ON CONFLICT DO NOTHING`
	res, err := s.db.ExecContext(ctx, query,
		p.ID, p.PlotIdentifier, p.MapArea, p.TargetLatitude, p.TargetLongitude, p.TargetRadius,
		p.ConfirmedLatitude, p.ConfirmedLongitude, p.DistanceFromTarget,
		p.Status, p.Accessible, p.AccessAttempts,
		p.HouseholdCount, p.EligibleMembers, p.TimeOfWeek, p.TimeOfDay,
		p.HTC, p.ESS, p.RSS, p.Selected, p.Enrolled, p.EnrolledAt,
		p.LocationName, p.Description, p.Comment, p.ReportDatetime,
		p.CreatedBy, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert plot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert plot rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, p *models.Plot) error {
	query := `UPDATE plots SET
		confirmed_latitude = $2, confirmed_longitude = $3, distance_from_target = $4,
		status = $5, accessible = $6, access_attempts = $7,
		household_count = $8, eligible_members = $9, time_of_week = $10, time_of_day = $11,
		htc = $12, ess = $13, rss = $14, selected = $15, enrolled = $16, enrolled_at = $17,
		location_name = $18, description = $19, comment = $20,
		updated_at = $21
		WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query,
		p.ID,
		p.ConfirmedLatitude, p.ConfirmedLongitude, p.DistanceFromTarget,
		p.Status, p.Accessible, p.AccessAttempts,
		p.HouseholdCount, p.EligibleMembers, p.TimeOfWeek, p.TimeOfDay,
		p.HTC, p.ESS, p.RSS, p.Selected, p.Enrolled, p.EnrolledAt,
		p.LocationName, p.Description, p.Comment,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update plot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update plot rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Plot, error) {
	query := `SELECT ` + plotColumns + ` FROM plots WHERE id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) FindByIdentifier(ctx context.Context, identifier string) (*models.Plot, error) {
	query := `SELECT ` + plotColumns + ` FROM plots WHERE plot_identifier = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, identifier))
}

func (s *PostgresStore) List(ctx context.Context, filter models.Filter) ([]*models.Plot, error) {
	query := `SELECT ` + plotColumns + ` FROM plots`
	var (
		conds []string
		args  []any
	)
	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.MapArea != "" {
		add("map_area = $%d", strings.ToLower(filter.MapArea))
	}
	if filter.PlotIdentifier != "" {
		add("plot_identifier = $%d", filter.PlotIdentifier)
	}
	if filter.Accessible != nil {
		add("accessible = $%d", *filter.Accessible)
	}
	if filter.Confirmed != nil {
		if *filter.Confirmed {
			conds = append(conds, "confirmed_latitude IS NOT NULL AND confirmed_longitude IS NOT NULL")
		} else {
			conds = append(conds, "(confirmed_latitude IS NULL OR confirmed_longitude IS NULL)")
		}
	}
	if filter.Enrolled != nil {
		add("enrolled = $%d", *filter.Enrolled)
	}
	if filter.ESS != nil {
		add("ess = $%d", *filter.ESS)
	}
	if filter.RSS != nil {
		add("rss = $%d", *filter.RSS)
	}
	if filter.HTC != nil {
		add("htc = $%d", *filter.HTC)
	}
	if filter.MinAccessAttempts != nil {
		add("access_attempts >= $%d", *filter.MinAccessAttempts)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY plot_identifier DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list plots: %w", err)
	}
	defer rows.Close()

	var out []*models.Plot
	for rows.Next() {
		p, err := scanPlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list plots: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanOne(row *sql.Row) (*models.Plot, error) {
	p, err := scanPlot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func scanPlot(row rowScanner) (*models.Plot, error) {
	var p models.Plot
	err := row.Scan(
		&p.ID, &p.PlotIdentifier, &p.MapArea, &p.TargetLatitude, &p.TargetLongitude, &p.TargetRadius,
		&p.ConfirmedLatitude, &p.ConfirmedLongitude, &p.DistanceFromTarget,
		&p.Status, &p.Accessible, &p.AccessAttempts,
		&p.HouseholdCount, &p.EligibleMembers, &p.TimeOfWeek, &p.TimeOfDay,
		&p.HTC, &p.ESS, &p.RSS, &p.Selected, &p.Enrolled, &p.EnrolledAt,
		&p.LocationName, &p.Description, &p.Comment, &p.ReportDatetime,
		&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan plot: %w", err)
	}
	return &p, nil
}
