package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore persists the audit trail. Rows are append-only; there is no
// update or delete path.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	query := `INSERT INTO audit_events (timestamp, plot_identifier, map_area, device_id, action, detail)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.db.ExecContext(ctx, query,
		event.Timestamp, event.PlotIdentifier, event.MapArea, event.DeviceID, event.Action, event.Detail)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByPlot(ctx context.Context, plotIdentifier string) ([]Event, error) {
	query := `SELECT timestamp, plot_identifier, map_area, device_id, action, detail
		FROM audit_events WHERE plot_identifier = $1 ORDER BY timestamp ASC, id ASC`
	rows, err := s.db.QueryContext(ctx, query, plotIdentifier)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Timestamp, &e.PlotIdentifier, &e.MapArea, &e.DeviceID, &e.Action, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return out, nil
}
