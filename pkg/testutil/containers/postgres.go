//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// schema mirrors the columns the postgres stores read and write. Constraint
// names do not matter; the stores detect conflicts through ON CONFLICT row
// counts, not constraint names.
const schema = `
CREATE TABLE IF NOT EXISTS plots (
	id                   UUID PRIMARY KEY,
	plot_identifier      TEXT NOT NULL UNIQUE,
	map_area             TEXT NOT NULL,
	target_latitude      DOUBLE PRECISION NOT NULL,
	target_longitude     DOUBLE PRECISION NOT NULL,
	target_radius        DOUBLE PRECISION NOT NULL,
	confirmed_latitude   DOUBLE PRECISION,
	confirmed_longitude  DOUBLE PRECISION,
	distance_from_target DOUBLE PRECISION,
	status               TEXT,
	accessible           BOOLEAN NOT NULL DEFAULT TRUE,
	access_attempts      INTEGER NOT NULL DEFAULT 0,
	household_count      INTEGER NOT NULL DEFAULT 0,
	eligible_members     INTEGER NOT NULL DEFAULT 0,
	time_of_week         TEXT,
	time_of_day          TEXT,
	htc                  BOOLEAN NOT NULL DEFAULT FALSE,
	ess                  BOOLEAN NOT NULL DEFAULT FALSE,
	rss                  BOOLEAN NOT NULL DEFAULT FALSE,
	selected             TEXT,
	enrolled             BOOLEAN NOT NULL DEFAULT FALSE,
	enrolled_at          TIMESTAMPTZ,
	location_name        TEXT NOT NULL DEFAULT '',
	description          TEXT NOT NULL DEFAULT '',
	comment              TEXT NOT NULL DEFAULT '',
	report_datetime      TIMESTAMPTZ NOT NULL,
	created_by           TEXT NOT NULL DEFAULT '',
	created_at           TIMESTAMPTZ NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL,
	UNIQUE (target_latitude, target_longitude)
);

CREATE TABLE IF NOT EXISTS plot_logs (
	id              UUID PRIMARY KEY,
	plot_id         UUID NOT NULL UNIQUE REFERENCES plots (id),
	report_datetime TIMESTAMPTZ NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS plot_log_entries (
	id              UUID PRIMARY KEY,
	plot_log_id     UUID NOT NULL REFERENCES plot_logs (id),
	report_datetime TIMESTAMPTZ NOT NULL,
	report_date     DATE NOT NULL,
	log_status      TEXT NOT NULL,
	reason          TEXT NOT NULL DEFAULT '',
	reason_other    TEXT NOT NULL DEFAULT '',
	comment         TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL,
	UNIQUE (plot_log_id, report_date)
);

CREATE TABLE IF NOT EXISTS households (
	id              UUID PRIMARY KEY,
	plot_id         UUID NOT NULL REFERENCES plots (id),
	sequence        INTEGER NOT NULL,
	report_datetime TIMESTAMPTZ NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	UNIQUE (plot_id, sequence)
);

CREATE TABLE IF NOT EXISTS household_members (
	id           UUID PRIMARY KEY,
	household_id UUID NOT NULL REFERENCES households (id) ON DELETE RESTRICT
);

CREATE TABLE IF NOT EXISTS audit_events (
	id              BIGSERIAL PRIMARY KEY,
	timestamp       TIMESTAMPTZ NOT NULL,
	plot_identifier TEXT NOT NULL,
	map_area        TEXT NOT NULL,
	device_id       TEXT NOT NULL,
	action          TEXT NOT NULL,
	detail          TEXT NOT NULL DEFAULT ''
);
`

// PostgresContainer wraps a testcontainers Postgres instance with the survey
// schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	URL       string
	DB        *sql.DB
}

// NewPostgresContainer starts a new Postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("fieldplot_test"),
		tcpostgres.WithUsername("fieldplot"),
		tcpostgres.WithPassword("fieldplot"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	// The container is shared through the Manager; Ryuk handles teardown.
	return &PostgresContainer{Container: container, URL: url, DB: db}
}

// TruncateTables clears the named tables in one statement so foreign keys
// between them do not force a delete order.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	query := fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(tables, ", "))
	if _, err := p.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}
