package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/melih/lighthouse-deploy/internal/core/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Registry implements ports.Registry using SQLite.
type Registry struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the registry database at path and runs
// migrations. Use ":memory:" for a throwaway registry.
func Open(path string) (*Registry, error) {
	db, err := sqlx.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, NewRegistryError("Open", "", "failed to open database", errors.Join(ErrConnectionFailed, err))
	}
	// A single connection keeps ":memory:" databases shared and serialises
	// writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewRegistryError("Open", "", "failed to ping database", errors.Join(ErrConnectionFailed, err))
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewRegistryError("Open", "", err.Error(), ErrMigrationFailed)
	}

	return &Registry{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (r *Registry) Close() error {
	return r.db.Close()
}

// deploymentRow represents a deployment row in the database.
type deploymentRow struct {
	ContainerID string `db:"container_id"`
	Image       string `db:"image"`
	Config      string `db:"config"`
	CreatedAt   string `db:"created_at"`
}

// Record inserts rec. A second record for the same container ID fails with
// domain.ErrDuplicateKey.
func (r *Registry) Record(ctx context.Context, rec domain.DeploymentRecord) error {
	config, err := rec.Config.Marshal()
	if err != nil {
		return NewRegistryError("Record", rec.ContainerID, "failed to serialize config", errors.Join(ErrInvalidData, err))
	}

	row := deploymentRow{
		ContainerID: rec.ContainerID,
		Image:       rec.Image,
		Config:      string(config),
		CreatedAt:   rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	query := `
		INSERT INTO deployments (container_id, image, config, created_at)
		VALUES (:container_id, :image, :config, :created_at)`

	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: deployments.container_id") {
			return NewRegistryError("Record", rec.ContainerID, "container is already recorded", domain.ErrDuplicateKey)
		}
		return NewRegistryError("Record", rec.ContainerID, err.Error(), err)
	}
	return nil
}

// Remove deletes the record for containerID if there is one.
func (r *Registry) Remove(ctx context.Context, containerID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM deployments WHERE container_id = ?`, containerID); err != nil {
		return NewRegistryError("Remove", containerID, err.Error(), err)
	}
	return nil
}

// Lookup returns the record for containerID, which may be a unique prefix of
// the recorded ID as printed by the list command.
func (r *Registry) Lookup(ctx context.Context, containerID string) (*domain.DeploymentRecord, error) {
	if containerID == "" {
		return nil, NewRegistryError("Lookup", containerID, "container id is empty", domain.ErrNotFound)
	}
	var rows []deploymentRow
	query := `SELECT * FROM deployments WHERE substr(container_id, 1, length(?)) = ? ORDER BY container_id LIMIT 2`
	if err := r.db.SelectContext(ctx, &rows, query, containerID, containerID); err != nil {
		return nil, NewRegistryError("Lookup", containerID, err.Error(), err)
	}
	if len(rows) == 2 && rows[0].ContainerID != containerID {
		return nil, NewRegistryError("Lookup", containerID, "ambiguous container id prefix", domain.ErrAmbiguousID)
	}
	if len(rows) == 0 {
		return nil, NewRegistryError("Lookup", containerID, "deployment not found", domain.ErrNotFound)
	}

	rec, err := rowToRecord(&rows[0])
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns every record, newest first.
func (r *Registry) List(ctx context.Context) ([]domain.DeploymentRecord, error) {
	records, err := r.all(ctx, "List")
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// ListActivePerImage returns the earliest created record of every image.
func (r *Registry) ListActivePerImage(ctx context.Context) ([]domain.DeploymentRecord, error) {
	records, err := r.all(ctx, "ListActivePerImage")
	if err != nil {
		return nil, err
	}
	return domain.ActivePerImage(records), nil
}

func (r *Registry) all(ctx context.Context, op string) ([]domain.DeploymentRecord, error) {
	var rows []deploymentRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT * FROM deployments ORDER BY image, container_id`); err != nil {
		return nil, NewRegistryError(op, "", err.Error(), err)
	}

	records := make([]domain.DeploymentRecord, 0, len(rows))
	for i := range rows {
		rec, err := rowToRecord(&rows[i])
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func rowToRecord(row *deploymentRow) (domain.DeploymentRecord, error) {
	cfg, err := domain.DecodeDeploymentConfig([]byte(row.Config))
	if err != nil {
		return domain.DeploymentRecord{}, NewRegistryError("decode", row.ContainerID, "failed to parse stored config", errors.Join(ErrInvalidData, err))
	}
	createdAt, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
	if err != nil {
		return domain.DeploymentRecord{}, NewRegistryError("decode", row.ContainerID, "failed to parse created_at", errors.Join(ErrInvalidData, err))
	}
	return domain.DeploymentRecord{
		ContainerID: row.ContainerID,
		Image:       row.Image,
		Config:      *cfg,
		CreatedAt:   createdAt,
	}, nil
}
