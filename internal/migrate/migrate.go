// Package migrate applies the embedded PostgreSQL schema with goose.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed sql/*.sql
var migrations embed.FS

const dir = "sql"

var setupOnce sync.Once
var setupErr error

// goose keeps its base FS and dialect in package globals.
func setup() error {
	setupOnce.Do(func() {
		goose.SetBaseFS(migrations)
		setupErr = goose.SetDialect("postgres")
	})
	return setupErr
}

var (
	gooseUp     = goose.UpContext
	gooseDown   = goose.DownContext
	gooseStatus = goose.StatusContext
)

// Manager runs migrations against one database.
type Manager struct {
	db *sql.DB
}

// NewManager constructs a Manager.
func NewManager(db *sql.DB) *Manager {
	return &Manager{db: db}
}

// Up applies all pending migrations.
func (m *Manager) Up(ctx context.Context) error {
	if m.db == nil {
		return errors.New("migrate: database is nil")
	}
	if err := setup(); err != nil {
		return err
	}
	return gooseUp(ctx, m.db, dir)
}

// Down rolls back the most recent migration.
func (m *Manager) Down(ctx context.Context) error {
	if m.db == nil {
		return errors.New("migrate: database is nil")
	}
	if err := setup(); err != nil {
		return err
	}
	return gooseDown(ctx, m.db, dir)
}

// Status logs the state of every migration through goose's logger.
func (m *Manager) Status(ctx context.Context) error {
	if m.db == nil {
		return errors.New("migrate: database is nil")
	}
	if err := setup(); err != nil {
		return err
	}
	return gooseStatus(ctx, m.db, dir)
}
