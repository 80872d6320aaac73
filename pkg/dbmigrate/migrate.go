package dbmigrate

import (
	"context"
	"database/sql"
	"io/fs"

	"github.com/go-faster/errors"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/greeting-store/migrations"
)

// Open returns a database/sql handle for goose. The application itself talks to
// Postgres through pgxpool.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open migration db")
	}
	return db, nil
}

type Migrator struct {
	provider *goose.Provider
	logger   *logrus.Entry
}

func New(db *sql.DB, logger *logrus.Entry) (*Migrator, error) {
	return NewWithFS(db, migrations.FS, logger)
}

func NewWithFS(db *sql.DB, fsys fs.FS, logger *logrus.Entry) (*Migrator, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, errors.Wrap(err, "create goose provider")
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Migrator{provider: provider, logger: logger}, nil
}

// Up applies all pending migrations and returns the number applied.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	results, err := m.provider.Up(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "migrate up")
	}
	for _, r := range results {
		m.logger.WithFields(logrus.Fields{
			"version":  r.Source.Version,
			"path":     r.Source.Path,
			"duration": r.Duration.String(),
		}).Info("migration applied")
	}
	return len(results), nil
}

func (m *Migrator) Version(ctx context.Context) (int64, error) {
	v, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "migration version")
	}
	return v, nil
}

type Status struct {
	Version int64  `json:"version"`
	Path    string `json:"path"`
	Applied bool   `json:"applied"`
}

func (m *Migrator) Status(ctx context.Context) ([]Status, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "migration status")
	}
	out := make([]Status, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, Status{
			Version: s.Source.Version,
			Path:    s.Source.Path,
			Applied: s.State == goose.StateApplied,
		})
	}
	return out, nil
}
