package local

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-dashboard"
	"github.com/goliatone/go-errors"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/migrate"
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// DBConfig selects the database driver
type DBConfig struct {
	Driver string
	DSN    string
	Debug  bool
}

// Open connects to the configured database. With Debug set every query
// is written to logger.
func Open(cfg DBConfig, logger dashboard.Logger) (*bun.DB, error) {
	if logger == nil {
		logger = nopLogger{}
	}

	var db *bun.DB
	switch cfg.Driver {
	case DialectSQLite, "":
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to open sqlite database")
		}
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DialectPostgres:
		sqldb, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to open postgres database")
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, errors.New("unsupported database driver", errors.CategoryBadInput).
			WithMetadata(map[string]any{"driver": cfg.Driver})
	}

	if cfg.Debug {
		db.AddQueryHook(&queryLogger{logger: logger})
	}

	return db, nil
}

// DialectName returns the migrations directory for db
func DialectName(db *bun.DB) string {
	if _, ok := db.Dialect().(*pgdialect.Dialect); ok {
		return DialectPostgres
	}
	return DialectSQLite
}

// Migrate applies the embedded migrations for the dialect of db
func Migrate(ctx context.Context, db *bun.DB, logger dashboard.Logger) (*migrate.MigrationGroup, error) {
	migrator, err := newMigrator(db)
	if err != nil {
		return nil, err
	}

	if err := migrator.Init(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to init migrations")
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to run migrations")
	}

	if logger != nil {
		if group.IsZero() {
			logger.Info("no new migrations to run")
		} else {
			logger.Info("migrations applied", "group", group.String())
		}
	}
	return group, nil
}

// Rollback reverts the last migration group
func Rollback(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator, err := newMigrator(db)
	if err != nil {
		return nil, err
	}
	if err := migrator.Init(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to init migrations")
	}
	group, err := migrator.Rollback(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to rollback migrations")
	}
	return group, nil
}

func newMigrator(db *bun.DB) (*migrate.Migrator, error) {
	fsys, err := dashboard.GetDialectMigrationsFS(DialectName(db))
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "missing migrations for dialect")
	}

	migrations := migrate.NewMigrations()
	if err := migrations.Discover(fsys); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to discover migrations")
	}

	return migrate.NewMigrator(db, migrations), nil
}

type queryLogger struct {
	logger dashboard.Logger
}

func (q *queryLogger) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (q *queryLogger) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	took := time.Since(event.StartTime)
	if event.Err != nil && event.Err != sql.ErrNoRows {
		q.logger.Error("query failed", "operation", event.Operation(), "took", took, "query", event.Query, "error", event.Err)
		return
	}
	q.logger.Debug("query", "operation", event.Operation(), "took", took, "query", event.Query)
}
