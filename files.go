package dashboard

import (
	"embed"
	"io/fs"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

//go:embed views
var viewsFS embed.FS

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// GetDialectMigrationsFS returns the migrations for a given dialect
// rooted at the dialect directory, e.g. "sqlite" or "postgres".
func GetDialectMigrationsFS(dialect string) (fs.FS, error) {
	return fs.Sub(migrationsFS, "data/sql/migrations/"+dialect)
}

// GetViewsFS returns the embedded page templates
func GetViewsFS() embed.FS {
	return viewsFS
}
