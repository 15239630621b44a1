// Package migrations embeds the SQL migration files for the local store.
package migrations

import (
	"embed"

	"github.com/hikgate/hikgate-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
