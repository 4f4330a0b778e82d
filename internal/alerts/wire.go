package alerts

import (
	"database/sql"

	"github.com/google/wire"
)

// ProvideRepository is a Wire provider function that creates an alerts.Repository
func ProvideRepository(db *sql.DB) Repository {
	return NewPostgresStorage(db)
}

var Set = wire.NewSet(ProvideRepository)
