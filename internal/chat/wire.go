package chat

import (
	"database/sql"

	"github.com/google/wire"
)

// ProvideRepository is a Wire provider function that creates a chat.Repository
func ProvideRepository(db *sql.DB) Repository {
	return NewPostgresStorage(db)
}

var Set = wire.NewSet(ProvideRepository)
