// Package db implements the opening and graceful closing of database connections.
package db

import (
	"errors"
	"fmt"

	"github.com/tarancss/zecdev/lib/store"
	"github.com/tarancss/zecdev/lib/store/memory"
	"github.com/tarancss/zecdev/lib/store/mongo"
	"github.com/tarancss/zecdev/lib/store/postgres"
	"github.com/tarancss/zecdev/lib/store/sqlite"
)

const (
	MONGODB  string = "mongodb"
	POSTGRES string = "postgresql"
	SQLITE   string = "sqlite"
	MEMORY   string = "memory"
)

// MemorySize is the number of records kept by the in-memory store.
const MemorySize = 1000

// ErrUnknownDB is returned for an unsupported database type.
var ErrUnknownDB = errors.New("unsupported database type")

// New returns a new database connection according to the options (database type). An empty type or connection
// string selects the in-memory store.
func New(options, connection string) (store.DB, error) {
	if options == "" || (connection == "" && options != MEMORY) {
		return memory.New(MemorySize), nil
	}

	switch options {
	case MONGODB:
		return mongo.New(connection)
	case POSTGRES:
		return postgres.New(connection)
	case SQLITE:
		return sqlite.New(connection)
	case MEMORY:
		return memory.New(MemorySize), nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownDB, options)
}

// Close gracefully closes the database connection.
func Close(dh store.DB) error {
	switch d := dh.(type) {
	case *mongo.Mongo:
		return d.CloseMongo()
	case *postgres.Postgres:
		return d.ClosePostgres()
	case *sqlite.SQLite:
		return d.CloseSQLite()
	}

	return nil
}
