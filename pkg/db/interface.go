package db

import "database/sql"

// DBProvider is any client that yields a sql.DB handle. It lets the catalog
// store run against a self-hosted Postgres or a Supabase-hosted one without
// caring which.
type DBProvider interface {
	DB() *sql.DB
}
