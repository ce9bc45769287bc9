package database

import (
	"database/sql"
	"fmt"

	"github.com/XSAM/otelsql"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite3 "github.com/golang-migrate/migrate/v4/database/sqlite3"
	bindata "github.com/golang-migrate/migrate/v4/source/go_bindata"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
	logger "github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/custodix/go-metarelay/pkg/database/db"
	"github.com/custodix/go-metarelay/pkg/database/migrations"
	"github.com/custodix/go-metarelay/pkg/metrics"
)

// SQLiteDB represents a SQLite database.
type SQLiteDB struct {
	URI     string
	DB      *sql.DB
	Queries *db.Queries
	Log     zerolog.Logger
}

// Open opens a new SQLite database.
func Open(path string, attributes ...attribute.KeyValue) (*SQLiteDB, error) {
	log := logger.With().
		Str("component", "db").
		Logger()

	attributes = append(attributes, metrics.BaseAttrs...)
	sqlDB, err := otelsql.Open("sqlite3", path, otelsql.WithAttributes(attributes...))
	if err != nil {
		return nil, fmt.Errorf("connecting to db: %s", err)
	}

	if err := otelsql.RegisterDBStatsMetrics(sqlDB, otelsql.WithAttributes(
		attributes...,
	)); err != nil {
		return nil, fmt.Errorf("registering dbstats: %s", err)
	}

	database := &SQLiteDB{
		URI:     path,
		DB:      sqlDB,
		Queries: db.New(sqlDB),
		Log:     log,
	}

	as := bindata.Resource(migrations.AssetNames(), migrations.Asset)
	if err := database.executeMigration(as); err != nil {
		return nil, fmt.Errorf("initializing db connection: %s", err)
	}

	return database, nil
}

// Close closes the database.
func (db *SQLiteDB) Close() error {
	return db.DB.Close()
}

// executeMigration run db migrations over the already-open connection pool.
// Migrating over a second, URL-opened connection would tear down
// shared-cache in-memory databases when that connection closes, leaving
// Open with a schema-less database.
func (db *SQLiteDB) executeMigration(as *bindata.AssetSource) error {
	d, err := bindata.WithInstance(as)
	if err != nil {
		return fmt.Errorf("creating source driver: %s", err)
	}

	driver, err := migratesqlite3.WithInstance(db.DB, &migratesqlite3.Config{})
	if err != nil {
		return fmt.Errorf("creating database driver: %s", err)
	}

	// m isn't closed since the database driver wraps the live pool and
	// closing it would close the pool too.
	m, err := migrate.NewWithInstance("go-bindata", d, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("creating migration: %s", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("running migration up: %s", err)
	}

	version, dirty, err := m.Version()
	db.Log.Info().
		Uint("dbVersion", version).
		Bool("dirty", dirty).
		Err(err).
		Msg("database migration executed")

	return nil
}
