package store

import (
	"os"

	"github.com/joho/godotenv"
)

// Driver names accepted by Config.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

// Config selects and configures a storage backend. The caller constructs the
// matching backend; keeping construction out of this package avoids linking
// every driver into programs that use one.
type Config struct {
	// Driver is one of the Driver* constants (default: memory).
	Driver string

	// DSN is the connection string for postgres/sqlite/mongo backends.
	DSN string

	// Database is the database name for the mongo backend.
	Database string
}

// LoadEnv builds a Config from the environment, first loading a .env file
// from the working directory when one exists (best effort).
//
// Variables: BALANCE_STORE_DRIVER, BALANCE_STORE_DSN, BALANCE_STORE_DATABASE.
func LoadEnv() Config {
	_ = godotenv.Load() //nolint:errcheck // a missing .env file is not an error

	cfg := Config{
		Driver:   os.Getenv("BALANCE_STORE_DRIVER"),
		DSN:      os.Getenv("BALANCE_STORE_DSN"),
		Database: os.Getenv("BALANCE_STORE_DATABASE"),
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverMemory
	}

	return cfg
}
