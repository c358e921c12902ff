package helper

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/lib/pq"
)

// DatabaseConfiguration holds the PostgreSQL connection settings.
type DatabaseConfiguration struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Schema   string
}

// NewDatabaseConfiguration reads the connection settings from the
// environment (RAGPIPE_DB_HOST, RAGPIPE_DB_PORT, RAGPIPE_DB_DATABASE,
// RAGPIPE_DB_USERNAME, RAGPIPE_DB_PASSWORD, RAGPIPE_DB_SCHEMA).
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	config := &DatabaseConfiguration{
		Host:     os.Getenv("RAGPIPE_DB_HOST"),
		Port:     os.Getenv("RAGPIPE_DB_PORT"),
		Database: os.Getenv("RAGPIPE_DB_DATABASE"),
		Username: os.Getenv("RAGPIPE_DB_USERNAME"),
		Password: os.Getenv("RAGPIPE_DB_PASSWORD"),
		Schema:   os.Getenv("RAGPIPE_DB_SCHEMA"),
	}
	if config.Schema == "" {
		config.Schema = "public"
	}
	if config.Host == "" || config.Port == "" || config.Database == "" || config.Username == "" {
		return nil, NewError("database configuration", fmt.Errorf("missing required database environment variables"))
	}
	return config, nil
}

// Database wraps a PostgreSQL connection with its logger.
type Database struct {
	Name     string
	Instance *sql.DB
	Logger   *slog.Logger
}

// NewDatabase opens a connection with the given configuration. It panics on
// connection failure as the service cannot run without its store.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) *Database {
	connStr := fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s search_path=%s sslmode=disable",
		config.Host, config.Port, config.Database, config.Username, config.Password, config.Schema,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		logger.Error("Opening database failed", slog.String("error", err.Error()))
		panic(err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		logger.Error("Pinging database failed", slog.String("error", err.Error()))
		panic(err)
	}

	logger.Info("Connected to database", slog.String("name", name), slog.String("host", config.Host))

	return &Database{
		Name:     name,
		Instance: db,
		Logger:   logger,
	}
}
