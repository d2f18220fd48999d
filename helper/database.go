package helper

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// DatabaseConfiguration holds the connection parameters for Postgres
type DatabaseConfiguration struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// NewDatabaseConfiguration reads the configuration from the environment.
// A .env file in the working directory is loaded first if present.
// Expected variables: GRANTHIKA_DB_HOST, GRANTHIKA_DB_PORT, GRANTHIKA_DB_USER,
// GRANTHIKA_DB_PASSWORD, GRANTHIKA_DB_NAME and optionally GRANTHIKA_DB_SSLMODE.
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	_ = godotenv.Load()

	config := &DatabaseConfiguration{
		Host:     os.Getenv("GRANTHIKA_DB_HOST"),
		Port:     os.Getenv("GRANTHIKA_DB_PORT"),
		User:     os.Getenv("GRANTHIKA_DB_USER"),
		Password: os.Getenv("GRANTHIKA_DB_PASSWORD"),
		Name:     os.Getenv("GRANTHIKA_DB_NAME"),
		SSLMode:  os.Getenv("GRANTHIKA_DB_SSLMODE"),
	}

	if config.Host == "" || config.Port == "" || config.User == "" || config.Name == "" {
		return nil, NewError("database configuration", fmt.Errorf("missing required environment variables (GRANTHIKA_DB_HOST, GRANTHIKA_DB_PORT, GRANTHIKA_DB_USER, GRANTHIKA_DB_NAME)"))
	}

	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}

	return config, nil
}

// ConnectionString builds the lib/pq connection string
func (c *DatabaseConfiguration) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Database wraps the sql connection together with its logger
type Database struct {
	Name     string
	Instance *sql.DB
	Logger   *slog.Logger
}

// NewDatabase opens a connection to Postgres and verifies it with a ping.
// It panics on connection failure, matching the fail-fast startup behavior
// of the handlers built on top of it.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) *Database {
	db, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		logger.Error("Error opening database connection", slog.String("error", err.Error()))
		panic(err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		logger.Error("Error pinging database", slog.String("error", err.Error()))
		panic(err)
	}

	logger.Info("Connected to database", slog.String("name", name), slog.String("host", config.Host))

	return &Database{
		Name:     name,
		Instance: db,
		Logger:   logger,
	}
}

// Close closes the underlying connection pool
func (d *Database) Close() error {
	if d.Instance == nil {
		return nil
	}
	return d.Instance.Close()
}

// NewTestDatabase opens a database connection with a default pretty logger,
// for use in tests
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	opts := PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelWarn,
		},
	}
	logger := slog.New(NewPrettyHandler(os.Stdout, opts))
	return NewDatabase("test", config, logger)
}
