package sqlite

import (
	"context"
	"embed"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/example/akiya-reservations/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationsDir is the directory inside MigrationFS holding the schema files.
const MigrationsDir = "migrations"

// MigrationFS exposes the embedded schema migrations.
func MigrationFS() embed.FS {
	return migrationFiles
}

// Store bundles the SQLite repositories behind one connection pool.
type Store struct {
	*UserRepository
	*ListingRepository
	*ReservationRepository
	*SessionRepository

	pool *ConnectionPool
}

// Open connects to the database at path with the production configuration.
func Open(path string) (*Store, error) {
	return OpenWithConfig(migration.DefaultSQLiteConfig(path))
}

// OpenWithConfig connects using an explicit configuration.
func OpenWithConfig(config migration.SQLiteConfig) (*Store, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	return NewStore(pool), nil
}

// NewStore builds the repositories on an existing pool.
func NewStore(pool *ConnectionPool) *Store {
	return &Store{
		UserRepository:        NewUserRepository(pool),
		ListingRepository:     NewListingRepository(pool),
		ReservationRepository: NewReservationRepository(pool),
		SessionRepository:     NewSessionRepository(pool),
		pool:                  pool,
	}
}

// Pool returns the underlying connection pool.
func (s *Store) Pool() *ConnectionPool {
	return s.pool
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context, logger *logrus.Logger) error {
	if err := s.Runner(logger).RunMigrations(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Runner returns a migration runner bound to this store.
func (s *Store) Runner(logger *logrus.Logger) migration.Runner {
	return migration.NewRunner(
		migration.NewFileScanner(migrationFiles),
		migration.NewSQLiteExecutor(s.pool.DB().DB),
		MigrationsDir,
		logger,
	)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.pool.Close()
}
