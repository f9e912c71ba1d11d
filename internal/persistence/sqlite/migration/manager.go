package migration

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

type runner struct {
	scanner  FileScanner
	executor Executor
	dir      string
	logger   *logrus.Entry
}

// NewRunner wires a scanner and executor into a Runner. A nil logger discards output.
func NewRunner(scanner FileScanner, executor Executor, dir string, logger *logrus.Logger) Runner {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &runner{
		scanner:  scanner,
		executor: executor,
		dir:      dir,
		logger:   logger.WithField("component", "migration"),
	}
}

// RunMigrations applies all pending migrations in version order, stopping at
// the first failure.
func (r *runner) RunMigrations(ctx context.Context) error {
	started := time.Now()

	pending, err := r.GetPendingMigrations(ctx)
	if err != nil {
		r.logger.WithError(err).Error("failed to determine pending migrations")
		return err
	}
	if len(pending) == 0 {
		r.logger.Info("database schema is up to date")
		return nil
	}

	r.logger.WithField("pending", len(pending)).Info("applying migrations")

	for i, migration := range pending {
		log := r.logger.WithFields(logrus.Fields{
			"version":     migration.Version,
			"description": migration.Description,
			"position":    fmt.Sprintf("%d/%d", i+1, len(pending)),
		})

		migrationStarted := time.Now()
		if err := r.executor.ExecuteMigration(ctx, migration); err != nil {
			log.WithError(err).Error("migration failed")
			return NewMigrationError(migration.Version, migration.FilePath, "execute migration",
				fmt.Errorf("%w: %v", ErrMigrationFailed, err))
		}

		elapsed := time.Since(migrationStarted)
		if err := r.executor.RecordMigration(ctx, migration, elapsed); err != nil {
			log.WithError(err).Error("failed to record migration")
			return NewMigrationError(migration.Version, migration.FilePath, "record migration", err)
		}
		log.WithField("elapsed_ms", elapsed.Milliseconds()).Info("migration applied")
	}

	r.logger.WithFields(logrus.Fields{
		"applied":    len(pending),
		"elapsed_ms": time.Since(started).Milliseconds(),
	}).Info("all migrations applied")
	return nil
}

// GetPendingMigrations returns migrations that have not been applied yet.
// It fails when the sequence has gaps, when an applied version has no file,
// or when an applied file was edited afterwards.
func (r *runner) GetPendingMigrations(ctx context.Context) ([]Migration, error) {
	available, err := r.scanner.ScanMigrations(r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan migrations: %w", err)
	}

	if err := r.executor.InitializeVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize version table: %w", err)
	}
	applied, err := r.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied versions: %w", err)
	}

	if err := validateSequence(available, applied); err != nil {
		return nil, err
	}

	appliedByVersion := make(map[string]AppliedMigration, len(applied))
	for _, a := range applied {
		appliedByVersion[normalizeVersion(a.Version)] = a
	}

	var pending []Migration
	for _, migration := range available {
		a, ok := appliedByVersion[normalizeVersion(migration.Version)]
		if !ok {
			pending = append(pending, migration)
			continue
		}
		if a.Checksum != "" && a.Checksum != migration.Checksum {
			return nil, NewMigrationError(migration.Version, migration.FilePath, "verify checksum",
				fmt.Errorf("%w: recorded %s, file has %s", ErrChecksumMismatch, a.Checksum, migration.Checksum))
		}
	}
	return pending, nil
}

// GetMigrationStatus reports the current version and outstanding migrations.
func (r *runner) GetMigrationStatus(ctx context.Context) (*MigrationStatus, error) {
	pending, err := r.GetPendingMigrations(ctx)
	if err != nil {
		return nil, err
	}
	applied, err := r.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	status := &MigrationStatus{
		PendingCount:      len(pending),
		AppliedMigrations: applied,
		PendingMigrations: pending,
	}
	highest := -1
	for _, a := range applied {
		if n := versionNumber(a.Version); n > highest {
			highest = n
			status.CurrentVersion = a.Version
		}
	}
	return status, nil
}

func validateSequence(available []Migration, applied []AppliedMigration) error {
	if len(available) > 0 {
		present := make(map[int]bool, len(available))
		for _, m := range available {
			present[versionNumber(m.Version)] = true
		}
		first := versionNumber(available[0].Version)
		last := versionNumber(available[len(available)-1].Version)
		for v := first; v <= last; v++ {
			if !present[v] {
				return fmt.Errorf("%w: missing migration version %03d in sequence", ErrVersionConflict, v)
			}
		}
	}

	files := make(map[string]bool, len(available))
	for _, m := range available {
		files[normalizeVersion(m.Version)] = true
	}
	for _, a := range applied {
		if !files[normalizeVersion(a.Version)] {
			return fmt.Errorf("%w: applied migration %s not found in available migrations", ErrVersionConflict, a.Version)
		}
	}
	return nil
}
