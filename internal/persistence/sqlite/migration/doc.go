// Package migration applies versioned SQL schema changes to the SQLite store.
//
// Migration files are named {version}_{description}.sql (for example
// "001_initial_schema.sql") and are read from an fs.FS, normally the
// directory embedded into the sqlite package. Applied versions and their
// checksums are tracked in the schema_migrations table, so running the
// migrations again is a no-op.
//
// Example usage:
//
//	scanner := migration.NewFileScanner(migrationsFS)
//	executor := migration.NewSQLiteExecutor(db)
//	runner := migration.NewRunner(scanner, executor, "migrations", logger)
//	if err := runner.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
