// Package database provides SQL connectivity and schema migrations for
// the relay's relational reading stores.
//
// This package manages:
//   - SQLite connections with WAL mode and a busy timeout
//   - Adopting an existing pool (PostgreSQL over pgx) with its dialect
//   - Forward-only migrations from an fs.FS
//
// Queries are written with ? placeholders and passed through
// Dialect.Rebind before execution so one statement serves both engines.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Storage.SQLite.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.SQLite()); err != nil {
//	    return err
//	}
//
// Security Considerations:
//   - All queries use parameterised statements
//   - The SQLite file is restricted to 0600
package database
