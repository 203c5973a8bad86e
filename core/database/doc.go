// Package database handles database connections and schema inspection.
//
// It wraps GORM and configures either a MySQL or a SQLite connection from the
// application's configuration.
//
// # Connect
//
// Connect selects the dialector from Config.Driver, applies pool settings and
// pings the database before returning it.
//
// # Schema Inspection
//
// GetTableColumns lists the columns of a table on either dialect, and
// MissingColumns compares a table against the columns a gorm model expects.
// Features use it to decide whether their tables need migrating.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	missing, err := database.MissingColumns(db, &things.Thing{})
package database
