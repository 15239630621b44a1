// Package database manages the local SQLite store.
//
// The store holds only local state: user accounts and the audit trail.
// Vendor data (persons, vehicles, access groups) is never persisted here.
//
// Schema changes are applied by Migrate from embedded *.up.sql files named
// YYYYMMDD_HHMMSS_description.up.sql, each in its own transaction, recorded
// in schema_migrations.
package database
