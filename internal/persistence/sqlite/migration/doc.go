// Package migration opens and configures SQLite connections and applies the
// embedded, versioned calendar schema. Migrations live in migrations/ as
// NNN_name.sql files and are applied exactly once, in version order.
package migration
