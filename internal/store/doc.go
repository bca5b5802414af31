// Package store provides the relational persistence layer for climatevalue.
//
// The store owns four tables:
//   - entities:   The entity catalog (surrogate id, unique natural key per domain)
//   - records:    Ingested observations, UNIQUE(entity_id, discriminator)
//   - aggregates: One derived summary row per entity, always overwritten
//   - runs:       Per-invocation summaries, for display only
//
// # Critical Patterns
//
// At-most-one record per key:
//   - UNIQUE(entity_id, discriminator) constraint
//   - Persist uses INSERT ... ON CONFLICT DO NOTHING and reports Duplicate
//     from RowsAffected; a duplicate is never an error
//
// Progress is derived, not stored:
//   - Count(entity) is the only resume point; there is no offset ledger
//   - Re-running after an interruption is safe because every Persist call
//     commits its own transaction
//
// Aggregates are overwritten, never merged:
//   - PutAggregate is an upsert on entity_id
//   - Means are stored as sorted-key JSON so identical inputs give
//     byte-identical rows
//
// # Database Configuration
//
// SQLite (driver "sqlite3", default):
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// PostgreSQL (driver "pgx") uses the pgx stdlib driver and the same SQL;
// placeholders are rebound from ? to $n.
package store
