// Package model provides the core types shared by the ingestion pipeline.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import model; model imports nothing internal.
//
// Key design constraints:
//   - An Entity's surrogate ID is assigned by the store and never changes
//   - A Record is unique on (EntityID, Discriminator)
//   - Record field values are kept as text; numeric coercion happens at
//     aggregation time via ParseNumeric
//   - All JSON tags use snake_case
package model
