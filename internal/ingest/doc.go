// Package ingest runs one quota-bounded ingestion invocation.
//
// A Cycle walks the configured entities in catalog order and, for each one,
// measures progress (the stored record count), allocates a share of the run
// budget, fetches candidates, and persists them until the allocation is
// spent or the candidates run out. Progress is always re-derived from the
// store, so an invocation can be interrupted at any point and the next one
// resumes correctly.
//
// INVARIANTS:
//   - Total inserted records per run never exceed the budget
//   - Duplicates never consume allocation
//   - A fetch failure fails only its own entity
//   - No state other than the store is consulted to decide what to ingest
package ingest
