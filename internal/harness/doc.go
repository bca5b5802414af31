// Package harness runs ingestion scenarios against a real Cycle.
//
// Each scenario declares a domain schema, a quota configuration, a set of
// entities with synthetic candidate records, and a sequence of runs. The
// harness executes every run on a fresh in-memory store with a
// deterministic clock and run IDs, then checks per-run expectations and
// final-state assertions.
//
// # Scenario Format
//
//	name: even_split
//	description: "Budget 25 over 5 entities gives 5 each"
//	budget: 25
//	ceiling: 100
//	entities:
//	  - key: phoenix
//	    candidates: 30      # days starting at testutil.Epoch
//	    malformed: 2        # candidates without a discriminator, listed first
//	    preload: 0          # candidates persisted before the first run
//	runs:
//	  - fail: [miami]       # entities whose fetch fails in this run
//	    cancel_after: 2     # cancel the run after N entities
//	    expect:
//	      inserted: 25
//	      entities:
//	        phoenix: {status: done, inserted: 5}
//	assertions:
//	  - type: record_count
//	    entity: phoenix
//	    count: 10
//	  - type: unique_records
//	  - type: quota_bound
//	  - type: run_complete
//
// # Golden Files
//
// The run summaries and final per-entity counts form a Snapshot, compared
// against golden/<name>.golden next to the scenario file.
package harness
