// Package harness runs sync scenarios against the real engines.
//
// A scenario seeds an in-memory server (testutil.FakeRemote) and a SQLite
// store wrapped by testutil.FlakyStore, then drives the engines step by step.
// Steps can take the server offline, inject HTTP failures, or break groups
// of store methods, so offline and partial-failure paths are reproducible.
//
// # Scenario Format
//
//	name: offline_create_then_sync
//	description: "What this scenario validates"
//	seed:
//	  next_id: 10
//	  remote:
//	    - {id: 1, account: 1, category: 2, amount: "1500", date: "2025-06-02T09:00:00Z"}
//	steps:
//	  - action: set_local
//	    faults: [transaction_writes]
//	  - action: create
//	    tx: {account: 1, amount: "250.75", date: "2025-06-03T10:00:00Z"}
//	    expect: {ids: [10]}
//	  - action: replay
//	    expect: {code: ok, count: 1}
//	assertions:
//	  - type: queue
//	    entries: []
//	  - type: remote_calls
//	    op: create
//	    count: 1
//
// A step without expect must succeed.
//
// # Golden Files
//
// Snapshot renders the trace and the final local rows, server rows and queue
// entries as canonical JSON. RunWithGolden compares it against
// testdata/golden/{name}.golden; regenerate with
//
//	go test ./internal/harness -update
package harness
