// Package store provides the SQLite-backed local store of the finance client.
//
// The store holds four tables:
//   - transactions: local mirror of remote transactions
//   - categories: the category catalog, replaced as a whole
//   - bank_accounts: the primary account
//   - backup_items: pending operations waiting for replay, keyed by (kind, id)
//
// # Guarantees
//
//   - Every write is durable before the method returns (WAL + synchronous=NORMAL)
//   - Reads are deterministic: transactions ORDER BY transaction_date, id;
//     backup items ORDER BY id, kind
//   - Create reports ErrDuplicateID, update and delete report ErrNotFound,
//     so callers can tell "already there" from "disk failure"
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
