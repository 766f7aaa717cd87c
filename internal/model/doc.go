// Package model provides the domain value types shared by every other package:
// transactions, categories, the primary bank account, and the pending
// operation envelope used by the backup queue.
//
// This package imports nothing internal. All other internal packages import
// model; model stays the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types for money - amounts and balances are decimal.Decimal
//   - Transaction amounts are non-negative magnitudes; direction comes from the category
//   - Wire JSON uses camelCase keys, matching the REST API
//   - Snapshots stored in the backup queue use canonical JSON (sorted keys, NFC strings)
package model
