package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// pragmas configure every connection the store hands out.
//
//   - journal_mode WAL lets CLI reads proceed while a sync writes.
//   - synchronous NORMAL is durable across process crashes under WAL;
//     only an OS crash can lose the last commit, which the next online
//     fetch restores from the server.
//   - busy_timeout waits 5s for a lock held by another finance process.
//   - foreign_keys enforcement is switched on; SQLite defaults it off.
var pragmas = []struct{ name, value string }{
	{"journal_mode", "WAL"},
	{"synchronous", "NORMAL"},
	{"busy_timeout", "5000"},
	{"foreign_keys", "ON"},
}

// migrations upgrade an existing file one user_version at a time.
// migrations[i] moves a database from version i to i+1.
var migrations = []struct {
	name string
	stmt string
}{
	{
		name: "interval index on transactions",
		stmt: `CREATE INDEX IF NOT EXISTS idx_transactions_date
			ON transactions(transaction_date, id)`,
	},
}

// Store is the on-device store: transactions, categories, the primary
// account and the backup queue, all in one SQLite file.
type Store struct {
	db *sql.DB
}

// Open creates or opens the finance database at path, applies the
// connection pragmas and brings the schema up to date.
//
// Opening the same file again is a no-op for the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// One connection: SQLite has a single writer, and the pragmas above
	// are per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, p := range pragmas {
		stmt := fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", stmt, err)
		}
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	for v := version; v < len(migrations); v++ {
		if _, err := db.Exec(migrations[v].stmt); err != nil {
			return fmt.Errorf("migrate to v%d (%s): %w", v+1, migrations[v].name, err)
		}
	}
	if version < len(migrations) {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", len(migrations))); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}

// verifyPragma reports whether pragma name reads back as expected.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
