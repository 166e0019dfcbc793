package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Open opens (or creates) a SQLite database at the given path and enables
// WAL journal mode. The URI parameter ensures better concurrency for
// read-heavy workloads.
func Open(path string) (*sql.DB, error) {
	// ensure parent directory exists to avoid SQLITE_CANTOPEN errors
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS identities (
		identity_id   TEXT PRIMARY KEY,
		owner         TEXT NOT NULL,
		public_key    TEXT NOT NULL,
		key_seed      TEXT NOT NULL,
		status        TEXT NOT NULL,
		creation_time TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS credentials (
		credential_id TEXT PRIMARY KEY,
		issuer_id     TEXT NOT NULL,
		subject_id    TEXT NOT NULL,
		cred_type     TEXT NOT NULL,
		claims        TEXT NOT NULL,
		commitments   TEXT NOT NULL,
		salts         TEXT NOT NULL,
		jws           TEXT NOT NULL,
		revokes_id    TEXT NOT NULL DEFAULT '',
		issued_at     TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		message_id    TEXT PRIMARY KEY,
		sender        TEXT NOT NULL,
		recipient     TEXT NOT NULL,
		payload       BLOB NOT NULL,
		seq           INTEGER NOT NULL,
		delivered     INTEGER NOT NULL DEFAULT 0,
		acked         INTEGER NOT NULL DEFAULT 0,
		creation_time TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS message_receipts (
		sender TEXT NOT NULL,
		seq    INTEGER NOT NULL,
		PRIMARY KEY (sender, seq)
	)`,
	`CREATE TABLE IF NOT EXISTS chain_entries (
		idx          INTEGER PRIMARY KEY,
		prev_hash    TEXT NOT NULL,
		payload_hash TEXT NOT NULL,
		hash         TEXT NOT NULL,
		kind         TEXT NOT NULL,
		payload      BLOB NOT NULL,
		ts           TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS proposals (
		proposal_id   TEXT PRIMARY KEY,
		proposer_id   TEXT NOT NULL,
		description   TEXT NOT NULL,
		state         TEXT NOT NULL,
		creation_time TIMESTAMP NOT NULL,
		tally_time    TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS votes (
		proposal_id TEXT NOT NULL,
		voter_id    TEXT NOT NULL,
		choice      TEXT NOT NULL,
		PRIMARY KEY (proposal_id, voter_id)
	)`,
	`CREATE TABLE IF NOT EXISTS deeds (
		deed_id       TEXT PRIMARY KEY,
		owner_id      TEXT NOT NULL,
		action_type   TEXT NOT NULL,
		description   TEXT NOT NULL,
		proof_hash    TEXT NOT NULL,
		status        TEXT NOT NULL,
		verifier_id   TEXT NOT NULL DEFAULT '',
		creation_time TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS scars (
		scar_id       TEXT PRIMARY KEY,
		deed_id       TEXT NOT NULL,
		raiser_id     TEXT NOT NULL,
		note          TEXT NOT NULL,
		weight        REAL NOT NULL,
		status        TEXT NOT NULL,
		creation_time TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS recoveries (
		recovery_id   TEXT PRIMARY KEY,
		scar_id       TEXT NOT NULL,
		recoverer_id  TEXT NOT NULL,
		note          TEXT NOT NULL,
		reviewer_id   TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL,
		creation_time TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS endorsements (
		from_id     TEXT NOT NULL,
		to_id       TEXT NOT NULL,
		weight      REAL NOT NULL,
		update_time TIMESTAMP NOT NULL,
		PRIMARY KEY (from_id, to_id)
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		identity_id   TEXT PRIMARY KEY,
		balance       REAL NOT NULL,
		creation_time TIMESTAMP NOT NULL
	)`,
}

// ensureSchema creates all tables if they do not exist. The node is
// local-first; there is no external migration pipeline to depend on.
func ensureSchema(db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("sqlite schema: %w", err)
		}
	}
	return nil
}
