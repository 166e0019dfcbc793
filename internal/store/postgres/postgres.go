package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/vanj900/cellgov/internal/model"
	"github.com/vanj900/cellgov/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and
// verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// New connects and bootstraps the schema.
func New(dsn string) (store.Store, error) {
	db, err := Open(dsn)
	if err != nil {
		return nil, err
	}
	return NewWithDB(db)
}

// NewWithDB wires an existing connection (used by tests and the factory).
func NewWithDB(db *sql.DB) (store.Store, error) {
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return &pgStore{db: db, q: db}, nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS identities (
		identity_id   TEXT PRIMARY KEY,
		owner         TEXT NOT NULL,
		public_key    TEXT NOT NULL,
		key_seed      TEXT NOT NULL,
		status        TEXT NOT NULL,
		creation_time TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS credentials (
		credential_id TEXT PRIMARY KEY,
		issuer_id     TEXT NOT NULL,
		subject_id    TEXT NOT NULL,
		cred_type     TEXT NOT NULL,
		claims        JSONB NOT NULL,
		commitments   JSONB NOT NULL,
		salts         JSONB NOT NULL,
		jws           TEXT NOT NULL,
		revokes_id    TEXT NOT NULL DEFAULT '',
		issued_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		message_id    TEXT PRIMARY KEY,
		sender        TEXT NOT NULL,
		recipient     TEXT NOT NULL,
		payload       BYTEA NOT NULL,
		seq           BIGINT NOT NULL,
		delivered     BOOLEAN NOT NULL DEFAULT FALSE,
		acked         BOOLEAN NOT NULL DEFAULT FALSE,
		creation_time TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS message_receipts (
		sender TEXT NOT NULL,
		seq    BIGINT NOT NULL,
		PRIMARY KEY (sender, seq)
	)`,
	`CREATE TABLE IF NOT EXISTS chain_entries (
		idx          BIGINT PRIMARY KEY,
		prev_hash    TEXT NOT NULL,
		payload_hash TEXT NOT NULL,
		hash         TEXT NOT NULL,
		kind         TEXT NOT NULL,
		payload      BYTEA NOT NULL,
		ts           TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS proposals (
		proposal_id   TEXT PRIMARY KEY,
		proposer_id   TEXT NOT NULL,
		description   TEXT NOT NULL,
		state         TEXT NOT NULL,
		creation_time TIMESTAMPTZ NOT NULL,
		tally_time    TIMESTAMPTZ
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
		creation_time TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS scars (
		scar_id       TEXT PRIMARY KEY,
		deed_id       TEXT NOT NULL,
		raiser_id     TEXT NOT NULL,
		note          TEXT NOT NULL,
		weight        DOUBLE PRECISION NOT NULL,
		status        TEXT NOT NULL,
		creation_time TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS recoveries (
		recovery_id   TEXT PRIMARY KEY,
		scar_id       TEXT NOT NULL,
		recoverer_id  TEXT NOT NULL,
		note          TEXT NOT NULL,
		reviewer_id   TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL,
		creation_time TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS endorsements (
		from_id     TEXT NOT NULL,
		to_id       TEXT NOT NULL,
		weight      DOUBLE PRECISION NOT NULL,
		update_time TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (from_id, to_id)
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		identity_id   TEXT PRIMARY KEY,
		balance       DOUBLE PRECISION NOT NULL,
		creation_time TIMESTAMPTZ NOT NULL
	)`,
}

func ensureSchema(db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("postgres schema: %w", err)
		}
	}
	return nil
}

// dbtx is the query surface shared by *sql.DB and *sql.Tx, so every
// repository works unchanged inside or outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type pgStore struct {
	db *sql.DB
	q  dbtx
}

func (s *pgStore) Identities() store.Identities     { return &identities{db: s.q} }
func (s *pgStore) Credentials() store.Credentials   { return &credentials{db: s.q} }
func (s *pgStore) Messages() store.Messages         { return &messages{db: s.q} }
func (s *pgStore) Chain() store.Chain               { return &chainEntries{db: s.q} }
func (s *pgStore) Proposals() store.Proposals       { return &proposals{db: s.q} }
func (s *pgStore) Deeds() store.Deeds               { return &deeds{db: s.q} }
func (s *pgStore) Scars() store.Scars               { return &scars{db: s.q} }
func (s *pgStore) Recoveries() store.Recoveries     { return &recoveries{db: s.q} }
func (s *pgStore) Endorsements() store.Endorsements { return &endorsements{db: s.q} }
func (s *pgStore) Accounts() store.Accounts         { return &accounts{db: s.q} }

func (s *pgStore) InTx(ctx context.Context, fn func(store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(&pgStore{db: s.db, q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- Identities ---

type identities struct{ db dbtx }

func (r *identities) Create(ctx context.Context, id *model.Identity, keySeedHex string) (*model.Identity, error) {
	out := *id
	out.CreationTime = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO identities (identity_id, owner, public_key, key_seed, status, creation_time) VALUES ($1,$2,$3,$4,$5,$6)`,
		out.ID, out.Owner, out.PublicKey, keySeedHex, out.Status, out.CreationTime)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *identities) KeySeed(ctx context.Context, identityID string) (string, error) {
	var seed string
	err := r.db.QueryRowContext(ctx, `SELECT key_seed FROM identities WHERE identity_id=$1`, identityID).Scan(&seed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("identity %s: %w", identityID, model.ErrNotFound)
	}
	return seed, err
}

func (r *identities) Get(ctx context.Context, identityID string) (*model.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT identity_id, owner, public_key, status, creation_time FROM identities WHERE identity_id=$1`, identityID)
	return scanIdentity(row, identityID)
}

func (r *identities) GetByOwner(ctx context.Context, owner string) (*model.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT identity_id, owner, public_key, status, creation_time FROM identities WHERE owner=$1 AND status=$2`,
		owner, model.IdentityActive)
	return scanIdentity(row, owner)
}

func (r *identities) List(ctx context.Context) ([]*model.Identity, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT identity_id, owner, public_key, status, creation_time FROM identities ORDER BY creation_time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Identity
	for rows.Next() {
		var id model.Identity
		if err := rows.Scan(&id.ID, &id.Owner, &id.PublicKey, &id.Status, &id.CreationTime); err != nil {
			return nil, err
		}
		out = append(out, &id)
	}
	return out, rows.Err()
}

func (r *identities) SetStatus(ctx context.Context, identityID, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE identities SET status=$1 WHERE identity_id=$2`, status, identityID)
	if err != nil {
		return err
	}
	return requireRow(res, "identity", identityID)
}

func scanIdentity(row *sql.Row, key string) (*model.Identity, error) {
	var id model.Identity
	err := row.Scan(&id.ID, &id.Owner, &id.PublicKey, &id.Status, &id.CreationTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("identity %s: %w", key, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// --- Credentials ---

type credentials struct{ db dbtx }

func (r *credentials) Create(ctx context.Context, c *model.Credential) (*model.Credential, error) {
	out := *c
	out.IssuedAt = time.Now().UTC()
	claims, _ := json.Marshal(out.Claims)
	commitments, _ := json.Marshal(out.Commitments)
	salts, _ := json.Marshal(out.Salts)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credentials (credential_id, issuer_id, subject_id, cred_type, claims, commitments, salts, jws, revokes_id, issued_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		out.ID, out.IssuerID, out.SubjectID, out.Type, claims, commitments, salts, out.JWS, out.RevokesID, out.IssuedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *credentials) Get(ctx context.Context, credentialID string) (*model.Credential, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT credential_id, issuer_id, subject_id, cred_type, claims, commitments, salts, jws, revokes_id, issued_at
		 FROM credentials WHERE credential_id=$1`, credentialID)
	c, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("credential %s: %w", credentialID, model.ErrNotFound)
	}
	return c, err
}

func (r *credentials) FindRevocation(ctx context.Context, credentialID string) (*model.Credential, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT credential_id, issuer_id, subject_id, cred_type, claims, commitments, salts, jws, revokes_id, issued_at
		 FROM credentials WHERE cred_type=$1 AND revokes_id=$2`, model.CredentialTypeRevocation, credentialID)
	c, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func scanCredential(row *sql.Row) (*model.Credential, error) {
	var c model.Credential
	var claims, commitments, salts []byte
	err := row.Scan(&c.ID, &c.IssuerID, &c.SubjectID, &c.Type, &claims, &commitments, &salts, &c.JWS, &c.RevokesID, &c.IssuedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(claims, &c.Claims); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(commitments, &c.Commitments); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(salts, &c.Salts); err != nil {
		return nil, err
	}
	return &c, nil
}

// --- Messages ---

type messages struct{ db dbtx }

func (r *messages) Enqueue(ctx context.Context, m *model.Message) (*model.Message, error) {
	out := *m
	out.CreationTime = time.Now().UTC()
	out.Delivered = false
	out.Acked = false

	// Sequence assignment and insert in one statement keeps the
	// per-recipient ordering gapless without an explicit transaction.
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO messages (message_id, sender, recipient, payload, seq, delivered, acked, creation_time)
		 VALUES ($1,$2,$3,$4,(SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE recipient=$3),FALSE,FALSE,$5)
		 RETURNING seq`,
		out.ID, out.Sender, out.Recipient, out.Payload, out.CreationTime).Scan(&out.Seq)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *messages) ListQueued(ctx context.Context, recipient string) ([]*model.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT message_id, sender, recipient, payload, seq, delivered, acked, creation_time
		 FROM messages WHERE recipient=$1 AND delivered=FALSE ORDER BY seq`, recipient)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.Sender, &m.Recipient, &m.Payload, &m.Seq, &m.Delivered, &m.Acked, &m.CreationTime); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (r *messages) MarkDelivered(ctx context.Context, messageID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET delivered=TRUE WHERE message_id=$1`, messageID)
	if err != nil {
		return err
	}
	return requireRow(res, "message", messageID)
}

func (r *messages) MarkAcked(ctx context.Context, messageID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET acked=TRUE WHERE message_id=$1 AND delivered=TRUE`, messageID)
	if err != nil {
		return err
	}
	return requireRow(res, "message", messageID)
}

func (r *messages) PendingRecipients(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT recipient FROM messages WHERE delivered=FALSE ORDER BY recipient`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var peer string
		if err := rows.Scan(&peer); err != nil {
			return nil, err
		}
		out = append(out, peer)
	}
	return out, rows.Err()
}

func (r *messages) AddReceipt(ctx context.Context, sender string, seq int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO message_receipts (sender, seq) VALUES ($1,$2) ON CONFLICT DO NOTHING`, sender, seq)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// --- Chain entries ---

type chainEntries struct{ db dbtx }

func (r *chainEntries) Append(ctx context.Context, e *model.ChainEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chain_entries (idx, prev_hash, payload_hash, hash, kind, payload, ts) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		e.Index, e.PrevHash, e.PayloadHash, e.Hash, e.Kind, e.Payload, e.Timestamp)
	return err
}

func (r *chainEntries) Tip(ctx context.Context) (*model.ChainEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT idx, prev_hash, payload_hash, hash, kind, payload, ts FROM chain_entries ORDER BY idx DESC LIMIT 1`)
	var e model.ChainEntry
	err := row.Scan(&e.Index, &e.PrevHash, &e.PayloadHash, &e.Hash, &e.Kind, &e.Payload, &e.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *chainEntries) List(ctx context.Context) ([]*model.ChainEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT idx, prev_hash, payload_hash, hash, kind, payload, ts FROM chain_entries ORDER BY idx`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.ChainEntry
	for rows.Next() {
		var e model.ChainEntry
		if err := rows.Scan(&e.Index, &e.PrevHash, &e.PayloadHash, &e.Hash, &e.Kind, &e.Payload, &e.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// --- Proposals ---

type proposals struct{ db dbtx }

func (r *proposals) Create(ctx context.Context, p *model.Proposal) (*model.Proposal, error) {
	out := *p
	out.CreationTime = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO proposals (proposal_id, proposer_id, description, state, creation_time) VALUES ($1,$2,$3,$4,$5)`,
		out.ID, out.ProposerID, out.Description, out.State, out.CreationTime)
	if err != nil {
		return nil, err
	}
	if out.Votes == nil {
		out.Votes = map[string]string{}
	}
	return &out, nil
}

func (r *proposals) Get(ctx context.Context, proposalID string) (*model.Proposal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT proposal_id, proposer_id, description, state, creation_time, tally_time FROM proposals WHERE proposal_id=$1`, proposalID)
	var p model.Proposal
	var tallied sql.NullTime
	err := row.Scan(&p.ID, &p.ProposerID, &p.Description, &p.State, &p.CreationTime, &tallied)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("proposal %s: %w", proposalID, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if tallied.Valid {
		t := tallied.Time
		p.TallyTime = &t
	}

	p.Votes = map[string]string{}
	rows, err := r.db.QueryContext(ctx, `SELECT voter_id, choice FROM votes WHERE proposal_id=$1`, proposalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var voter, choice string
		if err := rows.Scan(&voter, &choice); err != nil {
			return nil, err
		}
		p.Votes[voter] = choice
	}
	return &p, rows.Err()
}

func (r *proposals) SetVote(ctx context.Context, proposalID, voterID, choice string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO votes (proposal_id, voter_id, choice) VALUES ($1,$2,$3)
		 ON CONFLICT (proposal_id, voter_id) DO UPDATE SET choice = EXCLUDED.choice`,
		proposalID, voterID, choice)
	return err
}

func (r *proposals) SetState(ctx context.Context, proposalID, state string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE proposals SET state=$1, tally_time=$2 WHERE proposal_id=$3`,
		state, time.Now().UTC(), proposalID)
	if err != nil {
		return err
	}
	return requireRow(res, "proposal", proposalID)
}

// --- Deeds ---

type deeds struct{ db dbtx }

func (r *deeds) Create(ctx context.Context, d *model.Deed) (*model.Deed, error) {
	out := *d
	out.CreationTime = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO deeds (deed_id, owner_id, action_type, description, proof_hash, status, verifier_id, creation_time)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		out.ID, out.OwnerID, out.ActionType, out.Description, out.ProofHash, out.Status, out.VerifierID, out.CreationTime)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *deeds) Get(ctx context.Context, deedID string) (*model.Deed, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT deed_id, owner_id, action_type, description, proof_hash, status, verifier_id, creation_time
		 FROM deeds WHERE deed_id=$1`, deedID)
	var d model.Deed
	err := row.Scan(&d.ID, &d.OwnerID, &d.ActionType, &d.Description, &d.ProofHash, &d.Status, &d.VerifierID, &d.CreationTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("deed %s: %w", deedID, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *deeds) SetStatus(ctx context.Context, deedID, status, verifierID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE deeds SET status=$1, verifier_id = CASE WHEN $2 = '' THEN verifier_id ELSE $2 END WHERE deed_id=$3`,
		status, verifierID, deedID)
	if err != nil {
		return err
	}
	return requireRow(res, "deed", deedID)
}

// --- Scars ---

type scars struct{ db dbtx }

func (r *scars) Create(ctx context.Context, s *model.Scar) (*model.Scar, error) {
	out := *s
	out.CreationTime = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO scars (scar_id, deed_id, raiser_id, note, weight, status, creation_time) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		out.ID, out.DeedID, out.RaiserID, out.Note, out.Weight, out.Status, out.CreationTime)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *scars) Get(ctx context.Context, scarID string) (*model.Scar, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT scar_id, deed_id, raiser_id, note, weight, status, creation_time FROM scars WHERE scar_id=$1`, scarID)
	var s model.Scar
	err := row.Scan(&s.ID, &s.DeedID, &s.RaiserID, &s.Note, &s.Weight, &s.Status, &s.CreationTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scar %s: %w", scarID, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *scars) Update(ctx context.Context, scarID, status string, weight float64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE scars SET status=$1, weight=$2 WHERE scar_id=$3`, status, weight, scarID)
	if err != nil {
		return err
	}
	return requireRow(res, "scar", scarID)
}

func (r *scars) OpenWeightByOwner(ctx context.Context) (map[string]float64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT d.owner_id, SUM(s.weight)
		 FROM scars s JOIN deeds d ON d.deed_id = s.deed_id
		 WHERE s.status != $1
		 GROUP BY d.owner_id`, model.ScarResolved)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]float64{}
	for rows.Next() {
		var owner string
		var w float64
		if err := rows.Scan(&owner, &w); err != nil {
			return nil, err
		}
		out[owner] = w
	}
	return out, rows.Err()
}

// --- Recoveries ---

type recoveries struct{ db dbtx }

func (r *recoveries) Create(ctx context.Context, rec *model.RecoveryDeed) (*model.RecoveryDeed, error) {
	out := *rec
	out.CreationTime = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO recoveries (recovery_id, scar_id, recoverer_id, note, reviewer_id, status, creation_time)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		out.ID, out.ScarID, out.RecovererID, out.Note, out.ReviewerID, out.Status, out.CreationTime)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *recoveries) Get(ctx context.Context, recoveryID string) (*model.RecoveryDeed, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT recovery_id, scar_id, recoverer_id, note, reviewer_id, status, creation_time
		 FROM recoveries WHERE recovery_id=$1`, recoveryID)
	var rec model.RecoveryDeed
	err := row.Scan(&rec.ID, &rec.ScarID, &rec.RecovererID, &rec.Note, &rec.ReviewerID, &rec.Status, &rec.CreationTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("recovery %s: %w", recoveryID, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *recoveries) SetReview(ctx context.Context, recoveryID, reviewerID, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recoveries SET reviewer_id=$1, status=$2 WHERE recovery_id=$3`, reviewerID, status, recoveryID)
	if err != nil {
		return err
	}
	return requireRow(res, "recovery", recoveryID)
}

// --- Endorsements ---

type endorsements struct{ db dbtx }

func (r *endorsements) Upsert(ctx context.Context, fromID, toID string, weight float64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO endorsements (from_id, to_id, weight, update_time) VALUES ($1,$2,$3,$4)
		 ON CONFLICT (from_id, to_id) DO UPDATE SET weight = endorsements.weight + EXCLUDED.weight, update_time = EXCLUDED.update_time`,
		fromID, toID, weight, time.Now().UTC())
	return err
}

func (r *endorsements) List(ctx context.Context) ([]*model.Endorsement, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT from_id, to_id, weight, update_time FROM endorsements`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Endorsement
	for rows.Next() {
		var e model.Endorsement
		if err := rows.Scan(&e.FromID, &e.ToID, &e.Weight, &e.UpdateTime); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// --- Accounts ---

type accounts struct{ db dbtx }

func (r *accounts) Create(ctx context.Context, a *model.Account) (*model.Account, error) {
	out := *a
	out.CreationTime = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (identity_id, balance, creation_time) VALUES ($1,$2,$3)`,
		out.IdentityID, out.Balance, out.CreationTime)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *accounts) Get(ctx context.Context, identityID string) (*model.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT identity_id, balance, creation_time FROM accounts WHERE identity_id=$1`, identityID)
	var a model.Account
	err := row.Scan(&a.IdentityID, &a.Balance, &a.CreationTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", identityID, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *accounts) Credit(ctx context.Context, identityID string, amount float64) (float64, error) {
	var balance float64
	row := r.db.QueryRowContext(ctx,
		`UPDATE accounts SET balance = balance + $1 WHERE identity_id=$2 RETURNING balance`, amount, identityID)
	err := row.Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("account %s: %w", identityID, model.ErrNotFound)
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func requireRow(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", entity, id, model.ErrNotFound)
	}
	return nil
}
