package credentials

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"courier/cmd/internal/transport"
)

// PostgresStore is a Store backed by PostgreSQL.
//
// Ownership model:
// - PostgresStore does NOT own the pgx pool. The caller must close the pool.
// - Close() is therefore a no-op.
//
// Expected table (schema management is external):
//
//	CREATE TABLE courier.credentials (
//	    session_id  text PRIMARY KEY,
//	    blob        bytea NOT NULL,
//	    updated_at  timestamptz NOT NULL DEFAULT now()
//	);
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
	cipher *BlobCipher
}

// PostgresOption configures PostgresStore behavior.
type PostgresOption func(*PostgresStore) error

// WithSchema sets the DB schema used by this store (default: "courier").
// The schema name is validated and safely quoted in queries.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return errors.New("credentials: empty schema")
		}
		if !isValidPGIdent(schema) {
			return errors.New("credentials: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// WithCipher enables at-rest encryption of credential blobs.
func WithCipher(c *BlobCipher) PostgresOption {
	return func(s *PostgresStore) error {
		s.cipher = c
		return nil
	}
}

// NewPostgresStore constructs a Postgres-backed Store.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "courier",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, errors.New("credentials: nil pool")
	}
	return st, nil
}

// Close is a no-op because the pool is owned by the caller.
func (s *PostgresStore) Close() error { return nil }

// Load reads the stored auth state, or returns a fresh unregistered state.
func (s *PostgresStore) Load(ctx context.Context, sessionID string) (transport.AuthState, error) {
	if s == nil || s.pool == nil {
		return transport.AuthState{}, errors.New("credentials: nil store")
	}
	if strings.TrimSpace(sessionID) == "" {
		return transport.AuthState{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return transport.AuthState{}, err
	}

	table := pgIdent(s.schema, "credentials")

	var blob []byte
	err := s.pool.QueryRow(ctx,
		`SELECT blob FROM `+table+` WHERE session_id = $1`,
		sessionID,
	).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return transport.AuthState{SessionID: sessionID}, nil
	}
	if err != nil {
		return transport.AuthState{}, err
	}

	plain := blob
	if s.cipher != nil {
		p, err := s.cipher.Open(blob)
		if err != nil {
			return transport.AuthState{}, fmt.Errorf("credentials: open blob: %w", err)
		}
		plain = p
	}

	return transport.AuthState{SessionID: sessionID, Blob: plain, Registered: true}, nil
}

// Save upserts the auth blob for the session.
func (s *PostgresStore) Save(ctx context.Context, auth transport.AuthState) error {
	if s == nil || s.pool == nil {
		return errors.New("credentials: nil store")
	}
	if strings.TrimSpace(auth.SessionID) == "" {
		return ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	blob := auth.Blob
	if s.cipher != nil {
		sealed, err := s.cipher.Seal(auth.Blob)
		if err != nil {
			return fmt.Errorf("credentials: seal blob: %w", err)
		}
		blob = sealed
	}

	table := pgIdent(s.schema, "credentials")

	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+table+` (session_id, blob, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (session_id) DO UPDATE
		    SET blob = EXCLUDED.blob, updated_at = EXCLUDED.updated_at`,
		auth.SessionID, blob, time.Now().UTC(),
	)
	return err
}

// Delete removes stored material for the session.
func (s *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	if s == nil || s.pool == nil {
		return errors.New("credentials: nil store")
	}
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	table := pgIdent(s.schema, "credentials")

	tag, err := s.pool.Exec(ctx, `DELETE FROM `+table+` WHERE session_id = $1`, sessionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- identifier quoting ----

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func isValidPGIdent(s string) bool {
	return pgIdentRe.MatchString(s)
}

func pgIdent(schema, table string) string {
	return fmt.Sprintf("%q.%q", schema, table)
}
