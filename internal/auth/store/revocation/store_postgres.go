package revocation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresList persists blacklisted jtis in token_revocations.
type PostgresList struct {
	db    *sql.DB
	clock Clock
}

// PostgresListOption configures a PostgresList.
type PostgresListOption func(*PostgresList)

// WithPostgresClock overrides the clock used to compute expiry.
func WithPostgresClock(clock Clock) PostgresListOption {
	return func(l *PostgresList) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// NewPostgres constructs a PostgreSQL-backed blacklist.
func NewPostgres(db *sql.DB, opts ...PostgresListOption) *PostgresList {
	l := &PostgresList{db: db, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

func (l *PostgresList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	query := `
		INSERT INTO token_revocations (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO UPDATE SET
			expires_at = EXCLUDED.expires_at
	`
	if _, err := l.db.ExecContext(ctx, query, jti, l.clock().Add(ttl)); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (l *PostgresList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var expiresAt time.Time
	err := l.db.QueryRowContext(ctx, `SELECT expires_at FROM token_revocations WHERE jti = $1`, jti).Scan(&expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return l.clock().Before(expiresAt), nil
}

// RevokeIfAbsent inserts jti, or takes over a lapsed row. A live row leaves
// the statement with nothing affected.
func (l *PostgresList) RevokeIfAbsent(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if jti == "" {
		return false, nil
	}
	if err := validateTTL(ttl); err != nil {
		return false, err
	}
	now := l.clock()
	query := `
		INSERT INTO token_revocations (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO UPDATE SET
			expires_at = EXCLUDED.expires_at
		WHERE token_revocations.expires_at <= $3
	`
	res, err := l.db.ExecContext(ctx, query, jti, now.Add(ttl), now)
	if err != nil {
		return false, fmt.Errorf("claim token revocation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim token revocation: %w", err)
	}
	return n == 1, nil
}
