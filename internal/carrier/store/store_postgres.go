package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"clarence/internal/carrier/models"
	id "clarence/pkg/domain"
	"clarence/pkg/platform/sentinel"
)

// PostgresStore persists carriers in the carriers table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const carrierColumns = `id, code, name, specialization, is_active, api_base_url, api_key,
	supports_personal, supports_commercial, supported_coverages, health_status,
	last_health_check, created_at, updated_at`

// Save upserts by id. A code owned by another carrier yields ErrConflict.
func (s *PostgresStore) Save(ctx context.Context, c *models.Carrier) error {
	query := `
		INSERT INTO carriers (` + carrierColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			code = EXCLUDED.code,
			name = EXCLUDED.name,
			specialization = EXCLUDED.specialization,
			is_active = EXCLUDED.is_active,
			api_base_url = EXCLUDED.api_base_url,
			api_key = EXCLUDED.api_key,
			supports_personal = EXCLUDED.supports_personal,
			supports_commercial = EXCLUDED.supports_commercial,
			supported_coverages = EXCLUDED.supported_coverages,
			health_status = EXCLUDED.health_status,
			last_health_check = EXCLUDED.last_health_check,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		c.ID.String(), c.Code, c.Name, c.Specialization, c.IsActive, c.APIBaseURL, c.APIKey,
		c.SupportsPersonal, c.SupportsCommercial, pq.Array(coverageStrings(c.SupportedCoverages)),
		string(c.HealthStatus), c.LastHealthCheck, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("save carrier: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, carrierID id.CarrierID) (*models.Carrier, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+carrierColumns+` FROM carriers WHERE id = $1`, carrierID.String())
	return scanCarrier(row)
}

func (s *PostgresStore) FindByCode(ctx context.Context, code string) (*models.Carrier, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+carrierColumns+` FROM carriers WHERE code = $1`, code)
	return scanCarrier(row)
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]*models.Carrier, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+carrierColumns+` FROM carriers WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list carriers: %w", err)
	}
	defer rows.Close()

	var out []*models.Carrier
	for rows.Next() {
		c, err := scanCarrier(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list carriers: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateHealth(ctx context.Context, carrierID id.CarrierID, status models.HealthStatus, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE carriers SET health_status = $2, last_health_check = $3, updated_at = $3 WHERE id = $1`,
		carrierID.String(), string(status), at)
	if err != nil {
		return fmt.Errorf("update carrier health: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM carriers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count carriers: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCarrier(row rowScanner) (*models.Carrier, error) {
	var (
		c         models.Carrier
		rawID     string
		coverages pq.StringArray
		status    string
		lastCheck sql.NullTime
	)
	err := row.Scan(&rawID, &c.Code, &c.Name, &c.Specialization, &c.IsActive, &c.APIBaseURL, &c.APIKey,
		&c.SupportsPersonal, &c.SupportsCommercial, &coverages, &status, &lastCheck, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan carrier: %w", err)
	}
	carrierID, err := id.ParseCarrierID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan carrier id: %w", err)
	}
	c.ID = carrierID
	c.HealthStatus = models.HealthStatus(status)
	for _, cov := range coverages {
		c.SupportedCoverages = append(c.SupportedCoverages, id.CoverageType(cov))
	}
	if lastCheck.Valid {
		t := lastCheck.Time
		c.LastHealthCheck = &t
	}
	return &c, nil
}

func coverageStrings(in []id.CoverageType) []string {
	out := make([]string, len(in))
	for i, c := range in {
		out[i] = string(c)
	}
	return out
}
