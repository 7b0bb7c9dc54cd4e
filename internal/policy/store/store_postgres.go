package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"clarence/internal/policy/models"
	id "clarence/pkg/domain"
	"clarence/pkg/platform/sentinel"
)

// PostgresStore persists policies in the policies table. The unique index on
// carrier_quote_id enforces one bind per quote across processes.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const policyColumns = `id, policy_number, user_id, quote_request_id, carrier_quote_id, carrier_id,
	carrier_name, carrier_policy_id, carrier_bind_id, insurance_type, coverage_type, status,
	coverage_limits, deductible, annual_premium, payment_plan, monthly_amount,
	effective_date, expiration_date, bound_at, insured_name, insured_address,
	first_payment_due, next_payment_date, payments_remaining, auto_renewal, documents,
	carrier_contact, carrier_policy_data, notes, cancelled_at, cancellation_reason,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) Create(ctx context.Context, p *models.Policy) error {
	args, err := policyArgs(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO policies (`+policyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34)
	`, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create policy: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, policyID id.PolicyID) (*models.Policy, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+policyColumns+` FROM policies WHERE id = $1`, policyID.String())
	return scanPolicy(row)
}

func (s *PostgresStore) FindByNumber(ctx context.Context, number string) (*models.Policy, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+policyColumns+` FROM policies WHERE policy_number = $1`, number)
	return scanPolicy(row)
}

func (s *PostgresStore) FindByCarrierQuote(ctx context.Context, quoteID id.CarrierQuoteID) (*models.Policy, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+policyColumns+` FROM policies WHERE carrier_quote_id = $1`, quoteID.String())
	return scanPolicy(row)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Policy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+policyColumns+` FROM policies
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	defer rows.Close()
	var out []*models.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate policies: %w", err)
	}
	return out, nil
}

// Update rewrites the mutable lifecycle fields.
func (s *PostgresStore) Update(ctx context.Context, p *models.Policy) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE policies SET
			status = $2, next_payment_date = $3, payments_remaining = $4, auto_renewal = $5,
			notes = $6, cancelled_at = $7, cancellation_reason = $8, updated_at = $9
		WHERE id = $1
	`, p.ID.String(), string(p.Status), p.NextPaymentDate, p.PaymentsRemaining, p.AutoRenewal,
		p.Notes, p.CancelledAt, p.CancellationReason, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update policy: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update policy: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func policyArgs(p *models.Policy) ([]any, error) {
	documents := p.Documents
	if documents == nil {
		documents = []models.Document{}
	}
	docs, err := json.Marshal(documents)
	if err != nil {
		return nil, fmt.Errorf("encode policy documents: %w", err)
	}
	var userID any
	if p.UserID != nil {
		userID = p.UserID.String()
	}
	return []any{
		p.ID.String(), p.PolicyNumber, userID, p.QuoteRequestID.String(), p.CarrierQuoteID.String(), p.CarrierID.String(),
		p.CarrierName, p.CarrierPolicyID, p.CarrierBindID, string(p.InsuranceType), string(p.CoverageType), string(p.Status),
		nullJSON(p.CoverageLimits), p.Deductible, p.AnnualPremium, string(p.PaymentPlan), p.MonthlyAmount,
		p.EffectiveDate, p.ExpirationDate, p.BoundAt, p.InsuredName, p.InsuredAddress,
		p.FirstPaymentDue, p.NextPaymentDate, p.PaymentsRemaining, p.AutoRenewal, docs,
		nullJSON(p.CarrierContact), nullJSON(p.CarrierPolicyData), p.Notes, p.CancelledAt, p.CancellationReason,
		p.CreatedAt, p.UpdatedAt,
	}, nil
}

func scanPolicy(row rowScanner) (*models.Policy, error) {
	var (
		p                                                  models.Policy
		rawID, rawRequest, rawQuote, rawCarrier            string
		userID                                             sql.NullString
		insuranceType, coverageType, status, plan          string
		limits, docs, contact, policyData                  []byte
		monthly                                            sql.NullFloat64
		effective, expiration, firstDue, nextDue, cancelAt sql.NullTime
		remaining                                          sql.NullInt64
	)
	err := row.Scan(&rawID, &p.PolicyNumber, &userID, &rawRequest, &rawQuote, &rawCarrier,
		&p.CarrierName, &p.CarrierPolicyID, &p.CarrierBindID, &insuranceType, &coverageType, &status,
		&limits, &p.Deductible, &p.AnnualPremium, &plan, &monthly,
		&effective, &expiration, &p.BoundAt, &p.InsuredName, &p.InsuredAddress,
		&firstDue, &nextDue, &remaining, &p.AutoRenewal, &docs,
		&contact, &policyData, &p.Notes, &cancelAt, &p.CancellationReason,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan policy: %w", err)
	}
	ids := []struct {
		raw string
		dst *uuid.UUID
	}{
		{rawID, (*uuid.UUID)(&p.ID)},
		{rawRequest, (*uuid.UUID)(&p.QuoteRequestID)},
		{rawQuote, (*uuid.UUID)(&p.CarrierQuoteID)},
		{rawCarrier, (*uuid.UUID)(&p.CarrierID)},
	}
	for _, v := range ids {
		parsed, err := uuid.Parse(v.raw)
		if err != nil {
			return nil, fmt.Errorf("parse policy reference: %w", err)
		}
		*v.dst = parsed
	}
	if userID.Valid {
		u, err := uuid.Parse(userID.String)
		if err != nil {
			return nil, fmt.Errorf("parse user id: %w", err)
		}
		uid := id.UserID(u)
		p.UserID = &uid
	}
	p.InsuranceType = id.InsuranceType(insuranceType)
	p.CoverageType = id.CoverageType(coverageType)
	p.Status = models.Status(status)
	p.PaymentPlan = models.PaymentPlan(plan)
	p.CoverageLimits = limits
	p.CarrierContact = contact
	p.CarrierPolicyData = policyData
	if err := json.Unmarshal(docs, &p.Documents); err != nil {
		return nil, fmt.Errorf("decode policy documents: %w", err)
	}
	if monthly.Valid {
		v := monthly.Float64
		p.MonthlyAmount = &v
	}
	if remaining.Valid {
		v := int(remaining.Int64)
		p.PaymentsRemaining = &v
	}
	p.EffectiveDate = timePtr(effective)
	p.ExpirationDate = timePtr(expiration)
	p.FirstPaymentDue = timePtr(firstDue)
	p.NextPaymentDate = timePtr(nextDue)
	p.CancelledAt = timePtr(cancelAt)
	return &p, nil
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
