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
	"github.com/lib/pq"

	carriermodels "clarence/internal/carrier/models"
	"clarence/internal/quote/models"
	id "clarence/pkg/domain"
	"clarence/pkg/platform/sentinel"
)

// PostgresStore persists quote requests in quote_requests,
// quote_request_coverages and carrier_quotes. Business, address, contact and
// financial sections are JSONB documents.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const requestColumns = `id, session_id, user_id, insurance_type, request_type, status,
	business_info, address, contact, financials, additional_comments,
	consent_marketing, consent_privacy_policy, submitted_at, quotes_ready_at,
	estimated_completion_time, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, q *models.QuoteRequest) error {
	args, err := requestArgs(q)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO quote_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create quote request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, requestID id.QuoteRequestID) (*models.QuoteRequest, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM quote_requests WHERE id = $1`, requestID.String())
	return scanRequest(row)
}

func (s *PostgresStore) FindLatestBySession(ctx context.Context, sessionID string) (*models.QuoteRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+` FROM quote_requests
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, sessionID)
	return scanRequest(row)
}

func (s *PostgresStore) Update(ctx context.Context, q *models.QuoteRequest) error {
	args, err := requestArgs(q)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE quote_requests SET
			session_id = $2, user_id = $3, insurance_type = $4, request_type = $5, status = $6,
			business_info = $7, address = $8, contact = $9, financials = $10,
			additional_comments = $11, consent_marketing = $12, consent_privacy_policy = $13,
			submitted_at = $14, quotes_ready_at = $15, estimated_completion_time = $16,
			updated_at = $17
		WHERE id = $1
	`, append(args[:16:16], args[17])...)
	if err != nil {
		return fmt.Errorf("update quote request: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ReplaceCoverages deletes and re-inserts the coverage rows in one transaction.
func (s *PostgresStore) ReplaceCoverages(ctx context.Context, requestID id.QuoteRequestID, coverages []models.Coverage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin coverage replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM quote_requests WHERE id = $1 FOR UPDATE`, requestID.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock quote request: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM quote_request_coverages WHERE quote_request_id = $1`, requestID.String()); err != nil {
		return fmt.Errorf("delete coverages: %w", err)
	}
	for i, c := range coverages {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO quote_request_coverages
				(quote_request_id, coverage_type, position, is_selected, is_recommended, recommendation_reason, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, requestID.String(), string(c.CoverageType), i, c.IsSelected, c.IsRecommended, c.RecommendationReason, c.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert coverage: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit coverage replace: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListCoverages(ctx context.Context, requestID id.QuoteRequestID) ([]models.Coverage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT coverage_type, is_selected, is_recommended, recommendation_reason, created_at
		FROM quote_request_coverages
		WHERE quote_request_id = $1
		ORDER BY position
	`, requestID.String())
	if err != nil {
		return nil, fmt.Errorf("list coverages: %w", err)
	}
	defer rows.Close()

	var out []models.Coverage
	for rows.Next() {
		c := models.Coverage{QuoteRequestID: requestID}
		var coverage string
		if err := rows.Scan(&coverage, &c.IsSelected, &c.IsRecommended, &c.RecommendationReason, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan coverage: %w", err)
		}
		c.CoverageType = id.CoverageType(coverage)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list coverages: %w", err)
	}
	return out, nil
}

const carrierQuoteColumns = `id, quote_request_id, carrier_id, carrier_code, carrier_name, carrier_quote_ref,
	status, coverage_type, insurance_type, annual_premium, monthly_premium, quarterly_premium,
	payment_in_full_discount, coverage_limits, deductible, effective_date, expiration_date,
	policy_form, highlights, exclusions, optional_coverages, underwriting_notes, decline_reason,
	decline_code, package_discount_percentage, package_discount_amount, valid_until, cached,
	response_time_ms, raw_carrier_response, created_at`

// SaveCarrierQuote appends a quote. The (request, carrier, coverage) unique
// constraint maps to ErrConflict.
func (s *PostgresStore) SaveCarrierQuote(ctx context.Context, q *carriermodels.CarrierQuote) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO carrier_quotes (`+carrierQuoteColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31)
	`,
		q.ID.String(), q.QuoteRequestID.String(), q.CarrierID.String(), q.CarrierCode, q.CarrierName,
		q.CarrierQuoteRef, string(q.Status), string(q.CoverageType), string(q.InsuranceType),
		q.AnnualPremium, q.MonthlyPremium, q.QuarterlyPremium, q.PaymentInFullDiscount,
		nullJSON(q.CoverageLimits), q.Deductible, q.EffectiveDate, q.ExpirationDate, q.PolicyForm,
		pq.Array(nonNil(q.Highlights)), pq.Array(nonNil(q.Exclusions)),
		nullJSON(q.OptionalCoverages), nullJSON(q.UnderwritingNotes), q.DeclineReason, q.DeclineCode,
		q.PackageDiscountPercentage, q.PackageDiscountAmount, q.ValidUntil, q.Cached,
		q.ResponseTimeMs, nullJSON(q.RawCarrierResponse), q.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("save carrier quote: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindCarrierQuote(ctx context.Context, quoteID id.CarrierQuoteID) (*carriermodels.CarrierQuote, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+carrierQuoteColumns+` FROM carrier_quotes WHERE id = $1`, quoteID.String())
	return scanCarrierQuote(row)
}

func (s *PostgresStore) ListCarrierQuotes(ctx context.Context, requestID id.QuoteRequestID) ([]*carriermodels.CarrierQuote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+carrierQuoteColumns+` FROM carrier_quotes
		WHERE quote_request_id = $1
		ORDER BY annual_premium ASC, created_at ASC
	`, requestID.String())
	if err != nil {
		return nil, fmt.Errorf("list carrier quotes: %w", err)
	}
	defer rows.Close()

	var out []*carriermodels.CarrierQuote
	for rows.Next() {
		q, err := scanCarrierQuote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list carrier quotes: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func requestArgs(q *models.QuoteRequest) ([]any, error) {
	business, err := json.Marshal(q.Business)
	if err != nil {
		return nil, fmt.Errorf("encode business info: %w", err)
	}
	address, err := json.Marshal(q.Address)
	if err != nil {
		return nil, fmt.Errorf("encode address: %w", err)
	}
	contact, err := json.Marshal(q.Contact)
	if err != nil {
		return nil, fmt.Errorf("encode contact: %w", err)
	}
	financials, err := json.Marshal(q.Financials)
	if err != nil {
		return nil, fmt.Errorf("encode financials: %w", err)
	}
	var userID any
	if q.UserID != nil {
		userID = q.UserID.String()
	}
	return []any{
		q.ID.String(), q.SessionID, userID, string(q.InsuranceType), string(q.RequestType), string(q.Status),
		business, address, contact, financials, q.AdditionalComments,
		q.ConsentMarketing, q.ConsentPrivacyPolicy, q.SubmittedAt, q.QuotesReadyAt,
		q.EstimatedCompletionTime, q.CreatedAt, q.UpdatedAt,
	}, nil
}

func scanRequest(row rowScanner) (*models.QuoteRequest, error) {
	var (
		q                                        models.QuoteRequest
		rawID                                    string
		userID                                   sql.NullString
		insuranceType, requestType, status       string
		business, address, contact, financials   []byte
		submittedAt, readyAt, estimatedCompleted sql.NullTime
	)
	err := row.Scan(&rawID, &q.SessionID, &userID, &insuranceType, &requestType, &status,
		&business, &address, &contact, &financials, &q.AdditionalComments,
		&q.ConsentMarketing, &q.ConsentPrivacyPolicy, &submittedAt, &readyAt,
		&estimatedCompleted, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan quote request: %w", err)
	}
	parsed, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse quote request id: %w", err)
	}
	q.ID = id.QuoteRequestID(parsed)
	if userID.Valid {
		u, err := uuid.Parse(userID.String)
		if err != nil {
			return nil, fmt.Errorf("parse user id: %w", err)
		}
		uid := id.UserID(u)
		q.UserID = &uid
	}
	q.InsuranceType = id.InsuranceType(insuranceType)
	q.RequestType = models.RequestType(requestType)
	q.Status = models.Status(status)
	for _, doc := range []struct {
		raw []byte
		dst any
	}{
		{business, &q.Business},
		{address, &q.Address},
		{contact, &q.Contact},
		{financials, &q.Financials},
	} {
		if err := json.Unmarshal(doc.raw, doc.dst); err != nil {
			return nil, fmt.Errorf("decode quote request section: %w", err)
		}
	}
	q.SubmittedAt = timePtr(submittedAt)
	q.QuotesReadyAt = timePtr(readyAt)
	q.EstimatedCompletionTime = timePtr(estimatedCompleted)
	return &q, nil
}

func scanCarrierQuote(row rowScanner) (*carriermodels.CarrierQuote, error) {
	var (
		q                                  carriermodels.CarrierQuote
		rawID, rawRequestID, rawCarrierID  string
		status, coverage, insuranceType    string
		limits, optional, notes, raw       []byte
		effective, expiration              sql.NullTime
		highlights, exclusions             pq.StringArray
		discountPercentage, discountAmount sql.NullFloat64
	)
	err := row.Scan(&rawID, &rawRequestID, &rawCarrierID, &q.CarrierCode, &q.CarrierName, &q.CarrierQuoteRef,
		&status, &coverage, &insuranceType, &q.AnnualPremium, &q.MonthlyPremium, &q.QuarterlyPremium,
		&q.PaymentInFullDiscount, &limits, &q.Deductible, &effective, &expiration,
		&q.PolicyForm, &highlights, &exclusions, &optional, &notes, &q.DeclineReason,
		&q.DeclineCode, &discountPercentage, &discountAmount, &q.ValidUntil, &q.Cached,
		&q.ResponseTimeMs, &raw, &q.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan carrier quote: %w", err)
	}
	quoteID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse carrier quote id: %w", err)
	}
	requestID, err := uuid.Parse(rawRequestID)
	if err != nil {
		return nil, fmt.Errorf("parse quote request id: %w", err)
	}
	carrierID, err := uuid.Parse(rawCarrierID)
	if err != nil {
		return nil, fmt.Errorf("parse carrier id: %w", err)
	}
	q.ID = id.CarrierQuoteID(quoteID)
	q.QuoteRequestID = id.QuoteRequestID(requestID)
	q.CarrierID = id.CarrierID(carrierID)
	q.Status = carriermodels.QuoteStatus(status)
	q.CoverageType = id.CoverageType(coverage)
	q.InsuranceType = id.InsuranceType(insuranceType)
	q.CoverageLimits = limits
	q.OptionalCoverages = optional
	q.UnderwritingNotes = notes
	q.RawCarrierResponse = raw
	q.EffectiveDate = timePtr(effective)
	q.ExpirationDate = timePtr(expiration)
	q.Highlights = []string(highlights)
	q.Exclusions = []string(exclusions)
	if discountPercentage.Valid {
		v := discountPercentage.Float64
		q.PackageDiscountPercentage = &v
	}
	if discountAmount.Valid {
		v := discountAmount.Float64
		q.PackageDiscountAmount = &v
	}
	return &q, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// nullJSON maps an empty document to SQL NULL.
func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
