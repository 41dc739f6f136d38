package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dhoini/Entitlement-service/internal/domain"
	"github.com/Dhoini/Entitlement-service/internal/repository"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresEntitlementRepository is the entitlement store backed by
// PostgreSQL. The schema carries a UNIQUE index on
// (payment_reference, amount), so the dedup check-and-insert is a
// single conditional write rather than a racy check-then-insert.
type PostgresEntitlementRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresEntitlementRepository creates a new PostgreSQL entitlement store
func NewPostgresEntitlementRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresEntitlementRepository {
	return &PostgresEntitlementRepository{
		db:  db,
		log: log,
	}
}

const entitlementColumns = `id, user_id, user_email, plan_name, amount, payment_reference,
		status, start_date, expiry_date, source_payment_id, activated_by, created_at, updated_at`

func scanEntitlement(row pgx.Row) (domain.EntitlementRecord, error) {
	var e domain.EntitlementRecord
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.UserEmail,
		&e.PlanName,
		&e.Amount,
		&e.PaymentReference,
		&e.Status,
		&e.StartDate,
		&e.ExpiryDate,
		&e.SourcePaymentID,
		&e.ActivatedBy,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	return e, err
}

func collectEntitlements(rows pgx.Rows) ([]domain.EntitlementRecord, error) {
	defer rows.Close()

	var records []domain.EntitlementRecord
	for rows.Next() {
		record, err := scanEntitlement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entitlement: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entitlements: %w", err)
	}

	return records, nil
}

// GetAll returns every entitlement, newest first
func (r *PostgresEntitlementRepository) GetAll(ctx context.Context) ([]domain.EntitlementRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM entitlements ORDER BY created_at DESC`, entitlementColumns)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query entitlements: %w", err)
	}

	return collectEntitlements(rows)
}

// GetByID returns an entitlement by ID
func (r *PostgresEntitlementRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.EntitlementRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM entitlements WHERE id = $1`, entitlementColumns)

	record, err := scanEntitlement(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.EntitlementRecord{}, repository.ErrNotFound
		}
		return domain.EntitlementRecord{}, fmt.Errorf("failed to get entitlement: %w", err)
	}

	return record, nil
}

// GetByKey returns the entitlement for a dedup key
func (r *PostgresEntitlementRepository) GetByKey(ctx context.Context, key domain.DedupKey) (domain.EntitlementRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM entitlements WHERE payment_reference = $1 AND amount = $2`, entitlementColumns)

	record, err := scanEntitlement(r.db.QueryRow(ctx, query, key.PaymentReference, key.Amount))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.EntitlementRecord{}, repository.ErrNotFound
		}
		return domain.EntitlementRecord{}, fmt.Errorf("failed to get entitlement by key: %w", err)
	}

	return record, nil
}

// GetByUserID returns all entitlements held by a user, newest first
func (r *PostgresEntitlementRepository) GetByUserID(ctx context.Context, userID string) ([]domain.EntitlementRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM entitlements WHERE user_id = $1 ORDER BY created_at DESC`, entitlementColumns)

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entitlements by user: %w", err)
	}

	return collectEntitlements(rows)
}

// GetByStatus returns all entitlements with the given status, newest first
func (r *PostgresEntitlementRepository) GetByStatus(ctx context.Context, status domain.EntitlementStatus) ([]domain.EntitlementRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM entitlements WHERE status = $1 ORDER BY created_at DESC`, entitlementColumns)

	rows, err := r.db.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query entitlements by status: %w", err)
	}

	return collectEntitlements(rows)
}

// CreateIfAbsent inserts an entitlement unless one already exists for
// its dedup key. The unique violation on (payment_reference, amount)
// maps to ErrDuplicate, so concurrent activations cannot both succeed.
func (r *PostgresEntitlementRepository) CreateIfAbsent(ctx context.Context, entitlement domain.EntitlementRecord) (domain.EntitlementRecord, error) {
	query := `
		INSERT INTO entitlements (id, user_id, user_email, plan_name, amount, payment_reference,
			status, start_date, expiry_date, source_payment_id, activated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx,
		query,
		entitlement.ID,
		entitlement.UserID,
		entitlement.UserEmail,
		entitlement.PlanName,
		entitlement.Amount,
		entitlement.PaymentReference,
		entitlement.Status,
		entitlement.StartDate,
		entitlement.ExpiryDate,
		entitlement.SourcePaymentID,
		entitlement.ActivatedBy,
	).Scan(&entitlement.CreatedAt, &entitlement.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.EntitlementRecord{}, repository.ErrDuplicate
		}
		return domain.EntitlementRecord{}, fmt.Errorf("failed to create entitlement: %w", err)
	}

	return entitlement, nil
}

// Update persists the mutable status of an entitlement
func (r *PostgresEntitlementRepository) Update(ctx context.Context, entitlement domain.EntitlementRecord) error {
	query := `
		UPDATE entitlements
		SET status = $1, expiry_date = $2, updated_at = NOW()
		WHERE id = $3
	`

	result, err := r.db.Exec(ctx, query, entitlement.Status, entitlement.ExpiryDate, entitlement.ID)
	if err != nil {
		return fmt.Errorf("failed to update entitlement: %w", err)
	}

	if result.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}
