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
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresPaymentRepository is the payment ledger backed by PostgreSQL
type PostgresPaymentRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresPaymentRepository creates a new PostgreSQL payment ledger
func NewPostgresPaymentRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{
		db:  db,
		log: log,
	}
}

const paymentColumns = `id, amount, payment_reference, payment_method, screenshot_ref, plan_name,
		status, remarks, user_id, user_email, verified_by, verified_at, created_at, updated_at`

func scanPayment(row pgx.Row) (domain.PaymentRecord, error) {
	var p domain.PaymentRecord
	err := row.Scan(
		&p.ID,
		&p.Amount,
		&p.PaymentReference,
		&p.PaymentMethod,
		&p.ScreenshotRef,
		&p.PlanName,
		&p.Status,
		&p.Remarks,
		&p.UserID,
		&p.UserEmail,
		&p.VerifiedBy,
		&p.VerifiedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func collectPayments(rows pgx.Rows) ([]domain.PaymentRecord, error) {
	defer rows.Close()

	var payments []domain.PaymentRecord
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, payment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payments: %w", err)
	}

	return payments, nil
}

// GetAll returns every payment, newest first
func (r *PostgresPaymentRepository) GetAll(ctx context.Context) ([]domain.PaymentRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments ORDER BY created_at DESC`, paymentColumns)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}

	return collectPayments(rows)
}

// GetByID returns a payment by ID
func (r *PostgresPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.PaymentRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE id = $1`, paymentColumns)

	payment, err := scanPayment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PaymentRecord{}, repository.ErrNotFound
		}
		return domain.PaymentRecord{}, fmt.Errorf("failed to get payment: %w", err)
	}

	return payment, nil
}

// GetByStatus returns all payments with the given status, newest first
func (r *PostgresPaymentRepository) GetByStatus(ctx context.Context, status domain.PaymentStatus) ([]domain.PaymentRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE status = $1 ORDER BY created_at DESC`, paymentColumns)

	rows, err := r.db.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments by status: %w", err)
	}

	return collectPayments(rows)
}

// GetByUserID returns all payments submitted by a user, newest first
func (r *PostgresPaymentRepository) GetByUserID(ctx context.Context, userID string) ([]domain.PaymentRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE user_id = $1 ORDER BY created_at DESC`, paymentColumns)

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments by user: %w", err)
	}

	return collectPayments(rows)
}

// Create records a new claimed payment
func (r *PostgresPaymentRepository) Create(ctx context.Context, payment domain.PaymentRecord) (domain.PaymentRecord, error) {
	query := `
		INSERT INTO payments (id, amount, payment_reference, payment_method, screenshot_ref, plan_name,
			status, remarks, user_id, user_email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx,
		query,
		payment.ID,
		payment.Amount,
		payment.PaymentReference,
		payment.PaymentMethod,
		payment.ScreenshotRef,
		payment.PlanName,
		payment.Status,
		payment.Remarks,
		payment.UserID,
		payment.UserEmail,
	).Scan(&payment.CreatedAt, &payment.UpdatedAt)

	if err != nil {
		return domain.PaymentRecord{}, fmt.Errorf("failed to create payment: %w", err)
	}

	return payment, nil
}

// Transition persists the mutable fields of a payment: status, remarks
// and the verifier stamp. Everything else is immutable after
// submission. The status predicate makes the write a compare-and-swap:
// a concurrent transition that commits first leaves zero rows matched.
func (r *PostgresPaymentRepository) Transition(ctx context.Context, payment domain.PaymentRecord, from domain.PaymentStatus) error {
	query := `
		UPDATE payments
		SET status = $1, remarks = $2, verified_by = $3, verified_at = $4, updated_at = NOW()
		WHERE id = $5 AND status = $6
	`

	result, err := r.db.Exec(
		ctx,
		query,
		payment.Status,
		payment.Remarks,
		payment.VerifiedBy,
		payment.VerifiedAt,
		payment.ID,
		from,
	)
	if err != nil {
		return fmt.Errorf("failed to transition payment: %w", err)
	}

	if result.RowsAffected() == 0 {
		if _, getErr := r.GetByID(ctx, payment.ID); errors.Is(getErr, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return repository.ErrStateConflict
	}

	return nil
}
