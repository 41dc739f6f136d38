package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Dhoini/Entitlement-service/internal/domain"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEntitlement(reference string, amount int64) domain.EntitlementRecord {
	now := time.Now()
	return domain.EntitlementRecord{
		ID:               uuid.New(),
		UserID:           uuid.NewString(),
		UserEmail:        "user@example.com",
		PlanName:         "Premium",
		Amount:           amount,
		PaymentReference: reference,
		Status:           domain.EntitlementStatusActive,
		StartDate:        now,
		ExpiryDate:       now.AddDate(1, 0, 0),
		SourcePaymentID:  uuid.New(),
	}
}

func TestCreateIfAbsent(t *testing.T) {
	repo := NewInMemoryEntitlementRepository(logger.New(logger.ERROR))
	ctx := context.Background()

	first := newTestEntitlement("TXN-100", 449)
	created, err := repo.CreateIfAbsent(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, first.ID, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	// Same reference and amount from a different user is still a duplicate.
	second := newTestEntitlement("TXN-100", 449)
	_, err = repo.CreateIfAbsent(ctx, second)
	assert.ErrorIs(t, err, ErrDuplicate)

	// Same reference but different amount is a distinct key.
	third := newTestEntitlement("TXN-100", 4308)
	_, err = repo.CreateIfAbsent(ctx, third)
	assert.NoError(t, err)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCreateIfAbsentConcurrent(t *testing.T) {
	repo := NewInMemoryEntitlementRepository(logger.New(logger.ERROR))
	ctx := context.Background()

	const attempts = 32
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.CreateIfAbsent(ctx, newTestEntitlement("TXN-RACE", 449))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, duplicates int
	for err := range results {
		if err == nil {
			succeeded++
		} else if assert.ErrorIs(t, err, ErrDuplicate) {
			duplicates++
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, duplicates)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetByKey(t *testing.T) {
	repo := NewInMemoryEntitlementRepository(logger.New(logger.ERROR))
	ctx := context.Background()

	record := newTestEntitlement("TXN-200", 4308)
	_, err := repo.CreateIfAbsent(ctx, record)
	require.NoError(t, err)

	found, err := repo.GetByKey(ctx, domain.DedupKey{PaymentReference: "TXN-200", Amount: 4308})
	require.NoError(t, err)
	assert.Equal(t, record.ID, found.ID)

	_, err = repo.GetByKey(ctx, domain.DedupKey{PaymentReference: "TXN-200", Amount: 449})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEntitlementUpdate(t *testing.T) {
	repo := NewInMemoryEntitlementRepository(logger.New(logger.ERROR))
	ctx := context.Background()

	record := newTestEntitlement("TXN-300", 449)
	created, err := repo.CreateIfAbsent(ctx, record)
	require.NoError(t, err)

	created.Status = domain.EntitlementStatusCancelled
	require.NoError(t, repo.Update(ctx, created))

	found, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EntitlementStatusCancelled, found.Status)
	assert.Equal(t, created.CreatedAt, found.CreatedAt)

	missing := newTestEntitlement("TXN-301", 449)
	assert.ErrorIs(t, repo.Update(ctx, missing), ErrNotFound)
}
