package authz

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dhoini/Entitlement-service/internal/domain"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	claimsKeyPrefix = "claims:"

	// TTL keeps reconciliation reads cheap without hiding drift forever
	defaultCacheTTL = 5 * time.Minute
)

// SnapshotCache caches external claims snapshots in Redis. The
// reconciliation read path hits one subject per active entitlement;
// the cache keeps repeated drift scans off the authorization service.
type SnapshotCache struct {
	client *redis.Client
	log    *logger.Logger
}

// NewSnapshotCache creates a new Redis-backed snapshot cache
func NewSnapshotCache(redisAddr, redisPassword string, redisDB int, log *logger.Logger) (*SnapshotCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Errorw("Failed to connect to Redis", "error", err)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Infow("Connected to Redis successfully", "addr", redisAddr)
	return &SnapshotCache{
		client: client,
		log:    log,
	}, nil
}

// Close closes the Redis connection
func (c *SnapshotCache) Close() error {
	return c.client.Close()
}

// CacheSnapshot stores a claims snapshot with the default TTL
func (c *SnapshotCache) CacheSnapshot(ctx context.Context, snapshot *domain.ClaimsSnapshot) error {
	key := claimsKeyPrefix + snapshot.SubjectID

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal claims snapshot: %w", err)
	}

	if err := c.client.Set(ctx, key, data, defaultCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache claims snapshot: %w", err)
	}

	c.log.Debugw("Claims snapshot cached", "subjectID", snapshot.SubjectID)
	return nil
}

// GetCachedSnapshot returns a cached snapshot, or nil on a miss
func (c *SnapshotCache) GetCachedSnapshot(ctx context.Context, subjectID string) (*domain.ClaimsSnapshot, error) {
	key := claimsKeyPrefix + subjectID

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get claims snapshot from cache: %w", err)
	}

	var snapshot domain.ClaimsSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached claims snapshot: %w", err)
	}

	return &snapshot, nil
}

// Invalidate drops the cached snapshot for a subject. Called after
// every successful synchronizer mutation so reads never serve the
// pre-sync state past the consistency window.
func (c *SnapshotCache) Invalidate(ctx context.Context, subjectID string) error {
	key := claimsKeyPrefix + subjectID
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate claims snapshot: %w", err)
	}
	c.log.Debugw("Claims snapshot invalidated", "subjectID", subjectID)
	return nil
}

// CachedClaimsService decorates a ClaimsService with read-through
// caching of GetClaims. Mutations pass through and invalidate.
type CachedClaimsService struct {
	service ClaimsService
	cache   *SnapshotCache
	log     *logger.Logger
}

// NewCachedClaimsService creates a caching decorator over a ClaimsService
func NewCachedClaimsService(service ClaimsService, cache *SnapshotCache, log *logger.Logger) ClaimsService {
	return &CachedClaimsService{
		service: service,
		cache:   cache,
		log:     log,
	}
}

// GetClaims returns the snapshot from cache when present, falling back
// to the authorization service on a miss or cache error.
func (s *CachedClaimsService) GetClaims(ctx context.Context, subjectID string) (*domain.ClaimsSnapshot, error) {
	cached, err := s.cache.GetCachedSnapshot(ctx, subjectID)
	if err != nil {
		s.log.Warnw("Error reading claims snapshot from cache", "error", err, "subjectID", subjectID)
	}
	if cached != nil {
		s.log.Debugw("Claims snapshot served from cache", "subjectID", subjectID)
		return cached, nil
	}

	snapshot, err := s.service.GetClaims(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.CacheSnapshot(ctx, snapshot); err != nil {
		s.log.Warnw("Failed to cache claims snapshot after fetch", "error", err, "subjectID", subjectID)
	}

	return snapshot, nil
}

// GetClaimsByEmail always goes to the authorization service; the cache
// is keyed by subject ID only.
func (s *CachedClaimsService) GetClaimsByEmail(ctx context.Context, email string) (*domain.ClaimsSnapshot, error) {
	return s.service.GetClaimsByEmail(ctx, email)
}

// SetClaims passes through and invalidates the subject's cache entry
func (s *CachedClaimsService) SetClaims(ctx context.Context, subjectID string, claims domain.Claims) (*domain.ClaimsSnapshot, error) {
	snapshot, err := s.service.SetClaims(ctx, subjectID, claims)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Invalidate(ctx, subjectID); err != nil {
		s.log.Warnw("Failed to invalidate claims cache after set", "error", err, "subjectID", subjectID)
	}

	return snapshot, nil
}

// UpdateClaims passes through and invalidates the subject's cache entry
func (s *CachedClaimsService) UpdateClaims(ctx context.Context, subjectID string, update domain.ClaimsUpdate) (*domain.ClaimsSnapshot, error) {
	snapshot, err := s.service.UpdateClaims(ctx, subjectID, update)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Invalidate(ctx, subjectID); err != nil {
		s.log.Warnw("Failed to invalidate claims cache after update", "error", err, "subjectID", subjectID)
	}

	return snapshot, nil
}

// DeleteClaims passes through and invalidates the subject's cache entry
func (s *CachedClaimsService) DeleteClaims(ctx context.Context, subjectID string, fields []string) (*domain.ClaimsSnapshot, error) {
	snapshot, err := s.service.DeleteClaims(ctx, subjectID, fields)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Invalidate(ctx, subjectID); err != nil {
		s.log.Warnw("Failed to invalidate claims cache after delete", "error", err, "subjectID", subjectID)
	}

	return snapshot, nil
}
