// Package catalog resolves attribute codes to attribute definitions for a
// tenant.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"catalog-service/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "tesseract:catalog:attributes:"

// DefaultTTL is how long a tenant's attribute snapshot stays in Redis
const DefaultTTL = 5 * time.Minute

// AttributeStore loads attribute definitions from the database
type AttributeStore interface {
	ListAttributes(ctx context.Context, tenantID string) ([]models.Attribute, error)
}

// Set is a snapshot of a tenant's attributes keyed by code. Sets may be shared
// between callers and must not be modified.
type Set map[string]*models.Attribute

// Get returns the attribute with the given code, or nil.
func (s Set) Get(code string) *models.Attribute {
	if s == nil {
		return nil
	}
	return s[code]
}

// Catalog is the read-only attribute registry. Snapshots are cached in Redis
// per tenant and concurrent loads for the same tenant are collapsed.
type Catalog struct {
	store  AttributeStore
	redis  *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *logrus.Entry
}

// New creates a catalog. redisClient may be nil, in which case every
// snapshot comes from the store.
func New(store AttributeStore, redisClient *redis.Client, ttl time.Duration, logger *logrus.Logger) *Catalog {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Catalog{
		store:  store,
		redis:  redisClient,
		ttl:    ttl,
		logger: logger.WithField("component", "attribute-catalog"),
	}
}

// Snapshot returns every attribute of the tenant.
func (c *Catalog) Snapshot(ctx context.Context, tenantID string) (Set, error) {
	if set, ok := c.fromCache(ctx, tenantID); ok {
		return set, nil
	}

	v, err, _ := c.group.Do(tenantID, func() (interface{}, error) {
		attrs, err := c.store.ListAttributes(ctx, tenantID)
		if err != nil {
			return nil, fmt.Errorf("failed to load attributes: %w", err)
		}
		c.toCache(ctx, tenantID, attrs)
		return newSet(attrs), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Set), nil
}

// Lookup returns the attribute for code, or nil when the tenant has none.
func (c *Catalog) Lookup(ctx context.Context, tenantID, code string) (*models.Attribute, error) {
	set, err := c.Snapshot(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return set.Get(code), nil
}

// Resolve returns the subset of codes known to the tenant. Unknown codes are
// left out.
func (c *Catalog) Resolve(ctx context.Context, tenantID string, codes []string) (Set, error) {
	set, err := c.Snapshot(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	resolved := make(Set, len(codes))
	for _, code := range codes {
		if attr := set.Get(code); attr != nil {
			resolved[code] = attr
		}
	}
	return resolved, nil
}

// Invalidate drops the cached snapshot of a tenant.
func (c *Catalog) Invalidate(ctx context.Context, tenantID string) error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Del(ctx, keyPrefix+tenantID).Err()
}

func (c *Catalog) fromCache(ctx context.Context, tenantID string) (Set, bool) {
	if c.redis == nil {
		return nil, false
	}
	val, err := c.redis.Get(ctx, keyPrefix+tenantID).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).WithField("tenantID", tenantID).Warn("Attribute cache read failed")
		}
		return nil, false
	}
	var attrs []models.Attribute
	if err := json.Unmarshal([]byte(val), &attrs); err != nil {
		c.logger.WithError(err).WithField("tenantID", tenantID).Warn("Discarding corrupt attribute cache entry")
		return nil, false
	}
	return newSet(attrs), true
}

func (c *Catalog) toCache(ctx context.Context, tenantID string, attrs []models.Attribute) {
	if c.redis == nil {
		return
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, keyPrefix+tenantID, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("tenantID", tenantID).Warn("Attribute cache write failed")
	}
}

func newSet(attrs []models.Attribute) Set {
	set := make(Set, len(attrs))
	for i := range attrs {
		set[attrs[i].Code] = &attrs[i]
	}
	return set
}
