package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/platinummonkey/filtros/pkg/catalog"
)

// Repository decorates a catalog.Repository with read-through caching of
// single filters, categories, distributors, category lists and statistics.
// Writes invalidate the affected keys.
type Repository struct {
	catalog.Repository
	cache *Cache
}

var _ catalog.Repository = (*Repository)(nil)

// NewRepository wraps next with c.
func NewRepository(next catalog.Repository, c *Cache) *Repository {
	return &Repository{Repository: next, cache: c}
}

// Cache returns the underlying cache.
func (r *Repository) Cache() *Cache { return r.cache }

func filterKey(id int64) string        { return "filter:" + strconv.FormatInt(id, 10) }
func filterCodeKey(code string) string { return filterCodePrefix + code }
func categoryKey(id int64) string      { return "category:" + strconv.FormatInt(id, 10) }
func distributorKey(id int64) string   { return "distributor:" + strconv.FormatInt(id, 10) }

func categoryListKey(categoryType string) string {
	if categoryType == "" {
		categoryType = "_all"
	}
	return "categories:" + categoryType
}

const (
	filterStatsKey   = "stats:filters"
	filterCodePrefix = "filter:code:"
)

func lookup[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var v T
	data, ok := c.Get(ctx, key)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		c.Delete(ctx, key)
		return v, false
	}
	return v, true
}

func (r *Repository) store(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		r.cache.logger.WithError(err).WithField("key", key).Warn("Cache encode failed")
		return
	}
	r.cache.Set(ctx, key, data)
}

// GetFilter serves active filters from cache.
func (r *Repository) GetFilter(ctx context.Context, id int64) (*catalog.Filter, error) {
	key := filterKey(id)
	if f, ok := lookup[*catalog.Filter](ctx, r.cache, key); ok && f != nil {
		return f, nil
	}
	f, err := r.Repository.GetFilter(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, f)
	return f.Clone(), nil
}

// GetFilterByCode serves active filters by product code from cache.
func (r *Repository) GetFilterByCode(ctx context.Context, code string) (*catalog.Filter, error) {
	key := filterCodeKey(code)
	if f, ok := lookup[*catalog.Filter](ctx, r.cache, key); ok && f != nil {
		return f, nil
	}
	f, err := r.Repository.GetFilterByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, f)
	return f.Clone(), nil
}

// CreateFilter stores f and drops cached statistics.
func (r *Repository) CreateFilter(ctx context.Context, f *catalog.Filter) error {
	if err := r.Repository.CreateFilter(ctx, f); err != nil {
		return err
	}
	r.cache.Delete(ctx, filterStatsKey)
	return nil
}

// UpdateFilter writes f and invalidates its cache entry.
func (r *Repository) UpdateFilter(ctx context.Context, f *catalog.Filter) error {
	err := r.Repository.UpdateFilter(ctx, f)
	r.cache.Delete(ctx, filterKey(f.ID), filterStatsKey)
	r.cache.DeletePrefix(ctx, filterCodePrefix)
	return err
}

// DeactivateFilter soft-deletes and invalidates.
func (r *Repository) DeactivateFilter(ctx context.Context, id int64, at time.Time) error {
	err := r.Repository.DeactivateFilter(ctx, id, at)
	r.cache.Delete(ctx, filterKey(id), filterStatsKey)
	r.cache.DeletePrefix(ctx, filterCodePrefix)
	return err
}

// FilterStatistics caches the aggregate for the cache TTL.
func (r *Repository) FilterStatistics(ctx context.Context) (*catalog.FilterStats, error) {
	if s, ok := lookup[*catalog.FilterStats](ctx, r.cache, filterStatsKey); ok && s != nil {
		return s, nil
	}
	s, err := r.Repository.FilterStatistics(ctx)
	if err != nil {
		return nil, err
	}
	r.store(ctx, filterStatsKey, s)
	return s, nil
}

// ListCategories caches the list per type.
func (r *Repository) ListCategories(ctx context.Context, categoryType string) ([]*catalog.Category, error) {
	key := categoryListKey(categoryType)
	if cs, ok := lookup[[]*catalog.Category](ctx, r.cache, key); ok {
		return cs, nil
	}
	cs, err := r.Repository.ListCategories(ctx, categoryType)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, cs)
	return cs, nil
}

// GetCategory serves active categories from cache.
func (r *Repository) GetCategory(ctx context.Context, id int64) (*catalog.Category, error) {
	key := categoryKey(id)
	if c, ok := lookup[*catalog.Category](ctx, r.cache, key); ok && c != nil {
		return c, nil
	}
	c, err := r.Repository.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, c)
	cp := *c
	return &cp, nil
}

// invalidateCategories drops category entries and every cached filter, since
// filters embed their category.
func (r *Repository) invalidateCategories(ctx context.Context, id int64) {
	if id > 0 {
		r.cache.Delete(ctx, categoryKey(id))
	}
	r.cache.DeletePrefix(ctx, "categories:")
	r.cache.DeletePrefix(ctx, "filter:")
	r.cache.Delete(ctx, filterStatsKey)
}

// CreateCategory stores c and drops cached category lists.
func (r *Repository) CreateCategory(ctx context.Context, c *catalog.Category) error {
	if err := r.Repository.CreateCategory(ctx, c); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, "categories:")
	return nil
}

// UpdateCategory writes c and invalidates dependants.
func (r *Repository) UpdateCategory(ctx context.Context, c *catalog.Category) error {
	err := r.Repository.UpdateCategory(ctx, c)
	r.invalidateCategories(ctx, c.ID)
	return err
}

// DeactivateCategory soft-deletes and invalidates dependants.
func (r *Repository) DeactivateCategory(ctx context.Context, id int64) error {
	err := r.Repository.DeactivateCategory(ctx, id)
	r.invalidateCategories(ctx, id)
	return err
}

// GetDistributor serves active distributors from cache.
func (r *Repository) GetDistributor(ctx context.Context, id int64) (*catalog.Distributor, error) {
	key := distributorKey(id)
	if d, ok := lookup[*catalog.Distributor](ctx, r.cache, key); ok && d != nil {
		return d, nil
	}
	d, err := r.Repository.GetDistributor(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, d)
	cp := *d
	return &cp, nil
}
