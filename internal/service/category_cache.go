// category_cache.go — LRU-кэш информационных категорий с TTL.
// Категории читаются при каждом расчёте срока хранения и при построении
// проекций индекса, а меняются редко.
package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/woo-publications/internal/domain/model"
	"github.com/bigkaa/woo-publications/internal/domain/retention"
)

// Prometheus-метрики кэша категорий.
var (
	categoryCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pe_category_cache_hits_total",
		Help: "Количество попаданий в кэш информационных категорий.",
	})
	categoryCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pe_category_cache_misses_total",
		Help: "Количество промахов кэша информационных категорий.",
	})
)

// CategoryCache — кэш категорий поверх Store.
type CategoryCache struct {
	store Store
	cache *expirable.LRU[string, model.InformationCategory]
}

// NewCategoryCache создаёт кэш с максимальным размером size и временем жизни ttl.
func NewCategoryCache(store Store, size int, ttl time.Duration) *CategoryCache {
	return &CategoryCache{
		store: store,
		cache: expirable.NewLRU[string, model.InformationCategory](size, nil, ttl),
	}
}

// Get возвращает категории по UUID в порядке sort_order.
// Отсутствующие в базе UUID пропускаются.
func (c *CategoryCache) Get(ctx context.Context, ids []string) ([]model.InformationCategory, error) {
	found := make(map[string]model.InformationCategory, len(ids))
	var missing []string
	for _, id := range ids {
		if cat, ok := c.cache.Get(id); ok {
			categoryCacheHits.Inc()
			found[id] = cat
			continue
		}
		categoryCacheMisses.Inc()
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		loaded, err := c.store.Repos().Categories.GetByIDs(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("загрузка категорий: %w", err)
		}
		for _, cat := range loaded {
			c.cache.Add(cat.ID, *cat)
			found[cat.ID] = *cat
		}
	}

	out := make([]model.InformationCategory, 0, len(found))
	for _, cat := range found {
		out = append(out, cat)
	}
	sortCategories(out)
	return out, nil
}

// Rules возвращает правила хранения для набора категорий.
func (c *CategoryCache) Rules(ctx context.Context, ids []string) ([]retention.Rule, error) {
	cats, err := c.Get(ctx, ids)
	if err != nil {
		return nil, err
	}
	rules := make([]retention.Rule, 0, len(cats))
	for i := range cats {
		rules = append(rules, cats[i].Rule())
	}
	return rules, nil
}

// Invalidate удаляет категорию из кэша после изменения её правила.
func (c *CategoryCache) Invalidate(id string) {
	c.cache.Remove(id)
}

// sortCategories упорядочивает по sort_order, затем по UUID.
func sortCategories(cats []model.InformationCategory) {
	sort.Slice(cats, func(i, j int) bool {
		if cats[i].Order != cats[j].Order {
			return cats[i].Order < cats[j].Order
		}
		return cats[i].ID < cats[j].ID
	})
}
