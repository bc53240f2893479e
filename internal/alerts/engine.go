package alerts

import (
	"context"
	"fmt"
	"time"

	"retailhub/backend/internal/cache"
	"retailhub/backend/internal/domain"
)

// Loader returns the raw low-stock rows for a shop, or for every shop when
// shopID is zero.
type Loader func(ctx context.Context, shopID int64) ([]domain.StockAlert, error)

type Engine struct {
	cache    cache.AlertCache
	cacheTTL time.Duration
	now      func() time.Time
}

func NewEngine(cacheStore cache.AlertCache, cacheTTL time.Duration) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopAlertCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}

	return &Engine{
		cache:    cacheStore,
		cacheTTL: cacheTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Report builds the alert report for filter. The unfiltered report for the
// shop scope is cached; the level filter is applied on top of it.
func (e *Engine) Report(ctx context.Context, filter domain.AlertFilter, load Loader) (domain.AlertReport, error) {
	key := cacheKey(filter.ShopID)

	report, hit, err := e.cache.Get(ctx, key)
	if err != nil || !hit {
		rows, err := load(ctx, filter.ShopID)
		if err != nil {
			return domain.AlertReport{}, err
		}
		built := e.build(rows)
		report = &built
		_ = e.cache.Set(ctx, key, report, e.cacheTTL)
	}

	if filter.Level == "" {
		return *report, nil
	}
	return filterLevel(*report, filter.Level), nil
}

// Invalidate drops the cached reports covering the given shops, including
// the all-shops report.
func (e *Engine) Invalidate(ctx context.Context, shopIDs ...int64) error {
	keys := make([]string, 0, len(shopIDs)+1)
	keys = append(keys, cacheKey(0))
	for _, id := range shopIDs {
		if id != 0 {
			keys = append(keys, cacheKey(id))
		}
	}
	return e.cache.Delete(ctx, keys...)
}

func (e *Engine) build(rows []domain.StockAlert) domain.AlertReport {
	report := domain.AlertReport{
		Alerts:      make([]domain.StockAlert, 0, len(rows)),
		GeneratedAt: e.now(),
	}
	for _, row := range rows {
		level, ok := Classify(row.Quantity, row.MinStockLevel)
		if !ok {
			continue
		}
		row.Level = level
		row.Shortage = max(row.MinStockLevel-row.Quantity, 0)
		report.Alerts = append(report.Alerts, row)
		count(&report.Summary, level)
	}
	return report
}

// Classify returns the alert level for a stock quantity against its minimum.
// ok is false when the row needs no alert.
func Classify(quantity int64, minLevel int64) (domain.AlertLevel, bool) {
	switch {
	case quantity <= 0:
		return domain.AlertOutOfStock, true
	case quantity*2 <= minLevel:
		return domain.AlertCritical, true
	case quantity <= minLevel:
		return domain.AlertLow, true
	}
	return "", false
}

func filterLevel(report domain.AlertReport, level domain.AlertLevel) domain.AlertReport {
	out := domain.AlertReport{
		Alerts:      make([]domain.StockAlert, 0, len(report.Alerts)),
		GeneratedAt: report.GeneratedAt,
	}
	for _, alert := range report.Alerts {
		if alert.Level == level {
			out.Alerts = append(out.Alerts, alert)
			count(&out.Summary, level)
		}
	}
	return out
}

func count(summary *domain.AlertSummary, level domain.AlertLevel) {
	summary.Total++
	switch level {
	case domain.AlertOutOfStock:
		summary.OutOfStock++
	case domain.AlertCritical:
		summary.Critical++
	case domain.AlertLow:
		summary.Low++
	}
}

func cacheKey(shopID int64) string {
	if shopID == 0 {
		return "retailhub:alerts:all"
	}
	return fmt.Sprintf("retailhub:alerts:shop:%d", shopID)
}
