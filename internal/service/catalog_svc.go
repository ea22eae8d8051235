package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"pod_fulfillment_v1/internal/model"
	"pod_fulfillment_v1/internal/provider"
	"pod_fulfillment_v1/internal/repository"
	apperrors "pod_fulfillment_v1/pkg/errors"
	"pod_fulfillment_v1/pkg/money"
)

// ProviderWarning tells the caller one provider was left out of a partial result.
type ProviderWarning struct {
	Provider string `json:"provider"`
	Reason   string `json:"reason"`
}

func warningFor(slug string, err error) ProviderWarning {
	reason := err.Error()
	if apperrors.IsUnavailable(err) {
		reason = "provider temporarily unavailable, try again"
	}
	return ProviderWarning{Provider: slug, Reason: reason}
}

// ==================== category mapping ====================

// categoryKeywords are matched in order against the provider category and
// product name; the first hit wins.
var categoryKeywords = []struct {
	category string
	words    []string
}{
	{model.CategoryJewelry, []string{"jewelry", "jewellery", "necklace", "bracelet", "earring", "pendant", "ring"}},
	{model.CategoryApparel, []string{"apparel", "t-shirt", "tshirt", "tee", "shirt", "hoodie", "sweatshirt", "tank", "jacket", "dress", "legging", "garment", "clothing"}},
	{model.CategoryStationery, []string{"stationery", "notebook", "journal", "postcard", "greeting", "card", "sticker", "calendar", "planner"}},
	{model.CategoryAccessories, []string{"accessor", "phone case", "phone-case", "tote", "bag", "backpack", "hat", "cap", "sock", "mask"}},
	{model.CategoryHomeDecor, []string{"home", "decor", "pillow", "cushion", "blanket", "mug", "towel", "candle", "rug", "coaster"}},
	{model.CategoryWallArt, []string{"wall", "canvas", "poster", "framed", "frame", "art print", "print", "photo", "metal"}},
}

// MapCategory maps a provider category onto the canonical enumeration.
// ok is false when nothing matched and the result fell back to general.
func MapCategory(raw string, name string) (category string, ok bool) {
	norm := strings.ToLower(strings.TrimSpace(raw))
	canonical := strings.NewReplacer("_", "-", " ", "-").Replace(norm)
	if model.IsCategory(canonical) {
		return canonical, true
	}
	for _, text := range []string{norm, strings.ToLower(name)} {
		if text == "" {
			continue
		}
		for _, ck := range categoryKeywords {
			for _, w := range ck.words {
				if containsWord(text, w) {
					return ck.category, true
				}
			}
		}
	}
	return model.CategoryGeneral, false
}

// containsWord matches w at a word boundary so "ring" does not hit "string".
func containsWord(text, w string) bool {
	for i := 0; ; {
		j := strings.Index(text[i:], w)
		if j < 0 {
			return false
		}
		start := i + j
		end := start + len(w)
		if (start == 0 || !isLetter(text[start-1])) && (end == len(text) || !isLetter(text[end]) || isPlural(text, end)) {
			return true
		}
		i = start + 1
	}
}

func isPlural(text string, end int) bool {
	return text[end] == 's' && (end+1 == len(text) || !isLetter(text[end+1]))
}

func isLetter(b byte) bool {
	return b >= 'a' && b <= 'z'
}

// ==================== normalization ====================

// NormalizeProduct converts a raw provider product into the canonical shape.
// Cost is converted to BRL with the snapshot rate and rounded up to the cent.
func NormalizeProduct(p *model.Provider, raw provider.RawProduct, rates money.Rates, guard *PricingGuard, syncedAt time.Time) (model.CatalogProduct, error) {
	sku := strings.TrimSpace(raw.SKU)
	if sku == "" {
		return model.CatalogProduct{}, apperrors.NewValidation("sku", "empty sku")
	}
	if !raw.Cost.IsPositive() {
		return model.CatalogProduct{}, apperrors.NewValidation("cost", fmt.Sprintf("sku %s has non-positive cost %s", sku, raw.Cost))
	}

	currency := strings.ToUpper(strings.TrimSpace(raw.Currency))
	if currency == "" {
		currency = p.SourceCurrency
	}
	rate, err := rates.Rate(currency)
	if err != nil {
		return model.CatalogProduct{}, err
	}
	base := money.CeilDecimal(raw.Cost.Mul(rate))

	category, mapped := MapCategory(raw.Category, raw.Name)
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		name = sku
	}

	return model.CatalogProduct{
		ProviderSlug:   p.Slug,
		SKU:            sku,
		Name:           name,
		Variant:        strings.TrimSpace(raw.Variant),
		Category:       category,
		RawCategory:    raw.Category,
		NeedsReview:    !mapped,
		SourceCurrency: currency,
		SourceCost:     raw.Cost.String(),
		FxRate:         rate.String(),
		BaseCost:       base,
		SuggestedPrice: guard.SuggestedPrice(p, base),
		Discontinued:   raw.Discontinued,
		SyncedAt:       syncedAt,
	}, nil
}

// ==================== CatalogService ====================

// SyncResult summarizes one provider's catalog sync.
type SyncResult struct {
	Provider     string `json:"provider"`
	Fetched      int    `json:"fetched"`
	Stored       int    `json:"stored"`
	Skipped      int    `json:"skipped"`
	NeedsReview  int    `json:"needs_review"`
	Discontinued int64  `json:"discontinued"`
	Error        string `json:"error,omitempty"`
}

// SyncReport is the outcome of syncing every provider.
type SyncReport struct {
	Results  []SyncResult      `json:"results"`
	Warnings []ProviderWarning `json:"warnings,omitempty"`
}

// CatalogQuery is a browse request.
type CatalogQuery struct {
	Providers           []string
	Category            string
	Query               string
	IncludeDiscontinued bool
	Page                int
	PageSize            int
}

// CatalogService normalizes provider catalogs into snapshots and serves browse.
type CatalogService struct {
	registry    *RegistryService
	repo        repository.CatalogRepository
	guard       *PricingGuard
	rates       money.Rates
	timeout     time.Duration
	concurrency int
	log         *zap.Logger
	now         func() time.Time
}

func NewCatalogService(
	registry *RegistryService,
	repo repository.CatalogRepository,
	guard *PricingGuard,
	rates money.Rates,
	timeout time.Duration,
	log *zap.Logger,
) *CatalogService {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &CatalogService{
		registry:    registry,
		repo:        repo,
		guard:       guard,
		rates:       rates,
		timeout:     timeout,
		concurrency: 4,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SyncCatalog fetches one provider's catalog, normalizes it and stores the
// snapshot. Products not seen in this sync are marked discontinued.
func (s *CatalogService) SyncCatalog(ctx context.Context, slug string) (*SyncResult, error) {
	p, client, err := s.registry.Client(slug)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	syncedAt := s.now()
	raws, err := client.FetchCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog %s: %w", slug, err)
	}

	res := &SyncResult{Provider: slug, Fetched: len(raws)}
	products := make([]model.CatalogProduct, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))
	for _, raw := range raws {
		cp, err := NormalizeProduct(p, raw, s.rates, s.guard, syncedAt)
		if err != nil {
			res.Skipped++
			s.log.Warn("catalog product skipped",
				zap.String("provider", slug), zap.String("sku", raw.SKU), zap.Error(err))
			continue
		}
		// duplicate SKUs in one feed: keep the first
		if _, dup := seen[cp.SKU]; dup {
			res.Skipped++
			continue
		}
		seen[cp.SKU] = struct{}{}
		if cp.NeedsReview {
			res.NeedsReview++
		}
		products = append(products, cp)
	}

	if err := s.repo.UpsertBatch(ctx, products); err != nil {
		return nil, fmt.Errorf("store catalog %s: %w", slug, err)
	}
	res.Stored = len(products)

	// an empty feed is more likely an upstream problem than a real catalog wipe
	if len(products) > 0 {
		n, err := s.repo.MarkDiscontinued(ctx, slug, syncedAt)
		if err != nil {
			return nil, fmt.Errorf("mark discontinued %s: %w", slug, err)
		}
		res.Discontinued = n
	}

	s.log.Info("catalog synced",
		zap.String("provider", slug),
		zap.Int("fetched", res.Fetched),
		zap.Int("stored", res.Stored),
		zap.Int("skipped", res.Skipped),
		zap.Int("needs_review", res.NeedsReview),
		zap.Int64("discontinued", res.Discontinued),
	)
	return res, nil
}

// SyncAll syncs every provider that has a client, in parallel. A failing
// provider becomes a warning; the others still complete.
func (s *CatalogService) SyncAll(ctx context.Context) *SyncReport {
	var slugs []string
	for _, p := range s.registry.ListProviders() {
		if !p.IsRetrievable() || !provider.Supported(p.Slug) {
			continue
		}
		slugs = append(slugs, p.Slug)
	}

	p := pool.NewWithResults[SyncResult]().WithMaxGoroutines(s.concurrency)
	for _, slug := range slugs {
		p.Go(func() SyncResult {
			res, err := s.SyncCatalog(ctx, slug)
			if err != nil {
				s.log.Warn("catalog sync failed", zap.String("provider", slug), zap.Error(err))
				return SyncResult{Provider: slug, Error: err.Error()}
			}
			return *res
		})
	}
	results := p.Wait()
	sort.Slice(results, func(i, j int) bool { return results[i].Provider < results[j].Provider })

	report := &SyncReport{Results: results}
	for _, r := range results {
		if r.Error != "" {
			report.Warnings = append(report.Warnings, ProviderWarning{Provider: r.Provider, Reason: r.Error})
		}
	}
	return report
}

// CatalogPage is one page of browse results.
type CatalogPage struct {
	Items    []model.CatalogProduct `json:"items"`
	Total    int64                  `json:"total"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"page_size"`
}

// ListCatalog browses normalized products. Without an explicit provider
// filter only active providers are searched.
func (s *CatalogService) ListCatalog(ctx context.Context, q CatalogQuery) (*CatalogPage, error) {
	if q.Category != "" && !model.IsCategory(q.Category) {
		return nil, apperrors.NewValidation("category",
			"unknown category "+q.Category+"; expected one of "+strings.Join(model.Categories(), ", "))
	}

	providers := q.Providers
	if len(providers) == 0 {
		for _, p := range s.registry.ListActiveProviders("") {
			providers = append(providers, p.Slug)
		}
	} else {
		for _, slug := range providers {
			if _, err := s.registry.GetProvider(slug); err != nil {
				return nil, err
			}
		}
	}
	if len(providers) == 0 {
		return &CatalogPage{Items: []model.CatalogProduct{}, Page: 1, PageSize: q.PageSize}, nil
	}

	filter := repository.CatalogFilter{
		ProviderSlugs:       providers,
		Category:            q.Category,
		Keyword:             q.Query,
		IncludeDiscontinued: q.IncludeDiscontinued,
		Page:                q.Page,
		PageSize:            q.PageSize,
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	page, size := q.Page, q.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return &CatalogPage{Items: items, Total: total, Page: page, PageSize: size}, nil
}

// GetProduct returns one product of a provider's snapshot.
func (s *CatalogService) GetProduct(ctx context.Context, slug, sku string) (*model.CatalogProduct, error) {
	if _, err := s.registry.GetProvider(slug); err != nil {
		return nil, err
	}
	cp, err := s.repo.GetBySKU(ctx, slug, sku)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperrors.ErrNotFound{Resource: "product", ID: slug + "/" + sku}
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return cp, nil
}

