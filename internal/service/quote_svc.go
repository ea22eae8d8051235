package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"pod_fulfillment_v1/internal/model"
	"pod_fulfillment_v1/internal/provider"
	apperrors "pod_fulfillment_v1/pkg/errors"
	"pod_fulfillment_v1/pkg/money"
	"pod_fulfillment_v1/pkg/utils"
)

// DefaultMethodLabel is preferred as the default selection when a provider offers it.
const DefaultMethodLabel = "Standard"

// ==================== Quote ====================

// QuoteLine is the frozen cart line a quote priced.
type QuoteLine struct {
	SKU          string      `json:"sku"`
	Name         string      `json:"name"`
	Copies       int         `json:"copies"`
	SellingPrice money.Cents `json:"selling_price"`
	BaseCost     money.Cents `json:"base_cost"`
}

// Quote is one priced shipping offer of one provider for a cart and destination.
// Quotes are immutable once issued.
type Quote struct {
	ID          string `json:"id"`
	Provider    string `json:"provider"`
	MethodID    string `json:"method_id"`
	MethodLabel string `json:"method_label"`
	Selected    bool   `json:"selected"`

	ItemsCost    money.Cents     `json:"items_cost"`
	ItemsSell    money.Cents     `json:"items_sell"`
	ShippingCost money.Cents     `json:"shipping_cost"`
	ShippingSell money.Cents     `json:"shipping_sell"`
	Total        money.Cents     `json:"total"`
	Profit       money.Cents     `json:"profit"`
	MarginPct    decimal.Decimal `json:"margin_pct"`

	// shipping as the provider priced it
	ShippingSourceCost     string `json:"shipping_source_cost"`
	ShippingSourceCurrency string `json:"shipping_source_currency"`
	FxRate                 string `json:"fx_rate"`

	MinDays       int       `json:"min_days"`
	MaxDays       int       `json:"max_days"`
	EstimatedFrom time.Time `json:"estimated_from"`
	EstimatedTo   time.Time `json:"estimated_to"`
	Carrier       string    `json:"carrier,omitempty"`
	Location      string    `json:"location,omitempty"`

	Lines              []QuoteLine `json:"lines"`
	CartFingerprint    string      `json:"-"`
	DestinationCountry string      `json:"destination_country"`
	IssuedAt           time.Time   `json:"issued_at"`
	ExpiresAt          time.Time   `json:"expires_at"`
}

type QuoteOptions struct {
	IncludeAllMethods bool
}

// QuoteResult holds the quotes of every provider that could price its group
// plus a warning for each one that could not.
type QuoteResult struct {
	Quotes   []Quote           `json:"quotes"`
	Warnings []ProviderWarning `json:"warnings,omitempty"`
}

type providerQuotes struct {
	slug    string
	quotes  []Quote
	warning *ProviderWarning
}

// ==================== QuoteService ====================

// QuoteService prices carts against every provider they span, in parallel.
type QuoteService struct {
	registry    *RegistryService
	catalog     *CatalogService
	carts       *CartService
	guard       *PricingGuard
	rates       money.Rates
	issued      *utils.TTLCache[Quote]
	timeout     time.Duration
	concurrency int
	log         *zap.Logger
	now         func() time.Time
}

type QuoteServiceOptions struct {
	ProviderTimeout time.Duration
	TTL             time.Duration
	Concurrency     int
}

func NewQuoteService(
	registry *RegistryService,
	catalog *CatalogService,
	carts *CartService,
	guard *PricingGuard,
	rates money.Rates,
	opts QuoteServiceOptions,
	log *zap.Logger,
) *QuoteService {
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = 15 * time.Second
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	return &QuoteService{
		registry:    registry,
		catalog:     catalog,
		carts:       carts,
		guard:       guard,
		rates:       rates,
		issued:      utils.NewTTLCache[Quote](opts.TTL),
		timeout:     opts.ProviderTimeout,
		concurrency: opts.Concurrency,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// QuoteCart prices the session cart.
func (s *QuoteService) QuoteCart(ctx context.Context, sessionID string, dest model.Recipient, opts QuoteOptions) (*QuoteResult, error) {
	cart, err := s.carts.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return s.Quote(ctx, cart.Lines, dest, opts)
}

// Quote groups lines by provider and asks each provider for shipping rates.
// A provider that cannot quote is left out with a warning; the request only
// fails on invalid input.
func (s *QuoteService) Quote(ctx context.Context, lines []CartLine, dest model.Recipient, opts QuoteOptions) (*QuoteResult, error) {
	if len(lines) == 0 {
		return nil, apperrors.NewValidation("cart", "cart is empty")
	}
	dest.CountryCode = strings.ToUpper(strings.TrimSpace(dest.CountryCode))
	if dest.CountryCode == "" {
		return nil, apperrors.NewValidation("country_code", "destination country is required")
	}

	fingerprint := fingerprintLines(lines)
	groups := groupByProvider(lines)
	issuedAt := s.now()

	p := pool.NewWithResults[providerQuotes]().WithMaxGoroutines(s.concurrency)
	for _, slug := range providersOf(lines) {
		group := groups[slug]
		p.Go(func() providerQuotes {
			return s.quoteProvider(ctx, slug, group, dest, opts, fingerprint, issuedAt)
		})
	}
	results := p.Wait()
	sort.Slice(results, func(i, j int) bool { return results[i].slug < results[j].slug })

	res := &QuoteResult{Quotes: []Quote{}}
	for _, r := range results {
		if r.warning != nil {
			res.Warnings = append(res.Warnings, *r.warning)
			continue
		}
		for _, q := range r.quotes {
			s.issued.Set(q.ID, q)
		}
		res.Quotes = append(res.Quotes, r.quotes...)
	}
	return res, nil
}

// GetIssued returns a quote issued earlier and not yet expired.
func (s *QuoteService) GetIssued(id string) (*Quote, error) {
	q, ok := s.issued.Get(id)
	if !ok {
		return nil, &apperrors.ErrNotFound{Resource: "quote", ID: id}
	}
	return &q, nil
}

// Purge removes expired quotes.
func (s *QuoteService) Purge() int {
	return s.issued.Purge()
}

func (s *QuoteService) quoteProvider(
	ctx context.Context,
	slug string,
	lines []CartLine,
	dest model.Recipient,
	opts QuoteOptions,
	fingerprint string,
	issuedAt time.Time,
) providerQuotes {
	skip := func(reason string) providerQuotes {
		s.log.Info("provider left out of quote", zap.String("provider", slug), zap.String("reason", reason))
		return providerQuotes{slug: slug, warning: &ProviderWarning{Provider: slug, Reason: reason}}
	}

	p, client, err := s.registry.Client(slug)
	if err != nil {
		return skip("provider not available for quoting")
	}
	if !p.IsActive() {
		return skip("provider is not accepting orders")
	}
	if !p.ServesDestination(dest.CountryCode) {
		return skip("provider does not ship to " + dest.CountryCode)
	}

	items := make([]provider.Item, 0, len(lines))
	qlines := make([]QuoteLine, 0, len(lines))
	var itemsCost, itemsSell money.Cents
	for _, l := range lines {
		product, err := s.catalog.GetProduct(ctx, slug, l.SKU)
		if err != nil {
			return skip("sku " + l.SKU + " is not in the catalog")
		}
		if product.Discontinued {
			return skip("sku " + l.SKU + " is discontinued")
		}
		items = append(items, provider.Item{SKU: l.SKU, Copies: l.Copies, DesignURL: l.DesignURL})
		qlines = append(qlines, QuoteLine{
			SKU:          l.SKU,
			Name:         l.Name,
			Copies:       l.Copies,
			SellingPrice: l.SellingPrice,
			BaseCost:     l.BaseCost,
		})
		itemsCost += l.ItemsCost()
		itemsSell += l.ItemsSell()
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	options, err := client.QuoteShipping(callCtx, provider.RateRequest{
		Destination: providerAddress(dest),
		Items:       items,
	})
	if err != nil {
		s.log.Warn("shipping quote failed", zap.String("provider", slug), zap.Error(err))
		w := warningFor(slug, err)
		return providerQuotes{slug: slug, warning: &w}
	}

	quotes := make([]Quote, 0, len(options))
	for _, opt := range options {
		currency := opt.Currency
		if currency == "" {
			currency = p.SourceCurrency
		}
		rate, err := s.rates.Rate(currency)
		if err != nil {
			s.log.Warn("shipping option skipped",
				zap.String("provider", slug), zap.String("method", opt.MethodID), zap.Error(err))
			continue
		}
		shippingCost := money.CeilDecimal(opt.Cost.Mul(rate))
		shippingSell := s.guard.ShippingSell(shippingCost)
		total := itemsSell + shippingSell
		profit := total - itemsCost - shippingCost

		minDays, maxDays := deliveryDays(p, opt, dest.CountryCode)
		label := opt.Label
		if label == "" {
			label = opt.MethodID
		}

		quotes = append(quotes, Quote{
			ID:                     uuid.NewString(),
			Provider:               slug,
			MethodID:               opt.MethodID,
			MethodLabel:            label,
			ItemsCost:              itemsCost,
			ItemsSell:              itemsSell,
			ShippingCost:           shippingCost,
			ShippingSell:           shippingSell,
			Total:                  total,
			Profit:                 profit,
			MarginPct:              money.Percent(profit, total, 2),
			ShippingSourceCost:     opt.Cost.String(),
			ShippingSourceCurrency: strings.ToUpper(currency),
			FxRate:                 rate.String(),
			MinDays:                minDays,
			MaxDays:                maxDays,
			EstimatedFrom:          issuedAt.AddDate(0, 0, minDays),
			EstimatedTo:            issuedAt.AddDate(0, 0, maxDays),
			Carrier:                opt.Carrier,
			Location:               opt.Location,
			Lines:                  qlines,
			CartFingerprint:        fingerprint,
			DestinationCountry:     dest.CountryCode,
			IssuedAt:               issuedAt,
			ExpiresAt:              issuedAt.Add(s.issuedTTL()),
		})
	}
	if len(quotes) == 0 {
		return skip("no shipping method available to " + dest.CountryCode)
	}

	def := defaultQuote(quotes)
	quotes[def].Selected = true
	if !opts.IncludeAllMethods {
		quotes = quotes[def : def+1]
	}
	return providerQuotes{slug: slug, quotes: quotes}
}

func (s *QuoteService) issuedTTL() time.Duration {
	return s.issued.TTL()
}

// deliveryDays picks the delivery range: the live rate, then the profile
// method, then the destination window, then the provider default.
func deliveryDays(p *model.Provider, opt provider.RateOption, country string) (int, int) {
	if opt.MaxDays > 0 {
		minDays := opt.MinDays
		if minDays <= 0 || minDays > opt.MaxDays {
			minDays = opt.MaxDays
		}
		return minDays, opt.MaxDays
	}
	return p.DeliveryDays(country, opt.MethodID, opt.Label)
}

// defaultQuote prefers the Standard method, else the first offered.
func defaultQuote(quotes []Quote) int {
	for i, q := range quotes {
		if strings.EqualFold(q.MethodLabel, DefaultMethodLabel) || strings.EqualFold(q.MethodID, DefaultMethodLabel) {
			return i
		}
	}
	return 0
}

func providerAddress(r model.Recipient) provider.Address {
	return provider.Address(r)
}
