package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "pod_fulfillment_v1/pkg/errors"
	"pod_fulfillment_v1/pkg/money"
	"pod_fulfillment_v1/pkg/utils"
)

// ==================== Cart ====================

// CartLine is a tentative order line. BaseCost is snapshotted from the
// catalog when the line is added.
type CartLine struct {
	ID           string      `json:"id"`
	ProviderSlug string      `json:"provider"`
	SKU          string      `json:"sku"`
	Name         string      `json:"name"`
	Variant      string      `json:"variant,omitempty"`
	Copies       int         `json:"copies"`
	DesignURL    string      `json:"design_url"`
	SellingPrice money.Cents `json:"selling_price"` // per copy
	BaseCost     money.Cents `json:"base_cost"`     // per copy
	AddedAt      time.Time   `json:"added_at"`
}

func (l CartLine) ItemsCost() money.Cents { return l.BaseCost.Times(l.Copies) }
func (l CartLine) ItemsSell() money.Cents { return l.SellingPrice.Times(l.Copies) }

// Cart belongs to exactly one session.
type Cart struct {
	SessionID string     `json:"session_id"`
	Lines     []CartLine `json:"lines"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Fingerprint identifies the priced content of the cart. Quotes carry it so
// an order can detect that the cart changed after quoting.
func (c *Cart) Fingerprint() string {
	return fingerprintLines(c.Lines)
}

// Providers returns the distinct provider slugs in the cart, sorted.
func (c *Cart) Providers() []string {
	return providersOf(c.Lines)
}

func (c *Cart) clone() *Cart {
	out := *c
	out.Lines = append([]CartLine(nil), c.Lines...)
	return &out
}

func fingerprintLines(lines []CartLine) string {
	keys := make([]string, 0, len(lines))
	for _, l := range lines {
		keys = append(keys, fmt.Sprintf("%s|%s|%d|%d|%d|%s",
			l.ProviderSlug, l.SKU, l.Copies, l.SellingPrice, l.BaseCost, l.DesignURL))
	}
	sort.Strings(keys)
	sum := sha256.Sum256([]byte(strings.Join(keys, "\n")))
	return hex.EncodeToString(sum[:])
}

func providersOf(lines []CartLine) []string {
	seen := make(map[string]struct{}, len(lines))
	var slugs []string
	for _, l := range lines {
		if _, ok := seen[l.ProviderSlug]; ok {
			continue
		}
		seen[l.ProviderSlug] = struct{}{}
		slugs = append(slugs, l.ProviderSlug)
	}
	sort.Strings(slugs)
	return slugs
}

func groupByProvider(lines []CartLine) map[string][]CartLine {
	groups := make(map[string][]CartLine)
	for _, l := range lines {
		groups[l.ProviderSlug] = append(groups[l.ProviderSlug], l)
	}
	return groups
}

// ==================== inputs ====================

type AddLineInput struct {
	ProviderSlug string
	SKU          string
	Copies       int
	DesignURL    string
	SellingPrice *money.Cents // nil: use the suggested price
}

// UpdateLineInput changes copies and/or price; nil fields are left alone.
type UpdateLineInput struct {
	Copies       *int
	SellingPrice *money.Cents
}

// ==================== CartService ====================

// CartService keeps session carts in memory with a sliding TTL.
type CartService struct {
	carts    *utils.TTLCache[*Cart]
	catalog  *CatalogService
	registry *RegistryService
	guard    *PricingGuard
	log      *zap.Logger
	now      func() time.Time

	mu sync.Mutex
}

func NewCartService(catalog *CatalogService, registry *RegistryService, guard *PricingGuard, ttl time.Duration, log *zap.Logger) *CartService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CartService{
		carts:    utils.NewTTLCache[*Cart](ttl),
		catalog:  catalog,
		registry: registry,
		guard:    guard,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Get returns a copy of the session cart; an unknown session has an empty cart.
func (s *CartService) Get(sessionID string) (*Cart, error) {
	if sessionID == "" {
		return nil, apperrors.NewValidation("session_id", "session id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(sessionID).clone(), nil
}

// AddLine adds a catalog product with a design to the cart. Adding the same
// product with the same design again increases its copies.
func (s *CartService) AddLine(ctx context.Context, sessionID string, in AddLineInput) (*Cart, error) {
	if sessionID == "" {
		return nil, apperrors.NewValidation("session_id", "session id is required")
	}
	if err := validateDesignURL(in.DesignURL); err != nil {
		return nil, err
	}
	if in.Copies < 1 {
		return nil, apperrors.NewValidation("copies", ReasonInvalidQuantity)
	}

	p, err := s.registry.GetProvider(in.ProviderSlug)
	if err != nil {
		return nil, err
	}
	if !p.IsActive() {
		return nil, apperrors.NewValidation("provider", "provider "+p.Slug+" is not accepting orders")
	}
	product, err := s.catalog.GetProduct(ctx, in.ProviderSlug, in.SKU)
	if err != nil {
		return nil, err
	}
	if product.Discontinued {
		return nil, apperrors.NewValidation("sku", "product "+product.SKU+" is discontinued")
	}

	price := s.guard.SuggestedPrice(p, product.BaseCost)
	if in.SellingPrice != nil {
		price = *in.SellingPrice
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.load(sessionID).clone()
	now := s.now()
	merged := false
	for i := range cart.Lines {
		l := &cart.Lines[i]
		if l.ProviderSlug != product.ProviderSlug || l.SKU != product.SKU || l.DesignURL != in.DesignURL {
			continue
		}
		copies := l.Copies + in.Copies
		if in.SellingPrice == nil {
			price = l.SellingPrice
		}
		if err := s.guard.ValidateLine(p, copies, price, l.BaseCost); err != nil {
			return nil, err
		}
		l.Copies = copies
		l.SellingPrice = price
		merged = true
		break
	}
	if !merged {
		if err := s.guard.ValidateLine(p, in.Copies, price, product.BaseCost); err != nil {
			return nil, err
		}
		cart.Lines = append(cart.Lines, CartLine{
			ID:           uuid.NewString(),
			ProviderSlug: product.ProviderSlug,
			SKU:          product.SKU,
			Name:         product.Name,
			Variant:      product.Variant,
			Copies:       in.Copies,
			DesignURL:    in.DesignURL,
			SellingPrice: price,
			BaseCost:     product.BaseCost,
			AddedAt:      now,
		})
	}
	cart.UpdatedAt = now
	s.carts.Set(sessionID, cart)

	s.log.Debug("cart line added",
		zap.String("provider", product.ProviderSlug),
		zap.String("sku", product.SKU),
		zap.Int("copies", in.Copies),
	)
	return cart.clone(), nil
}

// UpdateLine edits copies or selling price of one line. The base cost
// snapshot never changes.
func (s *CartService) UpdateLine(sessionID, lineID string, in UpdateLineInput) (*Cart, error) {
	if in.Copies == nil && in.SellingPrice == nil {
		return nil, apperrors.NewValidation("line", "nothing to update")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.load(sessionID).clone()
	idx := lineIndex(cart, lineID)
	if idx < 0 {
		return nil, &apperrors.ErrNotFound{Resource: "cart line", ID: lineID}
	}
	line := cart.Lines[idx]
	if in.Copies != nil {
		line.Copies = *in.Copies
	}
	if in.SellingPrice != nil {
		line.SellingPrice = *in.SellingPrice
	}

	p, err := s.registry.GetProvider(line.ProviderSlug)
	if err != nil {
		return nil, err
	}
	if err := s.guard.ValidateLine(p, line.Copies, line.SellingPrice, line.BaseCost); err != nil {
		return nil, err
	}

	cart.Lines[idx] = line
	cart.UpdatedAt = s.now()
	s.carts.Set(sessionID, cart)
	return cart.clone(), nil
}

func (s *CartService) RemoveLine(sessionID, lineID string) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.load(sessionID).clone()
	idx := lineIndex(cart, lineID)
	if idx < 0 {
		return nil, &apperrors.ErrNotFound{Resource: "cart line", ID: lineID}
	}
	cart.Lines = append(cart.Lines[:idx], cart.Lines[idx+1:]...)
	cart.UpdatedAt = s.now()
	s.carts.Set(sessionID, cart)
	return cart.clone(), nil
}

// Clear drops the session cart.
func (s *CartService) Clear(sessionID string) {
	s.carts.Delete(sessionID)
}

// Purge removes expired carts.
func (s *CartService) Purge() int {
	return s.carts.Purge()
}

// load returns the stored cart or a fresh one. Caller holds mu.
func (s *CartService) load(sessionID string) *Cart {
	if cart, ok := s.carts.Get(sessionID); ok {
		return cart
	}
	return &Cart{SessionID: sessionID, Lines: []CartLine{}, UpdatedAt: s.now()}
}

func lineIndex(cart *Cart, lineID string) int {
	for i := range cart.Lines {
		if cart.Lines[i].ID == lineID {
			return i
		}
	}
	return -1
}

func validateDesignURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return apperrors.NewValidation("design_url", "design url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperrors.NewValidation("design_url", "design url must be an absolute http(s) url")
	}
	return nil
}
