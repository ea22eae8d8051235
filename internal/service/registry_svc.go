package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"pod_fulfillment_v1/internal/model"
	"pod_fulfillment_v1/internal/provider"
	"pod_fulfillment_v1/internal/repository"
	apperrors "pod_fulfillment_v1/pkg/errors"
)

// ==================== RegistryService ====================

// RegistryService serves provider configuration from memory. The table is
// read at startup and on Reload; request paths never touch the database.
type RegistryService struct {
	repo    repository.ProviderRepository
	clients *provider.ClientSet
	log     *zap.Logger

	mu     sync.RWMutex
	bySlug map[string]model.Provider
	order  []string
}

func NewRegistryService(repo repository.ProviderRepository, clients *provider.ClientSet, log *zap.Logger) *RegistryService {
	return &RegistryService{
		repo:    repo,
		clients: clients,
		log:     log,
		bySlug:  make(map[string]model.Provider),
	}
}

// Reload re-reads the provider table and rebuilds the provider clients.
func (s *RegistryService) Reload(ctx context.Context) error {
	providers, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load providers: %w", err)
	}

	bySlug := make(map[string]model.Provider, len(providers))
	order := make([]string, 0, len(providers))
	for _, p := range providers {
		bySlug[p.Slug] = p
		order = append(order, p.Slug)
	}
	sort.Strings(order)

	s.mu.Lock()
	s.bySlug = bySlug
	s.order = order
	s.mu.Unlock()

	if s.clients != nil {
		s.clients.Load(providers)
	}
	s.log.Info("provider registry loaded", zap.Int("providers", len(providers)))
	return nil
}

// Seed upserts providers and reloads. Returns the number written.
func (s *RegistryService) Seed(ctx context.Context, providers []model.Provider) (int, error) {
	for i := range providers {
		if err := s.repo.Upsert(ctx, &providers[i]); err != nil {
			return i, fmt.Errorf("seed provider %s: %w", providers[i].Slug, err)
		}
	}
	return len(providers), s.Reload(ctx)
}

// SeedIfEmpty writes the built-in catalogue on a fresh database.
func (s *RegistryService) SeedIfEmpty(ctx context.Context) error {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("count providers: %w", err)
	}
	if n > 0 {
		return s.Reload(ctx)
	}
	written, err := s.Seed(ctx, DefaultProviders())
	if err != nil {
		return err
	}
	s.log.Info("seeded default providers", zap.Int("providers", written))
	return nil
}

// SetStatus changes a provider's lifecycle state (admin) and reloads.
func (s *RegistryService) SetStatus(ctx context.Context, slug, status string) error {
	switch status {
	case model.ProviderInactive, model.ProviderTesting, model.ProviderActive, model.ProviderComingSoon:
	default:
		return apperrors.NewValidation("status", "unknown provider status "+status)
	}
	if err := s.repo.UpdateStatus(ctx, slug, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &apperrors.ErrNotFound{Resource: "provider", ID: slug}
		}
		return fmt.Errorf("update provider %s: %w", slug, err)
	}
	return s.Reload(ctx)
}

// GetProvider returns a copy of the provider. Inactive and unknown slugs are NotFound;
// testing and coming_soon providers are returned for administrative use.
func (s *RegistryService) GetProvider(slug string) (*model.Provider, error) {
	s.mu.RLock()
	p, ok := s.bySlug[slug]
	s.mu.RUnlock()
	if !ok || !p.IsRetrievable() {
		return nil, &apperrors.ErrNotFound{Resource: "provider", ID: slug}
	}
	return &p, nil
}

// ListActiveProviders returns active providers, optionally filtered by specialization.
func (s *RegistryService) ListActiveProviders(specialization string) []model.Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Provider, 0, len(s.order))
	for _, slug := range s.order {
		p := s.bySlug[slug]
		if !p.IsActive() {
			continue
		}
		if specialization != "" && p.Specialization != specialization {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ListProviders returns every provider regardless of state (admin).
func (s *RegistryService) ListProviders() []model.Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Provider, 0, len(s.order))
	for _, slug := range s.order {
		out = append(out, s.bySlug[slug])
	}
	return out
}

// Client returns the provider and its client. Providers without an
// integration (coming_soon) yield NotFound.
func (s *RegistryService) Client(slug string) (*model.Provider, provider.Client, error) {
	p, err := s.GetProvider(slug)
	if err != nil {
		return nil, nil, err
	}
	if s.clients == nil {
		return nil, nil, &apperrors.ErrNotFound{Resource: "provider client", ID: slug}
	}
	c, err := s.clients.Client(slug)
	if err != nil {
		return nil, nil, err
	}
	return p, c, nil
}
