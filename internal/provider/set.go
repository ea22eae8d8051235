package provider

import (
	"sync"

	"pod_fulfillment_v1/internal/model"
	apperrors "pod_fulfillment_v1/pkg/errors"
	"pod_fulfillment_v1/pkg/net"
)

type factory func(p *model.Provider, creds Credentials, d net.Dispatcher) Client

// implementations maps a provider slug to its client. Providers absent here
// (zazzle, redbubble) have no integration yet.
var implementations = map[string]factory{
	"prodigi":   newProdigi,
	"printful":  newPrintful,
	"printify":  newPrintify,
	"gelato":    newGelato,
	"gooten":    newGooten,
	"customcat": newGeneric,
	"spod":      newGeneric,
	"shineon":   newGeneric,
}

// Supported reports whether slug has a client implementation.
func Supported(slug string) bool {
	_, ok := implementations[slug]
	return ok
}

// New builds the client for p.
func New(p *model.Provider, creds Credentials, d net.Dispatcher) (Client, error) {
	f, ok := implementations[p.Slug]
	if !ok {
		return nil, &apperrors.ErrNotFound{Resource: "provider client", ID: p.Slug}
	}
	return f(p, creds, d), nil
}

// CredentialSource resolves the configured secrets for a slug.
type CredentialSource func(slug string) Credentials

// ClientSet holds one client per provider and is rebuilt when the registry reloads.
type ClientSet struct {
	mu         sync.RWMutex
	clients    map[string]Client
	dispatcher net.Dispatcher
	creds      CredentialSource
}

func NewClientSet(d net.Dispatcher, creds CredentialSource) *ClientSet {
	if creds == nil {
		creds = func(string) Credentials { return Credentials{} }
	}
	return &ClientSet{
		clients:    make(map[string]Client),
		dispatcher: d,
		creds:      creds,
	}
}

// Load (re)builds clients for every retrievable provider with an implementation.
// Cached HTTP clients are dropped so profile changes take effect.
func (s *ClientSet) Load(providers []model.Provider) {
	next := make(map[string]Client, len(providers))
	for i := range providers {
		p := &providers[i]
		if !p.IsRetrievable() || !Supported(p.Slug) {
			continue
		}
		if s.dispatcher != nil {
			s.dispatcher.Forget(p.Slug, p.Slug+":read", p.Slug+":write")
		}
		c, err := New(p, s.creds(p.Slug), s.dispatcher)
		if err != nil {
			continue
		}
		next[p.Slug] = c
	}

	s.mu.Lock()
	s.clients = next
	s.mu.Unlock()
}

// Register installs c under its slug, replacing any existing client.
func (s *ClientSet) Register(c Client) {
	s.mu.Lock()
	s.clients[c.Slug()] = c
	s.mu.Unlock()
}

// Client returns the client for slug or ErrNotFound.
func (s *ClientSet) Client(slug string) (Client, error) {
	s.mu.RLock()
	c, ok := s.clients[slug]
	s.mu.RUnlock()
	if !ok {
		return nil, &apperrors.ErrNotFound{Resource: "provider client", ID: slug}
	}
	return c, nil
}
