package handler

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/fieldmate/backend/internal/domain"
)

// GenericKey must always resolve to a handler; the registry refuses to start
// without it.
const GenericKey = "generic"

// Handler produces the answer text for a vendor/equipment domain. Handlers
// are pluggable; the router only depends on this contract.
type Handler interface {
	Handle(ctx context.Context, req domain.Request, cov domain.Coverage) (domain.Answer, error)
}

// Registry maps vendor/equipment keys to specialist handlers and falls back
// to the generic handler for everything unregistered.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry(generic Handler) (*Registry, error) {
	if generic == nil {
		return nil, fmt.Errorf("registry requires a generic handler at startup")
	}
	return &Registry{
		handlers: map[string]Handler{GenericKey: generic},
	}, nil
}

func (r *Registry) Register(key string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[strings.ToLower(key)] = h
}

// Lookup never returns nil: an unknown key resolves to the generic handler.
func (r *Registry) Lookup(key string) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if h, ok := r.handlers[strings.ToLower(key)]; ok && key != "" {
		return h
	}
	return r.handlers[GenericKey]
}

func (r *Registry) Generic() Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handlers[GenericKey]
}
