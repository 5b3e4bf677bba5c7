// Package worker implements the handler registry and worker pool (spec
// §4.10, component C10): it dequeues job envelopes, deduplicates them
// through the idempotency ledger, and dispatches to a registered
// handler, one fresh instance per envelope.
package worker

import (
	"context"
	"encoding/json"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
)

// Handler processes one job's payload. A new Handler is obtained from
// its Factory for every envelope — there is no shared handler state
// across invocations.
type Handler interface {
	HandleAsync(ctx context.Context, jobID string, payload json.RawMessage) error
}

// Factory produces a Handler instance for one envelope.
type Factory func() Handler

// Registry maps a job type name to the factory that builds its handler.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds jobType to factory. Registering the same jobType twice
// overwrites the prior binding.
func (r *Registry) Register(jobType string, factory Factory) {
	r.factories[jobType] = factory
}

// Lookup returns the handler factory bound to jobType, or NotFound.
func (r *Registry) Lookup(jobType string) (Factory, error) {
	f, ok := r.factories[jobType]
	if !ok {
		return nil, apperrors.NewNotFound("worker: no handler registered for job type %q", jobType)
	}
	return f, nil
}
