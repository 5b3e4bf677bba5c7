package worker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandler struct {
	err error
}

func (h *fakeHandler) HandleAsync(ctx context.Context, jobID string, payload json.RawMessage) error {
	return h.err
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	r.Register("IfcToWexBim", func() Handler { return &fakeHandler{} })

	factory, err := r.Lookup("IfcToWexBim")
	require.NoError(t, err)
	h := factory()
	assert.NoError(t, h.HandleAsync(context.Background(), "J1", nil))
}

func TestRegistry_LookupUnknownIsNotFound(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup("Missing")
	assert.Equal(t, apperrors.NotFound, apperrors.KindOf(err))
}
