package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/port-labs/port-sync-engine/pkg/port"
)

func noopResync(context.Context, string) ([]port.RawRecord, error) {
	return nil, nil
}

func TestListenersForOrdersKindSpecificBeforeWildcard(t *testing.T) {
	r := NewRegistry()

	wildcard := r.OnResync(KindWildcard, noopResync)
	first := r.OnResync("project", noopResync)
	second := r.OnResync("project", noopResync)

	listeners := r.ListenersFor("project")
	require.Len(t, listeners, 3)
	assert.Equal(t, first, listeners[0].name)
	assert.Equal(t, second, listeners[1].name)
	assert.Equal(t, wildcard, listeners[2].name)
}

func TestListenersForUnknownKindReturnsOnlyWildcards(t *testing.T) {
	r := NewRegistry()
	r.OnResync("project", noopResync)
	wildcard := r.OnResync(KindWildcard, noopResync)

	listeners := r.ListenersFor("issue")
	require.Len(t, listeners, 1)
	assert.Equal(t, wildcard, listeners[0].name)
}

func TestEmptyKindRegistersAsWildcard(t *testing.T) {
	r := NewRegistry()
	name := r.OnResync("", noopResync)

	assert.Equal(t, "*/1", name)
	require.Len(t, r.ListenersFor("anything"), 1)
}

func TestRegistryNamesListenersPerKind(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, "project/1", r.OnResync("project", noopResync))
	assert.Equal(t, "project/2", r.OnResync("project", noopResync))
	assert.Equal(t, "issue/1", r.OnResync("issue", noopResync))
	assert.Equal(t, "*/1", r.OnResyncStream(KindWildcard, func(context.Context, string, EmitFn) error { return nil }))
	assert.Equal(t, 4, r.Len())
}

func TestRegistryKeepsListenerVariant(t *testing.T) {
	r := NewRegistry()
	r.OnResync("project", noopResync)
	r.OnResyncStream("project", func(context.Context, string, EmitFn) error { return nil })

	listeners := r.ListenersFor("project")
	require.Len(t, listeners, 2)
	assert.NotNil(t, listeners[0].resync)
	assert.Nil(t, listeners[0].stream)
	assert.Nil(t, listeners[1].resync)
	assert.NotNil(t, listeners[1].stream)
}
