package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakePrimitive_Records(t *testing.T) {
	p := NewFakePrimitive()
	ctx := context.Background()

	require.NoError(t, p.RequestPermission(ctx, "p1", false))
	require.NoError(t, p.SetGuard("g1", true))
	require.NoError(t, p.RequestPermission(ctx, "done", true))

	assert.Equal(t, []string{"p1"}, p.Requests())
	assert.Equal(t, []string{"done"}, p.Fired())
	assert.Equal(t, []string{"g1"}, p.GuardPushes())
	assert.Len(t, p.Calls(), 3)

	v, ok := p.Guard("g1")
	assert.True(t, ok)
	assert.True(t, v)
}

func TestFakePrimitive_Failures(t *testing.T) {
	boom := errors.New("boom")
	p := NewFakePrimitive()
	p.FailPermission = map[string]error{"p1": boom}
	p.FailGuard = map[string]error{"g1": boom}

	assert.ErrorIs(t, p.RequestPermission(context.Background(), "p1", false), boom)
	assert.ErrorIs(t, p.SetGuard("g1", true), boom)
	_, ok := p.Guard("g1")
	assert.False(t, ok)
}

func TestFakePrimitive_BlockUntilCancelled(t *testing.T) {
	p := NewFakePrimitive()
	p.Block = map[string]bool{"p1": true}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.RequestPermission(ctx, "p1", false)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// Perennial requests never block.
	assert.NoError(t, p.RequestPermission(ctx, "p1", true))
}

func TestSequentialIDs(t *testing.T) {
	g := NewSequentialIDs("")
	assert.Equal(t, "run-1", g.Generate())
	assert.Equal(t, "run-2", g.Generate())

	assert.Equal(t, "trace-1", NewSequentialIDs("trace").Generate())
}
