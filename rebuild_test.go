package framecomp

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebuildState(t *testing.T) {
	var r RebuildState
	assert.False(t, r.NeedsRebuild())

	r.MarkResized()
	r.MarkResized()
	assert.True(t, r.NeedsRebuild())

	calls := 0
	require.NoError(t, r.Rebuild(func() error { calls++; return nil }))
	assert.Equal(t, 1, calls)
	assert.False(t, r.NeedsRebuild())
	assert.Equal(t, uint64(1), r.Generation())
}

func TestRebuildFailureKeepsRequest(t *testing.T) {
	var r RebuildState
	r.MarkResized()
	err := r.Rebuild(func() error { return errDeviceLost })
	assert.True(t, errors.Is(err, errDeviceLost))
	assert.True(t, r.NeedsRebuild())
	assert.Zero(t, r.Generation())

	require.NoError(t, r.Rebuild(func() error { return nil }))
	assert.False(t, r.NeedsRebuild())
}

func TestRebuildKeepsRequestsMadeDuringRebuild(t *testing.T) {
	var r RebuildState
	r.MarkResized()
	require.NoError(t, r.Rebuild(func() error {
		r.MarkResized()
		return nil
	}))
	assert.True(t, r.NeedsRebuild())
}

func TestRebuildConcurrentMarks(t *testing.T) {
	var r RebuildState
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.MarkResized()
		}()
	}
	wg.Wait()
	assert.True(t, r.NeedsRebuild())
	require.NoError(t, r.Rebuild(func() error { return nil }))
	assert.False(t, r.NeedsRebuild())
}
