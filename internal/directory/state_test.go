package directory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadStateLifecycle(t *testing.T) {
	var s LoadState
	assert.Equal(t, StatusIdle, s.Status())

	require.NoError(t, s.Begin())
	assert.Equal(t, StatusLoading, s.Status())
	require.NoError(t, s.Succeed())
	assert.Equal(t, StatusLoaded, s.Status())

	require.NoError(t, s.Refresh())
	boom := errors.New("boom")
	require.NoError(t, s.Fail(boom))
	assert.Equal(t, StatusErrored, s.Status())
	assert.Equal(t, boom, s.Err())

	require.NoError(t, s.Refresh())
	assert.Nil(t, s.Err())
}

func TestLoadStateRejectsInvalidTransitions(t *testing.T) {
	var s LoadState
	assert.ErrorIs(t, s.Refresh(), ErrInvalidTransition)
	assert.ErrorIs(t, s.Succeed(), ErrInvalidTransition)

	require.NoError(t, s.Begin())
	assert.ErrorIs(t, s.Begin(), ErrInvalidTransition)
	assert.ErrorIs(t, s.Refresh(), ErrInvalidTransition)
}

func TestLoadStateStart(t *testing.T) {
	var s LoadState
	require.NoError(t, s.Start())
	require.NoError(t, s.Fail(errors.New("x")))
	require.NoError(t, s.Start())
	assert.Equal(t, StatusLoading, s.Status())
	assert.Equal(t, "loading", s.Status().String())
}
