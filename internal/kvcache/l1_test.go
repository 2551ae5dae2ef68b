package kvcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestL1Store_AbsorbsRepeatedReadsWithoutHittingNext(t *testing.T) {
	next := newFakeStore()
	next.data["build-itins:JFK:LHR:abc"] = []byte("payload")
	l1 := NewL1Store(next)

	v1, ok1, err := l1.Get(context.Background(), "build-itins:JFK:LHR:abc")
	require.NoError(t, err)
	require.True(t, ok1)
	assert.Equal(t, []byte("payload"), v1)

	next.getErr = errors.New("should not be called again")
	v2, ok2, err := l1.Get(context.Background(), "build-itins:JFK:LHR:abc")
	require.NoError(t, err)
	require.True(t, ok2)
	assert.Equal(t, []byte("payload"), v2)
}

func TestL1Store_AbsorbsMissesToo(t *testing.T) {
	next := newFakeStore()
	l1 := NewL1Store(next)

	_, ok, err := l1.Get(context.Background(), "does-not-exist")
	require.NoError(t, err)
	require.False(t, ok)

	next.getErr = errors.New("should not be called again")
	_, ok, err = l1.Get(context.Background(), "does-not-exist")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestL1Store_SetInvalidatesLocalEntryAndWritesThrough(t *testing.T) {
	next := newFakeStore()
	next.data["k"] = []byte("old")
	l1 := NewL1Store(next)

	_, ok, _ := l1.Get(context.Background(), "k")
	require.True(t, ok)

	require.NoError(t, l1.Set(context.Background(), "k", []byte("new"), time.Minute))
	assert.Equal(t, 1, next.setHits)

	v, ok, err := l1.Get(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("new"), v)
}

func TestL1Store_GetPropagatesNextError(t *testing.T) {
	next := newFakeStore()
	next.getErr = errors.New("connection refused")
	l1 := NewL1Store(next)

	_, ok, err := l1.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.False(t, ok)
}
