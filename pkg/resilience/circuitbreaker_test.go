package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := New(Config{
		Name:                "test",
		ConsecutiveFailures: 3,
		Timeout:             time.Minute,
	}, nil, nil)

	fail := func() (interface{}, error) { return nil, errors.New("boom") }

	for i := 0; i < 3; i++ {
		_, err := cb.Execute(fail)
		require.Error(t, err)
	}

	assert.True(t, cb.IsOpen())

	_, err := cb.Execute(func() (interface{}, error) { return "ok", nil })
	require.Error(t, err)
	assert.True(t, IsCircuitOpen(err))
}

func TestBreakerStaysClosedOnSuccess(t *testing.T) {
	cb := New(Config{Name: "test", ConsecutiveFailures: 2}, nil, nil)

	for i := 0; i < 10; i++ {
		out, err := cb.Execute(func() (interface{}, error) { return i, nil })
		require.NoError(t, err)
		assert.Equal(t, i, out)
	}
	assert.False(t, cb.IsOpen())
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	cb := New(Config{Name: "test", ConsecutiveFailures: 3}, nil, nil)

	fail := func() (interface{}, error) { return nil, errors.New("boom") }
	ok := func() (interface{}, error) { return nil, nil }

	_, _ = cb.Execute(fail)
	_, _ = cb.Execute(fail)
	_, _ = cb.Execute(ok)
	_, _ = cb.Execute(fail)
	_, _ = cb.Execute(fail)

	assert.False(t, cb.IsOpen(), "non-consecutive failures must not trip")
}

func TestBreakerRecoversAfterTimeout(t *testing.T) {
	cb := New(Config{
		Name:                "test",
		ConsecutiveFailures: 1,
		Timeout:             20 * time.Millisecond,
	}, nil, nil)

	_, _ = cb.Execute(func() (interface{}, error) { return nil, errors.New("boom") })
	require.True(t, cb.IsOpen())

	time.Sleep(30 * time.Millisecond)

	out, err := cb.Execute(func() (interface{}, error) { return "recovered", nil })
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.False(t, cb.IsOpen())
}

func TestExecuteContextPassesContext(t *testing.T) {
	cb := New(Config{Name: "test"}, nil, nil)

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")

	out, err := cb.ExecuteContext(ctx, func(ctx context.Context) (interface{}, error) {
		return ctx.Value(key{}), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "v", out)
}

func TestManagerGetOrCreate(t *testing.T) {
	m := NewManager(nil, nil)

	a := m.GetOrCreate(Config{Name: "embed"})
	b := m.GetOrCreate(Config{Name: "embed"})
	c := m.GetOrCreate(Config{Name: "rerank"})

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)

	got, ok := m.Get("rerank")
	require.True(t, ok)
	assert.Same(t, c, got)

	_, ok = m.Get("missing")
	assert.False(t, ok)
}
