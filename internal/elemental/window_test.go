package elemental

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWindowValidatesCaps(t *testing.T) {
	_, err := NewWindow[int](WithMaxSize(0))
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = NewWindow[int](WithMaxAge(-time.Minute))
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = NewWindow[int]()
	require.NoError(t, err, "unset caps mean unbounded")
}

func TestWindowSizeEviction(t *testing.T) {
	win, err := NewWindow[int](WithMaxSize(3))
	require.NoError(t, err)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		win.Append(i, base.Add(time.Duration(i)*time.Minute))
	}

	assert.Equal(t, 3, win.Len())
	assert.Equal(t, []int{2, 3, 4}, win.Values())
}

func TestWindowAgeEviction(t *testing.T) {
	win, err := NewWindow[string](WithMaxAge(5*time.Minute))
	require.NoError(t, err)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	win.Append("old", base)
	win.Append("mid", base.Add(time.Minute))
	require.Equal(t, 2, win.Len())

	// age is measured against the newest entry, not the wall clock
	win.Append("new", base.Add(10*time.Minute))
	assert.Equal(t, []string{"new"}, win.Values())
	assert.Equal(t, base.Add(10*time.Minute), win.Newest())
}

func TestWindowAgeBoundaryKept(t *testing.T) {
	win, err := NewWindow[int](WithMaxAge(5*time.Minute))
	require.NoError(t, err)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	win.Append(1, base)
	win.Append(2, base.Add(5*time.Minute))

	// an entry exactly at the cutoff survives
	assert.Equal(t, []int{1, 2}, win.Values())
}

func TestWindowEvictIdempotent(t *testing.T) {
	win, err := NewWindow[int](WithMaxSize(2))
	require.NoError(t, err)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		win.Append(i, base.Add(time.Duration(i)*time.Second))
	}

	assert.Zero(t, win.Evict(), "Append already evicted")
	assert.Zero(t, win.Evict())
	assert.Equal(t, 2, win.Len())
}

func TestWindowEmpty(t *testing.T) {
	win, err := NewWindow[int]()
	require.NoError(t, err)

	assert.Zero(t, win.Len())
	assert.Empty(t, win.Values())
	assert.True(t, win.Newest().IsZero())
}
