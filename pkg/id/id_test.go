package id

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAtIsSortable(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2025, 3, 3, 9, 30, 0, 0, time.UTC)
	a := NewAt(t0)
	b := NewAt(t0)
	c := NewAt(t0.Add(time.Second))

	assert.Len(t, a, 26)
	assert.Less(t, a, b)
	assert.Less(t, b, c)

	u, err := ulid.ParseStrict(c)
	require.NoError(t, err)
	assert.True(t, ulid.Time(u.Time()).Equal(t0.Add(time.Second)))
}
