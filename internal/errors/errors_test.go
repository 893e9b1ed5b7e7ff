package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCause(t *testing.T) {
	original := New("original")
	wrapped := Wrapf(original, "round %d", 3)

	assert.Contains(t, wrapped.Error(), "round 3")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestMarkAttachesKind(t *testing.T) {
	kind := New("invalid configuration")
	other := New("channel divergence")

	err := Mark(Newf("tag_count must be > 0, got %d", 0), kind)
	require.Error(t, err)

	assert.True(t, Is(err, kind))
	assert.False(t, Is(err, other))
	assert.True(t, Is(Wrap(err, "init"), kind))
	assert.Equal(t, "tag_count must be > 0, got 0", err.Error())
}

func TestWithHintIsRetrievable(t *testing.T) {
	err := WithHint(New("rho bounds inverted"), "set rho_min <= rho_max")

	hints := GetAllHints(err)
	require.Len(t, hints, 1)
	assert.Equal(t, "set rho_min <= rho_max", hints[0])
}
