package collision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/lods-sim/internal/channel"
)

func makeTags(n int) []uint64 {
	tags := make([]uint64, n)
	for i := range tags {
		tags[i] = 0xE200001D45000000 + uint64(i)
	}
	return tags
}

func TestResolveAssignsEveryTagOnce(t *testing.T) {
	tags := makeTags(500)
	res := Resolve(tags, 11, 512, 8)

	require.Len(t, res.Assign, len(tags))
	for _, tag := range tags {
		a, ok := res.Assign[tag]
		require.True(t, ok)
		slot := res.Frames[a.Frame].Slots[a.Slot]
		assert.Contains(t, slot.Tags, tag)
		if !a.Forced {
			assert.Equal(t, channel.Single, slot.State())
		}
	}
	assert.Positive(t, res.Collisions)
	assert.Equal(t, res.Splits, len(res.Frames)-1)
}

func TestResolveRespectsDepthLimit(t *testing.T) {
	for _, depth := range []int{0, 1, 3, 8} {
		res := Resolve(makeTags(300), 5, 64, depth)
		assert.LessOrEqual(t, res.MaxDepth, depth)
		for _, f := range res.Frames {
			assert.LessOrEqual(t, f.Depth, depth)
		}
	}
}

func TestResolveForcesAtDepthLimit(t *testing.T) {
	// a one-slot frame can never separate its tags
	res := Resolve(makeTags(3), 1, 1, 3)
	require.Len(t, res.Frames, 4)
	assert.Equal(t, 3, res.Splits)
	assert.Equal(t, 4, res.Collisions)
	assert.Equal(t, 1, res.Forced)

	last := res.Frames[3]
	assert.True(t, last.Slots[0].Forced)
	for _, a := range res.Assign {
		assert.True(t, a.Forced)
		assert.Equal(t, 3, a.Frame)
	}
}

func TestResolveNoSplitAllowed(t *testing.T) {
	res := Resolve(makeTags(200), 2, 64, 0)
	require.Len(t, res.Frames, 1)
	assert.Equal(t, res.Collisions, res.Forced)
	assert.Equal(t, 64, res.TotalSlots)
}

func TestSubFrameShape(t *testing.T) {
	res := Resolve(makeTags(400), 9, 256, 8)
	for _, f := range res.Frames[1:] {
		parent := res.Frames[f.Parent]
		k := len(parent.Slots[f.ParentSlot].Tags)
		assert.Equal(t, subFrameSize(parent.Size, k), f.Size)
		assert.Equal(t, f.Depth, parent.Depth+1)
		assert.Greater(t, f.ID, parent.ID)
	}
	assert.Equal(t, 2, subFrameSize(64, 1))
	assert.Equal(t, 9, subFrameSize(64, 3))
	assert.Equal(t, 4, subFrameSize(4, 3))
}

func TestResolveDeterministic(t *testing.T) {
	tags := makeTags(250)
	assert.Equal(t, Resolve(tags, 77, 128, 6), Resolve(tags, 77, 128, 6))
	assert.NotEqual(t, Resolve(tags, 77, 128, 6).Frames[0], Resolve(tags, 78, 128, 6).Frames[0])
}

func TestResolveEmpty(t *testing.T) {
	res := Resolve(nil, 1, 16, 4)
	require.Len(t, res.Frames, 1)
	assert.Empty(t, res.Assign)
	assert.Zero(t, res.Collisions)
}
