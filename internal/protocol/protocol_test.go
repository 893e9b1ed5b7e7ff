package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/danielpatrickdp/lods-sim/internal/channel"
)

func TestReadingState(t *testing.T) {
	assert.Equal(t, channel.Empty, Reading{Ones: 2}.State(3))
	assert.Equal(t, channel.Single, Reading{Ones: 3}.State(3))
	assert.Equal(t, channel.Collision, Reading{Ones: 4, Garbled: true}.State(3))
	assert.Equal(t, channel.Single, Reading{Ones: 1, Captured: true, CaptureTag: 9}.State(1))
}

func TestFrameTags(t *testing.T) {
	slots := [][]uint64{{3}, nil, {1, 2}, {}}
	assert.Equal(t, []uint64{3, 1, 2}, FrameTags(slots))
	assert.Nil(t, FrameTags(nil))
}
