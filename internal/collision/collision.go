// Package collision resolves the expected slot collisions of a frame by
// splitting colliding groups into seeded sub-frames. The tree is built from
// the reader's knowledge of the registered tags, so it never depends on which
// tags are actually present.
package collision

import (
	"github.com/danielpatrickdp/lods-sim/internal/alloc"
	"github.com/danielpatrickdp/lods-sim/internal/channel"
)

// #region types
// Slot is one slot of a frame with the tags expected to reply in it.
type Slot struct {
	Index  int
	Tags   []uint64
	Forced bool // still colliding at the depth limit
}

// State is the expected occupancy of the slot.
func (s Slot) State() channel.SlotState {
	switch len(s.Tags) {
	case 0:
		return channel.Empty
	case 1:
		return channel.Single
	default:
		return channel.Collision
	}
}

// Frame is one transmitted frame: the root frame or a sub-frame created for a
// colliding slot of its parent.
type Frame struct {
	ID         int
	Size       int
	Seed       uint64
	Depth      int
	Parent     int // -1 for the root
	ParentSlot int
	Slots      []Slot
}

// Assignment is the slot that resolves a tag.
type Assignment struct {
	Frame  int
	Slot   int
	Forced bool
}

// Resolution lists frames in transmission order and where every tag was
// resolved.
type Resolution struct {
	Frames     []Frame
	Assign     map[uint64]Assignment
	Collisions int // colliding slots seen across all frames
	Splits     int // sub-frames created
	Forced     int // slots left colliding at the depth limit
	MaxDepth   int // deepest frame built
	TotalSlots int
}

// #endregion types

type pending struct {
	tags       []uint64
	seed       uint64
	size       int
	depth      int
	parent     int
	parentSlot int
}

// #region resolve
// Resolve allocates tags into a frame of frameSize slots and splits every
// colliding group of k tags into a sub-frame of min(parent, max(2, k²)) slots
// seeded by Derive(seed, "split", slot, depth+1). Groups still colliding at
// maxDepth become forced slots. Processing uses a FIFO queue so frames come out
// breadth-first.
func Resolve(tags []uint64, seed uint64, frameSize, maxDepth int) Resolution {
	if frameSize < 1 {
		frameSize = 1
	}
	res := Resolution{Assign: make(map[uint64]Assignment, len(tags))}
	queue := []pending{{tags: tags, seed: seed, size: frameSize, parent: -1, parentSlot: -1}}

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]

		frame := Frame{
			ID:         len(res.Frames),
			Size:       p.size,
			Seed:       p.seed,
			Depth:      p.depth,
			Parent:     p.parent,
			ParentSlot: p.parentSlot,
			Slots:      make([]Slot, p.size),
		}
		if p.depth > res.MaxDepth {
			res.MaxDepth = p.depth
		}

		for s, group := range alloc.Allocate(p.tags, p.seed, p.size) {
			slot := Slot{Index: s, Tags: group}
			switch {
			case len(group) == 1:
				res.Assign[group[0]] = Assignment{Frame: frame.ID, Slot: s}
			case len(group) > 1:
				res.Collisions++
				if p.depth >= maxDepth {
					slot.Forced = true
					res.Forced++
					for _, tag := range group {
						res.Assign[tag] = Assignment{Frame: frame.ID, Slot: s, Forced: true}
					}
					break
				}
				res.Splits++
				queue = append(queue, pending{
					tags:       group,
					seed:       alloc.Derive(p.seed, "split", uint64(s), uint64(p.depth+1)),
					size:       subFrameSize(p.size, len(group)),
					depth:      p.depth + 1,
					parent:     frame.ID,
					parentSlot: s,
				})
			}
			frame.Slots[s] = slot
		}

		res.TotalSlots += frame.Size
		res.Frames = append(res.Frames, frame)
	}
	return res
}

func subFrameSize(parent, k int) int {
	size := k * k
	if size < 2 {
		size = 2
	}
	if size > parent {
		size = parent
	}
	return size
}

// #endregion resolve
