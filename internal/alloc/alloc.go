// Package alloc maps tags to frame slots with a seeded hash. Every function is
// pure: the same tag, seed and frame size always give the same slot, which is
// what lets the reader predict each present tag's slot.
package alloc

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// SlotFor returns the slot tagID occupies in a frame of frameSize slots.
func SlotFor(tagID, seed uint64, frameSize int) int {
	if frameSize <= 1 {
		return 0
	}
	return int(hash64(seed, tagID) % uint64(frameSize))
}

// Unit maps tagID to a value in [0,1) under seed. It is used to pick a
// ρ-fraction of tags deterministically.
func Unit(tagID, seed uint64) float64 {
	return float64(hash64(seed, tagID)>>11) / (1 << 53)
}

// Derive returns a child seed for the given label and indices, e.g.
// Derive(trial, "round", r) or Derive(frame, "split", slot, depth).
func Derive(seed uint64, label string, idx ...uint64) uint64 {
	buf := make([]byte, 0, 8+len(label)+8*len(idx))
	buf = binary.BigEndian.AppendUint64(buf, seed)
	buf = append(buf, label...)
	for _, i := range idx {
		buf = binary.BigEndian.AppendUint64(buf, i)
	}
	sum := sha256.Sum256(buf)
	return binary.BigEndian.Uint64(sum[0:8])
}

// Allocate buckets tags into a frame. Each bucket keeps the input order.
func Allocate(tags []uint64, seed uint64, frameSize int) [][]uint64 {
	slots := make([][]uint64, frameSize)
	for _, tag := range tags {
		s := SlotFor(tag, seed, frameSize)
		slots[s] = append(slots[s], tag)
	}
	return slots
}

// ExpectedCollisionFraction is the birthday estimate of the fraction of n
// tags that share their slot with at least one other tag in a frame of
// frameSize slots.
func ExpectedCollisionFraction(n, frameSize int) float64 {
	if n <= 1 || frameSize <= 0 {
		return 0
	}
	if frameSize == 1 {
		return 1
	}
	return 1 - math.Pow(1-1/float64(frameSize), float64(n-1))
}

// FrameSize picks a power-of-two frame for n tags at loadFactor slots per
// tag, clamped to [min, max].
func FrameSize(n int, loadFactor float64, min, max int) int {
	want := int(math.Ceil(float64(n) * loadFactor))
	size := 1
	for size < want {
		size <<= 1
	}
	if size < min {
		size = min
	}
	if size > max {
		size = max
	}
	return size
}

func hash64(seed, tagID uint64) uint64 {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[0:8], seed)
	binary.BigEndian.PutUint64(buf[8:16], tagID)
	sum := sha256.Sum256(buf[:])
	return binary.BigEndian.Uint64(sum[0:8])
}
