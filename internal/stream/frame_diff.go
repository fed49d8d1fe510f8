package stream

import (
	"hash/crc32"
	"sync"
	"sync/atomic"
)

// frameDiffer detects unchanged frames via CRC32 hash of raw pixel data,
// so identical frames are neither encoded nor sent.
type frameDiffer struct {
	mu          sync.Mutex
	lastHash    uint32
	hasLastHash bool
	skipped     atomic.Uint64
	total       atomic.Uint64
}

func newFrameDiffer() *frameDiffer {
	return &frameDiffer{}
}

// HasChanged computes CRC32 of the Pix slice and returns true if it
// differs from the last sent frame. Returns true on the first frame.
func (d *frameDiffer) HasChanged(pix []byte) bool {
	d.total.Add(1)
	h := crc32.ChecksumIEEE(pix)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.hasLastHash && h == d.lastHash {
		d.skipped.Add(1)
		return false
	}
	d.lastHash = h
	d.hasLastHash = true
	return true
}

// Reset clears the stored hash, forcing the next frame through. Used when
// a viewer connects so it receives a frame immediately.
func (d *frameDiffer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hasLastHash = false
}

// Stats returns (total frames checked, frames skipped).
func (d *frameDiffer) Stats() (total, skipped uint64) {
	return d.total.Load(), d.skipped.Load()
}
