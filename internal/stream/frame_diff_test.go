package stream

import (
	"testing"
)

func TestFrameDifferFirstFrameAlwaysChanged(t *testing.T) {
	d := newFrameDiffer()
	if !d.HasChanged([]byte{1, 2, 3}) {
		t.Fatal("first frame reported unchanged")
	}
}

func TestFrameDifferSkipsIdenticalFrames(t *testing.T) {
	d := newFrameDiffer()
	pix := []byte{10, 20, 30, 40}

	d.HasChanged(pix)
	if d.HasChanged(pix) {
		t.Fatal("identical frame reported changed")
	}

	pix[0] = 11
	if !d.HasChanged(pix) {
		t.Fatal("modified frame reported unchanged")
	}

	total, skipped := d.Stats()
	if total != 3 || skipped != 1 {
		t.Fatalf("Stats() = (%d, %d), want (3, 1)", total, skipped)
	}
}

func TestFrameDifferResetForcesNextFrame(t *testing.T) {
	d := newFrameDiffer()
	pix := []byte{1, 1, 1}

	d.HasChanged(pix)
	d.Reset()
	if !d.HasChanged(pix) {
		t.Fatal("frame after Reset reported unchanged")
	}
}

func TestBufferPoolReset(t *testing.T) {
	buf := getBuffer()
	buf.WriteString("stale")
	putBuffer(buf)

	got := getBuffer()
	if got.Len() != 0 {
		t.Fatalf("pooled buffer not reset, len = %d", got.Len())
	}
	putBuffer(got)
}

func TestImagePoolRecyclesMatchingSize(t *testing.T) {
	var p imagePool

	a := p.Get(64, 48)
	if b := a.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Fatalf("Get bounds = %v", b)
	}
	p.Put(a)

	// A size change discards the pool; old images must not come back.
	c := p.Get(32, 32)
	if b := c.Bounds(); b.Dx() != 32 || b.Dy() != 32 {
		t.Fatalf("Get after resize bounds = %v", b)
	}
	if len(c.Pix) != 32*32*4 {
		t.Fatalf("pool returned image with %d pixel bytes", len(c.Pix))
	}
}
