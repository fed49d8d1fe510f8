package gfx

import (
	"image"
	"image/color"
	"testing"

	"github.com/lumencast/agent/internal/capture"
)

// coordTexture builds a w×h texture where each pixel encodes its own
// coordinates (R=x, G=y) so remaps can be verified exactly.
func coordTexture(w, h int) capture.Texture {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0, A: 255})
		}
	}
	return NewImageTexture(img)
}

func pixelAt(t *testing.T, img *image.RGBA, x, y int) color.RGBA {
	t.Helper()
	return img.RGBAAt(x, y)
}

func TestDrawTextureIdentity(t *testing.T) {
	c := NewImageCanvas(4, 3)
	c.DrawTexture(coordTexture(4, 3), 0, 0)

	got := pixelAt(t, c.Image(), 2, 1)
	if got.R != 2 || got.G != 1 {
		t.Errorf("pixel (2,1) = (%d,%d), want (2,1)", got.R, got.G)
	}
}

func TestDrawTextureRotations(t *testing.T) {
	// Raw texture 4x3; source pixel (sx,sy) must land per the fixed
	// translate+rotate contract for each angle.
	const rawW, rawH = 4, 3
	cases := []struct {
		rot          int
		dstW, dstH   int
		srcX, srcY   int
		wantX, wantY int
	}{
		{0, 4, 3, 1, 2, 1, 2},
		{90, 3, 4, 0, 0, 2, 0},   // top-left → top-right
		{90, 3, 4, 3, 2, 0, 3},   // bottom-right → bottom-left
		{180, 4, 3, 0, 0, 3, 2},  // top-left → bottom-right
		{270, 3, 4, 0, 0, 0, 3},  // top-left → bottom-left
		{270, 3, 4, 3, 0, 0, 0},
	}

	for _, tc := range cases {
		c := NewImageCanvas(tc.dstW, tc.dstH)
		tr := capture.RenderTransform(tc.rot, rawW, rawH)
		if tc.rot != 0 {
			c.PushTransform(tr)
		}
		c.DrawTexture(coordTexture(rawW, rawH), 0, 0)
		if tc.rot != 0 {
			c.PopTransform()
		}

		got := pixelAt(t, c.Image(), tc.wantX, tc.wantY)
		if int(got.R) != tc.srcX || int(got.G) != tc.srcY {
			t.Errorf("rot %d: dst (%d,%d) holds src (%d,%d), want (%d,%d)",
				tc.rot, tc.wantX, tc.wantY, got.R, got.G, tc.srcX, tc.srcY)
		}
	}
}

func TestRotationCoversAllPixels(t *testing.T) {
	// Every destination pixel must be written exactly once for each angle.
	const rawW, rawH = 5, 4
	for _, rot := range []int{90, 180, 270} {
		dstW, dstH := capture.EffectiveDimensions(rawW, rawH, rot)
		c := NewImageCanvas(int(dstW), int(dstH))
		c.PushTransform(capture.RenderTransform(rot, rawW, rawH))
		c.DrawTexture(coordTexture(rawW, rawH), 0, 0)
		c.PopTransform()

		img := c.Image()
		for y := 0; y < int(dstH); y++ {
			for x := 0; x < int(dstW); x++ {
				if img.RGBAAt(x, y).A != 255 {
					t.Fatalf("rot %d: dst (%d,%d) never written", rot, x, y)
				}
			}
		}
	}
}

func TestBlendingDisabledPreservesAlpha(t *testing.T) {
	c := NewImageCanvas(2, 2)
	// Seed the target with a known alpha.
	for i := 3; i < len(c.Image().Pix); i += 4 {
		c.Image().Pix[i] = 42
	}

	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i], src.Pix[i+3] = 200, 10 // red, nearly transparent
	}

	c.SetBlending(false)
	c.SetAlphaWrite(false)
	c.DrawTexture(NewImageTexture(src), 0, 0)

	got := pixelAt(t, c.Image(), 0, 0)
	if got.R != 200 {
		t.Errorf("R = %d, want 200 (opaque copy ignores source alpha)", got.R)
	}
	if got.A != 42 {
		t.Errorf("A = %d, want 42 (alpha channel masked)", got.A)
	}
}

func TestBlendingSourceOver(t *testing.T) {
	c := NewImageCanvas(1, 1)
	c.Image().SetRGBA(0, 0, color.RGBA{R: 0, G: 0, B: 0, A: 255})

	src := image.NewRGBA(image.Rect(0, 0, 1, 1))
	src.SetRGBA(0, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	c.SetBlending(true)
	c.SetAlphaWrite(true)
	c.DrawTexture(NewImageTexture(src), 0, 0)

	if got := pixelAt(t, c.Image(), 0, 0); got.R != 255 {
		t.Errorf("opaque source over: R = %d, want 255", got.R)
	}

	// Fully transparent source leaves the destination untouched.
	src.SetRGBA(0, 0, color.RGBA{})
	c.DrawTexture(NewImageTexture(src), 0, 0)
	if got := pixelAt(t, c.Image(), 0, 0); got.R != 255 {
		t.Errorf("transparent source changed destination: R = %d", got.R)
	}
}

func TestClipRestrictsDraws(t *testing.T) {
	c := NewImageCanvas(4, 4)
	c.SetClip(2, 2)
	c.DrawTexture(coordTexture(4, 4), 0, 0)
	c.ClearClip()

	if got := pixelAt(t, c.Image(), 1, 1); got.A != 255 {
		t.Error("pixel inside clip not drawn")
	}
	if got := pixelAt(t, c.Image(), 3, 3); got.A != 0 {
		t.Error("pixel outside clip was drawn")
	}
}

func TestCursorOverlayDraw(t *testing.T) {
	sprite := arrowSprite()
	overlay := &cursorOverlay{
		sample: func() (cursorSample, bool) {
			// Cursor at virtual desktop (110, 55) on a monitor whose
			// origin is (100, 50).
			return cursorSample{x: 110, y: 55, sprite: sprite}, true
		},
	}

	c := NewImageCanvas(64, 64)
	overlay.Draw(c, 0, 0, 1.0, 1.0, 64, 64)
	if pixelAt(t, c.Image(), 10, 5).A != 0 {
		t.Error("cursor drawn before Capture")
	}

	overlay.Capture()
	overlay.Draw(c, -100, -50, 1.0, 1.0, 64, 64)
	if pixelAt(t, c.Image(), 10, 5).A == 0 {
		t.Error("cursor tip missing at local position (10,5)")
	}
}

func TestCursorOverlayClipped(t *testing.T) {
	sprite := arrowSprite()
	overlay := &cursorOverlay{
		sample: func() (cursorSample, bool) {
			return cursorSample{x: 30, y: 10, sprite: sprite}, true
		},
	}
	overlay.Capture()

	c := NewImageCanvas(64, 64)
	// Clip narrower than the cursor position: nothing may land.
	overlay.Draw(c, 0, 0, 1.0, 1.0, 20, 64)

	img := c.Image()
	for y := 0; y < 64; y++ {
		for x := 20; x < 64; x++ {
			if img.RGBAAt(x, y).A != 0 {
				t.Fatalf("pixel (%d,%d) drawn outside clip", x, y)
			}
		}
	}
}

func TestCursorOverlayHiddenWhenSampleFails(t *testing.T) {
	overlay := &cursorOverlay{
		sample: func() (cursorSample, bool) { return cursorSample{}, false },
	}
	overlay.Capture()

	c := NewImageCanvas(8, 8)
	overlay.Draw(c, 0, 0, 1.0, 1.0, 8, 8)
	for i := 3; i < len(c.Image().Pix); i += 4 {
		if c.Image().Pix[i] != 0 {
			t.Fatal("hidden cursor produced pixels")
		}
	}
}
