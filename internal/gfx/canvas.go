// Package gfx provides the platform side of the capture pipeline: display
// duplication backends, the shared device guard usage, the cursor overlay,
// and a software canvas that composes captured textures into an RGBA frame.
package gfx

import (
	"image"

	"github.com/lumencast/agent/internal/capture"
)

// imageTexture wraps an *image.RGBA as a capture.Texture.
type imageTexture struct {
	img *image.RGBA
}

// NewImageTexture wraps img as a texture. The image is not copied.
func NewImageTexture(img *image.RGBA) capture.Texture {
	return &imageTexture{img: img}
}

func (t *imageTexture) Dimensions() (uint32, uint32) {
	b := t.img.Bounds()
	return uint32(b.Dx()), uint32(b.Dy())
}

func (t *imageTexture) Image() *image.RGBA {
	return t.img
}

// ImageCanvas implements capture.Canvas on top of an *image.RGBA target.
// Rotation is limited to the 90-degree steps the capture pipeline produces,
// which keeps every draw an exact pixel remap with no resampling.
type ImageCanvas struct {
	target *image.RGBA

	stack      []capture.Transform
	blending   bool
	alphaWrite bool

	clipW, clipH uint32
	clipped      bool
}

// NewImageCanvas creates a canvas drawing into a fresh w×h target.
func NewImageCanvas(w, h int) *ImageCanvas {
	return NewImageCanvasFor(image.NewRGBA(image.Rect(0, 0, w, h)))
}

// NewImageCanvasFor creates a canvas drawing into img.
func NewImageCanvasFor(img *image.RGBA) *ImageCanvas {
	return &ImageCanvas{
		target:     img,
		blending:   true,
		alphaWrite: true,
	}
}

// Image returns the render target.
func (c *ImageCanvas) Image() *image.RGBA { return c.target }

// SetTarget swaps the render target, keeping modal state.
func (c *ImageCanvas) SetTarget(img *image.RGBA) { c.target = img }

func (c *ImageCanvas) PushTransform(t capture.Transform) {
	c.stack = append(c.stack, t)
}

func (c *ImageCanvas) PopTransform() {
	if len(c.stack) > 0 {
		c.stack = c.stack[:len(c.stack)-1]
	}
}

func (c *ImageCanvas) SetBlending(enabled bool)   { c.blending = enabled }
func (c *ImageCanvas) SetAlphaWrite(enabled bool) { c.alphaWrite = enabled }

func (c *ImageCanvas) SetClip(w, h uint32) {
	c.clipW, c.clipH = w, h
	c.clipped = true
}

func (c *ImageCanvas) ClearClip() { c.clipped = false }

// mapPixel runs a pixel coordinate through the transform stack, most
// recently pushed first. Each step is an exact cell remap for the four
// supported angles.
func (c *ImageCanvas) mapPixel(px, py int) (int, int) {
	for i := len(c.stack) - 1; i >= 0; i-- {
		t := c.stack[i]
		tx, ty := int(t.TranslateX), int(t.TranslateY)
		switch capture.NormalizeRotation(t.Angle) {
		case 90:
			px, py = tx-1-py, ty+px
		case 180:
			px, py = tx-1-px, ty-1-py
		case 270:
			px, py = tx+py, ty-1-px
		default:
			px, py = tx+px, ty+py
		}
	}
	return px, py
}

// DrawTexture draws t with its top-left corner at (x, y) under the current
// transform, blend mode, alpha mask, and clip.
func (c *ImageCanvas) DrawTexture(t capture.Texture, x, y int) {
	src := t.Image()
	if src == nil {
		return
	}
	sb := src.Bounds()
	tb := c.target.Bounds()

	for sy := 0; sy < sb.Dy(); sy++ {
		for sx := 0; sx < sb.Dx(); sx++ {
			dx, dy := c.mapPixel(x+sx, y+sy)
			if dx < 0 || dy < 0 || dx >= tb.Dx() || dy >= tb.Dy() {
				continue
			}
			if c.clipped && (uint32(dx) >= c.clipW || uint32(dy) >= c.clipH) {
				continue
			}

			so := src.PixOffset(sb.Min.X+sx, sb.Min.Y+sy)
			do := c.target.PixOffset(dx, dy)
			c.writePixel(src.Pix[so:so+4], c.target.Pix[do:do+4])
		}
	}
}

// writePixel applies one source pixel to one destination pixel under the
// current blend and alpha-write state.
func (c *ImageCanvas) writePixel(src, dst []byte) {
	if !c.blending {
		dst[0], dst[1], dst[2] = src[0], src[1], src[2]
		if c.alphaWrite {
			dst[3] = src[3]
		}
		return
	}

	sa := uint32(src[3])
	if sa == 0 {
		return
	}
	// Source-over with non-premultiplied source.
	for i := 0; i < 3; i++ {
		dst[i] = byte((uint32(src[i])*sa + uint32(dst[i])*(255-sa)) / 255)
	}
	if c.alphaWrite {
		da := uint32(dst[3])
		dst[3] = byte(sa + da*(255-sa)/255)
	}
}

var _ capture.Canvas = (*ImageCanvas)(nil)
