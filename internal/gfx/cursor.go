package gfx

import (
	"image"

	"github.com/lumencast/agent/internal/capture"
)

// cursorSample is one observation of the OS cursor.
type cursorSample struct {
	x, y       int // screen position in virtual desktop coordinates
	hotX, hotY int
	sprite     *image.RGBA
}

// cursorOverlay implements capture.CursorOverlay. Sampling is delegated to
// a platform hook so the overlay itself stays testable.
type cursorOverlay struct {
	sample  func() (cursorSample, bool)
	cur     cursorSample
	visible bool
}

// NewCursorOverlay returns the platform cursor overlay. On platforms with no
// cursor query API it reports the cursor as never visible.
func NewCursorOverlay() capture.CursorOverlay {
	return &cursorOverlay{sample: sampleCursor}
}

func (o *cursorOverlay) Capture() {
	s, ok := o.sample()
	if !ok {
		o.visible = false
		return
	}
	o.cur = s
	o.visible = true
}

func (o *cursorOverlay) Draw(c capture.Canvas, x, y int, scaleX, scaleY float64, clipW, clipH uint32) {
	if !o.visible || o.cur.sprite == nil {
		return
	}

	sprite := o.cur.sprite
	if scaleX != 1.0 || scaleY != 1.0 {
		sprite = scaleNearest(sprite, scaleX, scaleY)
	}

	// The offset converts virtual-desktop position to local capture space;
	// scale applies to the final placement the same way it does to pixels.
	px := int(float64(o.cur.x+x-o.cur.hotX) * scaleX)
	py := int(float64(o.cur.y+y-o.cur.hotY) * scaleY)

	c.SetClip(clipW, clipH)
	c.DrawTexture(NewImageTexture(sprite), px, py)
	c.ClearClip()
}

func (o *cursorOverlay) Close() {
	o.cur = cursorSample{}
	o.visible = false
}

// scaleNearest resizes src by (sx, sy) with nearest-neighbor sampling.
func scaleNearest(src *image.RGBA, sx, sy float64) *image.RGBA {
	sb := src.Bounds()
	w := int(float64(sb.Dx()) * sx)
	h := int(float64(sb.Dy()) * sy)
	if w < 1 || h < 1 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		srcY := sb.Min.Y + int(float64(y)/sy)
		for x := 0; x < w; x++ {
			srcX := sb.Min.X + int(float64(x)/sx)
			so := src.PixOffset(srcX, srcY)
			do := dst.PixOffset(x, y)
			copy(dst.Pix[do:do+4], src.Pix[so:so+4])
		}
	}
	return dst
}

// arrowBitmap encodes a standard 12x20 arrow: 0 transparent, 1 black
// border, 2 white fill.
var arrowBitmap = [20][12]byte{
	{1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
	{1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
	{1, 2, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0},
	{1, 2, 2, 1, 0, 0, 0, 0, 0, 0, 0, 0},
	{1, 2, 2, 2, 1, 0, 0, 0, 0, 0, 0, 0},
	{1, 2, 2, 2, 2, 1, 0, 0, 0, 0, 0, 0},
	{1, 2, 2, 2, 2, 2, 1, 0, 0, 0, 0, 0},
	{1, 2, 2, 2, 2, 2, 2, 1, 0, 0, 0, 0},
	{1, 2, 2, 2, 2, 2, 2, 2, 1, 0, 0, 0},
	{1, 2, 2, 2, 2, 2, 2, 2, 2, 1, 0, 0},
	{1, 2, 2, 2, 2, 2, 2, 2, 2, 2, 1, 0},
	{1, 2, 2, 2, 2, 2, 2, 1, 1, 1, 1, 1},
	{1, 2, 2, 2, 1, 2, 2, 1, 0, 0, 0, 0},
	{1, 2, 2, 1, 0, 1, 2, 2, 1, 0, 0, 0},
	{1, 2, 1, 0, 0, 1, 2, 2, 1, 0, 0, 0},
	{1, 1, 0, 0, 0, 0, 1, 2, 2, 1, 0, 0},
	{1, 0, 0, 0, 0, 0, 1, 2, 2, 1, 0, 0},
	{0, 0, 0, 0, 0, 0, 0, 1, 2, 2, 1, 0},
	{0, 0, 0, 0, 0, 0, 0, 1, 2, 2, 1, 0},
	{0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 0, 0},
}

// arrowSprite renders the fallback arrow cursor as an RGBA sprite.
func arrowSprite() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 12, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 12; x++ {
			off := img.PixOffset(x, y)
			switch arrowBitmap[y][x] {
			case 1:
				img.Pix[off+0], img.Pix[off+1], img.Pix[off+2], img.Pix[off+3] = 0, 0, 0, 255
			case 2:
				img.Pix[off+0], img.Pix[off+1], img.Pix[off+2], img.Pix[off+3] = 255, 255, 255, 255
			}
		}
	}
	return img
}
