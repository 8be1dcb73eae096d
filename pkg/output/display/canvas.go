package display

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Canvas is a Panel backed by a 1-bit frame buffer. Flush hands the buffer
// to the supplied function.
type Canvas struct {
	img   *image1bit.VerticalLSB
	face  font.Face
	flush func(image.Image) error
	close func() error
}

func NewCanvas(w, h int, flush func(image.Image) error, closeFn func() error) *Canvas {
	return &Canvas{
		img:   image1bit.NewVerticalLSB(image.Rect(0, 0, w, h)),
		face:  basicfont.Face7x13,
		flush: flush,
		close: closeFn,
	}
}

// Image exposes the frame buffer.
func (c *Canvas) Image() *image1bit.VerticalLSB { return c.img }

func (c *Canvas) set(x, y int, on bool) {
	if !image.Pt(x, y).In(c.img.Bounds()) {
		return
	}
	c.img.SetBit(x, y, image1bit.Bit(on))
}

func (c *Canvas) Fill(on bool) {
	b := c.img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c.img.SetBit(x, y, image1bit.Bit(on))
		}
	}
}

// Rect draws the outline of a w x h rectangle.
func (c *Canvas) Rect(x, y, w, h int, on bool) {
	if w <= 0 || h <= 0 {
		return
	}
	x1, y1 := x+w-1, y+h-1
	c.Line(x, y, x1, y, on)
	c.Line(x, y1, x1, y1, on)
	c.Line(x, y, x, y1, on)
	c.Line(x1, y, x1, y1, on)
}

// Line uses Bresenham's algorithm; both end points are drawn.
func (c *Canvas) Line(x0, y0, x1, y1 int, on bool) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		c.set(x0, y0, on)
		if x0 == x1 && y0 == y1 {
			return
		}
		if e2 := 2 * e; e2 >= dy {
			e += dy
			x0 += sx
		} else if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func (c *Canvas) DrawText(s string, x, y int) {
	d := font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(color.Gray{Y: 255}),
		Face: c.face,
		Dot:  fixed.P(x, y+c.face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)
}

func (c *Canvas) Flush() error {
	if c.flush == nil {
		return nil
	}
	return c.flush(c.img)
}

func (c *Canvas) Close() error {
	if c.close == nil {
		return nil
	}
	return c.close()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
