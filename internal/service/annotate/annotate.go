// Package annotate draws detections onto frames and scales frames to the output size.
package annotate

import (
	"image"
	"image/color"

	"cctvstation/internal/model"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	BoxColor   = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	LabelColor = color.RGBA{R: 0, G: 0, B: 255, A: 255}
)

const (
	BoxThickness = 3
	labelOffset  = 10
)

// Detection draws d's box and label onto img. Parts outside the frame are clipped.
func Detection(img *image.RGBA, d model.Detection) {
	Box(img, d.Box.Rect(), BoxColor, BoxThickness)
	Label(img, d.Label, image.Pt(d.Box.X1, d.Box.Y1-labelOffset), LabelColor)
}

// Box draws the outline of r with the given stroke thickness, inside r.
func Box(img *image.RGBA, r image.Rectangle, c color.Color, thickness int) {
	r = r.Canon()
	src := image.NewUniform(c)
	t := min(thickness, (r.Dx()+1)/2, (r.Dy()+1)/2)
	if t <= 0 {
		t = 1
	}

	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(img, e.Intersect(img.Bounds()), src, image.Point{}, draw.Src)
	}
}

// Label writes text with its baseline starting at pt.
func Label(img *image.RGBA, text string, pt image.Point, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(pt.X, pt.Y),
	}
	d.DrawString(text)
}

// Resize scales src to exactly width x height.
func Resize(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	if src.Bounds().Dx() == width && src.Bounds().Dy() == height {
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
		return dst
	}
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
