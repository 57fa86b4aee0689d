package videotext

import (
	"image"
	"image/draw"
	"sync"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/tauraamui/xerror"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

var (
	parseOnce sync.Once
	fontFace  *truetype.Font
	parseErr  error
)

func loadFont() (*truetype.Font, error) {
	parseOnce.Do(func() {
		fontFace, parseErr = freetype.ParseFont(goregular.TTF)
	})
	return fontFace, parseErr
}

// Draw renders text onto canvas with its baseline vertically centred on y.
func Draw(canvas draw.Image, x, y int, text string, size float64, fg image.Image) error {
	f, err := loadFont()
	if err != nil {
		return xerror.Errorf("unable to parse overlay font: %w", err)
	}

	drawer := &font.Drawer{
		Dst: canvas,
		Src: fg,
		Face: truetype.NewFace(f, &truetype.Options{
			Size:    size,
			Hinting: font.HintingFull,
		}),
	}
	textBounds, _ := drawer.BoundString(text)
	textHeight := textBounds.Max.Y - textBounds.Min.Y
	drawer.Dot = fixed.Point26_6{
		X: fixed.I(x),
		Y: fixed.I(y-textHeight.Ceil())/2 + fixed.I(textHeight.Ceil()),
	}
	drawer.DrawString(text)
	return nil
}

// Clone copies src into a fresh RGBA image.
func Clone(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)
	return dst
}
