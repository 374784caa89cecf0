// Package avatar renders the first-letter placeholder shown when an employee
// photo is missing, and square thumbnails of fetched photos.
package avatar

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	stddraw "image/draw"
	_ "image/jpeg"
	"image/png"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/webp"
)

const glyphCanvas = 15

var (
	placeholderBackground = color.RGBA{R: 0x4c, G: 0xaf, B: 0x50, A: 0xff}
	placeholderForeground = color.White
)

// Initial returns the upper-cased first letter of name, or '?' when the
// letter cannot be drawn with the bundled face.
func Initial(name string) rune {
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(name))
	r = unicode.ToUpper(r)
	if r == utf8.RuneError || r < 0x21 || r > 0x7e {
		return '?'
	}
	return r
}

// Placeholder draws the initial of name centred on a green square of the
// given size.
func Placeholder(name string, size int) image.Image {
	if size <= 0 {
		size = 50
	}
	glyph := image.NewRGBA(image.Rect(0, 0, glyphCanvas, glyphCanvas))
	stddraw.Draw(glyph, glyph.Bounds(), image.NewUniform(placeholderBackground), image.Point{}, stddraw.Src)

	face := basicfont.Face7x13
	drawer := font.Drawer{
		Dst:  glyph,
		Src:  image.NewUniform(placeholderForeground),
		Face: face,
		Dot:  fixed.P((glyphCanvas-face.Advance)/2, (glyphCanvas-face.Height)/2+face.Ascent),
	}
	drawer.DrawString(string(Initial(name)))

	out := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.NearestNeighbor.Scale(out, out.Bounds(), glyph, glyph.Bounds(), xdraw.Src, nil)
	return out
}

func PlaceholderPNG(name string, size int) ([]byte, error) {
	return EncodePNG(Placeholder(name, size))
}

// Thumbnail decodes a png, jpeg or webp photo, crops the centred square and
// scales it to size.
func Thumbnail(raw []byte, size int) (image.Image, error) {
	if len(raw) == 0 {
		return nil, errors.New("photo is empty")
	}
	switch http.DetectContentType(raw) {
	case "image/png", "image/jpeg", "image/webp":
	default:
		return nil, errors.New("photo must be png, jpeg, or webp")
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		decoded, webpErr := webp.Decode(bytes.NewReader(raw))
		if webpErr != nil {
			return nil, errors.New("unable to decode photo")
		}
		img = decoded
	}

	bounds := img.Bounds()
	side := min(bounds.Dx(), bounds.Dy())
	if side <= 0 {
		return nil, errors.New("invalid image dimensions")
	}
	offset := image.Point{X: bounds.Min.X + (bounds.Dx()-side)/2, Y: bounds.Min.Y + (bounds.Dy()-side)/2}
	cropped := image.NewRGBA(image.Rect(0, 0, side, side))
	stddraw.Draw(cropped, cropped.Bounds(), img, offset, stddraw.Src)

	if size <= 0 {
		size = side
	}
	out := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(out, out.Bounds(), cropped, cropped.Bounds(), xdraw.Over, nil)
	return out, nil
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
