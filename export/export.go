/*
Package export writes decoded TIM2 frames out as PNG images.

Direct colour frames can optionally be reduced to a palette of at most 256
colours using a median cut quantizer, which keeps the output small for the
16-bit textures that make up most PS2 assets.
*/
package export

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/bodgit/tm2/tim2"
	"github.com/ericpauley/go-quantize/quantize"
)

const maxColors = 256

var errColors = errors.New("export: colors must be between 2 and 256")

// Options controls how frames are written.
type Options struct {
	// Colors, if non-zero, is the maximum palette size of the output.
	// Images with more colours are quantized.
	Colors int

	// Mipmaps also writes every mipmap level.
	Mipmaps bool

	// ColorKey, if set, makes every pixel of exactly this colour fully
	// transparent. Textures commonly use pure green for this.
	ColorKey *color.NRGBA
}

func (o Options) validate() error {
	if o.Colors != 0 && (o.Colors < 2 || o.Colors > maxColors) {
		return errColors
	}
	return nil
}

// Name returns the file name used for mipmap level of frame; level 0 is the
// base image.
func Name(base string, frame, level int) string {
	if level == 0 {
		return fmt.Sprintf("%s_f%03d.png", base, frame)
	}
	return fmt.Sprintf("%s_f%03d_m%d.png", base, frame, level)
}

func matches(c color.Color, key color.NRGBA) bool {
	return color.NRGBAModel.Convert(c).(color.NRGBA) == key
}

// keyOut returns a copy of m with every pixel matching key made transparent.
// Paletted images keep their indices and have the matching palette entries
// changed instead.
func keyOut(m image.Image, key color.NRGBA) image.Image {
	if pm, ok := m.(*image.Paletted); ok {
		p := make(color.Palette, len(pm.Palette))
		for i, c := range pm.Palette {
			p[i] = c
			if matches(c, key) {
				p[i] = color.NRGBA{R: key.R, G: key.G, B: key.B}
			}
		}
		out := *pm
		out.Palette = p
		return &out
	}

	b := m.Bounds()
	out := image.NewNRGBA(b)
	draw.Draw(out, b, m, b.Min, draw.Src)
	for i := 0; i < len(out.Pix); i += 4 {
		c := color.NRGBA{R: out.Pix[i], G: out.Pix[i+1], B: out.Pix[i+2], A: out.Pix[i+3]}
		if c == key {
			out.Pix[i+3] = 0
		}
	}

	return out
}

func reduce(m image.Image, colors int) *image.Paletted {
	b := m.Bounds()

	pm, _ := m.(*image.Paletted)
	if pm != nil && len(pm.Palette) <= colors {
		return pm
	}

	q := quantize.MedianCutQuantizer{}
	pm = image.NewPaletted(b, q.Quantize(make(color.Palette, 0, colors), m))
	draw.Draw(pm, b, m, b.Min, draw.Src)

	return pm
}

// Encode writes m to w as a PNG, applying opts.ColorKey and then
// opts.Colors. m itself is not modified.
func Encode(w io.Writer, m image.Image, opts Options) error {
	if err := opts.validate(); err != nil {
		return err
	}

	if opts.ColorKey != nil {
		m = keyOut(m, *opts.ColorKey)
	}

	if opts.Colors > 0 {
		m = reduce(m, opts.Colors)
	}

	return png.Encode(w, m)
}

func writeFile(file string, m image.Image, opts Options) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}

	if err := Encode(f, m, opts); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

// Frame writes frame index of a decoded file into dir and returns the paths
// of the files written, base level first.
func Frame(dir, base string, index int, f *tim2.Frame, opts Options) ([]string, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	images := []image.Image{f.Image()}
	if opts.Mipmaps {
		for i := 0; i < f.MipmapCount(); i++ {
			m, err := f.MipmapImage(i)
			if err != nil {
				return nil, err
			}
			images = append(images, m)
		}
	}

	files := make([]string, 0, len(images))
	for level, m := range images {
		file := filepath.Join(dir, Name(base, index, level))
		if err := writeFile(file, m, opts); err != nil {
			return files, err
		}
		files = append(files, file)
	}

	return files, nil
}

// Image writes every frame of m into dir.
func Image(dir, base string, m *tim2.Image, opts Options) ([]string, error) {
	var files []string
	for i, f := range m.Frames() {
		written, err := Frame(dir, base, i, f, opts)
		files = append(files, written...)
		if err != nil {
			return files, err
		}
	}
	return files, nil
}
