package tim2

import (
	"image"
	"image/color"
)

// Image converts the base level to an *image.Paletted for indexed frames or
// an *image.NRGBA for direct colour frames. Only the first palette is used
// when the CLUT holds more than one. If the CLUT doesn't hold a complete
// palette of a known colour type, a greyscale ramp is used instead.
func (f *Frame) Image() image.Image {
	return f.level(0, f.pixels)
}

// MipmapImage converts mipmap level i, where i is in [0, MipmapCount()) and
// level 0 is the first reduced level.
func (f *Frame) MipmapImage(i int) (image.Image, error) {
	if i < 0 || i >= len(f.mipmaps) {
		return nil, &IndexError{What: "mipmap", Index: i, Len: len(f.mipmaps)}
	}
	return f.level(i+1, f.mipmaps[i]), nil
}

// PaletteAt returns palette n of the CLUT, or nil if there is no such
// palette.
func (f *Frame) PaletteAt(n int) color.Palette {
	if n < 0 || n >= f.PaletteCount() {
		return nil
	}
	return f.palette(n)
}

func (f *Frame) level(level int, data []byte) image.Image {
	w, h, _ := levelSize(f.width, f.height, f.bpp, level)
	r := image.Rect(0, 0, w, h)

	if f.IsIndexed() {
		m := image.NewPaletted(r, f.palette(0))
		f.unswizzle(w, h, func(dst, src int) {
			m.Pix[dst] = index(data, f.bpp, src)
		})
		return m
	}

	m := image.NewNRGBA(r)
	size := f.bpp / 8
	f.unswizzle(w, h, func(dst, src int) {
		c := decodeColor(data[src*size : src*size+size])
		p := m.Pix[dst*4 : dst*4+4 : dst*4+4]
		p[0], p[1], p[2], p[3] = c.R, c.G, c.B, c.A
	})
	return m
}

// unswizzle calls move for every pixel with its position in the output and
// in the payload. Swizzled frames store pixels in 16x8 blocks, blocks in
// raster order; partial blocks at the edges still occupy their full size.
func (f *Frame) unswizzle(w, h int, move func(dst, src int)) {
	n := w * h

	if f.format != Swizzled {
		for i := 0; i < n; i++ {
			move(i, i)
		}
		return
	}

	src := 0
	for by := 0; by < h; by += swizzleHeight {
		for bx := 0; bx < w; bx += swizzleWidth {
			for y := by; y < by+swizzleHeight; y++ {
				for x := bx; x < bx+swizzleWidth; x++ {
					if x < w && y < h && src < n {
						move(y*w+x, src)
					}
					src++
				}
			}
		}
	}
}

// index returns palette index i from a 4 or 8 bit payload. 4 bit pixels are
// packed low nibble first.
func index(data []byte, bpp, i int) uint8 {
	if bpp == 8 {
		return data[i]
	}
	b := data[i>>1]
	if i&1 == 0 {
		return b & 0x0f
	}
	return b >> 4
}

// expandAlpha scales the GS alpha range, where 0x80 is opaque, to 0-255.
func expandAlpha(a uint8) uint8 {
	if a >= 0x80 {
		return 0xff
	}
	return uint8(uint16(a) * 0xff / 0x80)
}

func expand5(v uint16) uint8 {
	return uint8(v<<3 | v>>2)
}

// decodeColor decodes a 2, 3 or 4 byte colour.
func decodeColor(b []byte) color.NRGBA {
	switch len(b) {
	case 2:
		// Packed as ABBBBBGGGGGRRRRR
		v := uint16(b[0]) | uint16(b[1])<<8
		c := color.NRGBA{
			R: expand5(v & 0x1f),
			G: expand5(v >> 5 & 0x1f),
			B: expand5(v >> 10 & 0x1f),
		}
		if v&0x8000 != 0 {
			c.A = 0xff
		}
		return c
	case 3:
		return color.NRGBA{R: b[0], G: b[1], B: b[2], A: 0xff}
	default:
		return color.NRGBA{R: b[0], G: b[1], B: b[2], A: expandAlpha(b[3])}
	}
}

// palette decodes palette n, falling back to greyscale if the CLUT can't
// supply it.
func (f *Frame) palette(n int) color.Palette {
	entries := paletteEntries(f.bpp)
	if n < 0 || n >= f.PaletteCount() {
		return greyscale(entries)
	}

	size, _ := clutEntrySize(f.clutColorType)
	raw := f.clut[n*size*entries : (n+1)*size*entries]

	p := make(color.Palette, entries)
	for i := range p {
		p[i] = decodeColor(raw[i*size : i*size+size])
	}

	if f.bpp == 8 && f.clutType&clutLinear == 0 {
		linearize(p)
	}

	return p
}

func greyscale(n int) color.Palette {
	p := make(color.Palette, n)
	for i := range p {
		v := uint8(i * 0xff / (n - 1))
		p[i] = color.NRGBA{R: v, G: v, B: v, A: 0xff}
	}
	return p
}

// linearize reorders a CSM1 palette in place. CSM1 stores each run of 32
// colours with the second and third groups of 8 exchanged.
func linearize(p color.Palette) {
	for base := 0; base+32 <= len(p); base += 32 {
		for i := 0; i < 8; i++ {
			p[base+8+i], p[base+16+i] = p[base+16+i], p[base+8+i]
		}
	}
}
