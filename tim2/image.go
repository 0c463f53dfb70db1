package tim2

// Image is a decoded TIM2 file. It is never modified after Decode returns it
// and is safe for concurrent use.
type Image struct {
	version uint8
	variant Variant
	frames  []*Frame
}

// Version returns the format version from the file header.
func (m *Image) Version() uint8 { return m.version }

// Variant returns the format variant from the file header.
func (m *Image) Variant() Variant { return m.variant }

// FrameCount returns the number of frames, which always equals the count
// declared in the file header.
func (m *Image) FrameCount() int { return len(m.frames) }

// Frame returns frame i. It fails with an error matching ErrIndexOutOfRange
// if i is not in [0, FrameCount()).
func (m *Image) Frame(i int) (*Frame, error) {
	if i < 0 || i >= len(m.frames) {
		return nil, &IndexError{What: "frame", Index: i, Len: len(m.frames)}
	}
	return m.frames[i], nil
}

// Frames returns all frames in file order. The returned slice is a copy.
func (m *Image) Frames() []*Frame {
	return append([]*Frame(nil), m.frames...)
}

// Frame is a single texture inside a TIM2 file. The byte slices returned by
// its accessors alias the buffer passed to Decode and must not be modified.
type Frame struct {
	width, height int
	bpp           int
	colorType     ColorType
	format        StorageFormat
	clutColorType uint8
	clutType      uint8

	pixels  []byte
	clut    []byte
	mipmaps [][]byte
}

// Width returns the width of the base level in pixels.
func (f *Frame) Width() int { return f.width }

// Height returns the height of the base level in pixels.
func (f *Frame) Height() int { return f.height }

// BitsPerPixel returns 4, 8, 16, 24 or 32.
func (f *Frame) BitsPerPixel() int { return f.bpp }

// IsIndexed reports whether pixels are palette indices.
func (f *Frame) IsIndexed() bool { return f.colorType == IndexedColor }

// ImageColorType returns the image colour type.
func (f *Frame) ImageColorType() ColorType { return f.colorType }

// Format returns the pixel storage order.
func (f *Frame) Format() StorageFormat { return f.format }

// ClutColorType returns the raw CLUT colour type; zero for direct colour
// frames.
func (f *Frame) ClutColorType() uint8 { return f.clutColorType }

// ClutType returns the raw CLUT type flags.
func (f *Frame) ClutType() uint8 { return f.clutType }

// MipmapCount returns the number of reduced levels after the base level.
func (f *Frame) MipmapCount() int { return len(f.mipmaps) }

// PixelData returns the base level payload.
func (f *Frame) PixelData() []byte { return f.pixels }

// PaletteData returns the CLUT payload in file order, or nil for direct
// colour frames.
func (f *Frame) PaletteData() []byte { return f.clut }

// PaletteCount returns the number of complete palettes in the CLUT. It is
// zero for direct colour frames and for an unknown CLUT colour type; trailing
// bytes that don't fill a palette are not counted.
func (f *Frame) PaletteCount() int {
	if !f.IsIndexed() {
		return 0
	}
	size, ok := clutEntrySize(f.clutColorType)
	if !ok {
		return 0
	}
	return len(f.clut) / (size * paletteEntries(f.bpp))
}

// MipmapLevels returns the reduced levels, largest first.
func (f *Frame) MipmapLevels() [][]byte {
	return append([][]byte(nil), f.mipmaps...)
}

// LevelSize returns the dimensions of mipmap level (zero being the base
// level).
func (f *Frame) LevelSize(level int) (int, int) {
	w, h, _ := levelSize(f.width, f.height, f.bpp, level)
	return w, h
}
