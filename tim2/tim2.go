/*
Package tim2 implements a decoder for TIM2 (.tm2) texture containers as used
on the PlayStation 2.

A file is a 16 byte header followed by a number of frames. Each frame has its
own header describing its dimensions and pixel format, followed by an optional
colour lookup table (CLUT), the base image and zero or more mipmap levels.
All values are little-endian.

Decode returns the raw payloads untouched; Frame.Image converts a frame into
an image.Image, undoing the GS block swizzle and CSM1 palette ordering where
necessary. The package also registers itself with the image package so
image.Decode returns the first frame of a TIM2 file.
*/
package tim2

import "fmt"

const (
	magic = "TIM2"

	fileHeaderSize       = 16
	aligned128HeaderSize = 128

	// Fixed fields at the start of each frame header, followed by at least
	// one reserved word.
	frameHeaderFields  = 26
	minFrameHeaderSize = 28

	// Base level plus six reduced levels is all the GS can address.
	maxMipmaps = 6

	swizzleWidth  = 16
	swizzleHeight = 8

	// Bit set in the CLUT type when entries are stored linearly (CSM2).
	clutLinear = 0x80
)

// Frame header field offsets, relative to the start of the frame.
const (
	offTotalSize      = 0
	offHeaderSize     = 4
	offClutColorType  = 8
	offImageColorType = 9
	offWidth          = 10
	offHeight         = 12
	offFormat         = 14
	offMipmaps        = 15
	offClutType       = 16
	offBppClass       = 17
	offClutSize       = 18
	offImageSize      = 22
)

// Variant is the format variant stored in the file header. It selects where
// frame data starts.
type Variant uint8

// Supported variants.
const (
	Aligned16  Variant = 0
	Aligned128 Variant = 1
)

func (v Variant) String() string {
	switch v {
	case Aligned16:
		return "aligned16"
	case Aligned128:
		return "aligned128"
	}
	return fmt.Sprintf("Variant(%d)", uint8(v))
}

func (v Variant) dataOffset() int {
	if v == Aligned128 {
		return aligned128HeaderSize
	}
	return fileHeaderSize
}

// ColorType says whether pixels are palette indices or colours.
type ColorType uint8

// Image colour types.
const (
	DirectColor  ColorType = 0
	IndexedColor ColorType = 1
)

func (c ColorType) String() string {
	switch c {
	case DirectColor:
		return "direct"
	case IndexedColor:
		return "indexed"
	}
	return fmt.Sprintf("ColorType(%d)", uint8(c))
}

// StorageFormat is the pixel ordering of a frame.
type StorageFormat uint8

// Storage formats.
const (
	Linear   StorageFormat = 0
	Swizzled StorageFormat = 1
)

func (s StorageFormat) String() string {
	switch s {
	case Linear:
		return "linear"
	case Swizzled:
		return "swizzled"
	}
	return fmt.Sprintf("StorageFormat(%d)", uint8(s))
}

// bitsPerPixel maps the bits-per-pixel class byte to a depth.
func bitsPerPixel(class uint8) (int, bool) {
	switch class {
	case 1:
		return 16, true
	case 2:
		return 24, true
	case 3:
		return 32, true
	case 4:
		return 4, true
	case 5:
		return 8, true
	}
	return 0, false
}

// clutEntrySize maps the CLUT colour type to bytes per palette entry.
func clutEntrySize(typ uint8) (int, bool) {
	switch typ {
	case 1:
		return 2, true
	case 2:
		return 3, true
	case 3:
		return 4, true
	}
	return 0, false
}

// paletteEntries is the number of colours in one palette for an indexed depth.
func paletteEntries(bpp int) int {
	return 1 << uint(bpp)
}

// levelSize returns the dimensions and byte size of a mipmap level, level 0
// being the base image. Dimensions halve per level but never drop below one
// pixel.
func levelSize(width, height, bpp, level int) (int, int, int) {
	w := max(1, width>>uint(level))
	h := max(1, height>>uint(level))
	return w, h, (w*h*bpp + 7) / 8
}
