package tim2

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/bodgit/tm2/cursor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEmpty(t *testing.T) {
	for _, variant := range []uint8{uint8(Aligned16), uint8(Aligned128)} {
		b := buildFile(variant)
		require.Len(t, b, fileHeaderSize)

		m, err := Decode(b)
		require.NoError(t, err)
		assert.Equal(t, 0, m.FrameCount())
		assert.Empty(t, m.Frames())
		assert.Equal(t, uint8(4), m.Version())
		assert.Equal(t, Variant(variant), m.Variant())
	}
}

func TestDecodeIndexed(t *testing.T) {
	m, err := Decode(buildFile(0, indexed8()))
	require.NoError(t, err)
	require.Equal(t, 1, m.FrameCount())

	f, err := m.Frame(0)
	require.NoError(t, err)

	assert.Equal(t, 4, f.Width())
	assert.Equal(t, 4, f.Height())
	assert.Equal(t, 8, f.BitsPerPixel())
	assert.True(t, f.IsIndexed())
	assert.Equal(t, IndexedColor, f.ImageColorType())
	assert.Equal(t, Linear, f.Format())
	assert.Equal(t, uint8(3), f.ClutColorType())
	assert.Equal(t, uint8(clutLinear), f.ClutType())
	assert.Len(t, f.PixelData(), 16)
	assert.Len(t, f.PaletteData(), 1024)
	assert.Equal(t, sequence(1024), f.PaletteData())
	assert.Equal(t, 1, f.PaletteCount())
	assert.Empty(t, f.MipmapLevels())
}

func TestDecodeMultiplePalettes(t *testing.T) {
	tf := indexed8()
	tf.bppClass = 4
	tf.clutColorType = 1
	tf.pixels = sequence(8)
	tf.clut = sequence(3 * 16 * 2)

	m, err := Decode(buildFile(0, tf))
	require.NoError(t, err)

	f, err := m.Frame(0)
	require.NoError(t, err)
	assert.Equal(t, 4, f.BitsPerPixel())
	assert.Equal(t, 3, f.PaletteCount())
	assert.Len(t, f.PaletteAt(2), 16)
	assert.Nil(t, f.PaletteAt(3))
}

func TestDecodeLooseClut(t *testing.T) {
	tables := []struct {
		name          string
		clutColorType uint8
		clut          []byte
		palettes      int
	}{
		{
			name:          "unknown color type",
			clutColorType: 0,
			clut:          sequence(1024),
			palettes:      0,
		},
		{
			name:          "reserved color type",
			clutColorType: 7,
			clut:          sequence(1024),
			palettes:      0,
		},
		{
			name:          "partial palette",
			clutColorType: 3,
			clut:          sequence(1000),
			palettes:      0,
		},
		{
			name:          "trailing bytes",
			clutColorType: 3,
			clut:          sequence(1024 + 100),
			palettes:      1,
		},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			tf := indexed8()
			tf.clutColorType = table.clutColorType
			tf.clut = table.clut

			m, err := Decode(buildFile(0, tf))
			require.NoError(t, err)

			f, err := m.Frame(0)
			require.NoError(t, err)
			assert.Equal(t, table.clutColorType, f.ClutColorType())
			assert.Equal(t, table.clut, f.PaletteData())
			assert.Equal(t, table.palettes, f.PaletteCount())

			p, ok := f.Image().(*image.Paletted)
			require.True(t, ok)
			assert.Len(t, p.Palette, 256)
			if table.palettes == 0 {
				assert.Nil(t, f.PaletteAt(0))
				assert.Equal(t, color.NRGBA{R: 5, G: 5, B: 5, A: 0xff}, p.At(1, 1))
			}
		})
	}
}

func TestDecodeDirect(t *testing.T) {
	m, err := Decode(buildFile(0, direct32()))
	require.NoError(t, err)

	f, err := m.Frame(0)
	require.NoError(t, err)
	assert.False(t, f.IsIndexed())
	assert.Nil(t, f.PaletteData())
	assert.Equal(t, 0, f.PaletteCount())
	assert.Equal(t, 32, f.BitsPerPixel())
	assert.Equal(t, sequence(16), f.PixelData())
}

func TestPixelDataLength(t *testing.T) {
	tables := []struct {
		class uint8
		bpp   int
		w, h  uint16
	}{
		{1, 16, 3, 5},
		{2, 24, 7, 1},
		{3, 32, 2, 9},
		{4, 4, 3, 3},
		{5, 8, 5, 2},
	}

	for _, table := range tables {
		size := (int(table.w)*int(table.h)*table.bpp + 7) / 8
		tf := testFrame{
			imageColorType: uint8(DirectColor),
			width:          table.w,
			height:         table.h,
			bppClass:       table.class,
			pixels:         make([]byte, size),
		}
		if table.bpp <= 8 {
			tf.imageColorType = uint8(IndexedColor)
			tf.clutColorType = 2
			tf.clut = make([]byte, 3*paletteEntries(table.bpp))
		}

		m, err := Decode(buildFile(0, tf))
		require.NoError(t, err)
		f, _ := m.Frame(0)
		assert.Equal(t, table.bpp, f.BitsPerPixel())
		assert.Len(t, f.PixelData(), size)
	}
}

func TestDecodeMipmaps(t *testing.T) {
	tf := testFrame{
		imageColorType: uint8(DirectColor),
		width:          64,
		height:         64,
		bppClass:       3,
		pixels:         make([]byte, 64*64*4),
		mipmaps: [][]byte{
			bytes.Repeat([]byte{1}, 32*32*4),
			bytes.Repeat([]byte{2}, 16*16*4),
			bytes.Repeat([]byte{3}, 8*8*4),
		},
	}

	m, err := Decode(buildFile(0, tf))
	require.NoError(t, err)

	f, _ := m.Frame(0)
	require.Equal(t, 3, f.MipmapCount())

	levels := f.MipmapLevels()
	require.Len(t, levels, 3)
	for i, want := range []int{32 * 32 * 4, 16 * 16 * 4, 8 * 8 * 4} {
		assert.Len(t, levels[i], want)
		assert.Equal(t, byte(i+1), levels[i][0])
	}

	w, h := f.LevelSize(3)
	assert.Equal(t, 8, w)
	assert.Equal(t, 8, h)
}

func TestDecodeMipmapFloor(t *testing.T) {
	tf := indexed8()
	tf.width, tf.height = 2, 1
	tf.bppClass = 4
	tf.clutColorType = 1
	tf.clut = make([]byte, 32)
	tf.pixels = []byte{0x21}
	tf.mipmaps = [][]byte{{0x03}, {0x04}}

	m, err := Decode(buildFile(0, tf))
	require.NoError(t, err)

	f, _ := m.Frame(0)
	assert.Equal(t, [][]byte{{0x03}, {0x04}}, f.MipmapLevels())
}

func TestDecodeFrameBoundary(t *testing.T) {
	first := direct32()
	first.padding = 13
	first.headerSize = u32(64)
	second := indexed8()

	m, err := Decode(buildFile(0, first, second))
	require.NoError(t, err)
	require.Equal(t, 2, m.FrameCount())

	frames := m.Frames()
	assert.Equal(t, sequence(16), frames[0].PixelData())
	assert.Equal(t, sequence(1024), frames[1].PaletteData())
	assert.Equal(t, sequence(16), frames[1].PixelData())
}

func TestDecodeAligned128(t *testing.T) {
	m, err := Decode(buildFile(uint8(Aligned128), direct32()))
	require.NoError(t, err)
	assert.Equal(t, Aligned128, m.Variant())

	f, _ := m.Frame(0)
	assert.Equal(t, sequence(16), f.PixelData())
}

func TestFramesIsCopy(t *testing.T) {
	m, err := Decode(buildFile(0, direct32()))
	require.NoError(t, err)

	frames := m.Frames()
	frames[0] = nil

	f, err := m.Frame(0)
	require.NoError(t, err)
	assert.NotNil(t, f)
}

func TestFrameIndexOutOfRange(t *testing.T) {
	m, err := Decode(buildFile(0, direct32(), indexed8()))
	require.NoError(t, err)
	require.Equal(t, 2, m.FrameCount())

	for _, i := range []int{-1, 2, 5} {
		_, err := m.Frame(i)
		assert.True(t, errors.Is(err, ErrIndexOutOfRange), i)

		var ie *IndexError
		require.True(t, errors.As(err, &ie))
		assert.Equal(t, i, ie.Index)
		assert.Equal(t, 2, ie.Len)
	}
}

func TestDecodeDeterministic(t *testing.T) {
	b := buildFile(0, direct32(), indexed8())

	m1, err := Decode(b)
	require.NoError(t, err)
	m2, err := Decode(append([]byte(nil), b...))
	require.NoError(t, err)

	assert.Equal(t, m1, m2)
}

func TestDecodeErrors(t *testing.T) {
	tables := []struct {
		name  string
		input func() []byte
		kind  error
		field string
	}{
		{
			name:  "empty",
			input: func() []byte { return nil },
			kind:  ErrUnexpectedEOF,
			field: "magic",
		},
		{
			name:  "short file header",
			input: func() []byte { return buildFile(0)[:10] },
			kind:  ErrUnexpectedEOF,
			field: "reserved",
		},
		{
			name: "bad magic",
			input: func() []byte {
				b := buildFile(0, direct32())
				copy(b, "TIM3")
				return b
			},
			kind: ErrInvalidMagic,
		},
		{
			name: "unknown variant",
			input: func() []byte {
				return buildFile(7)
			},
			kind:  ErrInvalidHeader,
			field: "format variant",
		},
		{
			name: "missing frame",
			input: func() []byte {
				b := buildFile(0, direct32())
				return b[:fileHeaderSize]
			},
			kind:  ErrUnexpectedEOF,
			field: "frame header",
		},
		{
			name: "missing aligned128 padding",
			input: func() []byte {
				return buildFile(uint8(Aligned128), direct32())[:100]
			},
			kind:  ErrUnexpectedEOF,
			field: "header padding",
		},
		{
			name: "zero width",
			input: func() []byte {
				f := direct32()
				f.width = 0
				return buildFile(0, f)
			},
			kind:  ErrInvalidHeader,
			field: "width",
		},
		{
			name: "zero height",
			input: func() []byte {
				f := direct32()
				f.height = 0
				return buildFile(0, f)
			},
			kind:  ErrInvalidHeader,
			field: "height",
		},
		{
			name: "too many mipmaps",
			input: func() []byte {
				f := direct32()
				f.mipCount = u8(maxMipmaps + 1)
				return buildFile(0, f)
			},
			kind:  ErrInvalidHeader,
			field: "mipmap count",
		},
		{
			name: "short header length",
			input: func() []byte {
				f := direct32()
				f.headerSize = u32(minFrameHeaderSize - 1)
				return buildFile(0, f)
			},
			kind:  ErrInvalidHeader,
			field: "header length",
		},
		{
			name: "unknown bpp class",
			input: func() []byte {
				f := direct32()
				f.bppClass = 6
				return buildFile(0, f)
			},
			kind:  ErrInvalidHeader,
			field: "bits-per-pixel class",
		},
		{
			name: "indexed true color",
			input: func() []byte {
				f := direct32()
				f.imageColorType = uint8(IndexedColor)
				f.clutColorType = 3
				f.clut = make([]byte, 1024)
				return buildFile(0, f)
			},
			kind:  ErrInvalidHeader,
			field: "image color type",
		},
		{
			name: "direct paletted",
			input: func() []byte {
				f := indexed8()
				f.imageColorType = uint8(DirectColor)
				return buildFile(0, f)
			},
			kind:  ErrInvalidHeader,
			field: "image color type",
		},
		{
			name: "unknown color type",
			input: func() []byte {
				f := direct32()
				f.imageColorType = 9
				return buildFile(0, f)
			},
			kind:  ErrInvalidHeader,
			field: "image color type",
		},
		{
			name: "unknown format",
			input: func() []byte {
				f := direct32()
				f.format = 2
				return buildFile(0, f)
			},
			kind:  ErrInvalidHeader,
			field: "format code",
		},
		{
			name: "oversized payload",
			input: func() []byte {
				f := direct32()
				f.pixels = sequence(20)
				return buildFile(0, f)
			},
			kind:  ErrInvalidHeader,
			field: "image payload size",
		},
		{
			name: "undersized payload",
			input: func() []byte {
				f := direct32()
				f.pixels = sequence(12)
				return buildFile(0, f)
			},
			kind:  ErrInvalidHeader,
			field: "image payload size",
		},
		{
			name: "missing CLUT",
			input: func() []byte {
				f := indexed8()
				f.clut = nil
				return buildFile(0, f)
			},
			kind:  ErrInvalidHeader,
			field: "CLUT payload size",
		},
		{
			name: "direct with CLUT",
			input: func() []byte {
				f := direct32()
				f.clut = sequence(64)
				return buildFile(0, f)
			},
			kind:  ErrInvalidHeader,
			field: "CLUT payload size",
		},
		{
			name: "sections overrun frame",
			input: func() []byte {
				f := indexed8()
				f.totalSize = u32(48 + 1024)
				return buildFile(0, f)
			},
			kind:  ErrTruncatedFrame,
			field: "total frame length",
		},
		{
			name: "header overruns frame",
			input: func() []byte {
				f := direct32()
				f.totalSize = u32(40)
				f.pixels = nil
				f.imageSize = u32(16)
				return buildFile(0, f)
			},
			kind:  ErrTruncatedFrame,
			field: "total frame length",
		},
		{
			name: "frame beyond buffer",
			input: func() []byte {
				f := direct32()
				f.totalSize = u32(1 << 31)
				return buildFile(0, f)
			},
			kind:  ErrUnexpectedEOF,
			field: "total frame length",
		},
		{
			name: "bad second frame",
			input: func() []byte {
				f := indexed8()
				f.width = 0
				return buildFile(0, direct32(), f)
			},
			kind:  ErrInvalidHeader,
			field: "width",
		},
	}

	kinds := []error{ErrUnexpectedEOF, ErrInvalidMagic, ErrInvalidHeader, ErrTruncatedFrame, ErrIndexOutOfRange}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			m, err := Decode(table.input())
			require.Error(t, err)
			assert.Nil(t, m)

			for _, kind := range kinds {
				assert.Equal(t, kind == table.kind, errors.Is(err, kind), kind.Error())
			}

			var fe *FormatError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, table.field, fe.Field)
			assert.Contains(t, err.Error(), table.field)
		})
	}
}

func TestErrorContext(t *testing.T) {
	f := indexed8()
	f.height = 0
	b := buildFile(0, direct32(), f)

	_, err := Decode(b)
	require.Error(t, err)

	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 1, fe.Frame)
	assert.Equal(t, fileHeaderSize+len(direct32().bytes())+offHeight, fe.Offset)
	assert.Equal(t, "tim2: invalid header: frame 1 at offset 92: height: must be non-zero", err.Error())
}

func TestEOFUnwrapsCursorError(t *testing.T) {
	_, err := Decode([]byte("TI"))
	assert.True(t, errors.Is(err, ErrUnexpectedEOF))
	assert.True(t, errors.Is(err, cursor.ErrUnexpectedEOF))
}

func TestDecodeTruncated(t *testing.T) {
	b := buildFile(0, indexed8(), direct32())

	for n := 0; n < len(b); n++ {
		m, err := Decode(b[:n])
		require.Error(t, err, n)
		assert.Nil(t, m)
		assert.True(t, errors.Is(err, ErrUnexpectedEOF) || errors.Is(err, ErrTruncatedFrame), "%d: %v", n, err)
	}
}

func TestDecodeCorruptMagic(t *testing.T) {
	valid := buildFile(0, indexed8())

	for i := 0; i < len(magic); i++ {
		b := append([]byte(nil), valid...)
		b[i] ^= 0xff

		_, err := Decode(b)
		assert.True(t, errors.Is(err, ErrInvalidMagic), i)
	}
}

func TestDecodeReader(t *testing.T) {
	m, err := DecodeReader(bytes.NewReader(buildFile(0, indexed8())))
	require.NoError(t, err)
	assert.Equal(t, 1, m.FrameCount())
}

func TestRegisteredFormat(t *testing.T) {
	m, format, err := image.Decode(bytes.NewReader(buildFile(0, indexed8())))
	require.NoError(t, err)
	assert.Equal(t, "tim2", format)
	assert.IsType(t, &image.Paletted{}, m)
	assert.Equal(t, image.Rect(0, 0, 4, 4), m.Bounds())

	cfg, format, err := image.DecodeConfig(bytes.NewReader(buildFile(0, direct32())))
	require.NoError(t, err)
	assert.Equal(t, "tim2", format)
	assert.Equal(t, 2, cfg.Width)
	assert.Equal(t, 2, cfg.Height)
	assert.Equal(t, color.NRGBAModel, cfg.ColorModel)

	cfg, _, err = image.DecodeConfig(bytes.NewReader(buildFile(0, indexed8())))
	require.NoError(t, err)
	assert.Len(t, cfg.ColorModel, 256)

	_, _, err = image.Decode(bytes.NewReader(buildFile(0)))
	assert.Equal(t, errNoFrames, err)
}

func TestSniff(t *testing.T) {
	assert.True(t, Sniff(buildFile(0)))
	assert.False(t, Sniff([]byte("TIM")))
	assert.False(t, Sniff([]byte("\x89PNG")))
}
