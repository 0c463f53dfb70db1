package tim2

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/bodgit/tm2/cursor"
)

type fileHeader struct {
	version uint8
	variant Variant
	count   int
}

type frameHeader struct {
	totalSize      uint32
	headerSize     uint32
	clutColorType  uint8
	imageColorType uint8
	width          uint16
	height         uint16
	format         uint8
	mipmaps        uint8
	clutType       uint8
	bppClass       uint8
	clutSize       uint32
	imageSize      uint32
}

type decoder struct {
	c     *cursor.Cursor
	frame int // frame being decoded, -1 while in the file header
	start int // offset of the current frame
}

func (d *decoder) eof(field string, err error) error {
	return &FormatError{
		Kind:   ErrUnexpectedEOF,
		Frame:  d.frame,
		Offset: d.c.Offset(),
		Field:  field,
		Err:    err,
	}
}

func (d *decoder) invalid(off int, field, format string, args ...interface{}) error {
	return &FormatError{
		Kind:   ErrInvalidHeader,
		Frame:  d.frame,
		Offset: d.start + off,
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	}
}

func (d *decoder) readFileHeader() (fileHeader, error) {
	var h fileHeader

	sig, err := d.c.Bytes(len(magic))
	if err != nil {
		return h, d.eof("magic", err)
	}
	if string(sig) != magic {
		return h, &FormatError{
			Kind:   ErrInvalidMagic,
			Frame:  -1,
			Reason: fmt.Sprintf("%q", sig),
		}
	}

	if h.version, err = d.c.Uint8(); err != nil {
		return h, d.eof("format version", err)
	}

	variant, err := d.c.Uint8()
	if err != nil {
		return h, d.eof("format variant", err)
	}
	h.variant = Variant(variant)

	count, err := d.c.Uint16()
	if err != nil {
		return h, d.eof("frame count", err)
	}
	h.count = int(count)

	if err := d.c.Skip(fileHeaderSize - d.c.Offset()); err != nil {
		return h, d.eof("reserved", err)
	}

	switch h.variant {
	case Aligned16, Aligned128:
	default:
		return h, d.invalid(5, "format variant", "unknown variant %d", variant)
	}

	return h, nil
}

func (d *decoder) readFrameHeader() (frameHeader, error) {
	var h frameHeader

	raw, err := d.c.Bytes(frameHeaderFields)
	if err != nil {
		return h, d.eof("frame header", err)
	}

	// The fields are all in raw so none of these reads can fail
	c := cursor.New(raw)
	h.totalSize, _ = c.Uint32()
	h.headerSize, _ = c.Uint32()
	h.clutColorType, _ = c.Uint8()
	h.imageColorType, _ = c.Uint8()
	h.width, _ = c.Uint16()
	h.height, _ = c.Uint16()
	h.format, _ = c.Uint8()
	h.mipmaps, _ = c.Uint8()
	h.clutType, _ = c.Uint8()
	h.bppClass, _ = c.Uint8()
	h.clutSize, _ = c.Uint32()
	h.imageSize, _ = c.Uint32()

	return h, nil
}

// validate checks the header fields against each other and fills in the
// parts of f that derive from them.
func (d *decoder) validate(h frameHeader, f *Frame) error {
	if h.width == 0 {
		return d.invalid(offWidth, "width", "must be non-zero")
	}
	if h.height == 0 {
		return d.invalid(offHeight, "height", "must be non-zero")
	}
	if h.mipmaps > maxMipmaps {
		return d.invalid(offMipmaps, "mipmap count", "%d exceeds %d", h.mipmaps, maxMipmaps)
	}
	if h.headerSize < minFrameHeaderSize {
		return d.invalid(offHeaderSize, "header length", "%d is less than %d", h.headerSize, minFrameHeaderSize)
	}

	bpp, ok := bitsPerPixel(h.bppClass)
	if !ok {
		return d.invalid(offBppClass, "bits-per-pixel class", "unknown class %d", h.bppClass)
	}

	switch ColorType(h.imageColorType) {
	case IndexedColor:
		if bpp > 8 {
			return d.invalid(offImageColorType, "image color type", "indexed color with %d bits per pixel", bpp)
		}
	case DirectColor:
		if bpp <= 8 {
			return d.invalid(offImageColorType, "image color type", "direct color with %d bits per pixel", bpp)
		}
	default:
		return d.invalid(offImageColorType, "image color type", "unknown type %d", h.imageColorType)
	}

	switch StorageFormat(h.format) {
	case Linear, Swizzled:
	default:
		return d.invalid(offFormat, "format code", "unknown format %d", h.format)
	}

	width, height := int(h.width), int(h.height)
	if _, _, size := levelSize(width, height, bpp, 0); int64(h.imageSize) != int64(size) {
		return d.invalid(offImageSize, "image payload size", "%d bytes, want %d for %dx%d at %d bpp", h.imageSize, size, width, height, bpp)
	}

	// The CLUT is kept as raw bytes; its entry size and palette shape only
	// matter when converting pixels
	if ColorType(h.imageColorType) == IndexedColor {
		if h.clutSize == 0 {
			return d.invalid(offClutSize, "CLUT payload size", "must be non-zero for an indexed frame")
		}
	} else if h.clutSize != 0 {
		return d.invalid(offClutSize, "CLUT payload size", "%d bytes on a direct color frame", h.clutSize)
	}

	f.width, f.height = width, height
	f.bpp = bpp
	f.colorType = ColorType(h.imageColorType)
	f.format = StorageFormat(h.format)
	f.clutType = h.clutType
	if f.colorType == IndexedColor {
		f.clutColorType = h.clutColorType
	}

	return nil
}

func (d *decoder) readFrame() (*Frame, error) {
	d.start = d.c.Offset()

	h, err := d.readFrameHeader()
	if err != nil {
		return nil, err
	}

	f := new(Frame)
	if err := d.validate(h, f); err != nil {
		return nil, err
	}

	mipSizes := make([]int, h.mipmaps)
	need := uint64(h.headerSize) + uint64(h.clutSize) + uint64(h.imageSize)
	for i := range mipSizes {
		_, _, mipSizes[i] = levelSize(f.width, f.height, f.bpp, i+1)
		need += uint64(mipSizes[i])
	}

	if need > uint64(h.totalSize) {
		return nil, &FormatError{
			Kind:   ErrTruncatedFrame,
			Frame:  d.frame,
			Offset: d.start + offTotalSize,
			Field:  "total frame length",
			Reason: fmt.Sprintf("sections need %d bytes, frame declares %d", need, h.totalSize),
		}
	}
	if uint64(d.start)+uint64(h.totalSize) > uint64(d.c.Len()) {
		return nil, &FormatError{
			Kind:   ErrUnexpectedEOF,
			Frame:  d.frame,
			Offset: d.start + offTotalSize,
			Field:  "total frame length",
			Reason: fmt.Sprintf("%d bytes declared, %d remain", h.totalSize, d.c.Len()-d.start),
		}
	}

	if err := d.c.Skip(int(h.headerSize) - frameHeaderFields); err != nil {
		return nil, d.eof("header", err)
	}

	if f.colorType == IndexedColor {
		if f.clut, err = d.c.Bytes(int(h.clutSize)); err != nil {
			return nil, d.eof("CLUT payload", err)
		}
	}

	if f.pixels, err = d.c.Bytes(int(h.imageSize)); err != nil {
		return nil, d.eof("image payload", err)
	}

	f.mipmaps = make([][]byte, len(mipSizes))
	for i, size := range mipSizes {
		if f.mipmaps[i], err = d.c.Bytes(size); err != nil {
			return nil, d.eof(fmt.Sprintf("mipmap level %d", i+1), err)
		}
	}

	// Anything between the last payload and the end of the frame is skipped
	if err := d.c.Seek(d.start + int(h.totalSize)); err != nil {
		return nil, d.eof("total frame length", err)
	}

	return f, nil
}

func (d *decoder) decode(b []byte) (*Image, error) {
	d.c = cursor.New(b)
	d.frame = -1

	h, err := d.readFileHeader()
	if err != nil {
		return nil, err
	}

	m := &Image{
		version: h.version,
		variant: h.variant,
		// Every frame needs at least a header so don't trust the count
		// further than the buffer allows
		frames: make([]*Frame, 0, min(h.count, d.c.Remaining()/minFrameHeaderSize)),
	}

	if h.count > 0 {
		if err := d.c.Seek(h.variant.dataOffset()); err != nil {
			return nil, d.eof("header padding", err)
		}
	}

	for d.frame = 0; d.frame < h.count; d.frame++ {
		f, err := d.readFrame()
		if err != nil {
			return nil, err
		}
		m.frames = append(m.frames, f)
	}

	return m, nil
}

// Decode parses a complete TIM2 file held in b. The returned Image refers to
// b rather than copying the payloads out of it, so b must not be modified
// afterwards.
//
// Any structural problem fails the whole decode; the error matches one of
// ErrUnexpectedEOF, ErrInvalidMagic, ErrInvalidHeader or ErrTruncatedFrame.
func Decode(b []byte) (*Image, error) {
	var d decoder
	return d.decode(b)
}

// DecodeReader reads r to EOF and decodes the result.
func DecodeReader(r io.Reader) (*Image, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Decode(b)
}

func decodeFirst(r io.Reader) (*Image, *Frame, error) {
	m, err := DecodeReader(r)
	if err != nil {
		return nil, nil, err
	}
	if m.FrameCount() == 0 {
		return nil, nil, errNoFrames
	}
	return m, m.frames[0], nil
}

func decodeImage(r io.Reader) (image.Image, error) {
	_, f, err := decodeFirst(r)
	if err != nil {
		return nil, err
	}
	return f.Image(), nil
}

// DecodeConfig returns the color model and dimensions of the first frame of a
// TIM2 file without converting any pixels.
func DecodeConfig(r io.Reader) (image.Config, error) {
	_, f, err := decodeFirst(r)
	if err != nil {
		return image.Config{}, err
	}

	var model color.Model = color.NRGBAModel
	if f.IsIndexed() {
		model = f.palette(0)
	}

	return image.Config{
		ColorModel: model,
		Width:      f.width,
		Height:     f.height,
	}, nil
}

func init() {
	image.RegisterFormat("tim2", magic, decodeImage, DecodeConfig)
}

// Sniff reports whether b starts with the TIM2 signature.
func Sniff(b []byte) bool {
	return bytes.HasPrefix(b, []byte(magic))
}
