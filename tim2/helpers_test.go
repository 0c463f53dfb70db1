package tim2

import (
	"bytes"
	"encoding/binary"
)

// testFrame describes a frame for buildFile. Sizes left nil are computed from
// the payloads.
type testFrame struct {
	clutColorType  uint8
	imageColorType uint8
	width, height  uint16
	format         uint8
	clutType       uint8
	bppClass       uint8

	clut    []byte
	pixels  []byte
	mipmaps [][]byte

	headerSize *uint32
	totalSize  *uint32
	clutSize   *uint32
	imageSize  *uint32
	mipCount   *uint8
	padding    int
}

func u32(v uint32) *uint32 { return &v }

func u8(v uint8) *uint8 { return &v }

func sequence(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func orDefault(p *uint32, v int) uint32 {
	if p != nil {
		return *p
	}
	return uint32(v)
}

func (f testFrame) bytes() []byte {
	headerSize := orDefault(f.headerSize, 48)

	body := new(bytes.Buffer)
	body.Write(f.clut)
	body.Write(f.pixels)
	for _, m := range f.mipmaps {
		body.Write(m)
	}
	body.Write(make([]byte, f.padding))

	mipCount := uint8(len(f.mipmaps))
	if f.mipCount != nil {
		mipCount = *f.mipCount
	}

	b := new(bytes.Buffer)
	binary.Write(b, binary.LittleEndian, orDefault(f.totalSize, int(headerSize)+body.Len()))
	binary.Write(b, binary.LittleEndian, headerSize)
	b.WriteByte(f.clutColorType)
	b.WriteByte(f.imageColorType)
	binary.Write(b, binary.LittleEndian, f.width)
	binary.Write(b, binary.LittleEndian, f.height)
	b.WriteByte(f.format)
	b.WriteByte(mipCount)
	b.WriteByte(f.clutType)
	b.WriteByte(f.bppClass)
	binary.Write(b, binary.LittleEndian, orDefault(f.clutSize, len(f.clut)))
	binary.Write(b, binary.LittleEndian, orDefault(f.imageSize, len(f.pixels)))
	if int(headerSize) > b.Len() {
		b.Write(make([]byte, int(headerSize)-b.Len()))
	}
	b.Write(body.Bytes())

	return b.Bytes()
}

func buildFile(variant uint8, frames ...testFrame) []byte {
	b := new(bytes.Buffer)
	b.WriteString("TIM2")
	b.WriteByte(4)
	b.WriteByte(variant)
	binary.Write(b, binary.LittleEndian, uint16(len(frames)))
	b.Write(make([]byte, 8))

	if variant == uint8(Aligned128) && len(frames) > 0 {
		b.Write(make([]byte, aligned128HeaderSize-fileHeaderSize))
	}

	for _, f := range frames {
		b.Write(f.bytes())
	}

	return b.Bytes()
}

// indexed8 is a 4x4 8 bpp frame with a single 256 entry, 32-bit palette.
func indexed8() testFrame {
	return testFrame{
		clutColorType:  3,
		imageColorType: uint8(IndexedColor),
		width:          4,
		height:         4,
		clutType:       clutLinear,
		bppClass:       5,
		clut:           sequence(1024),
		pixels:         sequence(16),
	}
}

// direct32 is a 2x2 32 bpp frame.
func direct32() testFrame {
	return testFrame{
		imageColorType: uint8(DirectColor),
		width:          2,
		height:         2,
		bppClass:       3,
		pixels:         sequence(16),
	}
}
