package compiler

import "github.com/mna/corvid/lang/token"

// SrcLocEncoder builds the variable-length instruction-index → source
// position stream described in the reference implementation's
// src_loc.c: a 1-byte col-only delta, a 2-byte (line-delta, col-delta)
// pair, or a 7-byte absolute (col, line, file) record, chosen by the same
// get_encoded_delta / fh_encode_src_loc_change rules.
//
// Record layout, dispatched on the leading byte's top two bits:
//   0b0xxxxxxx        1 byte:  col-delta only, biased by +63
//   0b10xxxxxx xxxxxxxx   2 bytes: line-delta (7 bits, split across both
//                         bytes) and col-delta (7 bits), both biased +63
//   0b11000000 ...    7 bytes: absolute (col, line, file), three
//                         little-endian uint16 values
type SrcLocEncoder struct {
	buf      []byte
	haveLast bool
	lastFile token.FileID
	lastLine uint32
	lastCol  uint32
}

// NewSrcLocEncoder returns an empty encoder.
func NewSrcLocEncoder() *SrcLocEncoder { return &SrcLocEncoder{} }

// Bytes returns the encoded stream so far.
func (e *SrcLocEncoder) Bytes() []byte { return e.buf }

// bias shifts a delta in [-63, 64] into the unsigned range [0, 127].
const bias = 63

const absoluteMarker = 0xc0

// biasedDelta computes new-old, biased, reporting whether it fits the
// representable [-63, 64] range.
func biasedDelta(old, new uint32) (uint8, bool) {
	d := int64(new) - int64(old)
	if d < -bias || d > bias+1 {
		return 0, false
	}
	return uint8(d + bias), true
}

// Encode appends a record mapping the next instruction to pos.
func (e *SrcLocEncoder) Encode(pos token.Pos) {
	if !e.haveLast || pos.File != e.lastFile {
		e.encodeAbsolute(pos)
		return
	}
	biasedLine, lineOK := biasedDelta(e.lastLine, pos.Line)
	biasedCol, colOK := biasedDelta(e.lastCol, pos.Col)
	if !lineOK || !colOK {
		e.encodeAbsolute(pos)
		return
	}
	if biasedLine != bias {
		b0 := 0x80 | (biasedLine >> 1)
		b1 := (biasedLine&1)<<7 | biasedCol
		e.buf = append(e.buf, b0, b1)
	} else {
		e.buf = append(e.buf, biasedCol)
	}
	e.setLast(pos)
}

func (e *SrcLocEncoder) encodeAbsolute(pos token.Pos) {
	e.buf = append(e.buf, absoluteMarker,
		byte(pos.Col), byte(pos.Col>>8),
		byte(pos.Line), byte(pos.Line>>8),
		byte(pos.File), byte(pos.File>>8),
	)
	e.setLast(pos)
}

func (e *SrcLocEncoder) setLast(pos token.Pos) {
	e.haveLast = true
	e.lastFile = pos.File
	e.lastLine = pos.Line
	e.lastCol = pos.Col
}

// SrcLocDecoder reads back the stream produced by SrcLocEncoder.
type SrcLocDecoder struct {
	data []byte
	off  int
	file token.FileID
	line uint32
	col  uint32
}

// NewSrcLocDecoder returns a decoder over an encoded stream.
func NewSrcLocDecoder(data []byte) *SrcLocDecoder {
	return &SrcLocDecoder{data: data}
}

// Next decodes the next record and returns the resulting position. It
// returns false once the stream is exhausted.
func (d *SrcLocDecoder) Next() (token.Pos, bool) {
	if d.off >= len(d.data) {
		return token.Pos{}, false
	}
	b0 := d.data[d.off]
	switch {
	case b0&0xc0 == 0xc0:
		col := uint32(d.data[d.off+1]) | uint32(d.data[d.off+2])<<8
		line := uint32(d.data[d.off+3]) | uint32(d.data[d.off+4])<<8
		file := uint16(d.data[d.off+5]) | uint16(d.data[d.off+6])<<8
		d.off += 7
		d.col, d.line, d.file = col, line, token.FileID(file)
	case b0&0x80 != 0:
		b1 := d.data[d.off+1]
		biasedLine := uint32(b0&0x3f)<<1 | uint32(b1>>7)
		biasedCol := uint32(b1 & 0x7f)
		d.off += 2
		d.line = uint32(int64(d.line) + int64(biasedLine) - bias)
		d.col = uint32(int64(d.col) + int64(biasedCol) - bias)
	default:
		biasedCol := uint32(b0)
		d.off++
		d.col = uint32(int64(d.col) + int64(biasedCol) - bias)
	}
	return token.Pos{File: d.file, Line: d.line, Col: d.col}, true
}
