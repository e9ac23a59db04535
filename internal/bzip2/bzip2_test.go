package bzip2

import (
	"bytes"
	"io"
	"testing"
)

// canonicalCode is one entry of a hand-built canonical Huffman encoding,
// the write-side mirror of buildHuffmanGroup/huffmanGroup.decode.
type canonicalCode struct {
	code uint32
	len  uint
}

// canonicalCodes assigns codewords to symbols the same way
// buildHuffmanGroup orders them (permute: ascending length, then
// ascending symbol index), using the textbook canonical-Huffman
// numbering: codes increment within a length and are left-shifted by
// one bit whenever the length grows.
func canonicalCodes(lengths []uint8) map[uint16]canonicalCode {
	minLen, maxLen := lengths[0], lengths[0]
	for _, l := range lengths[1:] {
		if l < minLen {
			minLen = l
		}
		if l > maxLen {
			maxLen = l
		}
	}
	var order []uint16
	for length := minLen; length <= maxLen; length++ {
		for sym, l := range lengths {
			if l == length {
				order = append(order, uint16(sym))
			}
		}
	}
	codes := make(map[uint16]canonicalCode, len(lengths))
	code := uint32(0)
	prevLen := minLen
	for _, sym := range order {
		l := lengths[sym]
		if l > prevLen {
			code <<= uint(l - prevLen)
			prevLen = l
		}
		codes[sym] = canonicalCode{code: code, len: uint(l)}
		code++
	}
	return codes
}

// writeHuffmanLengthTable emits one group's delta-coded length table,
// the write-side mirror of blockHeader.readHuffmanGroups's inner loop.
func writeHuffmanLengthTable(w *bitWriter, lengths []uint8) {
	l := int(lengths[0])
	w.writeBits(uint32(l), 5)
	for _, target := range lengths {
		for l != int(target) {
			w.writeBit(true)
			if int(target) < l {
				w.writeBit(true)
				l--
			} else {
				w.writeBit(false)
				l++
			}
		}
		w.writeBit(false)
	}
}

// writeSymbolMap emits the 16-bit segment mask and per-segment 16-bit
// sub-masks for the given sorted, distinct byte values, the write-side
// mirror of blockHeader.readSymbolMap.
func writeSymbolMap(w *bitWriter, present []byte) {
	var segs [16]uint16
	var segPresent uint16
	for _, b := range present {
		seg := b / 16
		j := uint(b % 16)
		segs[seg] |= 1 << (15 - j)
		segPresent |= 1 << (15 - uint(seg))
	}
	w.writeBits(uint32(segPresent), 16)
	for seg := 0; seg < 16; seg++ {
		if segPresent&(1<<(15-uint(seg))) == 0 {
			continue
		}
		w.writeBits(uint32(segs[seg]), 16)
	}
}

// writeSelectors emits nSelectors MTF-coded group indices, the
// write-side mirror of blockHeader.readSelectors.
func writeSelectors(w *bitWriter, groupCount int, selectors []uint8) {
	list := make([]uint8, groupCount)
	for i := range list {
		list[i] = uint8(i)
	}
	for _, sel := range selectors {
		pos := -1
		for i, v := range list {
			if v == sel {
				pos = i
				break
			}
		}
		for i := 0; i < pos; i++ {
			w.writeBit(true)
		}
		w.writeBit(false)
		copy(list[1:pos+1], list[0:pos])
		list[0] = sel
	}
}

// TestDecoderSingleBlockRoundTrip hand-assembles a minimal one-block
// bzip2 stream whose BWT-ordered data is "aaaa\x06" (origPtr 4), which
// RLE1-expands to ten 'a' bytes, and checks the full pipeline
// (header parsing, Huffman/MTF/RLE2 symbol decode, IBWT, RLE1
// re-expansion, CRC verification) reproduces them.
func TestDecoderSingleBlockRoundTrip(t *testing.T) {
	want := bytes.Repeat([]byte("a"), 10)

	crc := uint32(0xffffffff)
	for _, b := range want {
		crc = updateCRC(crc, b)
	}
	crc = ^crc

	// Alphabet: distinct bytes in the BWT output, ascending: 0x06, 'a'.
	// Symbols: 0=RUNA, 1=RUNB, 2=literal(MTF pos 1), 3=EOB.
	lengths := []uint8{1, 3, 2, 3}
	codes := canonicalCodes(lengths)

	w := &bitWriter{}

	// Stream header: "BZh1".
	w.writeBits(0x425a68, 24)
	w.writeBits('1', 8)

	// Block magic.
	w.writeBits(blockMagicHi, 24)
	w.writeBits(blockMagicLo, 24)

	w.writeBits(crc, 32)
	w.writeBit(false) // not randomized
	w.writeBits(4, 24) // origPtr

	writeSymbolMap(w, []byte{0x06, 'a'})

	w.writeBits(2, 3)  // groupCount
	w.writeBits(1, 15) // nSelectors
	writeSelectors(w, 2, []uint8{0})

	writeHuffmanLengthTable(w, lengths)
	writeHuffmanLengthTable(w, lengths) // second group, unused but must parse

	writeSym := func(sym uint16) {
		c := codes[sym]
		w.writeBits(c.code, c.len)
	}
	writeSym(2) // literal: MTF pos 1 -> 'a'
	writeSym(0) // RUNA
	writeSym(0) // RUNA (run length 3 total -> three more 'a's)
	writeSym(2) // literal: MTF pos 1 -> now 0x06
	writeSym(3) // EOB

	// End-of-stream marker.
	w.writeBits(eosMagicHi, 24)
	w.writeBits(eosMagicLo, 24)
	w.writeBits(crc, 32) // single-block stream: trailer == block CRC

	dec, err := NewDecoder(bytes.NewReader(w.bytes()))
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	got, err := io.ReadAll(dec)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

// TestDecoderRejectsBadMagic checks that a stream without the "BZh"
// signature is reported as not-bzip2 data.
func TestDecoderRejectsBadMagic(t *testing.T) {
	_, err := NewDecoder(bytes.NewReader([]byte("not a bzip2 stream at all!!")))
	if err != ErrNotBzipData {
		t.Fatalf("got %v, want ErrNotBzipData", err)
	}
}

// TestDecoderRejectsBadDigit checks that a stream size digit outside
// '1'..'9' is rejected.
func TestDecoderRejectsBadDigit(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(0x425a68, 24)
	w.writeBits('0', 8)
	_, err := NewDecoder(bytes.NewReader(w.bytes()))
	if err != ErrNotBzipData {
		t.Fatalf("got %v, want ErrNotBzipData", err)
	}
}

// TestDecoderTruncatedInput checks that running out of bytes mid-header
// surfaces as an unexpected-EOF error rather than a panic or silent
// zero value.
func TestDecoderTruncatedInput(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(0x425a68, 24)
	w.writeBits('1', 8)
	w.writeBits(blockMagicHi, 24)
	// Truncate before blockMagicLo and the rest of the header.
	dec, err := NewDecoder(bytes.NewReader(w.bytes()))
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	_, err = io.ReadAll(dec)
	if err != ErrUnexpectedInputEOF {
		t.Fatalf("got %v, want ErrUnexpectedInputEOF", err)
	}
}

// TestDecoderEmptyInput checks that an empty source is reported as an
// unexpected EOF rather than a panic.
func TestDecoderEmptyInput(t *testing.T) {
	_, err := NewDecoder(bytes.NewReader(nil))
	if err != ErrUnexpectedInputEOF {
		t.Fatalf("got %v, want ErrUnexpectedInputEOF", err)
	}
}

// TestDecoderRejectsRandomized checks the obsolete randomized-block
// flag is rejected rather than silently mis-decoded.
func TestDecoderRejectsRandomized(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(0x425a68, 24)
	w.writeBits('1', 8)
	w.writeBits(blockMagicHi, 24)
	w.writeBits(blockMagicLo, 24)
	w.writeBits(0, 32) // crc, irrelevant
	w.writeBit(true)   // randomized = true
	dec, err := NewDecoder(bytes.NewReader(w.bytes()))
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	_, err = io.ReadAll(dec)
	if err != ErrObsoleteInput {
		t.Fatalf("got %v, want ErrObsoleteInput", err)
	}
}

// TestDecoderBlockCRCMismatch flips one bit of the declared block CRC
// and checks the mismatch is caught rather than silently accepted.
func TestDecoderBlockCRCMismatch(t *testing.T) {
	want := bytes.Repeat([]byte("a"), 10)
	crc := uint32(0xffffffff)
	for _, b := range want {
		crc = updateCRC(crc, b)
	}
	crc = ^crc
	badCRC := crc ^ 1

	lengths := []uint8{1, 3, 2, 3}
	codes := canonicalCodes(lengths)

	w := &bitWriter{}
	w.writeBits(0x425a68, 24)
	w.writeBits('1', 8)
	w.writeBits(blockMagicHi, 24)
	w.writeBits(blockMagicLo, 24)
	w.writeBits(badCRC, 32)
	w.writeBit(false)
	w.writeBits(4, 24)
	writeSymbolMap(w, []byte{0x06, 'a'})
	w.writeBits(2, 3)
	w.writeBits(1, 15)
	writeSelectors(w, 2, []uint8{0})
	writeHuffmanLengthTable(w, lengths)
	writeHuffmanLengthTable(w, lengths)
	for _, sym := range []uint16{2, 0, 0, 2, 3} {
		c := codes[sym]
		w.writeBits(c.code, c.len)
	}
	w.writeBits(eosMagicHi, 24)
	w.writeBits(eosMagicLo, 24)
	w.writeBits(crc, 32)

	dec, err := NewDecoder(bytes.NewReader(w.bytes()))
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	_, err = io.ReadAll(dec)
	if err == nil {
		t.Fatal("expected a CRC mismatch error, got nil")
	}
	derr, ok := asError(err)
	if !ok || derr.Code != DataErrorCode {
		t.Fatalf("got %v, want a DataErrorCode error", err)
	}
}
