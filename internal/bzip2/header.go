package bzip2

// Stream and block magic numbers, per §4.2 and §6.
const (
	streamMagicBZh = 0x425a68 // "BZh", the digit following is read separately
	blockMagicHi   = 0x314159
	blockMagicLo   = 0x265359
	eosMagicHi     = 0x177245
	eosMagicLo     = 0x385090
)

// parseStreamHeader reads and validates the 32-bit stream header
// ("BZh" + digit) and returns blockSize100k, per §4.2.
func parseStreamHeader(br *bitReader) (int, error) {
	magic, err := br.getBits(32)
	if err != nil {
		return 0, err
	}
	hi := magic >> 8
	digit := magic & 0xff
	if hi != streamMagicBZh || digit < '1' || digit > '9' {
		return 0, ErrNotBzipData
	}
	return int(digit - '0'), nil
}

// blockHeaderKind distinguishes a compressed block from the end-of-
// stream trailer, per §4.2.
type blockHeaderKind int

const (
	kindCompressedBlock blockHeaderKind = iota
	kindEndOfStream
)

// parseBlockMagic reads the 48-bit per-block magic and, for the
// end-of-stream marker, the trailing 32-bit stream CRC.
func parseBlockMagic(br *bitReader) (blockHeaderKind, uint32, error) {
	hi, err := br.getBits(24)
	if err != nil {
		return 0, 0, err
	}
	lo, err := br.getBits(24)
	if err != nil {
		return 0, 0, err
	}
	switch {
	case hi == blockMagicHi && lo == blockMagicLo:
		return kindCompressedBlock, 0, nil
	case hi == eosMagicHi && lo == eosMagicLo:
		crc, err := br.getBits(32)
		if err != nil {
			return 0, 0, err
		}
		return kindEndOfStream, crc, nil
	default:
		return 0, 0, ErrNotBzipData
	}
}

// blockHeader holds everything read from a compressed block's header,
// before symbol decoding begins, per §4.2.
type blockHeader struct {
	crc        uint32
	origPtr    uint32
	symToByte  [256]byte
	symTotal   int
	groups     []*huffmanGroup
	selectors  []uint8
	groupCount int
}

// parseCompressedBlockHeader reads everything between the block magic
// and the start of the entropy-coded symbol stream: the per-block CRC,
// randomized flag, origPtr, symbol map, selector list, and Huffman
// length tables (§4.2).
func parseCompressedBlockHeader(br *bitReader) (*blockHeader, error) {
	h := &blockHeader{}

	crc, err := br.getBits(32)
	if err != nil {
		return nil, err
	}
	h.crc = crc

	randomized, err := br.getBit()
	if err != nil {
		return nil, err
	}
	if randomized {
		return nil, ErrObsoleteInput
	}

	origPtr, err := br.getBits(24)
	if err != nil {
		return nil, err
	}
	h.origPtr = origPtr

	if err := h.readSymbolMap(br); err != nil {
		return nil, err
	}
	if h.symTotal == 0 {
		return nil, DataError("no symbols present in block")
	}

	groupCount, err := br.getBits(3)
	if err != nil {
		return nil, err
	}
	if groupCount < minGroups || groupCount > maxGroups {
		return nil, DataError("invalid number of Huffman groups")
	}
	h.groupCount = int(groupCount)

	nSelectors, err := br.getBits(15)
	if err != nil {
		return nil, err
	}
	if nSelectors < 1 {
		return nil, DataError("no selectors present in block")
	}

	if err := h.readSelectors(br, int(nSelectors)); err != nil {
		return nil, err
	}
	if err := h.readHuffmanGroups(br); err != nil {
		return nil, err
	}
	return h, nil
}

// readSymbolMap reads the 16-bit segment-present mask and up to 16
// 16-bit sub-masks, building symToByte in enabling order (§4.2 step 3).
func (h *blockHeader) readSymbolMap(br *bitReader) error {
	segments, err := br.getBits(16)
	if err != nil {
		return err
	}
	total := 0
	for seg := uint(0); seg < 16; seg++ {
		if segments&(1<<(15-seg)) == 0 {
			continue
		}
		sub, err := br.getBits(16)
		if err != nil {
			return err
		}
		for j := uint(0); j < 16; j++ {
			if sub&(1<<(15-j)) != 0 {
				h.symToByte[total] = byte(16*seg + j)
				total++
			}
		}
	}
	h.symTotal = total
	return nil
}

// readSelectors reads nSelectors MTF-encoded group indices: each is a
// unary "step forward" count terminated by a zero bit, inverse-MTF'd
// against the identity list (§4.2 step 6).
func (h *blockHeader) readSelectors(br *bitReader, nSelectors int) error {
	mtf := newMTF(h.groupCount)
	selectors := make([]uint8, nSelectors)
	for i := range selectors {
		c := 0
		for {
			bit, err := br.getBit()
			if err != nil {
				return err
			}
			if !bit {
				break
			}
			c++
			if c >= h.groupCount {
				return DataError("selector index too large")
			}
		}
		selectors[i] = mtf.decode(c)
	}
	h.selectors = selectors
	return nil
}

// readHuffmanGroups reads the per-symbol code lengths for each of
// groupCount Huffman groups, delta-coded from a 5-bit initial length
// (§4.2 step 7), and builds the canonical decode tables for each.
func (h *blockHeader) readHuffmanGroups(br *bitReader) error {
	// Alphabet is RUNA(0), RUNB(1), symTotal-1 MTF-selection symbols, and
	// a trailing end-of-block marker: symTotal + 2 symbols in total.
	symCount := h.symTotal + 2
	lengths := make([]uint8, symCount)
	groups := make([]*huffmanGroup, h.groupCount)

	for g := 0; g < h.groupCount; g++ {
		length, err := br.getBits(5)
		if err != nil {
			return err
		}
		l := int(length)
		for j := 0; j < symCount; j++ {
			for {
				if l < 1 || l > maxCodeLen {
					return DataError("huffman length out of range")
				}
				b1, err := br.getBit()
				if err != nil {
					return err
				}
				if !b1 {
					break
				}
				b2, err := br.getBit()
				if err != nil {
					return err
				}
				if b2 {
					l--
				} else {
					l++
				}
			}
			lengths[j] = uint8(l)
		}
		groups[g], err = buildHuffmanGroup(lengths)
		if err != nil {
			return err
		}
	}
	h.groups = groups
	return nil
}
