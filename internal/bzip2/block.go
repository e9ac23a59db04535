package bzip2

// decodedBlock holds the result of decoding one compressed block's
// entropy-coded symbol stream: the BWT-permuted byte sequence packed
// into dbuf per §4.4's single-array IBWT technique, plus the origPtr
// and per-byte histogram needed to invert it.
type decodedBlock struct {
	dbuf      []uint32
	origPtr   uint32
	byteCount [256]int
	crc       uint32
	length    int
}

// decodeBlockSymbols runs the group-scheduled Huffman decode loop over a
// compressed block's body, undoes the RLE2 and MTF transforms, and
// packs the resulting bytes into dbuf in BWT order, per §4.3.
//
// dbuf's low 8 bits of each entry hold the decoded byte; the IBWT
// construction pass (ibwt.go) later overwrites the high 24 bits with a
// "next" pointer, so only the byte is meaningful on return from here.
func decodeBlockSymbols(br *bitReader, h *blockHeader, dbufSize int) (*decodedBlock, error) {
	blk := &decodedBlock{
		dbuf:    make([]uint32, 0, dbufSize),
		origPtr: h.origPtr,
		crc:     h.crc,
	}

	symMTF := newMTFFromSymbols(h.symToByte[:h.symTotal])
	eob := uint16(h.symTotal + 1)

	var group *huffmanGroup
	groupPos := 0
	selectorIdx := 0

	nextGroup := func() error {
		if selectorIdx >= len(h.selectors) {
			return DataError("ran out of selectors mid-block")
		}
		group = h.groups[h.selectors[selectorIdx]]
		selectorIdx++
		groupPos = groupSize
		return nil
	}

	decodeSym := func() (uint16, error) {
		if groupPos == 0 {
			if err := nextGroup(); err != nil {
				return 0, err
			}
		}
		groupPos--
		return group.decode(br)
	}

	runLen := 0
	runBit := 0
	flushRun := func() error {
		if runLen == 0 {
			return nil
		}
		b := symMTF.first()
		for i := 0; i < runLen; i++ {
			if len(blk.dbuf) >= dbufSize {
				return DataError("block run exceeds declared block size")
			}
			blk.dbuf = append(blk.dbuf, uint32(b))
			blk.byteCount[b]++
		}
		runLen = 0
		runBit = 0
		return nil
	}

	for {
		sym, err := decodeSym()
		if err != nil {
			return nil, err
		}

		switch {
		case sym == 0 || sym == 1: // RUNA / RUNB, §4.3 bijective base-2 run
			runLen += (int(sym) + 1) << runBit
			runBit++
			if runLen > dbufSize {
				return nil, DataError("run length exceeds declared block size")
			}
			continue
		case sym == eob:
			if err := flushRun(); err != nil {
				return nil, err
			}
			blk.length = len(blk.dbuf)
			return blk, nil
		default:
			if err := flushRun(); err != nil {
				return nil, err
			}
			// Symbols 2..symTotal select position sym-1 in the MTF list
			// (symbol 2 is the front of the *remaining* alphabet, since
			// position 0 is only ever reached via RUNA/RUNB).
			b := symMTF.decode(int(sym) - 1)
			if len(blk.dbuf) >= dbufSize {
				return nil, DataError("block exceeds declared block size")
			}
			blk.dbuf = append(blk.dbuf, uint32(b))
			blk.byteCount[b]++
		}
	}
}
