package bzip2

// buildIBWT turns a decodedBlock's plain byte sequence into the linked
// structure used to walk the inverse Burrows-Wheeler Transform, using
// the single-array technique from §4.4: each dbuf entry packs the
// original byte in its low 8 bits and a "next" index in its high 24
// bits, avoiding a separate next[] array.
//
// The construction is a prefix sum over byteCount (turning it into a
// per-byte base offset into the sorted-rotation order), followed by one
// pass that places each position's successor pointer at the slot its
// byte value claims next.
func buildIBWT(blk *decodedBlock) {
	var cum [256]int
	total := 0
	for b := 0; b < 256; b++ {
		cum[b] = total
		total += blk.byteCount[b]
	}
	for i, word := range blk.dbuf {
		b := byte(word)
		blk.dbuf[cum[b]] |= uint32(i) << 8
		cum[b]++
	}
}

// ibwtWalker steps through one block's bytes in original (post-BWT-
// inversion) order, one byte per call to next, per §4.4.
type ibwtWalker struct {
	blk *decodedBlock
	pos uint32
	n   int
}

func newIBWTWalker(blk *decodedBlock) *ibwtWalker {
	w := &ibwtWalker{blk: blk}
	if blk.length > 0 {
		w.pos = blk.dbuf[blk.origPtr] >> 8
	}
	return w
}

// next returns the next original byte, or false once the block is
// exhausted.
func (w *ibwtWalker) next() (byte, bool) {
	if w.n >= w.blk.length {
		return 0, false
	}
	word := w.blk.dbuf[w.pos]
	b := byte(word)
	w.pos = word >> 8
	w.n++
	return b, true
}

// emitState drives RLE1 re-expansion (four identical bytes followed by
// a repeat count, §4.4) while walking the IBWT output, replacing the
// reference decoder's loop-with-backward-jump with an explicit state
// machine per §9.
type emitState int

const (
	stateNeedAdvance emitState = iota
	stateInRun
	stateFinalizeBlock
)

// blockEmitter turns one block's IBWT-ordered bytes into its final RLE1-
// expanded output, tracking the running per-block CRC as it goes.
type blockEmitter struct {
	walker *ibwtWalker

	state emitState

	lastByte   int // -1 until the first byte is seen
	runLength  int
	repeatByte byte
	repeatLeft int

	crc uint32
}

func newBlockEmitter(blk *decodedBlock) *blockEmitter {
	return &blockEmitter{
		walker:   newIBWTWalker(blk),
		lastByte: -1,
		crc:      0xffffffff,
	}
}

// emitByte returns the next byte of this block's fully expanded output,
// or ok=false once the block (including any pending RLE1 repeat) is
// exhausted.
func (e *blockEmitter) emitByte() (byte, bool) {
	for {
		switch e.state {
		case stateInRun:
			if e.repeatLeft > 0 {
				e.repeatLeft--
				e.crc = updateCRC(e.crc, e.repeatByte)
				if e.repeatLeft == 0 {
					e.state = stateNeedAdvance
					e.lastByte = -1
					e.runLength = 0
				}
				return e.repeatByte, true
			}
			e.state = stateNeedAdvance

		case stateNeedAdvance:
			b, ok := e.walker.next()
			if !ok {
				e.state = stateFinalizeBlock
				continue
			}
			e.crc = updateCRC(e.crc, b)

			if int(b) == e.lastByte {
				e.runLength++
				if e.runLength == 4 {
					count, ok := e.walker.next()
					if !ok {
						e.state = stateFinalizeBlock
						return b, true
					}
					e.repeatByte = b
					e.repeatLeft = int(count)
					e.state = stateInRun
				}
			} else {
				e.lastByte = int(b)
				e.runLength = 1
			}
			return b, true

		case stateFinalizeBlock:
			return 0, false
		}
	}
}

// finalCRC returns the CRC accumulated over this block's expanded
// output, for comparison against the block header's declared CRC.
// writeCRC starts all-ones and is complemented at finalize (§3, §4.4).
func (e *blockEmitter) finalCRC() uint32 {
	return ^e.crc
}
