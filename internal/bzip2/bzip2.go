// Copyright 2019 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package bzip2 implements a single-stream, single-block-at-a-time
// bzip2 decompressor: stream and block header parsing, canonical
// Huffman decoding, MTF/RLE2 symbol decoding, the inverse Burrows-
// Wheeler Transform, and RLE1 re-expansion, per the wire format
// documented in the package's design notes.
package bzip2

import "io"

// blockSizeUnit is the granularity of the block-size-in-hundred-
// kilobytes header field (§3, §4.2).
const blockSizeUnit = 100000

// Decoder decodes a single bzip2 stream read from an underlying
// io.Reader. It is not safe for concurrent use; the reference design
// explicitly scopes decoding to one block at a time within one stream
// (§5), leaving cross-file concurrency to callers.
type Decoder struct {
	r  *bitReader
	br io.Reader

	blockSize100k int
	dbufSize      int

	streamCRC uint32

	emitter       *blockEmitter
	pendingCRC    uint32
	blockStartBit uint64
	blockNo       int
	done          bool
	err           error

	// onBlockDone, if set, is invoked once per block immediately after
	// its CRC has been verified and folded into streamCRC. It exists so
	// that the public API (Reader) can report progress and per-block
	// statistics without the core decoder importing anything about
	// channels or stats collection itself (§6, §9).
	onBlockDone func(blockNo int, crc uint32, compressedBytes int64)
}

// OnBlockDone registers a callback invoked after each block's CRC has
// been verified, per §6's progress-reporting interface.
func (d *Decoder) OnBlockDone(fn func(blockNo int, crc uint32, compressedBytes int64)) {
	d.onBlockDone = fn
}

// StreamCRC returns the cumulative stream CRC computed so far. Its
// value is only meaningful for comparison against the trailer once
// decoding has reached the end-of-stream marker.
func (d *Decoder) StreamCRC() uint32 {
	return d.streamCRC
}

// BlockSize100k returns the block-size-in-hundred-kilobytes field read
// from the stream header.
func (d *Decoder) BlockSize100k() int {
	return d.blockSize100k
}

// NewDecoder wraps r and parses the stream header, returning a Decoder
// ready to produce decompressed bytes via Read.
func NewDecoder(r io.Reader) (*Decoder, error) {
	br := newBitReader(r)
	blockSize100k, err := parseStreamHeader(br)
	if err != nil {
		return nil, err
	}
	return &Decoder{
		r:             br,
		blockSize100k: blockSize100k,
		dbufSize:      blockSize100k * blockSizeUnit,
	}, nil
}

// Read implements io.Reader. Once a Decoder has returned a non-nil
// error it is sticky: every subsequent Read returns the same error
// without doing further work (§7).
func (d *Decoder) Read(buf []byte) (int, error) {
	if d.err != nil {
		return 0, d.err
	}
	n, err := d.read(buf)
	if err != nil && err != io.EOF {
		d.err = err
	} else if err == io.EOF {
		d.done = true
		d.err = io.EOF
	}
	return n, err
}

func (d *Decoder) read(buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		if d.done {
			return n, io.EOF
		}
		if d.emitter == nil {
			if err := d.advanceBlock(); err != nil {
				return n, err
			}
			if d.done {
				continue
			}
		}
		b, ok := d.emitter.emitByte()
		if !ok {
			if err := d.finishBlock(); err != nil {
				return n, err
			}
			d.emitter = nil
			continue
		}
		buf[n] = b
		n++
	}
	return n, nil
}

// advanceBlock reads the next block magic and, for a compressed block,
// decodes its header and entropy-coded body, leaving d.emitter ready to
// produce bytes. For the end-of-stream marker it validates the trailing
// stream CRC and marks the Decoder done.
func (d *Decoder) advanceBlock() error {
	kind, trailerCRC, err := parseBlockMagic(d.r)
	if err != nil {
		return err
	}
	if kind == kindEndOfStream {
		if d.streamCRC != trailerCRC {
			return DataError("stream CRC mismatch")
		}
		d.done = true
		return nil
	}

	d.blockStartBit = d.r.consumedBits()

	header, err := parseCompressedBlockHeader(d.r)
	if err != nil {
		return err
	}
	blk, err := decodeBlockSymbols(d.r, header, d.dbufSize)
	if err != nil {
		return err
	}
	if int(blk.origPtr) >= blk.length {
		return DataError("origPtr out of range")
	}
	buildIBWT(blk)
	d.emitter = newBlockEmitter(blk)
	d.pendingCRC = header.crc
	return nil
}

// finishBlock verifies the just-completed block's CRC, folds it into
// the running stream CRC, and reports it via onBlockDone, per §4.4, §6.
func (d *Decoder) finishBlock() error {
	got := d.emitter.finalCRC()
	if got != d.pendingCRC {
		return DataError("block CRC mismatch")
	}
	d.streamCRC = rotl32(d.streamCRC, 1) ^ got
	d.blockNo++
	if d.onBlockDone != nil {
		compressedBits := d.r.consumedBits() - d.blockStartBit
		d.onBlockDone(d.blockNo, got, int64(compressedBits+7)/8)
	}
	return nil
}
