// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package bz2dec decompresses bzip2 streams. It wraps the synchronous,
// single-block-at-a-time decoder in internal/bzip2 with an io.Reader
// API, optional per-block progress reporting, and stream statistics,
// following the teacher package's own NewReader/NewReaderWithStats
// surface (github.com/cosnicolaou/pbzip2).
package bz2dec

import (
	"io"

	ibzip2 "github.com/cosnicolaou/bz2dec/internal/bzip2"
)

// Progress describes one decoded block, sent on the channel passed to
// SendUpdates, grounded on the teacher's pbzip2.Progress.
type Progress struct {
	// Block is the 1-based index of the block just completed.
	Block int
	// Compressed is the number of compressed bytes the block occupied,
	// suitable for driving a byte-based progress bar.
	Compressed int64
}

type readerOpts struct {
	updates   chan<- Progress
	collector *Stats
}

// ReaderOption configures NewReader.
type ReaderOption func(*readerOpts)

// SendUpdates requests that a Progress value be sent on ch after each
// block is fully decoded and its CRC verified.
func SendUpdates(ch chan<- Progress) ReaderOption {
	return func(o *readerOpts) { o.updates = ch }
}

// CollectStats requests that per-block CRCs and the stream CRC be
// recorded into s as decoding proceeds, for later inspection through
// s's fields.
func CollectStats(s *Stats) ReaderOption {
	return func(o *readerOpts) { o.collector = s }
}

// Stats accumulates per-block information as a stream is decoded,
// mirroring the teacher's bzip2.StreamStats, used by diagnostic tools
// rather than by the decompression hot path.
type Stats struct {
	BlockCRCs []uint32
	StreamCRC uint32
}

// Reader decompresses a single bzip2 stream.
type Reader struct {
	dec  *ibzip2.Decoder
	opts readerOpts
}

// NewReader returns a Reader that decompresses bz2-formatted data read
// from r.
func NewReader(r io.Reader, opts ...ReaderOption) (*Reader, error) {
	var o readerOpts
	for _, fn := range opts {
		fn(&o)
	}
	dec, err := ibzip2.NewDecoder(r)
	if err != nil {
		return nil, wrapError(err)
	}
	if o.updates != nil || o.collector != nil {
		dec.OnBlockDone(func(blockNo int, crc uint32, compressedBytes int64) {
			if o.collector != nil {
				o.collector.BlockCRCs = append(o.collector.BlockCRCs, crc)
				o.collector.StreamCRC = dec.StreamCRC()
			}
			if o.updates != nil {
				o.updates <- Progress{Block: blockNo, Compressed: compressedBytes}
			}
		})
	}
	return &Reader{dec: dec, opts: o}, nil
}

// Read implements io.Reader.
func (r *Reader) Read(buf []byte) (int, error) {
	n, err := r.dec.Read(buf)
	if err != nil && err != io.EOF {
		return n, wrapError(err)
	}
	return n, err
}
