// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bzip2

// crcTable is bzip2's CRC-32 table: the standard IEEE polynomial
// (0x04C11DB7) computed MSB-first with no input/output reflection, the
// opposite convention from the zip/gzip CRC-32. It is built once at
// package init, mirroring the teacher's use of hash/crc32's reflected
// table reversed bit-by-bit, but computed directly here since the
// per-block/per-stream update in §4.4 is simplest expressed against an
// unreflected table.
var crcTable [256]uint32

func init() {
	const poly = 0x04C11DB7
	for i := range crcTable {
		crc := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if crc&0x80000000 != 0 {
				crc = crc<<1 ^ poly
			} else {
				crc <<= 1
			}
		}
		crcTable[i] = crc
	}
}

// updateCRC folds byte b into the running CRC as specified in §4.4.
func updateCRC(crc uint32, b byte) uint32 {
	return crc<<8 ^ crcTable[byte(crc>>24)^b]
}

// rotl32 rotates v left by n bits, used to combine each block's CRC into
// the stream-level cumulative CRC (§4.4, §8).
func rotl32(v uint32, n uint) uint32 {
	return v<<n | v>>(32-n)
}
