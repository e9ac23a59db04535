package bzip2

import "testing"

// TestUpdateCRCDeterministic checks that folding the same bytes in
// twice from the same starting point always produces the same result,
// and that distinct inputs are exceedingly unlikely to collide for
// these short test vectors.
func TestUpdateCRCDeterministic(t *testing.T) {
	inputs := [][]byte{
		[]byte("a"),
		[]byte("ab"),
		[]byte("hello world"),
		bytesN('x', 1000),
	}
	seen := map[uint32]string{}
	for _, in := range inputs {
		var crc1, crc2 uint32
		for _, b := range in {
			crc1 = updateCRC(crc1, b)
		}
		for _, b := range in {
			crc2 = updateCRC(crc2, b)
		}
		if crc1 != crc2 {
			t.Fatalf("updateCRC(%q) not deterministic: %d != %d", in, crc1, crc2)
		}
		if prev, ok := seen[crc1]; ok {
			t.Fatalf("CRC collision between %q and %q: both %d", prev, in, crc1)
		}
		seen[crc1] = string(in)
	}
}

// TestRotl32 checks the left-rotate used to combine per-block CRCs into
// the stream CRC.
func TestRotl32(t *testing.T) {
	cases := []struct {
		v    uint32
		n    uint
		want uint32
	}{
		{0x00000001, 1, 0x00000002},
		{0x80000000, 1, 0x00000001},
		{0xffffffff, 16, 0xffffffff},
		{0x12345678, 0, 0x12345678},
	}
	for _, c := range cases {
		if got := rotl32(c.v, c.n); got != c.want {
			t.Errorf("rotl32(%#x, %d) = %#x, want %#x", c.v, c.n, got, c.want)
		}
	}
}

func bytesN(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}
