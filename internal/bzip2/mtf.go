package bzip2

// mtf implements the inverse Move-To-Front transform over a small list
// of byte values (at most 256, or at most maxGroups for the selector
// list), per §4.2 step 6 and §4.3.
type mtf struct {
	list []byte
}

// newMTF builds the identity list [0, n).
func newMTF(n int) *mtf {
	list := make([]byte, n)
	for i := range list {
		list[i] = byte(i)
	}
	return &mtf{list: list}
}

// newMTFFromSymbols builds the list from an explicit symbol ordering,
// used to seed MTF decoding from the block's symbol map (§4.2 step 3).
func newMTFFromSymbols(symbols []byte) *mtf {
	list := make([]byte, len(symbols))
	copy(list, symbols)
	return &mtf{list: list}
}

// first returns the front of the list without modifying it, used when
// flushing an RLE2 run (§4.3).
func (m *mtf) first() byte {
	return m.list[0]
}

// decode returns the value at position idx, rotates entries [0,idx]
// right by one, and places that value at the front (§4.3 MTF decode).
func (m *mtf) decode(idx int) byte {
	v := m.list[idx]
	copy(m.list[1:idx+1], m.list[0:idx])
	m.list[0] = v
	return v
}
