package bzip2

// maxCodeLen is the largest Huffman code length a compliant encoder may
// produce (§3 invariants: length[i] in [1,20]).
const maxCodeLen = 20

// maxGroups and groupSize bound the selector/group schedule (§4.2, §4.3):
// between 2 and 6 Huffman tables, one selector per 50 symbols.
const (
	minGroups = 2
	maxGroups = 6
	groupSize = 50
)

// huffmanGroup is one of up to six canonical Huffman decoding tables for
// a block, built per §4.2. base and limit are indexed by code length
// starting at 1 (never at 0), sized for the full [1,maxCodeLen] range so
// callers never need the "pointer minus one" trick the reference C
// source uses (§9).
type huffmanGroup struct {
	minLen  uint
	maxLen  uint
	base    [maxCodeLen + 2]int32
	limit   [maxCodeLen + 2]int32
	permute []uint16
}

// buildHuffmanGroup constructs the canonical decoding tables for one
// group from its per-symbol code lengths, following §4.2 exactly.
func buildHuffmanGroup(lengths []uint8) (*huffmanGroup, error) {
	if len(lengths) < 2 {
		return nil, DataError("too few symbols for a Huffman group")
	}

	minLen, maxLen := uint(lengths[0]), uint(lengths[0])
	for _, l := range lengths[1:] {
		if uint(l) < minLen {
			minLen = uint(l)
		}
		if uint(l) > maxLen {
			maxLen = uint(l)
		}
	}
	if minLen < 1 || maxLen > maxCodeLen {
		return nil, DataError("huffman code length out of range")
	}

	g := &huffmanGroup{minLen: minLen, maxLen: maxLen}

	// permute[]: symbols sorted by (length, symbol), stably. Walking
	// lengths in ascending order and symbols in index order achieves
	// this directly without an explicit sort.
	permute := make([]uint16, 0, len(lengths))
	for length := minLen; length <= maxLen; length++ {
		for sym, l := range lengths {
			if uint(l) == length {
				permute = append(permute, uint16(sym))
			}
		}
	}
	g.permute = permute

	var temp [maxCodeLen + 2]int32
	for _, l := range lengths {
		temp[l]++
	}

	pp := int32(0)
	var cumulative int32
	for i := minLen; i < maxLen; i++ {
		cumulative += temp[i]
		g.limit[i] = ((pp + temp[i]) << (maxLen - i)) - 1
		pp = (pp + temp[i]) << 1
		g.base[i+1] = pp - cumulative
	}
	g.limit[maxLen] = pp + temp[maxLen] - 1
	g.base[minLen] = 0

	return g, nil
}

// decode reads one symbol using br per §4.3: read maxLen bits of
// lookahead, walk candidate lengths from minLen upward until the
// lookahead value fits within that length's limit, then push back the
// unused tail bits.
func (g *huffmanGroup) decode(br *bitReader) (uint16, error) {
	value, err := br.getBits(g.maxLen)
	if err != nil {
		return 0, err
	}

	i := g.minLen
	for int32(value) > g.limit[i] {
		i++
		if i > g.maxLen {
			return 0, DataError("huffman code not found in any group")
		}
	}
	br.pushBackBits(g.maxLen - i)

	idx := int32(value>>(g.maxLen-i)) - g.base[i]
	if idx < 0 || int(idx) >= len(g.permute) {
		return 0, DataError("huffman symbol index out of range")
	}
	return g.permute[idx], nil
}
