package decoder

import (
	"fmt"

	"github.com/umthana/SungrowInverter/internal/catalog"
)

// Block is a run of raw register words as returned by one read, starting
// at a zero-based wire offset.
type Block struct {
	Start uint16   `json:"start"`
	Words []uint16 `json:"words"`
}

// End returns the first offset past the block.
func (b Block) End() uint32 {
	return uint32(b.Start) + uint32(len(b.Words))
}

func (b Block) word(offset uint32) (uint16, bool) {
	if offset < uint32(b.Start) || offset >= b.End() {
		return 0, false
	}
	return b.Words[offset-uint32(b.Start)], true
}

// span collects n words starting at offset. Adjacent blocks may supply
// different words of one value; a missing word is ErrOutOfRange.
func span(blocks []Block, offset uint16, n int) ([]uint16, error) {
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		at := uint32(offset) + uint32(i)
		found := false
		for _, b := range blocks {
			if w, ok := b.word(at); ok {
				out[i] = w
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: offset %d not in any block (need %d words from %d)",
				catalog.ErrOutOfRange, at, n, offset)
		}
	}
	return out, nil
}
