package modbus

import (
	"fmt"

	"github.com/umthana/SungrowInverter/internal/catalog"
	"github.com/umthana/SungrowInverter/internal/types"
)

// Read is one planned request of a poll cycle.
type Read struct {
	Range types.ScanRange
	Frame *Frame
}

// PlanReads turns the scan ranges of class into read requests for unitID.
// Transaction IDs count up from firstTransaction.
func PlanReads(c *catalog.Catalog, class types.RegisterClass, unitID uint8, firstTransaction uint16) ([]Read, error) {
	ranges := c.ScanRanges(class)
	reads := make([]Read, 0, len(ranges))
	for i, sr := range ranges {
		f, err := ReadRegistersRequest(firstTransaction+uint16(i), unitID, class, sr.Start, sr.Count)
		if err != nil {
			return nil, fmt.Errorf("scan range %s: %w", sr, err)
		}
		reads = append(reads, Read{Range: sr, Frame: f})
	}
	return reads, nil
}
