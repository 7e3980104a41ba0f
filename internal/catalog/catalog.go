package catalog

import (
	"errors"
	"fmt"

	"github.com/umthana/SungrowInverter/internal/types"
)

// Catalog is the immutable register map of one inverter family. It is safe
// for concurrent use; accessors return copies.
type Catalog struct {
	info    types.DeviceProfileInfo
	lists   map[types.RegisterClass][]Register
	ranges  map[types.RegisterClass][]types.ScanRange
	tables  []CodeTable
	byTable map[string]CodeTable
}

// New assembles a catalog. Registers keep their order within each class.
// Every table a register references must be listed in tables, and names
// must be unique within a class.
func New(
	info types.DeviceProfileInfo,
	registers []Register,
	ranges map[types.RegisterClass][]types.ScanRange,
	tables []CodeTable,
) (*Catalog, error) {
	c := &Catalog{
		info:    info,
		lists:   make(map[types.RegisterClass][]Register, 2),
		ranges:  make(map[types.RegisterClass][]types.ScanRange, 2),
		byTable: make(map[string]CodeTable, len(tables)),
	}

	for _, t := range tables {
		if _, dup := c.byTable[t.Name()]; dup {
			return nil, fmt.Errorf("%w: code table %s declared twice", ErrInvalidDescriptor, t.Name())
		}
		c.byTable[t.Name()] = t
		c.tables = append(c.tables, t)
	}

	var errs []error
	names := map[types.RegisterClass]map[string]uint16{
		types.RegisterClassRead:    {},
		types.RegisterClassHolding: {},
	}
	for _, r := range registers {
		seen, ok := names[r.Class()]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s has no register class", ErrInvalidDescriptor, r.Name()))
			continue
		}
		if prev, dup := seen[r.Name()]; dup {
			errs = append(errs, fmt.Errorf("%w: %s register name %q used at %d and %d",
				ErrInvalidDescriptor, r.Class(), r.Name(), prev, r.Address()))
			continue
		}
		if r.Table() != nil {
			if t, ok := c.byTable[r.Table().Name()]; !ok || t != r.Table() {
				errs = append(errs, fmt.Errorf("%w: %s references unregistered code table %s",
					ErrInvalidDescriptor, r.Name(), r.Table().Name()))
				continue
			}
		}
		seen[r.Name()] = r.Address()
		c.lists[r.Class()] = append(c.lists[r.Class()], r)
	}

	for class, rs := range ranges {
		if class != types.RegisterClassRead && class != types.RegisterClassHolding {
			errs = append(errs, fmt.Errorf("%w: scan ranges for unknown class %q", ErrInvalidDescriptor, class))
			continue
		}
		for _, sr := range rs {
			if sr.Count == 0 || sr.End() > 1<<16 {
				errs = append(errs, fmt.Errorf("%w: %s scan range %s is empty or overflows", ErrInvalidDescriptor, class, sr))
			}
		}
		c.ranges[class] = append([]types.ScanRange(nil), rs...)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) Info() types.DeviceProfileInfo { return c.info }

// ReadRegisters returns the effective measurement (input) register list.
func (c *Catalog) ReadRegisters(f ModelFilter) []Register {
	return c.Registers(types.RegisterClassRead, f)
}

// HoldingRegisters returns the effective configuration register list.
func (c *Catalog) HoldingRegisters(f ModelFilter) []Register {
	return c.Registers(types.RegisterClassHolding, f)
}

// Registers returns the registers of class that apply under f, in catalog order.
func (c *Catalog) Registers(class types.RegisterClass, f ModelFilter) []Register {
	all := c.lists[class]
	out := make([]Register, 0, len(all))
	for _, r := range all {
		if r.AppliesTo(f) {
			out = append(out, r)
		}
	}
	return out
}

// Lookup finds a register of class by name.
func (c *Catalog) Lookup(class types.RegisterClass, name string) (Register, bool) {
	for _, r := range c.lists[class] {
		if r.Name() == name {
			return r, true
		}
	}
	return Register{}, false
}

// ScanRanges returns the batched read plan for class.
func (c *Catalog) ScanRanges(class types.RegisterClass) []types.ScanRange {
	return append([]types.ScanRange(nil), c.ranges[class]...)
}

func (c *Catalog) Table(name string) (CodeTable, bool) {
	t, ok := c.byTable[name]
	return t, ok
}

func (c *Catalog) Tables() []CodeTable {
	return append([]CodeTable(nil), c.tables...)
}

// Size returns the total number of registers of class, unfiltered.
func (c *Catalog) Size(class types.RegisterClass) int {
	return len(c.lists[class])
}
