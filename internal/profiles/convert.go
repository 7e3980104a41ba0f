package profiles

import (
	"errors"
	"fmt"

	"github.com/umthana/SungrowInverter/internal/catalog"
	"github.com/umthana/SungrowInverter/internal/types"
)

var classes = []types.RegisterClass{types.RegisterClassRead, types.RegisterClassHolding}

// Export returns the profile representation of c. Single-label tables
// are written with their effective entries, so overridden codes are gone.
func Export(c *catalog.Catalog) types.InverterProfile {
	p := types.InverterProfile{
		DeviceProfile: c.Info(),
		CodeTables:    []types.CodeTableDefinition{},
		Registers:     []types.RegisterDefinition{},
		ScanRanges:    []types.ScanRangeGroup{},
	}

	for _, t := range c.Tables() {
		def := types.CodeTableDefinition{
			Name:    t.Name(),
			Kind:    t.Kind(),
			Entries: t.Entries(),
		}
		if ft, ok := t.(*catalog.FlagTable); ok {
			def.Width = ft.Width()
		}
		p.CodeTables = append(p.CodeTables, def)
	}

	for _, class := range classes {
		for _, r := range c.Registers(class, catalog.AnyModel()) {
			p.Registers = append(p.Registers, r.Definition())
		}
		if ranges := c.ScanRanges(class); len(ranges) > 0 {
			p.ScanRanges = append(p.ScanRanges, types.ScanRangeGroup{Class: class, Ranges: ranges})
		}
	}

	return p
}

// Build compiles a profile into a catalog. Every descriptor goes through
// catalog.Define, so a bad profile fails with catalog.ErrInvalidDescriptor.
func Build(p *types.InverterProfile) (*catalog.Catalog, error) {
	tables := make([]catalog.CodeTable, 0, len(p.CodeTables))
	byName := make(map[string]catalog.CodeTable, len(p.CodeTables))
	for _, def := range p.CodeTables {
		var t catalog.CodeTable
		switch def.Kind {
		case types.TableKindSingle:
			t = catalog.NewLabelTable(def.Name, def.Entries)
		case types.TableKindBitfield:
			ft, err := catalog.NewFlagTable(def.Name, def.Width, def.Entries)
			if err != nil {
				return nil, err
			}
			t = ft
		default:
			return nil, fmt.Errorf("%w: code table %s has unknown kind %q", catalog.ErrInvalidDescriptor, def.Name, def.Kind)
		}
		tables = append(tables, t)
		byName[def.Name] = t
	}

	var (
		registers []catalog.Register
		errs      []error
	)
	for _, def := range p.Registers {
		spec := catalog.RegisterSpec{
			Class:       def.Class,
			Address:     def.Address,
			Name:        def.Name,
			DataType:    def.DataType,
			Scale:       def.ScaleFactor,
			Unit:        def.Unit,
			Description: def.Description,
			Length:      def.Length,
			Models:      def.ValidModels,
		}
		if def.Table != "" {
			t, ok := byName[def.Table]
			if !ok {
				errs = append(errs, fmt.Errorf("%w: %s references unknown code table %s", catalog.ErrInvalidDescriptor, def.Name, def.Table))
				continue
			}
			spec.Table = t
		}
		r, err := catalog.Define(spec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		registers = append(registers, r)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	ranges := make(map[types.RegisterClass][]types.ScanRange, len(p.ScanRanges))
	for _, g := range p.ScanRanges {
		ranges[g.Class] = append(ranges[g.Class], g.Ranges...)
	}

	return catalog.New(p.DeviceProfile, registers, ranges, tables)
}
