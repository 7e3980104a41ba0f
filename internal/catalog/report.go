package catalog

import (
	"fmt"
	"sort"

	"github.com/umthana/SungrowInverter/internal/types"
)

// maxReadQuantity is the Modbus limit for one register read.
const maxReadQuantity = 125

type Severity string

const (
	SevError   Severity = "error"
	SevWarning Severity = "warning"
)

// Issue codes.
const (
	IssueScanGap       = "CATALOG_101"
	IssueScanTooLarge  = "CATALOG_102"
	IssueScanOverlap   = "CATALOG_103"
	IssueSharedAddress = "CATALOG_201"
	IssueTableOverride = "CATALOG_301"
	IssueTableAlias    = "CATALOG_302"
	IssueUnusedTable   = "CATALOG_303"
)

type Issue struct {
	Code     string              `json:"code"`
	Severity Severity            `json:"severity"`
	Message  string              `json:"message"`
	Class    types.RegisterClass `json:"class,omitempty"`
	Register string              `json:"register,omitempty"`
	Table    string              `json:"table,omitempty"`
	Meta     map[string]any      `json:"meta,omitempty"`
}

type Report struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

func (r *Report) add(i Issue) {
	if i.Severity == SevError {
		r.Errors = append(r.Errors, i)
	} else {
		r.Warnings = append(r.Warnings, i)
	}
}

// Validate checks the invariants New cannot enforce on its own: scan-range
// containment and geometry, and code table quality. Defects are errors;
// legitimate but noteworthy data (aliases, shared addresses) are warnings.
func Validate(c *Catalog) Report {
	rep := Report{Errors: []Issue{}, Warnings: []Issue{}}

	for _, class := range []types.RegisterClass{types.RegisterClassRead, types.RegisterClassHolding} {
		validateScanRanges(c, class, &rep)
		validateSharedAddresses(c, class, &rep)
	}
	validateTables(c, &rep)

	rep.Valid = len(rep.Errors) == 0
	return rep
}

// Uncovered returns every register of class whose span is not contained in
// a single scan range.
func Uncovered(c *Catalog, class types.RegisterClass) []Register {
	ranges := c.ScanRanges(class)
	var out []Register
	for _, r := range c.Registers(class, AnyModel()) {
		if !covered(ranges, r) {
			out = append(out, r)
		}
	}
	return out
}

func covered(ranges []types.ScanRange, r Register) bool {
	for _, sr := range ranges {
		if sr.Contains(r.Offset(), r.Words()) {
			return true
		}
	}
	return false
}

func validateScanRanges(c *Catalog, class types.RegisterClass, rep *Report) {
	for _, r := range Uncovered(c, class) {
		rep.add(Issue{
			Code:     IssueScanGap,
			Severity: SevError,
			Message:  fmt.Sprintf("register %d (%d words) is outside every %s scan range", r.Address(), r.Words(), class),
			Class:    class,
			Register: r.Name(),
			Meta:     map[string]any{"offset": r.Offset()},
		})
	}

	ranges := c.ScanRanges(class)
	for _, sr := range ranges {
		if sr.Count > maxReadQuantity {
			rep.add(Issue{
				Code:     IssueScanTooLarge,
				Severity: SevError,
				Message:  fmt.Sprintf("scan range %s reads %d registers, limit is %d", sr, sr.Count, maxReadQuantity),
				Class:    class,
			})
		}
	}

	sorted := append([]types.ScanRange(nil), ranges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if uint32(cur.Start) < prev.End() {
			rep.add(Issue{
				Code:     IssueScanOverlap,
				Severity: SevWarning,
				Message:  fmt.Sprintf("scan ranges %s and %s overlap", prev, cur),
				Class:    class,
			})
		}
	}
}

func validateSharedAddresses(c *Catalog, class types.RegisterClass, rep *Report) {
	byAddr := make(map[uint16][]string)
	var order []uint16
	for _, r := range c.Registers(class, AnyModel()) {
		if _, ok := byAddr[r.Address()]; !ok {
			order = append(order, r.Address())
		}
		byAddr[r.Address()] = append(byAddr[r.Address()], r.Name())
	}
	for _, addr := range order {
		names := byAddr[addr]
		if len(names) < 2 {
			continue
		}
		rep.add(Issue{
			Code:     IssueSharedAddress,
			Severity: SevWarning,
			Message:  fmt.Sprintf("address %d is exposed as %d registers", addr, len(names)),
			Class:    class,
			Meta:     map[string]any{"registers": names},
		})
	}
}

func validateTables(c *Catalog, rep *Report) {
	used := make(map[string]bool)
	for _, class := range []types.RegisterClass{types.RegisterClassRead, types.RegisterClassHolding} {
		for _, r := range c.Registers(class, AnyModel()) {
			if r.Table() != nil {
				used[r.Table().Name()] = true
			}
		}
	}

	for _, t := range c.Tables() {
		if !used[t.Name()] {
			rep.add(Issue{
				Code:     IssueUnusedTable,
				Severity: SevWarning,
				Message:  fmt.Sprintf("code table %s is not referenced by any register", t.Name()),
				Table:    t.Name(),
			})
		}

		lt, ok := t.(*LabelTable)
		if !ok {
			continue
		}
		for _, o := range lt.Overrides() {
			rep.add(Issue{
				Code:     IssueTableOverride,
				Severity: SevWarning,
				Message:  fmt.Sprintf("code %d declared twice; %q replaces %q", o.Code, o.Winner, o.Previous),
				Table:    t.Name(),
				Meta:     map[string]any{"code": o.Code, "winner": o.Winner, "previous": o.Previous},
			})
		}
		for _, a := range lt.Aliases() {
			rep.add(Issue{
				Code:     IssueTableAlias,
				Severity: SevWarning,
				Message:  fmt.Sprintf("label %q is shared by codes %v", a.Label, a.Codes),
				Table:    t.Name(),
				Meta:     map[string]any{"codes": a.Codes},
			})
		}
	}
}
