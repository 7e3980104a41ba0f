package catalog

import (
	"fmt"
	"sort"

	"github.com/umthana/SungrowInverter/internal/types"
)

// CodeTable is implemented by the two table variants. The variants decode
// differently and are never interchangeable: a LabelTable selects exactly one
// label, a FlagTable reports every set bit.
type CodeTable interface {
	Name() string
	Kind() types.TableKind
	Entries() []types.CodeEntry
}

// Override records a duplicate key in a single-label table. The last
// declared label wins.
type Override struct {
	Code     uint32
	Previous string
	Winner   string
}

// Alias lists codes that share one label.
type Alias struct {
	Label string
	Codes []uint32
}

// LabelTable maps mutually exclusive codes to labels.
type LabelTable struct {
	name      string
	labels    map[uint32]string
	order     []uint32
	overrides []Override
}

// NewLabelTable builds a table from entries in declaration order.
// Duplicate codes do not fail; they are recorded and the last one wins.
func NewLabelTable(name string, entries []types.CodeEntry) *LabelTable {
	t := &LabelTable{
		name:   name,
		labels: make(map[uint32]string, len(entries)),
	}
	for _, e := range entries {
		if prev, ok := t.labels[e.Code]; ok {
			t.overrides = append(t.overrides, Override{Code: e.Code, Previous: prev, Winner: e.Label})
		} else {
			t.order = append(t.order, e.Code)
		}
		t.labels[e.Code] = e.Label
	}
	return t
}

func (t *LabelTable) Name() string { return t.name }

func (t *LabelTable) Kind() types.TableKind { return types.TableKindSingle }

func (t *LabelTable) Len() int { return len(t.order) }

// Lookup returns the label for code.
func (t *LabelTable) Lookup(code uint32) (string, bool) {
	l, ok := t.labels[code]
	return l, ok
}

// Decode returns the label for raw or ErrUnknownCode.
func (t *LabelTable) Decode(raw uint32) (string, error) {
	if l, ok := t.Lookup(raw); ok {
		return l, nil
	}
	return "", fmt.Errorf("%w: table %s has no entry for %d (0x%X)", ErrUnknownCode, t.name, raw, raw)
}

// Entries returns the effective entries, ordered by first declaration.
func (t *LabelTable) Entries() []types.CodeEntry {
	out := make([]types.CodeEntry, 0, len(t.order))
	for _, code := range t.order {
		out = append(out, types.CodeEntry{Code: code, Label: t.labels[code]})
	}
	return out
}

func (t *LabelTable) Overrides() []Override {
	return append([]Override(nil), t.overrides...)
}

// Aliases returns every label that more than one code maps to, sorted by label.
func (t *LabelTable) Aliases() []Alias {
	byLabel := make(map[string][]uint32)
	for _, code := range t.order {
		l := t.labels[code]
		byLabel[l] = append(byLabel[l], code)
	}

	var out []Alias
	for label, codes := range byLabel {
		if len(codes) < 2 {
			continue
		}
		sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
		out = append(out, Alias{Label: label, Codes: codes})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// FlagTable maps bit positions of a status word to independent flags.
type FlagTable struct {
	name  string
	width int
	flags []types.CodeEntry // sorted by bit
}

// NewFlagTable builds a bitfield table over width significant bits.
// Entries carry bit positions, not masks.
func NewFlagTable(name string, width int, entries []types.CodeEntry) (*FlagTable, error) {
	if width < 1 || width > 32 {
		return nil, fmt.Errorf("%w: flag table %s width %d outside 1..32", ErrInvalidDescriptor, name, width)
	}

	seen := make(map[uint32]string, len(entries))
	flags := make([]types.CodeEntry, 0, len(entries))
	for _, e := range entries {
		if e.Code >= uint32(width) {
			return nil, fmt.Errorf("%w: flag table %s bit %d outside width %d", ErrInvalidDescriptor, name, e.Code, width)
		}
		if prev, ok := seen[e.Code]; ok {
			return nil, fmt.Errorf("%w: flag table %s bit %d declared twice (%q, %q)", ErrInvalidDescriptor, name, e.Code, prev, e.Label)
		}
		seen[e.Code] = e.Label
		flags = append(flags, e)
	}
	sort.Slice(flags, func(i, j int) bool { return flags[i].Code < flags[j].Code })

	return &FlagTable{name: name, width: width, flags: flags}, nil
}

func (t *FlagTable) Name() string { return t.name }

func (t *FlagTable) Kind() types.TableKind { return types.TableKindBitfield }

func (t *FlagTable) Width() int { return t.width }

// Decode returns the label of every set bit, lowest bit first. Never nil.
func (t *FlagTable) Decode(raw uint32) []string {
	out := make([]string, 0, len(t.flags))
	for _, f := range t.flags {
		if raw&(1<<f.Code) != 0 {
			out = append(out, f.Label)
		}
	}
	return out
}

func (t *FlagTable) Entries() []types.CodeEntry {
	return append([]types.CodeEntry(nil), t.flags...)
}

// DecodeSingleLabel decodes raw through a single-label table.
func DecodeSingleLabel(t *LabelTable, raw uint32) (string, error) {
	return t.Decode(raw)
}

// DecodeBitfieldLabels decodes raw through a bitfield table.
func DecodeBitfieldLabels(t *FlagTable, raw uint32) []string {
	return t.Decode(raw)
}
