package memintf

import "fmt"

// AddrMapping is the order of the row, rank, bank, channel and column fields
// in a physical address, from the most significant field to the least.
type AddrMapping struct {
	kind addrMappingKind
	raw  string
}

type addrMappingKind int

const (
	addrMappingUnknown addrMappingKind = iota
	addrMappingRoRaBaChCo
	addrMappingRoRaBaCoCh
	addrMappingRoCoRaBaCh
	addrMappingRoRaChCoBaCo
)

// Known address mappings.
var (
	// RoRaBaChCo places the channel bits right above the column bits, so a
	// whole row buffer is served by a single channel.
	RoRaBaChCo = AddrMapping{kind: addrMappingRoRaBaChCo, raw: "RoRaBaChCo"}

	// RoRaBaCoCh places the channel bits at the bottom.
	RoRaBaCoCh = AddrMapping{kind: addrMappingRoRaBaCoCh, raw: "RoRaBaCoCh"}

	// RoCoRaBaCh places the channel bits at the bottom and the column bits
	// right below the row bits.
	RoCoRaBaCh = AddrMapping{kind: addrMappingRoCoRaBaCh, raw: "RoCoRaBaCh"}

	// RoRaChCoBaCo splits the column bits around the bank bits. Used by
	// processing-in-memory DRAMs that keep a page within a group of banks.
	RoRaChCoBaCo = AddrMapping{
		kind: addrMappingRoRaChCoBaCo,
		raw:  "RoRaChCoBaCo",
	}
)

var knownAddrMappings = []AddrMapping{
	RoRaBaChCo, RoRaBaCoCh, RoCoRaBaCh, RoRaChCoBaCo,
}

// ParseAddrMapping converts a mapping name into an AddrMapping. Names that are
// not recognized are kept as unknown mappings rather than rejected, since
// interfaces defined elsewhere may carry orders this package does not model.
func ParseAddrMapping(s string) AddrMapping {
	for _, m := range knownAddrMappings {
		if m.raw == s {
			return m
		}
	}

	return AddrMapping{kind: addrMappingUnknown, raw: s}
}

// KnownAddrMappings returns the names of all recognized mappings.
func KnownAddrMappings() []string {
	names := make([]string, 0, len(knownAddrMappings))
	for _, m := range knownAddrMappings {
		names = append(names, m.raw)
	}

	return names
}

// Known tells if the mapping is one of the recognized orders.
func (m AddrMapping) Known() bool {
	return m.kind != addrMappingUnknown
}

// String returns the name of the mapping.
func (m AddrMapping) String() string {
	if m.raw == "" {
		return "<unset>"
	}

	return m.raw
}

// MarshalText implements encoding.TextMarshaler.
func (m AddrMapping) MarshalText() ([]byte, error) {
	return []byte(m.raw), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *AddrMapping) UnmarshalText(text []byte) error {
	*m = ParseAddrMapping(string(text))
	return nil
}

// GoString helps debugging output.
func (m AddrMapping) GoString() string {
	return fmt.Sprintf("memintf.ParseAddrMapping(%q)", m.raw)
}
