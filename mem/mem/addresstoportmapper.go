package mem

// RemotePort is the name of a port that requests can be routed to.
type RemotePort string

// AddressToPortMapper helps a crossbar find the memory-side port that should
// hold the data at a certain address.
type AddressToPortMapper interface {
	Find(address uint64) (RemotePort, bool)
}

// RangeAddressPortMapper finds the low module by the address ranges that the
// low modules claim. Interleaved ranges are resolved bit by bit, so channels
// that stripe the same region are told apart.
type RangeAddressPortMapper struct {
	index                   *RangeIndex[RemotePort]
	ModuleForOtherAddresses RemotePort
}

// NewRangeAddressPortMapper creates a mapper that has no ranges yet.
func NewRangeAddressPortMapper() *RangeAddressPortMapper {
	return &RangeAddressPortMapper{
		index: NewRangeIndex[RemotePort](),
	}
}

// AddRange registers a port as the owner of a range.
func (f *RangeAddressPortMapper) AddRange(r AddrRange, port RemotePort) error {
	return f.index.Insert(r, port)
}

// NumRanges returns the number of registered ranges.
func (f *RangeAddressPortMapper) NumRanges() int {
	return f.index.Len()
}

// Find returns the port that owns the address. Addresses that no range holds
// go to ModuleForOtherAddresses if it is set.
func (f *RangeAddressPortMapper) Find(address uint64) (RemotePort, bool) {
	port, _, found := f.index.Lookup(address)
	if found {
		return port, true
	}

	if f.ModuleForOtherAddresses != "" {
		return f.ModuleForOtherAddresses, true
	}

	return "", false
}
