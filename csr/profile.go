package csr

// An Entry is one peripheral's allocation in a profile. An entry can carry a
// control register index, an interrupt line, a memory region, or any
// combination of the three.
type Entry struct {
	Name   string
	Index  int
	IRQ    int
	Region Region

	HasIndex  bool
	HasIRQ    bool
	HasRegion bool
}

// A Profile is an ordered, immutable mapping from peripheral names to their
// allocations. Profiles are constructed with a ProfileBuilder or by merging
// other profiles.
type Profile struct {
	entries []Entry
	byName  map[string]int
}

// Get returns the entry of the named peripheral.
func (p *Profile) Get(name string) (Entry, bool) {
	i, found := p.byName[name]
	if !found {
		return Entry{}, false
	}

	return p.entries[i], true
}

// Entries returns all the entries in insertion order.
func (p *Profile) Entries() []Entry {
	list := make([]Entry, len(p.entries))
	copy(list, p.entries)

	return list
}

// Names returns the peripheral names in insertion order.
func (p *Profile) Names() []string {
	names := make([]string, len(p.entries))
	for i, e := range p.entries {
		names[i] = e.Name
	}

	return names
}

// Len returns the number of peripherals in the profile.
func (p *Profile) Len() int {
	return len(p.entries)
}

// A ProfileBuilder collects peripheral allocations and builds an immutable
// profile. Registering a name more than once folds the allocations into one
// entry, with later registrations overriding earlier fields.
type ProfileBuilder struct {
	entries []Entry
}

// MakeProfileBuilder returns a builder with no entries.
func MakeProfileBuilder() ProfileBuilder {
	return ProfileBuilder{}
}

// WithCSR registers a control register index for the peripheral.
func (b ProfileBuilder) WithCSR(name string, index int) ProfileBuilder {
	entry, copied := b.entryFor(name)
	entry.Index = index
	entry.HasIndex = true

	return copied
}

// WithIRQ registers an interrupt line for the peripheral.
func (b ProfileBuilder) WithIRQ(name string, line int) ProfileBuilder {
	entry, copied := b.entryFor(name)
	entry.IRQ = line
	entry.HasIRQ = true

	return copied
}

// WithRegion registers a memory region for the peripheral.
func (b ProfileBuilder) WithRegion(name string, base, size uint64) ProfileBuilder {
	entry, copied := b.entryFor(name)
	entry.Region = Region{Base: base, Size: size}
	entry.HasRegion = true

	return copied
}

// WithShadowRegion registers a memory region that is also visible at the
// shadow address.
func (b ProfileBuilder) WithShadowRegion(
	name string,
	base, size, shadow uint64,
) ProfileBuilder {
	entry, copied := b.entryFor(name)
	entry.Region = Region{Base: base, Size: size, Shadow: shadow}
	entry.HasRegion = true

	return copied
}

// Build creates the immutable profile.
func (b ProfileBuilder) Build() *Profile {
	p := &Profile{
		entries: make([]Entry, len(b.entries)),
		byName:  make(map[string]int),
	}

	copy(p.entries, b.entries)
	for i, e := range p.entries {
		p.byName[e.Name] = i
	}

	return p
}

// entryFor returns a pointer to the entry of the name in a copied builder,
// appending a new entry if the name is new. Copying keeps earlier builder
// values usable after the call.
func (b ProfileBuilder) entryFor(name string) (*Entry, ProfileBuilder) {
	copied := ProfileBuilder{
		entries: make([]Entry, len(b.entries)),
	}
	copy(copied.entries, b.entries)

	for i := range copied.entries {
		if copied.entries[i].Name == name {
			return &copied.entries[i], copied
		}
	}

	copied.entries = append(copied.entries, Entry{Name: name})

	return &copied.entries[len(copied.entries)-1], copied
}

// Merge layers the override profile on top of the base profile. Overriding
// entries replace the base fields they set and keep the base fields they do
// not. Names that appear only in the override append after the base order.
// Neither input is modified.
func Merge(base, override *Profile) *Profile {
	merged := &Profile{
		byName: make(map[string]int),
	}

	for _, baseEntry := range base.entries {
		entry := baseEntry
		if overrideEntry, found := override.Get(baseEntry.Name); found {
			entry = overlay(baseEntry, overrideEntry)
		}

		merged.byName[entry.Name] = len(merged.entries)
		merged.entries = append(merged.entries, entry)
	}

	for _, overrideEntry := range override.entries {
		if _, found := base.Get(overrideEntry.Name); found {
			continue
		}

		merged.byName[overrideEntry.Name] = len(merged.entries)
		merged.entries = append(merged.entries, overrideEntry)
	}

	return merged
}

func overlay(base, override Entry) Entry {
	entry := base

	if override.HasIndex {
		entry.Index = override.Index
		entry.HasIndex = true
	}

	if override.HasIRQ {
		entry.IRQ = override.IRQ
		entry.HasIRQ = true
	}

	if override.HasRegion {
		entry.Region = override.Region
		entry.HasRegion = true
	}

	return entry
}
