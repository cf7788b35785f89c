package promisc

import "slices"

// Filter narrows a sweep to parts of the inventory. The nil filter
// allows everything. Matching is by exact name.
type Filter struct {
	// Datacenters to sweep. Empty means all datacenters.
	Datacenters []string
	// Hosts to skip. Skipped hosts still count as processed.
	ExcludeHosts []string
	// Switches to leave alone entirely.
	ExcludeSwitches []string
}

func (f *Filter) DatacenterAllowed(name string) bool {
	if f == nil || len(f.Datacenters) == 0 {
		return true
	}
	return slices.Contains(f.Datacenters, name)
}

func (f *Filter) HostExcluded(name string) bool {
	return f != nil && slices.Contains(f.ExcludeHosts, name)
}

func (f *Filter) SwitchExcluded(name string) bool {
	return f != nil && slices.Contains(f.ExcludeSwitches, name)
}
