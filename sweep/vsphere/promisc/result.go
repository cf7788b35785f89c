package promisc

// Result accumulates the counters for one sweep. It is built up during
// the traversal and returned once at the end.
type Result struct {
	// Hosts seen across all swept datacenters, counted before any
	// connectivity or exclusion skip.
	Hosts int
	// Standard switches found on eligible hosts.
	Switches int
	// Switches whose promiscuous-mode policy changed, or would change
	// under a dry run.
	Changed int
	// Switches whose change was attempted and failed.
	Failed int
	// Listing failures: hosts of a datacenter, or switches of a host.
	Errors int
	// Whether the sweep ran without applying changes.
	DryRun bool
}

// Unchanged reports the number of switches that already accepted
// promiscuous traffic when they were listed.
func (r *Result) Unchanged() int {
	return r.Switches - r.Changed - r.Failed
}
