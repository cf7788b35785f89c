// Copyright 2025 Juan Font
// BSD-3-Clause

package promisc

import (
	"context"
	"fmt"

	packersdk "github.com/hashicorp/packer-plugin-sdk/packer"

	"github.com/juanfont/vswitch-promisc/sweep/vsphere/driver"
)

type outcome int

const (
	outcomeUnchanged outcome = iota
	outcomeChanged
	outcomeFailed
)

// Sweeper walks every datacenter, host and standard switch reachable
// through the driver and converges each switch's promiscuous-mode
// policy to accept. The walk is sequential and never retries: listing
// failures are counted and skipped, not fatal.
type Sweeper struct {
	Driver driver.Driver
	Ui     packersdk.Ui
	// DryRun reports the switches that would change without changing
	// them.
	DryRun bool
	// Filter narrows the sweep; nil sweeps everything.
	Filter *Filter
}

// Run performs one sweep. A datacenter enumeration failure aborts the
// run; every failure below that is accounted in the result and skipped.
func (s *Sweeper) Run(ctx context.Context) (*Result, error) {
	result := &Result{DryRun: s.DryRun}

	datacenters, err := s.Driver.Datacenters(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing datacenters: %w", err)
	}
	if len(datacenters) == 0 {
		s.Ui.Say("No datacenters found.")
		return result, nil
	}

	for _, dc := range datacenters {
		if !s.Filter.DatacenterAllowed(dc.Name) {
			s.Ui.Sayf("Skipping datacenter %s: not selected by policy", dc.Name)
			continue
		}
		s.sweepDatacenter(ctx, dc, result)
	}

	return result, nil
}

func (s *Sweeper) sweepDatacenter(ctx context.Context, dc *driver.Datacenter, result *Result) {
	s.Ui.Sayf("Datacenter: %s", dc.Name)

	hosts, err := s.Driver.Hosts(ctx, dc)
	if err != nil {
		s.Ui.Errorf("Error listing hosts in datacenter %s: %s", dc.Name, err)
		result.Errors++
		return
	}

	// Hosts are counted before the connectivity and exclusion checks.
	result.Hosts += len(hosts)

	for _, host := range hosts {
		s.sweepHost(ctx, host, result)
	}
}

func (s *Sweeper) sweepHost(ctx context.Context, host *driver.Host, result *Result) {
	if s.Filter.HostExcluded(host.Name) {
		s.Ui.Sayf("  Host %s: skipped (excluded by policy)", host.Name)
		return
	}
	if !host.Connected() {
		s.Ui.Sayf("  Host %s: skipped (%s)", host.Name, host.ConnectionState)
		return
	}

	switches, err := s.Driver.VirtualSwitches(ctx, host)
	if err != nil {
		s.Ui.Errorf("  Error listing switches on host %s: %s", host.Name, err)
		result.Errors++
		return
	}
	if len(switches) == 0 {
		s.Ui.Sayf("  Host %s: no standard switches", host.Name)
		return
	}

	for _, sw := range switches {
		if s.Filter.SwitchExcluded(sw.Name) {
			s.Ui.Sayf("  %s/%s: skipped (excluded by policy)", host.Name, sw.Name)
			continue
		}
		result.Switches++
		switch s.applySwitch(ctx, sw) {
		case outcomeChanged:
			result.Changed++
		case outcomeFailed:
			result.Failed++
		}
	}
}

// applySwitch converges one switch. A switch that already accepts
// promiscuous traffic is never touched, so a second pass over the same
// inventory changes nothing.
func (s *Sweeper) applySwitch(ctx context.Context, sw *driver.VirtualSwitch) outcome {
	if sw.AllowPromiscuous {
		s.Ui.Sayf("  %s/%s: already accepts promiscuous traffic", sw.HostName, sw.Name)
		return outcomeUnchanged
	}

	if s.DryRun {
		s.Ui.Sayf("  %s/%s: would enable promiscuous mode", sw.HostName, sw.Name)
		return outcomeChanged
	}

	if err := s.Driver.EnablePromiscuous(ctx, sw); err != nil {
		s.Ui.Errorf("  %s/%s: failed to enable promiscuous mode: %s", sw.HostName, sw.Name, err)
		return outcomeFailed
	}

	s.Ui.Sayf("  %s/%s: promiscuous mode enabled", sw.HostName, sw.Name)
	return outcomeChanged
}
