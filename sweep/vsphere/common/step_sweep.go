package common

import (
	"context"
	"fmt"

	"github.com/hashicorp/packer-plugin-sdk/multistep"
	packersdk "github.com/hashicorp/packer-plugin-sdk/packer"

	"github.com/juanfont/vswitch-promisc/sweep/vsphere/driver"
	"github.com/juanfont/vswitch-promisc/sweep/vsphere/promisc"
)

type SweepConfig struct {
	// Report the switches that would change without changing them.
	// Defaults to `false`.
	DryRun bool
	// Filter narrows the sweep to parts of the inventory. Unset sweeps
	// everything.
	Filter *promisc.Filter
}

func (c *SweepConfig) Prepare() []error {
	var errs []error

	return errs
}

type StepSweep struct {
	Config *SweepConfig
}

func (s *StepSweep) Run(ctx context.Context, state multistep.StateBag) multistep.StepAction {
	ui := state.Get("ui").(packersdk.Ui)
	d := state.Get("driver").(driver.Driver)

	sweeper := &promisc.Sweeper{
		Driver: d,
		Ui:     ui,
		DryRun: s.Config.DryRun,
		Filter: s.Config.Filter,
	}

	result, err := sweeper.Run(ctx)
	if err != nil {
		err = fmt.Errorf("error sweeping inventory: %w", err)
		state.Put("error", err)
		ui.Error(err.Error())
		return multistep.ActionHalt
	}
	state.Put("result", result)

	return multistep.ActionContinue
}

func (s *StepSweep) Cleanup(state multistep.StateBag) {
	// Nothing to clean up.
}
