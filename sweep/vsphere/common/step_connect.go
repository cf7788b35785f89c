package common

import (
	"context"
	"fmt"
	"log"
	"reflect"

	"github.com/hashicorp/packer-plugin-sdk/multistep"
	packersdk "github.com/hashicorp/packer-plugin-sdk/packer"

	"github.com/juanfont/vswitch-promisc/sweep/vsphere/driver"
)

type ConnectConfig struct {
	// The fully qualified domain name or IP address of the vCenter Server
	// or ESXi host, optionally with a port or as a full URL.
	Server string
	// The username to authenticate with the server.
	Username string
	// The password to authenticate with the server.
	Password string

	// Do not validate the certificate of the server.
	// Defaults to `false`.
	//
	// -> **Note:** This option is beneficial in scenarios where the certificate
	// is self-signed or does not meet standard validation criteria.
	Insecure bool
}

func (c *ConnectConfig) Prepare() []error {
	var errs []error

	if c.Server == "" {
		errs = append(errs, fmt.Errorf("'server' is required"))
	}
	if c.Username == "" {
		errs = append(errs, fmt.Errorf("'username' is required"))
	}
	if c.Password == "" {
		errs = append(errs, fmt.Errorf("'password' is required"))
	}

	return errs
}

type StepConnect struct {
	Config *ConnectConfig
}

func (s *StepConnect) Run(ctx context.Context, state multistep.StateBag) multistep.StepAction {
	ui := state.Get("ui").(packersdk.Ui)

	ui.Sayf("Connecting to %s...", s.Config.Server)
	d, err := driver.NewDriver(ctx, &driver.ConnectConfig{
		Server:             s.Config.Server,
		Username:           s.Config.Username,
		Password:           s.Config.Password,
		InsecureConnection: s.Config.Insecure,
	})
	if err != nil {
		state.Put("error", err)
		return multistep.ActionHalt
	}
	ui.Sayf("Connected to %s", d.About())
	state.Put("driver", d)

	return multistep.ActionContinue
}

// Cleanup closes the session. It runs on every exit path once Run has
// stored a driver, including halts of later steps.
func (s *StepConnect) Cleanup(state multistep.StateBag) {
	ui := state.Get("ui").(packersdk.Ui)
	d, ok := state.GetOk("driver")
	if !ok {
		log.Printf("[INFO] No driver in state; nothing to cleanup.")
		return
	}

	drv, ok := d.(driver.Driver)
	if !ok {
		log.Printf("[ERROR] The object stored in the state under 'driver' key is of type '%s', not 'driver.Driver'. This could indicate a problem with the state initialization or management.", reflect.TypeOf(d))
		return
	}

	ui.Say("Closing session...")

	if err := drv.Disconnect(context.Background()); err != nil {
		log.Printf("[WARN] Failed to close the vSphere session. The session may already be closed: %s", err.Error())
	}
}
