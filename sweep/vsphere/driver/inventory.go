package driver

import (
	"context"

	"github.com/pkg/errors"
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/property"
	"github.com/vmware/govmomi/view"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"
)

// Datacenter is a read-only grouping of hosts.
type Datacenter struct {
	Name string
	ref  types.ManagedObjectReference
}

// Host is a single compute node. Switches are only listed and changed on
// hosts whose connection state is "connected".
type Host struct {
	Name            string
	ConnectionState string
	ref             types.ManagedObjectReference
}

func (h *Host) Connected() bool {
	return h.ConnectionState == string(types.HostSystemConnectionStateConnected)
}

// VirtualSwitch is a standard vSwitch on a single host. AllowPromiscuous
// holds the value observed when the switch was listed; EnablePromiscuous
// updates it after a successful change.
type VirtualSwitch struct {
	HostName         string
	Name             string
	AllowPromiscuous bool
	hostRef          types.ManagedObjectReference
}

// Datacenters lists every datacenter visible to the session, in the
// order the server returns them.
func (d *VSphereDriver) Datacenters(ctx context.Context) ([]*Datacenter, error) {
	manager := view.NewManager(d.client.Client)
	v, err := manager.CreateContainerView(ctx, d.client.ServiceContent.RootFolder, []string{"Datacenter"}, true)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create datacenter view")
	}
	defer func() { _ = v.Destroy(ctx) }()

	var entities []mo.Datacenter
	if err := v.Retrieve(ctx, []string{"Datacenter"}, []string{"name"}, &entities); err != nil {
		return nil, errors.Wrap(err, "unable to list datacenters")
	}

	datacenters := make([]*Datacenter, 0, len(entities))
	for _, dc := range entities {
		datacenters = append(datacenters, &Datacenter{
			Name: dc.Name,
			ref:  dc.Self,
		})
	}
	return datacenters, nil
}

// Hosts lists every host in the datacenter, including hosts inside
// clusters and hosts that are disconnected or in maintenance.
func (d *VSphereDriver) Hosts(ctx context.Context, dc *Datacenter) ([]*Host, error) {
	manager := view.NewManager(d.client.Client)
	v, err := manager.CreateContainerView(ctx, dc.ref, []string{"HostSystem"}, true)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to create host view for datacenter %s", dc.Name)
	}
	defer func() { _ = v.Destroy(ctx) }()

	var entities []mo.HostSystem
	if err := v.Retrieve(ctx, []string{"HostSystem"}, []string{"name", "runtime.connectionState"}, &entities); err != nil {
		return nil, errors.Wrapf(err, "unable to list hosts in datacenter %s", dc.Name)
	}

	hosts := make([]*Host, 0, len(entities))
	for _, host := range entities {
		hosts = append(hosts, &Host{
			Name:            host.Name,
			ConnectionState: string(host.Runtime.ConnectionState),
			ref:             host.Self,
		})
	}
	return hosts, nil
}

// VirtualSwitches lists the standard switches of a host together with
// the promiscuous-mode policy each one currently carries.
func (d *VSphereDriver) VirtualSwitches(ctx context.Context, host *Host) ([]*VirtualSwitch, error) {
	vswitches, err := d.hostVirtualSwitches(ctx, host.ref)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read network config of host %s", host.Name)
	}

	switches := make([]*VirtualSwitch, 0, len(vswitches))
	for _, vs := range vswitches {
		switches = append(switches, &VirtualSwitch{
			HostName:         host.Name,
			Name:             vs.Name,
			AllowPromiscuous: allowsPromiscuous(vs.Spec),
			hostRef:          host.ref,
		})
	}
	return switches, nil
}

// EnablePromiscuous sets the promiscuous-mode policy of the switch to
// accept. The switch spec is re-read first so the update carries the
// current port count and bridge config rather than the ones seen at
// listing time.
func (d *VSphereDriver) EnablePromiscuous(ctx context.Context, sw *VirtualSwitch) error {
	vswitches, err := d.hostVirtualSwitches(ctx, sw.hostRef)
	if err != nil {
		return errors.Wrapf(err, "unable to read network config of host %s", sw.HostName)
	}

	var spec *types.HostVirtualSwitchSpec
	for i := range vswitches {
		if vswitches[i].Name == sw.Name {
			spec = &vswitches[i].Spec
			break
		}
	}
	if spec == nil {
		return errors.Errorf("virtual switch %s no longer present on host %s", sw.Name, sw.HostName)
	}

	if spec.Policy == nil {
		spec.Policy = &types.HostNetworkPolicy{}
	}
	if spec.Policy.Security == nil {
		spec.Policy.Security = &types.HostNetworkSecurityPolicy{}
	}
	spec.Policy.Security.AllowPromiscuous = types.NewBool(true)

	host := object.NewHostSystem(d.client.Client, sw.hostRef)
	networkSystem, err := host.ConfigManager().NetworkSystem(ctx)
	if err != nil {
		return errors.Wrapf(err, "unable to get network system of host %s", sw.HostName)
	}
	if err := networkSystem.UpdateVirtualSwitch(ctx, sw.Name, *spec); err != nil {
		return errors.Wrapf(err, "unable to update virtual switch %s on host %s", sw.Name, sw.HostName)
	}

	sw.AllowPromiscuous = true
	return nil
}

func (d *VSphereDriver) hostVirtualSwitches(ctx context.Context, ref types.ManagedObjectReference) ([]types.HostVirtualSwitch, error) {
	var host mo.HostSystem
	collector := property.DefaultCollector(d.client.Client)
	if err := collector.RetrieveOne(ctx, ref, []string{"config.network.vswitch"}, &host); err != nil {
		return nil, err
	}
	if host.Config == nil || host.Config.Network == nil {
		return nil, nil
	}
	return host.Config.Network.Vswitch, nil
}

func allowsPromiscuous(spec types.HostVirtualSwitchSpec) bool {
	if spec.Policy == nil || spec.Policy.Security == nil {
		return false
	}
	allow := spec.Policy.Security.AllowPromiscuous
	return allow != nil && *allow
}
