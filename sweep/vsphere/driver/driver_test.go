package driver_test

import (
	"bytes"
	"context"
	"testing"

	packersdk "github.com/hashicorp/packer-plugin-sdk/packer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmware/govmomi/simulator"

	"github.com/juanfont/vswitch-promisc/sweep/vsphere/driver"
	"github.com/juanfont/vswitch-promisc/sweep/vsphere/promisc"
)

// newSimulatorServer starts an in-process vCenter simulator with the
// default inventory: one datacenter, a cluster and a standalone host.
func newSimulatorServer(t *testing.T) *simulator.Server {
	t.Helper()

	model := simulator.VPX()
	t.Cleanup(model.Remove)
	require.NoError(t, model.Create())

	server := model.Service.NewServer()
	t.Cleanup(server.Close)
	return server
}

func newTestDriver(t *testing.T, server *simulator.Server) driver.Driver {
	t.Helper()

	d, err := driver.NewDriver(context.Background(), &driver.ConnectConfig{
		Server:   server.URL.String(),
		Username: "user",
		Password: "pass",
	})
	require.NoError(t, err)
	return d
}

func TestNewDriver(t *testing.T) {
	ctx := context.Background()

	t.Run("authenticates with valid credentials", func(t *testing.T) {
		server := newSimulatorServer(t)

		d, err := driver.NewDriver(ctx, &driver.ConnectConfig{
			Server:   server.URL.String(),
			Username: "user",
			Password: "pass",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, d.About())
		require.NoError(t, d.Disconnect(ctx))
	})

	t.Run("rejects empty credentials", func(t *testing.T) {
		server := newSimulatorServer(t)

		_, err := driver.NewDriver(ctx, &driver.ConnectConfig{
			Server: server.URL.String(),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unable to authenticate")
	})

	t.Run("rejects an unreachable server", func(t *testing.T) {
		model := simulator.VPX()
		defer model.Remove()
		require.NoError(t, model.Create())
		server := model.Service.NewServer()
		address := server.URL.String()
		server.Close()

		_, err := driver.NewDriver(ctx, &driver.ConnectConfig{
			Server:   address,
			Username: "user",
			Password: "pass",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unable to connect")
	})

	t.Run("rejects an empty server address", func(t *testing.T) {
		_, err := driver.NewDriver(ctx, &driver.ConnectConfig{})
		require.Error(t, err)
	})
}

func TestVSphereDriverInventory(t *testing.T) {
	ctx := context.Background()
	server := newSimulatorServer(t)
	d := newTestDriver(t, server)
	t.Cleanup(func() { _ = d.Disconnect(ctx) })

	datacenters, err := d.Datacenters(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, datacenters)

	hostTotal := 0
	switchTotal := 0
	for _, dc := range datacenters {
		assert.NotEmpty(t, dc.Name)

		hosts, err := d.Hosts(ctx, dc)
		require.NoError(t, err)
		hostTotal += len(hosts)

		for _, host := range hosts {
			assert.NotEmpty(t, host.Name)
			assert.True(t, host.Connected())

			switches, err := d.VirtualSwitches(ctx, host)
			require.NoError(t, err)
			// Every simulated host carries at least vSwitch0.
			require.NotEmpty(t, switches)
			switchTotal += len(switches)

			for _, sw := range switches {
				assert.Equal(t, host.Name, sw.HostName)
				assert.NotEmpty(t, sw.Name)
			}
		}
	}
	assert.Greater(t, hostTotal, 1)
	assert.GreaterOrEqual(t, switchTotal, hostTotal)
}

func snapshotSwitches(t *testing.T, d driver.Driver) map[string]bool {
	t.Helper()
	ctx := context.Background()

	snapshot := map[string]bool{}
	datacenters, err := d.Datacenters(ctx)
	require.NoError(t, err)
	for _, dc := range datacenters {
		hosts, err := d.Hosts(ctx, dc)
		require.NoError(t, err)
		for _, host := range hosts {
			switches, err := d.VirtualSwitches(ctx, host)
			require.NoError(t, err)
			for _, sw := range switches {
				snapshot[dc.Name+"/"+sw.HostName+"/"+sw.Name] = sw.AllowPromiscuous
			}
		}
	}
	return snapshot
}

// TestSweeperDryRunAgainstSimulator drives the whole traversal against
// the simulator and verifies a dry run leaves the server untouched.
func TestSweeperDryRunAgainstSimulator(t *testing.T) {
	ctx := context.Background()
	server := newSimulatorServer(t)
	d := newTestDriver(t, server)
	t.Cleanup(func() { _ = d.Disconnect(ctx) })

	before := snapshotSwitches(t, d)
	require.NotEmpty(t, before)

	wouldChange := 0
	for _, promiscuous := range before {
		if !promiscuous {
			wouldChange++
		}
	}

	var out, errOut bytes.Buffer
	ui := &packersdk.BasicUi{
		Reader:      new(bytes.Buffer),
		Writer:      &out,
		ErrorWriter: &errOut,
	}

	s := &promisc.Sweeper{Driver: d, Ui: ui, DryRun: true}
	result, err := s.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Errors)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, len(before), result.Switches)
	assert.Equal(t, wouldChange, result.Changed)
	assert.Equal(t, result.Switches, result.Changed+result.Failed+result.Unchanged())

	after := snapshotSwitches(t, d)
	assert.Equal(t, before, after)
}
