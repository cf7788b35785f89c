// Copyright 2025 Juan Font
// BSD-3-Clause

package driver

import (
	"context"
	"net/url"

	"github.com/pkg/errors"
	"github.com/vmware/govmomi"
	"github.com/vmware/govmomi/session"
	"github.com/vmware/govmomi/vim25"
	"github.com/vmware/govmomi/vim25/soap"
)

// Driver is the management-server client used by the sweep. It hides the
// vim25 SOAP plumbing behind the handful of calls the traversal needs.
type Driver interface {
	About() string
	Datacenters(ctx context.Context) ([]*Datacenter, error)
	Hosts(ctx context.Context, dc *Datacenter) ([]*Host, error)
	VirtualSwitches(ctx context.Context, host *Host) ([]*VirtualSwitch, error)
	EnablePromiscuous(ctx context.Context, sw *VirtualSwitch) error
	Disconnect(ctx context.Context) error
}

type VSphereDriver struct {
	client *govmomi.Client
	about  string
}

type ConnectConfig struct {
	Server             string
	Username           string
	Password           string
	InsecureConnection bool
}

func NewDriver(ctx context.Context, config *ConnectConfig) (Driver, error) {
	sdkURL, err := soap.ParseURL(config.Server)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid server address %q", config.Server)
	}
	if sdkURL == nil {
		return nil, errors.New("no server address provided")
	}
	sdkURL.User = url.UserPassword(config.Username, config.Password)

	client, err := newClient(ctx, sdkURL, config.InsecureConnection)
	if err != nil {
		return nil, err
	}

	driver := &VSphereDriver{
		client: client,
		about:  client.ServiceContent.About.FullName,
	}

	return driver, nil
}

// About describes the server the driver is connected to.
func (d *VSphereDriver) About() string {
	return d.about
}

// Disconnect terminates the authenticated session on the server. The
// session is invalid afterwards; the driver must not be reused.
func (d *VSphereDriver) Disconnect(ctx context.Context) error {
	return d.client.Logout(ctx)
}

func newClient(ctx context.Context, sdkURL *url.URL, insecure bool) (*govmomi.Client, error) {
	soapClient := soap.NewClient(sdkURL, insecure)
	vimClient, err := vim25.NewClient(ctx, soapClient)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to connect to %q", sdkURL.Host)
	}

	sessionManager := session.NewManager(vimClient)
	if err := sessionManager.Login(ctx, sdkURL.User); err != nil {
		return nil, errors.Wrapf(err, "unable to authenticate to %q", sdkURL.Host)
	}

	return &govmomi.Client{
		Client:         vimClient,
		SessionManager: sessionManager,
	}, nil
}
