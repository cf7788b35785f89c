package common

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/juanfont/vswitch-promisc/sweep/vsphere/promisc"
)

// FileConfig is the optional HCL policy file. Everything in it can also
// be supplied by flags or environment variables, which take precedence.
type FileConfig struct {
	Server   string        `hcl:"server,optional"`
	Username string        `hcl:"username,optional"`
	Password string        `hcl:"password,optional"`
	Insecure bool          `hcl:"insecure,optional"`
	DryRun   bool          `hcl:"dry_run,optional"`
	Filter   *FilterConfig `hcl:"filter,block"`
}

type FilterConfig struct {
	// Datacenters to sweep by name. Empty means all.
	Datacenters []string `hcl:"datacenters,optional"`
	// Hosts to skip by name.
	ExcludeHosts []string `hcl:"exclude_hosts,optional"`
	// Switches to skip by name.
	ExcludeSwitches []string `hcl:"exclude_switches,optional"`
}

func LoadFileConfig(path string) (*FileConfig, error) {
	var config FileConfig
	if err := hclsimple.DecodeFile(path, nil, &config); err != nil {
		return nil, fmt.Errorf("error loading policy file %s: %w", path, err)
	}
	return &config, nil
}

func (c *FilterConfig) ToFilter() *promisc.Filter {
	if c == nil {
		return nil
	}
	return &promisc.Filter{
		Datacenters:     c.Datacenters,
		ExcludeHosts:    c.ExcludeHosts,
		ExcludeSwitches: c.ExcludeSwitches,
	}
}
