// Reports the promiscuous-mode policy of every standard vSwitch without
// changing anything.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/juanfont/vswitch-promisc/sweep/vsphere/driver"
)

func getEnv(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

func main() {
	server := getEnv("VSPHERE_SERVER", "GOVC_URL")
	username := getEnv("VSPHERE_USERNAME", "GOVC_USERNAME")
	password := getEnv("VSPHERE_PASSWORD", "GOVC_PASSWORD")
	insecure := getEnv("VSPHERE_INSECURE", "GOVC_INSECURE") == "true" ||
		getEnv("VSPHERE_INSECURE", "GOVC_INSECURE") == "1"

	if server == "" || username == "" || password == "" {
		log.Fatal("VSPHERE_SERVER, VSPHERE_USERNAME and VSPHERE_PASSWORD are required")
	}

	ctx := context.Background()
	d, err := driver.NewDriver(ctx, &driver.ConnectConfig{
		Server:             server,
		Username:           username,
		Password:           password,
		InsecureConnection: insecure,
	})
	if err != nil {
		log.Fatalf("Connect failed: %v", err)
	}
	defer func() { _ = d.Disconnect(ctx) }()

	fmt.Printf("Connected to %s\n\n", d.About())

	accept, reject := 0, 0
	datacenters, err := d.Datacenters(ctx)
	if err != nil {
		log.Fatalf("List datacenters failed: %v", err)
	}

	for _, dc := range datacenters {
		hosts, err := d.Hosts(ctx, dc)
		if err != nil {
			log.Printf("List hosts in %s error: %v", dc.Name, err)
			continue
		}
		for _, host := range hosts {
			if !host.Connected() {
				fmt.Printf("%s/%s: host %s, skipped\n", dc.Name, host.Name, host.ConnectionState)
				continue
			}
			switches, err := d.VirtualSwitches(ctx, host)
			if err != nil {
				log.Printf("List switches on %s error: %v", host.Name, err)
				continue
			}
			for _, sw := range switches {
				mode := "reject"
				if sw.AllowPromiscuous {
					mode = "accept"
					accept++
				} else {
					reject++
				}
				fmt.Printf("%s/%s/%s  promiscuous: %s\n", dc.Name, host.Name, sw.Name, mode)
			}
		}
	}

	fmt.Printf("\n%d switches accept promiscuous traffic, %d reject\n", accept, reject)
}
