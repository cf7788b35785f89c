// Copyright 2025 Juan Font
// BSD-3-Clause

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/packer-plugin-sdk/multistep"
	packersdk "github.com/hashicorp/packer-plugin-sdk/packer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/juanfont/vswitch-promisc/sweep/vsphere/common"
	"github.com/juanfont/vswitch-promisc/sweep/vsphere/promisc"
	"github.com/juanfont/vswitch-promisc/version"
)

var rootCmd = &cobra.Command{
	Use:           "vswitch-promisc [flags] SERVER",
	Short:         "Enable promiscuous mode on every standard vSwitch of a vSphere inventory",
	Args:          cobra.MaximumNArgs(1),
	Version:       version.Version,
	SilenceErrors: true,
	RunE:          runSweep,
}

func init() {
	viper.SetEnvPrefix("")
	viper.AutomaticEnv()

	// Also load from .env file if present
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.ReadInConfig()

	rootCmd.Flags().StringP("username", "u", "", "Username to authenticate with (prompted if absent)")
	rootCmd.Flags().String("password", "", "Password to authenticate with (prompted if absent)")
	rootCmd.Flags().BoolP("insecure", "k", false, "Skip verification of the server TLS certificate")
	rootCmd.Flags().BoolP("dry-run", "n", false, "Report the switches that would change without changing them")
	rootCmd.Flags().StringP("config", "c", "", "Path to an HCL policy file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// getEnv returns the first non-empty value among the given environment
// variable names.
func getEnv(keys ...string) string {
	for _, key := range keys {
		value := viper.GetString(key)
		if value != "" {
			return value
		}
	}
	return ""
}

func runSweep(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	configPath, _ := cmd.Flags().GetString("config")
	fileConfig := &common.FileConfig{}
	if configPath != "" {
		var err error
		fileConfig, err = common.LoadFileConfig(configPath)
		if err != nil {
			return err
		}
	}

	server := ""
	if len(args) > 0 {
		server = args[0]
	}
	if server == "" {
		server = getEnv("VSPHERE_SERVER", "GOVC_URL")
	}
	if server == "" {
		server = fileConfig.Server
	}
	if server == "" {
		return fmt.Errorf("no server address: pass SERVER, set VSPHERE_SERVER or GOVC_URL, or set 'server' in the policy file")
	}

	username, _ := cmd.Flags().GetString("username")
	if username == "" {
		username = getEnv("VSPHERE_USERNAME", "GOVC_USERNAME")
	}
	if username == "" {
		username = fileConfig.Username
	}

	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		password = getEnv("VSPHERE_PASSWORD", "GOVC_PASSWORD")
	}
	if password == "" {
		password = fileConfig.Password
	}

	insecure, _ := cmd.Flags().GetBool("insecure")
	if !insecure {
		if value := getEnv("VSPHERE_INSECURE", "GOVC_INSECURE"); value != "" {
			insecure, _ = strconv.ParseBool(value)
		}
	}
	if !insecure {
		insecure = fileConfig.Insecure
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if !cmd.Flags().Changed("dry-run") && fileConfig.DryRun {
		dryRun = true
	}

	connectConfig := &common.ConnectConfig{
		Server:   strings.TrimSpace(server),
		Username: username,
		Password: password,
		Insecure: insecure,
	}
	creds := common.NewTerminalCredentials(os.Stdin, os.Stderr)
	if err := common.ResolveCredentials(connectConfig, creds); err != nil {
		return err
	}

	sweepConfig := &common.SweepConfig{
		DryRun: dryRun,
		Filter: fileConfig.Filter.ToFilter(),
	}

	var errs *packersdk.MultiError
	errs = packersdk.MultiErrorAppend(errs, connectConfig.Prepare()...)
	errs = packersdk.MultiErrorAppend(errs, sweepConfig.Prepare()...)
	if len(errs.Errors) > 0 {
		return errs
	}

	ui := &packersdk.BasicUi{
		Reader:      os.Stdin,
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
	}

	if dryRun {
		ui.Say("Dry run: no changes will be made.")
	}

	state := new(multistep.BasicStateBag)
	state.Put("ui", ui)

	steps := []multistep.Step{
		&common.StepConnect{Config: connectConfig},
		&common.StepSweep{Config: sweepConfig},
	}

	runner := &multistep.BasicRunner{Steps: steps}
	runner.Run(cmd.Context(), state)

	if rawErr, ok := state.GetOk("error"); ok {
		return rawErr.(error)
	}

	rawResult, ok := state.GetOk("result")
	if !ok {
		return fmt.Errorf("sweep did not complete")
	}
	printSummary(ui, rawResult.(*promisc.Result))

	return nil
}

func printSummary(ui packersdk.Ui, result *promisc.Result) {
	ui.Say("")
	ui.Sayf("Hosts processed:  %d", result.Hosts)
	ui.Sayf("Switches found:   %d", result.Switches)
	if result.DryRun {
		ui.Sayf("Would change:     %d", result.Changed)
	} else {
		ui.Sayf("Switches changed: %d", result.Changed)
	}
	if result.Failed > 0 {
		ui.Errorf("Failed to change: %d", result.Failed)
	}
	ui.Sayf("Listing errors:   %d", result.Errors)
}
