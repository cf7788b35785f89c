package common

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Credentials supplies whatever the flags, environment and policy file
// did not. The traversal itself never prompts; only the CLI entry point
// uses a terminal-backed implementation.
type Credentials interface {
	Username() (string, error)
	Password() (string, error)
}

// ResolveCredentials fills the empty fields of the connect config from
// the credential source. Fields that already have a value are kept.
func ResolveCredentials(config *ConnectConfig, creds Credentials) error {
	if config.Username == "" {
		username, err := creds.Username()
		if err != nil {
			return fmt.Errorf("error reading username: %w", err)
		}
		config.Username = username
	}
	if config.Password == "" {
		password, err := creds.Password()
		if err != nil {
			return fmt.Errorf("error reading password: %w", err)
		}
		config.Password = password
	}
	return nil
}

// TerminalCredentials prompts on out and reads from in. The password is
// read without echo and requires in to be a terminal.
type TerminalCredentials struct {
	in  *os.File
	out io.Writer
}

func NewTerminalCredentials(in *os.File, out io.Writer) *TerminalCredentials {
	return &TerminalCredentials{in: in, out: out}
}

func (t *TerminalCredentials) Username() (string, error) {
	fmt.Fprint(t.out, "Username: ")
	line, err := bufio.NewReader(t.in).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (t *TerminalCredentials) Password() (string, error) {
	fd := int(t.in.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("standard input is not a terminal; use --password or VSPHERE_PASSWORD instead")
	}

	fmt.Fprint(t.out, "Password: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(t.out)
	if err != nil {
		return "", err
	}
	return string(password), nil
}
