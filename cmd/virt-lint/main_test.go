package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtlint/virtlint/internal/cli"
	"github.com/virtlint/virtlint/internal/cli/config"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	var stdout, stderr bytes.Buffer
	cmd := cli.NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cli.Execute(context.Background(), cmd)
	return stdout.String(), stderr.String(), err
}

func TestVersionFlag(t *testing.T) {
	stdout, _, err := runCLI(t, "", "--version")
	require.NoError(t, err)
	assert.Equal(t, "virt-lint: 0.1.0\n", stdout)
}

func TestBundledValidators(t *testing.T) {
	validators, err := filepath.Abs(filepath.Join("..", "..", "validators"))
	require.NoError(t, err)

	stdout, _, err := runCLI(t, "", "-l", "--script-path", validators)
	require.NoError(t, err)
	for _, tag := range []string{"common", "common/check_numa", "common/check_numa_free", "common/check_node_kvm", "common/check_pcie_root_ports"} {
		assert.Contains(t, strings.Split(stdout, "\n"), tag)
	}
}

func TestDomainFromStdin(t *testing.T) {
	dom := `<domain type='kvm'>
  <memory unit='KiB'>1048576</memory>
  <os><type arch='x86_64' machine='q35'>hvm</type></os>
  <devices><emulator>/usr/bin/qemu-system-x86_64</emulator></devices>
</domain>`

	stdout, stderr, err := runCLI(t, dom)
	require.NoError(t, err, stderr)
	assert.Equal(t,
		"Warning: tags=[\"pci\", \"pci/root-ports\"]\tdomain=Domain\tlevel=Notice\tmsg=No free PCIe root ports found, hotplug might be not possible\n",
		stdout)
}
