package validators

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtlint/virtlint/internal/testutil"
	"github.com/virtlint/virtlint/pkg/connect"
	"github.com/virtlint/virtlint/pkg/connect/testdriver"
	"github.com/virtlint/virtlint/pkg/engine"
	"github.com/virtlint/virtlint/pkg/lint"
)

type domainSpec struct {
	memory   string
	unit     string
	virtType string
	arch     string
	machine  string
	devices  string
}

func (d domainSpec) XML() string {
	if d.memory == "" {
		d.memory = "1048576"
	}
	if d.unit == "" {
		d.unit = "KiB"
	}
	if d.virtType == "" {
		d.virtType = "kvm"
	}
	if d.arch == "" {
		d.arch = "x86_64"
	}
	if d.machine == "" {
		d.machine = "q35"
	}
	return fmt.Sprintf(`<domain type='%s'>
  <name>test</name>
  <memory unit='%s'>%s</memory>
  <os><type arch='%s' machine='%s'>hvm</type></os>
  <devices>
    <emulator>/usr/bin/qemu-system-x86_64</emulator>
%s
  </devices>
</domain>`, d.virtType, d.unit, d.memory, d.arch, d.machine, d.devices)
}

func testConn(t *testing.T) connect.Conn {
	t.Helper()
	conn, err := connect.Open(context.Background(), testdriver.DefaultURI, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func validate(t *testing.T, conn connect.Conn, desc string, tags ...string) []lint.Warning {
	t.Helper()
	s := engine.New(engine.WithLogger(testutil.NewTestLogger(t))).Open(conn)
	defer s.Close()

	require.NoError(t, s.Validate(context.Background(), desc, lint.TagSet(tags), false))
	warnings, err := s.Warnings()
	require.NoError(t, err)
	return warnings
}

func messages(warnings []lint.Warning) []string {
	var out []string
	for _, w := range warnings {
		out = append(out, w.Msg)
	}
	return out
}

func TestBuiltinsRegistered(t *testing.T) {
	tags, err := engine.New().ListTags()
	require.NoError(t, err)
	for _, want := range []string{"node", "node/emulator", "numa", "numa/fit", "numa/free", "pci", "pci/root-ports"} {
		assert.Contains(t, tags, want)
	}
}

func TestCheckNUMA(t *testing.T) {
	tests := []struct {
		name string
		dom  domainSpec
		want []string
	}{
		{name: "fits", dom: domainSpec{memory: "1048576"}},
		{name: "just below node size", dom: domainSpec{memory: "4194303"}},
		{name: "node size is not enough", dom: domainSpec{memory: "4194304"}, want: []string{msgNoNUMAFit}},
		{name: "too big", dom: domainSpec{memory: "8", unit: "GiB"}, want: []string{msgNoNUMAFit}},
	}

	conn := testConn(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := validate(t, conn, tt.dom.XML(), "numa/fit")
			assert.Equal(t, tt.want, messages(warnings))
			for _, w := range warnings {
				assert.Equal(t, []string{"numa", "numa/fit"}, w.Tags)
				assert.Equal(t, lint.DomainDomain, w.Domain)
				assert.Equal(t, lint.LevelError, w.Level)
			}
		})
	}
}

func TestCheckNUMA_Offline(t *testing.T) {
	warnings := validate(t, nil, domainSpec{memory: "64", unit: "GiB"}.XML(), "numa")
	assert.Empty(t, warnings, "no host data, nothing to compare against")
}

func TestCheckNUMA_BadMemory(t *testing.T) {
	s := engine.New().Open(testConn(t))
	err := s.Validate(context.Background(), domainSpec{memory: "lots"}.XML(), lint.TagSet{"numa/fit"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check_numa")
}

func TestCheckNUMAFree(t *testing.T) {
	tests := []struct {
		name string
		dom  domainSpec
		want []string
	}{
		{name: "fits in second cell", dom: domainSpec{memory: "1536", unit: "MiB"}},
		{name: "equal to largest free", dom: domainSpec{memory: "2", unit: "GiB"}, want: []string{msgNoNUMAFree}},
		{name: "larger than any free", dom: domainSpec{memory: "3", unit: "GiB"}, want: []string{msgNoNUMAFree}},
	}

	conn := testConn(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := validate(t, conn, tt.dom.XML(), "numa/free")
			assert.Equal(t, tt.want, messages(warnings))
		})
	}
}

func TestCheckNUMAFree_StrictOffline(t *testing.T) {
	s := engine.New().Open(nil)
	err := s.Validate(context.Background(), domainSpec{}.XML(), lint.TagSet{"numa/free"}, true)
	assert.ErrorIs(t, err, engine.ErrNoConnection)
}

func TestCheckNodeKVM(t *testing.T) {
	tests := []struct {
		name string
		dom  domainSpec
		want []string
	}{
		{name: "q35 kvm", dom: domainSpec{machine: "q35"}},
		{name: "pc qemu", dom: domainSpec{virtType: "qemu", machine: "pc"}},
		{name: "foreign arch", dom: domainSpec{arch: "aarch64", machine: "virt"}, want: []string{msgNoEmulator}},
		{name: "unknown machine", dom: domainSpec{machine: "microvm"}, want: []string{msgNoEmulator}},
	}

	conn := testConn(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := validate(t, conn, tt.dom.XML(), "node/emulator")
			assert.Equal(t, tt.want, messages(warnings))
			for _, w := range warnings {
				assert.Equal(t, lint.DomainNode, w.Domain)
				assert.Equal(t, lint.LevelWarning, w.Level)
			}
		})
	}
}

func TestCheckNodeKVM_OfflineCapabilities(t *testing.T) {
	const domcaps = `<domainCapabilities>
  <path>/usr/bin/qemu-system-x86_64</path>
  <domain>kvm</domain>
  <machine>pc-q35-9.0</machine>
  <arch>x86_64</arch>
</domainCapabilities>`
	const capsWithout = `<capabilities><guest><arch name='x86_64'>
  <emulator>/usr/bin/qemu-system-x86_64</emulator>
  <machine>pc-i440fx-9.0</machine>
  <domain type='kvm'/>
</arch></guest></capabilities>`

	s := engine.New().Open(nil)
	defer s.Close()
	require.NoError(t, s.AddDomainCapabilities(domcaps))
	require.NoError(t, s.SetCapabilities(capsWithout))

	require.NoError(t, s.Validate(context.Background(), domainSpec{}.XML(), lint.TagSet{"node"}, false))
	warnings, err := s.Warnings()
	require.NoError(t, err)
	assert.Equal(t, []string{msgNoEmulator}, messages(warnings))
}

func TestCheckNodeKVM_CapabilitiesOnly(t *testing.T) {
	const caps = `<capabilities><guest><arch name='x86_64'>
  <emulator>/usr/bin/qemu-system-x86_64</emulator>
  <machine>pc-q35-9.0</machine>
  <machine canonical='pc-q35-9.0'>q35</machine>
  <domain type='kvm'/>
</arch></guest></capabilities>`

	tests := []struct {
		name string
		dom  domainSpec
		want []string
	}{
		{name: "matching guest", dom: domainSpec{}},
		{name: "foreign arch", dom: domainSpec{arch: "aarch64", machine: "virt"}, want: []string{msgNoEmulator}},
		{name: "other virt type", dom: domainSpec{virtType: "qemu"}, want: []string{msgNoEmulator}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := engine.New().Open(nil)
			defer s.Close()
			require.NoError(t, s.SetCapabilities(caps))

			require.NoError(t, s.Validate(context.Background(), tt.dom.XML(), lint.TagSet{"node"}, false))
			warnings, err := s.Warnings()
			require.NoError(t, err)
			assert.Equal(t, tt.want, messages(warnings))
		})
	}
}

func TestCheckNodeKVM_NoCapabilities(t *testing.T) {
	s := engine.New().Open(nil)
	defer s.Close()

	require.NoError(t, s.Validate(context.Background(), domainSpec{}.XML(), lint.TagSet{"node"}, false))
	warnings, err := s.Warnings()
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestCheckPCIeRootPorts(t *testing.T) {
	rootPorts := `
    <controller type='pci' index='0' model='pcie-root'/>
    <controller type='pci' index='1' model='pcie-root-port'><target chassis='1' port='0x10'/></controller>
    <controller type='pci' index='2' model='pcie-root-port'><target chassis='2' port='0x11'/></controller>`

	tests := []struct {
		name string
		dom  domainSpec
		want []string
	}{
		{
			name: "one port left",
			dom:  domainSpec{devices: rootPorts + `<interface type='network'><address type='pci' domain='0x0000' bus='0x01' slot='0x00' function='0x0'/></interface>`},
		},
		{
			name: "all ports taken",
			dom: domainSpec{devices: rootPorts +
				`<interface type='network'><address type='pci' bus='0x01' slot='0x00'/></interface>` +
				`<disk type='file'><address type='pci' bus='0x02' slot='0x00'/></disk>`},
			want: []string{msgNoFreeRootPort},
		},
		{
			name: "no root ports at all",
			dom:  domainSpec{},
			want: []string{msgNoFreeRootPort},
		},
		{
			name: "not q35",
			dom:  domainSpec{machine: "pc-i440fx-9.0"},
		},
		{
			name: "not kvm or qemu",
			dom:  domainSpec{virtType: "xen"},
		},
		{
			name: "versioned q35",
			dom:  domainSpec{machine: "pc-q35-9.0", virtType: "qemu"},
			want: []string{msgNoFreeRootPort},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := validate(t, nil, tt.dom.XML(), "pci/root-ports")
			assert.Equal(t, tt.want, messages(warnings))
			for _, w := range warnings {
				assert.Equal(t, lint.LevelNotice, w.Level)
				assert.Equal(t, []string{"pci", "pci/root-ports"}, w.Tags)
			}
		})
	}
}

func TestCheckPCIeRootPorts_BadBus(t *testing.T) {
	s := engine.New().Open(nil)
	err := s.Validate(context.Background(),
		domainSpec{devices: `<disk><address type='pci' bus='0xzz'/></disk>`}.XML(),
		lint.TagSet{"pci"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PCI address bus")
}

func TestAllBuiltins(t *testing.T) {
	warnings := validate(t, testConn(t), domainSpec{memory: "3", unit: "GiB"}.XML())

	assert.Equal(t, []lint.Warning{
		{Tags: []string{"numa", "numa/free"}, Domain: lint.DomainDomain, Level: lint.LevelError, Msg: msgNoNUMAFree},
		{Tags: []string{"pci", "pci/root-ports"}, Domain: lint.DomainDomain, Level: lint.LevelNotice, Msg: msgNoFreeRootPort},
	}, warnings)
}
