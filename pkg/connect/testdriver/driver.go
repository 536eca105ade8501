// Package testdriver provides the "test" connection driver: a fixed fake
// host with two NUMA cells and an x86_64 QEMU emulator, reachable as
// test:///default. It needs no hypervisor and is the default connection.
package testdriver

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"net/url"
	"text/template"

	"github.com/virtlint/virtlint/pkg/connect"
)

// DefaultURI is the only host served by the driver.
const DefaultURI = "test:///default"

// Emulator is the emulator binary advertised by the fake host.
const Emulator = "/usr/bin/qemu-system-x86_64"

//go:embed testdata/capabilities.xml
var capabilitiesXML string

//go:embed testdata/domcaps.xml.tmpl
var domcapsSource string

var domcapsTemplate = template.Must(template.New("domcaps").Parse(domcapsSource))

type machineInfo struct {
	canonical string
	maxCPUs   int
}

var machines = map[string]machineInfo{
	"pc":            {canonical: "pc-i440fx-9.0", maxCPUs: 255},
	"pc-i440fx-9.0": {canonical: "pc-i440fx-9.0", maxCPUs: 255},
	"q35":           {canonical: "pc-q35-9.0", maxCPUs: 288},
	"pc-q35-9.0":    {canonical: "pc-q35-9.0", maxCPUs: 288},
}

// cellsFree holds the free memory of each NUMA cell in bytes.
var cellsFree = []uint64{1 << 30, 2 << 30}

func init() {
	connect.Register("test", Open)
}

// Open returns a connection to the fake host.
func Open(_ context.Context, u *url.URL, logger *slog.Logger) (connect.Conn, error) {
	if u.Path != "/default" {
		return nil, fmt.Errorf("unknown test host %q: only /default is available", u.Path)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Conn{uri: u.String(), logger: logger}, nil
}

// Conn is a connection to the fake host.
type Conn struct {
	uri    string
	logger *slog.Logger
	closed bool
}

// URI implements connect.Conn.
func (c *Conn) URI() string { return c.uri }

// Capabilities implements connect.Conn.
func (c *Conn) Capabilities(_ context.Context) (string, error) {
	if c.closed {
		return "", connect.ErrClosed
	}
	return capabilitiesXML, nil
}

// DomainCapabilities implements connect.Conn.
func (c *Conn) DomainCapabilities(_ context.Context, q connect.DomainCapsQuery) (string, error) {
	if c.closed {
		return "", connect.ErrClosed
	}

	if q.Emulator == "" {
		q.Emulator = Emulator
	}
	if q.Arch == "" {
		q.Arch = "x86_64"
	}
	if q.Machine == "" {
		q.Machine = "pc"
	}
	if q.VirtType == "" {
		q.VirtType = "kvm"
	}

	if q.Emulator != Emulator || q.Arch != "x86_64" {
		return "", fmt.Errorf("unsupported configuration: no emulator %q for arch %q", q.Emulator, q.Arch)
	}
	if q.VirtType != "kvm" && q.VirtType != "qemu" {
		return "", fmt.Errorf("unsupported configuration: virt type %q", q.VirtType)
	}
	m, ok := machines[q.Machine]
	if !ok {
		return "", fmt.Errorf("unsupported configuration: machine %q", q.Machine)
	}

	var buf bytes.Buffer
	err := domcapsTemplate.Execute(&buf, struct {
		connect.DomainCapsQuery
		MaxCPUs int
	}{
		DomainCapsQuery: connect.DomainCapsQuery{
			Emulator: q.Emulator,
			Arch:     q.Arch,
			Machine:  m.canonical,
			VirtType: q.VirtType,
		},
		MaxCPUs: m.maxCPUs,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render domain capabilities: %w", err)
	}

	c.logger.Debug("domain capabilities", slog.String("query", q.String()))
	return buf.String(), nil
}

// CellsFreeMemory implements connect.Conn.
func (c *Conn) CellsFreeMemory(_ context.Context, startCell, maxCells int) ([]uint64, error) {
	if c.closed {
		return nil, connect.ErrClosed
	}
	if startCell < 0 || startCell >= len(cellsFree) {
		return nil, fmt.Errorf("invalid NUMA cell %d", startCell)
	}
	end := min(startCell+maxCells, len(cellsFree))
	out := make([]uint64, end-startCell)
	copy(out, cellsFree[startCell:end])
	return out, nil
}

// Close implements connect.Conn.
func (c *Conn) Close() error {
	c.closed = true
	return nil
}
