// Package filedriver provides the "file" connection driver, which serves a
// host snapshot stored in a directory:
//
//	capabilities.xml   host capabilities (required)
//	domcaps/*.xml      domain capabilities documents
//	freemem.yaml       free memory per NUMA cell, in bytes
//
// A snapshot is opened as file:///path/to/dir.
package filedriver

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/virtlint/virtlint/pkg/connect"
)

// Snapshot file names.
const (
	CapabilitiesFile = "capabilities.xml"
	DomainCapsDir    = "domcaps"
	FreeMemoryFile   = "freemem.yaml"
)

func init() {
	connect.Register("file", Open)
}

type domcapsEntry struct {
	file  string
	query connect.DomainCapsQuery
	xml   string
}

// freeMemory is the layout of freemem.yaml.
type freeMemory struct {
	Cells map[int]uint64 `yaml:"cells"`
}

// Conn serves a host snapshot.
type Conn struct {
	uri     string
	dir     string
	caps    string
	domcaps []domcapsEntry
	free    map[int]uint64
	logger  *slog.Logger
	closed  bool
}

// Open loads the snapshot in the directory named by the URI path.
func Open(_ context.Context, u *url.URL, logger *slog.Logger) (connect.Conn, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if u.Host != "" {
		return nil, fmt.Errorf("file URI must not name a host: %q", u.String())
	}
	if u.Path == "" {
		return nil, fmt.Errorf("file URI must name a snapshot directory")
	}
	return Load(u.String(), filepath.FromSlash(u.Path), logger)
}

// Load reads a snapshot directory.
func Load(uri, dir string, logger *slog.Logger) (*Conn, error) {
	caps, err := os.ReadFile(filepath.Join(dir, CapabilitiesFile)) //nolint:gosec // G304: snapshot directory chosen by the user
	if err != nil {
		return nil, fmt.Errorf("failed to read host capabilities: %w", err)
	}

	c := &Conn{
		uri:    uri,
		dir:    dir,
		caps:   string(caps),
		free:   map[int]uint64{},
		logger: logger,
	}

	if err := c.loadDomainCaps(); err != nil {
		return nil, err
	}
	if err := c.loadFreeMemory(); err != nil {
		return nil, err
	}

	logger.Debug("loaded host snapshot",
		slog.String("dir", dir),
		slog.Int("domcaps", len(c.domcaps)),
		slog.Int("cells", len(c.free)))
	return c, nil
}

func (c *Conn) loadDomainCaps() error {
	files, err := filepath.Glob(filepath.Join(c.dir, DomainCapsDir, "*.xml"))
	if err != nil {
		return fmt.Errorf("failed to scan domain capabilities: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		data, err := os.ReadFile(file) //nolint:gosec // G304: path comes from Glob within the snapshot directory
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}
		q, err := connect.ParseDomainCapsQuery(string(data))
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		c.domcaps = append(c.domcaps, domcapsEntry{file: file, query: q, xml: string(data)})
	}
	return nil
}

func (c *Conn) loadFreeMemory() error {
	data, err := os.ReadFile(filepath.Join(c.dir, FreeMemoryFile)) //nolint:gosec // G304: snapshot directory chosen by the user
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read free memory: %w", err)
	}

	var fm freeMemory
	if err := yaml.Unmarshal(data, &fm); err != nil {
		return fmt.Errorf("failed to parse %s: %w", FreeMemoryFile, err)
	}
	for cell, bytes := range fm.Cells {
		c.free[cell] = bytes
	}
	return nil
}

// URI implements connect.Conn.
func (c *Conn) URI() string { return c.uri }

// Capabilities implements connect.Conn.
func (c *Conn) Capabilities(_ context.Context) (string, error) {
	if c.closed {
		return "", connect.ErrClosed
	}
	return c.caps, nil
}

// DomainCapabilities implements connect.Conn. The first document, in file
// name order, matching q is returned.
func (c *Conn) DomainCapabilities(_ context.Context, q connect.DomainCapsQuery) (string, error) {
	if c.closed {
		return "", connect.ErrClosed
	}
	for _, e := range c.domcaps {
		if q.Matches(e.query) {
			c.logger.Debug("domain capabilities", slog.String("query", q.String()), slog.String("file", e.file))
			return e.xml, nil
		}
	}
	return "", fmt.Errorf("no domain capabilities matching %s in %s", q, c.dir)
}

// CellsFreeMemory implements connect.Conn.
func (c *Conn) CellsFreeMemory(_ context.Context, startCell, maxCells int) ([]uint64, error) {
	if c.closed {
		return nil, connect.ErrClosed
	}
	if _, ok := c.free[startCell]; !ok {
		return nil, fmt.Errorf("no free memory recorded for NUMA cell %d", startCell)
	}

	var out []uint64
	for cell := startCell; cell < startCell+maxCells; cell++ {
		bytes, ok := c.free[cell]
		if !ok {
			break
		}
		out = append(out, bytes)
	}
	return out, nil
}

// Close implements connect.Conn.
func (c *Conn) Close() error {
	c.closed = true
	return nil
}
