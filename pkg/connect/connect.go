// Package connect defines the host connection a lint session is bound to and
// a registry of connection drivers keyed by URI scheme.
package connect

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
)

// ErrClosed is returned by a connection used after Close.
var ErrClosed = errors.New("connection is closed")

// DomainCapsQuery identifies one domain capabilities document on a host.
// Empty fields let the host pick its default.
type DomainCapsQuery struct {
	Emulator string
	Arch     string
	Machine  string
	VirtType string
}

// String returns the query in emulator/arch/machine/virttype form.
func (q DomainCapsQuery) String() string {
	return strings.Join([]string{q.Emulator, q.Arch, q.Machine, q.VirtType}, "/")
}

// Matches reports whether q selects a document described by other.
// Empty fields in q match anything.
func (q DomainCapsQuery) Matches(other DomainCapsQuery) bool {
	match := func(want, have string) bool { return want == "" || want == have }
	return match(q.Emulator, other.Emulator) &&
		match(q.Arch, other.Arch) &&
		match(q.Machine, other.Machine) &&
		match(q.VirtType, other.VirtType)
}

// Conn is an established session with a virtualization host.
type Conn interface {
	// URI returns the URI the connection was opened with.
	URI() string

	// Capabilities returns the host capabilities XML.
	Capabilities(ctx context.Context) (string, error)

	// DomainCapabilities returns the domain capabilities XML matching q.
	DomainCapabilities(ctx context.Context, q DomainCapsQuery) (string, error)

	// CellsFreeMemory returns the free memory in bytes of up to maxCells
	// NUMA cells starting at startCell.
	CellsFreeMemory(ctx context.Context, startCell, maxCells int) ([]uint64, error)

	// Close releases the connection.
	Close() error
}

// ParseDomainCapsQuery extracts the identifying fields of a domain
// capabilities document.
func ParseDomainCapsQuery(xml string) (DomainCapsQuery, error) {
	doc, err := xmlquery.Parse(strings.NewReader(xml))
	if err != nil {
		return DomainCapsQuery{}, fmt.Errorf("unable to parse domain capabilities: %w", err)
	}

	root := xmlquery.FindOne(doc, "/domainCapabilities")
	if root == nil {
		return DomainCapsQuery{}, fmt.Errorf("not a domain capabilities document")
	}

	text := func(expr string) string {
		if n := xmlquery.FindOne(root, expr); n != nil {
			return strings.TrimSpace(n.InnerText())
		}
		return ""
	}

	return DomainCapsQuery{
		Emulator: text("path"),
		Arch:     text("arch"),
		Machine:  text("machine"),
		VirtType: text("domain"),
	}, nil
}
