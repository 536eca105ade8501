package validators

import (
	"fmt"

	"github.com/virtlint/virtlint/pkg/engine"
	"github.com/virtlint/virtlint/pkg/lint"
)

const (
	msgNoNUMAFit  = "Domain would not fit into any host NUMA node"
	msgNoNUMAFree = "Not enough free memory on any NUMA node"
)

func init() {
	engine.Register(engine.Validator{
		Name:        "check_numa",
		Tags:        []string{"numa", "numa/fit"},
		Description: "Domain memory fits into at least one host NUMA node",
		Check:       checkNUMA,
	})
	engine.Register(engine.Validator{
		Name:        "check_numa_free",
		Tags:        []string{"numa", "numa/free"},
		Description: "At least one host NUMA node has enough free memory for the domain",
		Check:       checkNUMAFree,
	})
}

// domainMemory returns the domain memory in bytes. ok is false when the
// description does not state it.
func domainMemory(dom *engine.Document) (mem uint64, ok bool, err error) {
	nodes, err := dom.Nodes("//domain/memory")
	if err != nil || len(nodes) == 0 {
		return 0, false, err
	}
	mem, err = engine.ParseMemory(nodes[0].InnerText(), nodes[0].SelectAttr("unit"))
	if err != nil {
		return 0, false, fmt.Errorf("domain memory: %w", err)
	}
	return mem, true, nil
}

func checkNUMA(c *engine.Context) error {
	caps, err := c.Capabilities()
	if err != nil || caps == nil {
		return err
	}
	mem, ok, err := domainMemory(c.Domain())
	if err != nil || !ok {
		return err
	}

	cells, err := caps.Nodes("//capabilities/host/topology/cells/cell/memory")
	if err != nil {
		return err
	}
	for _, cell := range cells {
		size, err := engine.ParseMemory(cell.InnerText(), cell.SelectAttr("unit"))
		if err != nil {
			return fmt.Errorf("NUMA node memory: %w", err)
		}
		if size > mem {
			return nil
		}
	}

	c.AddWarning(lint.DomainDomain, lint.LevelError, msgNoNUMAFit)
	return nil
}

func checkNUMAFree(c *engine.Context) error {
	conn, err := c.Conn()
	if err != nil || conn == nil {
		return err
	}
	caps, err := c.Capabilities()
	if err != nil || caps == nil {
		return err
	}
	mem, ok, err := domainMemory(c.Domain())
	if err != nil || !ok {
		return err
	}

	ids, err := caps.Eval("//capabilities/host/topology/cells/cell/@id")
	if err != nil {
		return err
	}
	for _, raw := range ids {
		id, err := engine.ParseInt(raw)
		if err != nil {
			return fmt.Errorf("NUMA node id: %w", err)
		}
		free, err := conn.CellsFreeMemory(c.Context(), int(id), 1)
		if err != nil {
			return fmt.Errorf("unable to get free memory of NUMA node %d: %w", id, err)
		}
		if len(free) > 0 && free[0] > mem {
			return nil
		}
	}

	c.AddWarning(lint.DomainDomain, lint.LevelError, msgNoNUMAFree)
	return nil
}
