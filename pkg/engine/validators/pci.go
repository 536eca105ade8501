package validators

import (
	"fmt"
	"strings"

	"github.com/virtlint/virtlint/pkg/engine"
	"github.com/virtlint/virtlint/pkg/lint"
)

const msgNoFreeRootPort = "No free PCIe root ports found, hotplug might be not possible"

func init() {
	engine.Register(engine.Validator{
		Name:        "check_pcie_root_ports",
		Tags:        []string{"pci", "pci/root-ports"},
		Description: "A q35 domain keeps at least one PCIe root port free for hotplug",
		Check:       checkPCIeRootPorts,
	})
}

func checkPCIeRootPorts(c *engine.Context) error {
	dom := c.Domain()

	virtType, err := dom.First("//domain/@type")
	if err != nil {
		return err
	}
	if virtType != "kvm" && virtType != "qemu" {
		return nil
	}
	machine, err := dom.First("//domain/os/type/@machine")
	if err != nil {
		return err
	}
	if !strings.Contains(machine, "q35") {
		return nil
	}

	chassis, err := dom.Eval("//domain/devices/controller[@type='pci' and @model='pcie-root-port']/target/@chassis")
	if err != nil {
		return err
	}
	free := make(map[uint64]bool, len(chassis))
	for _, raw := range chassis {
		n, err := engine.ParseInt(raw)
		if err != nil {
			return fmt.Errorf("root port chassis: %w", err)
		}
		free[n] = true
	}

	buses, err := dom.Eval("//domain/devices//address[@type='pci']/@bus")
	if err != nil {
		return err
	}
	for _, raw := range buses {
		n, err := engine.ParseInt(raw)
		if err != nil {
			return fmt.Errorf("PCI address bus: %w", err)
		}
		delete(free, n)
	}

	if len(free) == 0 {
		c.AddWarning(lint.DomainDomain, lint.LevelNotice, msgNoFreeRootPort)
	}
	return nil
}
