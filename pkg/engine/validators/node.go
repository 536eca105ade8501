package validators

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/virtlint/virtlint/pkg/engine"
	"github.com/virtlint/virtlint/pkg/lint"
)

const msgNoEmulator = "No suitable emulator found"

func init() {
	engine.Register(engine.Validator{
		Name:        "check_node_kvm",
		Tags:        []string{"node", "node/emulator"},
		Description: "The host offers an emulator for the domain's arch, machine and virt type",
		Check:       checkNodeKVM,
	})
}

// checkNodeKVM warns when no guest in the host capabilities matches the
// description. Without capabilities it only warns when the domain
// capabilities lookup failed.
func checkNodeKVM(c *engine.Context) error {
	_, err := c.DomainCapabilities()
	if errors.Is(err, engine.ErrNoConnection) {
		return err
	}
	emit := err != nil
	if emit {
		c.Logger().Debug("domain capabilities lookup failed", slog.Any("error", err))
	}

	caps, err := c.Capabilities()
	if err != nil {
		return err
	}
	if caps != nil {
		q, err := c.DomainCapsQuery()
		if err != nil {
			return err
		}

		var preds []string
		if q.Arch != "" {
			preds = append(preds, "@name="+engine.XPathLiteral(q.Arch))
		}
		if q.Emulator != "" {
			preds = append(preds, "emulator/text()="+engine.XPathLiteral(q.Emulator))
		}
		if q.Machine != "" {
			preds = append(preds, "machine/text()="+engine.XPathLiteral(q.Machine))
		}
		if q.VirtType != "" {
			preds = append(preds, "domain/@type="+engine.XPathLiteral(q.VirtType))
		}

		expr := "//capabilities/guest/arch"
		if len(preds) > 0 {
			expr += "[" + strings.Join(preds, " and ") + "]"
		}
		found, err := caps.Eval(expr)
		if err != nil {
			return err
		}
		emit = len(found) == 0
	}

	if emit {
		c.AddWarning(lint.DomainNode, lint.LevelWarning, msgNoEmulator)
	}
	return nil
}
