package commands

import (
	"fmt"
	"io"

	"github.com/virtlint/virtlint/pkg/lint"
)

// ProgramName is printed by --version and in help.
const ProgramName = "virt-lint"

// PrintVersion writes "virt-lint: MAJOR.MINOR.PATCH" for the packed
// library version.
func PrintVersion(w io.Writer) {
	_, _ = fmt.Fprintln(w, lint.FormatVersion(ProgramName, lint.Version()))
}
