package lint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/virtlint/virtlint/pkg/lint"
)

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		packed uint32
		want   string
	}{
		{1002003, "name: 1.1002.3"},
		{1000, "name: 0.1.0"},
		{0, "name: 0.0.0"},
		{999, "name: 0.0.999"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, lint.FormatVersion("name", tt.packed))
		})
	}
}

func TestPackVersion(t *testing.T) {
	assert.Equal(t, uint32(1002003), lint.PackVersion(1, 2, 3))
	assert.Equal(t, lint.PackVersion(lint.VersionMajor, lint.VersionMinor, lint.VersionPatch), lint.Version())
}
