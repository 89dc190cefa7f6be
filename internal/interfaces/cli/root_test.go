package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCommandStructure(t *testing.T) {
	t.Parallel()

	cmd := NewRootCommand()
	assert.Equal(t, "trialsync", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[strings.Fields(sub.Use)[0]] = true
	}
	for _, want := range []string{"serve", "sync", "match"} {
		assert.True(t, names[want], "subcommand %q should be registered", want)
	}
}

func TestNewRootCommandGlobalFlags(t *testing.T) {
	t.Parallel()

	cmd := NewRootCommand()
	for _, name := range []string{"config", "log-level", "output", "verbose", "timeout", "server"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "flag %q should exist", name)
	}
}

func TestGetCLIContextMissing(t *testing.T) {
	t.Parallel()

	cmd := NewRootCommand()
	_, err := GetCLIContext(cmd)
	assert.Error(t, err)
}

func TestFormatTable(t *testing.T) {
	t.Parallel()

	out := FormatTable(
		[]string{"NCT ID", "TITLE"},
		[][]string{
			{"NCT01234567", "Diabetes Management Study"},
			{"NCT00000001", "Short"},
		},
	)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "NCT ID")
	assert.Contains(t, lines[1], "---")
	assert.Contains(t, lines[2], "NCT01234567")

	// Columns align across rows.
	assert.Equal(t, strings.Index(lines[2], "Diabetes"), strings.Index(lines[3], "Short"))
}

func TestFormatTableEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, FormatTable(nil, nil))
}

func TestFormatTableShortRow(t *testing.T) {
	t.Parallel()

	out := FormatTable([]string{"A", "B"}, [][]string{{"only"}})
	assert.Contains(t, out, "only")
}
