package root

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	require.Contains(t, names, "run")
	require.Contains(t, names, "version")
}

func TestExecute_HelpWithoutSubcommand(t *testing.T) {
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	require.Contains(t, out.String(), "smelter reads a source tree")
}

func TestExecute_UnknownCommand(t *testing.T) {
	require.Error(t, Execute(context.Background(), []string{"bogus"}))
}
