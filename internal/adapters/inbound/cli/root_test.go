package cli_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pensieve/pensieve-doctor/internal/adapters/inbound/cli"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmdForTest()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_Version(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "pensieve-doctor dev (none)")
}

func TestRootCmd_UnknownCommand(t *testing.T) {
	_, err := execute(t, "frobnicate")
	require.Error(t, err)
}

func TestRootCmd_Help(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "pensieve-doctor")
	for _, sub := range []string{"scan", "fix", "health", "migrate", "endpoints", "mcp", "version"} {
		assert.Contains(t, out, sub)
	}
}

func TestRootCmd_SubcommandsRegistered(t *testing.T) {
	cmd := cli.NewRootCmdForTest()

	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"scan", "fix", "health", "migrate", "endpoints", "mcp", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestMigrateCmd_HasSubcommands(t *testing.T) {
	cmd := cli.NewRootCmdForTest()

	for _, c := range cmd.Commands() {
		if c.Name() != "migrate" {
			continue
		}
		names := map[string]bool{}
		for _, sub := range c.Commands() {
			names[sub.Name()] = true
		}
		assert.True(t, names["assess"])
		assert.True(t, names["plan"])
		assert.True(t, names["run"])
		return
	}
	t.Fatal("migrate command not registered")
}
