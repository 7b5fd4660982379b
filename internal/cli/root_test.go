package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memberdesk/memberdesk/internal/cli/commands"
)

func TestVersion(t *testing.T) {
	SetVersion("1.2.3")
	t.Cleanup(func() { version = "dev" })

	failing := func(*cobra.Command) (*commands.Env, error) {
		return nil, errors.New("version must not open storage")
	}

	var out bytes.Buffer
	root := NewRootCmd(failing)
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "memberdesk version 1.2.3\n", out.String())
}

func TestCommandTree(t *testing.T) {
	root := NewRootCmd(commands.DefaultEnv)

	for _, path := range [][]string{
		{"login"},
		{"logout"},
		{"whoami"},
		{"applications", "ls"},
		{"applications", "approve"},
		{"payments", "reject"},
		{"self-declarations", "reject"},
		{"members", "show"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}

	cmd, _, err := root.Find([]string{"self-declarations", "reject"})
	require.NoError(t, err)
	assert.NotNil(t, cmd.Flags().Lookup("reason"))

	cmd, _, err = root.Find([]string{"payments", "reject"})
	require.NoError(t, err)
	assert.Nil(t, cmd.Flags().Lookup("reason"))
}
