package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapcrm/internal/cli/config"
	"github.com/leapstack-labs/leapcrm/internal/cli/output"
	"github.com/leapstack-labs/leapcrm/internal/cli/testutil"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()

	want := []string{
		"version", "login", "register", "logout", "whoami", "views", "list",
		"browse", "picklist", "create", "dashboard", "serve", "doctor", "completion",
	}
	got := make(map[string]bool)
	for _, c := range root.Commands() {
		got[c.Name()] = true
	}
	for _, name := range want {
		assert.True(t, got[name], "missing subcommand %s", name)
	}

	for _, flag := range []string{"config", "api-url", "session", "timeout", "output", "verbose"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "missing persistent flag %s", flag)
	}
}

func TestNewRootCmd_OutputCompletion(t *testing.T) {
	root := NewRootCmd()

	fn, ok := root.GetFlagCompletionFunc("output")
	require.True(t, ok)
	values, directive := fn(root, nil, "")
	assert.Equal(t, []string{"auto", "text", "markdown", "json", "csv"}, values)
	assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			out, err := execute(t, "completion", shell)
			require.NoError(t, err)
			assert.Contains(t, out, "leapcrm")
		})
	}

	_, err := execute(t, "completion", "tcsh")
	assert.Error(t, err)
}

// The session database persists the token between invocations.
func TestRoot_SessionAcrossInvocations(t *testing.T) {
	ts := testutil.StartDevServer(t, 45)
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)

	common := []string{
		"--api-url", testutil.APIURL(ts),
		"--session", filepath.Join(dir, "session.db"),
		"-o", string(output.ModeMarkdown),
	}
	run := func(args ...string) (string, error) {
		return execute(t, append(args, common...)...)
	}

	_, err := run("whoami")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not signed in")

	out, err := run("login", "--email", "demo@leapcrm.dev", "--password", "demo1234")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Demo User")

	out, err = run("whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "- **Email:** demo@leapcrm.dev")

	out, err = run("list", "companies", "--page-size", "20", "--page", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Showing 41-45 of 45, page 3 of 3")
	testutil.AssertValidMarkdown(t, out)

	out, err = run("list", "companies", "-f", "industryId=Agriculture")
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(out, "| Agriculture |"))

	_, err = run("logout")
	require.NoError(t, err)

	_, err = run("whoami")
	require.Error(t, err)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	root := NewRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}
