package commands

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BMO568/vscode-cordova/pkg/logger"
)

func TestRootCommandTree(t *testing.T) {
	t.Parallel()

	root, err := NewRootCmd(logger.New(t.Name()))
	require.NoError(t, err)
	require.Equal(t, "cordova-dbg", root.Use)

	names := map[string]bool{}
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"launch", "attach", "devices", "info", "version"} {
		require.True(t, names[want], "missing subcommand %q", want)
	}

	require.NotNil(t, root.PersistentFlags().Lookup("verbosity"))
	require.NotNil(t, root.PersistentFlags().ShorthandLookup("v"))
}

func TestLaunchCommandFlags(t *testing.T) {
	t.Parallel()

	cmd, err := NewLaunchCommand(logger.New(t.Name()))
	require.NoError(t, err)

	for _, flag := range []string{
		"platform", "simulate", "target", "config", "project-root", "tool",
		"livereload", "env-file", "server-ready-timeout", "app-ready-timeout",
	} {
		require.NotNil(t, cmd.Flags().Lookup(flag), "missing flag %q", flag)
	}
}

func TestAttachCommandFlags(t *testing.T) {
	t.Parallel()

	cmd, err := NewAttachCommand(logger.New(t.Name()))
	require.NoError(t, err)

	require.NotNil(t, cmd.Flags().Lookup("platform"))
	require.NotNil(t, cmd.Flags().Lookup("inspect-url"))
	require.NotNil(t, cmd.Flags().Lookup("local-port"))
}
