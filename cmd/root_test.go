package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"run", "serve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "relation-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.NotNil(t, rootCmd.RunE, "root command runs the pipeline without a subcommand")
}

func TestRunFlags(t *testing.T) {
	for _, cmdFlags := range []struct {
		name string
		get  func(string) bool
	}{
		{"root", func(n string) bool { return rootCmd.Flags().Lookup(n) != nil }},
		{"run", func(n string) bool { return runCmd.Flags().Lookup(n) != nil }},
	} {
		for _, flag := range []string{"relation", "target", "out", "save-raw"} {
			assert.True(t, cmdFlags.get(flag), "%s should have --%s flag", cmdFlags.name, flag)
		}
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}
