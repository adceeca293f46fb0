package main

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "talisman version ")
}

func TestTaxonomyCommand(t *testing.T) {
	out, err := execute(t, "taxonomy", "--offline")
	require.NoError(t, err)
	assert.Contains(t, out, "연애\n  시작 단계\n    짝사랑\n      - 언제 고백할지\n")
}

func TestTaxonomyCommand_Mermaid(t *testing.T) {
	out, err := execute(t, "taxonomy", "--offline", "--mermaid")
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD\n")
	assert.Contains(t, out, `c0["연애"]`)
	assert.NotContains(t, out, "classDef")
}

func TestConfigRequiresInference(t *testing.T) {
	t.Setenv("TALISMAN_OFFLINE", "false")
	t.Setenv("TALISMAN_INFERENCE_URL", "")
	_, err := execute(t, "session", "ls")
	assert.ErrorContains(t, err, "inference.url")
}

func TestSessionLsOffline(t *testing.T) {
	out, err := execute(t, "session", "ls", "--offline")
	require.NoError(t, err)
	assert.Contains(t, out, "No active sessions found.")
}

// resetFlags undoes the parsing of a previous Execute on the shared command tree.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
