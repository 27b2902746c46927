package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const twoStepCUE = `package app

topic: topic3: {
	permission: ["p1", "p2"]
	guardCallbacks: [["g1"], ["g2"]]
	fireCallbacks: ["done"]
}

net: {
	places: {ready: 1, half: 0, cycles: 0}
	transitions: {
		p1: {"in": {ready: 1}, out: {half: 1}}
		p2: {"in": {half: 1}, out: {ready: 1}}
		done: {out: {cycles: 1}, informed: true}
	}
	guards: {g1: false, g2: false}
}
`

const eventTopicsYAML = `- name: onDone
  permission: done
  guardCallbacks: [[g1]]
`

// writeSpecs writes files into a fresh directory and returns it.
func writeSpecs(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// execute runs cmd with args and returns its stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
