package cli

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "baboon", cmd.Use)
	assert.Contains(t, cmd.Short, "Baboon")
	assert.Contains(t, cmd.Long, "Petri-net primitive")
}

func TestSubcommandFlags(t *testing.T) {
	tests := []struct {
		command string
		flags   []string
	}{
		{"validate", nil},
		{"compile", []string{"output"}},
		{"test", []string{"update", "filter", "specs", "golden"}},
		{"trace", []string{"db", "run", "topic", "kind", "events"}},
		{"diff", []string{"db", "right-db", "left", "right"}},
	}

	root := NewRootCommand()
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			sub, _, err := root.Find([]string{tt.command})
			require.NoError(t, err)
			assert.Equal(t, tt.command, sub.Name())
			for _, name := range tt.flags {
				assert.NotNil(t, sub.Flags().Lookup(name), "--%s", name)
			}
		})
	}
}

func TestFlagDefaults(t *testing.T) {
	root := NewRootCommand()

	verbose := root.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)
	assert.Equal(t, "text", root.PersistentFlags().Lookup("format").DefValue)

	compile, _, err := root.Find([]string{"compile"})
	require.NoError(t, err)
	assert.Equal(t, "o", compile.Flags().Lookup("output").Shorthand)

	test, _, err := root.Find([]string{"test"})
	require.NoError(t, err)
	assert.Equal(t, "false", test.Flags().Lookup("update").DefValue)
}

func TestFormatValidation(t *testing.T) {
	for _, f := range ValidFormats {
		assert.True(t, isValidFormat(f), f)
	}
	for _, f := range []string{"xml", "", "TEXT"} {
		assert.False(t, isValidFormat(f), f)
	}
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "invalid", "compile", "."})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		env     string
		want    slog.Level
	}{
		{"default", false, "", slog.LevelWarn},
		{"verbose", true, "", slog.LevelDebug},
		{"env overrides verbose", true, "error", slog.LevelError},
		{"env info", false, "INFO", slog.LevelInfo},
		{"env with spaces", false, " warn ", slog.LevelWarn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := logLevel(tt.verbose, tt.env)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := logLevel(false, "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), LogLevelEnv)
}

func TestInvalidLogLevelFailsCommand(t *testing.T) {
	t.Setenv(LogLevelEnv, "loud")

	cmd := NewRootCommand()
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"validate", t.TempDir()})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid BABOON_LOG_LEVEL")
}
