package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/baboon/internal/compiler"
)

func TestValidateValidSpecs(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"app.cue": twoStepCUE})

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All specs valid (1 topic(s))")
}

func TestValidateValidSpecsJSON(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"app.cue": twoStepCUE})

	out, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), dir)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, data["valid"])
	assert.Equal(t, float64(1), data["topics"])
}

func TestValidateNonExistentDirectory(t *testing.T) {
	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestValidateLintErrors(t *testing.T) {
	dir := writeSpecs(t, map[string]string{
		"app.cue": `package app

topic: topic1: { permission: ["p1", "p2"], guardCallbacks: [["g1"]] }
net: {
	places: { idle: 1 }
	transitions: { p1: { "in": { idle: 1 }, out: { idle: 1 } } }
	guards: { g1: false }
}
`,
	})

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, compiler.ErrGuardLengthMismatch)
	assert.Contains(t, out, compiler.ErrUnknownTransition)
	assert.Contains(t, out, `transition "p2" is not defined in net`)
}

func TestValidateCompileErrorsJSON(t *testing.T) {
	dir := writeSpecs(t, map[string]string{
		"app.cue": "package app\n\ntopic: one: { permission: 1 }\ntopic: two: { permission: 2 }\n",
	})

	out, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 2, "collect-all reports every topic")
	assert.Equal(t, ErrCodeInvalidPermission, resp.Data.Errors[0].Code)
	assert.Equal(t, 3, resp.Data.Errors[0].Line)
	assert.Equal(t, ErrCodeInvalidPermission, resp.Error.Code)
}

func TestValidateWarningsDoNotFail(t *testing.T) {
	dir := writeSpecs(t, map[string]string{
		"topics.yaml": "- name: chain\n  permission: p1\n  guardCallbacks: [[]]\n- name: nothing\n  permission: []\n",
	})

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "warning "+compiler.ErrNoPermissions)
	assert.Contains(t, out, "✓ All specs valid (2 topic(s))")
}

func TestValidateSpecsDir(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"app.cue": twoStepCUE, "events.yaml": eventTopicsYAML})

	result, err := ValidateSpecsDir(dir, nil)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, 2, result.Topics)
	assert.Empty(t, result.Warnings)

	_, err = ValidateSpecsDir(t.TempDir(), nil)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeNoFiles, loadErr.Code)
}
