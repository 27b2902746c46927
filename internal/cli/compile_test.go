package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/baboon/internal/ir"
)

func TestCompileText(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"app.cue": twoStepCUE, "events.yaml": eventTopicsYAML})

	out, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Compiled 2 topic(s)")
	assert.Contains(t, out, "topic3: 2 step(s), 1 fire callback(s)")
	assert.Contains(t, out, "onDone: 1 step(s), 0 fire callback(s)")
	assert.Contains(t, out, "Net: 3 place(s), 3 transition(s), 2 guard(s)")
	assert.Contains(t, out, "Spec hash: ")
}

func TestCompileJSONAndOutputFile(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"app.cue": twoStepCUE})
	outFile := filepath.Join(t.TempDir(), "ir.json")

	out, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), dir, "-o", outFile)
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   CompilationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Topics, 1)
	assert.Equal(t, "topic3", resp.Data.Topics[0].Name)
	assert.Len(t, resp.Data.Topics[0].Hash, 64)
	assert.Equal(t, ir.IRVersion, resp.Data.IRVersion)
	assert.NotEmpty(t, resp.Data.NetHash)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	var written CompilationResult
	require.NoError(t, json.Unmarshal(data, &written))
	assert.Equal(t, resp.Data.SpecHash, written.SpecHash)
}

func TestCompileHashesAreStable(t *testing.T) {
	a := writeSpecs(t, map[string]string{"app.cue": twoStepCUE, "events.yaml": eventTopicsYAML})
	b := writeSpecs(t, map[string]string{"app.cue": twoStepCUE, "events.yaml": eventTopicsYAML})

	ra, errs := LoadSpecs(a, LoadModeFailFast)
	require.Empty(t, errs)
	rb, errs := LoadSpecs(b, LoadModeFailFast)
	require.Empty(t, errs)

	left, err := BuildCompilationResult(ra.Spec)
	require.NoError(t, err)
	right, err := BuildCompilationResult(rb.Spec)
	require.NoError(t, err)
	assert.Equal(t, left.SpecHash, right.SpecHash)
	assert.Equal(t, left.NetHash, right.NetHash)

	// Declaration order does not change the spec hash.
	ra.Spec.Topics[0], ra.Spec.Topics[1] = ra.Spec.Topics[1], ra.Spec.Topics[0]
	reordered, err := BuildCompilationResult(ra.Spec)
	require.NoError(t, err)
	assert.Equal(t, left.SpecHash, reordered.SpecHash)
}

func TestCompileErrors(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"app.cue": "package app\n\ntopic: one: { permission: 1 }\n"})

	out, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "✗ Compilation failed")
	assert.Contains(t, out, "app.cue:3:")
	assert.Contains(t, out, ErrCodeInvalidPermission)
}

func TestCompileErrorsJSON(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"app.cue": "package app\n\ntopic: one: { permission: 1 }\n"})

	out, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidPermission, resp.Error.Code)
}

func TestCompileMissingDirectory(t *testing.T) {
	out, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "specs directory not found")
}
