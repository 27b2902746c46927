package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSpecsCUEAndYAML(t *testing.T) {
	dir := writeSpecs(t, map[string]string{
		"app.cue":       twoStepCUE,
		"events.yaml":   eventTopicsYAML,
		"README.md":     "not a spec",
		"nested/x.yaml": "- name: ignored\n  permission: p\n",
	})

	result, errs := LoadSpecs(dir, LoadModeFailFast)
	require.Empty(t, errs)
	require.NotNil(t, result)

	assert.Equal(t, []string{filepath.Join(dir, "app.cue")}, result.CUEFiles)
	assert.Equal(t, []string{filepath.Join(dir, "events.yaml")}, result.DataFiles)
	assert.Equal(t, 2, result.FileCount())
	assert.True(t, result.CUEValue.Exists())

	require.Len(t, result.Spec.Topics, 2)
	assert.Equal(t, "topic3", result.Spec.Topics[0].Name)
	assert.Equal(t, []string{"p1", "p2"}, result.Spec.Topics[0].Permission)
	assert.Equal(t, "onDone", result.Spec.Topics[1].Name)
	require.NotNil(t, result.Spec.Net)
	assert.True(t, result.Spec.Net.Transitions["done"].Informed)
}

func TestLoadSpecsYAMLOnly(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"events.yml": eventTopicsYAML})

	result, errs := LoadSpecs(dir, LoadModeFailFast)
	require.Empty(t, errs)
	assert.Empty(t, result.CUEFiles)
	assert.False(t, result.CUEValue.Exists())
	require.Len(t, result.Spec.Topics, 1)
	assert.Nil(t, result.Spec.Net)
}

func TestLoadSpecsDirectoryErrors(t *testing.T) {
	tests := []struct {
		name string
		dir  func(t *testing.T) string
		code string
	}{
		{"missing", func(t *testing.T) string { return filepath.Join(t.TempDir(), "gone") }, ErrCodeNotFound},
		{"file", func(t *testing.T) string {
			return filepath.Join(writeSpecs(t, map[string]string{"a.cue": "package app\n"}), "a.cue")
		}, ErrCodeNotFound},
		{"empty", func(t *testing.T) string { return t.TempDir() }, ErrCodeNoFiles},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, errs := LoadSpecs(tt.dir(t), LoadModeCollectAll)
			assert.Nil(t, result)
			require.Len(t, errs, 1)
			var loadErr *LoadError
			require.ErrorAs(t, errs[0], &loadErr)
			assert.Equal(t, tt.code, loadErr.Code)
		})
	}
}

func TestLoadSpecsCUEBuildError(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"bad.cue": "package app\n\ntopic: topic1: { permission: \"p1\"\n"})

	result, errs := LoadSpecs(dir, LoadModeFailFast)
	assert.Nil(t, result)
	require.Len(t, errs, 1)
	var loadErr *LoadError
	require.ErrorAs(t, errs[0], &loadErr)
	assert.Equal(t, ErrCodeLoadFailed, loadErr.Code)
}

func TestLoadSpecsModes(t *testing.T) {
	dir := writeSpecs(t, map[string]string{
		"app.cue": `package app

topic: one: { permission: 1 }
topic: two: { permission: "p2", guardCallbacks: "g" }
topic: three: { permission: "p3" }
`,
	})

	result, errs := LoadSpecs(dir, LoadModeFailFast)
	require.NotNil(t, result)
	require.Len(t, errs, 1)

	result, errs = LoadSpecs(dir, LoadModeCollectAll)
	require.NotNil(t, result)
	require.Len(t, errs, 2)
	require.Len(t, result.Spec.Topics, 1)
	assert.Equal(t, "three", result.Spec.Topics[0].Name)

	var loadErr *LoadError
	require.ErrorAs(t, errs[0], &loadErr)
	assert.Equal(t, ErrCodeInvalidPermission, loadErr.Code)
	assert.True(t, loadErr.Pos.IsValid())
	assert.Contains(t, loadErr.Error(), "app.cue")
	require.ErrorAs(t, errs[1], &loadErr)
	assert.Equal(t, ErrCodeInvalidGuards, loadErr.Code)
}

func TestLoadSpecsDuplicateNet(t *testing.T) {
	dir := writeSpecs(t, map[string]string{
		"app.cue":  twoStepCUE,
		"net.yaml": "topics: []\nnet:\n  places: { idle: 1 }\n  transitions: {}\n",
	})

	result, errs := LoadSpecs(dir, LoadModeCollectAll)
	require.NotNil(t, result)
	require.Len(t, errs, 1)
	var loadErr *LoadError
	require.ErrorAs(t, errs[0], &loadErr)
	assert.Equal(t, ErrCodeDuplicateNet, loadErr.Code)
	assert.Contains(t, result.Spec.Net.Places, "ready", "the first net is kept")
}

func TestLoadSpecsYAMLError(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"topics.yaml": "- name: t\n  permision: p\n"})

	result, errs := LoadSpecs(dir, LoadModeFailFast)
	require.NotNil(t, result)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "topics.yaml")
}

func TestLoadSpecsNoTopics(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"app.cue": "package app\n\nversion: 1\n"})

	_, errs := LoadSpecs(dir, LoadModeFailFast)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "no topics found")
}

func TestMapFieldToErrorCode(t *testing.T) {
	for field, want := range map[string]string{
		"permission":           ErrCodeInvalidPermission,
		"topics[0].permission": ErrCodeInvalidPermission,
		"guardCallbacks":       ErrCodeInvalidGuards,
		"fireCallbacks":        ErrCodeInvalidFire,
		"topics[2].name":       ErrCodeTopicName,
		"net.transitions":      ErrCodeInvalidNet,
		"net.guards.g1":        ErrCodeInvalidNet,
		"cue":                  ErrCodeGeneric,
	} {
		assert.Equal(t, want, MapFieldToErrorCode(field), field)
	}
}
