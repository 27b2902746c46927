package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSpecSequence(t *testing.T) {
	data := []byte(`
- name: topic1
  permission: p1
  guardCallbacks: [[g1]]
- name: topic3
  permission: [p1, p2]
  guardCallbacks: [[g1], [g2]]
  fireCallbacks: done
`)
	spec, err := DecodeSpec(data)
	require.NoError(t, err)
	require.Len(t, spec.Topics, 2)

	assert.Equal(t, []string{"p1"}, spec.Topics[0].Permission)
	assert.Equal(t, [][]string{{"g1"}}, spec.Topics[0].GuardCallbacks)
	assert.Equal(t, []string{}, spec.Topics[0].FireCallbacks)
	assert.Equal(t, []string{"done"}, spec.Topics[1].FireCallbacks)
	assert.Nil(t, spec.Net)
}

func TestDecodeSpecJSON(t *testing.T) {
	data := []byte(`[{"name": "topic2", "permission": ["p1"], "guardCallbacks": [["g1", "g2"]]}, {"name": "noPerm", "permission": ""}]`)
	spec, err := DecodeSpec(data)
	require.NoError(t, err)
	require.Len(t, spec.Topics, 2)

	assert.Equal(t, [][]string{{"g1", "g2"}}, spec.Topics[0].GuardCallbacks)
	// An empty permission string is a one-step topic with an empty id.
	assert.Equal(t, []string{""}, spec.Topics[1].Permission)
}

func TestDecodeSpecMappingWithNet(t *testing.T) {
	data := []byte(`
topics:
  - name: topic1
    permission: [p1]
net:
  places: {idle: 1, busy: 0}
  transitions:
    p1: {in: {idle: 1}, out: {busy: 1}}
  guards: {g1: true}
`)
	spec, err := DecodeSpec(data)
	require.NoError(t, err)
	require.Len(t, spec.Topics, 1)
	require.NotNil(t, spec.Net)
	assert.Equal(t, 1, spec.Net.Places["idle"])
	assert.Equal(t, map[string]int{"busy": 1}, spec.Net.Transitions["p1"].Out)
	assert.True(t, spec.Net.Guards["g1"])
}

func TestDecodeSpecMissingGuardsNormalized(t *testing.T) {
	spec, err := DecodeSpec([]byte("- name: t\n  permission: [a, b]\n"))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{}, {}}, spec.Topics[0].GuardCallbacks)
}

func TestDecodeSpecUnknownField(t *testing.T) {
	_, err := DecodeSpec([]byte("- name: t\n  permission: p1\n  guardCallback: [[g1]]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "guardCallback")
}

func TestDecodeSpecMissingName(t *testing.T) {
	_, err := DecodeSpec([]byte("- permission: p1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "topics[0].name")
}

func TestDecodeSpecMissingPermission(t *testing.T) {
	_, err := DecodeSpec([]byte("- name: t\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission is required")
}

func TestDecodeSpecEmpty(t *testing.T) {
	spec, err := DecodeSpec([]byte(""))
	require.NoError(t, err)
	assert.Empty(t, spec.Topics)
}

func TestDecodeSpecMalformed(t *testing.T) {
	_, err := DecodeSpec([]byte("- name: [unclosed\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}
