package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileNetBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		net: {
			places: { idle: 1, busy: 0 }
			transitions: {
				p1: { "in": { idle: 1 }, out: { busy: 1 }, guard: "g1" }
				p2: { "in": { busy: 1 }, out: { idle: 1 }, informed: true }
				done: { guard: "g1", negate: true }
			}
			guards: { g1: true }
		}
	`)
	require.NoError(t, v.Err())

	net, err := CompileNet(v.LookupPath(cue.ParsePath("net")))
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"idle": 1, "busy": 0}, net.Places)
	require.Len(t, net.Transitions, 3)
	assert.Equal(t, map[string]int{"idle": 1}, net.Transitions["p1"].In)
	assert.Equal(t, map[string]int{"busy": 1}, net.Transitions["p1"].Out)
	assert.Equal(t, "g1", net.Transitions["p1"].Guard)
	assert.True(t, net.Transitions["p2"].Informed)
	assert.True(t, net.Transitions["done"].Negate)
	assert.Equal(t, map[string]bool{"g1": true}, net.Guards)
}

func TestCompileNetMissingTransitions(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`net: { places: { idle: 1 } }`)
	require.NoError(t, v.Err())

	_, err := CompileNet(v.LookupPath(cue.ParsePath("net")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "net.transitions")
}

func TestCompileNetNegativeTokens(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`net: { places: { idle: -1 }, transitions: { p1: {} } }`)
	require.NoError(t, v.Err())

	_, err := CompileNet(v.LookupPath(cue.ParsePath("net")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be negative")
}

func TestCompileNetGuardNotBool(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`net: { transitions: { p1: {} }, guards: { g1: "yes" } }`)
	require.NoError(t, v.Err())

	_, err := CompileNet(v.LookupPath(cue.ParsePath("net")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "net.guards.g1")
}

func TestCompileSpecTopicsAndNet(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		topic: topic1: { permission: "p1", guardCallbacks: [["g1"]] }
		topic: topic3: {
			permission: ["p1", "p2"]
			guardCallbacks: [["g1"], ["g2"]]
			fireCallbacks: ["done"]
		}
		net: {
			places: { idle: 1 }
			transitions: { p1: {}, p2: {}, done: {} }
			guards: { g1: false, g2: false }
		}
	`)
	require.NoError(t, v.Err())

	spec, err := CompileSpec(v)
	require.NoError(t, err)

	require.Len(t, spec.Topics, 2)
	assert.Equal(t, "topic1", spec.Topics[0].Name)
	assert.Equal(t, "topic3", spec.Topics[1].Name)
	require.NotNil(t, spec.Net)
	assert.Len(t, spec.Net.Transitions, 3)
}

func TestCompileSpecWithoutNet(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`topic: t: { permission: "p1" }`)
	require.NoError(t, v.Err())

	spec, err := CompileSpec(v)
	require.NoError(t, err)
	assert.Len(t, spec.Topics, 1)
	assert.Nil(t, spec.Net)
}

func TestSpecMerge(t *testing.T) {
	a := &Spec{}
	b := &Spec{Net: nil}
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		topic: t1: { permission: "p1" }
		net: { transitions: { p1: {} } }
	`)
	require.NoError(t, v.Err())
	c, err := CompileSpec(v)
	require.NoError(t, err)

	a.Merge(b)
	a.Merge(c)
	a.Merge(nil)

	assert.Len(t, a.Topics, 1)
	assert.Same(t, c.Net, a.Net)
}
