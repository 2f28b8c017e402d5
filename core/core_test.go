package core

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContent_JSONRoundTripKeepsPartTypes(t *testing.T) {
	in := Content{
		Role: RoleAssistant,
		Parts: []Part{
			TextPart{Text: "looking it up"},
			FunctionCallPart{FunctionCall: FunctionCall{ID: "c1", Name: "lookup", Arguments: `{"q":"go"}`}},
			FunctionResponsePart{FunctionResponse: FunctionResponse{ID: "c1", Name: "lookup", Response: "Error: boom"}},
		},
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"function_call"`)

	var out Content
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestContent_UnmarshalRejectsUnknownPart(t *testing.T) {
	var c Content
	err := json.Unmarshal([]byte(`{"role":"user","parts":[{"type":"image"}]}`), &c)
	assert.ErrorContains(t, err, `unknown type "image"`)
}

func TestContent_Helpers(t *testing.T) {
	c := Content{Role: RoleAssistant, Parts: []Part{
		TextPart{Text: "a"},
		FunctionCallPart{FunctionCall: FunctionCall{Name: "x"}},
		TextPart{Text: "b"},
	}}

	assert.Equal(t, "ab", c.Text())
	assert.Equal(t, []FunctionCall{{Name: "x"}}, c.FunctionCalls())
	assert.Equal(t, "hi", NewTextContent(RoleUser, "hi").Text())
}

func TestDescriptor_Validate(t *testing.T) {
	assert.NoError(t, Descriptor{Name: "current_time"}.Validate())
	assert.Error(t, Descriptor{}.Validate())
	assert.Error(t, Descriptor{Name: "bad name"}.Validate())
}

func TestDescriptor_ParametersDefaultsToEmptyObject(t *testing.T) {
	params := Descriptor{Name: "noop"}.Parameters()
	assert.Equal(t, "object", params["type"])
}

func TestAgentContext_KnowledgeIsDeduplicated(t *testing.T) {
	ac := NewAgentContext(nil)
	ac.AddKnowledge("sky is blue")
	ac.AddKnowledge("sky is blue")
	ac.AddKnowledge("")
	ac.MergeKnowledge([]string{"grass is green"})

	assert.Equal(t, []string{"sky is blue", "grass is green"}, ac.Knowledge())
}

func TestAgentContext_ForThreadKeepsKnowledgeLocal(t *testing.T) {
	base := NewAgentContext(nil)
	base.AddKnowledge("agent fact")
	base.SetParam("city", "Berlin")

	alice := base.ForThread([]string{"alice fact", "agent fact"})
	bob := base.ForThread(nil)

	alice.AddKnowledge("alice new")
	bob.SetParam("unit", "metric")

	assert.Equal(t, []string{"agent fact", "alice fact", "alice new"}, alice.Knowledge())
	assert.Equal(t, []string{"agent fact"}, bob.Knowledge())
	assert.Equal(t, []string{"agent fact"}, base.Knowledge())

	v, ok := alice.Param("unit")
	require.True(t, ok, "params are shared across views")
	assert.Equal(t, "metric", v)
	assert.Equal(t, map[string]any{"city": "Berlin", "unit": "metric"}, base.Params())
	assert.Equal(t, base.Logger(), alice.Logger())
}

func TestAgentContextFrom(t *testing.T) {
	_, ok := AgentContextFrom(context.Background())
	assert.False(t, ok)

	ac := NewAgentContext(nil)
	got, ok := AgentContextFrom(ContextWithAgentContext(context.Background(), ac))
	require.True(t, ok)
	assert.Same(t, ac, got)

	_, ok = AgentContextFrom(ContextWithAgentContext(context.Background(), nil))
	assert.False(t, ok)
}

func TestAgentContext_ConcurrentParams(t *testing.T) {
	ac := NewAgentContext(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ac.SetParam("k", i)
			_, _ = ac.Param("k")
		}(i)
	}
	wg.Wait()

	_, ok := ac.Param("k")
	assert.True(t, ok)

	snapshot := ac.Params()
	snapshot["other"] = true
	_, ok = ac.Param("other")
	assert.False(t, ok)
}

func TestCheckpoint_CloneIsIndependent(t *testing.T) {
	cp := &Checkpoint{ThreadID: "t", Messages: []Content{NewTextContent(RoleUser, "hi")}, Knowledge: []string{"k"}}
	cl := cp.Clone()
	cl.Messages = append(cl.Messages, NewTextContent(RoleAssistant, "hello"))
	cl.Knowledge[0] = "changed"

	assert.Len(t, cp.Messages, 1)
	assert.Equal(t, "k", cp.Knowledge[0])
	assert.Nil(t, (*Checkpoint)(nil).Clone())
}

func TestError_KindAndFatal(t *testing.T) {
	base := errors.New("dial tcp: refused")
	err := NewError(KindConfiguration, "checkpoint.open", base)

	assert.True(t, err.Fatal())
	assert.True(t, IsKind(err, KindConfiguration))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "configuration error in checkpoint.open: dial tcp: refused", err.Error())

	assert.False(t, NewError(KindOrchestration, "", base).Fatal())
	assert.False(t, IsKind(base, KindModel))
}

func TestStepLimiter(t *testing.T) {
	l := NewStepLimiter(2)
	require.NoError(t, l.Take())
	require.NoError(t, l.Take())
	assert.ErrorIs(t, l.Take(), ErrStepLimit)
	assert.Equal(t, 2, l.Count())

	unlimited := NewStepLimiter(0)
	for i := 0; i < 10; i++ {
		require.NoError(t, unlimited.Take())
	}
}
