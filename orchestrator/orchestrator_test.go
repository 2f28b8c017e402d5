package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/toolmesh/core"
	"github.com/hupe1980/toolmesh/internal/testutil"
	"github.com/hupe1980/toolmesh/model"
	"github.com/hupe1980/toolmesh/registry"
	"github.com/hupe1980/toolmesh/tool"
)

func newRegistry(t *testing.T, names ...string) *registry.Registry {
	t.Helper()

	all := make([]tool.IndexedTool, len(names))
	selected := make([]int, len(names))
	for i, n := range names {
		name := n
		all[i] = tool.NewIndexedTool(
			core.Descriptor{Name: name, Description: "does " + name},
			func(context.Context, map[string]any, *core.AgentContext) (any, error) { return name + " ok", nil },
		)
		selected[i] = i
	}

	reg, err := registry.Load(context.Background(), core.NewAgentContext(nil), selected, nil, all)
	require.NoError(t, err)

	return reg
}

func TestOrchestrate_SmallRegistrySkipsModel(t *testing.T) {
	m := testutil.NewScriptedModel()
	o := New(m, testutil.NewStubStore())

	h, err := o.Orchestrate(context.Background(), newRegistry(t, "a", "b", "c"), "hello", nil)
	require.NoError(t, err)

	assert.Equal(t, 0, m.CallCount())
	assert.Equal(t, PathFull, h.Decision.Path)
	assert.Equal(t, []string{"a", "b", "c"}, h.Decision.ToolNames())
	assert.Equal(t, []string{"a", "b", "c"}, h.Executor.ToolNames())
	assert.Empty(t, h.Decision.Unresolved())
}

func TestOrchestrate_LargeRegistryConsultsModel(t *testing.T) {
	m := testutil.NewScriptedModel().ThenText(`["b","d"]`)
	o := New(m, testutil.NewStubStore())

	h, err := o.Orchestrate(context.Background(), newRegistry(t, "a", "b", "c", "d"), "need b and d", []string{"user likes tea"})
	require.NoError(t, err)

	require.Equal(t, 1, m.CallCount())
	assert.Equal(t, PathSelected, h.Decision.Path)
	assert.Equal(t, []string{"b", "d"}, h.Decision.ToolNames())
	assert.Equal(t, []string{"b", "d"}, h.Executor.ToolNames())

	req := m.Requests()[0]
	assert.Empty(t, req.Tools, "selection call offers no callable tools")
	require.Len(t, req.Contents, 2)

	system := req.Contents[0].Text()
	assert.Contains(t, system, "JSON array")
	assert.Contains(t, system, "- a: does a\n- b: does b\n- c: does c\n- d: does d")
	assert.Contains(t, system, InvalidToolPrefix)
	assert.Contains(t, system, "- user likes tea")
	assert.Equal(t, "need b and d", req.Contents[1].Text())
}

func TestOrchestrate_ThresholdBoundary(t *testing.T) {
	for _, tc := range []struct {
		tools     int
		wantCalls int
		wantPath  Path
	}{
		{tools: 0, wantCalls: 0, wantPath: PathFull},
		{tools: 3, wantCalls: 0, wantPath: PathFull},
		{tools: 4, wantCalls: 1, wantPath: PathSelected},
	} {
		t.Run(fmt.Sprintf("%d tools", tc.tools), func(t *testing.T) {
			names := make([]string, tc.tools)
			for i := range names {
				names[i] = fmt.Sprintf("t%d", i)
			}

			m := testutil.NewScriptedModel().ThenText(`[]`)
			h, err := New(m, testutil.NewStubStore()).Orchestrate(context.Background(), newRegistry(t, names...), "msg", nil)
			require.NoError(t, err)

			assert.Equal(t, tc.wantCalls, m.CallCount())
			assert.Equal(t, tc.wantPath, h.Decision.Path)
		})
	}
}

func TestOrchestrate_CustomThreshold(t *testing.T) {
	m := testutil.NewScriptedModel().ThenText(`["a"]`)
	o := New(m, testutil.NewStubStore(), func(o *Options) { o.Threshold = 1 })
	assert.Equal(t, 1, o.Threshold())

	h, err := o.Orchestrate(context.Background(), newRegistry(t, "a", "b"), "msg", nil)
	require.NoError(t, err)
	assert.Equal(t, PathSelected, h.Decision.Path)
	assert.Equal(t, []string{"a"}, h.Decision.ToolNames())
}

func TestOrchestrate_UnresolvedNames(t *testing.T) {
	m := testutil.NewScriptedModel().ThenText(`["a", "INVALID_TOOL:weather", "ghost", "a"]`)
	o := New(m, testutil.NewStubStore())

	h, err := o.Orchestrate(context.Background(), newRegistry(t, "a", "b", "c", "d"), "weather?", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, h.Decision.ToolNames())
	assert.Equal(t, []Unresolved{
		{Raw: "INVALID_TOOL:weather", Requested: "weather"},
		{Raw: "ghost", Requested: "ghost"},
	}, h.Decision.Unresolved())
	assert.Len(t, h.Decision.Choices, 3)
}

func TestOrchestrate_EmptySelectionBindsNoTools(t *testing.T) {
	m := testutil.NewScriptedModel().
		ThenText(` [] `).
		ThenText("answered from memory")
	store := testutil.NewStubStore()
	o := New(m, store)

	h, err := o.Orchestrate(context.Background(), newRegistry(t, "a", "b", "c", "d"), "what is my name?", []string{"name is Ada"})
	require.NoError(t, err)
	assert.Empty(t, h.Decision.Tools())
	assert.Empty(t, h.Executor.ToolNames())

	res, err := h.Executor.Invoke(context.Background(), core.ThreadConfig{ThreadID: "t"},
		[]core.Content{core.NewTextContent(core.RoleUser, "what is my name?")})
	require.NoError(t, err)
	assert.Equal(t, "answered from memory", res.Text)
	assert.Empty(t, m.Requests()[1].Tools)
}

func TestOrchestrate_MalformedSelection(t *testing.T) {
	for _, raw := range []string{
		"I would use tool a",
		"```json\n[\"a\"]\n```",
		`{"tools":["a"]}`,
		`[1,2]`,
		`["a"`,
		"",
		"null",
		`["a", null]`,
		`["a", "  "]`,
		`[""]`,
	} {
		t.Run(raw, func(t *testing.T) {
			m := testutil.NewScriptedModel().ThenText(raw)

			h, err := New(m, testutil.NewStubStore()).Orchestrate(context.Background(), newRegistry(t, "a", "b", "c", "d"), "msg", nil)
			require.Error(t, err)
			assert.Nil(t, h)

			var selErr *SelectionError
			require.ErrorAs(t, err, &selErr)
			assert.Equal(t, raw, selErr.Raw)
			assert.True(t, core.IsKind(err, core.KindOrchestration))
		})
	}
}

func TestOrchestrate_SelectionModelError(t *testing.T) {
	m := testutil.NewScriptedModel().ThenError(errors.New("overloaded"))

	_, err := New(m, testutil.NewStubStore()).Orchestrate(context.Background(), newRegistry(t, "a", "b", "c", "d"), "msg", nil)
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindModel))
	assert.ErrorContains(t, err, "overloaded")
}

func TestOrchestrate_BindFailureIsRecoverable(t *testing.T) {
	_, err := New(testutil.NewScriptedModel(), nil).Orchestrate(context.Background(), newRegistry(t, "a"), "msg", nil)
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindOrchestration))

	var ce *core.Error
	require.ErrorAs(t, err, &ce)
	assert.False(t, ce.Fatal())
}

func TestOrchestrate_NilRegistry(t *testing.T) {
	_, err := New(testutil.NewScriptedModel(), testutil.NewStubStore()).Orchestrate(context.Background(), nil, "msg", nil)
	assert.ErrorContains(t, err, "registry is nil")
}

func TestOrchestrate_MockModelSelectsNothing(t *testing.T) {
	o := New(model.NewMockModel("demo"), testutil.NewStubStore())

	h, err := o.Orchestrate(context.Background(), newRegistry(t, "a", "b", "c", "d"), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, PathSelected, h.Decision.Path)
	assert.Empty(t, h.Decision.Choices)
}

func TestParseSelection(t *testing.T) {
	names, err := parseSelection("\n[\"a\", \"b\"]\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	names, err = parseSelection("[]")
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = parseSelection(strings.Repeat("x", 500))
	var selErr *SelectionError
	require.ErrorAs(t, err, &selErr)
	assert.Less(t, len(selErr.Error()), 300)
}
