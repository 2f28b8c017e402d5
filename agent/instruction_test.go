package agent

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	text string
	err  error
}

func (m mockProvider) Instruction(InstructionData) (string, error) { return m.text, m.err }

func TestInstruction_Static(t *testing.T) {
	inst := NewInstructionFromText("static instruction")
	require.True(t, inst.IsStatic())

	got, err := inst.Resolve(InstructionData{})
	require.NoError(t, err)
	assert.Equal(t, "static instruction", got)
}

func TestInstruction_TemplateData(t *testing.T) {
	inst := NewInstructionFromText("You are {{.Name}}.\nTools:\n{{.Tools}}\n{{if .Knowledge}}Known:\n{{bullets .Knowledge}}{{end}}")

	got, err := inst.Resolve(InstructionData{
		Name:      "helper",
		Tools:     "- a: does a",
		Knowledge: []string{"sky is blue"},
	})
	require.NoError(t, err)
	assert.Equal(t, "You are helper.\nTools:\n- a: does a\nKnown:\n- sky is blue", got)
}

func TestInstruction_TemplateError(t *testing.T) {
	_, err := NewInstructionFromText("{{.Name").Resolve(InstructionData{})
	assert.ErrorContains(t, err, "parse template")
}

func TestInstruction_NewInstructionFromFunc(t *testing.T) {
	inst := NewInstructionFromFunc(func(d InstructionData) (string, error) { return "dynamic " + d.Name, nil })
	assert.False(t, inst.IsStatic())

	got, err := inst.Resolve(InstructionData{Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, "dynamic x", got)
}

func TestInstruction_ProviderError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewInstructionFromProvider(mockProvider{err: boom}).Resolve(InstructionData{})
	assert.ErrorIs(t, err, boom)
}
