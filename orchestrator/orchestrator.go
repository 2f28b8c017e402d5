// Package orchestrator decides, per user message, which registered tools the
// model may call and binds that subset into an executable agent handle.
//
// Small registries (at most Threshold tools) are exposed in full without a
// model call. Larger registries go through a selection-only model call that
// must answer with a JSON array of tool names.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/toolmesh/agent"
	"github.com/hupe1980/toolmesh/core"
	"github.com/hupe1980/toolmesh/logging"
	"github.com/hupe1980/toolmesh/model"
	"github.com/hupe1980/toolmesh/registry"
)

// DefaultThreshold is the largest registry exposed without a selection call.
const DefaultThreshold = 3

// Options configure an Orchestrator.
type Options struct {
	// Threshold is the largest registry size exposed in full. Zero means
	// DefaultThreshold; a negative value always selects.
	Threshold int

	// Executor settings forwarded to agent.NewExecutor.
	MaxSteps     int
	MaxParallel  int
	Approver     agent.Approver
	AgentContext *core.AgentContext

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Handle is the per-message result of Orchestrate.
type Handle struct {
	Decision Decision
	Executor *agent.Executor
}

// Orchestrator selects tools and builds executors for one agent instance.
type Orchestrator struct {
	model  model.Model
	store  core.CheckpointStore
	opts   Options
	tracer trace.Tracer
}

// New creates an Orchestrator using m for selection and execution and store
// for conversation state.
func New(m model.Model, store core.CheckpointStore, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		Threshold: DefaultThreshold,
		Logger:    logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Threshold == 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Orchestrator{
		model:  m,
		store:  store,
		opts:   opts,
		tracer: otel.Tracer("toolmesh/orchestrator"),
	}
}

// Threshold returns the effective full-exposure threshold.
func (o *Orchestrator) Threshold() int { return o.opts.Threshold }

// Orchestrate selects the tools for message and binds them into an executor.
// Errors are recoverable: the agent instance stays usable.
func (o *Orchestrator) Orchestrate(ctx context.Context, reg *registry.Registry, message string, knowledge []string) (*Handle, error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.orchestrate")
	defer span.End()

	if reg != nil {
		span.SetAttributes(attribute.Int("tool_count", reg.Len()))
	}

	decision, err := o.Select(ctx, reg, message, knowledge)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("path", string(decision.Path)),
		attribute.Int("selected_count", len(decision.Tools())),
		attribute.Int("unresolved_count", len(decision.Unresolved())),
	)

	exec, err := agent.NewExecutor(o.model, decision.Tools(), o.store, func(eo *agent.ExecutorOptions) {
		eo.MaxSteps = o.opts.MaxSteps
		eo.MaxParallel = o.opts.MaxParallel
		eo.Approver = o.opts.Approver
		eo.AgentContext = o.opts.AgentContext
		eo.Logger = o.opts.Logger
	})
	if err != nil {
		err = core.NewError(core.KindOrchestration, "bind", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")

	return &Handle{Decision: decision, Executor: exec}, nil
}

// Select computes the Decision without binding an executor.
func (o *Orchestrator) Select(ctx context.Context, reg *registry.Registry, message string, knowledge []string) (Decision, error) {
	log := o.opts.Logger

	if reg == nil {
		return Decision{}, core.NewError(core.KindOrchestration, "select", errors.New("registry is nil"))
	}

	if reg.Len() <= o.opts.Threshold {
		tools := reg.Tools()
		choices := make([]Choice, len(tools))
		for i, t := range tools {
			choices[i] = Resolved{Tool: t}
		}

		log.Debug("orchestrator.selection.full", "tools", len(tools), "threshold", o.opts.Threshold)

		return Decision{Path: PathFull, Choices: choices}, nil
	}

	if o.model == nil {
		return Decision{}, core.NewError(core.KindOrchestration, "select", errors.New("model is nil"))
	}

	start := time.Now()

	resp, err := model.Collect(ctx, o.model, model.Request{
		Contents: []core.Content{
			core.NewTextContent(core.RoleSystem, selectionPrompt(reg, knowledge)),
			core.NewTextContent(core.RoleUser, message),
		},
	})
	if err != nil {
		return Decision{}, core.NewError(core.KindModel, "select", err)
	}

	raw := resp.Content.Text()

	names, err := parseSelection(raw)
	if err != nil {
		log.Warn("orchestrator.selection.invalid", "error", err.Error())
		return Decision{}, core.NewError(core.KindOrchestration, "select", err)
	}

	d := Decision{Path: PathSelected, Choices: resolve(reg, names)}

	for _, u := range d.Unresolved() {
		log.Warn("orchestrator.selection.unresolved", "requested", u.Requested, "raw", u.Raw)
	}

	log.Info("orchestrator.selection.parsed",
		"tools", reg.Len(),
		"selected", d.ToolNames(),
		"unresolved", len(d.Unresolved()),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return d, nil
}
