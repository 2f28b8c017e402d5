package toolmesh

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/toolmesh/agent"
	"github.com/hupe1980/toolmesh/checkpoint"
	"github.com/hupe1980/toolmesh/core"
	"github.com/hupe1980/toolmesh/logging"
	"github.com/hupe1980/toolmesh/model"
	"github.com/hupe1980/toolmesh/orchestrator"
	"github.com/hupe1980/toolmesh/registry"
	"github.com/hupe1980/toolmesh/tool"
)

// DefaultMaxConcurrentMessages bounds MessageAgent calls in flight per agent.
const DefaultMaxConcurrentMessages = 10

var (
	// ErrNotInitialized is reported by MessageAgent before Initialize succeeded.
	ErrNotInitialized = errors.New("toolmesh: agent is not initialized")
	// ErrAlreadyInitialized is returned by a second Initialize call.
	ErrAlreadyInitialized = errors.New("toolmesh: agent is already initialized")
	// ErrUnusable is returned once Initialize failed or the agent was closed.
	ErrUnusable = errors.New("toolmesh: agent is unusable")
	// ErrEmptyThreadID is reported by MessageAgent for an empty thread id.
	ErrEmptyThreadID = errors.New("toolmesh: thread id is required")
)

// State is the lifecycle state of an Agent.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateUnusable
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateUnusable:
		return "unusable"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options configures the Agent instance.
type Options struct {
	// Name is available to the instruction template as {{.Name}}.
	Name string

	// Instruction is a text/template rendered once at Initialize with
	// agent.InstructionData (default agent.DefaultInstruction). An empty
	// instruction sends no system message. InstructionProvider takes precedence when set.
	Instruction         string
	InstructionProvider agent.Provider

	// Model drives both tool selection and the conversation. Required.
	Model model.Model

	// CheckpointBackend is "local" (or empty) for in-memory state, or a DSN
	// for a durable store. CheckpointStore overrides it when set.
	CheckpointBackend string
	CheckpointStore   core.CheckpointStore

	// Tools is the full list of opt-in tools; SelectedTools holds the
	// indices to instantiate. Clients are always instantiated.
	Tools         []tool.IndexedTool
	SelectedTools []int
	Clients       []tool.AlwaysOnClient

	// RejectNameCollisions fails Initialize when two registrations export
	// the same tool name instead of letting the later one win.
	RejectNameCollisions bool

	// SelectionThreshold is the largest registry exposed without a selection
	// call (default orchestrator.DefaultThreshold).
	SelectionThreshold int

	MaxSteps              int
	MaxParallelTools      int
	MaxConcurrentMessages int // 0 means DefaultMaxConcurrentMessages, negative means unlimited

	// Approver confirms calls to tools that require approval.
	Approver agent.Approver

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Reply is the outcome of MessageAgent. Err carries recoverable failures;
// the agent stays usable after a failed message.
type Reply struct {
	Text       string
	Err        error
	Unresolved []orchestrator.Unresolved
	Path       orchestrator.Path
	Tools      []string
}

// Agent binds a model, a tool registry and a checkpoint store. Create it with
// New, call Initialize once, then MessageAgent any number of times.
type Agent struct {
	opts Options

	mu        sync.Mutex
	state     State
	ownsStore bool

	agentCtx    *core.AgentContext
	store       core.CheckpointStore
	reg         *registry.Registry
	orch        *orchestrator.Orchestrator
	instruction string

	threads  *threadLocks
	slots    chan struct{}
	inflight sync.WaitGroup
	tracer   trace.Tracer
}

// New creates an uninitialized Agent.
func New(optFns ...func(o *Options)) *Agent {
	opts := Options{
		Name:                  "toolmesh",
		Instruction:           agent.DefaultInstruction,
		CheckpointBackend:     checkpoint.BackendLocal,
		SelectionThreshold:    orchestrator.DefaultThreshold,
		MaxSteps:              agent.DefaultMaxSteps,
		MaxConcurrentMessages: DefaultMaxConcurrentMessages,
		Logger:                logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.MaxConcurrentMessages == 0 {
		opts.MaxConcurrentMessages = DefaultMaxConcurrentMessages
	}

	a := &Agent{
		opts:     opts,
		agentCtx: core.NewAgentContext(opts.Logger),
		threads:  newThreadLocks(),
		tracer:   otel.Tracer("toolmesh"),
	}

	if opts.MaxConcurrentMessages > 0 {
		a.slots = make(chan struct{}, opts.MaxConcurrentMessages)
	}

	return a
}

// Initialize opens the checkpoint backend, loads the registry and renders the
// instruction. Any failure is fatal: the agent becomes unusable and must be
// discarded.
func (a *Agent) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state {
	case StateReady:
		return ErrAlreadyInitialized
	case StateUnusable:
		return ErrUnusable
	}

	ctx, span := a.tracer.Start(ctx, "toolmesh.initialize")
	defer span.End()

	if err := a.initialize(ctx); err != nil {
		a.state = StateUnusable
		_ = a.release()

		a.opts.Logger.Error("agent.initialize.failed", "agent", a.opts.Name, "error", err.Error())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return err
	}

	a.state = StateReady

	a.opts.Logger.Info("agent.initialize.complete",
		"agent", a.opts.Name,
		"tools", a.reg.Len(),
		"durable", a.ownsStore && checkpoint.IsDurable(a.opts.CheckpointBackend),
	)
	span.SetAttributes(attribute.Int("tool_count", a.reg.Len()))
	span.SetStatus(codes.Ok, "")

	return nil
}

func (a *Agent) initialize(ctx context.Context) error {
	if a.opts.Model == nil {
		return core.NewError(core.KindConfiguration, "initialize", errors.New("model is required"))
	}

	if a.opts.CheckpointStore != nil {
		a.store = a.opts.CheckpointStore
	} else {
		store, err := checkpoint.Open(ctx, a.opts.CheckpointBackend)
		if err != nil {
			return core.NewError(core.KindConfiguration, "checkpoint", err)
		}
		a.store, a.ownsStore = store, true
	}

	regOpts := []func(o *registry.Options){registry.WithLogger(a.opts.Logger)}
	if a.opts.RejectNameCollisions {
		regOpts = append(regOpts, registry.WithRejectCollisions())
	}

	reg, err := registry.Load(ctx, a.agentCtx, a.opts.SelectedTools, a.opts.Clients, a.opts.Tools, regOpts...)
	if err != nil {
		return core.NewError(core.KindRegistry, "registry", err)
	}
	a.reg = reg

	inst := agent.NewInstructionFromText(a.opts.Instruction)
	if a.opts.InstructionProvider != nil {
		inst = agent.NewInstructionFromProvider(a.opts.InstructionProvider)
	}

	text, err := inst.Resolve(agent.InstructionData{
		Name:      a.opts.Name,
		Tools:     reg.Metadata(),
		ToolNames: reg.Names(),
		Knowledge: a.agentCtx.Knowledge(),
		Params:    a.agentCtx.Params(),
	})
	if err != nil {
		return core.NewError(core.KindConfiguration, "instruction", err)
	}
	a.instruction = text

	a.orch = orchestrator.New(a.opts.Model, a.store, func(o *orchestrator.Options) {
		o.Threshold = a.opts.SelectionThreshold
		o.MaxSteps = a.opts.MaxSteps
		o.MaxParallel = a.opts.MaxParallelTools
		o.Approver = a.opts.Approver
		o.AgentContext = a.agentCtx
		o.Logger = a.opts.Logger
	})

	return nil
}

// release closes whatever initialize opened. Callers hold a.mu.
func (a *Agent) release() error {
	var errs []error

	if a.reg != nil {
		if err := a.reg.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close registry: %w", err))
		}
	}

	if a.store != nil && a.ownsStore {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close checkpoint store: %w", err))
		}
	}

	return errors.Join(errs...)
}

// MessageAgent handles one user message on threadID. It never returns an
// error: failures are reported in Reply.Err and leave the agent usable.
//
// Messages on the same thread are processed one at a time; different threads
// proceed concurrently.
func (a *Agent) MessageAgent(ctx context.Context, threadID, message string) (reply Reply) {
	a.mu.Lock()
	switch a.state {
	case StateUninitialized:
		a.mu.Unlock()
		return Reply{Err: ErrNotInitialized}
	case StateUnusable:
		a.mu.Unlock()
		return Reply{Err: ErrUnusable}
	}
	a.inflight.Add(1)
	a.mu.Unlock()

	defer a.inflight.Done()

	if threadID == "" {
		return Reply{Err: ErrEmptyThreadID}
	}

	if a.slots != nil {
		select {
		case a.slots <- struct{}{}:
			defer func() { <-a.slots }()
		case <-ctx.Done():
			return Reply{Err: ctx.Err()}
		}
	}

	unlock := a.threads.lock(threadID)
	defer unlock()

	ctx, span := a.tracer.Start(ctx, "toolmesh.message",
		trace.WithAttributes(attribute.String("thread_id", threadID)),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			reply = Reply{Err: fmt.Errorf("toolmesh: panic handling message: %v", r)}
		}

		if reply.Err != nil {
			a.opts.Logger.Warn("agent.message.failed", "thread_id", threadID, "error", reply.Err.Error())
			span.RecordError(reply.Err)
			span.SetStatus(codes.Error, reply.Err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}()

	return a.message(ctx, threadID, message)
}

func (a *Agent) message(ctx context.Context, threadID, message string) Reply {
	cfg := core.ThreadConfig{ThreadID: threadID}

	cp, err := a.store.Get(ctx, cfg)
	if err != nil {
		return Reply{Err: core.NewError(core.KindCheckpoint, "probe", err)}
	}

	var restored []string
	if cp != nil {
		restored = cp.Knowledge
	}

	h, err := a.orch.Orchestrate(ctx, a.reg, message, a.agentCtx.ForThread(restored).Knowledge())
	if err != nil {
		return Reply{Err: err}
	}

	reply := Reply{
		Path:       h.Decision.Path,
		Tools:      h.Decision.ToolNames(),
		Unresolved: h.Decision.Unresolved(),
	}

	input := make([]core.Content, 0, 2)
	if cp == nil && a.instruction != "" {
		input = append(input, core.NewTextContent(core.RoleSystem, a.instruction))
	}
	input = append(input, core.NewTextContent(core.RoleUser, message))

	res, err := h.Executor.Resume(ctx, cfg, cp, input)
	if err != nil {
		var ce *core.Error
		if !errors.As(err, &ce) {
			err = core.NewError(core.KindModel, "invoke", err)
		}
		reply.Err = err
		return reply
	}

	reply.Text = res.Text

	a.opts.Logger.Debug("agent.message.complete",
		"thread_id", threadID,
		"path", string(reply.Path),
		"tools", reply.Tools,
		"unresolved", len(reply.Unresolved),
		"steps", res.Steps,
	)

	return reply
}

// Close releases client resources and the checkpoint store opened from
// CheckpointBackend. A store passed via CheckpointStore stays open. The agent
// is unusable afterwards.
//
// New messages are refused immediately; Close waits for messages already in
// flight before releasing anything.
func (a *Agent) Close() error {
	a.mu.Lock()
	if a.state != StateReady {
		a.state = StateUnusable
		a.mu.Unlock()
		return nil
	}
	a.state = StateUnusable
	a.mu.Unlock()

	a.inflight.Wait()

	a.mu.Lock()
	defer a.mu.Unlock()

	return a.release()
}

// State returns the lifecycle state.
func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Registry returns the loaded registry, or nil before Initialize.
func (a *Agent) Registry() *registry.Registry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reg
}

// Context returns the agent-wide context. Knowledge remembered during a
// conversation lives in that thread's checkpoint, not here.
func (a *Agent) Context() *core.AgentContext { return a.agentCtx }

// Instruction returns the rendered system instruction.
func (a *Agent) Instruction() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.instruction
}
