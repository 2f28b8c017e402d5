// Package registry merges tool and client registrations into one name
// addressed set of executables with matching descriptors and a rendered
// metadata block for prompts.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/toolmesh/core"
	"github.com/hupe1980/toolmesh/logging"
	"github.com/hupe1980/toolmesh/tool"
)

// Options configure Load.
type Options struct {
	// RejectCollisions fails the load when two registrations export the same
	// tool name. By default the later registration wins and a warning is logged.
	RejectCollisions bool

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// WithRejectCollisions turns name collisions into load failures.
func WithRejectCollisions() func(o *Options) {
	return func(o *Options) { o.RejectCollisions = true }
}

// WithLogger sets the logger used during the load.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// Registry is the aggregated, immutable result of a successful Load. The
// executable and descriptor key sets are always identical.
type Registry struct {
	tools       map[string]tool.Tool
	descriptors core.DescriptorMap
	order       []string
	metadata    string
	closers     []func() error
}

// Load instantiates the selected indexed tools (positions into all, in the
// order given; duplicates run once) followed by every client, merging their
// bundles into one registry.
//
// Load is all-or-nothing: an out-of-range index or any factory failure aborts
// it, closing resources already opened by earlier bundles.
func Load(
	ctx context.Context,
	agentCtx *core.AgentContext,
	selected []int,
	clients []tool.AlwaysOnClient,
	all []tool.IndexedTool,
	optFns ...func(o *Options),
) (*Registry, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	start := time.Now()

	regs, err := plan(selected, clients, all)
	if err != nil {
		return nil, err
	}

	opts.Logger.Debug("registry.load.start", "registrations", len(regs))

	r := &Registry{
		tools:       make(map[string]tool.Tool),
		descriptors: make(core.DescriptorMap),
	}

	for _, reg := range regs {
		if err := ctx.Err(); err != nil {
			_ = r.Close()
			return nil, err
		}

		b, err := reg.Instantiate(ctx, agentCtx)
		if err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("instantiate %q: %w", reg.Label(), err)
		}

		r.closers = append(r.closers, b.Closers...)

		if err := b.Validate(); err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("instantiate %q: %w", reg.Label(), err)
		}

		if err := r.merge(reg.Label(), b, opts); err != nil {
			_ = r.Close()
			return nil, err
		}
	}

	r.metadata = r.renderMetadata()

	opts.Logger.Info(
		"registry.load.complete",
		"tools", len(r.order),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return r, nil
}

// plan resolves indices into the ordered registration list.
func plan(selected []int, clients []tool.AlwaysOnClient, all []tool.IndexedTool) ([]tool.Registration, error) {
	regs := make([]tool.Registration, 0, len(selected)+len(clients))
	seen := make(map[int]struct{}, len(selected))

	for _, idx := range selected {
		if idx < 0 || idx >= len(all) {
			return nil, fmt.Errorf("tool index %d out of range [0,%d)", idx, len(all))
		}

		if _, dup := seen[idx]; dup {
			continue
		}

		seen[idx] = struct{}{}
		regs = append(regs, all[idx])
	}

	for _, c := range clients {
		regs = append(regs, c)
	}

	return regs, nil
}

func (r *Registry) merge(label string, b tool.Bundle, opts Options) error {
	for _, t := range b.Tools {
		name := t.Name()

		if _, exists := r.tools[name]; exists {
			if opts.RejectCollisions {
				return fmt.Errorf("instantiate %q: tool name %q already registered", label, name)
			}

			opts.Logger.Warn("registry.collision", "tool", name, "registration", label)

			r.removeFromOrder(name)
		}

		r.tools[name] = t
		r.descriptors[name] = b.Schema[name]
		r.order = append(r.order, name)
	}

	return nil
}

func (r *Registry) removeFromOrder(name string) {
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

func (r *Registry) renderMetadata() string {
	var b strings.Builder
	for i, name := range r.order {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %s: %s", name, r.descriptors[name].Description)
	}
	return b.String()
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.order) }

// Lookup returns the executable registered under name.
func (r *Registry) Lookup(name string) (tool.Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Descriptor returns the descriptor registered under name.
func (r *Registry) Descriptor(name string) (core.Descriptor, bool) {
	d, ok := r.descriptors[name]
	return d, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Tools returns the executables in registration order.
func (r *Registry) Tools() []tool.Tool {
	out := make([]tool.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Descriptors returns a copy of the descriptor map.
func (r *Registry) Descriptors() core.DescriptorMap {
	out := make(core.DescriptorMap, len(r.descriptors))
	for k, v := range r.descriptors {
		out[k] = v
	}
	return out
}

// Metadata returns one "- name: description" line per tool in registration order.
func (r *Registry) Metadata() string { return r.metadata }

// Close releases client resources held by the registered bundles. It is safe
// to call more than once.
func (r *Registry) Close() error {
	closers := r.closers
	r.closers = nil

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
