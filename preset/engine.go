package preset

import (
	"context"
	"errors"
	"time"

	"github.com/moyoez/devconf/codec"
	"github.com/moyoez/devconf/remote"
	"github.com/moyoez/devconf/store"
	"github.com/moyoez/devconf/tool"
	"github.com/moyoez/devconf/types"
)

// Session is the part of a remote session the engine drives.
type Session interface {
	store.Session
	Endpoint() (types.DeviceEndpoint, bool)
	RunCommand(ctx context.Context, command string, timeout time.Duration) (remote.CommandOutput, error)
}

// Engine stages every file of a preset in memory and then writes them in order.
type Engine struct {
	store *store.Store
	// OnApplied, when set, is called after every Apply with its outcome.
	OnApplied func(summary types.AppliedSummary, err error)
}

func NewEngine(s *store.Store) *Engine {
	return &Engine{store: s}
}

// Result is what ApplyAsync delivers.
type Result struct {
	Summary types.AppliedSummary
	Err     error
}

type staged struct {
	mod types.FileModification
	doc *codec.Document
}

// Apply writes the preset to the device. A fetch or apply failure aborts before any write.
// Services are restarted only when every file was written.
func (e *Engine) Apply(ctx context.Context, sess Session, p *types.Preset) (summary types.AppliedSummary, err error) {
	summary = types.AppliedSummary{Preset: p.Name}
	defer func() {
		if e.OnApplied != nil {
			e.OnApplied(summary, err)
		}
	}()

	plan, err := e.stage(ctx, sess, p)
	if err != nil {
		tool.DefaultLogger.Warnf("Preset %q aborted before writing: %v", p.Name, err)
		return summary, err
	}

	for i, st := range plan {
		if err := e.store.Push(ctx, sess, st.mod.Category, st.doc); err != nil {
			for _, rest := range plan[i:] {
				summary.Failed = append(summary.Failed, rest.mod.File)
			}
			tool.DefaultLogger.Errorf("Preset %q stopped at %s: %v", p.Name, st.mod.File, err)
			return summary, &PartialCommitError{
				Succeeded: append([]string(nil), summary.Written...),
				Failed:    append([]string(nil), summary.Failed...),
				Err:       err,
			}
		}
		summary.Written = append(summary.Written, st.mod.File)
	}
	tool.DefaultLogger.Infof("Preset %q wrote %d files", p.Name, len(summary.Written))

	summary.Restarted, err = restart(ctx, sess, plan)
	return summary, err
}

// ApplyAsync runs Apply in its own goroutine.
func (e *Engine) ApplyAsync(ctx context.Context, sess Session, p *types.Preset) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		summary, err := e.Apply(ctx, sess, p)
		out <- Result{Summary: summary, Err: err}
		close(out)
	}()
	return out
}

// stage fetches and edits every file. Modifications of the same category build on each other.
func (e *Engine) stage(ctx context.Context, sess Session, p *types.Preset) ([]*staged, error) {
	var plan []*staged
	byCategory := map[types.Category]*staged{}
	for _, mod := range p.Files {
		st, ok := byCategory[mod.Category]
		if !ok {
			doc, err := e.store.Fetch(ctx, sess, mod.Category)
			if err != nil {
				return nil, &FetchFailedError{File: mod.File, Err: err}
			}
			st = &staged{mod: mod, doc: doc}
			byCategory[mod.Category] = st
			plan = append(plan, st)
		}
		next, err := codec.ApplyChanges(st.doc, mod.Changes)
		if err != nil {
			return nil, &ApplyFailedError{File: mod.File, Err: err}
		}
		if err := codec.Validate(next.Dialect(), codec.Serialize(next)); err != nil {
			return nil, &ApplyFailedError{File: mod.File, Err: err}
		}
		st.doc = next
	}
	return plan, nil
}

// restart runs one restart per distinct command, in the order files were first touched.
func restart(ctx context.Context, sess Session, plan []*staged) ([]string, error) {
	endpoint, _ := sess.Endpoint()
	var (
		done   []string
		failed []string
		errs   []error
		seen   = map[string]bool{}
	)
	for _, st := range plan {
		service, ok := remote.ServiceFor(st.mod.Category)
		if !ok {
			continue
		}
		cmd, ok := remote.RestartCommand(endpoint.Kind, service)
		if !ok || seen[cmd.Line] {
			continue
		}
		seen[cmd.Line] = true
		if _, err := sess.RunCommand(ctx, cmd.Line, cmd.Timeout); err != nil {
			tool.DefaultLogger.Warnf("Restarting %s failed: %v", service, err)
			failed = append(failed, cmd.Name)
			errs = append(errs, err)
			continue
		}
		tool.DefaultLogger.Infof("Restarted %s", service)
		done = append(done, cmd.Name)
	}
	if len(errs) > 0 {
		return done, &RestartError{Commands: failed, Err: errors.Join(errs...)}
	}
	return done, nil
}
