// Package executortest provides an in-memory executor.Executor for tests.
package executortest

import (
	"context"
	"sync"

	"github.com/Bahadou-Badr/PhantomChain-Audio-Toolkit-Go/internal/executor"
)

// Call records one command invocation.
type Call struct {
	Name string
	Args []string
	Dir  string
}

// Fake records every command and answers with Run. A nil Run succeeds with
// empty output.
type Fake struct {
	Run func(ctx context.Context, call Call) ([]byte, error)

	mu    sync.Mutex
	calls []Call
}

var _ executor.Executor = (*Fake)(nil)

func (f *Fake) Command(ctx context.Context, name string, args ...string) executor.Cmd {
	return &fakeCmd{fake: f, ctx: ctx, call: Call{Name: name, Args: append([]string{}, args...)}}
}

// Calls returns a copy of the recorded invocations.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call{}, f.calls...)
}

func (f *Fake) run(ctx context.Context, call Call) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Run == nil {
		return nil, nil
	}
	return f.Run(ctx, call)
}

type fakeCmd struct {
	fake *Fake
	ctx  context.Context
	call Call
}

func (c *fakeCmd) SetDir(dir string) { c.call.Dir = dir }

func (c *fakeCmd) Output() ([]byte, error) { return c.fake.run(c.ctx, c.call) }

func (c *fakeCmd) CombinedOutput() ([]byte, error) { return c.fake.run(c.ctx, c.call) }
