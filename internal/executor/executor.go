package executor

import (
	"context"
	"os/exec"
)

// Executor builds external commands. Production code uses OSExecutor; tests
// swap in fakes that never touch the host.
type Executor interface {
	Command(ctx context.Context, name string, args ...string) Cmd
}

// Cmd is the subset of *exec.Cmd the tool wrappers rely on.
type Cmd interface {
	SetDir(dir string)
	Output() ([]byte, error)
	CombinedOutput() ([]byte, error)
}

type OSExecutor struct{}

var _ Executor = OSExecutor{}

func (OSExecutor) Command(ctx context.Context, name string, args ...string) Cmd {
	return &osCmd{cmd: exec.CommandContext(ctx, name, args...)}
}

type osCmd struct {
	cmd *exec.Cmd
}

func (c *osCmd) SetDir(dir string) {
	c.cmd.Dir = dir
}

func (c *osCmd) Output() ([]byte, error) {
	return c.cmd.Output()
}

func (c *osCmd) CombinedOutput() ([]byte, error) {
	return c.cmd.CombinedOutput()
}
