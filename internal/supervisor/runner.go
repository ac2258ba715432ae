package supervisor

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"syscall"
	"time"

	"github.com/minepilot/minepilot/internal/coins"
	"github.com/minepilot/minepilot/internal/interfaces"
	"github.com/minepilot/minepilot/internal/lib"
	"go.uber.org/atomic"
)

var ErrLaunch = errors.New("cannot launch miner process")

// Process is a live miner subprocess. The miner is opaque: it is observed
// only via liveness and exit code, never via structured IPC.
type Process interface {
	// Done is closed when the process has exited
	Done() <-chan struct{}
	// Err returns the exit error, valid after Done is closed
	Err() error
	// Stop terminates gracefully, force-killing after the grace period.
	// Blocks until the process has exited.
	Stop(grace time.Duration)
}

type Runner interface {
	Start(ctx context.Context, coin *coins.Coin) (Process, error)
}

// ExecRunner launches the external miner executable configured at startup.
type ExecRunner struct {
	binary string
	log    interfaces.ILogger
}

func NewExecRunner(binary string, log interfaces.ILogger) *ExecRunner {
	return &ExecRunner{binary: binary, log: log}
}

func (r *ExecRunner) Start(_ context.Context, coin *coins.Coin) (Process, error) {
	args := minerArgs(coin)
	cmd := exec.Command(r.binary, args...)

	// miner output is pool-handshake chatter we cannot interpret
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	if err := cmd.Start(); err != nil {
		return nil, lib.WrapError(ErrLaunch, err)
	}

	r.log.Debugf("launched %s pid %d for %s", r.binary, cmd.Process.Pid, coin.Ticker)

	p := &execProcess{
		cmd:  cmd,
		done: make(chan struct{}),
	}
	go func() {
		p.err.Store(cmd.Wait())
		close(p.done)
	}()
	return p, nil
}

func minerArgs(coin *coins.Coin) []string {
	user := coin.Wallet
	if coin.Worker != "" {
		user += "." + coin.Worker
	}
	return []string{
		"--algo", coin.Algorithm,
		"--pool", coin.Pool,
		"--user", user,
	}
}

type execProcess struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  atomic.Error
}

func (p *execProcess) Done() <-chan struct{} {
	return p.done
}

func (p *execProcess) Err() error {
	return p.err.Load()
}

func (p *execProcess) Stop(grace time.Duration) {
	_ = p.cmd.Process.Signal(syscall.SIGTERM)

	select {
	case <-p.done:
		return
	case <-time.After(grace):
	}

	_ = p.cmd.Process.Kill()
	<-p.done
}
