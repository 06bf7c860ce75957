// Package supervisor owns sibling processes started by a run. A sibling is
// only ever addressed through the handle returned by Spawn.
package supervisor

import (
	"os"
	"os/exec"
	"syscall"
	"time"

	"codeberg.org/mutker/pidctl/internal/errors"
	"codeberg.org/mutker/pidctl/internal/logger"
	"golang.org/x/sys/unix"
)

const DefaultGracePeriod = 3 * time.Second

type Process struct {
	name string
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

// Spawn starts path with args, inheriting stdout and stderr.
func Spawn(name, path string, args ...string) (*Process, error) {
	cmd := exec.Command(path, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	// Own process group, so a terminal interrupt reaches the sibling only
	// through Stop.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, errors.New().Wrap(errors.ErrProcessSpawn, err)
	}

	p := &Process{name: name, cmd: cmd, done: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()

	logger.Info().Str("process", name).Int("pid", cmd.Process.Pid).Msg("Started sibling process")

	return p, nil
}

func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Exited reports whether the process has already terminated.
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Stop interrupts the process and waits up to grace for it to exit, then
// kills it. Stopping an exited process returns its exit error, if any.
func (p *Process) Stop(grace time.Duration) error {
	errFactory := errors.New()

	if p.Exited() {
		return p.exitErr()
	}

	if err := p.signalGroup(unix.SIGINT); err != nil && !p.Exited() {
		return errFactory.Wrap(errors.ErrProcessStop, err)
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-p.done:
		logger.Debug().Str("process", p.name).Msg("Sibling process exited")
		return p.exitErr()
	case <-timer.C:
	}

	logger.Warn().Str("process", p.name).Dur("grace", grace).Msg("Sibling did not exit in time, killing")
	if err := p.signalGroup(unix.SIGKILL); err != nil && !p.Exited() {
		return errFactory.Wrap(errors.ErrProcessStop, err)
	}
	<-p.done

	return nil
}

// signalGroup delivers sig to the sibling and everything it started.
func (p *Process) signalGroup(sig syscall.Signal) error {
	return unix.Kill(-p.cmd.Process.Pid, sig)
}

func (p *Process) exitErr() error {
	if p.err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(p.err, &exitErr) && exitErr.ExitCode() == -1 {
		// terminated by our signal
		return nil
	}

	return errors.New().Wrap(errors.ErrProcessStop, p.err)
}
