//go:build unix

package session

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"github.com/charmbracelet/x/xpty"
	"golang.org/x/sys/unix"
)

// configurePTYCommand sets up the command for PTY usage on Unix systems.
// This creates a new session and sets up the controlling terminal.
func configurePTYCommand(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true, // Create new session
		Setctty: true, // Set controlling terminal
		Ctty:    0,    // Use stdin (which will be the PTY slave)
	}
}

// closeSlave drops the parent's copy of the slave so the master reports EOF
// once every process in the session has closed it.
func closeSlave(p xpty.Pty) error {
	if u, ok := p.(*xpty.UnixPty); ok {
		return u.Slave().Close()
	}
	return nil
}

// signalGroup signals the process group led by pid. The shell is a session
// leader, so its pid is also its process group id.
func signalGroup(pid int, sig unix.Signal) error {
	err := unix.Kill(-pid, sig)
	if errors.Is(err, unix.ESRCH) {
		return os.ErrProcessDone
	}
	return err
}

func hangup(pid int) error {
	herr := signalGroup(pid, unix.SIGHUP)
	terr := signalGroup(pid, unix.SIGTERM)
	return errors.Join(herr, terr)
}

func kill(p *os.Process) error {
	gerr := signalGroup(p.Pid, unix.SIGKILL)
	if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return errors.Join(gerr, err)
	}
	return gerr
}

func notifyResize(pid int) error {
	return signalGroup(pid, unix.SIGWINCH)
}

func exitStatusOf(state *os.ProcessState) ExitStatus {
	if state == nil {
		return ExitStatus{Code: -1}
	}
	st := ExitStatus{Code: state.ExitCode()}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		st.Signal = ws.Signal()
	}
	return st
}

type controller interface {
	Control(fn func(fd uintptr)) error
}

// foregroundPgrp returns the foreground process group of the pty.
func foregroundPgrp(p xpty.Pty) (int, error) {
	c, ok := p.(controller)
	if !ok {
		return 0, errors.ErrUnsupported
	}
	var (
		pgrp int
		ierr error
	)
	if err := c.Control(func(fd uintptr) {
		pgrp, ierr = unix.IoctlGetInt(int(fd), unix.TIOCGPGRP)
	}); err != nil {
		return 0, err
	}
	return pgrp, ierr
}
