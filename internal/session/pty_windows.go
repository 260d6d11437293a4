//go:build windows

package session

import (
	"errors"
	"os"
	"os/exec"

	"github.com/charmbracelet/x/xpty"
)

// configurePTYCommand sets up the command for PTY usage on Windows.
// ConPTY handles the terminal setup itself.
func configurePTYCommand(cmd *exec.Cmd) {}

func closeSlave(xpty.Pty) error { return nil }

// hangup has no graceful equivalent on Windows; the process is killed.
func hangup(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}

func kill(p *os.Process) error {
	return p.Kill()
}

// notifyResize is a no-op: ConPTY forwards size changes to the console.
func notifyResize(int) error { return nil }

func exitStatusOf(state *os.ProcessState) ExitStatus {
	if state == nil {
		return ExitStatus{Code: -1}
	}
	return ExitStatus{Code: state.ExitCode()}
}

func foregroundPgrp(xpty.Pty) (int, error) {
	return 0, errors.ErrUnsupported
}
