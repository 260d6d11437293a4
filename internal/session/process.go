package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/shirou/gopsutil/v4/process"
)

// ProcessInfo identifies the process in the foreground of the pty.
type ProcessInfo struct {
	Pid  int
	Name string
}

// ForegroundProcess returns the leader of the pty's foreground process
// group, e.g. vim while it runs under the shell. Platforms that cannot
// query the group report the shell itself.
func (s *Session) ForegroundProcess(ctx context.Context) (ProcessInfo, error) {
	if !s.Alive() {
		return ProcessInfo{}, ErrNoProcess
	}

	pid, err := foregroundPgrp(s.pty)
	switch {
	case errors.Is(err, errors.ErrUnsupported):
		pid = s.Pid()
	case err != nil:
		return ProcessInfo{}, fmt.Errorf("failed to query foreground group: %w", err)
	case pid <= 0:
		return ProcessInfo{}, ErrNoProcess
	}

	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return ProcessInfo{}, fmt.Errorf("%w: %w", ErrNoProcess, err)
	}
	name, err := p.NameWithContext(ctx)
	if err != nil {
		return ProcessInfo{}, fmt.Errorf("failed to read process name: %w", err)
	}
	return ProcessInfo{Pid: pid, Name: name}, nil
}
