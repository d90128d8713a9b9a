//go:build !unix

package process

import (
	"context"
	"os"
	"syscall"
	"time"
)

// IsProcessAlive checks if a process with the given PID is still running.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	_, err := os.FindProcess(pid)
	return err == nil
}

// GroupAttr returns no extra attributes on this platform.
func GroupAttr() *syscall.SysProcAttr {
	return nil
}

// Stop kills pid and waits for exited to close.
func Stop(ctx context.Context, pid int, exited <-chan struct{}, grace time.Duration) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return ErrProcessNotFound
	}
	killErr := p.Kill()
	if grace <= 0 {
		grace = DefaultStopGrace
	}
	select {
	case <-exited:
	case <-ctx.Done():
	case <-time.After(grace):
	}
	return killErr
}
