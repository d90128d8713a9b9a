//go:build unix

package process

import (
	"context"
	"errors"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// IsProcessAlive checks if a process with the given PID is still running.
func IsProcessAlive(pid int) bool {
	// PID 0 or less is invalid.
	if pid <= 0 {
		return false
	}
	// Signal 0 checks existence. EPERM means it exists but belongs to
	// someone else.
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// GroupAttr starts a child in its own process group so Stop can signal
// everything it spawned.
func GroupAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// Stop sends SIGTERM to pid's process group and waits for exited to close.
// If it has not closed after grace, the group is killed.
func Stop(ctx context.Context, pid int, exited <-chan struct{}, grace time.Duration) error {
	if pid <= 0 {
		return nil
	}
	if !IsProcessAlive(pid) {
		return ErrProcessNotFound
	}
	if grace <= 0 {
		grace = DefaultStopGrace
	}

	termErr := signalGroup(pid, unix.SIGTERM)
	if waitExit(ctx, exited, grace) {
		return termErr
	}

	killErr := signalGroup(pid, unix.SIGKILL)
	waitExit(ctx, exited, grace)
	return errors.Join(termErr, killErr)
}

func signalGroup(pid int, sig unix.Signal) error {
	target := pid
	if pgid, err := unix.Getpgid(pid); err == nil && pgid == pid {
		target = -pgid
	}
	err := unix.Kill(target, sig)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}

func waitExit(ctx context.Context, exited <-chan struct{}, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-exited:
		return true
	case <-ctx.Done():
		return false
	case <-timer.C:
		return false
	}
}
