// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package lock serializes bindings of the same file across goroutines and
// processes with an OS-level lock held on a sibling ".lock" file.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

// ErrLockTimeout is returned when the lock is not acquired in time.
var ErrLockTimeout = errors.New("timeout acquiring lock")

const (
	// DefaultTimeout bounds how long Acquire waits when no timeout is set.
	DefaultTimeout = 10 * time.Second

	pollInterval = 10 * time.Millisecond
	lockSuffix   = ".lock"
)

// FileLock is a held lock. Release it exactly once.
type FileLock struct {
	Path  string // The file being protected
	flock *flock.Flock
}

// Release drops the lock. The lock file itself is left in place so that a
// concurrent waiter never locks an unlinked inode.
func (l *FileLock) Release() error {
	if l == nil || l.flock == nil {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("releasing lock for %s: %w", l.Path, err)
	}
	return nil
}

// Manager hands out exclusive per-file locks.
type Manager struct {
	Timeout time.Duration // Wait limit per Acquire (default 10s)
}

// Acquire blocks until the exclusive lock for path is held, ctx is done,
// or the timeout elapses.
func (m *Manager) Acquire(ctx context.Context, path string) (*FileLock, error) {
	if path == "" {
		return nil, errors.New("lock path is required")
	}

	timeout := m.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fl := flock.New(path + lockSuffix)
	locked, err := fl.TryLockContext(ctx, pollInterval)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s after %s", ErrLockTimeout, path, timeout)
		}
		return nil, fmt.Errorf("acquiring lock for %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLockTimeout, path)
	}

	return &FileLock{Path: path, flock: fl}, nil
}
