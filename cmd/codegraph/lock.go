// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// IndexLock is the write lease for ingestion: an flock-held file that
// prevents two index runs from interleaving their batches against the
// same project.
type IndexLock struct {
	projectID string
	lockPath  string // ~/.codegraph/<project>/index.lock
	lockFile  *os.File
}

// LockInfo contains information about the current lock holder.
type LockInfo struct {
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
}

// NewIndexLock creates the lock handle for the given project.
func NewIndexLock(projectID string) (*IndexLock, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}

	baseDir := filepath.Join(homeDir, ".codegraph", projectID)
	if err := os.MkdirAll(baseDir, 0750); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	return &IndexLock{
		projectID: projectID,
		lockPath:  filepath.Join(baseDir, "index.lock"),
	}, nil
}

// TryAcquire attempts to acquire the index lock.
// Returns true if the lock was acquired, false if another process holds it.
func (q *IndexLock) TryAcquire() (bool, error) {
	f, err := os.OpenFile(q.lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return false, fmt.Errorf("open lock file: %w", err)
	}

	// Try to acquire exclusive lock (non-blocking)
	err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		_ = f.Close()
		if err == syscall.EWOULDBLOCK {
			return false, nil // Lock is held by another process
		}
		return false, fmt.Errorf("flock: %w", err)
	}

	// Write our PID and start time to the lock file
	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("seek lock file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d %d\n", os.Getpid(), time.Now().Unix()); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("write lock file: %w", err)
	}

	q.lockFile = f
	return true, nil
}

// Release releases the index lock.
func (q *IndexLock) Release() {
	if q.lockFile != nil {
		_ = syscall.Flock(int(q.lockFile.Fd()), syscall.LOCK_UN)
		_ = q.lockFile.Close()
		q.lockFile = nil
	}
}

// Info returns information about the current lock holder, if any.
func (q *IndexLock) Info() (*LockInfo, error) {
	data, err := os.ReadFile(q.lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var pid int
	var timestamp int64
	if _, err := fmt.Sscanf(string(data), "%d %d", &pid, &timestamp); err != nil {
		return nil, fmt.Errorf("parse lock info: %w", err)
	}

	return &LockInfo{
		PID:       pid,
		StartedAt: time.Unix(timestamp, 0),
	}, nil
}

// IsStale checks if the lock is stale (process no longer exists).
func (q *IndexLock) IsStale() bool {
	info, err := q.Info()
	if err != nil || info == nil {
		return false
	}

	// Check if process is still running
	proc, err := os.FindProcess(info.PID)
	if err != nil {
		return true // Process not found
	}

	// On Unix, FindProcess always succeeds; use signal 0 to check if process exists
	err = proc.Signal(syscall.Signal(0))
	return err != nil
}
