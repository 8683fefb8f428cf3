// Package fileswap provides a crash-safe file replacement primitive.
//
// The swap protocol keeps three sibling paths per target: the target itself,
// a ".fut" staging file holding the next content, and a ".bak" file holding
// the previous content. The target is only ever replaced by a completed
// rename, so a reader never observes it absent or half-written once Swap has
// returned successfully. The ".bak" file is kept for manual recovery and is
// never restored automatically.
package fileswap

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// FutureSuffix marks the staging sidecar written before the swap.
	FutureSuffix = ".fut"
	// BackupSuffix marks the sidecar holding the previous content.
	BackupSuffix = ".bak"
)

// SwapError wraps any I/O failure of the swap protocol. The prior backup
// file, when present, is left intact for manual recovery.
type SwapError struct {
	Path string
	Step string
	Err  error
}

func (e *SwapError) Error() string {
	return fmt.Sprintf("file swap of %s failed at %s: %v", e.Path, e.Step, e.Err)
}

func (e *SwapError) Unwrap() error { return e.Err }

// FuturePath returns the staging sidecar path for target.
func FuturePath(target string) string { return target + FutureSuffix }

// BackupPath returns the backup sidecar path for target.
func BackupPath(target string) string { return target + BackupSuffix }

// Swap replaces the file at target with content.
//
// Steps: write content to the future sidecar, drop any stale backup, make
// sure target exists so the first rename cannot fail on a missing source,
// rename target to the backup sidecar, rename the future sidecar to target.
// Both renames are single atomic syscalls on the same filesystem, so an
// interruption between them leaves either the old or the new file reachable
// under a sidecar name, never a truncated target.
func Swap(target string, content []byte) error {
	future := FuturePath(target)
	backup := BackupPath(target)

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return &SwapError{Path: target, Step: "mkdir", Err: err}
	}

	if err := os.WriteFile(future, content, 0o644); err != nil {
		return &SwapError{Path: target, Step: "write future", Err: err}
	}

	if err := os.Remove(backup); err != nil && !os.IsNotExist(err) {
		return &SwapError{Path: target, Step: "remove stale backup", Err: err}
	}

	// The rename below needs a source file. A fresh target directory has
	// none yet, so create an empty one.
	if _, err := os.Stat(target); os.IsNotExist(err) {
		if err := os.WriteFile(target, nil, 0o644); err != nil {
			return &SwapError{Path: target, Step: "create empty target", Err: err}
		}
	} else if err != nil {
		return &SwapError{Path: target, Step: "stat target", Err: err}
	}

	if err := os.Rename(target, backup); err != nil {
		return &SwapError{Path: target, Step: "rename target to backup", Err: err}
	}

	if err := os.Rename(future, target); err != nil {
		return &SwapError{Path: target, Step: "rename future to target", Err: err}
	}

	return nil
}

// RemoveFuture deletes a stale staging file left behind by an interrupted
// swap. A missing staging file is not an error.
func RemoveFuture(target string) error {
	if err := os.Remove(FuturePath(target)); err != nil && !os.IsNotExist(err) {
		return &SwapError{Path: target, Step: "remove stale future", Err: err}
	}
	return nil
}

// WriteDirect overwrites target in place, without the swap protocol. Used
// for files whose readers tolerate a plain overwrite, such as the base
// proxy configuration.
func WriteDirect(target string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return &SwapError{Path: target, Step: "mkdir", Err: err}
	}
	if err := os.WriteFile(target, content, 0o644); err != nil {
		return &SwapError{Path: target, Step: "write", Err: err}
	}
	return nil
}
