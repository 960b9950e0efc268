package lock

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireRecordsHolder(t *testing.T) {
	dir := t.TempDir()

	l, err := Acquire(dir, "/tmp/chatd.sock")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer func() { _ = l.Release() }()

	info, held, err := Inspect(dir)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if !held {
		t.Error("Inspect() should report the lock as held")
	}
	if info.PID != os.Getpid() || info.Listen != "/tmp/chatd.sock" || info.Started.IsZero() {
		t.Errorf("Inspect() = %+v", info)
	}
	if !info.Started.Equal(l.Info().Started) {
		t.Errorf("started %v, lock says %v", info.Started, l.Info().Started)
	}
}

func TestDoubleAcquireFails(t *testing.T) {
	dir := t.TempDir()

	l1, err := Acquire(dir, "first")
	if err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}
	defer func() { _ = l1.Release() }()

	_, err = Acquire(dir, "second")
	var lockErr *LockHeldError
	if !errors.As(err, &lockErr) {
		t.Fatalf("second Acquire() error = %T %v, want LockHeldError", err, err)
	}
	if lockErr.Holder.PID != os.Getpid() || lockErr.Holder.Listen != "first" {
		t.Errorf("holder = %+v", lockErr.Holder)
	}
}

func TestInspectWithoutDaemon(t *testing.T) {
	dir := t.TempDir()

	if _, held, err := Inspect(dir); err != nil || held {
		t.Errorf("Inspect(empty) = held %v, err %v", held, err)
	}

	// A file with no live holder is stale.
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("pid=42\nlisten=x\n"), 0600); err != nil {
		t.Fatal(err)
	}
	info, held, err := Inspect(dir)
	if err != nil || held {
		t.Errorf("Inspect(stale) = held %v, err %v", held, err)
	}
	if info.PID != 42 {
		t.Errorf("stale PID = %d, want 42", info.PID)
	}
}

func TestReleaseRemovesFile(t *testing.T) {
	dir := t.TempDir()

	l, err := Acquire(dir, "")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := l.Release(); err != nil {
		t.Errorf("first Release() error = %v", err)
	}
	if err := l.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, FileName)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("lock file still present: %v", err)
	}

	var nilLock *Lock
	if err := nilLock.Release(); err != nil {
		t.Errorf("nil Release() error = %v", err)
	}
}
