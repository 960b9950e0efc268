// Package lock guards an instance directory so only one chatd serves it.
// The lock file also tells clients which process holds it and where that
// process listens.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// FileName is the lock file inside an instance directory.
const FileName = "LOCK"

// Info is what the holder records in the lock file.
type Info struct {
	PID     int
	Started time.Time
	Listen  string
}

func (i Info) encode() string {
	return fmt.Sprintf("pid=%d\ntime=%s\nlisten=%s\n", i.PID, i.Started.UTC().Format(time.RFC3339), i.Listen)
}

func parseInfo(content string) Info {
	var info Info
	for _, line := range strings.Split(content, "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			info.PID, _ = strconv.Atoi(value)
		case "time":
			info.Started, _ = time.Parse(time.RFC3339, value)
		case "listen":
			info.Listen = value
		}
	}
	return info
}

// LockHeldError is returned when another process holds the instance lock.
type LockHeldError struct {
	Holder Info
	Path   string
}

func (e *LockHeldError) Error() string {
	return fmt.Sprintf("instance lock held by PID %d since %s (%s)",
		e.Holder.PID, e.Holder.Started.Format(time.RFC3339), e.Path)
}

// Lock represents an acquired instance lock file.
type Lock struct {
	file *os.File
	path string
	info Info
}

// Acquire takes an exclusive lock on dir and records the current process
// and its listen address. It returns a *LockHeldError if another process
// already holds it.
func Acquire(dir, listen string) (*Lock, error) {
	lockPath := filepath.Join(dir, FileName)

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create instance dir: %w", err)
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		data, _ := os.ReadFile(lockPath)
		_ = f.Close()
		return nil, &LockHeldError{Holder: parseInfo(string(data)), Path: lockPath}
	}

	info := Info{PID: os.Getpid(), Started: time.Now().Truncate(time.Second), Listen: listen}
	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return nil, err
	}
	if _, err := f.WriteAt([]byte(info.encode()), 0); err != nil {
		_ = f.Close()
		return nil, err
	}

	return &Lock{file: f, path: lockPath, info: info}, nil
}

// Info returns what this lock recorded.
func (l *Lock) Info() Info {
	return l.info
}

// Inspect reports who holds the lock on dir. held is false when no file
// exists or when the file was left behind by a process that died.
func Inspect(dir string) (info Info, held bool, err error) {
	lockPath := filepath.Join(dir, FileName)
	f, err := os.Open(lockPath)
	if errors.Is(err, os.ErrNotExist) {
		return Info{}, false, nil
	}
	if err != nil {
		return Info{}, false, fmt.Errorf("open lock file: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := os.ReadFile(lockPath)
	if err != nil {
		return Info{}, false, err
	}
	info = parseInfo(string(data))

	// A lock we can take ourselves is stale.
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_SH|syscall.LOCK_NB); err == nil {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		return info, false, nil
	}
	return info, true, nil
}

// Release releases the lock. Safe to call on nil receiver.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	// Remove lock file before closing to avoid stale files.
	_ = os.Remove(l.path)
	err := l.file.Close()
	l.file = nil
	return err
}
