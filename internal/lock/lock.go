// Package lock keeps two catalogsync processes from writing the same domain
// at once.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"syscall"

	"github.com/catalogsync/catalogsync/internal/config"
)

// DefaultDir holds one lock file per domain.
const DefaultDir = "~/.catalogsync/locks/"

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// HeldError is returned when another live process holds the lock.
type HeldError struct {
	Name string
	PID  int
}

func (e *HeldError) Error() string {
	return fmt.Sprintf("%s is being synced by another catalogsync process (PID %d)", e.Name, e.PID)
}

// Lock is a held PID lock file.
type Lock struct {
	path string
}

// Path returns the lock file for name inside dir.
func Path(dir, name string) string {
	if dir == "" {
		dir = DefaultDir
	}
	return filepath.Join(config.ExpandHome(dir), unsafeName.ReplaceAllString(name, "_")+".lock")
}

// Acquire takes the lock for name. A lock file left by a dead process is
// taken over.
func Acquire(dir, name string) (*Lock, error) {
	path := Path(dir, name)

	if pid, ok := readPID(path); ok && pid != os.Getpid() && isProcessRunning(pid) {
		return nil, &HeldError{Name: name, PID: pid}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return nil, fmt.Errorf("writing lock file: %w", err)
	}
	return &Lock{path: path}, nil
}

// Release removes the lock file.
func (l *Lock) Release() error {
	err := os.Remove(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func readPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	return pid, true
}

func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
