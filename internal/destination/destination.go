package destination

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"skmotion/internal/config"
)

var (
	// ErrExists means the file exists and the policy forbids replacing it.
	ErrExists = errors.New("destination already exists")
	// ErrDeclined means the operator answered no to the overwrite prompt.
	ErrDeclined = errors.New("overwrite declined")
	// ErrBusy means another recorder holds the destination lock.
	ErrBusy = errors.New("destination is locked by another recorder")
)

// Options configures Acquire.
type Options struct {
	Path   string
	Policy string
	// Prompter asks the operator under the prompt policy. Nil means no
	// terminal is attached, so an existing file is refused.
	Prompter Prompter
}

// Lease is a locked destination ready to be written.
type Lease struct {
	Path     string
	Replaced bool
	lockPath string
	lock     *flock.Flock
}

// LockPath returns the advisory lock file guarding a destination.
func LockPath(path string) string {
	dir, base := filepath.Split(path)
	return filepath.Join(dir, "."+base+".lock")
}

// Acquire locks the destination and applies the overwrite policy.
func Acquire(opts Options) (*Lease, error) {
	if opts.Path == "" {
		return nil, errors.New("destination path is required")
	}
	path, err := filepath.Abs(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve destination: %w", err)
	}

	lease := &Lease{Path: path, lockPath: LockPath(path)}
	lease.lock = flock.New(lease.lockPath)
	ok, err := lease.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire destination lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBusy, path)
	}

	replace, err := checkExisting(path, opts)
	if err != nil {
		_ = lease.Release()
		return nil, err
	}
	lease.Replaced = replace
	return lease, nil
}

func checkExisting(path string, opts Options) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("inspect destination: %w", err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("destination %s is a directory", path)
	}

	switch opts.Policy {
	case config.OverwriteAlways:
		return true, nil
	case config.OverwriteFail:
		return false, fmt.Errorf("%w: %s (overwrite policy is fail)", ErrExists, path)
	default:
		if opts.Prompter == nil {
			return false, fmt.Errorf("%w: %s (no terminal to confirm; pass --overwrite always)", ErrExists, path)
		}
		ok, err := opts.Prompter.Confirm(fmt.Sprintf("%s exists. Overwrite the existing file?", path))
		if err != nil {
			return false, fmt.Errorf("confirm overwrite: %w", err)
		}
		if !ok {
			return false, ErrDeclined
		}
		return true, nil
	}
}

// Release drops the lock and removes the lock file.
func (l *Lease) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	err := l.lock.Unlock()
	if rmErr := os.Remove(l.lockPath); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) && err == nil {
		err = rmErr
	}
	l.lock = nil
	return err
}

// Size returns the current size of the destination file.
func (l *Lease) Size() (int64, error) {
	info, err := os.Stat(l.Path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
