package preflight

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/disk"
	"golang.org/x/sys/unix"
)

// CheckDirectoryAccess verifies path is an existing, writable directory.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (write ok)", path)}
}

// CheckFreeSpace verifies the filesystem holding path has at least minFree
// bytes available.
func CheckFreeSpace(ctx context.Context, name, path string, minFree uint64) Result {
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	detail := fmt.Sprintf("%s free of %s", humanize.IBytes(usage.Free), humanize.IBytes(usage.Total))
	if usage.Free < minFree {
		return Result{Name: name, Detail: fmt.Sprintf("%s (need %s)", detail, humanize.IBytes(minFree))}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckDisplayServer verifies an X11 or Wayland session is reachable through
// the environment.
func CheckDisplayServer() Result {
	const name = "Display server"
	if display := os.Getenv("DISPLAY"); display != "" {
		return Result{Name: name, Passed: true, Detail: "X11 " + display}
	}
	if wayland := os.Getenv("WAYLAND_DISPLAY"); wayland != "" {
		return Result{Name: name, Passed: true, Detail: "Wayland " + wayland + " (XWayland required)"}
	}
	return Result{Name: name, Detail: "neither DISPLAY nor WAYLAND_DISPLAY is set"}
}
