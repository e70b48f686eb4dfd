package validation

import (
	"fmt"
	"os"
	"path/filepath"

	"sysmon/core"
)

// DiskSpaceInfo contains information about disk space.
type DiskSpaceInfo struct {
	// Path that was checked
	Path string
	// Total disk space in bytes
	Total uint64
	// Free disk space available to unprivileged users, in bytes
	Free uint64
	// Human-readable free
	FreeFormatted string
	// Percentage used (0-100)
	UsedPercent float64
}

// DiskSpaceError indicates a disk space problem.
type DiskSpaceError struct {
	Path      string
	Required  uint64
	Available uint64
	Message   string
}

func (e *DiskSpaceError) Error() string {
	return e.Message
}

// GetDiskSpace returns disk space information for the filesystem holding
// path. Missing path components are walked up until an existing directory
// is found.
func GetDiskSpace(path string) (*DiskSpaceInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if parent := filepath.Dir(path); parent != path {
				return GetDiskSpace(parent)
			}
		}
		return nil, fmt.Errorf("cannot access path %s: %w", path, err)
	}
	if !info.IsDir() {
		path = filepath.Dir(path)
	}

	total, free, err := getDiskSpace(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get disk space for %s: %w", path, err)
	}

	var usedPercent float64
	if total > 0 && free <= total {
		usedPercent = float64(total-free) / float64(total) * 100
	}

	return &DiskSpaceInfo{
		Path:          path,
		Total:         total,
		Free:          free,
		FreeFormatted: core.FormatBytes(free),
		UsedPercent:   usedPercent,
	}, nil
}
