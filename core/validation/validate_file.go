package validation

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileError describes a path that cannot be used, with a descriptive message
type FileError struct {
	Path    string
	Message string
}

func (e *FileError) Error() string {
	return e.Message
}

// CheckFileExists checks if a regular file exists at the given path.
//
// Returns nil if the file exists, or a *FileError describing the failure.
func CheckFileExists(path string) error {
	if path == "" {
		return &FileError{Path: path, Message: "file path cannot be empty"}
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &FileError{Path: path, Message: fmt.Sprintf("file not found: %s", path)}
		}
		return &FileError{Path: path, Message: fmt.Sprintf("error checking file %s: %v", path, err)}
	}

	if info.IsDir() {
		return &FileError{Path: path, Message: fmt.Sprintf("path is a directory, not a file: %s", path)}
	}
	return nil
}

// CheckDirWritable creates the directory holding path if needed and verifies
// a file can be created in it.
func CheckDirWritable(path string) error {
	if path == "" {
		return &FileError{Path: path, Message: "file path cannot be empty"}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &FileError{Path: path, Message: fmt.Sprintf("cannot create directory %s: %v", dir, err)}
	}

	probe, err := os.CreateTemp(dir, ".sysmon-probe-*")
	if err != nil {
		return &FileError{Path: path, Message: fmt.Sprintf("directory %s is not writable: %v", dir, err)}
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return nil
}
