//go:build windows

package filesystem

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/sys/windows"
)

// shareFs is an OS filesystem whose Open uses
// FILE_SHARE_READ | FILE_SHARE_WRITE | FILE_SHARE_DELETE.
type shareFs struct {
	afero.Fs
}

// NewFs returns a filesystem that opens files with Windows share modes
// so the writer can keep appending to, and rotating, the log we read.
func NewFs() afero.Fs {
	return ReadOnly(&shareFs{Fs: afero.NewOsFs()})
}

func (s *shareFs) Name() string { return "ShareFs" }

// Open opens the named file for reading. Paths longer than MAX_PATH get
// the \\?\ prefix.
func (s *shareFs) Open(name string) (afero.File, error) {
	long := extendedPath(name)

	pathPtr, err := windows.UTF16PtrFromString(long)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	handle, err := windows.CreateFile(
		pathPtr,
		windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_ATTRIBUTE_NORMAL,
		0,
	)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: name, Err: err}
	}

	return os.NewFile(uintptr(handle), name), nil
}

// OpenFile only takes the share-mode path for plain reads.
func (s *shareFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag == os.O_RDONLY {
		return s.Open(name)
	}
	return s.Fs.OpenFile(name, flag, perm)
}

// extendedPath converts paths over MAX_PATH to extended-length form.
// See: https://docs.microsoft.com/en-us/windows/win32/fileio/maximum-file-path-limitation
func extendedPath(name string) string {
	if len(name) <= 259 || strings.HasPrefix(name, `\\?\`) {
		return name
	}
	if strings.HasPrefix(name, `\\`) {
		// UNC path: \\server\share -> \\?\UNC\server\share
		return `\\?\UNC\` + name[2:]
	}
	return `\\?\` + name
}
