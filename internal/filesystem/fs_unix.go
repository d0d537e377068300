//go:build !windows

package filesystem

import "github.com/spf13/afero"

// NewFs returns the filesystem appropriate for the current OS.
// On Unix, open files do not block rename or delete by other processes.
func NewFs() afero.Fs {
	return ReadOnly(afero.NewOsFs())
}
