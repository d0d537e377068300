// Package filesystem provides the filesystem the log cursor reads through.
//
// Minecraft servers keep their log open for writing and rotate it by
// renaming, so on Windows the file has to be opened with share modes that
// allow both. Everywhere else the plain OS filesystem is used.
package filesystem

import "github.com/spf13/afero"

// ReadOnly wraps fs so that any attempt to modify it fails. The monitor
// never writes to the log it watches.
func ReadOnly(fs afero.Fs) afero.Fs {
	return afero.NewReadOnlyFs(fs)
}
