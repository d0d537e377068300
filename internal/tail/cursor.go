// Package tail follows a growing log file and yields each complete line
// appended to it exactly once.
package tail

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/afero"
)

// chunkSize bounds a single read from the log file.
const chunkSize = 64 * 1024 // 64KB

// Line is one complete line read from the log, terminator stripped.
type Line struct {
	Text string
	// Offset is the byte position of the line's first byte in the file.
	Offset int64
}

// State is the cursor's view of the followed file.
type State struct {
	Path string
	// Offset is the position up to which complete lines have been consumed.
	Offset int64
	// Size is the file size seen at the last successful read attempt.
	Size int64
	// Missing is true when the last attempt found no file at Path.
	Missing bool
}

// Cursor tracks what is new in a single log file. It is not safe for
// concurrent use; one goroutine owns a Cursor and calls AttemptRead.
type Cursor struct {
	fs     afero.Fs
	logger *slog.Logger
	state  State
	info   os.FileInfo
}

// Option configures a Cursor.
type Option func(*Cursor)

// WithFs sets the filesystem the cursor reads through.
func WithFs(fs afero.Fs) Option {
	return func(c *Cursor) { c.fs = fs }
}

// WithLogger sets the logger for truncation and rotation notices.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cursor) { c.logger = logger }
}

// NewCursor creates a cursor for path positioned at the current end of
// the file, so history already in the log is not replayed. If the file
// does not exist yet the cursor starts at offset 0 and will read the file
// from its creation.
func NewCursor(path string, opts ...Option) (*Cursor, error) {
	c := &Cursor{
		fs:     afero.NewOsFs(),
		logger: slog.Default(),
		state:  State{Path: path},
	}
	for _, opt := range opts {
		opt(c)
	}

	info, err := c.fs.Stat(path)
	switch {
	case err == nil:
		c.state.Offset = info.Size()
		c.state.Size = info.Size()
		c.info = info
	case errors.Is(err, fs.ErrNotExist):
		c.state.Missing = true
	default:
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return c, nil
}

// State returns a copy of the cursor's current state.
func (c *Cursor) State() State {
	return c.state
}

// AttemptRead returns the complete lines appended since the previous
// call, in file order. It never blocks waiting for data.
//
// A missing file yields no lines and no error. Any other I/O error is
// returned and leaves the cursor where it was, so the same bytes are read
// again on the next attempt.
func (c *Cursor) AttemptRead() ([]Line, error) {
	info, err := c.fs.Stat(c.state.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if !c.state.Missing {
				c.logger.Info("log file missing", "path", c.state.Path, "offset", c.state.Offset)
			}
			c.state.Missing = true
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", c.state.Path, err)
	}

	offset := c.state.Offset
	size := info.Size()

	if c.info != nil && !sameFile(c.info, info) {
		c.logger.Info("log file replaced, reading from start", "path", c.state.Path, "previous_offset", offset)
		offset = 0
	} else if size < offset {
		c.logger.Info("log file truncated, reading from start", "path", c.state.Path, "previous_offset", offset, "size", size)
		offset = 0
	}

	if size == offset {
		c.commit(info, offset)
		return nil, nil
	}

	lines, next, err := c.readRange(offset, size)
	if err != nil {
		return nil, err
	}
	c.commit(info, next)
	return lines, nil
}

func (c *Cursor) commit(info os.FileInfo, offset int64) {
	if c.state.Missing {
		c.logger.Info("log file present", "path", c.state.Path, "size", info.Size(), "offset", offset)
	}
	c.state.Offset = offset
	c.state.Size = info.Size()
	c.state.Missing = false
	c.info = info
}

// readRange reads [from, to) in bounded chunks and returns the complete
// lines found and the offset just past the last of them.
func (c *Cursor) readRange(from, to int64) ([]Line, int64, error) {
	f, err := c.fs.Open(c.state.Path)
	if err != nil {
		return nil, from, fmt.Errorf("opening %s: %w", c.state.Path, err)
	}
	defer f.Close()

	if _, err := f.Seek(from, io.SeekStart); err != nil {
		return nil, from, fmt.Errorf("seeking %s: %w", c.state.Path, err)
	}

	var (
		lines   []Line
		pending []byte
		pos     = from
		chunk   = make([]byte, chunkSize)
	)
	for pos < to {
		want := to - pos
		if want > chunkSize {
			want = chunkSize
		}
		n, err := io.ReadFull(f, chunk[:want])
		if n > 0 {
			buf := append(pending, chunk[:n]...)
			found, consumed := extractLines(buf, pos-int64(len(pending)))
			lines = append(lines, found...)
			pos += int64(n)
			pending = append(pending[:0], buf[consumed:]...)
		}
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
				// File shrank while reading; settle for what is there.
				break
			}
			return nil, from, fmt.Errorf("reading %s: %w", c.state.Path, err)
		}
	}

	return lines, pos - int64(len(pending)), nil
}

// sameFile reports whether a and b describe the same file. Filesystems
// that expose no identity, such as afero's MemMapFs, are assumed to
// always return the same file.
func sameFile(a, b os.FileInfo) bool {
	if a.Sys() == nil || b.Sys() == nil {
		return true
	}
	return os.SameFile(a, b)
}
