package filesystem

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFs_ReadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	testFile := filepath.Join(dir, "latest.log")
	content := []byte("hello\nworld\n")
	require.NoError(t, os.WriteFile(testFile, content, 0644))

	fs := NewFs()
	f, err := fs.Open(testFile)
	require.NoError(t, err)
	defer f.Close()

	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, string(content), string(got))
}

func TestNewFs_MissingFile(t *testing.T) {
	fs := NewFs()

	_, err := fs.Open(filepath.Join(t.TempDir(), "missing.log"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err), "expected not-exist error, got %v", err)

	_, err = fs.Stat(filepath.Join(t.TempDir(), "missing.log"))
	assert.True(t, os.IsNotExist(err), "expected not-exist error, got %v", err)
}

func TestNewFs_SeekInFile(t *testing.T) {
	dir := t.TempDir()
	testFile := filepath.Join(dir, "latest.log")
	require.NoError(t, os.WriteFile(testFile, []byte("line1\nline2\nline3\n"), 0644))

	f, err := NewFs().Open(testFile)
	require.NoError(t, err)
	defer f.Close()

	// Seek to position 6 (start of "line2")
	pos, err := f.Seek(6, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(6), pos)

	buf := make([]byte, 5)
	n, err := f.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "line2", string(buf[:n]))
}

func TestNewFs_RejectsWrites(t *testing.T) {
	dir := t.TempDir()
	testFile := filepath.Join(dir, "latest.log")
	require.NoError(t, os.WriteFile(testFile, []byte("keep\n"), 0644))

	fs := NewFs()
	_, err := fs.OpenFile(testFile, os.O_WRONLY|os.O_TRUNC, 0644)
	assert.Error(t, err)
	assert.Error(t, fs.Remove(testFile))

	got, err := os.ReadFile(testFile)
	require.NoError(t, err)
	assert.Equal(t, "keep\n", string(got))
}

func TestReadOnly_WrapsMemFs(t *testing.T) {
	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "/logs/latest.log", []byte("a\n"), 0644))

	fs := ReadOnly(mem)
	got, err := afero.ReadFile(fs, "/logs/latest.log")
	require.NoError(t, err)
	assert.Equal(t, "a\n", string(got))
	assert.Error(t, afero.WriteFile(fs, "/logs/latest.log", []byte("b\n"), 0644))
}
