package bundle

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteZipIsFlat(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "S002_b.png"), []byte("two"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "S001_a.png"), []byte("one"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".S003.png.part"), []byte("partial"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "x.png"), []byte("x"), 0644))

	var buf bytes.Buffer
	n, err := WriteZip(&buf, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "S001_a.png", zr.File[0].Name)
	assert.Equal(t, "S002_b.png", zr.File[1].Name)
	assert.Equal(t, zip.Deflate, zr.File[0].Method)

	rc, err := zr.File[1].Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestWriteZipMissingDir(t *testing.T) {
	var buf bytes.Buffer
	_, err := WriteZip(&buf, filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
