package models_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snaplens/pkg/models"
)

func TestFromBytes(t *testing.T) {
	asset := models.FromBytes([]byte("image-data"))

	data, err := asset.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("image-data"), data)
	assert.Equal(t, int64(10), asset.Size)
	assert.Equal(t, "(in-memory image)", asset.Name())
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpeg-ish"), 0o644))

	asset, err := models.FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(8), asset.Size)
	assert.Equal(t, "photo.jpg", asset.Name())

	data, err := asset.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-ish"), data)
}

func TestFromFileNotFound(t *testing.T) {
	_, err := models.FromFile(filepath.Join(t.TempDir(), "missing.jpg"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestFromFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.jpg")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := models.FromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}
