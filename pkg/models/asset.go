package models

import (
	"fmt"
	"os"
	"path/filepath"
)

// ImageAsset is an opaque reference to a source image: either a path on disk
// or an in-memory buffer. It is what the capture side (CLI, camera, picker)
// hands to the pipeline.
type ImageAsset struct {
	// Path is the on-disk location of the image, empty for in-memory assets.
	Path string

	// Data holds the image bytes for in-memory assets. When Path is set and
	// Data is nil, bytes are loaded lazily via Bytes().
	Data []byte

	// Size is the known byte size of the source image.
	Size int64
}

// FromFile builds an ImageAsset from a path, validating that the file exists,
// is regular and non-empty. Permission problems are reported as-is so callers
// can distinguish them from missing files.
func FromFile(path string) (*ImageAsset, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("image file not found: %s", path)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("permission denied accessing image file: %s", path)
		}
		return nil, fmt.Errorf("error accessing image file: %w", err)
	}

	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("path is not a regular file: %s", path)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("image file is empty: %s", path)
	}

	return &ImageAsset{
		Path: path,
		Size: info.Size(),
	}, nil
}

// FromBytes builds an in-memory ImageAsset.
func FromBytes(data []byte) *ImageAsset {
	return &ImageAsset{
		Data: data,
		Size: int64(len(data)),
	}
}

// Bytes returns the raw image bytes, reading from disk if needed.
func (a *ImageAsset) Bytes() ([]byte, error) {
	if a.Data != nil {
		return a.Data, nil
	}
	if a.Path == "" {
		return nil, fmt.Errorf("image asset has neither data nor path")
	}

	data, err := os.ReadFile(a.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file %s: %w", a.Path, err)
	}
	return data, nil
}

// Name returns a display name for the asset.
func (a *ImageAsset) Name() string {
	if a.Path != "" {
		return filepath.Base(a.Path)
	}
	return "(in-memory image)"
}
