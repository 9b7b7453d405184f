// Package embedcache persists catalog embedding matrices on disk between runs.
package embedcache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rfpquote/backend/internal/domain"
	"gonum.org/v1/gonum/mat"
)

// blob is the on-disk representation of a dense matrix
type blob struct {
	Rows int
	Cols int
	Data []float64
}

// FileCache stores one embedding matrix in a gob file
type FileCache struct {
	path string
}

// NewFileCache creates a cache backed by path
func NewFileCache(path string) *FileCache {
	return &FileCache{path: path}
}

// ForVendorSet returns the cache file for a vendor set key inside dir
func ForVendorSet(dir, vendorSetKey string) *FileCache {
	sum := sha256.Sum256([]byte(vendorSetKey))
	name := "embeddings-" + hex.EncodeToString(sum[:8]) + ".gob"
	return NewFileCache(filepath.Join(dir, name))
}

// Path returns the cache file path
func (c *FileCache) Path() string {
	return c.path
}

// Load reads the cached matrix. A missing, unreadable, corrupt or inconsistent
// file is reported as domain.ErrCacheMiss.
func (c *FileCache) Load() (*mat.Dense, error) {
	file, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheMiss, err)
	}
	defer file.Close()

	var b blob
	if err := gob.NewDecoder(file).Decode(&b); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrCacheMiss, c.path, err)
	}
	if b.Rows <= 0 || b.Cols <= 0 || len(b.Data) != b.Rows*b.Cols {
		return nil, fmt.Errorf("%w: inconsistent shape %dx%d with %d values", domain.ErrCacheMiss, b.Rows, b.Cols, len(b.Data))
	}

	return mat.NewDense(b.Rows, b.Cols, b.Data), nil
}

// Save writes m to a temporary file and renames it over the cache file, so readers
// never observe a partial write.
func (c *FileCache) Save(m *mat.Dense) error {
	if m == nil || m.IsEmpty() {
		return fmt.Errorf("refusing to cache an empty matrix")
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	rows, cols := m.Dims()
	b := blob{Rows: rows, Cols: cols, Data: make([]float64, 0, rows*cols)}
	for i := 0; i < rows; i++ {
		b.Data = append(b.Data, m.RawRowView(i)...)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := gob.NewEncoder(tmp).Encode(&b); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encode embeddings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp cache file: %w", err)
	}

	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}
