// Package storage persists downloaded images under per-item directories,
// skipping payloads already stored for the same item.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DefaultExtension is used when the source URL path carries none.
const DefaultExtension = ".jpg"

// HashSet tracks content hashes already stored for one item.
type HashSet map[string]struct{}

// NewHashSet returns an empty set.
func NewHashSet() HashSet {
	return make(HashSet)
}

// Contains reports whether hash was added before.
func (h HashSet) Contains(hash string) bool {
	_, ok := h[hash]
	return ok
}

// Add records hash.
func (h HashSet) Add(hash string) {
	h[hash] = struct{}{}
}

// Len returns the number of hashes in the set.
func (h HashSet) Len() int {
	return len(h)
}

// PersistenceError reports a filesystem failure under the output tree.
// The crawl cannot continue without a writable destination.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ContentStore writes image payloads below a root directory.
type ContentStore struct {
	root string
}

// NewContentStore creates root if needed.
func NewContentStore(root string) (*ContentStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("image directory must be provided")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, &PersistenceError{Op: "mkdir", Path: root, Err: err}
	}
	return &ContentStore{root: root}, nil
}

// Root returns the directory holding all item directories.
func (s *ContentStore) Root() string {
	return s.root
}

// ItemDir returns the directory for the item with the given id.
func (s *ContentStore) ItemDir(id string) string {
	return filepath.Join(s.root, id)
}

// Store writes data to dir/<stem><ext> unless its hash is already in seen.
// The extension comes from sourceURL. On success the hash is added to seen
// and the written path is returned with stored=true; a duplicate returns
// stored=false and no error.
func (s *ContentStore) Store(data []byte, sourceURL, dir, stem string, seen HashSet) (string, bool, error) {
	hash := ContentHash(data)
	if seen.Contains(hash) {
		return "", false, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, &PersistenceError{Op: "mkdir", Path: dir, Err: err}
	}
	dest := filepath.Join(dir, stem+Extension(sourceURL))
	if err := WriteFileAtomic(dest, data); err != nil {
		return "", false, err
	}

	seen.Add(hash)
	return dest, true, nil
}

// ContentHash returns the hex SHA-256 digest of data.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Extension derives a file extension from the path component of rawURL.
func Extension(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	ext := path.Ext(p)
	if ext == "" || ext == "." {
		return DefaultExtension
	}
	return ext
}

// WriteFileAtomic writes data to a temporary file next to dest and renames
// it into place, so readers never observe a partial file.
func WriteFileAtomic(dest string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tmp-*")
	if err != nil {
		return &PersistenceError{Op: "create", Path: dest, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &PersistenceError{Op: "write", Path: dest, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Op: "close", Path: dest, Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Op: "chmod", Path: dest, Err: err}
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Op: "rename", Path: dest, Err: err}
	}
	return nil
}
