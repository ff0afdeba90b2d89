package storage

import (
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// BlobStore is filesystem-backed image storage rooted at the public dir.
// Files live under category folders like "images/products"; folders are
// created on first use.
type BlobStore struct {
	root string
}

func NewBlobStore(root string) *BlobStore {
	return &BlobStore{root: filepath.Clean(root)}
}

func (s *BlobStore) Root() string {
	return s.root
}

func (s *BlobStore) EnsureFolder(folder string) error {
	return os.MkdirAll(filepath.Join(s.root, filepath.FromSlash(folder)), 0o755)
}

func (s *BlobStore) Save(folder, filename string, data []byte) error {
	if err := s.EnsureFolder(folder); err != nil {
		log.Printf("[BLOB] create folder %s failed: %v", folder, err)
		return err
	}

	target, err := s.resolve(path.Join(folder, filename))
	if err != nil {
		return err
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		log.Printf("[BLOB] write %s failed: %v", filename, err)
		return err
	}
	return nil
}

func (s *BlobStore) Exists(relPath string) bool {
	target, err := s.resolve(relPath)
	if err != nil {
		return false
	}
	_, err = os.Stat(target)
	return err == nil
}

// Delete removes a stored file. A missing file is not an error.
func (s *BlobStore) Delete(relPath string) error {
	target, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// SafeDelete is the best-effort variant used by rollback, commit and cascade
// cleanup: failures are logged and swallowed so they never mask the outcome
// of the request that triggered them.
func (s *BlobStore) SafeDelete(relPath string) {
	if strings.TrimSpace(relPath) == "" {
		return
	}
	if err := s.Delete(relPath); err != nil {
		log.Printf("[BLOB] delete %s failed: %v", relPath, err)
	}
}

// resolve confines relPath to the store root, rejecting traversal attempts.
func (s *BlobStore) resolve(relPath string) (string, error) {
	cleanRel := path.Clean("/" + strings.TrimPrefix(strings.TrimSpace(relPath), "/"))
	cleanRel = strings.TrimPrefix(cleanRel, "/")
	if cleanRel == "" || cleanRel == "." {
		return "", fmt.Errorf("empty blob path")
	}

	target := filepath.Clean(filepath.Join(s.root, filepath.FromSlash(cleanRel)))
	if target != s.root && !strings.HasPrefix(target, s.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("refusing path outside blob root: %s", relPath)
	}
	return target, nil
}
