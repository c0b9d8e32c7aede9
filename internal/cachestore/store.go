// Package cachestore is the content-addressed artifact store backing the
// binary caches. Blobs are keyed by their sha256 hex digest and laid out
// two levels deep on disk (ab/abcdef...).
package cachestore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/wavelens/gradient/pkg/responses"
)

var hashPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Store is a content-addressed blob store rooted at a directory.
type Store struct {
	root string
}

// New opens (creating if needed) a store at root.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, responses.Wrap(responses.CodeInternalError, "create cache root", err)
	}
	return &Store{root: root}, nil
}

func (s *Store) blobPath(hash string) string {
	return filepath.Join(s.root, hash[:2], hash)
}

// Put stores a blob and returns its hash. Storing the same content twice
// is a no-op; the existing blob wins.
func (s *Store) Put(data io.Reader) (string, error) {
	tmp, err := os.CreateTemp(s.root, "incoming-*")
	if err != nil {
		return "", responses.Wrap(responses.CodeInternalError, "create temp blob", err)
	}
	defer os.Remove(tmp.Name())

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, hasher), data); err != nil {
		tmp.Close()
		return "", responses.Wrap(responses.CodeInternalError, "write blob", err)
	}
	if err := tmp.Close(); err != nil {
		return "", responses.Wrap(responses.CodeInternalError, "write blob", err)
	}

	hash := hex.EncodeToString(hasher.Sum(nil))
	path := s.blobPath(hash)

	if _, err := os.Stat(path); err == nil {
		return hash, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", responses.Wrap(responses.CodeInternalError, "create blob directory", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		// A concurrent Put of the same content may have won the rename.
		if _, statErr := os.Stat(path); statErr == nil {
			return hash, nil
		}
		return "", responses.Wrap(responses.CodeInternalError, "store blob", err)
	}
	return hash, nil
}

// Get opens a blob for reading. The caller closes it.
func (s *Store) Get(hash string) (io.ReadCloser, error) {
	if !hashPattern.MatchString(hash) {
		return nil, responses.NewValidation("invalid blob hash")
	}
	f, err := os.Open(s.blobPath(hash))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, responses.ErrRecordNotFound
		}
		return nil, responses.Wrap(responses.CodeInternalError, "open blob", err)
	}
	return f, nil
}

// Has reports whether a blob exists without opening it.
func (s *Store) Has(hash string) bool {
	if !hashPattern.MatchString(hash) {
		return false
	}
	_, err := os.Stat(s.blobPath(hash))
	return err == nil
}
