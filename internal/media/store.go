// Package media stores complaint evidence on local disk and fingerprints it.
package media

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"civicconnect/internal/config"

	"github.com/google/uuid"
)

// Media kinds, also used as sub-directories
const (
	KindImage = "images"
	KindVideo = "videos"
	KindPost  = "posts"
)

// Upload is an in-memory upload, bounded by MAX_UPLOAD_SIZE before it gets here.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Saved describes a stored file.
type Saved struct {
	URL  string // public path served by the router
	Path string // location on disk
	Hash string // sha256 hex of the bytes
}

// Hash returns the sha256 hex digest of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

type Store struct {
	dir    string
	prefix string
}

func NewStore(cfg config.StorageConfig) *Store {
	return &Store{
		dir:    cfg.UploadDir,
		prefix: strings.TrimRight(cfg.PublicPrefix, "/"),
	}
}

// Dir is the root directory served under the public prefix.
func (s *Store) Dir() string { return s.dir }

// Prefix is the URL prefix of stored files.
func (s *Store) Prefix() string { return s.prefix }

// Save writes u under kind with a random name and returns where it went.
func (s *Store) Save(kind string, u Upload) (*Saved, error) {
	if len(u.Data) == 0 {
		return nil, fmt.Errorf("empty %s upload", kind)
	}

	dir := filepath.Join(s.dir, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	name := uuid.NewString() + safeExt(u.Filename)
	full := filepath.Join(dir, name)
	if err := os.WriteFile(full, u.Data, 0o644); err != nil {
		return nil, fmt.Errorf("write upload: %w", err)
	}

	return &Saved{
		URL:  path.Join(s.prefix, kind, name),
		Path: full,
		Hash: Hash(u.Data),
	}, nil
}

// Remove deletes a previously saved file, ignoring files that are already gone.
func (s *Store) Remove(saved *Saved) error {
	if saved == nil {
		return nil
	}
	if err := os.Remove(saved.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func safeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
