// Package imagecache keeps downloaded push-notification images on disk with
// a JSON metadata sidecar per image.
package imagecache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var uuidRe = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// ImageMeta describes a cached image.
type ImageMeta struct {
	ID        string    `json:"id"`
	PushID    string    `json:"push_id,omitempty"`
	SourceURL string    `json:"source_url"`
	MIME      string    `json:"mime"`
	Ext       string    `json:"ext"`
	SizeBytes int       `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// Store manages cached images on disk.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// NewStore creates a Store and ensures the directory exists.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("image cache: mkdir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the cache directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) validateID(id string) error {
	if !uuidRe.MatchString(id) {
		return fmt.Errorf("invalid image id: %q", id)
	}
	return nil
}

// Save sniffs data, rejects anything that is not an image, and writes the
// image and its sidecar. The returned meta carries the assigned ID.
func (s *Store) Save(pushID, sourceURL string, data []byte) (ImageMeta, error) {
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return ImageMeta{}, fmt.Errorf("image cache: %s is not an image", mt.String())
	}
	meta := ImageMeta{
		ID:        uuid.NewString(),
		PushID:    pushID,
		SourceURL: sourceURL,
		MIME:      mt.String(),
		Ext:       strings.TrimPrefix(mt.Extension(), "."),
		SizeBytes: len(data),
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	imgPath := s.imagePath(meta)
	jsonPath := filepath.Join(s.dir, meta.ID+".json")

	if err := os.WriteFile(imgPath, data, 0o644); err != nil {
		return ImageMeta{}, fmt.Errorf("image cache: write image: %w", err)
	}

	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		_ = os.Remove(imgPath)
		return ImageMeta{}, fmt.Errorf("image cache: marshal meta: %w", err)
	}
	if err := os.WriteFile(jsonPath, raw, 0o644); err != nil {
		_ = os.Remove(imgPath)
		return ImageMeta{}, fmt.Errorf("image cache: write meta: %w", err)
	}
	return meta, nil
}

func (s *Store) imagePath(meta ImageMeta) string {
	name := meta.ID
	if meta.Ext != "" {
		name += "." + meta.Ext
	}
	return filepath.Join(s.dir, name)
}

// Get reads image metadata by ID.
func (s *Store) Get(id string) (ImageMeta, error) {
	if err := s.validateID(id); err != nil {
		return ImageMeta{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return ImageMeta{}, fmt.Errorf("image not found: %s", id)
		}
		return ImageMeta{}, fmt.Errorf("image cache: read meta: %w", err)
	}

	var meta ImageMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return ImageMeta{}, fmt.Errorf("image cache: unmarshal meta: %w", err)
	}
	return meta, nil
}

// Path returns the on-disk location of an image.
func (s *Store) Path(id string) (string, error) {
	meta, err := s.Get(id)
	if err != nil {
		return "", err
	}
	return s.imagePath(meta), nil
}

// List returns all cached images, newest first.
func (s *Store) List() ([]ImageMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("image cache: glob: %w", err)
	}

	metas := make([]ImageMeta, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var meta ImageMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		metas = append(metas, meta)
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].CreatedAt.After(metas[j].CreatedAt)
	})
	return metas, nil
}

// ReadImage returns the raw bytes and MIME type.
func (s *Store) ReadImage(id string) ([]byte, string, error) {
	meta, err := s.Get(id)
	if err != nil {
		return nil, "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.imagePath(meta))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("image not found on disk: %s", id)
		}
		return nil, "", fmt.Errorf("image cache: read image: %w", err)
	}
	return data, meta.MIME, nil
}

// Delete removes an image and its sidecar.
func (s *Store) Delete(id string) error {
	meta, err := s.Get(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.imagePath(meta)); err != nil {
		slog.Debug("image cleanup failed", "id", id, "error", err)
	}
	if err := os.Remove(filepath.Join(s.dir, id+".json")); err != nil {
		slog.Debug("image meta cleanup failed", "id", id, "error", err)
	}
	return nil
}

// Prune keeps the newest keep images and deletes the rest.
func (s *Store) Prune(keep int) (int, error) {
	metas, err := s.List()
	if err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}
	removed := 0
	for _, m := range metas[min(keep, len(metas)):] {
		if err := s.Delete(m.ID); err == nil {
			removed++
		}
	}
	return removed, nil
}
