package feed

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"wall/internal/models"

	"gopkg.in/yaml.v3"
)

const snapshotVersion = 1

// FileSnapshot persists the feed as a YAML document on local disk.
type FileSnapshot struct {
	path string
}

// NewFileSnapshot returns a persister writing to path.
func NewFileSnapshot(path string) *FileSnapshot {
	return &FileSnapshot{path: path}
}

type snapshotDoc struct {
	Version int            `yaml:"version"`
	SavedAt time.Time      `yaml:"saved_at"`
	Posts   []snapshotPost `yaml:"posts"`
}

type snapshotPost struct {
	ID        uint      `yaml:"id"`
	Author    *string   `yaml:"author,omitempty"`
	Body      string    `yaml:"body"`
	ImageURL  *string   `yaml:"image_url,omitempty"`
	CreatedAt time.Time `yaml:"created_at"`
}

// Load reads the snapshot. A missing file yields an empty feed.
func (f *FileSnapshot) Load() ([]models.Post, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var doc snapshotDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	if doc.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", doc.Version)
	}

	posts := make([]models.Post, 0, len(doc.Posts))
	for _, p := range doc.Posts {
		posts = append(posts, models.Post{
			ID:        p.ID,
			Author:    p.Author,
			Body:      p.Body,
			ImageURL:  p.ImageURL,
			CreatedAt: p.CreatedAt,
		})
	}
	return posts, nil
}

// Save writes posts atomically by renaming a temp file over the snapshot.
func (f *FileSnapshot) Save(posts []models.Post) error {
	doc := snapshotDoc{
		Version: snapshotVersion,
		SavedAt: time.Now().UTC(),
		Posts:   make([]snapshotPost, 0, len(posts)),
	}
	for _, p := range posts {
		doc.Posts = append(doc.Posts, snapshotPost{
			ID:        p.ID,
			Author:    p.Author,
			Body:      p.Body,
			ImageURL:  p.ImageURL,
			CreatedAt: p.CreatedAt,
		})
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".feed-*.yml")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}
