package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const recordExt = ".json"

// FileStore keeps one JSON document per job in a directory. Writes go to a
// temp file in the same directory and are renamed into place, so readers
// never observe a partial record.
type FileStore struct {
	dir string
}

// OpenFileStore creates dir if needed and returns a store rooted there.
func OpenFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("file store: directory must be set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file store: create directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory holding job records.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+recordExt)
}

// Create writes a new record, failing with ErrExists when the id is taken.
func (s *FileStore) Create(_ context.Context, job *Job) error {
	if err := checkID(job.ID); err != nil {
		return err
	}
	tmp, err := s.writeTemp(job)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)
	if err := os.Link(tmp, s.path(job.ID)); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrExists, job.ID)
		}
		return fmt.Errorf("file store: publish %s: %w", job.ID, err)
	}
	return nil
}

// Load reads the record for id. Unknown ids return (nil, nil).
func (s *FileStore) Load(_ context.Context, id string) (*Job, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("file store: read %s: %w", id, err)
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("file store: decode %s: %w", id, err)
	}
	return &job, nil
}

// Save replaces the record for job.ID atomically.
func (s *FileStore) Save(_ context.Context, job *Job) error {
	if err := checkID(job.ID); err != nil {
		return err
	}
	tmp, err := s.writeTemp(job)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path(job.ID)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("file store: replace %s: %w", job.ID, err)
	}
	return nil
}

// List returns up to limit jobs, newest first. A limit <= 0 returns all.
func (s *FileStore) List(ctx context.Context, limit int) ([]*Job, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("file store: list: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, recordExt) {
			continue
		}
		if id := strings.TrimSuffix(name, recordExt); ValidID(id) {
			ids = append(ids, id)
		}
	}
	// Ids are time-prefixed, so reverse lexical order is newest first.
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]*Job, 0, len(ids))
	for _, id := range ids {
		job, err := s.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		if job != nil {
			out = append(out, job)
		}
	}
	return out, nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) writeTemp(job *Job) (string, error) {
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return "", fmt.Errorf("file store: encode %s: %w", job.ID, err)
	}
	file, err := os.CreateTemp(s.dir, "."+job.ID+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("file store: create temp: %w", err)
	}
	name := file.Name()
	fail := func(err error) (string, error) {
		file.Close()
		_ = os.Remove(name)
		return "", fmt.Errorf("file store: write %s: %w", job.ID, err)
	}
	if _, err := file.Write(data); err != nil {
		return fail(err)
	}
	if err := file.Sync(); err != nil {
		return fail(err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("file store: close %s: %w", job.ID, err)
	}
	return name, nil
}
