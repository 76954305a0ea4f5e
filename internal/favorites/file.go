package favorites

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// FileStore keeps favorites as a JSON array in a single file. Good enough
// for a single-user CLI; concurrent writers are not supported.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Add(f *Favorite) (bool, error) {
	items, err := s.load()
	if err != nil {
		return false, err
	}

	for _, existing := range items {
		if existing.Code == f.Code {
			return false, nil
		}
	}

	items = append(items, f)
	if err := s.save(items); err != nil {
		return false, err
	}

	return true, nil
}

func (s *FileStore) List() ([]*Favorite, error) {
	return s.load()
}

func (s *FileStore) Remove(code string) error {
	items, err := s.load()
	if err != nil {
		return err
	}

	kept := items[:0]
	for _, f := range items {
		if f.Code == code {
			continue
		}
		kept = append(kept, f)
	}

	return s.save(kept)
}

func (s *FileStore) load() ([]*Favorite, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*Favorite{}, nil
		}
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if stat.Size() == 0 {
		return []*Favorite{}, nil
	}

	var items []*Favorite
	if err := json.NewDecoder(file).Decode(&items); err != nil {
		return nil, fmt.Errorf("decoding favorites file: %w", err)
	}

	return items, nil
}

func (s *FileStore) save(items []*Favorite) error {
	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}
