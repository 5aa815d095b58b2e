package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps the cart snapshot as a JSON document at Path. Writes go to a
// temp file in the same directory and are renamed into place.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (f *FileStore) Load() ([]Service, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Service{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return []Service{}, nil
	}
	var services []Service
	if err := json.Unmarshal(data, &services); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.Path, err)
	}
	return services, nil
}

func (f *FileStore) Save(services []Service) error {
	if services == nil {
		services = []Service{}
	}
	data, err := json.Marshal(services)
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".cart-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.Path)
}

// MemoryStore holds the last snapshot in memory.
type MemoryStore struct {
	services []Service
	Saves    int
}

func (m *MemoryStore) Load() ([]Service, error) {
	out := make([]Service, len(m.services))
	for i, s := range m.services {
		out[i] = cloneService(s)
	}
	return out, nil
}

func (m *MemoryStore) Save(services []Service) error {
	m.services = make([]Service, len(services))
	for i, s := range services {
		m.services[i] = cloneService(s)
	}
	m.Saves++
	return nil
}
