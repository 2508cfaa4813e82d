package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmckenna-gumgum/component-builder/internal/errors"
	"github.com/dmckenna-gumgum/component-builder/internal/types"
)

// fileStore keeps records in one JSON file, replaced atomically on write.
type fileStore struct {
	path string
}

func (s *fileStore) read() ([]*types.SavedComponent, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewInternalError("reading component store", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var records []*types.SavedComponent
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.NewInternalError(fmt.Sprintf("component store %s is corrupt", s.path), err)
	}

	return records, nil
}

func (s *fileStore) write(records []*types.SavedComponent) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return errors.NewInternalError("encoding component store", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewInternalError("creating store directory", err)
	}

	tmp, err := os.CreateTemp(dir, ".components-*.json")
	if err != nil {
		return errors.NewInternalError("creating temp store file", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.NewInternalError("writing component store", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.NewInternalError("writing component store", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errors.NewInternalError("replacing component store", err)
	}

	return nil
}

// Open creates a registry persisted at path. Existing records are loaded;
// when seed is true the built-in default components are added if their ids
// are missing.
func Open(path string, seed bool, opts ...Option) (*ComponentRegistry, error) {
	r := NewComponentRegistry(opts...)
	r.store = &fileStore{path: path}

	records, err := r.store.read()
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec == nil || rec.ID == "" {
			continue
		}
		r.components[rec.ID] = rec
	}

	if seed {
		if err := r.SeedDefaults(); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// SeedDefaults adds every default component whose id is not stored yet.
func (r *ComponentRegistry) SeedDefaults() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	added := false
	for _, def := range DefaultComponents() {
		if _, exists := r.components[def.ID]; exists {
			continue
		}
		rec := def
		rec.LastModified = r.now().UTC()
		r.components[rec.ID] = &rec
		added = true
	}
	if !added {
		return nil
	}

	return r.persistLocked()
}
