// Package registry stores saved components and notifies watchers of changes.
// Records live in memory and are optionally persisted to a JSON file after
// every mutation.
package registry

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmckenna-gumgum/component-builder/internal/errors"
	"github.com/dmckenna-gumgum/component-builder/internal/types"
	"github.com/google/uuid"
)

// ComponentRegistry manages saved components.
type ComponentRegistry struct {
	components map[string]*types.SavedComponent
	mutex      sync.RWMutex
	watchers   []chan types.ComponentEvent

	store *fileStore
	now   func() time.Time
	newID func() string
}

// Option configures a registry.
type Option func(*ComponentRegistry)

// WithClock overrides the time source used for LastModified.
func WithClock(now func() time.Time) Option {
	return func(r *ComponentRegistry) { r.now = now }
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(newID func() string) Option {
	return func(r *ComponentRegistry) { r.newID = newID }
}

// NewComponentRegistry creates an in-memory registry.
func NewComponentRegistry(opts ...Option) *ComponentRegistry {
	r := &ComponentRegistry{
		components: make(map[string]*types.SavedComponent),
		watchers:   make([]chan types.ComponentEvent, 0),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Save creates or updates a record. A record without an id, or with an id
// that is not stored yet, is created; otherwise the stored record is updated
// in place. The name is required and trimmed.
func (r *ComponentRegistry) Save(rec *types.SavedComponent) (*types.SavedComponent, error) {
	if rec == nil {
		return nil, errors.NewValidationError(errors.ErrCodeValidationFailed, "component is required")
	}
	name := strings.TrimSpace(rec.Name)
	if name == "" {
		return nil, errors.NewValidationError(errors.ErrCodeValidationFailed, "Please enter a component name")
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	stored := *rec
	stored.Name = name
	if stored.ID == "" {
		stored.ID = r.newID()
	}
	stored.LastModified = r.now().UTC()

	previous, existed := r.components[stored.ID]
	r.components[stored.ID] = &stored

	if err := r.persistLocked(); err != nil {
		if existed {
			r.components[stored.ID] = previous
		} else {
			delete(r.components, stored.ID)
		}
		return nil, err
	}

	out := stored
	r.notifyLocked(types.ComponentEvent{Type: types.EventComponentSaved, ID: stored.ID, Component: &out})

	result := stored
	return &result, nil
}

// Get retrieves a record by id.
func (r *ComponentRegistry) Get(id string) (*types.SavedComponent, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	rec, exists := r.components[id]
	if !exists {
		return nil, errors.ErrComponentNotFoundID(id)
	}
	out := *rec
	return &out, nil
}

// List returns all records, most recently modified first.
func (r *ComponentRegistry) List() []*types.SavedComponent {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]*types.SavedComponent, 0, len(r.components))
	for _, rec := range r.components {
		out := *rec
		result = append(result, &out)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].LastModified.Equal(result[j].LastModified) {
			return result[i].LastModified.After(result[j].LastModified)
		}
		return result[i].Name < result[j].Name
	})

	return result
}

// Delete removes a record.
func (r *ComponentRegistry) Delete(id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	rec, exists := r.components[id]
	if !exists {
		return errors.ErrComponentNotFoundID(id)
	}

	delete(r.components, id)
	if err := r.persistLocked(); err != nil {
		r.components[id] = rec
		return err
	}

	r.notifyLocked(types.ComponentEvent{Type: types.EventComponentDeleted, ID: id})
	return nil
}

// Duplicate clones a record under a new id with " (Copy)" appended to its
// name, both on the record and inside its config.
func (r *ComponentRegistry) Duplicate(id string) (*types.SavedComponent, error) {
	src, err := r.Get(id)
	if err != nil {
		return nil, err
	}

	clone := *src
	clone.ID = ""
	clone.Name = src.Name + " (Copy)"
	clone.Config = renameConfig(src.Config, clone.Name)

	return r.Save(&clone)
}

// Count returns the number of saved records.
func (r *ComponentRegistry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.components)
}

// Watch returns a channel that receives registry events
func (r *ComponentRegistry) Watch() <-chan types.ComponentEvent {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := make(chan types.ComponentEvent, 100)
	r.watchers = append(r.watchers, ch)
	return ch
}

// UnWatch removes a watcher channel and closes it
func (r *ComponentRegistry) UnWatch(ch <-chan types.ComponentEvent) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, watcher := range r.watchers {
		if watcher == ch {
			close(watcher)
			r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
			break
		}
	}
}

func (r *ComponentRegistry) notifyLocked(event types.ComponentEvent) {
	for _, watcher := range r.watchers {
		select {
		case watcher <- event:
		default:
			// Skip if channel is full
		}
	}
}

func (r *ComponentRegistry) persistLocked() error {
	if r.store == nil {
		return nil
	}

	records := make([]*types.SavedComponent, 0, len(r.components))
	for _, rec := range r.components {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	return r.store.write(records)
}
