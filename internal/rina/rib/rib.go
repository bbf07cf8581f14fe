// Package rib implements the Resource Information Base: a versioned
// key→object store with a bounded change log, idempotent delta
// application, and snapshot serialisation.
package rib

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rinacore/ipcpd/internal/rina/wire"
)

// RIB is the versioned object store. Multiple concurrent readers are
// supported; writes are exclusive. Every create/update/delete assigns the
// next version from a single counter and appends a Change atomically with
// the store mutation — no version gap, no log gap.
type RIB struct {
	mu      sync.RWMutex
	objects map[string]Object
	version uint64
	log     *changeLog
	now     func() time.Time
}

// Option configures a RIB at construction.
type Option func(*RIB)

// WithChangeLogCapacity overrides DefaultChangeLogCapacity.
func WithChangeLogCapacity(capacity int) Option {
	return func(r *RIB) { r.log = newChangeLog(capacity) }
}

// WithClock overrides the time source (tests only).
func WithClock(now func() time.Time) Option {
	return func(r *RIB) { r.now = now }
}

// New returns an empty RIB.
func New(opts ...Option) *RIB {
	r := &RIB{
		objects: make(map[string]Object),
		log:     newChangeLog(DefaultChangeLogCapacity),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create adds a new object, failing with ErrAlreadyExists if name is
// already present.
func (r *RIB) Create(name, class string, value wire.Value) (uint64, error) {
	if !ValidName(name) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.objects[name]; exists {
		return 0, fmt.Errorf("%w: %q", ErrAlreadyExists, name)
	}

	r.version++
	obj := Object{Name: name, Class: class, Value: value, Version: r.version, LastModified: r.now()}
	r.objects[name] = obj
	r.log.append(newCreated(obj))
	return obj.Version, nil
}

// Read returns the object stored under name. A missing name is not an
// error: ok is false and obj is the zero Object.
func (r *RIB) Read(name string) (obj Object, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	obj, ok = r.objects[name]
	return obj.clone(), ok
}

// Update replaces the value of an existing object, failing with
// ErrNotFound if name is absent.
func (r *RIB) Update(name string, value wire.Value) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.objects[name]
	if !exists {
		return 0, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	r.version++
	obj := Object{Name: name, Class: existing.Class, Value: value, Version: r.version, LastModified: r.now()}
	r.objects[name] = obj
	r.log.append(newUpdated(obj))
	return obj.Version, nil
}

// Delete removes an existing object, failing with ErrNotFound if name is
// absent.
func (r *RIB) Delete(name string) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.objects[name]; !exists {
		return 0, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	r.version++
	delete(r.objects, name)
	r.log.append(newDeleted(name, r.version, r.now()))
	return r.version, nil
}

// ListByPrefix returns every stored object whose name starts with prefix,
// in name order.
func (r *RIB) ListByPrefix(prefix string) []Object {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []Object
	for name, obj := range r.objects {
		if strings.HasPrefix(name, prefix) {
			matched = append(matched, obj.clone())
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	return matched
}

// CurrentVersion returns the most recently assigned version.
func (r *RIB) CurrentVersion() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// GetChangesSince returns all changes with version > since, in version
// order, or ErrTooOld if since predates the retained change-log window —
// the caller should fall back to a full snapshot transfer.
func (r *RIB) GetChangesSince(since uint64) ([]Change, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	changes, ok := r.log.since(since)
	if !ok {
		return nil, ErrTooOld
	}
	return changes, nil
}

// ApplyChanges applies a batch of remote changes idempotently: a Created
// or Updated change is accepted only if its version exceeds the locally
// stored version for that name (or the name is absent); a Deleted change
// removes the object iff the stored version is <= the incoming version.
// Returns the count of changes actually applied.
func (r *RIB) ApplyChanges(changes []Change) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	applied := 0
	for _, c := range changes {
		switch c.Kind {
		case ChangeCreated, ChangeUpdated:
			if existing, exists := r.objects[c.Name]; exists && existing.Version >= c.Object.Version {
				continue
			}
			r.objects[c.Name] = c.Object
			if c.Object.Version > r.version {
				r.version = c.Object.Version
			}
			applied++
		case ChangeDeleted:
			existing, exists := r.objects[c.Name]
			if !exists {
				continue
			}
			if existing.Version > c.Version {
				continue
			}
			delete(r.objects, c.Name)
			if c.Version > r.version {
				r.version = c.Version
			}
			applied++
		}
	}
	return applied
}

// SerializeSnapshot encodes the entire current object set.
func (r *RIB) SerializeSnapshot() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.objects))
	for name := range r.objects {
		names = append(names, name)
	}
	sort.Strings(names)

	w := wire.NewWriter()
	w.WriteVersion()
	w.WriteUint64(r.version)
	w.WriteUint32(uint32(len(names)))
	for _, name := range names {
		obj := r.objects[name]
		w.WriteString(obj.Name)
		w.WriteString(obj.Class)
		w.WriteValue(obj.Value)
		w.WriteUint64(obj.Version)
		w.WriteInt64(obj.LastModified.UnixNano())
	}
	return w.Bytes()
}

// DeserializeSnapshot replaces the RIB's object set and version counter
// with the contents of a snapshot produced by SerializeSnapshot. The
// change log is reset: snapshot loads are a baseline, not a set of
// observable deltas. Returns the count of objects loaded.
func (r *RIB) DeserializeSnapshot(data []byte) (int, error) {
	rd := wire.NewReader(data)
	if err := rd.ReadVersion(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	version, err := rd.ReadUint64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	count, err := rd.ReadUint32()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	objects := make(map[string]Object, count)
	for i := uint32(0); i < count; i++ {
		name, err := rd.ReadString()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrSerialization, err)
		}
		class, err := rd.ReadString()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrSerialization, err)
		}
		val, err := rd.ReadValue()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrSerialization, err)
		}
		objVersion, err := rd.ReadUint64()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrSerialization, err)
		}
		nanos, err := rd.ReadInt64()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrSerialization, err)
		}
		objects[name] = Object{
			Name: name, Class: class, Value: val,
			Version: objVersion, LastModified: time.Unix(0, nanos).UTC(),
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.objects = objects
	r.version = version
	r.log = newChangeLog(r.log.capacity)
	return len(objects), nil
}
