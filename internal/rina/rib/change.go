package rib

import (
	"fmt"
	"time"

	"github.com/rinacore/ipcpd/internal/rina/wire"
)

// ChangeKind tags which variant of Change is carried.
type ChangeKind uint8

const (
	ChangeCreated ChangeKind = iota
	ChangeUpdated
	ChangeDeleted
)

// String renders the ChangeKind for logging.
func (k ChangeKind) String() string {
	switch k {
	case ChangeCreated:
		return "Created"
	case ChangeUpdated:
		return "Updated"
	case ChangeDeleted:
		return "Deleted"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(k))
	}
}

// Change is the tagged variant Created(obj) | Updated(obj) |
// Deleted{name, version, timestamp} from spec.md §3. Changes form a total
// order by Version.
type Change struct {
	Kind ChangeKind
	// Object is populated for Created and Updated.
	Object Object
	// Name, Version and Timestamp are populated for Deleted (Object.Name/
	// Version/LastModified are equivalently used for Created/Updated).
	Name      string
	Version   uint64
	Timestamp time.Time
}

func newCreated(obj Object) Change {
	return Change{Kind: ChangeCreated, Object: obj, Name: obj.Name, Version: obj.Version, Timestamp: obj.LastModified}
}

func newUpdated(obj Object) Change {
	return Change{Kind: ChangeUpdated, Object: obj, Name: obj.Name, Version: obj.Version, Timestamp: obj.LastModified}
}

func newDeleted(name string, version uint64, ts time.Time) Change {
	return Change{Kind: ChangeDeleted, Name: name, Version: version, Timestamp: ts}
}

// Encode serialises c with the shared wire encoding, for callers (such as
// enrolment sync responses) that embed changes in a larger message.
func (c Change) Encode(w *wire.Writer) {
	c.encode(w)
}

func (c Change) encode(w *wire.Writer) {
	w.WriteUint8(uint8(c.Kind))
	w.WriteString(c.Name)
	w.WriteUint64(c.Version)
	w.WriteInt64(c.Timestamp.UnixNano())
	switch c.Kind {
	case ChangeCreated, ChangeUpdated:
		w.WriteString(c.Object.Class)
		w.WriteValue(c.Object.Value)
	}
}

// DecodeChange parses a Change from r, the counterpart to Encode.
func DecodeChange(r *wire.Reader) (Change, error) {
	return decodeChange(r)
}

func decodeChange(r *wire.Reader) (Change, error) {
	kind, err := r.ReadUint8()
	if err != nil {
		return Change{}, err
	}
	name, err := r.ReadString()
	if err != nil {
		return Change{}, err
	}
	version, err := r.ReadUint64()
	if err != nil {
		return Change{}, err
	}
	nanos, err := r.ReadInt64()
	if err != nil {
		return Change{}, err
	}
	ts := time.Unix(0, nanos).UTC()

	switch ChangeKind(kind) {
	case ChangeCreated, ChangeUpdated:
		class, err := r.ReadString()
		if err != nil {
			return Change{}, err
		}
		val, err := r.ReadValue()
		if err != nil {
			return Change{}, err
		}
		obj := Object{Name: name, Class: class, Value: val, Version: version, LastModified: ts}
		if ChangeKind(kind) == ChangeCreated {
			return newCreated(obj), nil
		}
		return newUpdated(obj), nil
	case ChangeDeleted:
		return newDeleted(name, version, ts), nil
	default:
		return Change{}, fmt.Errorf("rib: unknown change kind %d", kind)
	}
}
