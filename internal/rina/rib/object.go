package rib

import (
	"strings"
	"time"

	"github.com/rinacore/ipcpd/internal/rina/wire"
)

// Object is one RIB entry: a hierarchical name, a class tag, a tagged
// Value, and the version assigned by the single monotonically increasing
// counter at the moment of its last mutation.
type Object struct {
	Name         string
	Class        string
	Value        wire.Value
	Version      uint64
	LastModified time.Time
}

// ValidName reports whether name follows the hierarchical path convention
// used throughout the RIB (e.g. "/local/address", "/routing/static/7").
func ValidName(name string) bool {
	return strings.HasPrefix(name, "/") && name != "/" && !strings.Contains(name, "//")
}

func (o Object) clone() Object {
	return Object{
		Name:         o.Name,
		Class:        o.Class,
		Value:        o.Value,
		Version:      o.Version,
		LastModified: o.LastModified,
	}
}
