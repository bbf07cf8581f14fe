package adminapi

import (
	"encoding/base64"

	"github.com/rinacore/ipcpd/internal/rina/wire"
)

// describeValue converts a wire.Value into a plain interface{} tree
// suitable for JSON encoding.
func describeValue(v wire.Value) interface{} {
	switch v.Tag() {
	case wire.TagInt:
		return v.AsInt()
	case wire.TagString:
		return v.AsString()
	case wire.TagBytes:
		return base64.StdEncoding.EncodeToString(v.AsBytes())
	case wire.TagSequence:
		seq := v.AsSequence()
		out := make([]interface{}, len(seq))
		for i, e := range seq {
			out[i] = describeValue(e)
		}
		return out
	case wire.TagMapping:
		m, keys := v.AsMapping()
		out := make(map[string]interface{}, len(keys))
		for _, k := range keys {
			out[k] = describeValue(m[k])
		}
		return out
	default:
		return nil
	}
}
