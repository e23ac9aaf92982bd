package webapi

import "encoding/json"

// marshalJSON serializes an exported goja value (already converted to
// native Go maps/slices/primitives via goja.Value.Export()) for
// Response.json's static factory.
func marshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}
