package workflow

import "encoding/json"

// Value is a runtime value flowing between nodes. In wire form it is
// always JSON-serializable: primitives, []Value / map[string]Value
// trees, or an ObjectReference for blob-family types. In node form
// blob-family values are in-memory Blobs instead.
type Value = any

// ObjectReference is the wire form of a blob: an opaque object-store id
// plus the metadata needed to reassemble the blob on the consuming
// side. Large binary payloads never sit in the execution state.
type ObjectReference struct {
	ID       string `json:"id"`
	MimeType string `json:"mimeType"`
	Filename string `json:"filename,omitempty"`
}

// Blob is the node form of a binary value: the raw bytes plus metadata.
type Blob struct {
	Data     []byte `json:"data"`
	MimeType string `json:"mimeType"`
	Filename string `json:"filename,omitempty"`
}

// AsObjectReference extracts an ObjectReference from v. It accepts the
// struct itself, a pointer to it, or the map shape a reference takes
// after a JSON round-trip through a store.
func AsObjectReference(v Value) (ObjectReference, bool) {
	switch ref := v.(type) {
	case ObjectReference:
		return ref, ref.ID != ""
	case *ObjectReference:
		if ref == nil {
			return ObjectReference{}, false
		}
		return *ref, ref.ID != ""
	case map[string]any:
		id, _ := ref["id"].(string)
		mime, _ := ref["mimeType"].(string)
		if id == "" || mime == "" {
			return ObjectReference{}, false
		}
		name, _ := ref["filename"].(string)
		return ObjectReference{ID: id, MimeType: mime, Filename: name}, true
	}
	return ObjectReference{}, false
}

// AsBlob extracts a Blob from v, accepting the struct or a pointer.
func AsBlob(v Value) (Blob, bool) {
	switch b := v.(type) {
	case Blob:
		return b, true
	case *Blob:
		if b == nil {
			return Blob{}, false
		}
		return *b, true
	}
	return Blob{}, false
}

// AsNumber extracts a float64 from any of the numeric representations a
// value may take after JSON decoding or direct construction.
func AsNumber(v Value) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// AsString extracts a string value.
func AsString(v Value) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// AsBool extracts a boolean value.
func AsBool(v Value) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}
