package workflow

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// Mapper is the sole place that knows how to move a value between its
// node form (what implementations consume and produce) and its wire
// form (what the execution state stores). For blob-family types the
// two differ: node form is an in-memory Blob, wire form is an
// ObjectReference whose bytes live in the object store.
//
// A Mapper with a nil object store still converts every non-blob type;
// blob conversions then fail with a missing_dependency error rather
// than silently succeeding.
type Mapper struct {
	objects ObjectStore
}

// NewMapper returns a mapper writing blobs through the given store.
// The store may be nil when the workflow carries no blob values.
func NewMapper(objects ObjectStore) *Mapper {
	return &Mapper{objects: objects}
}

// NodeToAPI converts one node-form value to wire form according to the
// parameter type tag.
//
//   - Blob-family: writes the bytes to the object store scoped to
//     (orgID, executionID) and returns the reference. An existing
//     reference passes through unchanged.
//   - date: normalizes ISO strings, epoch numbers and time.Time to an
//     ISO-8601 UTC string; unparseable input becomes nil.
//   - Typed scalars: pass through when the dynamic type matches the
//     tag, otherwise nil.
//   - JSON-family and GeoJSON: pass through.
//   - any: dispatches by shape; a Blob takes the blob branch, a
//     reference passes through, anything else is the value itself.
func (m *Mapper) NodeToAPI(ctx context.Context, t ParamType, v Value, orgID, executionID string) (Value, error) {
	if v == nil {
		return nil, nil
	}

	if t.IsBlob() {
		return m.blobToWire(ctx, v, orgID, executionID)
	}

	switch t {
	case TypeString, TypeSecret, TypeIntegration, TypeQueue, TypeDatabase, TypeDataset, TypeEmail:
		if s, ok := AsString(v); ok {
			return s, nil
		}
		return nil, nil
	case TypeNumber:
		if n, ok := AsNumber(v); ok {
			return n, nil
		}
		return nil, nil
	case TypeBoolean:
		if b, ok := AsBool(v); ok {
			return b, nil
		}
		return nil, nil
	case TypeDate:
		return normalizeDate(v), nil
	case TypeAny:
		if _, ok := AsBlob(v); ok {
			return m.blobToWire(ctx, v, orgID, executionID)
		}
		return v, nil
	default:
		// JSON-family and GeoJSON tags pass through.
		return v, nil
	}
}

// APIToNode converts one wire-form value to node form according to the
// parameter type tag.
//
//   - Blob-family: resolves the reference through the object store and
//     reassembles a Blob carrying the reference's mimeType and
//     filename.
//   - JSON-family: a string is JSON-parsed; on failure the original
//     string is returned.
//   - any: dispatches by shape; references resolve to Blobs.
func (m *Mapper) APIToNode(ctx context.Context, t ParamType, v Value) (Value, error) {
	if v == nil {
		return nil, nil
	}

	if t.IsBlob() {
		return m.wireToBlob(ctx, v)
	}

	switch t {
	case TypeJSON:
		if s, ok := AsString(v); ok {
			var parsed Value
			if err := json.Unmarshal([]byte(s), &parsed); err != nil {
				return s, nil
			}
			return parsed, nil
		}
		return v, nil
	case TypeAny:
		if _, ok := AsObjectReference(v); ok {
			return m.wireToBlob(ctx, v)
		}
		return v, nil
	default:
		if t.IsGeo() {
			if s, ok := AsString(v); ok {
				var parsed Value
				if err := json.Unmarshal([]byte(s), &parsed); err != nil {
					return s, nil
				}
				return parsed, nil
			}
		}
		return v, nil
	}
}

func (m *Mapper) blobToWire(ctx context.Context, v Value, orgID, executionID string) (Value, error) {
	if ref, ok := AsObjectReference(v); ok {
		return ref, nil
	}
	blob, ok := AsBlob(v)
	if !ok {
		return nil, nil
	}
	if m.objects == nil {
		return nil, Errorf(CodeMissingDependency, "blob value requires an object store")
	}
	if orgID == "" {
		return nil, Errorf(CodeMissingDependency, "blob value requires an organization id")
	}
	return m.objects.WriteObject(ctx, blob.Data, blob.MimeType, orgID, executionID, blob.Filename)
}

func (m *Mapper) wireToBlob(ctx context.Context, v Value) (Value, error) {
	ref, ok := AsObjectReference(v)
	if !ok {
		// Already in node form, nothing to resolve.
		if _, isBlob := AsBlob(v); isBlob {
			return v, nil
		}
		return nil, nil
	}
	if m.objects == nil {
		return nil, Errorf(CodeMissingDependency, "object reference %q requires an object store", ref.ID)
	}
	data, _, err := m.objects.ReadObject(ctx, ref)
	if err != nil {
		return nil, err
	}
	return Blob{Data: data, MimeType: ref.MimeType, Filename: ref.Filename}, nil
}

// ClassifyBlobType maps a mime type to the blob-family tag a consumer
// of an "any" input should treat the value as.
func ClassifyBlobType(mimeType string) ParamType {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return TypeImage
	case strings.HasPrefix(mimeType, "audio/"):
		return TypeAudio
	case strings.HasPrefix(mimeType, "video/"):
		return TypeVideo
	case mimeType == "model/gltf-binary":
		return TypeGLTF
	default:
		return TypeDocument
	}
}

// normalizeDate coerces a date-like value to an ISO-8601 UTC string.
// Unparseable input yields nil.
func normalizeDate(v Value) Value {
	switch d := v.(type) {
	case time.Time:
		return d.UTC().Format(time.RFC3339)
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, d); err == nil {
				return parsed.UTC().Format(time.RFC3339)
			}
		}
		return nil
	}
	if n, ok := AsNumber(v); ok {
		// Epochs past the year 33658 in seconds are taken as
		// milliseconds.
		sec := int64(n)
		if sec > 1_000_000_000_000 {
			return time.UnixMilli(sec).UTC().Format(time.RFC3339)
		}
		return time.Unix(sec, 0).UTC().Format(time.RFC3339)
	}
	return nil
}
