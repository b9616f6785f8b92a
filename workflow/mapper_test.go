package workflow

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"
)

// fakeObjects is the minimal in-memory ObjectStore the mapper tests
// need. The object package has the production implementation; this one
// exists because its tests cannot import a package that imports this
// one.
type fakeObjects struct {
	data map[string][]byte
	next int
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{data: make(map[string][]byte)}
}

func (f *fakeObjects) WriteObject(ctx context.Context, data []byte, mimeType, orgID, executionID, filename string) (ObjectReference, error) {
	f.next++
	id := fmt.Sprintf("obj-%d", f.next)
	f.data[id] = append([]byte(nil), data...)
	return ObjectReference{ID: id, MimeType: mimeType, Filename: filename}, nil
}

func (f *fakeObjects) ReadObject(ctx context.Context, ref ObjectReference) ([]byte, *ObjectMetadata, error) {
	data, ok := f.data[ref.ID]
	if !ok {
		return nil, nil, fmt.Errorf("object %q not found", ref.ID)
	}
	return data, &ObjectMetadata{ID: ref.ID, MimeType: ref.MimeType, Size: int64(len(data))}, nil
}

func (f *fakeObjects) DeleteObject(ctx context.Context, ref ObjectReference) error {
	delete(f.data, ref.ID)
	return nil
}

func (f *fakeObjects) Presign(ctx context.Context, ref ObjectReference, ttl time.Duration) (string, error) {
	return "fake://" + ref.ID, nil
}

func (f *fakeObjects) WriteAndPresign(ctx context.Context, data []byte, mimeType, orgID string, ttl time.Duration) (string, error) {
	ref, err := f.WriteObject(ctx, data, mimeType, orgID, "", "")
	if err != nil {
		return "", err
	}
	return f.Presign(ctx, ref, ttl)
}

func (f *fakeObjects) List(ctx context.Context, orgID string) ([]ObjectMetadata, error) {
	return nil, nil
}

func TestMapperScalars(t *testing.T) {
	ctx := context.Background()
	m := NewMapper(nil)

	t.Run("round trip preserves non-blob values", func(t *testing.T) {
		cases := []struct {
			typ ParamType
			val Value
		}{
			{TypeString, "hello"},
			{TypeNumber, 42.5},
			{TypeBoolean, true},
			{TypeDate, "2024-06-01T12:00:00Z"},
			{TypeJSON, map[string]Value{"k": "v"}},
			{TypeAny, []Value{1.0, "two"}},
		}
		for _, tc := range cases {
			wire, err := m.NodeToAPI(ctx, tc.typ, tc.val, "org", "exec")
			if err != nil {
				t.Fatalf("%s: NodeToAPI: %v", tc.typ, err)
			}
			node, err := m.APIToNode(ctx, tc.typ, wire)
			if err != nil {
				t.Fatalf("%s: APIToNode: %v", tc.typ, err)
			}
			if !reflect.DeepEqual(node, tc.val) {
				t.Fatalf("%s: round trip %v -> %v", tc.typ, tc.val, node)
			}
		}
	})

	t.Run("mismatched scalars become nil", func(t *testing.T) {
		wire, err := m.NodeToAPI(ctx, TypeNumber, "not a number", "org", "exec")
		if err != nil {
			t.Fatal(err)
		}
		if wire != nil {
			t.Fatalf("expected nil, got %v", wire)
		}
	})

	t.Run("date normalization", func(t *testing.T) {
		cases := []struct {
			in   Value
			want Value
		}{
			{"2024-06-01", "2024-06-01T00:00:00Z"},
			{time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC), "2024-06-01T10:30:00Z"},
			{float64(1717243800), "2024-06-01T12:10:00Z"},
			{float64(1717243800000), "2024-06-01T12:10:00Z"},
			{"not a date", nil},
		}
		for _, tc := range cases {
			got, err := m.NodeToAPI(ctx, TypeDate, tc.in, "org", "exec")
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Fatalf("normalize(%v) = %v, want %v", tc.in, got, tc.want)
			}
		}
	})

	t.Run("json string parses on the way in", func(t *testing.T) {
		node, err := m.APIToNode(ctx, TypeJSON, `{"n": 1}`)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(node, map[string]any{"n": 1.0}) {
			t.Fatalf("got %v", node)
		}
	})

	t.Run("invalid json string passes through", func(t *testing.T) {
		node, err := m.APIToNode(ctx, TypeJSON, "{broken")
		if err != nil {
			t.Fatal(err)
		}
		if node != "{broken" {
			t.Fatalf("got %v", node)
		}
	})
}

func TestMapperBlobs(t *testing.T) {
	ctx := context.Background()
	objects := newFakeObjects()
	m := NewMapper(objects)

	t.Run("blob round trip through the store", func(t *testing.T) {
		blob := Blob{Data: []byte("payload"), MimeType: "image/png", Filename: "pic.png"}
		wire, err := m.NodeToAPI(ctx, TypeImage, blob, "org", "exec")
		if err != nil {
			t.Fatal(err)
		}
		ref, ok := AsObjectReference(wire)
		if !ok {
			t.Fatalf("wire form is %T, want ObjectReference", wire)
		}
		if ref.MimeType != "image/png" || ref.Filename != "pic.png" {
			t.Fatalf("reference metadata = %+v", ref)
		}

		node, err := m.APIToNode(ctx, TypeImage, wire)
		if err != nil {
			t.Fatal(err)
		}
		back, ok := AsBlob(node)
		if !ok {
			t.Fatalf("node form is %T, want Blob", node)
		}
		if !bytes.Equal(back.Data, blob.Data) || back.MimeType != blob.MimeType {
			t.Fatalf("blob round trip lost data: %+v", back)
		}
	})

	t.Run("existing reference passes through outbound", func(t *testing.T) {
		ref := ObjectReference{ID: "obj-9", MimeType: "application/pdf"}
		wire, err := m.NodeToAPI(ctx, TypeDocument, ref, "org", "exec")
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(wire, ref) {
			t.Fatalf("got %v", wire)
		}
	})

	t.Run("any-typed blob takes the blob branch", func(t *testing.T) {
		wire, err := m.NodeToAPI(ctx, TypeAny, Blob{Data: []byte("x"), MimeType: "text/plain"}, "org", "exec")
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := AsObjectReference(wire); !ok {
			t.Fatalf("any-typed blob should become a reference, got %T", wire)
		}
	})

	t.Run("reference as map after json round trip resolves", func(t *testing.T) {
		ref, err := objects.WriteObject(ctx, []byte("stored"), "text/plain", "org", "exec", "")
		if err != nil {
			t.Fatal(err)
		}
		asMap := map[string]any{"id": ref.ID, "mimeType": ref.MimeType}
		node, err := m.APIToNode(ctx, TypeDocument, asMap)
		if err != nil {
			t.Fatal(err)
		}
		blob, ok := AsBlob(node)
		if !ok || string(blob.Data) != "stored" {
			t.Fatalf("got %v", node)
		}
	})

	t.Run("nil store fails blob writes with missing_dependency", func(t *testing.T) {
		bare := NewMapper(nil)
		_, err := bare.NodeToAPI(ctx, TypeImage, Blob{Data: []byte("x"), MimeType: "image/png"}, "org", "exec")
		if CodeOf(err) != CodeMissingDependency {
			t.Fatalf("expected missing_dependency, got %v", err)
		}
	})
}

func TestClassifyBlobType(t *testing.T) {
	cases := map[string]ParamType{
		"image/png":         TypeImage,
		"audio/mpeg":        TypeAudio,
		"video/mp4":         TypeVideo,
		"model/gltf-binary": TypeGLTF,
		"application/pdf":   TypeDocument,
		"text/plain":        TypeDocument,
	}
	for mime, want := range cases {
		if got := ClassifyBlobType(mime); got != want {
			t.Errorf("ClassifyBlobType(%q) = %s, want %s", mime, got, want)
		}
	}
}
