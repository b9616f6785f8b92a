// Package workflow implements a graph workflow runtime: it validates a
// directed graph of typed nodes, computes its topological execution
// levels, executes nodes in parallel within each level, propagates
// values through typed edges, and derives a single terminal status for
// the run.
//
// The runtime is pluggable. Node implementations register through a
// Registry, persistence and side-effecting collaborators are injected
// through the service interfaces in services.go, and the durable-step
// seam (StepRunner) lets the same core run as a plain in-process call
// or as a persisted, resumable execution.
package workflow

// TriggerType identifies what started a workflow execution.
type TriggerType string

// Supported trigger types.
const (
	TriggerManual TriggerType = "manual"
	TriggerHTTP   TriggerType = "http"
	TriggerEmail  TriggerType = "email"
	TriggerQueue  TriggerType = "queue"
	TriggerCron   TriggerType = "cron"
)

// ParamType is the semantic type tag of a node parameter. The set is
// closed: adding a tag requires registering converters in the mapper,
// and unknown tags are rejected by Validate.
type ParamType string

// Scalar and structured parameter types.
const (
	TypeString      ParamType = "string"
	TypeNumber      ParamType = "number"
	TypeBoolean     ParamType = "boolean"
	TypeDate        ParamType = "date"
	TypeJSON        ParamType = "json"
	TypeSecret      ParamType = "secret"
	TypeIntegration ParamType = "integration"
	TypeQueue       ParamType = "queue"
	TypeDatabase    ParamType = "database"
	TypeDataset     ParamType = "dataset"
	TypeEmail       ParamType = "email"
	TypeAny         ParamType = "any"
)

// Blob-family parameter types. Values of these types travel between
// nodes as object references; the raw bytes live in the object store.
const (
	TypeBlob     ParamType = "blob"
	TypeImage    ParamType = "image"
	TypeAudio    ParamType = "audio"
	TypeVideo    ParamType = "video"
	TypeDocument ParamType = "document"
	TypeGLTF     ParamType = "gltf"
)

// GeoJSON parameter types.
const (
	TypePoint              ParamType = "point"
	TypeMultiPoint         ParamType = "multipoint"
	TypeLineString         ParamType = "linestring"
	TypeMultiLineString    ParamType = "multilinestring"
	TypePolygon            ParamType = "polygon"
	TypeMultiPolygon       ParamType = "multipolygon"
	TypeGeometry           ParamType = "geometry"
	TypeGeometryCollection ParamType = "geometrycollection"
	TypeFeature            ParamType = "feature"
	TypeFeatureCollection  ParamType = "featurecollection"
	TypeGeoJSON            ParamType = "geojson"
)

var paramTypes = map[ParamType]bool{
	TypeString: true, TypeNumber: true, TypeBoolean: true, TypeDate: true,
	TypeJSON: true, TypeSecret: true, TypeIntegration: true, TypeQueue: true,
	TypeDatabase: true, TypeDataset: true, TypeEmail: true, TypeAny: true,
	TypeBlob: true, TypeImage: true, TypeAudio: true, TypeVideo: true,
	TypeDocument: true, TypeGLTF: true,
	TypePoint: true, TypeMultiPoint: true, TypeLineString: true,
	TypeMultiLineString: true, TypePolygon: true, TypeMultiPolygon: true,
	TypeGeometry: true, TypeGeometryCollection: true, TypeFeature: true,
	TypeFeatureCollection: true, TypeGeoJSON: true,
}

// Valid reports whether t is a member of the closed type-tag set.
func (t ParamType) Valid() bool { return paramTypes[t] }

// IsBlob reports whether values of t are stored as object references.
func (t ParamType) IsBlob() bool {
	switch t {
	case TypeBlob, TypeImage, TypeAudio, TypeVideo, TypeDocument, TypeGLTF:
		return true
	}
	return false
}

// IsGeo reports whether t is one of the GeoJSON tags.
func (t ParamType) IsGeo() bool {
	switch t {
	case TypePoint, TypeMultiPoint, TypeLineString, TypeMultiLineString,
		TypePolygon, TypeMultiPolygon, TypeGeometry, TypeGeometryCollection,
		TypeFeature, TypeFeatureCollection, TypeGeoJSON:
		return true
	}
	return false
}

// Compatible reports whether an edge may connect an output of type t to
// an input of type other. "any" accepts every tag and the blob family
// is interchangeable.
func (t ParamType) Compatible(other ParamType) bool {
	if t == other || t == TypeAny || other == TypeAny {
		return true
	}
	if t.IsBlob() && other.IsBlob() {
		return true
	}
	if t.IsGeo() && other == TypeGeoJSON || other.IsGeo() && t == TypeGeoJSON {
		return true
	}
	return false
}

// Parameter declares one input or output of a node.
type Parameter struct {
	Name     string    `json:"name"`
	Type     ParamType `json:"type"`
	Required bool      `json:"required,omitempty"`
	Value    Value     `json:"value,omitempty"` // default, used when no edge contributes
	Hidden   bool      `json:"hidden,omitempty"`
}

// Node is a typed unit of computation in a workflow. Type selects the
// implementation in the Registry; Inputs and Outputs declare the
// parameters edges may attach to.
type Node struct {
	ID      string      `json:"id"`
	Type    string      `json:"type"`
	Name    string      `json:"name,omitempty"`
	Inputs  []Parameter `json:"inputs,omitempty"`
	Outputs []Parameter `json:"outputs,omitempty"`
}

// Input returns the declared input parameter with the given name.
func (n *Node) Input(name string) (*Parameter, bool) {
	for i := range n.Inputs {
		if n.Inputs[i].Name == name {
			return &n.Inputs[i], true
		}
	}
	return nil, false
}

// Output returns the declared output parameter with the given name.
func (n *Node) Output(name string) (*Parameter, bool) {
	for i := range n.Outputs {
		if n.Outputs[i].Name == name {
			return &n.Outputs[i], true
		}
	}
	return nil, false
}

// Edge connects one node's output to another node's input. Edges are
// deterministic: when a target input receives multiple edges, values
// are collected in workflow-edge-declaration order.
type Edge struct {
	Source       string `json:"source"`
	SourceOutput string `json:"sourceOutput"`
	Target       string `json:"target"`
	TargetInput  string `json:"targetInput"`
}

// Workflow is the immutable input to the runtime.
type Workflow struct {
	ID      string      `json:"id"`
	Name    string      `json:"name,omitempty"`
	Trigger TriggerType `json:"trigger"`
	Nodes   []Node      `json:"nodes"`
	Edges   []Edge      `json:"edges"`
}

// Node returns the node with the given id.
func (w *Workflow) Node(id string) (*Node, bool) {
	for i := range w.Nodes {
		if w.Nodes[i].ID == id {
			return &w.Nodes[i], true
		}
	}
	return nil, false
}

// InboundEdges returns the edges targeting the given node, in
// declaration order.
func (w *Workflow) InboundEdges(nodeID string) []Edge {
	var in []Edge
	for _, e := range w.Edges {
		if e.Target == nodeID {
			in = append(in, e)
		}
	}
	return in
}

// InputEdges returns the edges feeding one input of one node, in
// declaration order.
func (w *Workflow) InputEdges(nodeID, input string) []Edge {
	var in []Edge
	for _, e := range w.Edges {
		if e.Target == nodeID && e.TargetInput == input {
			in = append(in, e)
		}
	}
	return in
}
